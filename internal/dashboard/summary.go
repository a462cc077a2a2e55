package dashboard

import (
	"time"

	"example.com/dashboard/internal/domain"
)

// Summary is the payload rendered by the dashboard page. It is recomputed on every request.
type Summary struct {
	DailyGoal        DailyGoal               `json:"dailyGoal"`
	WeeklyProgress   WeeklyProgress          `json:"weeklyProgress"`
	Statistics       Statistics              `json:"statistics"`
	RecentActivities []domain.ActivityRecord `json:"recentActivities"`
}

// DailyGoal is a synthetic step goal. No step data source exists yet, so
// Placeholder is always true and Current is derived from weekly activity.
type DailyGoal struct {
	Target      int  `json:"target"`
	Current     int  `json:"current"`
	Progress    int  `json:"progress"`
	Placeholder bool `json:"placeholder"`
}

// WeeklyProgress tracks workouts logged in the current Sunday-anchored week.
type WeeklyProgress struct {
	Target     int   `json:"target"`
	Current    int   `json:"current"`
	Percentage int   `json:"percentage"`
	ActiveDays []int `json:"activeDays"`
}

// Statistics carries the 30-day rolling totals and gamification counters.
type Statistics struct {
	TotalWorkouts int `json:"totalWorkouts"`
	TotalMinutes  int `json:"totalMinutes"`
	TotalCalories int `json:"totalCalories"`
	CurrentStreak int `json:"currentStreak"`
	BestStreak    int `json:"bestStreak"`
	BadgesCount   int `json:"badgesCount"`
}

// FitnessProfile is the subset of the user entity the dashboard reads.
type FitnessProfile struct {
	WeeklyGoalWorkouts *int
}

// ActivityTotals is the result of summing activities over a window.
type ActivityTotals struct {
	Count       int
	SumDuration int
	SumCalories int
}

// StreakRecord holds the streak counters maintained by the streak projection.
type StreakRecord struct {
	Current          int
	Best             int
	LastActivityDate *time.Time
}
