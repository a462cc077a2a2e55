package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"example.com/dashboard/internal/dashboard"
	"example.com/dashboard/internal/domain"
)

var _ dashboard.Store = (*Repository)(nil)

// GetUserProfile implements dashboard.Store.
func (r *Repository) GetUserProfile(ctx context.Context, userID string) (dashboard.FitnessProfile, error) {
	var profile dashboard.FitnessProfile
	err := r.pool.QueryRow(ctx, `SELECT weekly_goal_workouts FROM users WHERE user_id=$1`, userID).Scan(&profile.WeeklyGoalWorkouts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dashboard.FitnessProfile{}, domain.ErrUserNotFound
		}
		return dashboard.FitnessProfile{}, err
	}
	return profile, nil
}

// AggregateActivityTotals implements dashboard.Store. Both bounds are inclusive.
func (r *Repository) AggregateActivityTotals(ctx context.Context, userID string, from, to time.Time) (dashboard.ActivityTotals, error) {
	const query = `SELECT COUNT(*), COALESCE(SUM(duration_min), 0), COALESCE(SUM(calories), 0)
        FROM activities WHERE user_id=$1 AND performed_at BETWEEN $2 AND $3`

	var totals dashboard.ActivityTotals
	if err := r.pool.QueryRow(ctx, query, userID, from, to).Scan(&totals.Count, &totals.SumDuration, &totals.SumCalories); err != nil {
		return dashboard.ActivityTotals{}, err
	}
	return totals, nil
}

// ListActivities implements dashboard.Store. Both bounds are inclusive.
func (r *Repository) ListActivities(ctx context.Context, userID string, from, to time.Time) ([]domain.ActivityRecord, error) {
	query := `SELECT ` + activityColumns + ` FROM activities
        WHERE user_id=$1 AND performed_at BETWEEN $2 AND $3 ORDER BY performed_at ASC`
	return r.queryActivities(ctx, query, userID, from, to)
}

// GetStreak implements dashboard.Store. It returns nil when the user has no streak row.
func (r *Repository) GetStreak(ctx context.Context, userID string) (*dashboard.StreakRecord, error) {
	const query = `SELECT current_streak, best_streak, last_activity_date FROM streaks WHERE user_id=$1`

	var record dashboard.StreakRecord
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&record.Current, &record.Best, &record.LastActivityDate); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// CountBadges implements dashboard.Store.
func (r *Repository) CountBadges(ctx context.Context, userID string) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM badges WHERE user_id=$1`, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// ListRecentActivities implements dashboard.Store.
func (r *Repository) ListRecentActivities(ctx context.Context, userID string, limit int) ([]domain.ActivityRecord, error) {
	query := `SELECT ` + activityColumns + ` FROM activities
        WHERE user_id=$1 ORDER BY performed_at DESC, activity_id DESC LIMIT $2`
	return r.queryActivities(ctx, query, userID, limit)
}

// UserUpdate carries the profile fields to write. Nil fields keep their
// stored value; a WeeklyGoal of 0 clears the goal.
type UserUpdate struct {
	Email      *string
	FullName   *string
	WeeklyGoal *int
}

// UpsertUser creates a user profile or applies update to an existing one.
func (r *Repository) UpsertUser(ctx context.Context, userID string, update UserUpdate) error {
	const stmt = `INSERT INTO users (user_id, email, full_name, weekly_goal_workouts)
        VALUES ($1, NULLIF($2::text, ''), NULLIF($3::text, ''), NULLIF($4::int, 0))
        ON CONFLICT (user_id) DO UPDATE SET
            email = CASE WHEN $2::text IS NULL THEN users.email ELSE EXCLUDED.email END,
            full_name = CASE WHEN $3::text IS NULL THEN users.full_name ELSE EXCLUDED.full_name END,
            weekly_goal_workouts = CASE WHEN $4::int IS NULL THEN users.weekly_goal_workouts ELSE EXCLUDED.weekly_goal_workouts END`
	_, err := r.pool.Exec(ctx, stmt, userID, update.Email, update.FullName, update.WeeklyGoal)
	return err
}
