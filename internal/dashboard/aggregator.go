// Package dashboard builds the per-user dashboard summary from activity,
// streak and badge reads.
package dashboard

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"example.com/dashboard/internal/domain"
	"example.com/dashboard/internal/observability"
)

const (
	// DefaultWeeklyGoal applies when the profile carries no positive weekly workout goal.
	DefaultWeeklyGoal = 3
	// DefaultDailyTarget is the step target used when no weekly goal is set.
	DefaultDailyTarget = 5000
	// StatisticsWindowDays is the length of the rolling statistics window.
	StatisticsWindowDays = 30
	// RecentActivityLimit caps the recent activity list.
	RecentActivityLimit = 3

	stepsPerWeeklyWorkout = 10000
	activeDayStepShare    = 0.65
	idleDayStepShare      = 0.35
)

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock overrides the wall clock used by Summary.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithLocation sets the location used for day and week boundaries.
func WithLocation(loc *time.Location) Option {
	return func(a *Aggregator) {
		if loc != nil {
			a.loc = loc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Aggregator) { a.logger = logger }
}

// Aggregator computes dashboard summaries. It holds no per-request state and
// is safe for concurrent use.
type Aggregator struct {
	store  Store
	now    func() time.Time
	loc    *time.Location
	logger *zap.Logger
}

// NewAggregator constructs an Aggregator reading from store.
func NewAggregator(store Store, opts ...Option) *Aggregator {
	a := &Aggregator{
		store:  store,
		now:    time.Now,
		loc:    time.UTC,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Summary builds the dashboard for userID as of the aggregator's clock.
func (a *Aggregator) Summary(ctx context.Context, userID string) (*Summary, error) {
	return a.SummaryAt(ctx, userID, a.now())
}

// SummaryAt builds the dashboard for userID with now as the reference instant.
func (a *Aggregator) SummaryAt(ctx context.Context, userID string, now time.Time) (*Summary, error) {
	started := time.Now()
	summary, err := a.build(ctx, userID, now.In(a.loc))
	observability.ObserveDashboardBuild(outcome(err), time.Since(started))
	if err != nil {
		return nil, err
	}
	a.logger.Debug("dashboard summary built",
		zap.String("user_id", userID),
		zap.Int("workouts_this_week", summary.WeeklyProgress.Current),
		zap.Duration("elapsed", time.Since(started)),
	)
	return summary, nil
}

func (a *Aggregator) build(ctx context.Context, userID string, now time.Time) (*Summary, error) {
	profile, err := a.store.GetUserProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, &DataAccessError{Op: "get user profile", Err: err}
	}

	week := WeekOf(now)
	from, to := RollingWindow(now, StatisticsWindowDays)

	var (
		totals ActivityTotals
		weekly []domain.ActivityRecord
		streak *StreakRecord
		badges int
		recent []domain.ActivityRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		totals, err = a.store.AggregateActivityTotals(gctx, userID, from, to)
		return wrap("aggregate activity totals", err)
	})
	g.Go(func() error {
		var err error
		weekly, err = a.store.ListActivities(gctx, userID, week.Start, week.End)
		return wrap("list weekly activities", err)
	})
	g.Go(func() error {
		var err error
		streak, err = a.store.GetStreak(gctx, userID)
		return wrap("get streak", err)
	})
	g.Go(func() error {
		var err error
		badges, err = a.store.CountBadges(gctx, userID)
		return wrap("count badges", err)
	})
	g.Go(func() error {
		var err error
		recent, err = a.store.ListRecentActivities(gctx, userID, RecentActivityLimit)
		return wrap("list recent activities", err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return compute(now, week, profile, totals, weekly, streak, badges, recent), nil
}

// Recent returns up to limit of the user's activities, newest first, with
// the same not-found and data-access semantics as Summary.
func (a *Aggregator) Recent(ctx context.Context, userID string, limit int) ([]domain.ActivityRecord, error) {
	if _, err := a.store.GetUserProfile(ctx, userID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, &DataAccessError{Op: "get user profile", Err: err}
	}
	if limit <= 0 {
		return []domain.ActivityRecord{}, nil
	}
	recent, err := a.store.ListRecentActivities(ctx, userID, limit)
	if err != nil {
		return nil, wrap("list recent activities", err)
	}
	return latest(recent, limit), nil
}

// Now reports the aggregator's current time in its configured location.
func (a *Aggregator) Now() time.Time {
	return a.now().In(a.loc)
}

// compute assembles a Summary from already-fetched inputs.
func compute(now time.Time, week Week, profile FitnessProfile, totals ActivityTotals, weekly []domain.ActivityRecord, streak *StreakRecord, badges int, recent []domain.ActivityRecord) *Summary {
	weeklyTarget, goalSet := weeklyGoalTarget(profile)

	days := make(map[int]struct{}, 7)
	workouts := 0
	for _, record := range weekly {
		date := record.Date.In(now.Location())
		if !week.Contains(date) {
			continue
		}
		workouts++
		days[int(date.Weekday())] = struct{}{}
	}
	activeDays := make([]int, 0, len(days))
	for day := range days {
		activeDays = append(activeDays, day)
	}
	sort.Ints(activeDays)

	dailyTarget := DefaultDailyTarget
	if goalSet {
		dailyTarget = roundInt(float64(weeklyTarget) / 7 * stepsPerWeeklyWorkout)
	}
	share := idleDayStepShare
	if _, ok := days[int(now.Weekday())]; ok {
		share = activeDayStepShare
	}
	currentSteps := roundInt(float64(dailyTarget) * share)

	weeklyPercentage := percent(workouts, weeklyTarget)
	if weeklyPercentage > 100 {
		weeklyPercentage = 100
	}

	stats := Statistics{
		TotalWorkouts: totals.Count,
		TotalMinutes:  totals.SumDuration,
		TotalCalories: totals.SumCalories,
		BadgesCount:   badges,
	}
	if streak != nil {
		stats.CurrentStreak = streak.Current
		stats.BestStreak = streak.Best
	}

	return &Summary{
		DailyGoal: DailyGoal{
			Target:      dailyTarget,
			Current:     currentSteps,
			Progress:    percent(currentSteps, dailyTarget),
			Placeholder: true,
		},
		WeeklyProgress: WeeklyProgress{
			Target:     weeklyTarget,
			Current:    workouts,
			Percentage: weeklyPercentage,
			ActiveDays: activeDays,
		},
		Statistics:       stats,
		RecentActivities: latest(recent, RecentActivityLimit),
	}
}

func weeklyGoalTarget(profile FitnessProfile) (int, bool) {
	if profile.WeeklyGoalWorkouts != nil && *profile.WeeklyGoalWorkouts > 0 {
		return *profile.WeeklyGoalWorkouts, true
	}
	return DefaultWeeklyGoal, false
}

func latest(records []domain.ActivityRecord, limit int) []domain.ActivityRecord {
	out := make([]domain.ActivityRecord, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if limit < 0 {
		limit = 0
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func percent(n, d int) int {
	if d <= 0 {
		return 0
	}
	return roundInt(float64(n) / float64(d) * 100)
}

func roundInt(v float64) int {
	return int(math.Round(v))
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &DataAccessError{Op: op, Err: err}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrUserNotFound):
		return "not_found"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}
