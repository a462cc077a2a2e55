// Package streaks maintains per-user workout streaks and milestone badges
// from logged activities.
package streaks

import (
	"context"
	"time"

	"go.uber.org/zap"

	"example.com/dashboard/internal/domain"
	"example.com/dashboard/internal/observability"
)

// Badge codes awarded by the projection.
const (
	BadgeFirstWorkout = "first-workout"
	BadgeStreak3      = "streak-3"
	BadgeStreak7      = "streak-7"
	BadgeStreak30     = "streak-30"
)

var streakBadges = []struct {
	days int
	code string
}{
	{3, BadgeStreak3},
	{7, BadgeStreak7},
	{30, BadgeStreak30},
}

// Event is the slice of a logged activity the projection needs.
type Event struct {
	ActivityID string
	UserID     string
	Type       domain.ActivityType
	Date       time.Time
}

// State is a user's streak. LastActivityDate is a calendar day stored as midnight UTC.
type State struct {
	Current          int
	Best             int
	LastActivityDate *time.Time
}

// Transition is the outcome of applying one event to a State.
type Transition struct {
	Day    time.Time
	Next   State
	Badges []string
}

// Store persists streak transitions atomically. Record must skip events it
// has already seen (keyed by user and activity id) and report applied=false.
// prev is nil when the user has no streak yet.
type Store interface {
	Record(ctx context.Context, evt Event, fn func(prev *State) Transition) (applied bool, err error)
}

// Projector applies activity events to the streak store.
type Projector struct {
	store  Store
	loc    *time.Location
	logger *zap.Logger
}

// NewProjector constructs a Projector evaluating calendar days in loc.
func NewProjector(store Store, loc *time.Location, logger *zap.Logger) *Projector {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Projector{store: store, loc: loc, logger: logger}
}

// Apply folds evt into the user's streak. Redelivered events are ignored.
func (p *Projector) Apply(ctx context.Context, evt Event) (bool, error) {
	day := CalendarDay(evt.Date, p.loc)
	applied, err := p.store.Record(ctx, evt, func(prev *State) Transition {
		next := Advance(prev, day)
		return Transition{Day: day, Next: next, Badges: BadgesFor(next, prev == nil)}
	})
	if err != nil {
		return false, err
	}
	if applied {
		observability.RecordStreakUpdated(time.Now())
		p.logger.Debug("streak updated", zap.String("user_id", evt.UserID), zap.String("activity_id", evt.ActivityID))
	}
	return applied, nil
}

// CalendarDay maps t to its calendar date in loc, expressed as midnight UTC.
func CalendarDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Advance returns the streak after an activity on day.
func Advance(prev *State, day time.Time) State {
	if prev == nil || prev.LastActivityDate == nil {
		best := 1
		if prev != nil && prev.Best > best {
			best = prev.Best
		}
		return State{Current: 1, Best: best, LastActivityDate: &day}
	}

	last := *prev.LastActivityDate
	next := *prev
	switch {
	case !day.After(last):
		return next
	case day.Equal(last.AddDate(0, 0, 1)):
		next.Current = prev.Current + 1
	default:
		next.Current = 1
	}
	next.LastActivityDate = &day
	if next.Current > next.Best {
		next.Best = next.Current
	}
	return next
}

// BadgesFor lists the badges a user holds after reaching state. Awarding is
// idempotent downstream so already-held badges may be repeated.
func BadgesFor(state State, first bool) []string {
	var out []string
	if first {
		out = append(out, BadgeFirstWorkout)
	}
	for _, b := range streakBadges {
		if state.Current >= b.days {
			out = append(out, b.code)
		}
	}
	return out
}
