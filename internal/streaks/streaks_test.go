package streaks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2025, time.October, d, 0, 0, 0, 0, time.UTC)
}

func TestAdvance(t *testing.T) {
	last := day(10)
	base := &State{Current: 3, Best: 5, LastActivityDate: &last}

	cases := []struct {
		name        string
		prev        *State
		day         time.Time
		wantCurrent int
		wantBest    int
		wantLast    time.Time
	}{
		{"first activity", nil, day(10), 1, 1, day(10)},
		{"same day", base, day(10), 3, 5, day(10)},
		{"next day", base, day(11), 4, 5, day(11)},
		{"gap resets", base, day(13), 1, 5, day(13)},
		{"backfill ignored", base, day(8), 3, 5, day(10)},
		{"existing best kept after reset row", &State{Best: 4}, day(1), 1, 4, day(1)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next := Advance(tc.prev, tc.day)
			require.Equal(t, tc.wantCurrent, next.Current)
			require.Equal(t, tc.wantBest, next.Best)
			require.NotNil(t, next.LastActivityDate)
			require.Equal(t, tc.wantLast, *next.LastActivityDate)
		})
	}
}

func TestAdvanceRaisesBest(t *testing.T) {
	last := day(10)
	next := Advance(&State{Current: 5, Best: 5, LastActivityDate: &last}, day(11))
	require.Equal(t, 6, next.Current)
	require.Equal(t, 6, next.Best)
}

func TestAdvanceAcrossMonthBoundary(t *testing.T) {
	last := time.Date(2025, time.October, 31, 0, 0, 0, 0, time.UTC)
	next := Advance(&State{Current: 2, Best: 2, LastActivityDate: &last}, time.Date(2025, time.November, 1, 0, 0, 0, 0, time.UTC))
	require.Equal(t, 3, next.Current)
}

func TestBadgesFor(t *testing.T) {
	require.Equal(t, []string{BadgeFirstWorkout}, BadgesFor(State{Current: 1}, true))
	require.Empty(t, BadgesFor(State{Current: 2}, false))
	require.Equal(t, []string{BadgeStreak3, BadgeStreak7}, BadgesFor(State{Current: 7}, false))
	require.Equal(t, []string{BadgeStreak3, BadgeStreak7, BadgeStreak30}, BadgesFor(State{Current: 31}, false))
}

func TestCalendarDayUsesLocation(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	at := time.Date(2025, time.October, 10, 20, 0, 0, 0, time.UTC)
	require.Equal(t, day(10), CalendarDay(at, time.UTC))
	require.Equal(t, day(11), CalendarDay(at, tokyo))
}

func TestProjectorSkipsRedeliveredEvents(t *testing.T) {
	store := &recordingStore{seen: map[string]bool{}}
	projector := NewProjector(store, time.UTC, nil)

	evt := Event{ActivityID: "act-1", UserID: "user-1", Date: time.Date(2025, time.October, 10, 8, 0, 0, 0, time.UTC)}
	applied, err := projector.Apply(context.Background(), evt)
	require.NoError(t, err)
	require.True(t, applied)
	require.Equal(t, 1, store.state.Current)
	require.Equal(t, []string{BadgeFirstWorkout}, store.badges)

	applied, err = projector.Apply(context.Background(), evt)
	require.NoError(t, err)
	require.False(t, applied)

	evt.ActivityID = "act-2"
	evt.Date = evt.Date.Add(24 * time.Hour)
	applied, err = projector.Apply(context.Background(), evt)
	require.NoError(t, err)
	require.True(t, applied)
	require.Equal(t, 2, store.state.Current)
}

type recordingStore struct {
	seen   map[string]bool
	state  *State
	badges []string
}

func (s *recordingStore) Record(_ context.Context, evt Event, fn func(prev *State) Transition) (bool, error) {
	if s.seen[evt.ActivityID] {
		return false, nil
	}
	s.seen[evt.ActivityID] = true
	tr := fn(s.state)
	s.state = &tr.Next
	s.badges = tr.Badges
	return true, nil
}
