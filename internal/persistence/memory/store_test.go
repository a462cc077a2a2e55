package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/dashboard/internal/domain"
	"example.com/dashboard/internal/streaks"
)

var base = time.Date(2025, 10, 29, 12, 0, 0, 0, time.UTC)

func record(id string, offset time.Duration) domain.ActivityRecord {
	return domain.ActivityRecord{ID: id, UserID: "u1", Type: domain.ActivityRunning, Date: base.Add(offset), DurationMin: 10, Calories: 50}
}

func TestCreateRequiresKnownUserAndRunsHook(t *testing.T) {
	var hooked []string
	store := NewStore(WithCreateHook(func(r domain.ActivityRecord) { hooked = append(hooked, r.ID) }))

	require.ErrorIs(t, store.Create(context.Background(), record("a", 0), ""), domain.ErrUserNotFound)

	store.PutUser("u1", nil)
	require.NoError(t, store.Create(context.Background(), record("a", 0), "key"))
	require.Equal(t, []string{"a"}, hooked)

	found, err := store.FindByIdempotency(context.Background(), "u1", "key")
	require.NoError(t, err)
	require.Equal(t, "a", found.ID)

	missing, err := store.FindByIdempotency(context.Background(), "u2", "key")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestCreateRejectsReusedIdempotencyKey(t *testing.T) {
	store := NewStore()
	store.PutUser("u1", nil)

	require.NoError(t, store.Create(context.Background(), record("a", 0), "key"))
	require.ErrorIs(t, store.Create(context.Background(), record("b", time.Hour), "key"), domain.ErrDuplicateIdempotencyKey)
	require.NoError(t, store.Create(context.Background(), record("c", 2*time.Hour), ""))
	require.NoError(t, store.Create(context.Background(), record("d", 3*time.Hour), ""))

	records, _, err := store.ListByUser(context.Background(), "u1", nil, 10)
	require.NoError(t, err)
	require.Len(t, records, 3)
}

func TestListByUserBreaksTiesByID(t *testing.T) {
	store := NewStore()
	store.PutUser("u1", nil)
	for _, r := range []domain.ActivityRecord{record("b", 0), record("a", 0), record("c", -time.Hour)} {
		require.NoError(t, store.Create(context.Background(), r, ""))
	}

	page, next, err := store.ListByUser(context.Background(), "u1", nil, 2)
	require.NoError(t, err)
	require.Equal(t, "b", page[0].ID)
	require.Equal(t, "a", page[1].ID)
	require.NotNil(t, next)

	page, next, err = store.ListByUser(context.Background(), "u1", next, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, "c", page[0].ID)
	require.Nil(t, next)
}

func TestWindowReadsAreInclusive(t *testing.T) {
	store := NewStore()
	store.PutUser("u1", nil)
	for _, r := range []domain.ActivityRecord{record("from", -time.Hour), record("to", 0), record("after", time.Second)} {
		require.NoError(t, store.Create(context.Background(), r, ""))
	}

	totals, err := store.AggregateActivityTotals(context.Background(), "u1", base.Add(-time.Hour), base)
	require.NoError(t, err)
	require.Equal(t, 2, totals.Count)
	require.Equal(t, 20, totals.SumDuration)
	require.Equal(t, 100, totals.SumCalories)
}

func TestRecordSkipsSeenActivities(t *testing.T) {
	store := NewStore()
	store.PutUser("u1", nil)
	evt := streaks.Event{ActivityID: "a", UserID: "u1", Date: base}
	calls := 0
	fn := func(prev *streaks.State) streaks.Transition {
		calls++
		last := streaks.CalendarDay(base, time.UTC)
		return streaks.Transition{Day: last, Next: streaks.State{Current: 1, Best: 1, LastActivityDate: &last}, Badges: []string{streaks.BadgeFirstWorkout}}
	}

	applied, err := store.Record(context.Background(), evt, fn)
	require.NoError(t, err)
	require.True(t, applied)
	applied, err = store.Record(context.Background(), evt, fn)
	require.NoError(t, err)
	require.False(t, applied)
	require.Equal(t, 1, calls)

	count, err := store.CountBadges(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, 1, count)

	streak, err := store.GetStreak(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, 1, streak.Current)

	none, err := store.GetStreak(context.Background(), "u2")
	require.NoError(t, err)
	require.Nil(t, none)
}
