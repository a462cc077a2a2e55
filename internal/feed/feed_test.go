package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/dashboard/internal/domain"
)

func TestRelativeTime(t *testing.T) {
	now := time.Date(2025, time.October, 29, 15, 0, 0, 0, time.UTC)
	cases := map[time.Duration]string{
		10 * time.Minute: "Just now",
		-time.Hour:       "Just now",
		time.Hour:        "1 hour ago",
		5 * time.Hour:    "5 hours ago",
		30 * time.Hour:   "Yesterday",
		72 * time.Hour:   "3 days ago",
	}
	for ago, want := range cases {
		require.Equal(t, want, RelativeTime(now.Add(-ago), now), "ago=%s", ago)
	}
}

func TestBuild(t *testing.T) {
	now := time.Date(2025, time.October, 29, 15, 0, 0, 0, time.UTC)
	distance := 5.2
	records := []domain.ActivityRecord{
		{ID: "a", Type: domain.ActivityRunning, Date: now.Add(-2 * time.Hour), DurationMin: 30, Calories: 420, DistanceKm: &distance},
		{ID: "b", Type: domain.ActivityYoga, Date: now.Add(-26 * time.Hour), DurationMin: 45, Calories: 120},
		{ID: "c", Type: domain.ActivityType("parkour"), Date: now.Add(-5 * 24 * time.Hour), DurationMin: 15},
	}

	items := Build(records, now)
	require.Len(t, items, 3)

	require.Equal(t, "Morning Run", items[0].Label)
	require.Equal(t, "5.2 km", items[0].Stats)
	require.True(t, items[0].Highlight)
	require.Equal(t, "2 hours ago", items[0].When)

	require.Equal(t, "Yoga Session", items[1].Label)
	require.Equal(t, "green", items[1].Color)
	require.Equal(t, "45 min", items[1].Stats)
	require.False(t, items[1].Highlight)
	require.Equal(t, "Yesterday", items[1].When)

	require.Equal(t, "Workout", items[2].Label)
	require.Equal(t, "red", items[2].Color)
	require.Equal(t, "5 days ago", items[2].When)
}
