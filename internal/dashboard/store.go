package dashboard

import (
	"context"
	"time"

	"example.com/dashboard/internal/domain"
)

// Store is the read side the aggregator depends on. Implementations must
// return domain.ErrUserNotFound from GetUserProfile for unknown users and a
// nil *StreakRecord when the user has no streak yet.
type Store interface {
	GetUserProfile(ctx context.Context, userID string) (FitnessProfile, error)
	AggregateActivityTotals(ctx context.Context, userID string, from, to time.Time) (ActivityTotals, error)
	ListActivities(ctx context.Context, userID string, from, to time.Time) ([]domain.ActivityRecord, error)
	GetStreak(ctx context.Context, userID string) (*StreakRecord, error)
	CountBadges(ctx context.Context, userID string) (int, error)
	ListRecentActivities(ctx context.Context, userID string, limit int) ([]domain.ActivityRecord, error)
}
