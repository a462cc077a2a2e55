// Package domain defines the activity records behind the dashboard and the
// workflow that logs them.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrUserNotFound is returned when a user identifier does not resolve to a stored user.
	ErrUserNotFound = errors.New("user not found")
	// ErrActivityNotFound is returned when an activity cannot be located.
	ErrActivityNotFound = errors.New("activity not found")
	// ErrDuplicateIdempotencyKey is returned by Create when another activity already holds the key.
	ErrDuplicateIdempotencyKey = errors.New("idempotency key already used")
)

// ActivityRepository captures persistence operations for logged activities.
type ActivityRepository interface {
	FindByIdempotency(ctx context.Context, userID, idempotencyKey string) (*ActivityRecord, error)
	Create(ctx context.Context, record ActivityRecord, idempotencyKey string) error
	Get(ctx context.Context, userID, activityID string) (*ActivityRecord, error)
	ListByUser(ctx context.Context, userID string, cursor *Cursor, limit int) ([]ActivityRecord, *Cursor, error)
}

// Cursor models the pagination token.
type Cursor struct {
	Date time.Time
	ID   string
}

// Service orchestrates activity logging.
type Service struct {
	repo ActivityRepository
	now  func() time.Time
}

// NewService constructs a Service.
func NewService(repo ActivityRepository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// LogActivityInput captures the payload from the API layer.
type LogActivityInput struct {
	UserID         string
	Type           string
	Date           time.Time
	DurationMin    int
	Calories       int
	DistanceKm     *float64
	IdempotencyKey string
}

// LogActivity validates and stores a workout. The boolean reports an idempotent replay.
func (s *Service) LogActivity(ctx context.Context, input LogActivityInput) (*ActivityRecord, bool, error) {
	if input.IdempotencyKey != "" {
		existing, err := s.repo.FindByIdempotency(ctx, input.UserID, input.IdempotencyKey)
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			return existing, true, nil
		}
	}

	activityType, err := ParseActivityType(input.Type)
	if err != nil {
		return nil, false, &ValidationError{Reason: err.Error()}
	}

	record := ActivityRecord{
		ID:          uuid.NewString(),
		UserID:      input.UserID,
		Type:        activityType,
		Date:        input.Date.UTC(),
		DurationMin: input.DurationMin,
		Calories:    input.Calories,
		DistanceKm:  input.DistanceKm,
		CreatedAt:   s.now().UTC(),
	}
	if err := record.Validate(); err != nil {
		return nil, false, &ValidationError{Reason: err.Error()}
	}

	if err := s.repo.Create(ctx, record, input.IdempotencyKey); err != nil {
		if !errors.Is(err, ErrDuplicateIdempotencyKey) {
			return nil, false, err
		}
		// A concurrent request with the same key committed first.
		existing, findErr := s.repo.FindByIdempotency(ctx, input.UserID, input.IdempotencyKey)
		if findErr != nil {
			return nil, false, findErr
		}
		if existing == nil {
			return nil, false, err
		}
		return existing, true, nil
	}
	return &record, false, nil
}

// GetActivity fetches one activity owned by userID.
func (s *Service) GetActivity(ctx context.Context, userID, activityID string) (*ActivityRecord, error) {
	record, err := s.repo.Get(ctx, userID, activityID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrActivityNotFound
	}
	return record, nil
}

// ListActivities fetches a user's activities newest first with cursor pagination.
func (s *Service) ListActivities(ctx context.Context, userID string, cursor *Cursor, limit int) ([]ActivityRecord, *Cursor, error) {
	return s.repo.ListByUser(ctx, userID, cursor, limit)
}

// ValidationError reports input rejected before it reaches storage.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid activity: " + e.Reason
}
