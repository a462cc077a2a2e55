package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"example.com/dashboard/internal/domain"
	"example.com/dashboard/internal/events"
	"example.com/dashboard/internal/streaks"
)

// Projector folds activity events into streak state.
type Projector interface {
	Apply(ctx context.Context, evt streaks.Event) (bool, error)
}

// StreakHandler feeds activity.logged events to the streak projection.
type StreakHandler struct {
	projector Projector
	logger    *zap.Logger
}

// NewStreakHandler constructs a StreakHandler.
func NewStreakHandler(projector Projector, logger *zap.Logger) *StreakHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreakHandler{projector: projector, logger: logger}
}

// Handle decodes msg and applies it. Other event types are acknowledged
// without work, as are events for users that no longer exist.
func (h *StreakHandler) Handle(ctx context.Context, msg Message) error {
	if msg.EventType != events.EventActivityLogged {
		return nil
	}

	var payload events.ActivityLogged
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("decode %s: %w", msg.EventType, err)
	}
	if payload.ActivityID == "" || payload.UserID == "" || payload.PerformedAt.IsZero() {
		h.logger.Warn("dropping incomplete activity event", zap.Int64("offset", msg.Offset))
		return nil
	}

	applied, err := h.projector.Apply(ctx, streaks.Event{
		ActivityID: payload.ActivityID,
		UserID:     payload.UserID,
		Type:       domain.ActivityType(payload.ActivityType),
		Date:       payload.PerformedAt,
	})
	if errors.Is(err, domain.ErrUserNotFound) {
		h.logger.Warn("dropping activity event for unknown user", zap.String("user_id", payload.UserID))
		return nil
	}
	if err != nil {
		return err
	}
	if !applied {
		h.logger.Debug("activity already projected", zap.String("activity_id", payload.ActivityID))
	}
	return nil
}
