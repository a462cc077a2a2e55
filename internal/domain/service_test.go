package domain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) FindByIdempotency(ctx context.Context, userID, key string) (*ActivityRecord, error) {
	args := m.Called(ctx, userID, key)
	record, _ := args.Get(0).(*ActivityRecord)
	return record, args.Error(1)
}

func (m *mockRepo) Create(ctx context.Context, record ActivityRecord, key string) error {
	return m.Called(ctx, record, key).Error(0)
}

func (m *mockRepo) Get(ctx context.Context, userID, activityID string) (*ActivityRecord, error) {
	args := m.Called(ctx, userID, activityID)
	record, _ := args.Get(0).(*ActivityRecord)
	return record, args.Error(1)
}

func (m *mockRepo) ListByUser(ctx context.Context, userID string, cursor *Cursor, limit int) ([]ActivityRecord, *Cursor, error) {
	args := m.Called(ctx, userID, cursor, limit)
	records, _ := args.Get(0).([]ActivityRecord)
	next, _ := args.Get(1).(*Cursor)
	return records, next, args.Error(2)
}

var performed = time.Date(2025, 10, 28, 6, 30, 0, 0, time.FixedZone("EDT", -4*3600))

func TestLogActivityNormalisesAndStores(t *testing.T) {
	repo := &mockRepo{}
	repo.On("FindByIdempotency", mock.Anything, "u1", "k1").Return(nil, nil)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(r ActivityRecord) bool {
		return r.UserID == "u1" && r.Type == ActivitySwimming && r.Date.Location() == time.UTC && r.ID != ""
	}), "k1").Return(nil)

	svc := NewService(repo)
	record, replay, err := svc.LogActivity(context.Background(), LogActivityInput{
		UserID: "u1", Type: " Swimming ", Date: performed, DurationMin: 40, Calories: 300, IdempotencyKey: "k1",
	})
	require.NoError(t, err)
	assert.False(t, replay)
	assert.True(t, record.Date.Equal(performed))
	assert.False(t, record.CreatedAt.IsZero())
	repo.AssertExpectations(t)
}

func TestLogActivityReplaysIdempotencyKey(t *testing.T) {
	existing := &ActivityRecord{ID: "a1", UserID: "u1", Type: ActivityYoga}
	repo := &mockRepo{}
	repo.On("FindByIdempotency", mock.Anything, "u1", "k1").Return(existing, nil)

	record, replay, err := NewService(repo).LogActivity(context.Background(), LogActivityInput{UserID: "u1", IdempotencyKey: "k1"})
	require.NoError(t, err)
	assert.True(t, replay)
	assert.Same(t, existing, record)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestLogActivityReplaysWhenConcurrentCreateWinsKey(t *testing.T) {
	winner := &ActivityRecord{ID: "a1", UserID: "u1", Type: ActivityWalking}
	repo := &mockRepo{}
	repo.On("FindByIdempotency", mock.Anything, "u1", "k1").Return(nil, nil).Once()
	repo.On("Create", mock.Anything, mock.Anything, "k1").Return(ErrDuplicateIdempotencyKey)
	repo.On("FindByIdempotency", mock.Anything, "u1", "k1").Return(winner, nil).Once()

	record, replay, err := NewService(repo).LogActivity(context.Background(), LogActivityInput{
		UserID: "u1", Type: "walking", Date: performed, DurationMin: 20, IdempotencyKey: "k1",
	})
	require.NoError(t, err)
	assert.True(t, replay)
	assert.Same(t, winner, record)
	repo.AssertExpectations(t)
}

func TestLogActivityRejectsInvalidInput(t *testing.T) {
	distance := -1.0
	cases := map[string]LogActivityInput{
		"type":     {UserID: "u1", Type: "parkour", Date: performed, DurationMin: 10},
		"duration": {UserID: "u1", Type: "yoga", Date: performed},
		"calories": {UserID: "u1", Type: "yoga", Date: performed, DurationMin: 10, Calories: -1},
		"distance": {UserID: "u1", Type: "running", Date: performed, DurationMin: 10, DistanceKm: &distance},
		"date":     {UserID: "u1", Type: "yoga", DurationMin: 10},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			repo := &mockRepo{}
			_, _, err := NewService(repo).LogActivity(context.Background(), input)
			var validation *ValidationError
			require.ErrorAs(t, err, &validation)
			repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestLogActivityPropagatesStoreErrors(t *testing.T) {
	repo := &mockRepo{}
	repo.On("Create", mock.Anything, mock.Anything, "").Return(ErrUserNotFound)

	_, _, err := NewService(repo).LogActivity(context.Background(), LogActivityInput{UserID: "ghost", Type: "walking", Date: performed, DurationMin: 15})
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestGetActivityMapsMissingRecord(t *testing.T) {
	repo := &mockRepo{}
	repo.On("Get", mock.Anything, "u1", "nope").Return(nil, nil)
	repo.On("Get", mock.Anything, "u1", "broken").Return(nil, errors.New("timeout"))

	svc := NewService(repo)
	_, err := svc.GetActivity(context.Background(), "u1", "nope")
	require.ErrorIs(t, err, ErrActivityNotFound)

	_, err = svc.GetActivity(context.Background(), "u1", "broken")
	require.EqualError(t, err, "timeout")
}

func TestParseActivityType(t *testing.T) {
	got, err := ParseActivityType("WeightLifting")
	require.NoError(t, err)
	require.Equal(t, ActivityWeightlifting, got)

	_, err = ParseActivityType("")
	require.Error(t, err)
}
