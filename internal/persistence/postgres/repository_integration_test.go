//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"example.com/dashboard/internal/dashboard"
	"example.com/dashboard/internal/domain"
	"example.com/dashboard/internal/streaks"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	ctx := context.Background()

	pg, err := postgrescontainer.Run(ctx, "postgres:16-alpine",
		postgrescontainer.WithDatabase("fitness"),
		postgrescontainer.WithUsername("platform"),
		postgrescontainer.WithPassword("platform"),
		postgrescontainer.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, waitForDatabase(ctx, connStr))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	applied, err := Migrate(ctx, pool)
	require.NoError(t, err)
	require.NotEmpty(t, applied)

	return NewRepository(pool)
}

func TestRepositoryRoundTripsActivitiesAndOutbox(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	goal := 4
	userID := uuid.NewString()
	require.NoError(t, repo.UpsertUser(ctx, userID, UserUpdate{Email: ptr("ada@example.com"), FullName: ptr("Ada"), WeeklyGoal: &goal}))

	distance := 5.2
	performed := time.Date(2025, 10, 27, 7, 30, 0, 0, time.UTC)
	record := domain.ActivityRecord{
		ID:          uuid.NewString(),
		UserID:      userID,
		Type:        domain.ActivityRunning,
		Date:        performed,
		DurationMin: 32,
		Calories:    410,
		DistanceKm:  &distance,
		CreatedAt:   performed,
	}
	require.NoError(t, repo.Create(ctx, record, "key-1"))

	stored, err := repo.Get(ctx, userID, record.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, record.Type, stored.Type)
	require.InDelta(t, distance, *stored.DistanceKm, 1e-9)

	other, err := repo.Get(ctx, uuid.NewString(), record.ID)
	require.NoError(t, err)
	require.Nil(t, other)

	replay, err := repo.FindByIdempotency(ctx, userID, "key-1")
	require.NoError(t, err)
	require.NotNil(t, replay)
	require.Equal(t, record.ID, replay.ID)

	var pending int
	require.NoError(t, repo.pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE aggregate_id=$1 AND published_at IS NULL`, record.ID).Scan(&pending))
	require.Equal(t, 1, pending)

	profile, err := repo.GetUserProfile(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, 4, *profile.WeeklyGoalWorkouts)

	totals, err := repo.AggregateActivityTotals(ctx, userID, performed.Add(-time.Hour), performed)
	require.NoError(t, err)
	require.Equal(t, dashboard.ActivityTotals{Count: 1, SumDuration: 32, SumCalories: 410}, totals)

	recent, err := repo.ListRecentActivities(ctx, userID, 3)
	require.NoError(t, err)
	require.Len(t, recent, 1)
}

func TestRepositoryRejectsUnknownUser(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	_, err := repo.GetUserProfile(ctx, "ghost")
	require.ErrorIs(t, err, domain.ErrUserNotFound)

	err = repo.Create(ctx, domain.ActivityRecord{
		ID:          uuid.NewString(),
		UserID:      "ghost",
		Type:        domain.ActivityYoga,
		Date:        time.Now().UTC(),
		DurationMin: 20,
		CreatedAt:   time.Now().UTC(),
	}, "")
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestRecordAppliesEachActivityOnce(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	userID := uuid.NewString()
	require.NoError(t, repo.UpsertUser(ctx, userID, UserUpdate{}))

	projector := streaks.NewProjector(repo, time.UTC, nil)
	day := time.Date(2025, 10, 20, 18, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		applied, err := projector.Apply(ctx, streaks.Event{
			ActivityID: uuid.NewString(),
			UserID:     userID,
			Type:       domain.ActivityWalking,
			Date:       day.AddDate(0, 0, i),
		})
		require.NoError(t, err)
		require.True(t, applied)
	}

	dup := streaks.Event{ActivityID: "dup", UserID: userID, Type: domain.ActivityWalking, Date: day.AddDate(0, 0, 3)}
	applied, err := projector.Apply(ctx, dup)
	require.NoError(t, err)
	require.True(t, applied)
	applied, err = projector.Apply(ctx, dup)
	require.NoError(t, err)
	require.False(t, applied)

	streak, err := repo.GetStreak(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, streak)
	require.Equal(t, 4, streak.Current)
	require.Equal(t, 4, streak.Best)
	require.Equal(t, time.Date(2025, 10, 23, 0, 0, 0, 0, time.UTC), streak.LastActivityDate.UTC())

	badges, err := repo.ListBadges(ctx, userID)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{streaks.BadgeFirstWorkout, streaks.BadgeStreak3}, badges)

	count, err := repo.CountBadges(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestCreateReportsDuplicateIdempotencyKey(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	userID := uuid.NewString()
	require.NoError(t, repo.UpsertUser(ctx, userID, UserUpdate{}))

	newRecord := func() domain.ActivityRecord {
		return domain.ActivityRecord{
			ID:          uuid.NewString(),
			UserID:      userID,
			Type:        domain.ActivityRunning,
			Date:        time.Date(2025, 10, 27, 7, 0, 0, 0, time.UTC),
			DurationMin: 25,
			CreatedAt:   time.Now().UTC(),
		}
	}
	first := newRecord()
	require.NoError(t, repo.Create(ctx, first, "same-key"))
	require.ErrorIs(t, repo.Create(ctx, newRecord(), "same-key"), domain.ErrDuplicateIdempotencyKey)

	svc := domain.NewService(repo)
	replayed, replay, err := svc.LogActivity(ctx, domain.LogActivityInput{
		UserID: userID, Type: "running", Date: first.Date, DurationMin: 25, IdempotencyKey: "same-key",
	})
	require.NoError(t, err)
	require.True(t, replay)
	require.Equal(t, first.ID, replayed.ID)

	var outboxRows int
	require.NoError(t, repo.pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox`).Scan(&outboxRows))
	require.Equal(t, 1, outboxRows)
}

func TestUpsertUserKeepsFieldsNotSupplied(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	goal := 5
	require.NoError(t, repo.UpsertUser(ctx, "u1", UserUpdate{Email: ptr("ada@example.com"), FullName: ptr("Ada"), WeeklyGoal: &goal}))

	// Only the name changes.
	require.NoError(t, repo.UpsertUser(ctx, "u1", UserUpdate{FullName: ptr("Ada L.")}))
	profile, err := repo.GetUserProfile(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, profile.WeeklyGoalWorkouts)
	require.Equal(t, 5, *profile.WeeklyGoalWorkouts)

	var email, name string
	require.NoError(t, repo.pool.QueryRow(ctx, `SELECT email, full_name FROM users WHERE user_id='u1'`).Scan(&email, &name))
	require.Equal(t, "ada@example.com", email)
	require.Equal(t, "Ada L.", name)

	zero := 0
	require.NoError(t, repo.UpsertUser(ctx, "u1", UserUpdate{WeeklyGoal: &zero}))
	profile, err = repo.GetUserProfile(ctx, "u1")
	require.NoError(t, err)
	require.Nil(t, profile.WeeklyGoalWorkouts)
}

func ptr(s string) *string { return &s }

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
