// Package postgres implements activity, dashboard and streak persistence on
// top of pgx.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/dashboard/internal/domain"
	"example.com/dashboard/internal/events"
	"example.com/dashboard/internal/observability"
)

const (
	foreignKeyViolation = "23503"
	uniqueViolation     = "23505"

	idempotencyIndex = "activities_idempotency_idx"
)

const activityColumns = `activity_id, user_id, activity_type, performed_at, duration_min, calories, distance_km, created_at`

// Repository provides Postgres-backed persistence for activities and outbox events.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanActivity(row rowScanner) (domain.ActivityRecord, error) {
	var (
		record       domain.ActivityRecord
		activityType string
	)
	err := row.Scan(&record.ID, &record.UserID, &activityType, &record.Date, &record.DurationMin, &record.Calories, &record.DistanceKm, &record.CreatedAt)
	record.Type = domain.ActivityType(activityType)
	record.Date = record.Date.UTC()
	record.CreatedAt = record.CreatedAt.UTC()
	return record, err
}

// FindByIdempotency checks if an activity already exists for the supplied idempotency key.
func (r *Repository) FindByIdempotency(ctx context.Context, userID, idempotencyKey string) (*domain.ActivityRecord, error) {
	if idempotencyKey == "" {
		return nil, nil
	}

	query := `SELECT ` + activityColumns + ` FROM activities WHERE user_id=$1 AND idempotency_key=$2`
	record, err := scanActivity(r.pool.QueryRow(ctx, query, userID, idempotencyKey))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// Create persists the activity and records its outbox event inside a single transaction.
func (r *Repository) Create(ctx context.Context, record domain.ActivityRecord, idempotencyKey string) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	const insertActivity = `INSERT INTO activities (activity_id, user_id, activity_type, performed_at, duration_min, calories, distance_km, idempotency_key, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

	_, err = tx.Exec(ctx, insertActivity,
		record.ID,
		record.UserID,
		string(record.Type),
		record.Date,
		record.DurationMin,
		record.Calories,
		record.DistanceKm,
		nullIfEmpty(idempotencyKey),
		record.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == idempotencyIndex {
			err = domain.ErrDuplicateIdempotencyKey
			return err
		}
		err = mapUserFK(err)
		return err
	}

	if err = insertOutbox(ctx, tx, record, events.EventActivityLogged, events.ActivityLogged{
		ActivityID:   record.ID,
		UserID:       record.UserID,
		ActivityType: string(record.Type),
		PerformedAt:  record.Date,
		DurationMin:  record.DurationMin,
		Calories:     record.Calories,
		DistanceKm:   record.DistanceKm,
	}); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return err
	}
	observability.RecordActivityPersisted(record.CreatedAt)
	return nil
}

func insertOutbox(ctx context.Context, tx pgx.Tx, record domain.ActivityRecord, eventType string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	meta, ok := eventCatalog[eventType]
	if !ok {
		return fmt.Errorf("unknown event type: %s", eventType)
	}

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	_, err = tx.Exec(ctx, stmt,
		"activity",
		record.ID,
		eventType,
		meta.Topic,
		meta.SchemaSubject,
		meta.PartitionKeyFn(record),
		body,
		fmt.Sprintf("%s:%s", record.ID, eventType),
	)
	return err
}

// Get retrieves an activity owned by userID. It returns nil when no row matches.
func (r *Repository) Get(ctx context.Context, userID, activityID string) (*domain.ActivityRecord, error) {
	query := `SELECT ` + activityColumns + ` FROM activities WHERE user_id=$1 AND activity_id=$2`
	record, err := scanActivity(r.pool.QueryRow(ctx, query, userID, activityID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// ListByUser returns activities for a user ordered newest first.
func (r *Repository) ListByUser(ctx context.Context, userID string, cursor *domain.Cursor, limit int) ([]domain.ActivityRecord, *domain.Cursor, error) {
	if limit <= 0 {
		limit = 20
	}
	args := []any{userID, limit}
	query := `SELECT ` + activityColumns + ` FROM activities WHERE user_id=$1`

	if cursor != nil {
		query += ` AND (performed_at, activity_id) < ($3, $4)`
		args = append(args, cursor.Date, cursor.ID)
	}

	query += ` ORDER BY performed_at DESC, activity_id DESC LIMIT $2`

	results, err := r.queryActivities(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}

	var nextCursor *domain.Cursor
	if len(results) == limit {
		last := results[len(results)-1]
		nextCursor = &domain.Cursor{Date: last.Date, ID: last.ID}
	}
	return results, nextCursor, nil
}

func (r *Repository) queryActivities(ctx context.Context, query string, args ...any) ([]domain.ActivityRecord, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.ActivityRecord, 0)
	for rows.Next() {
		record, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic          string
	SchemaSubject  string
	PartitionKeyFn func(domain.ActivityRecord) string
}

var eventCatalog = map[string]EventMetadata{
	events.EventActivityLogged: {
		Topic:         events.TopicActivityLogged,
		SchemaSubject: events.TopicActivityLogged + "-value",
		PartitionKeyFn: func(r domain.ActivityRecord) string {
			return r.UserID
		},
	},
}
