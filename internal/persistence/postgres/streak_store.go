package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"example.com/dashboard/internal/domain"
	"example.com/dashboard/internal/streaks"
)

var _ streaks.Store = (*Repository)(nil)

// Record implements streaks.Store. The streak_events insert claims the
// activity; a conflict means the event was already applied.
func (r *Repository) Record(ctx context.Context, evt streaks.Event, fn func(prev *streaks.State) streaks.Transition) (applied bool, err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil || !applied {
			tx.Rollback(ctx)
		}
	}()

	// Lock the streak row first so concurrent events for one user serialize.
	var (
		prev    *streaks.State
		current streaks.State
	)
	err = tx.QueryRow(ctx, `SELECT current_streak, best_streak, last_activity_date FROM streaks WHERE user_id=$1 FOR UPDATE`, evt.UserID).
		Scan(&current.Current, &current.Best, &current.LastActivityDate)
	switch {
	case err == nil:
		prev = &current
	case errors.Is(err, pgx.ErrNoRows):
		err = nil
	default:
		return false, err
	}

	transition := fn(prev)

	tag, err := tx.Exec(ctx, `INSERT INTO streak_events (user_id, activity_id, activity_date, activity_type, streak_count)
        VALUES ($1,$2,$3,$4,$5) ON CONFLICT (user_id, activity_id) DO NOTHING`,
		evt.UserID, evt.ActivityID, transition.Day, string(evt.Type), transition.Next.Current)
	if err != nil {
		return false, mapUserFK(err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	_, err = tx.Exec(ctx, `INSERT INTO streaks (user_id, current_streak, best_streak, last_activity_date, updated_at)
        VALUES ($1,$2,$3,$4,NOW())
        ON CONFLICT (user_id) DO UPDATE SET current_streak=EXCLUDED.current_streak, best_streak=EXCLUDED.best_streak,
            last_activity_date=EXCLUDED.last_activity_date, updated_at=NOW()`,
		evt.UserID, transition.Next.Current, transition.Next.Best, transition.Next.LastActivityDate)
	if err != nil {
		return false, err
	}

	for _, code := range transition.Badges {
		if _, err = tx.Exec(ctx, `INSERT INTO badges (user_id, badge_code, awarded_at) VALUES ($1,$2,$3)
            ON CONFLICT (user_id, badge_code) DO NOTHING`, evt.UserID, code, time.Now().UTC()); err != nil {
			return false, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// ListBadges returns the badge codes a user holds, oldest award first.
func (r *Repository) ListBadges(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT badge_code FROM badges WHERE user_id=$1 ORDER BY awarded_at, badge_code`, userID)
	if err != nil {
		return nil, err
	}
	codes, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	return codes, nil
}

func mapUserFK(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return domain.ErrUserNotFound
	}
	return err
}
