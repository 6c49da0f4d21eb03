package repository

import (
	"context"

	"github.com/jmehdipour/notify-redirector/internal/model"
	"github.com/jmoiron/sqlx"
)

// EventsRepository persists the relay journal. The same statements run on
// MySQL and ClickHouse.
type EventsRepository interface {
	InsertBatch(ctx context.Context, tx *sqlx.Tx, events []model.Event) error
	ListRecent(ctx context.Context, kind model.EventKind, limit, offset int) ([]model.Event, error)
}

type EventsRepositoryImpl struct {
	db *sqlx.DB
}

func NewEventsRepository(db *sqlx.DB) *EventsRepositoryImpl {
	return &EventsRepositoryImpl{db: db}
}

// DB exposes the connection so callers can open the batch transaction.
func (r *EventsRepositoryImpl) DB() *sqlx.DB { return r.db }

func (r *EventsRepositoryImpl) withTx(ctx context.Context, tx *sqlx.Tx, fn func(*sqlx.Tx) error) error {
	if tx != nil {
		return fn(tx)
	}
	t, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = t.Rollback() }()
	if err := fn(t); err != nil {
		return err
	}
	return t.Commit()
}

// InsertBatch writes events through one prepared statement; ClickHouse turns
// this into a single block insert on commit.
func (r *EventsRepositoryImpl) InsertBatch(ctx context.Context, tx *sqlx.Tx, events []model.Event) error {
	if len(events) == 0 {
		return nil
	}
	const q = `
		INSERT INTO relay_events
		    (id, kind, type, phone, cookie, detail, created_at)
		VALUES
		    (?,  ?,    ?,    ?,     ?,      ?,      ?)
	`
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		stmt, err := tx.PreparexContext(ctx, q)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, ev := range events {
			if _, err := stmt.ExecContext(ctx,
				ev.ID, ev.Kind.String(), ev.Type, ev.Phone, ev.Cookie, ev.Detail, ev.CreatedAt,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *EventsRepositoryImpl) ListRecent(ctx context.Context, kind model.EventKind, limit, offset int) ([]model.Event, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	q := `
		SELECT id, kind, type, phone, cookie, detail, created_at
		FROM relay_events
	`
	var args []any

	if kind != "" {
		q += " WHERE kind = ?"
		args = append(args, kind.String())
	}

	q += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var rows []model.Event
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
