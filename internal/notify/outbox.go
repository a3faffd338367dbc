// README: Durable outbox; events are staged inside the owning transaction
// and published by the dispatcher after commit.
package notify

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"dispatch/internal/types"
)

// Execer is satisfied by both pgxpool.Pool and pgx.Tx, so events can be
// staged standalone or inside a mutating transaction.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const stageSQL = `
	INSERT INTO outbox_events (id, kind, order_id, channel, payload, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)`

// StageTx appends one event row using the caller's transaction (or pool).
func StageTx(ctx context.Context, db Execer, ev Event) error {
	_, err := db.Exec(ctx, stageSQL,
		ev.ID, string(ev.Kind), string(ev.OrderID), ev.Channel, []byte(ev.Payload), ev.CreatedAt)
	return err
}

// Outbox reads and settles staged events for the dispatcher.
type Outbox struct {
	db *pgxpool.Pool
}

func NewOutbox(db *pgxpool.Pool) *Outbox {
	return &Outbox{db: db}
}

func (o *Outbox) Stage(ctx context.Context, ev Event) error {
	return StageTx(ctx, o.db, ev)
}

// PendingBatch returns up to limit unpublished events, oldest first.
func (o *Outbox) PendingBatch(ctx context.Context, limit int) ([]Event, error) {
	rows, err := o.db.Query(ctx, `
		SELECT id, kind, order_id, channel, payload, created_at
		FROM outbox_events
		WHERE published_at IS NULL
		ORDER BY created_at, id
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		var kind, orderID string
		if err := rows.Scan(&ev.ID, &kind, &orderID, &ev.Channel, &ev.Payload, &ev.CreatedAt); err != nil {
			return nil, err
		}
		ev.Kind = Kind(kind)
		ev.OrderID = types.ID(orderID)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// MarkPublished settles the given event ids.
func (o *Outbox) MarkPublished(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := o.db.Exec(ctx, `
		UPDATE outbox_events SET published_at = NOW() WHERE id = ANY($1)`, ids)
	return err
}
