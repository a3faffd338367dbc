// README: Order store backed by PostgreSQL; pool-level reads/creates plus
// tx-level helpers shared with the assignment coordinator.
package order

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dispatch/internal/notify"
	"dispatch/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const orderColumns = `
	id, customer_id, restaurant_id, agent_id, status, tracking_status,
	pickup_lat, pickup_lng, dropoff_lat, dropoff_lng,
	total_amount, total_currency, items,
	created_at, assigned_at, picked_up_at, delivered_at, cancelled_at, cancel_reason`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var agentID, reason *string
	var status, tracking string
	var items []byte
	err := row.Scan(
		&o.ID, &o.CustomerID, &o.RestaurantID, &agentID, &status, &tracking,
		&o.Pickup.Lat, &o.Pickup.Lng, &o.Dropoff.Lat, &o.Dropoff.Lng,
		&o.Total.Amount, &o.Total.Currency, &items,
		&o.CreatedAt, &o.AssignedAt, &o.PickedUpAt, &o.DeliveredAt, &o.CancelledAt, &reason,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	o.Status = Status(status)
	o.Tracking = TrackingStatus(tracking)
	if agentID != nil {
		id := types.ID(*agentID)
		o.AgentID = &id
	}
	o.CancelReason = reason
	if len(items) > 0 {
		_ = json.Unmarshal(items, &o.Items)
	}
	return &o, nil
}

func (s *Store) Create(ctx context.Context, o *Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO orders (
			id, customer_id, restaurant_id, agent_id, status, tracking_status,
			pickup_lat, pickup_lng, dropoff_lat, dropoff_lng,
			total_amount, total_currency, items, created_at
		) VALUES (
			$1, $2, $3, NULL, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12, $13
		)`,
		string(o.ID), string(o.CustomerID), string(o.RestaurantID),
		string(o.Status), string(o.Tracking),
		o.Pickup.Lat, o.Pickup.Lng, o.Dropoff.Lat, o.Dropoff.Lng,
		o.Total.Amount, o.Total.Currency, items, o.CreatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Order, error) {
	row := s.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, string(id))
	return scanOrder(row)
}

// ListWaiting returns orders still awaiting an agent, oldest first.
func (s *Store) ListWaiting(ctx context.Context, limit int) ([]*Order, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE status = $1 AND agent_id IS NULL
		ORDER BY created_at
		LIMIT $2`, string(StatusWaitingForAgent), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// AgentIDByOrder resolves an order's bound agent; ok is false when the
// order exists but has no agent.
func (s *Store) AgentIDByOrder(ctx context.Context, orderID types.ID) (types.ID, bool, error) {
	var agentID *string
	err := s.db.QueryRow(ctx, `SELECT agent_id FROM orders WHERE id = $1`, string(orderID)).Scan(&agentID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, ErrNotFound
	}
	if err != nil {
		return "", false, err
	}
	if agentID == nil {
		return "", false, nil
	}
	return types.ID(*agentID), true, nil
}

// --- tx-level helpers, shared with the assignment coordinator ---

// GetForUpdateTx loads an order under an exclusive row lock.
func GetForUpdateTx(ctx context.Context, tx pgx.Tx, id types.ID) (*Order, error) {
	row := tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, string(id))
	return scanOrder(row)
}

// BindAgentTx performs the guarded assignment write. The WHERE clause
// re-checks "still unassigned and still waiting" at write time, so a
// writer that bypassed the lock path cannot double-bind the order.
func BindAgentTx(ctx context.Context, tx pgx.Tx, orderID, agentID types.ID) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE orders
		SET agent_id = $2,
		    status = $3,
		    tracking_status = $4,
		    assigned_at = NOW()
		WHERE id = $1
		  AND agent_id IS NULL
		  AND status = $5`,
		string(orderID), string(agentID),
		string(StatusAgentAssigned), string(TrackingAccepted),
		string(StatusWaitingForAgent),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ApplyTransitionTx writes a tracking transition. Terminal orders are
// excluded at write time, so a racing terminal write wins cleanly.
// Cancellation clears the agent binding: only orders that progressed
// normally (through delivered) keep their agent on the row.
func ApplyTransitionTx(ctx context.Context, tx pgx.Tx, orderID types.ID, ts TrackingStatus, st Status, reason *string) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE orders
		SET tracking_status = $2,
		    status = $3,
		    agent_id = CASE WHEN $3 = 'cancelled' THEN NULL ELSE agent_id END,
		    picked_up_at = CASE WHEN $3 = 'picked_up' AND picked_up_at IS NULL THEN NOW() ELSE picked_up_at END,
		    delivered_at = CASE WHEN $3 = 'delivered' THEN NOW() ELSE delivered_at END,
		    cancelled_at = CASE WHEN $3 = 'cancelled' THEN NOW() ELSE cancelled_at END,
		    cancel_reason = COALESCE($4, cancel_reason)
		WHERE id = $1
		  AND status NOT IN ('delivered', 'cancelled')`,
		string(orderID), string(ts), string(st), reason,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// AppendEventTx appends one immutable tracking-event row.
func AppendEventTx(ctx context.Context, tx pgx.Tx, e TrackingEvent) error {
	var actorID *string
	if e.ActorID != nil {
		v := string(*e.ActorID)
		actorID = &v
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO order_tracking_events (order_id, status, actor_type, actor_id, lat, lng, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		string(e.OrderID), string(e.Status), e.ActorType, actorID, e.Lat, e.Lng, e.CreatedAt,
	)
	return err
}

// --- unit of work ---

// InTx runs fn against a transactional store. Any error rolls the whole
// transaction back; no partial state is ever visible.
func (s *Store) InTx(ctx context.Context, fn func(TxStore) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(&txStore{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

type txStore struct {
	tx pgx.Tx
}

func (t *txStore) OrderForUpdate(ctx context.Context, id types.ID) (*Order, error) {
	return GetForUpdateTx(ctx, t.tx, id)
}

func (t *txStore) ApplyTransition(ctx context.Context, orderID types.ID, ts TrackingStatus, st Status, reason *string) (bool, error) {
	return ApplyTransitionTx(ctx, t.tx, orderID, ts, st, reason)
}

func (t *txStore) SetAgentBusy(ctx context.Context, agentID types.ID, busy bool) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE agents SET busy = $2, updated_at = NOW() WHERE id = $1`,
		string(agentID), busy)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txStore) AppendEvent(ctx context.Context, e TrackingEvent) error {
	return AppendEventTx(ctx, t.tx, e)
}

func (t *txStore) StageEvent(ctx context.Context, ev notify.Event) error {
	return notify.StageTx(ctx, t.tx, ev)
}
