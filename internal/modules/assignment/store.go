// README: Transactional store for the coordinator, composed from the agent
// and order row helpers so both paths share the same SQL.
package assignment

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dispatch/internal/modules/agent"
	"dispatch/internal/modules/order"
	"dispatch/internal/notify"
	"dispatch/internal/types"
)

type Store struct {
	db     *pgxpool.Pool
	agents *agent.Store
}

func NewStore(db *pgxpool.Pool, agents *agent.Store) *Store {
	return &Store{db: db, agents: agents}
}

func (s *Store) InTx(ctx context.Context, fn func(TxStore) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(&txStore{tx: tx, agents: s.agents}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

type txStore struct {
	tx     pgx.Tx
	agents *agent.Store
}

func (t *txStore) AgentForUpdate(ctx context.Context, id types.ID) (*agent.Agent, error) {
	return t.agents.GetForUpdate(ctx, t.tx, id)
}

func (t *txStore) OrderForUpdate(ctx context.Context, id types.ID) (*order.Order, error) {
	return order.GetForUpdateTx(ctx, t.tx, id)
}

func (t *txStore) BindAgent(ctx context.Context, orderID, agentID types.ID) (bool, error) {
	return order.BindAgentTx(ctx, t.tx, orderID, agentID)
}

func (t *txStore) SetAgentBusy(ctx context.Context, agentID types.ID, busy bool) error {
	return t.agents.SetBusyTx(ctx, t.tx, agentID, busy)
}

func (t *txStore) AppendTrackingEvent(ctx context.Context, e order.TrackingEvent) error {
	return order.AppendEventTx(ctx, t.tx, e)
}

func (t *txStore) StageEvent(ctx context.Context, ev notify.Event) error {
	return notify.StageTx(ctx, t.tx, ev)
}
