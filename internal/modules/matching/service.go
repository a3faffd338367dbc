// README: Matching service; speculative best-agent lookups and the
// auto-dispatch loop that feeds the coordinator.
package matching

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"dispatch/internal/config"
	"dispatch/internal/modules/agent"
	"dispatch/internal/modules/order"
	"dispatch/internal/types"
)

// AgentPool supplies rankable candidates.
type AgentPool interface {
	Candidates(ctx context.Context) ([]Candidate, error)
}

// Assigner is the coordinator's locked accept path. Matching only ever
// proposes; the binding is finalized there.
type Assigner interface {
	TryAssign(ctx context.Context, orderID, agentID types.ID) (*order.Order, error)
}

// WaitingOrders lists orders still awaiting an agent.
type WaitingOrders interface {
	ListWaiting(ctx context.Context, limit int) ([]*order.Order, error)
}

type Service struct {
	pool   AgentPool
	orders WaitingOrders
	assign Assigner
	cfg    config.MatchingConfig
	log    *logrus.Logger
}

func NewService(pool AgentPool, orders WaitingOrders, assign Assigner, cfg config.MatchingConfig, log *logrus.Logger) *Service {
	return &Service{pool: pool, orders: orders, assign: assign, cfg: cfg, log: log}
}

// FindBestAgent ranks the current pool against a pickup point. maxKm <= 0
// falls back to the configured radius; a configured radius of zero means
// unbounded. Side-effect free, safe to call speculatively.
func (s *Service) FindBestAgent(ctx context.Context, pickup types.Point, maxKm float64) (types.ID, bool, error) {
	if maxKm <= 0 {
		maxKm = s.cfg.RadiusKm
	}
	candidates, err := s.pool.Candidates(ctx)
	if err != nil {
		return "", false, err
	}
	best, ok := Best(pickup, candidates, maxKm)
	if !ok {
		return "", false, nil
	}
	return best.AgentID, true, nil
}

// RunAutoDispatch periodically sweeps waiting orders and offers each to the
// best-ranked agent through the coordinator's locked path.
func (s *Service) RunAutoDispatch(ctx context.Context) {
	tick := time.Duration(s.cfg.TickSeconds) * time.Second
	if tick <= 0 {
		tick = 5 * time.Second
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tickDispatch(ctx)
		}
	}
}

const dispatchBatch = 50

func (s *Service) tickDispatch(ctx context.Context) {
	waiting, err := s.orders.ListWaiting(ctx, dispatchBatch)
	if err != nil {
		s.log.WithError(err).Warn("auto-dispatch: listing waiting orders failed")
		return
	}
	if len(waiting) == 0 {
		return
	}

	candidates, err := s.pool.Candidates(ctx)
	if err != nil {
		s.log.WithError(err).Warn("auto-dispatch: candidate query failed")
		return
	}

	for _, o := range waiting {
		best, ok := Best(o.Pickup, candidates, s.cfg.RadiusKm)
		if !ok {
			continue
		}
		if _, err := s.assign.TryAssign(ctx, o.ID, best.AgentID); err != nil {
			// Losing a race or a stale candidate is routine here; the
			// locked path is the authority.
			if errors.Is(err, order.ErrTaken) || errors.Is(err, order.ErrNotWaiting) ||
				errors.Is(err, agent.ErrBusy) || errors.Is(err, agent.ErrOffline) {
				continue
			}
			s.log.WithError(err).WithField("order_id", o.ID).Warn("auto-dispatch: assign failed")
			continue
		}
		// The winner now carries one more order; reflect that so the next
		// order in this sweep prefers someone else.
		for i := range candidates {
			if candidates[i].AgentID == best.AgentID {
				candidates[i].Workload++
			}
		}
	}
}
