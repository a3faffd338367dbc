// README: Assignment coordinator; the single locked path that binds an
// order to exactly one agent.
package assignment

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"dispatch/internal/geo"
	"dispatch/internal/modules/agent"
	"dispatch/internal/modules/order"
	"dispatch/internal/notify"
	"dispatch/internal/types"
)

// TxStore is the transactional surface the coordinator works through. Lock
// acquisition order is fixed globally: Agent first, then Order. Every
// implementation must honour that or two concurrent accepts can cross-lock.
type TxStore interface {
	AgentForUpdate(ctx context.Context, id types.ID) (*agent.Agent, error)
	OrderForUpdate(ctx context.Context, id types.ID) (*order.Order, error)
	BindAgent(ctx context.Context, orderID, agentID types.ID) (bool, error)
	SetAgentBusy(ctx context.Context, agentID types.ID, busy bool) error
	AppendTrackingEvent(ctx context.Context, e order.TrackingEvent) error
	StageEvent(ctx context.Context, ev notify.Event) error
}

type UnitOfWork interface {
	InTx(ctx context.Context, fn func(TxStore) error) error
}

// ETA estimates travel time for the assignment notification. Optional.
type ETA interface {
	EstimateMinutes(ctx context.Context, from, to types.Point) (int, error)
}

// Stager writes advisory events outside any transaction.
type Stager interface {
	Stage(ctx context.Context, ev notify.Event) error
}

type Kicker interface {
	Kick()
}

type Coordinator struct {
	uow    UnitOfWork
	eta    ETA
	stager Stager
	kicker Kicker
	log    *logrus.Logger
}

func NewCoordinator(uow UnitOfWork, eta ETA, stager Stager, kicker Kicker, log *logrus.Logger) *Coordinator {
	return &Coordinator{uow: uow, eta: eta, stager: stager, kicker: kicker, log: log}
}

// TryAssign binds agentID to orderID or returns a business rejection.
//
// Both rows are locked for the duration of the transaction (agent before
// order), and the bind itself re-checks "agent_id IS NULL" at write time.
// The second guard catches writers that never took the locks.
func (c *Coordinator) TryAssign(ctx context.Context, orderID, agentID types.ID) (*order.Order, error) {
	var assigned *order.Order
	err := c.uow.InTx(ctx, func(tx TxStore) error {
		a, err := tx.AgentForUpdate(ctx, agentID)
		if err != nil {
			return err
		}
		if !a.Online {
			return agent.ErrOffline
		}
		if a.Busy {
			return agent.ErrBusy
		}

		o, err := tx.OrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.AgentID != nil && *o.AgentID != agentID {
			return order.ErrTaken
		}
		if o.Status != order.StatusWaitingForAgent {
			return order.ErrNotWaiting
		}

		ok, err := tx.BindAgent(ctx, orderID, agentID)
		if err != nil {
			return err
		}
		if !ok {
			return order.ErrTaken
		}
		if err := tx.SetAgentBusy(ctx, agentID, true); err != nil {
			return err
		}

		now := time.Now()
		if err := tx.AppendTrackingEvent(ctx, order.TrackingEvent{
			OrderID:   orderID,
			Status:    order.TrackingAccepted,
			ActorType: "agent",
			ActorID:   &agentID,
			CreatedAt: now,
		}); err != nil {
			return err
		}

		for _, ev := range notify.AgentAssigned(
			orderID, o.CustomerID, o.RestaurantID, agentID,
			a.Location, c.etaMinutes(ctx, a.Location, o.Pickup),
		) {
			if err := tx.StageEvent(ctx, ev); err != nil {
				return err
			}
		}

		cp := *o
		cp.AgentID = &agentID
		cp.Status = order.StatusAgentAssigned
		cp.Tracking = order.TrackingAccepted
		cp.AssignedAt = &now
		assigned = &cp
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.log.WithFields(logrus.Fields{
		"order_id": orderID,
		"agent_id": agentID,
	}).Info("order assigned")
	if c.kicker != nil {
		c.kicker.Kick()
	}
	return assigned, nil
}

// Reject records that an agent declined an offered order. Advisory only:
// the order stays available and neither the order nor the agent row is
// touched.
func (c *Coordinator) Reject(ctx context.Context, orderID, agentID types.ID, reason string) error {
	c.log.WithFields(logrus.Fields{
		"order_id": orderID,
		"agent_id": agentID,
		"reason":   reason,
	}).Info("order offer declined")
	if c.stager != nil {
		if err := c.stager.Stage(ctx, notify.Rejected(orderID, agentID, reason)); err != nil {
			c.log.WithError(err).Warn("failed to stage rejection audit event")
		}
	}
	return nil
}

// avgSpeedKmh is the fallback ETA speed when no routing provider is set.
const avgSpeedKmh = 30.0

func (c *Coordinator) etaMinutes(ctx context.Context, from *types.Point, pickup types.Point) int {
	if from == nil {
		return 0
	}
	if c.eta != nil {
		if min, err := c.eta.EstimateMinutes(ctx, *from, pickup); err == nil {
			return min
		}
		// Routing failure falls through to the haversine estimate.
	}
	km := geo.HaversineKm(*from, pickup)
	min := int(km / avgSpeedKmh * 60)
	if min < 1 {
		min = 1
	}
	return min
}
