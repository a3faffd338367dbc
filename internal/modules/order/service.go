// README: Lifecycle state machine; validates tracking transitions, applies
// them atomically and stages the resulting notifications.
package order

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/sirupsen/logrus"

	"dispatch/internal/notify"
	"dispatch/internal/types"
)

// TxStore is the transactional surface the lifecycle mutates through.
type TxStore interface {
	OrderForUpdate(ctx context.Context, id types.ID) (*Order, error)
	ApplyTransition(ctx context.Context, orderID types.ID, ts TrackingStatus, st Status, reason *string) (bool, error)
	SetAgentBusy(ctx context.Context, agentID types.ID, busy bool) error
	AppendEvent(ctx context.Context, e TrackingEvent) error
	StageEvent(ctx context.Context, ev notify.Event) error
}

// UnitOfWork runs fn inside one ACID transaction.
type UnitOfWork interface {
	InTx(ctx context.Context, fn func(TxStore) error) error
}

// Reader is the non-transactional read surface.
type Reader interface {
	Get(ctx context.Context, id types.ID) (*Order, error)
	Create(ctx context.Context, o *Order) error
}

// Kicker nudges the outbox dispatcher after a commit.
type Kicker interface {
	Kick()
}

type Service struct {
	uow    UnitOfWork
	reader Reader
	kicker Kicker
	log    *logrus.Logger
}

func NewService(uow UnitOfWork, reader Reader, kicker Kicker, log *logrus.Logger) *Service {
	return &Service{uow: uow, reader: reader, kicker: kicker, log: log}
}

type CreateCommand struct {
	CustomerID   types.ID
	RestaurantID types.ID
	Pickup       types.Point
	Dropoff      types.Point
	Total        types.Money
	Items        []Item
}

type UpdateCommand struct {
	OrderID   types.ID
	ActorID   types.ID
	RawStatus string
	Lat       *float64
	Lng       *float64
	Reason    *string
}

// Create inserts a new order awaiting an agent. The delivery coordinates
// are frozen here and never re-derived later.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (types.ID, error) {
	if cmd.CustomerID == "" || cmd.RestaurantID == "" {
		return "", ErrBadRequest
	}
	id := NewID()
	o := &Order{
		ID:           id,
		CustomerID:   cmd.CustomerID,
		RestaurantID: cmd.RestaurantID,
		Status:       StatusWaitingForAgent,
		Tracking:     TrackingPending,
		Pickup:       cmd.Pickup,
		Dropoff:      cmd.Dropoff,
		Total:        cmd.Total,
		Items:        cmd.Items,
		CreatedAt:    time.Now(),
	}
	if err := s.reader.Create(ctx, o); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Order, error) {
	return s.reader.Get(ctx, id)
}

// UpdateTracking applies an agent-reported transition. The raw status is
// canonicalized once here; everything past this point works with the closed
// enumeration.
func (s *Service) UpdateTracking(ctx context.Context, cmd UpdateCommand) (*Order, error) {
	ts, err := Canonical(cmd.RawStatus)
	if err != nil {
		return nil, err
	}
	// "accepted" may only originate from the assignment coordinator, and
	// "pending" only from order creation.
	if ts == TrackingAccepted || ts == TrackingPending {
		return nil, ErrInvalidStatus
	}
	st, ok := StatusFor(ts)
	if !ok {
		return nil, ErrInvalidStatus
	}

	var updated *Order
	err = s.uow.InTx(ctx, func(tx TxStore) error {
		o, err := tx.OrderForUpdate(ctx, cmd.OrderID)
		if err != nil {
			return err
		}
		if IsTerminal(o.Status) {
			return ErrTerminal
		}
		actorType := "agent"
		if ts == TrackingCancelled {
			// Cancellation may come from any role; authorization is
			// enforced upstream.
			switch {
			case cmd.ActorID == "":
				actorType = "system"
			case o.AgentID == nil || *o.AgentID != cmd.ActorID:
				actorType = "user"
			}
		} else {
			if o.AgentID == nil || *o.AgentID != cmd.ActorID {
				return ErrUnauthorized
			}
		}

		applied, err := tx.ApplyTransition(ctx, o.ID, ts, st, cmd.Reason)
		if err != nil {
			return err
		}
		if !applied {
			// A concurrent terminal write got there first.
			return ErrTerminal
		}

		if IsTerminal(st) && o.AgentID != nil {
			// Delivered or cancelled frees the agent for new work,
			// preserving the busy ⇔ one-active-order invariant.
			if err := tx.SetAgentBusy(ctx, *o.AgentID, false); err != nil {
				return err
			}
		}

		now := time.Now()
		var actorID *types.ID
		if cmd.ActorID != "" {
			actorID = &cmd.ActorID
		}
		if err := tx.AppendEvent(ctx, TrackingEvent{
			OrderID:   o.ID,
			Status:    ts,
			ActorType: actorType,
			ActorID:   actorID,
			Lat:       cmd.Lat,
			Lng:       cmd.Lng,
			CreatedAt: now,
		}); err != nil {
			return err
		}

		for _, ev := range notify.TrackingUpdate(o.ID, o.CustomerID, string(ts), cmd.Lat, cmd.Lng) {
			if err := tx.StageEvent(ctx, ev); err != nil {
				return err
			}
		}
		if st == StatusDelivered || st == StatusCancelled {
			kind := notify.KindOrderDelivered
			if st == StatusCancelled {
				kind = notify.KindOrderCancelled
			}
			for _, ev := range notify.Terminal(kind, o.ID, o.CustomerID, o.RestaurantID) {
				if err := tx.StageEvent(ctx, ev); err != nil {
					return err
				}
			}
		}

		cp := *o
		cp.Status = st
		cp.Tracking = ts
		switch st {
		case StatusPickedUp:
			if cp.PickedUpAt == nil {
				cp.PickedUpAt = &now
			}
		case StatusDelivered:
			cp.DeliveredAt = &now
		case StatusCancelled:
			cp.CancelledAt = &now
			cp.CancelReason = cmd.Reason
			// Mirrors the row update: a cancelled order carries no agent.
			cp.AgentID = nil
		}
		updated = &cp
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"order_id": cmd.OrderID,
		"tracking": ts,
		"status":   st,
	}).Info("tracking transition applied")
	if s.kicker != nil {
		s.kicker.Kick()
	}
	return updated, nil
}

// NewID returns a 32-char hex identifier.
func NewID() types.ID {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return types.ID(hex.EncodeToString(b[:]))
}
