// README: Location ledger service; append-only history plus the live
// projection consulted by matching and customer tracking.
package location

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"dispatch/internal/geo"
	"dispatch/internal/modules/order"
	"dispatch/internal/notify"
	"dispatch/internal/types"
)

// Ledger is the persistence surface for samples and projections.
type Ledger interface {
	AppendSample(ctx context.Context, sample Sample) error
	SetProjection(ctx context.Context, agentID types.ID, pos types.Point) error
	Projection(ctx context.Context, agentID types.ID) (types.Point, time.Time, error)
}

// OrderResolver maps an order to its bound agent.
type OrderResolver interface {
	AgentIDByOrder(ctx context.Context, orderID types.ID) (types.ID, bool, error)
	Get(ctx context.Context, id types.ID) (*order.Order, error)
}

// Stager writes the best-effort location feed event.
type Stager interface {
	Stage(ctx context.Context, ev notify.Event) error
}

var (
	ErrBadCoordinate = errors.New("coordinate out of range")
	ErrNoAgent       = errors.New("no agent assigned")
)

type Service struct {
	ledger Ledger
	orders OrderResolver
	stager Stager
	log    *logrus.Logger
}

func NewService(ledger Ledger, orders OrderResolver, stager Stager, log *logrus.Logger) *Service {
	return &Service{ledger: ledger, orders: orders, stager: stager, log: log}
}

// Record appends one history sample and overwrites the live projection.
// History is best-effort auditing: if the append fails the projection still
// proceeds, because the projection is what matching and customer tracking
// depend on.
func (s *Service) Record(ctx context.Context, agentID types.ID, orderID *types.ID, lat, lng float64) error {
	if !geo.ValidCoordinate(lat, lng) {
		return ErrBadCoordinate
	}
	pos := types.Point{Lat: lat, Lng: lng}

	if err := s.ledger.AppendSample(ctx, Sample{
		ID:         uuid.NewString(),
		AgentID:    agentID,
		OrderID:    orderID,
		Position:   pos,
		RecordedAt: time.Now().UTC(),
	}); err != nil {
		s.log.WithError(err).WithField("agent_id", agentID).Warn("location history append failed, projection proceeds")
	}

	if err := s.ledger.SetProjection(ctx, agentID, pos); err != nil {
		return err
	}

	if orderID != nil && s.stager != nil {
		o, err := s.orders.Get(ctx, *orderID)
		if err == nil {
			for _, ev := range notify.TrackingUpdate(o.ID, o.CustomerID, "", &lat, &lng) {
				if err := s.stager.Stage(ctx, ev); err != nil {
					s.log.WithError(err).Warn("failed to stage location feed event")
				}
			}
		}
	}
	return nil
}

// CurrentByOrder resolves the order's bound agent and returns that agent's
// live projection. Returns ErrNoAgent when the order has no assignment.
func (s *Service) CurrentByOrder(ctx context.Context, orderID types.ID) (*Current, error) {
	agentID, ok, err := s.orders.AgentIDByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoAgent
	}
	pos, updatedAt, err := s.ledger.Projection(ctx, agentID)
	if err != nil {
		return nil, err
	}
	return &Current{AgentID: agentID, Position: pos, UpdatedAt: updatedAt}, nil
}
