// README: Order aggregate, status definitions and the tracking→order status mapping.
package order

import (
	"time"

	"dispatch/internal/types"
)

// Status is the coarse business state of an order.
type Status string

const (
	StatusWaitingForAgent Status = "waiting_for_agent"
	StatusAgentAssigned   Status = "agent_assigned"
	StatusConfirmed       Status = "confirmed"
	StatusPickedUp        Status = "picked_up"
	StatusDelivered       Status = "delivered"
	StatusCancelled       Status = "cancelled"
)

// TrackingStatus is the fine-grained delivery-progress state reported by
// the assigned agent.
type TrackingStatus string

const (
	TrackingPending             TrackingStatus = "pending"
	TrackingAccepted            TrackingStatus = "accepted"
	TrackingGoingToRestaurant   TrackingStatus = "agent_going_to_restaurant"
	TrackingArrivedAtRestaurant TrackingStatus = "arrived_at_restaurant"
	TrackingPickedUp            TrackingStatus = "picked_up"
	TrackingInTransit           TrackingStatus = "in_transit"
	TrackingDelivered           TrackingStatus = "delivered"
	TrackingCancelled           TrackingStatus = "cancelled"
)

// statusFor maps each tracking status onto the order status it implies.
var statusFor = map[TrackingStatus]Status{
	TrackingPending:             StatusWaitingForAgent,
	TrackingAccepted:            StatusAgentAssigned,
	TrackingGoingToRestaurant:   StatusConfirmed,
	TrackingArrivedAtRestaurant: StatusConfirmed,
	TrackingPickedUp:            StatusPickedUp,
	TrackingInTransit:           StatusPickedUp,
	TrackingDelivered:           StatusDelivered,
	TrackingCancelled:           StatusCancelled,
}

// StatusFor returns the order status implied by a tracking status. The
// second return is false for unknown tracking values.
func StatusFor(ts TrackingStatus) (Status, bool) {
	s, ok := statusFor[ts]
	return s, ok
}

// IsTerminal reports whether an order status accepts no further transitions.
func IsTerminal(s Status) bool {
	return s == StatusDelivered || s == StatusCancelled
}

type Item struct {
	Name      string      `json:"name"`
	Quantity  int         `json:"quantity"`
	UnitPrice types.Money `json:"unit_price"`
}

// Order is the purchase aggregate. Pickup and Dropoff are frozen at
// creation time and never re-derived from restaurant or customer records.
type Order struct {
	ID           types.ID
	CustomerID   types.ID
	RestaurantID types.ID
	AgentID      *types.ID
	Status       Status
	Tracking     TrackingStatus
	Pickup       types.Point
	Dropoff      types.Point
	Total        types.Money
	Items        []Item
	CreatedAt    time.Time
	AssignedAt   *time.Time
	PickedUpAt   *time.Time
	DeliveredAt  *time.Time
	CancelledAt  *time.Time
	CancelReason *string
}

// TrackingEvent is one immutable row in the per-order audit history.
type TrackingEvent struct {
	ID        int64
	OrderID   types.ID
	Status    TrackingStatus
	ActorType string
	ActorID   *types.ID
	Lat       *float64
	Lng       *float64
	CreatedAt time.Time
}
