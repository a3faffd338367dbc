// README: Outbound event model and per-audience event constructors.
package notify

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"dispatch/internal/types"
)

type Kind string

const (
	KindAgentAssigned  Kind = "agent_assigned"
	KindOrderTaken     Kind = "order_taken"
	KindTrackingUpdate Kind = "tracking_update"
	KindOrderDelivered Kind = "order_delivered"
	KindOrderCancelled Kind = "order_cancelled"
	KindOrderRejected  Kind = "order_rejected"
)

// Event is one message addressed to one audience channel. A single state
// change usually fans out into several events, one per audience.
type Event struct {
	ID        string
	Kind      Kind
	OrderID   types.ID
	Channel   string
	Payload   json.RawMessage
	CreatedAt time.Time
}

const (
	ChannelAgents = "agents"
	ChannelAdmin  = "admin"
)

func CustomerChannel(id types.ID) string   { return "customer:" + string(id) }
func RestaurantChannel(id types.ID) string { return "restaurant:" + string(id) }
func OrderChannel(id types.ID) string      { return "order:" + string(id) }

func newEvent(kind Kind, orderID types.ID, channel string, payload any) Event {
	body, _ := json.Marshal(payload)
	return Event{
		ID:        uuid.NewString(),
		Kind:      kind,
		OrderID:   orderID,
		Channel:   channel,
		Payload:   body,
		CreatedAt: time.Now().UTC(),
	}
}

// AgentAssigned builds the fan-out for a successful assignment: the customer
// and restaurant learn who is coming, every other online agent learns the
// order is gone, and admins get the audit copy.
func AgentAssigned(orderID, customerID, restaurantID, agentID types.ID, agentPos *types.Point, etaMinutes int) []Event {
	payload := struct {
		Event      string       `json:"event"`
		OrderID    types.ID     `json:"order_id"`
		AgentID    types.ID     `json:"agent_id"`
		AgentPos   *types.Point `json:"agent_position,omitempty"`
		ETAMinutes int          `json:"eta_minutes,omitempty"`
	}{"agent_assigned", orderID, agentID, agentPos, etaMinutes}

	taken := struct {
		Event   string   `json:"event"`
		OrderID types.ID `json:"order_id"`
	}{"order_taken", orderID}

	return []Event{
		newEvent(KindAgentAssigned, orderID, CustomerChannel(customerID), payload),
		newEvent(KindAgentAssigned, orderID, RestaurantChannel(restaurantID), payload),
		newEvent(KindOrderTaken, orderID, ChannelAgents, taken),
		newEvent(KindAgentAssigned, orderID, ChannelAdmin, payload),
	}
}

// TrackingUpdate builds the per-order feed event for a status or location
// change.
func TrackingUpdate(orderID, customerID types.ID, status string, lat, lng *float64) []Event {
	payload := struct {
		Event   string   `json:"event"`
		OrderID types.ID `json:"order_id"`
		Status  string   `json:"status,omitempty"`
		Lat     *float64 `json:"lat,omitempty"`
		Lng     *float64 `json:"lng,omitempty"`
	}{"tracking_update", orderID, status, lat, lng}

	return []Event{
		newEvent(KindTrackingUpdate, orderID, OrderChannel(orderID), payload),
		newEvent(KindTrackingUpdate, orderID, CustomerChannel(customerID), payload),
	}
}

// Terminal builds the delivered/cancelled fan-out.
func Terminal(kind Kind, orderID, customerID, restaurantID types.ID) []Event {
	payload := struct {
		Event   string   `json:"event"`
		OrderID types.ID `json:"order_id"`
	}{string(kind), orderID}

	return []Event{
		newEvent(kind, orderID, OrderChannel(orderID), payload),
		newEvent(kind, orderID, CustomerChannel(customerID), payload),
		newEvent(kind, orderID, RestaurantChannel(restaurantID), payload),
		newEvent(kind, orderID, ChannelAdmin, payload),
	}
}

// Rejected builds the advisory audit event for an agent declining an offer.
func Rejected(orderID, agentID types.ID, reason string) Event {
	payload := struct {
		Event   string   `json:"event"`
		OrderID types.ID `json:"order_id"`
		AgentID types.ID `json:"agent_id"`
		Reason  string   `json:"reason,omitempty"`
	}{"order_rejected", orderID, agentID, reason}
	return newEvent(KindOrderRejected, orderID, ChannelAdmin, payload)
}
