// README: Delivery agent entity and availability errors.
package agent

import (
	"errors"
	"time"

	"dispatch/internal/types"
)

type OperationalStatus string

const (
	StatusActive   OperationalStatus = "active"
	StatusInactive OperationalStatus = "inactive"
)

var (
	ErrNotFound = errors.New("agent not found")
	ErrOffline  = errors.New("agent offline")
	ErrBusy     = errors.New("agent busy")
)

// Agent is a delivery worker. Busy is true iff the agent currently holds
// exactly one order in a non-terminal assigned state; the assignment
// coordinator is the only writer allowed to flip it together with an order
// binding.
type Agent struct {
	ID        types.ID
	Online    bool
	Busy      bool
	Status    OperationalStatus
	Location  *types.Point
	UpdatedAt time.Time
}
