// README: Immutable location sample for the append-only ledger.
package location

import (
	"time"

	"dispatch/internal/types"
)

// Sample is one recorded agent position. Samples are never updated or
// deleted; only the agent's current-coordinates projection is overwritten.
type Sample struct {
	ID         string
	AgentID    types.ID
	OrderID    *types.ID
	Position   types.Point
	RecordedAt time.Time
}

// Current is the live-position answer for an order.
type Current struct {
	AgentID   types.ID
	Position  types.Point
	UpdatedAt time.Time
}
