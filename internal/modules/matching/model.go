// README: Matching candidates and ranking inputs.
package matching

import "dispatch/internal/types"

// Candidate is one rankable agent: its live position and how many active
// orders it already carries.
type Candidate struct {
	AgentID    types.ID
	Position   types.Point
	Workload   int
	DistanceKm float64
}
