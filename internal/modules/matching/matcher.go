// README: Pure ranking over agent candidates; no state, no side effects.
package matching

import (
	"dispatch/internal/geo"
	"dispatch/internal/types"
)

// Rank computes each candidate's distance from the pickup point, drops
// those beyond maxKm (when maxKm > 0) and sorts the rest by workload
// ascending, then distance ascending. Load-balancing deliberately beats
// proximity so consecutive orders don't pile onto the nearest idle agent.
func Rank(pickup types.Point, candidates []Candidate, maxKm float64) []Candidate {
	ranked := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		c.DistanceKm = geo.HaversineKm(pickup, c.Position)
		if maxKm > 0 && c.DistanceKm > maxKm {
			continue
		}
		ranked = append(ranked, c)
	}
	geo.SortBy(ranked, func(a, b Candidate) bool {
		if a.Workload != b.Workload {
			return a.Workload < b.Workload
		}
		return a.DistanceKm < b.DistanceKm
	})
	return ranked
}

// Best returns the single best candidate, or false when no candidate is in
// range. There is no fallback radius expansion: an empty result means no
// match right now.
func Best(pickup types.Point, candidates []Candidate, maxKm float64) (Candidate, bool) {
	ranked := Rank(pickup, candidates, maxKm)
	if len(ranked) == 0 {
		return Candidate{}, false
	}
	return ranked[0], true
}
