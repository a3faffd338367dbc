package matching

import (
	"testing"

	"dispatch/internal/types"
)

// Points measured from the pickup at (0,0); one degree of latitude is about
// 111 km, so lat offsets give clean distances.
var pickup = types.Point{Lat: 0, Lng: 0}

func atKm(km float64) types.Point {
	return types.Point{Lat: km / 111.0, Lng: 0}
}

func TestBestPrefersLowestWorkload(t *testing.T) {
	candidates := []Candidate{
		{AgentID: "A", Position: atKm(2), Workload: 3},
		{AgentID: "B", Position: atKm(5), Workload: 0},
		{AgentID: "C", Position: atKm(1), Workload: 3},
	}
	best, ok := Best(pickup, candidates, 0)
	if !ok {
		t.Fatal("expected a match")
	}
	if best.AgentID != "B" {
		t.Fatalf("expected idle agent B despite being farthest, got %s", best.AgentID)
	}
}

func TestBestBreaksWorkloadTieByDistance(t *testing.T) {
	candidates := []Candidate{
		{AgentID: "A", Position: atKm(2), Workload: 1},
		{AgentID: "C", Position: atKm(1), Workload: 1},
	}
	best, ok := Best(pickup, candidates, 0)
	if !ok || best.AgentID != "C" {
		t.Fatalf("expected nearest of equal-load agents, got %v ok=%v", best.AgentID, ok)
	}
}

func TestRankFiltersByRadius(t *testing.T) {
	candidates := []Candidate{
		{AgentID: "A", Position: atKm(2), Workload: 3},
		{AgentID: "B", Position: atKm(5), Workload: 0},
		{AgentID: "C", Position: atKm(1), Workload: 3},
	}
	ranked := Rank(pickup, candidates, 3)
	if len(ranked) != 2 {
		t.Fatalf("expected 2 candidates within 3km, got %d", len(ranked))
	}
	for _, c := range ranked {
		if c.AgentID == "B" {
			t.Fatal("agent B is out of range and must be dropped")
		}
	}
	// With B filtered out, equal-load C wins on distance.
	if ranked[0].AgentID != "C" {
		t.Fatalf("expected C first, got %s", ranked[0].AgentID)
	}
}

func TestBestNoCandidateInRange(t *testing.T) {
	candidates := []Candidate{
		{AgentID: "B", Position: atKm(5), Workload: 0},
	}
	if _, ok := Best(pickup, candidates, 3); ok {
		t.Fatal("no fallback radius expansion: out-of-range pool must yield no match")
	}
}

func TestBestEmptyPool(t *testing.T) {
	if _, ok := Best(pickup, nil, 0); ok {
		t.Fatal("empty pool must yield no match")
	}
}

func TestRankZeroRadiusIsUnbounded(t *testing.T) {
	candidates := []Candidate{
		{AgentID: "far", Position: atKm(900), Workload: 0},
	}
	ranked := Rank(pickup, candidates, 0)
	if len(ranked) != 1 {
		t.Fatalf("maxKm=0 must not filter, got %d candidates", len(ranked))
	}
}

func TestRankPopulatesDistance(t *testing.T) {
	ranked := Rank(pickup, []Candidate{{AgentID: "A", Position: atKm(2)}}, 0)
	if len(ranked) != 1 {
		t.Fatal("candidate lost")
	}
	if d := ranked[0].DistanceKm; d < 1.9 || d > 2.1 {
		t.Fatalf("distance %f, want ~2km", d)
	}
}

func TestRankDoesNotMutateInput(t *testing.T) {
	candidates := []Candidate{
		{AgentID: "A", Position: atKm(2), Workload: 2},
		{AgentID: "B", Position: atKm(1), Workload: 0},
	}
	Rank(pickup, candidates, 0)
	if candidates[0].AgentID != "A" || candidates[0].DistanceKm != 0 {
		t.Fatal("input slice must stay untouched")
	}
}
