// README: Agent pool query; candidate agents and their current workload in
// one read.
package matching

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"dispatch/internal/modules/order"
	"dispatch/internal/types"
)

// loadStatuses is the default "counts as load" set: orders an agent is
// actively carrying.
var loadStatuses = []string{
	string(order.StatusAgentAssigned),
	string(order.StatusConfirmed),
	string(order.StatusPickedUp),
}

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Candidates returns active, online agents with a known position, each with
// the count of active orders currently bound to them. Distance is filled in
// later by the ranking step.
func (s *Store) Candidates(ctx context.Context) ([]Candidate, error) {
	rows, err := s.db.Query(ctx, `
		SELECT a.id, a.last_lat, a.last_lng, COUNT(o.id) AS workload
		FROM agents a
		LEFT JOIN orders o ON o.agent_id = a.id AND o.status = ANY($1)
		WHERE a.status = 'active'
		  AND a.online
		  AND a.last_lat IS NOT NULL
		  AND a.last_lng IS NOT NULL
		GROUP BY a.id, a.last_lat, a.last_lng`,
		loadStatuses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		var c Candidate
		var id string
		if err := rows.Scan(&id, &c.Position.Lat, &c.Position.Lng, &c.Workload); err != nil {
			return nil, err
		}
		c.AgentID = types.ID(id)
		out = append(out, c)
	}
	return out, rows.Err()
}
