// README: Location store; Postgres history and projection plus a Redis GEO
// mirror for hot reads.
package location

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"dispatch/internal/types"
)

const agentGeoKey = "dispatch:agents:geo"

var ErrNoPosition = errors.New("no known position for agent")

type Store struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func NewStore(db *pgxpool.Pool, redisClient *redis.Client) *Store {
	return &Store{db: db, redis: redisClient}
}

// AppendSample writes one immutable history row.
func (s *Store) AppendSample(ctx context.Context, sample Sample) error {
	var orderID *string
	if sample.OrderID != nil {
		v := string(*sample.OrderID)
		orderID = &v
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO agent_location_samples (id, agent_id, order_id, lat, lng, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		sample.ID, string(sample.AgentID), orderID,
		sample.Position.Lat, sample.Position.Lng, sample.RecordedAt)
	return err
}

// SetProjection overwrites the agent's live position: the durable column on
// the agent row, mirrored into Redis GEO for hot reads.
func (s *Store) SetProjection(ctx context.Context, agentID types.ID, pos types.Point) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE agents SET last_lat = $2, last_lng = $3, updated_at = NOW() WHERE id = $1`,
		string(agentID), pos.Lat, pos.Lng)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	// Mirror failure is tolerable; the Postgres projection is authoritative
	// and the GEO read path falls back to it.
	_ = s.redis.GeoAdd(ctx, agentGeoKey, &redis.GeoLocation{
		Name:      string(agentID),
		Longitude: pos.Lng,
		Latitude:  pos.Lat,
	}).Err()
	return nil
}

// Projection reads the agent's live position, Redis first.
func (s *Store) Projection(ctx context.Context, agentID types.ID) (types.Point, time.Time, error) {
	if positions, err := s.redis.GeoPos(ctx, agentGeoKey, string(agentID)).Result(); err == nil &&
		len(positions) == 1 && positions[0] != nil {
		return types.Point{Lat: positions[0].Latitude, Lng: positions[0].Longitude}, time.Now(), nil
	}

	var lat, lng *float64
	var updatedAt time.Time
	err := s.db.QueryRow(ctx, `
		SELECT last_lat, last_lng, updated_at FROM agents WHERE id = $1`,
		string(agentID)).Scan(&lat, &lng, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return types.Point{}, time.Time{}, ErrNoPosition
	}
	if err != nil {
		return types.Point{}, time.Time{}, err
	}
	if lat == nil || lng == nil {
		return types.Point{}, time.Time{}, ErrNoPosition
	}
	return types.Point{Lat: *lat, Lng: *lng}, updatedAt, nil
}
