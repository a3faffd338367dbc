// README: Agent store backed by PostgreSQL; row-lock reads for the
// assignment path plus plain availability writes.
package agent

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dispatch/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const agentColumns = `id, online, busy, status, last_lat, last_lng, updated_at`

func scanAgent(row pgx.Row) (*Agent, error) {
	var a Agent
	var status string
	var lat, lng *float64
	err := row.Scan(&a.ID, &a.Online, &a.Busy, &status, &lat, &lng, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.Status = OperationalStatus(status)
	if lat != nil && lng != nil {
		a.Location = &types.Point{Lat: *lat, Lng: *lng}
	}
	return &a, nil
}

func (s *Store) Create(ctx context.Context, a *Agent) error {
	var lat, lng *float64
	if a.Location != nil {
		lat, lng = &a.Location.Lat, &a.Location.Lng
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO agents (id, online, busy, status, last_lat, last_lng, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		string(a.ID), a.Online, a.Busy, string(a.Status), lat, lng, time.Now())
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Agent, error) {
	row := s.db.QueryRow(ctx, `SELECT `+agentColumns+` FROM agents WHERE id = $1`, string(id))
	return scanAgent(row)
}

// GetForUpdate loads the agent under an exclusive row lock. Must be called
// inside a transaction; the lock is held until commit or rollback.
func (s *Store) GetForUpdate(ctx context.Context, tx pgx.Tx, id types.ID) (*Agent, error) {
	row := tx.QueryRow(ctx, `SELECT `+agentColumns+` FROM agents WHERE id = $1 FOR UPDATE`, string(id))
	return scanAgent(row)
}

// SetBusyTx flips the busy flag inside the caller's transaction.
func (s *Store) SetBusyTx(ctx context.Context, tx pgx.Tx, id types.ID, busy bool) error {
	tag, err := tx.Exec(ctx, `
		UPDATE agents SET busy = $2, updated_at = NOW() WHERE id = $1`,
		string(id), busy)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetOnline toggles availability. Going offline does not touch busy; an
// agent mid-delivery stays bound to their order.
func (s *Store) SetOnline(ctx context.Context, id types.ID, online bool) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE agents SET online = $2, updated_at = NOW() WHERE id = $1`,
		string(id), online)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateProjection overwrites the current-coordinates projection.
func (s *Store) UpdateProjection(ctx context.Context, id types.ID, pos types.Point) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE agents SET last_lat = $2, last_lng = $3, updated_at = NOW() WHERE id = $1`,
		string(id), pos.Lat, pos.Lng)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
