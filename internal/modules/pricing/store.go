// README: Rate store backed by PostgreSQL.
package pricing

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrRateNotFound = errors.New("delivery rate not found")

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) GetRate(ctx context.Context, code string) (Rate, error) {
	var r Rate
	err := s.db.QueryRow(ctx, `
		SELECT code, base_fare, included_km, per_km_unit, per_unit_fare, night_surcharge, currency
		FROM delivery_rates WHERE code = $1`, code).
		Scan(&r.Code, &r.BaseFare, &r.IncludedKm, &r.PerKmUnit, &r.PerUnitFare, &r.NightSurcharge, &r.Currency)
	if errors.Is(err, pgx.ErrNoRows) {
		return Rate{}, ErrRateNotFound
	}
	if err != nil {
		return Rate{}, err
	}
	return r, nil
}
