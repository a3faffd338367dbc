// README: Delivery fee quotes: base fare, distance units and a night
// surcharge applied on top.
package pricing

import (
	"context"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"dispatch/internal/geo"
	"dispatch/internal/types"
)

// RateSource resolves a fee schedule by code.
type RateSource interface {
	GetRate(ctx context.Context, code string) (Rate, error)
}

type Service struct {
	rates RateSource
	log   *logrus.Logger
}

func NewService(rates RateSource, log *logrus.Logger) *Service {
	return &Service{rates: rates, log: log}
}

// DefaultRateCode is used when the caller does not pick a schedule.
const DefaultRateCode = "standard"

// Estimate computes the fee for a straight-line distance at a given time.
func (s *Service) Estimate(ctx context.Context, distanceKm float64, at time.Time, code string) (Quote, error) {
	if code == "" {
		code = DefaultRateCode
	}
	rate, err := s.rates.GetRate(ctx, code)
	if err != nil {
		return Quote{}, err
	}

	breakdown := map[string]int64{"base": rate.BaseFare}
	total := rate.BaseFare

	if excess := distanceKm - rate.IncludedKm; excess > 0 && rate.PerKmUnit > 0 {
		units := int64(math.Ceil(excess / rate.PerKmUnit))
		distanceFare := units * rate.PerUnitFare
		breakdown["distance"] = distanceFare
		total += distanceFare
	}

	if isNight(at) && rate.NightSurcharge > 0 {
		breakdown["night"] = rate.NightSurcharge
		total += rate.NightSurcharge
	}

	return Quote{
		Total:     types.Money{Amount: total, Currency: rate.Currency},
		Breakdown: breakdown,
	}, nil
}

// EstimateRoute quotes a pickup→dropoff pair using haversine distance.
func (s *Service) EstimateRoute(ctx context.Context, pickup, dropoff types.Point, at time.Time, code string) (Quote, error) {
	return s.Estimate(ctx, geo.HaversineKm(pickup, dropoff), at, code)
}

// Night hours are 22:00 up to 06:00 local time.
func isNight(at time.Time) bool {
	h := at.Hour()
	return h >= 22 || h < 6
}
