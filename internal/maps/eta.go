// README: Optional road-network ETA provider backed by the Google Maps
// Directions API.
package maps

import (
	"context"
	"fmt"
	"math"

	"googlemaps.github.io/maps"

	"dispatch/internal/types"
)

// ETAService answers "how long until the agent reaches the pickup point"
// using real routing. Callers fall back to a haversine estimate when no API
// key is configured or a lookup fails.
type ETAService struct {
	client *maps.Client
}

func NewETAService(apiKey string) (*ETAService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &ETAService{client: client}, nil
}

// EstimateMinutes returns the driving ETA between two points, rounded up to
// whole minutes.
func (s *ETAService) EstimateMinutes(ctx context.Context, from, to types.Point) (int, error) {
	r := &maps.DirectionsRequest{
		Origin:      fmt.Sprintf("%f,%f", from.Lat, from.Lng),
		Destination: fmt.Sprintf("%f,%f", to.Lat, to.Lng),
		Mode:        maps.TravelModeDriving,
	}

	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		return 0, fmt.Errorf("maps api error: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return 0, fmt.Errorf("no route found")
	}

	minutes := int(math.Ceil(routes[0].Legs[0].Duration.Minutes()))
	if minutes < 1 {
		minutes = 1
	}
	return minutes, nil
}
