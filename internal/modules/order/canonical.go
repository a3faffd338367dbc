// README: Tracking-status canonicalization performed once at the boundary.
package order

import "strings"

// synonyms maps normalized input forms onto canonical tracking statuses.
// Normalization lowercases and collapses spaces/hyphens to underscores, so
// "Picked Up", "picked-up" and "picked_up" all hit the same key.
var synonyms = map[string]TrackingStatus{
	"pending":                   TrackingPending,
	"waiting":                   TrackingPending,
	"accepted":                  TrackingAccepted,
	"agent_going_to_restaurant": TrackingGoingToRestaurant,
	"going_to_restaurant":       TrackingGoingToRestaurant,
	"on_the_way":                TrackingGoingToRestaurant,
	"arrived_at_restaurant":     TrackingArrivedAtRestaurant,
	"arrived":                   TrackingArrivedAtRestaurant,
	"at_restaurant":             TrackingArrivedAtRestaurant,
	"picked_up":                 TrackingPickedUp,
	"picked":                    TrackingPickedUp,
	"pickedup":                  TrackingPickedUp,
	"pickup":                    TrackingPickedUp,
	"in_transit":                TrackingInTransit,
	"transit":                   TrackingInTransit,
	"en_route":                  TrackingInTransit,
	"delivered":                 TrackingDelivered,
	"cancelled":                 TrackingCancelled,
	"canceled":                  TrackingCancelled,
}

// Canonical resolves a raw tracking-status string to its canonical value.
// Unrecognized input returns ErrInvalidStatus; nothing deeper in the
// pipeline re-interprets raw strings.
func Canonical(raw string) (TrackingStatus, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.ReplaceAll(key, " ", "_")
	key = strings.ReplaceAll(key, "-", "_")
	if ts, ok := synonyms[key]; ok {
		return ts, nil
	}
	return "", ErrInvalidStatus
}
