// README: Delivery fee rate definition and quote shapes.
package pricing

import (
	"dispatch/internal/types"
)

// Rate is one fee schedule row. IncludedKm is covered by the base fare;
// distance beyond it is charged per started PerKmUnit.
type Rate struct {
	Code           string
	BaseFare       int64
	IncludedKm     float64
	PerKmUnit      float64
	PerUnitFare    int64
	NightSurcharge int64
	Currency       string
}

// Quote is a computed delivery fee with its per-component breakdown.
type Quote struct {
	Total     types.Money
	Breakdown map[string]int64
}
