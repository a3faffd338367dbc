// README: Auto-dispatch support handler: speculative best-agent lookup.
package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"dispatch/internal/types"
)

// Finder ranks the current agent pool against a pickup point.
type Finder interface {
	FindBestAgent(ctx context.Context, pickup types.Point, maxKm float64) (types.ID, bool, error)
}

type DispatchHandler struct {
	finder Finder
}

func NewDispatchHandler(finder Finder) *DispatchHandler {
	return &DispatchHandler{finder: finder}
}

func (h *DispatchHandler) BestAgent(c *gin.Context) {
	lat, err1 := strconv.ParseFloat(c.Query("pickup_lat"), 64)
	lng, err2 := strconv.ParseFloat(c.Query("pickup_lng"), 64)
	if err1 != nil || err2 != nil {
		writeError(c, http.StatusBadRequest, "BAD_REQUEST", "pickup_lat and pickup_lng required")
		return
	}
	maxKm := 0.0
	if v := c.Query("max_km"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			maxKm = parsed
		}
	}

	agentID, found, err := h.finder.FindBestAgent(c.Request.Context(), types.Point{Lat: lat, Lng: lng}, maxKm)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if !found {
		writeJSON(c, http.StatusOK, gin.H{"found": false})
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"found": true, "agent_id": agentID})
}
