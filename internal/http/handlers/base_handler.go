// README: Base handler utilities: JSON helpers and the error→code mapping
// surfaced to clients.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dispatch/internal/modules/agent"
	"dispatch/internal/modules/location"
	"dispatch/internal/modules/order"
	"dispatch/internal/modules/pricing"
	"dispatch/internal/types"
)

type errorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, code, msg string) {
	writeJSON(c, status, errorResponse{Code: code, Error: msg})
}

// writeDomainError maps business rejections to stable machine codes.
// Transient failures map to 503 so callers know a retry is safe; business
// rejections must not be retried blindly.
func writeDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, agent.ErrNotFound):
		writeError(c, http.StatusNotFound, "AGENT_NOT_FOUND", err.Error())
	case errors.Is(err, agent.ErrOffline):
		writeError(c, http.StatusConflict, "AGENT_OFFLINE", err.Error())
	case errors.Is(err, agent.ErrBusy):
		writeError(c, http.StatusConflict, "AGENT_BUSY", err.Error())
	case errors.Is(err, order.ErrNotFound):
		writeError(c, http.StatusNotFound, "ORDER_NOT_FOUND", err.Error())
	case errors.Is(err, order.ErrTaken):
		writeError(c, http.StatusConflict, "ORDER_TAKEN", err.Error())
	case errors.Is(err, order.ErrNotWaiting):
		writeError(c, http.StatusConflict, "ORDER_NOT_WAITING", err.Error())
	case errors.Is(err, order.ErrTerminal):
		writeError(c, http.StatusConflict, "ORDER_TERMINAL", err.Error())
	case errors.Is(err, order.ErrInvalidStatus):
		writeError(c, http.StatusUnprocessableEntity, "INVALID_STATUS", err.Error())
	case errors.Is(err, order.ErrUnauthorized):
		writeError(c, http.StatusForbidden, "UNAUTHORIZED", err.Error())
	case errors.Is(err, pricing.ErrRateNotFound):
		writeError(c, http.StatusNotFound, "RATE_NOT_FOUND", err.Error())
	case errors.Is(err, order.ErrBadRequest), errors.Is(err, location.ErrBadCoordinate):
		writeError(c, http.StatusBadRequest, "BAD_REQUEST", err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		writeError(c, http.StatusServiceUnavailable, "RETRY", "transient failure, retry")
	default:
		writeError(c, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}

type orderResponse struct {
	ID             types.ID  `json:"id"`
	CustomerID     types.ID  `json:"customer_id"`
	RestaurantID   types.ID  `json:"restaurant_id"`
	AgentID        *types.ID `json:"agent_id,omitempty"`
	Status         string    `json:"status"`
	TrackingStatus string    `json:"tracking_status"`
	AssignedAt     *string   `json:"assigned_at,omitempty"`
	PickedUpAt     *string   `json:"picked_up_at,omitempty"`
	DeliveredAt    *string   `json:"delivered_at,omitempty"`
}

func toOrderResponse(o *order.Order) orderResponse {
	return orderResponse{
		ID:             o.ID,
		CustomerID:     o.CustomerID,
		RestaurantID:   o.RestaurantID,
		AgentID:        o.AgentID,
		Status:         string(o.Status),
		TrackingStatus: string(o.Tracking),
		AssignedAt:     fmtTime(o.AssignedAt),
		PickedUpAt:     fmtTime(o.PickedUpAt),
		DeliveredAt:    fmtTime(o.DeliveredAt),
	}
}

func fmtTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
