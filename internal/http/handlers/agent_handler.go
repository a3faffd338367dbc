// README: Agent-facing handlers: accept/reject offers, availability and
// location reporting.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"dispatch/internal/modules/order"
	"dispatch/internal/types"
)

// Assigner is the coordinator's locked accept path.
type Assigner interface {
	TryAssign(ctx context.Context, orderID, agentID types.ID) (*order.Order, error)
	Reject(ctx context.Context, orderID, agentID types.ID, reason string) error
}

// Availability toggles an agent's online flag.
type Availability interface {
	SetAvailability(ctx context.Context, id types.ID, online bool) error
}

// LocationRecorder appends to the location ledger.
type LocationRecorder interface {
	Record(ctx context.Context, agentID types.ID, orderID *types.ID, lat, lng float64) error
}

type AgentHandler struct {
	assigner Assigner
	agents   Availability
	location LocationRecorder
}

func NewAgentHandler(assigner Assigner, agents Availability, location LocationRecorder) *AgentHandler {
	return &AgentHandler{assigner: assigner, agents: agents, location: location}
}

type acceptRequest struct {
	AgentID string `json:"agent_id" binding:"required"`
}

func (h *AgentHandler) Accept(c *gin.Context) {
	orderID := c.Param("id")
	var req acceptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "BAD_REQUEST", "agent_id required")
		return
	}
	o, err := h.assigner.TryAssign(c.Request.Context(), types.ID(orderID), types.ID(req.AgentID))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": "assigned", "order": toOrderResponse(o)})
}

type rejectRequest struct {
	AgentID string `json:"agent_id" binding:"required"`
	Reason  string `json:"reason"`
}

func (h *AgentHandler) Reject(c *gin.Context) {
	orderID := c.Param("id")
	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "BAD_REQUEST", "agent_id required")
		return
	}
	if err := h.assigner.Reject(c.Request.Context(), types.ID(orderID), types.ID(req.AgentID), req.Reason); err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": "rejected"})
}

type availabilityRequest struct {
	Online *bool `json:"online" binding:"required"`
}

func (h *AgentHandler) Availability(c *gin.Context) {
	id := c.Param("id")
	var req availabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "BAD_REQUEST", "online required")
		return
	}
	if err := h.agents.SetAvailability(c.Request.Context(), types.ID(id), *req.Online); err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": "ok"})
}

type locationRequest struct {
	OrderID string `json:"order_id"`
	// Pointers so the equator and the prime meridian survive the
	// required check.
	Lat *float64 `json:"lat" binding:"required"`
	Lng *float64 `json:"lng" binding:"required"`
}

func (h *AgentHandler) ReportLocation(c *gin.Context) {
	id := c.Param("id")
	var req locationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "BAD_REQUEST", "lat/lng required")
		return
	}
	var orderID *types.ID
	if req.OrderID != "" {
		v := types.ID(req.OrderID)
		orderID = &v
	}
	if err := h.location.Record(c.Request.Context(), types.ID(id), orderID, *req.Lat, *req.Lng); err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": "ok"})
}
