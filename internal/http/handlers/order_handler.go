// README: Order handlers: creation, reads (the poll-fallback path) and
// tracking updates.
package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"dispatch/internal/modules/location"
	"dispatch/internal/modules/order"
	"dispatch/internal/modules/pricing"
	"dispatch/internal/types"
)

// Lifecycle is the order state machine surface.
type Lifecycle interface {
	Create(ctx context.Context, cmd order.CreateCommand) (types.ID, error)
	Get(ctx context.Context, id types.ID) (*order.Order, error)
	UpdateTracking(ctx context.Context, cmd order.UpdateCommand) (*order.Order, error)
}

// Locator answers "where is my order right now".
type Locator interface {
	CurrentByOrder(ctx context.Context, orderID types.ID) (*location.Current, error)
}

// Quoter estimates the delivery fee for a route.
type Quoter interface {
	EstimateRoute(ctx context.Context, pickup, dropoff types.Point, at time.Time, code string) (pricing.Quote, error)
}

type OrderHandler struct {
	lifecycle Lifecycle
	locator   Locator
	quoter    Quoter
}

func NewOrderHandler(lifecycle Lifecycle, locator Locator, quoter Quoter) *OrderHandler {
	return &OrderHandler{lifecycle: lifecycle, locator: locator, quoter: quoter}
}

type createOrderRequest struct {
	CustomerID   string       `json:"customer_id" binding:"required"`
	RestaurantID string       `json:"restaurant_id" binding:"required"`
	PickupLat    float64      `json:"pickup_lat"`
	PickupLng    float64      `json:"pickup_lng"`
	DropoffLat   float64      `json:"dropoff_lat"`
	DropoffLng   float64      `json:"dropoff_lng"`
	TotalAmount  int64        `json:"total_amount"`
	Currency     string       `json:"currency"`
	Items        []order.Item `json:"items"`
}

func (h *OrderHandler) Create(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	id, err := h.lifecycle.Create(c.Request.Context(), order.CreateCommand{
		CustomerID:   types.ID(req.CustomerID),
		RestaurantID: types.ID(req.RestaurantID),
		Pickup:       types.Point{Lat: req.PickupLat, Lng: req.PickupLng},
		Dropoff:      types.Point{Lat: req.DropoffLat, Lng: req.DropoffLng},
		Total:        types.Money{Amount: req.TotalAmount, Currency: req.Currency},
		Items:        req.Items,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"order_id": id})
}

func (h *OrderHandler) Get(c *gin.Context) {
	o, err := h.lifecycle.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toOrderResponse(o))
}

type trackingRequest struct {
	AgentID string   `json:"agent_id"`
	Status  string   `json:"status" binding:"required"`
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
	Reason  *string  `json:"reason"`
}

func (h *OrderHandler) UpdateTracking(c *gin.Context) {
	var req trackingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "BAD_REQUEST", "status required")
		return
	}
	o, err := h.lifecycle.UpdateTracking(c.Request.Context(), order.UpdateCommand{
		OrderID:   types.ID(c.Param("id")),
		ActorID:   types.ID(req.AgentID),
		RawStatus: req.Status,
		Lat:       req.Lat,
		Lng:       req.Lng,
		Reason:    req.Reason,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": "ok", "order": toOrderResponse(o)})
}

func (h *OrderHandler) Quote(c *gin.Context) {
	pickupLat, err1 := strconv.ParseFloat(c.Query("pickup_lat"), 64)
	pickupLng, err2 := strconv.ParseFloat(c.Query("pickup_lng"), 64)
	dropoffLat, err3 := strconv.ParseFloat(c.Query("dropoff_lat"), 64)
	dropoffLng, err4 := strconv.ParseFloat(c.Query("dropoff_lng"), 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		writeError(c, http.StatusBadRequest, "BAD_REQUEST", "pickup and dropoff coordinates required")
		return
	}
	q, err := h.quoter.EstimateRoute(c.Request.Context(),
		types.Point{Lat: pickupLat, Lng: pickupLng},
		types.Point{Lat: dropoffLat, Lng: dropoffLng},
		time.Now(), c.Query("rate"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{
		"total":     q.Total.Amount,
		"currency":  q.Total.Currency,
		"breakdown": q.Breakdown,
	})
}

func (h *OrderHandler) Location(c *gin.Context) {
	cur, err := h.locator.CurrentByOrder(c.Request.Context(), types.ID(c.Param("id")))
	if err == location.ErrNoAgent {
		writeJSON(c, http.StatusOK, gin.H{"agent_assigned": false})
		return
	}
	if err == location.ErrNoPosition {
		writeJSON(c, http.StatusOK, gin.H{"agent_assigned": true, "position_known": false})
		return
	}
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{
		"agent_assigned": true,
		"position_known": true,
		"agent_id":       cur.AgentID,
		"lat":            cur.Position.Lat,
		"lng":            cur.Position.Lng,
		"updated_at":     cur.UpdatedAt.UTC(),
	})
}
