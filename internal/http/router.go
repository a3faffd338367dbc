// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"dispatch/internal/http/handlers"
	"dispatch/internal/http/middleware"
)

type RouterDeps struct {
	Assigner  handlers.Assigner
	Lifecycle handlers.Lifecycle
	Locator   handlers.Locator
	Recorder  handlers.LocationRecorder
	Agents    handlers.Availability
	Finder    handlers.Finder
	Quoter    handlers.Quoter
	Log       *logrus.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(deps.Log), middleware.Logging(deps.Log))

	orderHandler := handlers.NewOrderHandler(deps.Lifecycle, deps.Locator, deps.Quoter)
	r.GET("/api/orders/quote", orderHandler.Quote)
	r.POST("/api/orders", orderHandler.Create)
	r.GET("/api/orders/:id", orderHandler.Get)
	r.GET("/api/orders/:id/location", orderHandler.Location)
	r.POST("/api/orders/:id/tracking", orderHandler.UpdateTracking)

	agentHandler := handlers.NewAgentHandler(deps.Assigner, deps.Agents, deps.Recorder)
	r.POST("/api/agents/orders/:id/accept", agentHandler.Accept)
	r.POST("/api/agents/orders/:id/reject", agentHandler.Reject)
	r.PUT("/api/agents/:id/availability", agentHandler.Availability)
	r.PUT("/api/agents/:id/location", agentHandler.ReportLocation)

	dispatchHandler := handlers.NewDispatchHandler(deps.Finder)
	r.GET("/api/dispatch/best-agent", dispatchHandler.BestAgent)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	return r
}
