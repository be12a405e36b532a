package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pixelforge/nexus/internal/services"
)

const healthPingTimeout = 2 * time.Second

// Pinger reports store connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler provides the health check endpoint.
type HealthHandler struct {
	db  Pinger
	hub *services.EventHub
}

func NewHealthHandler(db Pinger, hub *services.EventHub) *HealthHandler {
	return &HealthHandler{db: db, hub: hub}
}

// CheckHealth returns the health status of all subsystems.
// GET /health
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"
	status := http.StatusOK

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
	defer cancel()

	dbStatus := "ok"
	if err := h.db.Ping(ctx); err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":  overall,
		"service": "pixelforge-nexus",
		"components": gin.H{
			"database":    dbStatus,
			"sse_clients": h.hub.ClientCount(),
		},
	})
}
