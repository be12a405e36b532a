package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pixelforge/nexus/internal/middleware"
	"github.com/pixelforge/nexus/internal/services"
	"github.com/pixelforge/nexus/pkg/logger"
)

const sseKeepAlive = 25 * time.Second

// SSEHandler handles Server-Sent Events for real-time updates
type SSEHandler struct {
	hub *services.EventHub
}

func NewSSEHandler(hub *services.EventHub) *SSEHandler {
	return &SSEHandler{hub: hub}
}

// StreamEvents streams project change events the caller may see
// GET /api/events
func (h *SSEHandler) StreamEvents(c *gin.Context) {
	id, _ := middleware.GetIdentity(c)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	clientID := uuid.New().String()

	events := h.hub.Subscribe(clientID, id)
	defer h.hub.Unsubscribe(clientID)

	logger.Info().Str("client_id", clientID).Str("user_id", id.ID).Int("total", h.hub.ClientCount()).Msg("SSE client connected")

	ticker := time.NewTicker(sseKeepAlive)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-events:
			if !ok {
				return false
			}
			data, err := json.Marshal(event)
			if err != nil {
				logger.Error().Err(err).Msg("SSE marshal error")
				return true
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			c.Writer.Flush()
			return true
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			c.Writer.Flush()
			return true
		case <-c.Request.Context().Done():
			logger.Info().Str("client_id", clientID).Msg("SSE client disconnected")
			return false
		}
	})
}
