package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pkurukuladithya/Block-Me-Messenger/internal/core"
	"github.com/pkurukuladithya/Block-Me-Messenger/internal/proto"
)

// HealthHandlers reports liveness and readiness.
type HealthHandlers struct {
	relay *core.Relay
	hub   *core.Hub
	log   *zerolog.Logger
}

// NewHealthHandlers creates health handlers. hub may be nil.
func NewHealthHandlers(relay *core.Relay, hub *core.Hub, logger *zerolog.Logger) *HealthHandlers {
	return &HealthHandlers{relay: relay, hub: hub, log: logger}
}

// ReadyResponse is the body of GET /ready.
type ReadyResponse struct {
	Status string      `json:"status"`
	Detail string      `json:"detail,omitempty"`
	Stats  *core.Stats `json:"stats,omitempty"`
}

// Health always answers ok while the process serves requests.
// GET /health
func (h *HealthHandlers) Health(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// Ready checks that the message store answers.
// GET /ready
func (h *HealthHandlers) Ready(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.relay.Ping(ctx); err != nil {
		h.log.Warn().Err(err).Msg("store not ready")
		c.JSON(http.StatusServiceUnavailable, ReadyResponse{
			Status: "unavailable",
			Detail: proto.DetailDatabaseUnavailable,
		})
		return
	}

	resp := ReadyResponse{Status: "ok"}
	if h.hub != nil {
		if stats, err := h.hub.Stats(ctx); err == nil {
			resp.Stats = &stats
		}
	}
	c.JSON(http.StatusOK, resp)
}
