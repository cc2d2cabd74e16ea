package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pkurukuladithya/Block-Me-Messenger/internal/core"
	"github.com/pkurukuladithya/Block-Me-Messenger/internal/proto"
)

// RoomHandlers serves the message history of a room and offline submissions.
type RoomHandlers struct {
	relay *core.Relay
	log   *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(relay *core.Relay, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		relay: relay,
		log:   logger,
	}
}

// ListMessages returns the stored messages of a room, oldest first.
// GET /chat/messages/:room/
func (h *RoomHandlers) ListMessages(c *gin.Context) {
	room := c.Param("room")

	messages, err := h.relay.History(c.Request.Context(), room)
	if err != nil {
		status, body := historyFailure(err)
		c.JSON(status, body)
		return
	}

	h.log.Debug().Str("room", room).Int("count", len(messages)).Msg("history served")
	c.JSON(http.StatusOK, messages)
}

// PostMessage stores a message and broadcasts it to live connections of the room.
// POST /chat/messages/:room/
func (h *RoomHandlers) PostMessage(c *gin.Context) {
	room := c.Param("room")

	var req proto.InjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Str("room", room).Msg("invalid message body")
		c.JSON(http.StatusBadRequest, proto.Detail{Detail: proto.DetailTextRequired})
		return
	}

	sender := identityFrom(c)
	msg, err := h.relay.Send(c.Request.Context(), room, sender, req.Text)
	if err != nil {
		status, body := sendFailure(err)
		c.JSON(status, body)
		return
	}

	h.log.Info().Str("room", room).Str("sender", sender).Msg("message injected")
	c.JSON(http.StatusCreated, msg)
}
