package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pkurukuladithya/Block-Me-Messenger/internal/auth"
	"github.com/pkurukuladithya/Block-Me-Messenger/internal/core"
	"github.com/pkurukuladithya/Block-Me-Messenger/internal/proto"
)

// WSOptions tunes room connections.
type WSOptions struct {
	MaxMessageBytes int64
	RatePerMinute   int
}

// WSHandler upgrades HTTP connections and bridges them to a core.Session.
type WSHandler struct {
	relay *core.Relay
	jwt   *auth.JWTConfig
	opts  WSOptions
	log   *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler. jwtConfig may be nil.
func NewWSHandler(relay *core.Relay, jwtConfig *auth.JWTConfig, opts WSOptions, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{relay: relay, jwt: jwtConfig, opts: opts, log: logger}
}

// Handle serves GET /ws/chat/:room/.
func (h *WSHandler) Handle(c *gin.Context) {
	room := c.Param("room")

	identity, err := h.identity(c)
	if err != nil {
		h.log.Debug().Err(err).Str("room", room).Msg("ws token rejected")
		c.AbortWithStatusJSON(stdhttp.StatusUnauthorized, proto.Detail{Detail: proto.DetailUnauthorized})
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	session := core.NewSession(room, h.relay, core.SessionOptions{
		Identity:      identity,
		RatePerMinute: h.opts.RatePerMinute,
	}, h.log)
	defer session.Close(ctx)

	// Subscribe before accepting so no broadcast published after the
	// handshake is missed.
	if err := session.Open(ctx); err != nil {
		h.log.Warn().Err(err).Str("room", room).Msg("session open failed")
		c.AbortWithStatusJSON(stdhttp.StatusServiceUnavailable, proto.Detail{Detail: proto.DetailRoomUnavailable})
		return
	}

	conn, err := websocket.Accept(hijackWriter(c), c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	if h.opts.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.opts.MaxMessageBytes)
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, session)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, session)
	}()

	err = <-errCh
	session.Close(ctx)
	cancel()
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = "connection error"
			h.log.Warn().Err(err).Str("session_id", session.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

// hijackWriter returns the writer underneath gin's. gin refuses to hijack
// once a status was written, and Accept writes 101 before hijacking.
func hijackWriter(c *gin.Context) stdhttp.ResponseWriter {
	var w stdhttp.ResponseWriter = c.Writer
	if u, ok := c.Writer.(interface{ Unwrap() stdhttp.ResponseWriter }); ok {
		w = u.Unwrap()
	}
	return w
}

// identity returns the verified name from ?token= or the Authorization header.
// No token means the payload sender (or anonymous) is used.
func (h *WSHandler) identity(c *gin.Context) (string, error) {
	token := c.Query("token")
	if token == "" {
		token = auth.BearerToken(c.GetHeader("Authorization"))
	}
	if token == "" {
		return "", nil
	}
	if !h.jwt.Enabled() {
		return "", nil
	}
	claims, err := auth.ValidateToken(h.jwt, token)
	if err != nil {
		return "", err
	}
	return claims.Identity(), nil
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, session *core.Session) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		var inbound proto.Inbound
		if err := json.Unmarshal(data, &inbound); err != nil {
			h.log.Debug().Err(err).Str("session_id", session.ID).Msg("invalid ws payload")
			if err := wsjson.Write(ctx, conn, proto.Detail{Detail: proto.DetailInvalidPayload}); err != nil {
				return err
			}
			continue
		}

		notice, err := session.Receive(ctx, inbound)
		if err != nil {
			return err
		}
		if notice != nil {
			if err := wsjson.Write(ctx, conn, notice); err != nil {
				return err
			}
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, session *core.Session) error {
	events := session.Events()
	for {
		select {
		case event := <-events:
			if !session.Deliverable() {
				continue
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("session_id", session.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
