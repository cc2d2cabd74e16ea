package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pkurukuladithya/Block-Me-Messenger/internal/auth"
	"github.com/pkurukuladithya/Block-Me-Messenger/internal/config"
	"github.com/pkurukuladithya/Block-Me-Messenger/internal/core"
)

// NewServer builds an HTTP server with the relay routes. hub may be nil,
// in which case /ready omits subscriber stats.
func NewServer(relay *core.Relay, hub *core.Hub, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(relay, hub, cfg, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewRouter registers every route on a fresh gin engine.
func NewRouter(relay *core.Relay, hub *core.Hub, cfg *config.Config, logger *zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	jwtConfig := JWTConfigFrom(cfg)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	health := NewHealthHandlers(relay, hub, logger)
	router.GET("/health", health.Health)
	router.GET("/ready", health.Ready)

	ws := NewWSHandler(relay, jwtConfig, WSOptions{
		MaxMessageBytes: cfg.MaxMessageBytes,
		RatePerMinute:   cfg.Relay.RatePerMinute,
	}, logger)
	router.GET("/ws/chat/:room", ws.Handle)
	router.GET("/ws/chat/:room/", ws.Handle)

	rooms := NewRoomHandlers(relay, logger)
	identity := IdentityMiddleware(jwtConfig, logger)
	for _, prefix := range []string{"/chat/messages", "/api/chat/messages"} {
		group := router.Group(prefix, identity)
		group.GET("/:room", rooms.ListMessages)
		group.GET("/:room/", rooms.ListMessages)
		group.POST("/:room", rooms.PostMessage)
		group.POST("/:room/", rooms.PostMessage)
	}

	return router
}

// JWTConfigFrom returns the verifier settings, or nil when no secret is configured.
func JWTConfigFrom(cfg *config.Config) *auth.JWTConfig {
	if cfg.Auth.JWTSecret == "" {
		return nil
	}
	return &auth.JWTConfig{
		Secret:   []byte(cfg.Auth.JWTSecret),
		Issuer:   cfg.Auth.JWTIssuer,
		Audience: cfg.Auth.JWTAudience,
	}
}
