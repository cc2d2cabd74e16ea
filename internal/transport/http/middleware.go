package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pkurukuladithya/Block-Me-Messenger/internal/auth"
	"github.com/pkurukuladithya/Block-Me-Messenger/internal/proto"
)

const (
	// ContextKeyIdentity is the context key for storing the caller's display name.
	ContextKeyIdentity = "identity"
	// HeaderChatUser names the caller when token verification is disabled.
	HeaderChatUser = "X-Chat-User"
)

// IdentityMiddleware resolves who is calling. With a JWT config every request
// must carry a valid bearer token; without one the X-Chat-User header is
// trusted and missing names fall back to anonymous.
func IdentityMiddleware(jwtConfig *auth.JWTConfig, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !jwtConfig.Enabled() {
			c.Set(ContextKeyIdentity, headerIdentity(c))
			c.Next()
			return
		}

		claims, err := auth.ValidateToken(jwtConfig, auth.BearerToken(c.GetHeader("Authorization")))
		if err != nil {
			logger.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("rejected token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, proto.Detail{Detail: proto.DetailUnauthorized})
			return
		}

		c.Set(ContextKeyIdentity, claims.Identity())
		c.Next()
	}
}

// identityFrom returns the identity stored by IdentityMiddleware.
func identityFrom(c *gin.Context) string {
	if name := c.GetString(ContextKeyIdentity); name != "" {
		return name
	}
	return proto.AnonymousSender
}

func headerIdentity(c *gin.Context) string {
	if name := strings.TrimSpace(c.GetHeader(HeaderChatUser)); name != "" {
		return name
	}
	return proto.AnonymousSender
}

// LoggerMiddleware creates a middleware that logs HTTP requests.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("http request")
	}
}
