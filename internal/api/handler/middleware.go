package handler

import (
	"strings"
	"time"

	"friendchat/backend/internal/apperr"
	"friendchat/backend/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const ctxUserID = "userID"

// RequireAuth resolves the bearer token to a user ID. Websocket clients
// that cannot set headers pass the token as ?token=.
func (h *Handler) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			h.respondError(c, apperr.ErrUnauthorized)
			return
		}
		userID, err := h.Auth.Authenticate(token)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.Set(ctxUserID, userID)
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	if bearer := c.GetHeader("Authorization"); strings.HasPrefix(bearer, "Bearer ") {
		return strings.TrimPrefix(bearer, "Bearer ")
	}
	return c.Query("token")
}

func currentUser(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

// RequestLogger writes one access log line per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if uid := currentUser(c); uid != "" {
			fields = append(fields, zap.String("user_id", uid))
		}
		if c.Writer.Status() >= 500 {
			logger.Warn("request", fields...)
			return
		}
		logger.Info("request", fields...)
	}
}
