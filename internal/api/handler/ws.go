package handler

import (
	"friendchat/backend/internal/chathub"
	"friendchat/backend/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ServeWebSocket upgrades an authenticated request and hands the
// connection to the hub.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	userID := currentUser(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader has already written the error response
		logger.Warn("websocket upgrade failed", zap.String("user_id", userID), zap.Error(err))
		return
	}

	client := chathub.NewWebSocketClient(conn, userID, h.Hub)
	h.Hub.Connect(c.Request.Context(), client)
	client.Run()
}
