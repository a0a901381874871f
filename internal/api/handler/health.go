package handler

import (
	"net/http"

	"friendchat/backend/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *Handler) Health(c *gin.Context) {
	body := gin.H{
		"status":      "ok",
		"connections": h.Hub.Registry.Len(),
	}
	if h.Presence != nil {
		online, err := h.Presence.OnlineCount(c.Request.Context())
		if err != nil {
			logger.Warn("presence cache unreachable", zap.Error(err))
			body["presence_cache"] = "unavailable"
		} else {
			body["online"] = online
		}
	}
	c.JSON(http.StatusOK, body)
}
