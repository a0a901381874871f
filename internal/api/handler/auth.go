package handler

import (
	"net/http"

	"friendchat/backend/internal/apperr"
	"friendchat/backend/internal/logger"
	"friendchat/backend/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type authResponse struct {
	Token string         `json:"token"`
	User  models.Profile `json:"user"`
}

func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperr.Validation(err.Error()))
		return
	}

	user, token, err := h.Auth.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}
	logger.Info("user registered", zap.String("user_id", user.ID))
	c.JSON(http.StatusCreated, authResponse{Token: token, User: user.Profile()})
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperr.Validation(err.Error()))
		return
	}

	user, token, err := h.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, authResponse{Token: token, User: user.Profile()})
}

func (h *Handler) Me(c *gin.Context) {
	user, err := h.Auth.Me(c.Request.Context(), currentUser(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user.Profile())
}

// Logout closes the caller's live session; its pump publishes offline.
// Without a live session the user is marked offline directly.
func (h *Handler) Logout(c *gin.Context) {
	userID := currentUser(c)
	if !h.Hub.Kick(userID) {
		if err := h.Hub.MarkOffline(c.Request.Context(), userID); err != nil {
			h.respondError(c, err)
			return
		}
	}
	c.Status(http.StatusNoContent)
}
