package handler

import (
	"net/http"

	"friendchat/backend/internal/apperr"
	"friendchat/backend/internal/logger"
	"friendchat/backend/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type friendRequestBody struct {
	ReceiverID string `json:"receiver_id" binding:"required"`
}

func (h *Handler) SearchUsers(c *gin.Context) {
	candidates, err := h.Friends.Search(c.Request.Context(), currentUser(c), c.Query("query"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, candidates)
}

// SendFriendRequest opens a request and notifies the receiver if online.
func (h *Handler) SendFriendRequest(c *gin.Context) {
	var body friendRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.respondError(c, apperr.Validation(err.Error()))
		return
	}
	ctx := c.Request.Context()
	senderID := currentUser(c)

	req, err := h.Friends.SendRequest(ctx, senderID, body.ReceiverID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	payload := models.FriendRequestPayload{RequestID: req.ID, SenderID: senderID}
	if sender, err := h.Auth.Me(ctx, senderID); err == nil {
		payload.SenderUsername = sender.Username
	} else {
		logger.Debug("sender profile lookup failed", zap.String("user_id", senderID), zap.Error(err))
	}
	h.Hub.Registry.TryPush(body.ReceiverID, models.Event{Type: models.EventFriendRequestReceived, Data: payload})

	c.JSON(http.StatusCreated, req)
}

func (h *Handler) PendingRequests(c *gin.Context) {
	requests, err := h.Friends.PendingRequests(c.Request.Context(), currentUser(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

// AcceptFriendRequest accepts and tells the original sender.
func (h *Handler) AcceptFriendRequest(c *gin.Context) {
	requestID, err := uintParam(c, "requestId")
	if err != nil {
		h.respondError(c, err)
		return
	}
	receiverID := currentUser(c)

	req, err := h.Friends.AcceptRequest(c.Request.Context(), requestID, receiverID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.Hub.Registry.TryPush(req.SenderID, models.Event{
		Type: models.EventFriendRequestAccepted,
		Data: models.FriendAcceptedPayload{RequestID: req.ID, UserID: receiverID},
	})
	c.JSON(http.StatusOK, req)
}

func (h *Handler) RejectFriendRequest(c *gin.Context) {
	requestID, err := uintParam(c, "requestId")
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.Friends.RejectRequest(c.Request.Context(), requestID, currentUser(c)); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListFriends(c *gin.Context) {
	friends, err := h.Friends.Friends(c.Request.Context(), currentUser(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, friends)
}

func (h *Handler) RemoveFriend(c *gin.Context) {
	if err := h.Friends.RemoveFriendship(c.Request.Context(), currentUser(c), c.Param("friendId")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
