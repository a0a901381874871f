package handler

import (
	"net/http"

	"friendchat/backend/internal/apperr"
	"friendchat/backend/internal/delivery"

	"github.com/gin-gonic/gin"
)

type sendMessageBody struct {
	ReceiverID  string `json:"receiver_id" binding:"required"`
	Content     string `json:"content"`
	MessageType string `json:"message_type"`
	FileID      *uint  `json:"file_id"`
	ClientRef   string `json:"client_ref"`
}

func (h *Handler) SendMessage(c *gin.Context) {
	var body sendMessageBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.respondError(c, apperr.Validation(err.Error()))
		return
	}

	msg, err := h.Messages.SendMessage(c.Request.Context(), delivery.SendInput{
		SenderID:    currentUser(c),
		ReceiverID:  body.ReceiverID,
		Content:     body.Content,
		MessageType: body.MessageType,
		FileID:      body.FileID,
		ClientRef:   body.ClientRef,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// History returns the conversation with :userId and marks it read.
func (h *Handler) History(c *gin.Context) {
	msgs, err := h.Messages.FetchHistory(c.Request.Context(), currentUser(c), c.Param("userId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

func (h *Handler) UnreadCount(c *gin.Context) {
	n, err := h.Ledger.UnreadCount(c.Request.Context(), currentUser(c), c.Param("userId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": n})
}

func (h *Handler) MarkRead(c *gin.Context) {
	n, err := h.Ledger.MarkRead(c.Request.Context(), currentUser(c), c.Param("userId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked": n})
}

func (h *Handler) Conversations(c *gin.Context) {
	convs, err := h.Messages.ListConversations(c.Request.Context(), currentUser(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, convs)
}
