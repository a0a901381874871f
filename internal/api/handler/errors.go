package handler

import (
	"errors"
	"net/http"
	"strconv"

	"friendchat/backend/internal/apperr"
	"friendchat/backend/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const codeFileTooLarge = "file_too_large"

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation), errors.Is(err, apperr.ErrSelfRequest):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrNotFriends):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrAlreadyFriends),
		errors.Is(err, apperr.ErrRequestAlreadyPending),
		errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError aborts with {"error": <localized>, "code": <key>}.
func (h *Handler) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	code := apperr.Code(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("user_id", currentUser(c)),
			zap.Error(err))
	}

	body := gin.H{"error": h.localize(c, code), "code": code}
	if apperr.Retryable(err) {
		body["retryable"] = true
	}
	c.AbortWithStatusJSON(status, body)
}

func (h *Handler) respondCode(c *gin.Context, status int, code string) {
	c.AbortWithStatusJSON(status, gin.H{"error": h.localize(c, code), "code": code})
}

func (h *Handler) localize(c *gin.Context, code string) string {
	lang := h.Localizer.Language(c.GetHeader("Accept-Language"))
	return h.Localizer.GetString(lang, code)
}

func uintParam(c *gin.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		return 0, apperr.Validation("invalid " + name)
	}
	return uint(v), nil
}
