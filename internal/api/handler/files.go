package handler

import (
	"errors"
	"fmt"
	"net/http"

	"friendchat/backend/internal/apperr"
	"friendchat/backend/internal/logger"
	"friendchat/backend/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// multipart framing allowance on top of the file limit
const uploadOverhead = 1 << 20

// UploadFile stores the "file" form field and returns its reference row.
func (h *Handler) UploadFile(c *gin.Context) {
	if h.Files == nil {
		h.respondError(c, apperr.Unavailable(errors.New("file store not configured")))
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxFileSize+uploadOverhead)
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.respondCode(c, http.StatusRequestEntityTooLarge, codeFileTooLarge)
			return
		}
		h.respondError(c, apperr.Validation("file field is required"))
		return
	}
	if header.Size > h.MaxFileSize {
		h.respondCode(c, http.StatusRequestEntityTooLarge, codeFileTooLarge)
		return
	}

	src, err := header.Open()
	if err != nil {
		h.respondError(c, apperr.Validation("unreadable upload"))
		return
	}
	defer src.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	ctx := c.Request.Context()
	userID := currentUser(c)
	obj, err := h.Files.Upload(ctx, header.Filename, contentType, userID, src)
	if err != nil {
		h.respondError(c, err)
		return
	}

	ref := &models.File{
		StorageKey:   obj.Key,
		OriginalName: header.Filename,
		FileType:     contentType,
		FileSize:     obj.Size,
		UploadedBy:   userID,
	}
	if err := h.FileRefs.CreateFile(ctx, ref); err != nil {
		if delErr := h.Files.Delete(ctx, obj.Key); delErr != nil {
			logger.Warn("orphaned upload", zap.String("key", obj.Key), zap.Error(delErr))
		}
		h.respondError(c, err)
		return
	}

	logger.Info("file uploaded", zap.Uint("file_id", ref.ID), zap.String("user_id", userID), zap.Int64("size", ref.FileSize))
	c.JSON(http.StatusCreated, ref)
}

func (h *Handler) FileInfo(c *gin.Context) {
	fileID, err := uintParam(c, "fileId")
	if err != nil {
		h.respondError(c, err)
		return
	}
	ref, err := h.FileRefs.GetFile(c.Request.Context(), fileID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ref)
}

func (h *Handler) DownloadFile(c *gin.Context) {
	if h.Files == nil {
		h.respondError(c, apperr.Unavailable(errors.New("file store not configured")))
		return
	}
	fileID, err := uintParam(c, "fileId")
	if err != nil {
		h.respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	ref, err := h.FileRefs.GetFile(ctx, fileID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	body, _, err := h.Files.Open(ctx, ref.StorageKey)
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer body.Close()

	c.DataFromReader(http.StatusOK, ref.FileSize, ref.FileType, body, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", ref.OriginalName),
	})
}
