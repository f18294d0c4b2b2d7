package handlers

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/noteduco342/OMChat-backend/internal/httpx"
	"github.com/noteduco342/OMChat-backend/internal/storage"
	"go.uber.org/zap"
)

type ObjectGetter interface {
	GetObject(ctx context.Context, key string) (io.ReadCloser, storage.ObjectStat, error)
}

type MediaHandler struct {
	objects ObjectGetter
	logger  *zap.Logger
}

func NewMediaHandler(objects ObjectGetter, logger *zap.Logger) *MediaHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MediaHandler{objects: objects, logger: logger}
}

func normalizeETag(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "W/")
	v = strings.Trim(v, "\"")
	return v
}

// GetAttachment streams a stored attachment. Keys are confined to the
// attachments prefix.
func (h *MediaHandler) GetAttachment(c *fiber.Ctx) error {
	if h.objects == nil {
		return httpx.Error(c, fiber.StatusServiceUnavailable, "storage_not_configured", "Storage not configured")
	}

	keyParam := strings.TrimSpace(c.Params("*"))
	key, err := storage.SafeJoinKey(storage.AttachmentPrefix, keyParam)
	if err != nil {
		return httpx.NotFound(c, "not_found", "Not found")
	}

	obj, st, err := h.objects.GetObject(c.UserContext(), key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return httpx.NotFound(c, "not_found", "Not found")
		}
		h.logger.Error("media fetch failed", zap.String("key", key), zap.Error(err))
		return httpx.Internal(c, "media_fetch_failed")
	}

	if st.ETag != "" {
		c.Set("ETag", "\""+st.ETag+"\"")
		if inm := normalizeETag(c.Get("If-None-Match")); inm != "" && inm == normalizeETag(st.ETag) {
			_ = obj.Close()
			return c.SendStatus(fiber.StatusNotModified)
		}
	}
	if !st.LastModified.IsZero() {
		c.Set("Last-Modified", st.LastModified.UTC().Format(time.RFC1123))
	}

	contentType := st.ContentType
	if contentType == "" {
		contentType = fiber.MIMEOctetStream
	}
	c.Set("Cache-Control", "private, max-age=31536000, immutable")
	c.Set("X-Content-Type-Options", "nosniff")
	c.Set(fiber.HeaderContentType, contentType)
	if !strings.HasPrefix(contentType, "image/") {
		c.Set(fiber.HeaderContentDisposition, "attachment")
	}
	if st.Size > 0 {
		c.Set("Content-Length", strconv.FormatInt(st.Size, 10))
	}

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer func() {
			_ = obj.Close()
		}()

		n, copyErr := io.Copy(w, obj)
		if copyErr == nil {
			copyErr = w.Flush()
		}
		if copyErr != nil {
			h.logger.Warn("media stream failed", zap.String("key", key), zap.Int64("copied", n), zap.Error(copyErr))
		}
	})
	return nil
}
