package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/noteduco342/OMChat-backend/internal/httpx"
	"github.com/noteduco342/OMChat-backend/internal/service"
	"github.com/noteduco342/OMChat-backend/internal/storage"
	"go.uber.org/zap"
)

// respondError maps service and storage errors onto HTTP responses. Anything
// unrecognised is logged and answered with 500 under the given code.
func respondError(c *fiber.Ctx, logger *zap.Logger, code string, err error) error {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return httpx.ValidationFailed(c, verr.Field, verr.Msg)
	case errors.Is(err, service.ErrParticipantLeft):
		return httpx.Forbidden(c, "participant_left", "You have left this conversation")
	case errors.Is(err, service.ErrForbidden):
		return httpx.Forbidden(c, "forbidden", "Forbidden")
	case errors.Is(err, service.ErrConversationNotFound):
		return httpx.NotFound(c, "conversation_not_found", "Conversation not found")
	case errors.Is(err, service.ErrMessageNotFound):
		return httpx.NotFound(c, "message_not_found", "Message not found")
	case errors.Is(err, service.ErrNotificationNotFound):
		return httpx.NotFound(c, "notification_not_found", "Notification not found")
	case errors.Is(err, service.ErrUserNotFound):
		return httpx.NotFound(c, "user_not_found", "User not found")
	case errors.Is(err, service.ErrNotFound):
		return httpx.NotFound(c, "not_found", "Not found")
	case errors.Is(err, service.ErrDuplicateParticipant):
		return httpx.Conflict(c, "duplicate_participant", "User is already a participant")
	case errors.Is(err, service.ErrConflict):
		return httpx.Conflict(c, "conflict", "Conflict")
	case errors.Is(err, storage.ErrTooLarge):
		return httpx.Error(c, fiber.StatusRequestEntityTooLarge, "attachment_too_large", "Attachment too large")
	case errors.Is(err, storage.ErrEmptyFile):
		return httpx.ValidationFailed(c, "files", "Attachment is empty")
	case errors.Is(err, storage.ErrInvalidImage), errors.Is(err, storage.ErrUnsupported):
		return httpx.ValidationFailed(c, "files", "Attachment is not a valid image")
	}

	if logger != nil {
		logger.Error("request failed",
			zap.String("code", code),
			zap.String("path", c.Path()),
			zap.Any("request_id", c.Locals("requestid")),
			zap.Error(err),
		)
	}
	return httpx.Internal(c, code)
}
