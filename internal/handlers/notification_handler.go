package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/noteduco342/OMChat-backend/internal/httpx"
	"github.com/noteduco342/OMChat-backend/internal/models"
	"github.com/noteduco342/OMChat-backend/internal/service"
	"go.uber.org/zap"
)

type NotificationAPI interface {
	List(userID uint) (*service.NotificationList, error)
	MarkRead(userID, notificationID uint) (*models.Notification, error)
	MarkAllRead(userID uint) (int64, error)
}

type NotificationHandler struct {
	notifications NotificationAPI
	logger        *zap.Logger
}

func NewNotificationHandler(notifications NotificationAPI, logger *zap.Logger) *NotificationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationHandler{notifications: notifications, logger: logger}
}

func (h *NotificationHandler) List(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	list, err := h.notifications.List(userID)
	if err != nil {
		return respondError(c, h.logger, "list_notifications_failed", err)
	}
	return c.JSON(list)
}

func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	notificationID, err := httpx.ParamUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_notification_id", "Invalid notification id")
	}

	n, err := h.notifications.MarkRead(userID, notificationID)
	if err != nil {
		return respondError(c, h.logger, "mark_notification_read_failed", err)
	}
	resp, err := n.ToResponse()
	if err != nil {
		return respondError(c, h.logger, "mark_notification_read_failed", err)
	}
	return c.JSON(resp)
}

func (h *NotificationHandler) MarkAllRead(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	updated, err := h.notifications.MarkAllRead(userID)
	if err != nil {
		return respondError(c, h.logger, "mark_notifications_read_failed", err)
	}
	return c.JSON(fiber.Map{"updated": updated})
}
