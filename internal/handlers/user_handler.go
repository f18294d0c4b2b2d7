package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/noteduco342/OMChat-backend/internal/httpx"
	"github.com/noteduco342/OMChat-backend/internal/service"
	"go.uber.org/zap"
)

type UserAPI interface {
	ListAvailable(callerID uint, query string, limit int) ([]service.AvailableUser, error)
}

type UserHandler struct {
	users  UserAPI
	logger *zap.Logger
}

func NewUserHandler(users UserAPI, logger *zap.Logger) *UserHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserHandler{users: users, logger: logger}
}

// ListUsers returns the users the caller can start a conversation with.
// Optional query params: q filters by name or email, limit caps the result.
func (h *UserHandler) ListUsers(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	limit := c.QueryInt("limit", 0)
	if limit < 0 {
		return httpx.BadRequest(c, "invalid_limit", "Invalid limit")
	}

	users, err := h.users.ListAvailable(userID, c.Query("q"), limit)
	if err != nil {
		return respondError(c, h.logger, "list_users_failed", err)
	}
	return c.JSON(fiber.Map{
		"users": users,
	})
}
