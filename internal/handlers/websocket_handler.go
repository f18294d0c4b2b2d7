package handlers

import (
	"errors"
	"os"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/noteduco342/OMChat-backend/internal/handlers/ws"
	"github.com/noteduco342/OMChat-backend/internal/models"
	"github.com/noteduco342/OMChat-backend/internal/service"
	"go.uber.org/zap"
)

const pongTimeout = 90 * time.Second

// UserLookup loads the stored profile a socket joins presence channels with.
type UserLookup interface {
	GetUserByID(userID uint) (*models.User, error)
}

type WebSocketHandler struct {
	hub    *ws.Hub
	users  UserLookup
	logger *zap.Logger
}

func NewWebSocketHandler(hub *ws.Hub, users UserLookup, logger *zap.Logger) *WebSocketHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSocketHandler{hub: hub, users: users, logger: logger}
}

var errUnknownUser = errors.New("websocket user no longer exists")

// resolveMember prefers the stored profile over token claims. A deleted user
// is refused; a lookup failure falls back to the claims.
func (h *WebSocketHandler) resolveMember(userID uint, claimName, claimEmail string) (ws.Member, error) {
	member := ws.Member{ID: userID, Name: claimName, Email: claimEmail}
	if h.users == nil {
		return member, nil
	}
	user, err := h.users.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return ws.Member{}, errUnknownUser
		}
		h.logger.Warn("websocket user lookup failed, using token claims", zap.Uint("user_id", userID), zap.Error(err))
		return member, nil
	}
	member.Name = user.Name
	member.Email = user.Email
	return member, nil
}

func localString(c *websocket.Conn, key string) string {
	if s, ok := c.Locals(key).(string); ok {
		return s
	}
	return ""
}

func (h *WebSocketHandler) HandleWebSocket(c *websocket.Conn) {
	userID, ok := c.Locals("userID").(uint)
	if !ok || userID == 0 {
		_ = c.Close()
		return
	}
	wsDebug := os.Getenv("WS_DEBUG") == "true"

	// Check if client supports gzip compression (via query param or header)
	supportsGzip := c.Query("gzip") == "1" || c.Headers("X-Supports-Gzip") == "1"

	member, err := h.resolveMember(userID, localString(c, "name"), localString(c, "email"))
	if err != nil {
		h.logger.Info("websocket rejected", zap.Uint("user_id", userID), zap.Error(err))
		_ = c.Close()
		return
	}
	client := h.hub.Register(member, c, supportsGzip)
	defer h.hub.Unregister(client)

	_ = c.SetReadDeadline(time.Now().Add(pongTimeout))
	c.SetPongHandler(func(string) error {
		h.hub.Touch(client)
		return c.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	log := h.logger.With(zap.Uint("user_id", userID), zap.String("socket_id", client.ID))
	log.Info("websocket connected")

	ctx := &ws.MessageContext{Client: client, Hub: h.hub}

	for {
		messageType, messageBytes, err := c.ReadMessage()
		if err != nil {
			log.Debug("websocket read ended", zap.Error(err))
			break
		}
		_ = c.SetReadDeadline(time.Now().Add(pongTimeout))

		if wsDebug {
			log.Debug("ws_recv", zap.Int("frame_type", messageType), zap.Int("size", len(messageBytes)))
		}

		// Decompress if binary message (gzip compressed)
		if messageType == websocket.BinaryMessage {
			decompressed, err := ws.DecompressMessage(messageBytes)
			if err != nil {
				ws.SendError(client, "decompression_failed", "Failed to decompress message", err.Error())
				continue
			}
			messageBytes = decompressed
		}

		msg, err := ws.Deserialize(messageBytes)
		if err != nil {
			ws.SendError(client, "invalid_message", "Invalid message format", err.Error())
			continue
		}

		if err := msg.Process(ctx); err != nil {
			log.Debug("ws message failed", zap.String("type", msg.GetType()), zap.Error(err))
			ws.SendError(client, "processing_failed", "Failed to process message", err.Error())
		}
	}

	log.Info("websocket disconnected")
}
