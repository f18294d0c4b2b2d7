package handlers

import (
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/noteduco342/OMChat-backend/internal/httpx"
	"github.com/noteduco342/OMChat-backend/internal/models"
	"github.com/noteduco342/OMChat-backend/internal/service"
	"github.com/noteduco342/OMChat-backend/internal/storage"
	"github.com/noteduco342/OMChat-backend/internal/validation"
	"go.uber.org/zap"
)

// SocketIDHeader carries the sender's websocket id so its own connection is
// left out of the MessageSent broadcast.
const SocketIDHeader = "X-Socket-ID"

type ConversationAPI interface {
	ListForUser(userID uint) ([]models.ConversationSummary, error)
	Create(creatorID uint, in service.CreateConversationInput) (*service.CreateConversationResult, error)
	Get(conversationID, userID uint) (*service.ConversationDetail, error)
	AddParticipants(conversationID, actorID uint, userIDs []uint) ([]models.Participant, error)
	Leave(conversationID, userID uint) error
	Mute(conversationID, userID uint, muted bool) error
	MarkRead(conversationID, userID uint, messageID *uint) (*service.ReadState, error)
}

type MessageAPI interface {
	Append(conversationID, authorID uint, in service.AppendInput) (*models.Message, error)
	ListVisible(conversationID, userID uint) ([]models.Message, error)
}

type AttachmentSaver interface {
	Save(ctx context.Context, name, declaredType string, r io.Reader) (*storage.StoredAttachment, error)
	Discard(ctx context.Context, stored []*storage.StoredAttachment)
}

// ChannelEvictor removes a user's live subscriptions to a conversation.
type ChannelEvictor interface {
	EvictFromConversation(conversationID, userID uint)
}

type ConversationHandler struct {
	conversations ConversationAPI
	messages      MessageAPI
	attachments   AttachmentSaver
	evictor       ChannelEvictor
	logger        *zap.Logger
}

func NewConversationHandler(conversations ConversationAPI, messages MessageAPI, attachments AttachmentSaver, evictor ChannelEvictor, logger *zap.Logger) *ConversationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConversationHandler{
		conversations: conversations,
		messages:      messages,
		attachments:   attachments,
		evictor:       evictor,
		logger:        logger,
	}
}

func (h *ConversationHandler) ListConversations(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	list, err := h.conversations.ListForUser(userID)
	if err != nil {
		return respondError(c, h.logger, "list_conversations_failed", err)
	}
	return c.JSON(fiber.Map{"conversations": list})
}

func (h *ConversationHandler) CreateConversation(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	var input service.CreateConversationInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	result, err := h.conversations.Create(userID, input)
	if err != nil {
		return respondError(c, h.logger, "create_conversation_failed", err)
	}

	status := fiber.StatusCreated
	if result.Existing {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(fiber.Map{
		"conversation":  result.Conversation.ToResponse(),
		"display_title": result.Conversation.DisplayTitle(userID),
	})
}

func (h *ConversationHandler) GetConversation(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	conversationID, err := httpx.ParamUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_conversation_id", "Invalid conversation id")
	}

	detail, err := h.conversations.Get(conversationID, userID)
	if err != nil {
		return respondError(c, h.logger, "get_conversation_failed", err)
	}
	return c.JSON(detail)
}

func (h *ConversationHandler) ListMessages(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	conversationID, err := httpx.ParamUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_conversation_id", "Invalid conversation id")
	}

	messages, err := h.messages.ListVisible(conversationID, userID)
	if err != nil {
		return respondError(c, h.logger, "fetch_messages_failed", err)
	}

	responses := make([]models.MessageResponse, len(messages))
	for i := range messages {
		responses[i] = messages[i].ToResponse()
	}
	return c.JSON(fiber.Map{
		"messages": responses,
		"count":    len(responses),
	})
}

type sendMessageRequest struct {
	Body     string                 `json:"body"`
	Type     string                 `json:"type"`
	Metadata map[string]interface{} `json:"metadata"`
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEMultipartForm)
}

// uploadedFiles collects both the single "file" field and the repeated "files" field.
func uploadedFiles(form *multipart.Form) []*multipart.FileHeader {
	var files []*multipart.FileHeader
	files = append(files, form.File["file"]...)
	files = append(files, form.File["files"]...)
	return files
}

func (h *ConversationHandler) SendMessage(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	conversationID, err := httpx.ParamUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_conversation_id", "Invalid conversation id")
	}

	var req sendMessageRequest
	var files []*multipart.FileHeader
	if isMultipart(c) {
		form, err := c.MultipartForm()
		if err != nil {
			return httpx.BadRequest(c, "invalid_request_body", "Invalid multipart body")
		}
		req.Body = c.FormValue("body")
		req.Type = c.FormValue("type")
		if raw := strings.TrimSpace(c.FormValue("metadata")); raw != "" {
			if err := json.Unmarshal([]byte(raw), &req.Metadata); err != nil {
				return httpx.ValidationFailed(c, "metadata", "metadata must be a JSON object")
			}
		}
		files = uploadedFiles(form)
	} else if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	if len(files) > validation.MaxAttachmentsPerMessage() {
		return httpx.ValidationFailed(c, "files", "Too many attachments")
	}
	if len(files) > 0 && h.attachments == nil {
		return httpx.Error(c, fiber.StatusServiceUnavailable, "storage_not_configured", "Storage not configured")
	}

	ctx := c.UserContext()
	stored := make([]*storage.StoredAttachment, 0, len(files))
	for _, fh := range files {
		a, err := h.saveFile(ctx, fh)
		if err != nil {
			h.attachments.Discard(ctx, stored)
			return respondError(c, h.logger, "attachment_upload_failed", err)
		}
		stored = append(stored, a)
	}

	input := service.AppendInput{
		Body:        req.Body,
		Type:        models.MessageType(req.Type),
		Metadata:    req.Metadata,
		Attachments: make([]service.AttachmentInput, 0, len(stored)),
		SocketID:    c.Get(SocketIDHeader),
	}
	for _, a := range stored {
		input.Attachments = append(input.Attachments, service.AttachmentInput{
			Path:          a.Path,
			MimeType:      a.MimeType,
			Size:          a.Size,
			OriginalName:  a.OriginalName,
			Width:         a.Width,
			Height:        a.Height,
			ThumbnailPath: a.ThumbnailPath,
		})
	}

	message, err := h.messages.Append(conversationID, userID, input)
	if err != nil {
		if len(stored) > 0 {
			h.attachments.Discard(ctx, stored)
		}
		return respondError(c, h.logger, "send_message_failed", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": message.ToResponse()})
}

func (h *ConversationHandler) saveFile(ctx context.Context, fh *multipart.FileHeader) (*storage.StoredAttachment, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return h.attachments.Save(ctx, fh.Filename, fh.Header.Get(fiber.HeaderContentType), f)
}

type markReadRequest struct {
	MessageID *uint `json:"message_id"`
}

func (h *ConversationHandler) MarkRead(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	conversationID, err := httpx.ParamUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_conversation_id", "Invalid conversation id")
	}

	var req markReadRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
		}
	}

	state, err := h.conversations.MarkRead(conversationID, userID, req.MessageID)
	if err != nil {
		return respondError(c, h.logger, "mark_read_failed", err)
	}
	return c.JSON(state)
}

type addParticipantsRequest struct {
	UserIDs []uint `json:"user_ids"`
}

func (h *ConversationHandler) AddParticipants(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	conversationID, err := httpx.ParamUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_conversation_id", "Invalid conversation id")
	}

	var req addParticipantsRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	added, err := h.conversations.AddParticipants(conversationID, userID, req.UserIDs)
	if err != nil {
		return respondError(c, h.logger, "add_participants_failed", err)
	}

	responses := make([]models.ParticipantResponse, len(added))
	for i := range added {
		responses[i] = added[i].ToResponse()
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"participants": responses})
}

func (h *ConversationHandler) Leave(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	conversationID, err := httpx.ParamUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_conversation_id", "Invalid conversation id")
	}

	if err := h.conversations.Leave(conversationID, userID); err != nil {
		return respondError(c, h.logger, "leave_failed", err)
	}
	if h.evictor != nil {
		h.evictor.EvictFromConversation(conversationID, userID)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type muteRequest struct {
	Muted *bool `json:"muted"`
}

func (h *ConversationHandler) Mute(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	conversationID, err := httpx.ParamUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_conversation_id", "Invalid conversation id")
	}

	var req muteRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}
	if req.Muted == nil {
		return httpx.ValidationFailed(c, "muted", "muted is required")
	}

	if err := h.conversations.Mute(conversationID, userID, *req.Muted); err != nil {
		return respondError(c, h.logger, "mute_failed", err)
	}
	return c.JSON(fiber.Map{"is_muted": *req.Muted})
}
