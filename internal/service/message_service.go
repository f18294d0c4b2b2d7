package service

import (
	"strings"
	"time"

	"github.com/noteduco342/OMChat-backend/internal/metrics"
	"github.com/noteduco342/OMChat-backend/internal/models"
	"github.com/noteduco342/OMChat-backend/internal/repository"
	"github.com/noteduco342/OMChat-backend/internal/validation"
	"go.uber.org/zap"
)

// AttachmentInput describes a file already written to object storage.
type AttachmentInput struct {
	Path          string
	MimeType      string
	Size          int64
	OriginalName  string
	Width         int
	Height        int
	ThumbnailPath string
}

func (a AttachmentInput) isImage() bool {
	return strings.HasPrefix(a.MimeType, "image/")
}

type AppendInput struct {
	Body        string
	Type        models.MessageType
	Metadata    map[string]interface{}
	Attachments []AttachmentInput
	// SocketID identifies the sender's websocket connection so the broadcast
	// skips it.
	SocketID string
}

type MessageService struct {
	conversations repository.ConversationRepositoryInterface
	messages      repository.MessageRepositoryInterface
	participation *ParticipationService
	notifications *NotificationService
	cache         ConversationListCache
	logger        *zap.Logger
	now           func() time.Time
}

func NewMessageService(
	conversations repository.ConversationRepositoryInterface,
	messages repository.MessageRepositoryInterface,
	participation *ParticipationService,
	notifications *NotificationService,
	cache ConversationListCache,
	logger *zap.Logger,
) *MessageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessageService{
		conversations: conversations,
		messages:      messages,
		participation: participation,
		notifications: notifications,
		cache:         cache,
		logger:        logger,
		now:           time.Now,
	}
}

func resolveType(requested models.MessageType, attachments []AttachmentInput) (models.MessageType, error) {
	if requested != "" {
		if !requested.Valid() {
			return "", invalid("type", "unknown message type")
		}
		return requested, nil
	}
	if len(attachments) == 0 {
		return models.TextMessage, nil
	}
	for _, a := range attachments {
		if !a.isImage() {
			return models.AttachmentMessage, nil
		}
	}
	return models.ImageMessage, nil
}

func buildMetadata(in map[string]interface{}, attachments []AttachmentInput) map[string]interface{} {
	var out map[string]interface{}
	if len(in) > 0 {
		out = make(map[string]interface{}, len(in)+2)
		for k, v := range in {
			out[k] = v
		}
	}
	for _, a := range attachments {
		if !a.isImage() || a.Width == 0 || a.Height == 0 {
			continue
		}
		if out == nil {
			out = make(map[string]interface{}, 2)
		}
		if _, ok := out["width"]; !ok {
			out["width"] = a.Width
		}
		if _, ok := out["height"]; !ok {
			out["height"] = a.Height
		}
		if a.ThumbnailPath != "" {
			out["thumbnail_url"] = models.AttachmentURLPrefix + a.ThumbnailPath
		}
		break
	}
	return out
}

// Append stores a message written by an active participant, then fans it out.
// Fan-out problems never fail the call.
func (s *MessageService) Append(conversationID, authorID uint, in AppendInput) (*models.Message, error) {
	conversation, err := s.conversations.FindByID(conversationID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	author, err := s.participation.RequireActive(conversationID, authorID)
	if err != nil {
		return nil, err
	}

	body := validation.TrimAndLimit(in.Body, validation.MaxMessageLength())
	if body == "" && len(in.Attachments) == 0 {
		return nil, ErrEmptyMessage
	}
	if len(in.Attachments) > validation.MaxAttachmentsPerMessage() {
		return nil, invalid("files", "too many attachments")
	}
	msgType, err := resolveType(in.Type, in.Attachments)
	if err != nil {
		return nil, err
	}
	if body == "" && (msgType == models.ImageMessage || msgType == models.AttachmentMessage) {
		body = validation.TrimAndLimit(in.Attachments[0].OriginalName, validation.MaxMessageLength())
	}

	message := &models.Message{
		ConversationID: conversationID,
		UserID:         authorID,
		Type:           msgType,
		Metadata:       buildMetadata(in.Metadata, in.Attachments),
		CreatedAt:      s.now().UTC(),
	}
	if body != "" {
		message.Body = &body
	}
	for _, a := range in.Attachments {
		message.Attachments = append(message.Attachments, models.Attachment{
			Path:     a.Path,
			MimeType: a.MimeType,
			Size:     a.Size,
		})
	}

	if err := s.messages.Create(message); err != nil {
		return nil, err
	}
	message.User = author.User
	metrics.MessagesSent.Inc()

	participants, err := s.participation.ListByConversation(conversationID)
	if err != nil {
		s.logger.Warn("fan-out skipped: participants unavailable",
			zap.Uint("conversation_id", conversationID),
			zap.Uint("message_id", message.ID),
			zap.Error(err),
		)
		return message, nil
	}
	conversation.Participants = participants
	s.invalidate(participants)

	if s.notifications != nil {
		s.notifications.FanOut(conversation, message, participants, in.SocketID)
	}
	return message, nil
}

// ListVisible returns the caller's visible history. Former participants keep
// read access up to the moment they left.
func (s *MessageService) ListVisible(conversationID, userID uint) ([]models.Message, error) {
	conversation, err := s.conversations.FindByID(conversationID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	p, err := s.participation.Member(conversationID, userID)
	if err != nil {
		return nil, err
	}
	return s.messages.ListVisible(conversationID, p.Window(conversation.CreatedAt))
}

func (s *MessageService) invalidate(participants []models.Participant) {
	if s.cache == nil {
		return
	}
	ids := make([]uint, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.UserID)
	}
	if err := s.cache.Invalidate(ids...); err != nil {
		s.logger.Debug("conversation list invalidation failed", zap.Error(err))
	}
}
