package service

import (
	"time"

	"github.com/noteduco342/OMChat-backend/internal/metrics"
	"github.com/noteduco342/OMChat-backend/internal/models"
	"github.com/noteduco342/OMChat-backend/internal/repository"
	"go.uber.org/zap"
)

const (
	EventMessageSent         = "MessageSent"
	EventMessageNotification = "message.notification"

	NotificationListLimit = 20
)

// Broadcaster publishes an event to every subscriber of a channel. When
// exceptSocketID is set that connection is skipped; otherwise, when exceptUserID
// is set, every connection of that user is skipped. Publish must not block.
type Broadcaster interface {
	Publish(channel, event string, data interface{}, exceptSocketID string, exceptUserID uint)
}

// MessageSentEvent is the payload of EventMessageSent.
type MessageSentEvent struct {
	Message models.MessageResponse `json:"message"`
}

type FanOutResult struct {
	Recipients int
	Created    int
	Failed     int
}

type NotificationList struct {
	Notifications []models.NotificationResponse `json:"notifications"`
	UnreadCount   int64                         `json:"unread_count"`
}

type NotificationService struct {
	notifications repository.NotificationRepositoryInterface
	broadcaster   Broadcaster
	logger        *zap.Logger
	now           func() time.Time
}

func NewNotificationService(notifications repository.NotificationRepositoryInterface, broadcaster Broadcaster, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		notifications: notifications,
		broadcaster:   broadcaster,
		logger:        logger,
		now:           time.Now,
	}
}

// Recipients returns the active, unmuted participants other than the author.
func Recipients(participants []models.Participant, authorID uint) []models.Participant {
	out := make([]models.Participant, 0, len(participants))
	for _, p := range participants {
		if p.UserID == authorID || !p.IsActive() || p.IsMuted {
			continue
		}
		out = append(out, p)
	}
	return out
}

// FanOut creates one notification per recipient and emits the conversation
// event. Individual failures are logged and counted; they never abort the rest.
func (s *NotificationService) FanOut(conversation *models.Conversation, message *models.Message, participants []models.Participant, senderSocketID string) FanOutResult {
	recipients := Recipients(participants, message.UserID)
	result := FanOutResult{Recipients: len(recipients)}
	log := s.logger.With(
		zap.Uint("conversation_id", conversation.ID),
		zap.Uint("message_id", message.ID),
	)

	data := models.MessageNotificationData{
		MessageID:         message.ID,
		ConversationID:    conversation.ID,
		ConversationTitle: conversation.DisplayTitle(message.UserID),
		UserID:            message.UserID,
		UserName:          message.User.Name,
		Body:              message.Body,
		Type:              message.Type,
		CreatedAt:         message.CreatedAt.UTC().Format(time.RFC3339),
	}

	for _, r := range recipients {
		n, err := s.notify(r.UserID, data)
		if err != nil {
			result.Failed++
			metrics.NotificationFailures.Inc()
			log.Warn("notification failed", zap.Uint("recipient_id", r.UserID), zap.Error(err))
			continue
		}
		result.Created++
		metrics.NotificationsCreated.Inc()

		if s.broadcaster == nil {
			continue
		}
		resp, err := n.ToResponse()
		if err != nil {
			log.Warn("notification encode failed", zap.Uint("notification_id", n.ID), zap.Error(err))
			continue
		}
		s.broadcaster.Publish(models.UserChannel(r.UserID), EventMessageNotification, resp, "", 0)
	}

	if s.broadcaster != nil {
		s.broadcaster.Publish(
			models.ConversationChannel(conversation.ID),
			EventMessageSent,
			MessageSentEvent{Message: message.ToResponse()},
			senderSocketID,
			message.UserID,
		)
	}

	log.Debug("fan-out done",
		zap.Int("recipients", result.Recipients),
		zap.Int("created", result.Created),
		zap.Int("failed", result.Failed),
	)
	return result
}

func (s *NotificationService) notify(userID uint, data models.NotificationData) (*models.Notification, error) {
	n, err := models.NewNotification(userID, data)
	if err != nil {
		return nil, err
	}
	if err := s.notifications.Create(n); err != nil {
		return nil, err
	}
	return n, nil
}

// List returns the newest message notifications and the total unread count.
func (s *NotificationService) List(userID uint) (*NotificationList, error) {
	rows, err := s.notifications.ListForUser(userID, models.MessageNotificationType, NotificationListLimit)
	if err != nil {
		return nil, err
	}
	unread, err := s.notifications.CountUnread(userID)
	if err != nil {
		return nil, err
	}

	list := &NotificationList{
		Notifications: make([]models.NotificationResponse, 0, len(rows)),
		UnreadCount:   unread,
	}
	for i := range rows {
		resp, err := rows[i].ToResponse()
		if err != nil {
			s.logger.Warn("skipping undecodable notification", zap.Uint("notification_id", rows[i].ID), zap.Error(err))
			continue
		}
		list.Notifications = append(list.Notifications, resp)
	}
	return list, nil
}

// MarkRead marks one of the user's notifications read. Already read is a no-op.
func (s *NotificationService) MarkRead(userID, notificationID uint) (*models.Notification, error) {
	n, err := s.notifications.FindForUser(userID, notificationID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	if n.ReadAt != nil {
		return n, nil
	}
	at := s.now().UTC()
	if err := s.notifications.MarkRead(n.ID, at); err != nil {
		return nil, err
	}
	n.ReadAt = &at
	return n, nil
}

func (s *NotificationService) MarkAllRead(userID uint) (int64, error) {
	return s.notifications.MarkAllRead(userID, s.now().UTC())
}
