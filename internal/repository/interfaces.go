package repository

import (
	"time"

	"github.com/noteduco342/OMChat-backend/internal/models"
)

// UserRepositoryInterface defines the contract for user repository operations
type UserRepositoryInterface interface {
	Create(user *models.User) error
	FindByID(id uint) (*models.User, error)
	FindByIDs(ids []uint) ([]models.User, error)
	FindByEmail(email string) (*models.User, error)
	ListOthers(excludeID uint, query string, limit int) ([]models.User, error)
}

// ConversationRepositoryInterface defines the contract for conversation repository operations
type ConversationRepositoryInterface interface {
	CreateWithParticipants(conversation *models.Conversation, participants []models.Participant) error
	FindByID(id uint) (*models.Conversation, error)
	FindByDirectKey(key string) (*models.Conversation, error)
	FindByIDs(ids []uint) ([]models.Conversation, error)
}

// ParticipantRepositoryInterface defines the contract for participant repository operations
type ParticipantRepositoryInterface interface {
	Attach(participants []models.Participant) error
	Find(conversationID, userID uint) (*models.Participant, error)
	ListByConversation(conversationID uint) ([]models.Participant, error)
	ListByUser(userID uint) ([]models.Participant, error)
	MarkLeft(conversationID, userID uint, at time.Time) (bool, error)
	SetMuted(conversationID, userID uint, muted bool) error
	AdvanceReadMarker(conversationID, userID, messageID uint) (bool, error)
	ScanJoinedAt(afterID uint, limit int) ([]JoinedAtRow, error)
	SetJoinedAt(participantID uint, joinedAt time.Time) error
}

// MessageRepositoryInterface defines the contract for message repository operations
type MessageRepositoryInterface interface {
	Create(message *models.Message) error
	FindByID(id uint) (*models.Message, error)
	FindByIDs(ids []uint) ([]models.Message, error)
	ListVisible(conversationID uint, window models.VisibilityWindow) ([]models.Message, error)
	MaxVisibleID(conversationID uint, window models.VisibilityWindow) (uint, error)
	CountUnread(query UnreadQuery) (int64, error)
	ConversationDigests(userID uint, queries []UnreadQuery) ([]ConversationDigestRow, error)
}

// NotificationRepositoryInterface defines the contract for notification repository operations
type NotificationRepositoryInterface interface {
	Create(notification *models.Notification) error
	FindForUser(userID, id uint) (*models.Notification, error)
	ListForUser(userID uint, notificationType models.NotificationType, limit int) ([]models.Notification, error)
	CountUnread(userID uint) (int64, error)
	MarkRead(id uint, at time.Time) error
	MarkAllRead(userID uint, at time.Time) (int64, error)
}
