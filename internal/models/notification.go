package models

import (
	"encoding/json"
	"fmt"
	"time"
)

type NotificationType string

const (
	MessageNotificationType NotificationType = "message"
)

// NotificationData is the typed payload of a notification. Every notification type
// has exactly one payload struct.
type NotificationData interface {
	NotificationType() NotificationType
}

// MessageNotificationData is the snapshot stored when a new message is fanned out.
type MessageNotificationData struct {
	MessageID         uint        `json:"message_id"`
	ConversationID    uint        `json:"conversation_id"`
	ConversationTitle string      `json:"conversation_title"`
	UserID            uint        `json:"user_id"`
	UserName          string      `json:"user_name"`
	Body              *string     `json:"body"`
	Type              MessageType `json:"type"`
	CreatedAt         string      `json:"created_at"`
}

func (MessageNotificationData) NotificationType() NotificationType {
	return MessageNotificationType
}

// Notification is created once per (message, recipient) at send time.
type Notification struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID uint             `gorm:"not null;index:idx_notification_user_read" json:"user_id"`
	Type   NotificationType `gorm:"type:varchar(50);not null" json:"type"`
	// Data holds the JSON encoding of the payload matching Type.
	Data   string     `gorm:"type:text;not null" json:"-"`
	ReadAt *time.Time `gorm:"index:idx_notification_user_read" json:"read_at"`
}

// NewNotification encodes data and tags the row with its type.
func NewNotification(userID uint, data NotificationData) (*Notification, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Notification{
		UserID: userID,
		Type:   data.NotificationType(),
		Data:   string(raw),
	}, nil
}

// Payload decodes Data according to Type.
func (n *Notification) Payload() (NotificationData, error) {
	switch n.Type {
	case MessageNotificationType:
		var data MessageNotificationData
		if err := json.Unmarshal([]byte(n.Data), &data); err != nil {
			return nil, fmt.Errorf("decode %s notification %d: %w", n.Type, n.ID, err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unknown notification type %q", n.Type)
	}
}

type NotificationResponse struct {
	ID        uint             `json:"id"`
	Type      NotificationType `json:"type"`
	Data      NotificationData `json:"data"`
	ReadAt    *string          `json:"read_at"`
	CreatedAt string           `json:"created_at"`
}

func (n *Notification) ToResponse() (NotificationResponse, error) {
	data, err := n.Payload()
	if err != nil {
		return NotificationResponse{}, err
	}
	var readAt *string
	if n.ReadAt != nil {
		s := n.ReadAt.UTC().Format(time.RFC3339)
		readAt = &s
	}
	return NotificationResponse{
		ID:        n.ID,
		Type:      n.Type,
		Data:      data,
		ReadAt:    readAt,
		CreatedAt: n.CreatedAt.UTC().Format(time.RFC3339),
	}, nil
}
