package models

import (
	"time"
)

type MessageType string

const (
	TextMessage       MessageType = "text"
	ImageMessage      MessageType = "image"
	AttachmentMessage MessageType = "attachment"
	SystemMessage     MessageType = "system"
)

// Valid reports whether t is one of the known message types.
func (t MessageType) Valid() bool {
	switch t {
	case TextMessage, ImageMessage, AttachmentMessage, SystemMessage:
		return true
	}
	return false
}

// Message is an append-only entry of a conversation log, ordered by (created_at, id).
type Message struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index:idx_conversation_created,priority:2" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ConversationID uint         `gorm:"not null;index:idx_conversation_created,priority:1" json:"conversation_id"`
	Conversation   Conversation `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"-"`
	UserID         uint         `gorm:"not null;index" json:"user_id"`
	User           User         `gorm:"foreignKey:UserID" json:"user"`

	Body     *string                `gorm:"type:text" json:"body"`
	Type     MessageType            `gorm:"type:varchar(20);not null;default:'text'" json:"type"`
	Metadata map[string]interface{} `gorm:"serializer:json;type:jsonb" json:"metadata"`
	EditedAt *time.Time             `json:"edited_at"`

	Attachments []Attachment `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE" json:"attachments"`
}

// MessageResponse is the wire shape of a message, shared by the HTTP API and the
// MessageSent broadcast event.
type MessageResponse struct {
	ID          uint                   `json:"id"`
	Body        *string                `json:"body"`
	Type        MessageType            `json:"type"`
	Metadata    map[string]interface{} `json:"metadata"`
	Attachments []AttachmentResponse   `json:"attachments"`
	User        UserResponse           `json:"user"`
	CreatedAt   string                 `json:"created_at"`
	EditedAt    *string                `json:"edited_at"`
}

func (m *Message) ToResponse() MessageResponse {
	attachments := make([]AttachmentResponse, 0, len(m.Attachments))
	for i := range m.Attachments {
		attachments = append(attachments, m.Attachments[i].ToResponse())
	}

	var editedAt *string
	if m.EditedAt != nil {
		s := m.EditedAt.UTC().Format(time.RFC3339)
		editedAt = &s
	}

	return MessageResponse{
		ID:          m.ID,
		Body:        m.Body,
		Type:        m.Type,
		Metadata:    m.Metadata,
		Attachments: attachments,
		User:        m.User.ToResponse(),
		CreatedAt:   m.CreatedAt.UTC().Format(time.RFC3339),
		EditedAt:    editedAt,
	}
}

// BodyText returns the body or an empty string when it is NULL.
func (m *Message) BodyText() string {
	if m.Body == nil {
		return ""
	}
	return *m.Body
}
