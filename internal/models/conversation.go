package models

import (
	"fmt"
	"time"
)

type Conversation struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt doubles as the last-activity timestamp used to order conversation lists.
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`

	Title     *string `gorm:"size:255" json:"title"`
	IsGroup   bool    `gorm:"not null;default:false" json:"is_group"`
	CreatedBy uint    `gorm:"not null;index" json:"created_by"`

	// DirectKey is "<lowID>:<highID>" for non-group conversations and NULL for groups.
	// The unique index keeps at most one direct conversation per user pair.
	DirectKey *string `gorm:"size:64;uniqueIndex" json:"-"`

	Creator      User          `gorm:"foreignKey:CreatedBy" json:"-"`
	Participants []Participant `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"-"`
}

// DirectKey builds the pair key for a direct conversation between two users.
func DirectKey(userID1, userID2 uint) string {
	// Always use smaller ID first for consistency
	if userID1 > userID2 {
		userID1, userID2 = userID2, userID1
	}
	return fmt.Sprintf("%d:%d", userID1, userID2)
}

// DisplayTitle returns the explicit title, the other participant's name for direct
// conversations, or a generic group label.
func (c *Conversation) DisplayTitle(viewerID uint) string {
	if c.Title != nil && *c.Title != "" {
		return *c.Title
	}
	if !c.IsGroup {
		for _, p := range c.Participants {
			if p.UserID != viewerID && p.User.Name != "" {
				return p.User.Name
			}
		}
		return "Chat"
	}
	return "Group Chat"
}

type ConversationResponse struct {
	ID           uint                  `json:"id"`
	Title        *string               `json:"title"`
	IsGroup      bool                  `json:"is_group"`
	CreatedBy    uint                  `json:"created_by"`
	Participants []ParticipantResponse `json:"participants"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

func (c *Conversation) ToResponse() ConversationResponse {
	participants := make([]ParticipantResponse, 0, len(c.Participants))
	for i := range c.Participants {
		participants = append(participants, c.Participants[i].ToResponse())
	}
	return ConversationResponse{
		ID:           c.ID,
		Title:        c.Title,
		IsGroup:      c.IsGroup,
		CreatedBy:    c.CreatedBy,
		Participants: participants,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

// LatestMessageResponse is the compact latest-message preview shown in conversation lists.
type LatestMessageResponse struct {
	ID        uint         `json:"id"`
	Body      *string      `json:"body"`
	Type      MessageType  `json:"type"`
	User      UserResponse `json:"user"`
	CreatedAt time.Time    `json:"created_at"`
}

// ConversationSummary is one row of a user's conversation list.
type ConversationSummary struct {
	ID            uint                   `json:"id"`
	Title         *string                `json:"title"`
	DisplayTitle  string                 `json:"display_title"`
	IsGroup       bool                   `json:"is_group"`
	LatestMessage *LatestMessageResponse `json:"latest_message"`
	Participants  []ParticipantResponse  `json:"participants"`
	MessagesCount int64                  `json:"messages_count"`
	UnreadCount   int64                  `json:"unread_count"`
	IsMuted       bool                   `json:"is_muted"`
	HasLeft       bool                   `json:"has_left"`
	UpdatedAt     time.Time              `json:"updated_at"`
}
