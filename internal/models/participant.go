package models

import (
	"time"
)

type ParticipantRole string

const (
	RoleAdmin  ParticipantRole = "admin"
	RoleMember ParticipantRole = "member"
)

// Participant binds a user to a conversation and carries the user's visibility
// and read state for it. Rows are never deleted; leaving sets LeftAt.
type Participant struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ConversationID uint `gorm:"not null;uniqueIndex:idx_conversation_user" json:"conversation_id"`
	UserID         uint `gorm:"not null;uniqueIndex:idx_conversation_user;index" json:"user_id"`

	// JoinedAt is the visibility floor. Original participants carry the
	// conversation's created_at; NULL only appears on historical rows.
	JoinedAt          *time.Time       `json:"joined_at"`
	LeftAt            *time.Time       `gorm:"index" json:"left_at"`
	IsMuted           bool             `gorm:"not null;default:false" json:"is_muted"`
	LastReadMessageID *uint            `json:"last_read_message_id"`
	Role              *ParticipantRole `gorm:"type:varchar(20)" json:"role"`

	User User `gorm:"foreignKey:UserID" json:"user"`
}

func (Participant) TableName() string {
	return "conversation_participants"
}

// IsActive reports whether the participant has not left the conversation.
func (p *Participant) IsActive() bool {
	return p.LeftAt == nil
}

// LastReadID returns the read marker, treating NULL as 0.
func (p *Participant) LastReadID() uint {
	if p.LastReadMessageID == nil {
		return 0
	}
	return *p.LastReadMessageID
}

// VisibilityWindow is the range of message timestamps a participant may see.
// Until is nil while the participant is active.
type VisibilityWindow struct {
	From  time.Time
	Until *time.Time
}

// Contains reports whether a message created at t falls inside the window.
func (w VisibilityWindow) Contains(t time.Time) bool {
	if t.Before(w.From) {
		return false
	}
	if w.Until != nil && t.After(*w.Until) {
		return false
	}
	return true
}

// Window derives the participant's visibility window. A NULL joined_at marks an
// original participant, whose floor is the conversation's creation time.
func (p *Participant) Window(conversationCreatedAt time.Time) VisibilityWindow {
	from := conversationCreatedAt
	if p.JoinedAt != nil {
		from = *p.JoinedAt
	}
	return VisibilityWindow{From: from, Until: p.LeftAt}
}

type ParticipantResponse struct {
	ID       uint             `json:"id"`
	Name     string           `json:"name"`
	Email    string           `json:"email"`
	Role     *ParticipantRole `json:"role"`
	JoinedAt *time.Time       `json:"joined_at"`
	LeftAt   *time.Time       `json:"left_at"`
}

func (p *Participant) ToResponse() ParticipantResponse {
	return ParticipantResponse{
		ID:       p.UserID,
		Name:     p.User.Name,
		Email:    p.User.Email,
		Role:     p.Role,
		JoinedAt: p.JoinedAt,
		LeftAt:   p.LeftAt,
	}
}
