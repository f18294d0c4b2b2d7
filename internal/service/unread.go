package service

import (
	"time"

	"github.com/noteduco342/OMChat-backend/internal/models"
	"github.com/noteduco342/OMChat-backend/internal/repository"
)

// UnreadCalculator counts messages that are visible to a participant, newer than
// their read marker and written by someone else.
type UnreadCalculator struct {
	messages repository.MessageRepositoryInterface
}

func NewUnreadCalculator(messages repository.MessageRepositoryInterface) *UnreadCalculator {
	return &UnreadCalculator{messages: messages}
}

func unreadQuery(conversation *models.Conversation, p *models.Participant) repository.UnreadQuery {
	return repository.UnreadQuery{
		ConversationID: conversation.ID,
		UserID:         p.UserID,
		AfterID:        p.LastReadID(),
		Window:         p.Window(conversation.CreatedAt),
	}
}

// IsUnread applies the unread predicate to a single message.
func IsUnread(m *models.Message, p *models.Participant, conversationCreatedAt time.Time) bool {
	return m.ID > p.LastReadID() &&
		m.UserID != p.UserID &&
		p.Window(conversationCreatedAt).Contains(m.CreatedAt)
}

func (c *UnreadCalculator) UnreadCount(conversation *models.Conversation, p *models.Participant) (int64, error) {
	return c.messages.CountUnread(unreadQuery(conversation, p))
}

// Digests returns, per conversation and keyed by its id, the latest visible
// message id, the unread count for one user and the total message count.
func (c *UnreadCalculator) Digests(userID uint, conversations []models.Conversation, rows map[uint]*models.Participant) (map[uint]repository.ConversationDigestRow, error) {
	queries := make([]repository.UnreadQuery, 0, len(conversations))
	for i := range conversations {
		p, ok := rows[conversations[i].ID]
		if !ok {
			continue
		}
		queries = append(queries, unreadQuery(&conversations[i], p))
	}
	digests, err := c.messages.ConversationDigests(userID, queries)
	if err != nil {
		return nil, err
	}
	out := make(map[uint]repository.ConversationDigestRow, len(digests))
	for _, d := range digests {
		out[d.ConversationID] = d
	}
	return out, nil
}
