package repository

import (
	"strings"

	"github.com/noteduco342/OMChat-backend/internal/models"
	"gorm.io/gorm"
)

// UnreadQuery describes what one participant may count as unread in one conversation:
// messages after AfterID, not authored by UserID, inside Window.
type UnreadQuery struct {
	ConversationID uint
	UserID         uint
	AfterID        uint
	Window         models.VisibilityWindow
}

// ConversationDigestRow summarises one conversation for one user. Latest message
// and unread count cover the user's window; the message count covers the
// whole conversation.
type ConversationDigestRow struct {
	ConversationID  uint  `gorm:"column:conversation_id"`
	LatestMessageID uint  `gorm:"column:latest_message_id"`
	MessagesCount   int64 `gorm:"column:messages_count"`
	UnreadCount     int64 `gorm:"column:unread_count"`
}

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create stores the message with its attachments and bumps the conversation's
// last-activity timestamp in the same transaction.
func (r *MessageRepository) Create(message *models.Message) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("User", "Conversation").Create(message).Error; err != nil {
			return err
		}
		return tx.Model(&models.Conversation{}).
			Where("id = ?", message.ConversationID).
			UpdateColumn("updated_at", message.CreatedAt).Error
	})
}

func (r *MessageRepository) FindByID(id uint) (*models.Message, error) {
	var message models.Message
	err := r.db.Preload("User").Preload("Attachments").First(&message, id).Error
	if err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *MessageRepository) FindByIDs(ids []uint) ([]models.Message, error) {
	var messages []models.Message
	if len(ids) == 0 {
		return messages, nil
	}
	err := r.db.Where("id IN ?", ids).
		Preload("User").
		Preload("Attachments").
		Find(&messages).Error
	return messages, err
}

func scopeWindow(conversationID uint, window models.VisibilityWindow) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("conversation_id = ? AND created_at >= ?", conversationID, window.From)
		if window.Until != nil {
			db = db.Where("created_at <= ?", *window.Until)
		}
		return db
	}
}

// ListVisible returns the messages inside the window in chronological order.
func (r *MessageRepository) ListVisible(conversationID uint, window models.VisibilityWindow) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.Scopes(scopeWindow(conversationID, window)).
		Preload("User").
		Preload("Attachments").
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	return messages, err
}

// MaxVisibleID returns the highest message id inside the window, or 0 when the
// window holds no message. Unread counting compares ids, so the read target is
// the highest id rather than the newest timestamp.
func (r *MessageRepository) MaxVisibleID(conversationID uint, window models.VisibilityWindow) (uint, error) {
	var id uint
	err := r.db.Model(&models.Message{}).
		Scopes(scopeWindow(conversationID, window)).
		Select("COALESCE(MAX(id), 0)").
		Scan(&id).Error
	return id, err
}

func (r *MessageRepository) CountUnread(query UnreadQuery) (int64, error) {
	var count int64
	err := r.db.Model(&models.Message{}).
		Scopes(scopeWindow(query.ConversationID, query.Window)).
		Where("id > ? AND user_id <> ?", query.AfterID, query.UserID).
		Count(&count).Error
	return count, err
}

// ConversationDigests computes the latest visible message, the total message
// count and the unread count for many conversations in a single round trip.
// Conversations without any message are absent from the result; a
// conversation whose messages all fall outside the window has
// latest_message_id 0.
func (r *MessageRepository) ConversationDigests(userID uint, queries []UnreadQuery) ([]ConversationDigestRow, error) {
	var rows []ConversationDigestRow
	if len(queries) == 0 {
		return rows, nil
	}

	values := make([]string, 0, len(queries))
	args := make([]interface{}, 0, len(queries)*4+1)
	for _, q := range queries {
		values = append(values, "(?::bigint, ?::bigint, ?::timestamptz, ?::timestamptz)")
		args = append(args, q.ConversationID, q.AfterID, q.Window.From, q.Window.Until)
	}
	args = append(args, userID)

	sql := `
		WITH q(conversation_id, after_id, floor_at, ceil_at) AS (
			VALUES ` + strings.Join(values, ", ") + `
		),
		visible AS (
			SELECT
				m.id,
				m.conversation_id,
				ROW_NUMBER() OVER w_latest AS rn,
				SUM(CASE WHEN m.id > q.after_id AND m.user_id <> ? THEN 1 ELSE 0 END) OVER w_all AS unread_count
			FROM messages m
			JOIN q ON q.conversation_id = m.conversation_id
			WHERE m.created_at >= q.floor_at
			AND (q.ceil_at IS NULL OR m.created_at <= q.ceil_at)
			WINDOW
				w_latest AS (PARTITION BY m.conversation_id ORDER BY m.created_at DESC, m.id DESC),
				w_all AS (PARTITION BY m.conversation_id)
		),
		totals AS (
			SELECT m.conversation_id, COUNT(*) AS messages_count
			FROM messages m
			WHERE m.conversation_id IN (SELECT conversation_id FROM q)
			GROUP BY m.conversation_id
		)
		SELECT
			t.conversation_id,
			COALESCE(v.id, 0) AS latest_message_id,
			t.messages_count,
			COALESCE(v.unread_count, 0) AS unread_count
		FROM totals t
		LEFT JOIN visible v ON v.conversation_id = t.conversation_id AND v.rn = 1
	`
	err := r.db.Raw(sql, args...).Scan(&rows).Error
	return rows, err
}
