package repository

import (
	"time"

	"github.com/noteduco342/OMChat-backend/internal/models"
	"gorm.io/gorm"
)

// JoinedAtRow pairs a participant's joined_at with its conversation's creation time.
type JoinedAtRow struct {
	ParticipantID         uint       `gorm:"column:participant_id"`
	ConversationID        uint       `gorm:"column:conversation_id"`
	UserID                uint       `gorm:"column:user_id"`
	JoinedAt              *time.Time `gorm:"column:joined_at"`
	ConversationCreatedAt time.Time  `gorm:"column:conversation_created_at"`
}

type ParticipantRepository struct {
	db *gorm.DB
}

func NewParticipantRepository(db *gorm.DB) *ParticipantRepository {
	return &ParticipantRepository{db: db}
}

// Attach inserts all rows or none. An existing (conversation, user) pair surfaces as
// gorm.ErrDuplicatedKey.
func (r *ParticipantRepository) Attach(participants []models.Participant) error {
	if len(participants) == 0 {
		return nil
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Omit("User").Create(&participants).Error
	})
}

func (r *ParticipantRepository) Find(conversationID, userID uint) (*models.Participant, error) {
	var participant models.Participant
	err := r.db.Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Preload("User").
		First(&participant).Error
	if err != nil {
		return nil, err
	}
	return &participant, nil
}

func (r *ParticipantRepository) ListByConversation(conversationID uint) ([]models.Participant, error) {
	var participants []models.Participant
	err := r.db.Where("conversation_id = ?", conversationID).
		Preload("User").
		Order("id ASC").
		Find(&participants).Error
	return participants, err
}

// ListByUser returns every participant row of the user, including conversations left.
func (r *ParticipantRepository) ListByUser(userID uint) ([]models.Participant, error) {
	var participants []models.Participant
	err := r.db.Where("user_id = ?", userID).Find(&participants).Error
	return participants, err
}

// MarkLeft sets left_at once. It reports false when the row was already left or missing.
func (r *ParticipantRepository) MarkLeft(conversationID, userID uint, at time.Time) (bool, error) {
	res := r.db.Model(&models.Participant{}).
		Where("conversation_id = ? AND user_id = ? AND left_at IS NULL", conversationID, userID).
		Updates(map[string]interface{}{
			"left_at":    at,
			"updated_at": gorm.Expr("NOW()"),
		})
	return res.RowsAffected > 0, res.Error
}

func (r *ParticipantRepository) SetMuted(conversationID, userID uint, muted bool) error {
	return r.db.Model(&models.Participant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Updates(map[string]interface{}{
			"is_muted":   muted,
			"updated_at": gorm.Expr("NOW()"),
		}).Error
}

// AdvanceReadMarker moves last_read_message_id forward only; a smaller id is ignored.
func (r *ParticipantRepository) AdvanceReadMarker(conversationID, userID, messageID uint) (bool, error) {
	res := r.db.Exec(`
		UPDATE conversation_participants
		SET last_read_message_id = ?, updated_at = NOW()
		WHERE conversation_id = ? AND user_id = ?
		AND (last_read_message_id IS NULL OR last_read_message_id < ?)
	`, messageID, conversationID, userID, messageID)
	return res.RowsAffected > 0, res.Error
}

// ScanJoinedAt pages through participants in id order for maintenance jobs.
func (r *ParticipantRepository) ScanJoinedAt(afterID uint, limit int) ([]JoinedAtRow, error) {
	if limit <= 0 {
		limit = 500
	}
	var rows []JoinedAtRow
	err := r.db.Raw(`
		SELECT
			cp.id AS participant_id,
			cp.conversation_id,
			cp.user_id,
			cp.joined_at,
			c.created_at AS conversation_created_at
		FROM conversation_participants cp
		JOIN conversations c ON c.id = cp.conversation_id
		WHERE cp.id > ?
		ORDER BY cp.id ASC
		LIMIT ?
	`, afterID, limit).Scan(&rows).Error
	return rows, err
}

func (r *ParticipantRepository) SetJoinedAt(participantID uint, joinedAt time.Time) error {
	return r.db.Model(&models.Participant{}).
		Where("id = ?", participantID).
		Updates(map[string]interface{}{
			"joined_at":  joinedAt,
			"updated_at": gorm.Expr("NOW()"),
		}).Error
}
