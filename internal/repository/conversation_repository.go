package repository

import (
	"github.com/noteduco342/OMChat-backend/internal/models"
	"gorm.io/gorm"
)

type ConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// CreateWithParticipants inserts the conversation and its original participants in one
// transaction. A direct_key collision surfaces as gorm.ErrDuplicatedKey.
func (r *ConversationRepository) CreateWithParticipants(conversation *models.Conversation, participants []models.Participant) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Participants", "Creator").Create(conversation).Error; err != nil {
			return err
		}
		if len(participants) == 0 {
			return nil
		}
		for i := range participants {
			participants[i].ConversationID = conversation.ID
		}
		if err := tx.Omit("User").Create(&participants).Error; err != nil {
			return err
		}
		conversation.Participants = participants
		return nil
	})
}

func (r *ConversationRepository) FindByID(id uint) (*models.Conversation, error) {
	var conversation models.Conversation
	err := r.db.Preload("Participants", func(db *gorm.DB) *gorm.DB {
		return db.Order("conversation_participants.id ASC")
	}).Preload("Participants.User").First(&conversation, id).Error
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

func (r *ConversationRepository) FindByDirectKey(key string) (*models.Conversation, error) {
	var conversation models.Conversation
	err := r.db.Where("direct_key = ? AND is_group = false", key).
		Preload("Participants.User").
		First(&conversation).Error
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

// FindByIDs loads conversations ordered by last activity, newest first.
func (r *ConversationRepository) FindByIDs(ids []uint) ([]models.Conversation, error) {
	var conversations []models.Conversation
	if len(ids) == 0 {
		return conversations, nil
	}
	err := r.db.Where("id IN ?", ids).
		Preload("Participants", func(db *gorm.DB) *gorm.DB {
			return db.Order("conversation_participants.id ASC")
		}).
		Preload("Participants.User").
		Order("updated_at DESC, id DESC").
		Find(&conversations).Error
	return conversations, err
}
