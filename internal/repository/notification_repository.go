package repository

import (
	"time"

	"github.com/noteduco342/OMChat-backend/internal/models"
	"gorm.io/gorm"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(notification *models.Notification) error {
	return r.db.Create(notification).Error
}

// FindForUser only returns notifications owned by userID.
func (r *NotificationRepository) FindForUser(userID, id uint) (*models.Notification, error) {
	var notification models.Notification
	err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&notification).Error
	if err != nil {
		return nil, err
	}
	return &notification, nil
}

// ListForUser returns the newest notifications of the given type first.
func (r *NotificationRepository) ListForUser(userID uint, notificationType models.NotificationType, limit int) ([]models.Notification, error) {
	var notifications []models.Notification
	err := r.db.Where("user_id = ? AND type = ?", userID, notificationType).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&notifications).Error
	return notifications, err
}

func (r *NotificationRepository) CountUnread(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Count(&count).Error
	return count, err
}

func (r *NotificationRepository) MarkRead(id uint, at time.Time) error {
	return r.db.Model(&models.Notification{}).
		Where("id = ? AND read_at IS NULL", id).
		Update("read_at", at).Error
}

func (r *NotificationRepository) MarkAllRead(userID uint, at time.Time) (int64, error) {
	res := r.db.Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Update("read_at", at)
	return res.RowsAffected, res.Error
}
