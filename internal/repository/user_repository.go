package repository

import (
	"strings"

	"github.com/noteduco342/OMChat-backend/internal/models"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

func (r *UserRepository) FindByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.Where("email = ?", email).First(&user).Error
	return &user, err
}

func (r *UserRepository) FindByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	return &user, err
}

func (r *UserRepository) FindByIDs(ids []uint) ([]models.User, error) {
	var users []models.User
	if len(ids) == 0 {
		return users, nil
	}
	err := r.db.Where("id IN ?", ids).Find(&users).Error
	return users, err
}

// ListOthers returns users other than excludeID ordered by name. A non-empty
// query matches name or email case-insensitively; limit <= 0 means no limit.
func (r *UserRepository) ListOthers(excludeID uint, query string, limit int) ([]models.User, error) {
	var users []models.User
	db := r.db.Where("id <> ?", excludeID)
	if query != "" {
		like := "%" + strings.ToLower(query) + "%"
		db = db.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}
	if limit > 0 {
		db = db.Limit(limit)
	}
	err := db.Order("name ASC, id ASC").Find(&users).Error
	return users, err
}
