package repository

import (
	"github.com/noteduco342/OMChat-backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func InitDB(dsn string) (*gorm.DB, error) {
	// TranslateError maps unique violations to gorm.ErrDuplicatedKey, which the
	// participant and direct-conversation paths rely on.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	// Auto-migrate models
	if err := db.AutoMigrate(
		&models.User{},
		&models.Conversation{},
		&models.Participant{},
		&models.Message{},
		&models.Attachment{},
		&models.Notification{},
	); err != nil {
		return nil, err
	}

	return db, nil
}
