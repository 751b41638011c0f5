package db

import (
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"eventchat/internal/config"
	"eventchat/internal/conversation"
	"eventchat/internal/event"
	"eventchat/internal/user"
)

var DB *gorm.DB

func Init(cfg *config.Config) error {
	db, err := gorm.Open(postgres.Open(cfg.Postgres.DSN), &gorm.Config{})
	if err != nil {
		return err
	}

	// Auto-migrate user model
	if err := db.AutoMigrate(&user.User{}); err != nil {
		return err
	}

	// Auto-migrate conversation and message models
	if err := db.AutoMigrate(&conversation.Conversation{}, &conversation.Message{}); err != nil {
		return err
	}

	// Auto-migrate event, registration and reminder models
	if err := db.AutoMigrate(&event.Event{}, &event.Registration{}, &event.Reminder{}); err != nil {
		return err
	}

	DB = db
	log.Printf("Database connected and migrated")
	return nil
}
