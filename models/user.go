package models

import (
	"time"

	"gorm.io/gorm"
)

// User is the alert owner. Account management and authentication live in
// a separate service; only the fields the alert engine needs are kept here.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"uniqueIndex;size:150;not null" json:"username"`
	Email     string    `gorm:"size:254" json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// MigrateUserModels runs database migrations for user models
func MigrateUserModels(db *gorm.DB) error {
	return db.AutoMigrate(&User{})
}
