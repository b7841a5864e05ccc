package models

import (
	"time"

	"gorm.io/gorm"
)

// Notification types
const (
	NotificationTypeEmail   = "email"
	NotificationTypeConsole = "console"
)

// Notification statuses
const (
	NotificationStatusPending = "pending"
	NotificationStatusSent    = "sent"
	NotificationStatusFailed  = "failed"
)

// Notification records a single delivery attempt for a triggered alert.
// Failed rows keep their error message so an operator can inspect and
// resend them; the engine itself never retries.
type Notification struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	UserID         uint       `gorm:"index" json:"user_id"`
	User           User       `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	AlertHistoryID *uint      `gorm:"index" json:"alert_history_id,omitempty"`
	Type           string     `gorm:"size:10;not null" json:"type"`
	Subject        string     `gorm:"size:200" json:"subject"`
	Message        string     `json:"message"`
	Status         string     `gorm:"size:10;default:pending" json:"status"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	CorrelationID  string     `gorm:"size:36;index" json:"correlation_id"`
	CreatedAt      time.Time  `json:"created_at"`
}

// MigrateNotificationModels runs database migrations for notification models
func MigrateNotificationModels(db *gorm.DB) error {
	return db.AutoMigrate(&Notification{})
}
