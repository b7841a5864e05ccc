package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Alert types
const (
	AlertTypeThreshold = "threshold"
	AlertTypeDuration  = "duration"
)

// Alert conditions
const (
	ConditionAbove  = "above"
	ConditionBelow  = "below"
	ConditionEquals = "equals"
)

// Alert statuses
const (
	AlertStatusActive    = "active"
	AlertStatusInactive  = "inactive"
	AlertStatusTriggered = "triggered"
)

// Alert is a user-defined price rule evaluated by the alert check job.
// DurationMinutes must be nil for threshold alerts and a positive value
// for duration alerts. ConditionStartTime is the duration state machine's
// working memory: the start of the current unbroken streak where the
// condition held, nil when the condition is not currently holding.
type Alert struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	UserID      uint            `gorm:"index" json:"user_id"`
	User        User            `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	StockID     uint            `gorm:"index" json:"stock_id"`
	Stock       Stock           `gorm:"foreignKey:StockID;constraint:OnDelete:CASCADE" json:"stock,omitempty"`
	AlertType   string          `gorm:"size:10;not null" json:"alert_type"`
	Condition   string          `gorm:"size:10;not null" json:"condition"`
	TargetPrice decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"target_price"`

	DurationMinutes *int `json:"duration_minutes,omitempty"`

	Status             string     `gorm:"size:10;default:active" json:"status"`
	IsActive           bool       `gorm:"default:true" json:"is_active"`
	ConditionStartTime *time.Time `json:"condition_start_time,omitempty"`
	LastChecked        *time.Time `json:"last_checked,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Description returns a human-readable summary of the alert rule.
func (a *Alert) Description() string {
	if a.AlertType == AlertTypeDuration && a.DurationMinutes != nil {
		return fmt.Sprintf("Alert when %s stays %s $%s for %d minutes",
			a.Stock.Symbol, a.Condition, a.TargetPrice.StringFixed(2), *a.DurationMinutes)
	}
	return fmt.Sprintf("Alert when %s goes %s $%s",
		a.Stock.Symbol, a.Condition, a.TargetPrice.StringFixed(2))
}

// AlertHistory records one trigger event. Rows are written exactly once
// per trigger; only the notification delivery fields are updated later.
type AlertHistory struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	AlertID            uint            `gorm:"index" json:"alert_id"`
	Alert              Alert           `gorm:"foreignKey:AlertID;constraint:OnDelete:CASCADE" json:"alert,omitempty"`
	TriggeredAt        time.Time       `gorm:"index;autoCreateTime" json:"triggered_at"`
	StockPrice         decimal.Decimal `gorm:"type:decimal(10,2)" json:"stock_price"`
	Message            string          `json:"message"`
	NotificationSent   bool            `gorm:"default:false" json:"notification_sent"`
	NotificationSentAt *time.Time      `json:"notification_sent_at,omitempty"`
}

// MigrateAlertModels runs database migrations for alert models
func MigrateAlertModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&Alert{},
		&AlertHistory{},
	)
}
