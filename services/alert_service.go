package services

import (
	"context"
	"fmt"
	"time"

	"stock_alert_system/errs"
	"stock_alert_system/models"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var validate = validator.New()

// AlertService evaluates active alerts against current stock prices and
// drives the notifier on triggers.
type AlertService struct {
	db       *gorm.DB
	notifier Notifier
	log      *zap.SugaredLogger
}

// NewAlertService creates an alert service.
func NewAlertService(db *gorm.DB, notifier Notifier, log *zap.SugaredLogger) *AlertService {
	return &AlertService{db: db, notifier: notifier, log: log}
}

// AlertCheckSummary reports the outcome of one alert check run.
type AlertCheckSummary struct {
	Checked   int       `json:"checked_count"`
	Triggered int       `json:"triggered_count"`
	Total     int       `json:"total_alerts"`
	Timestamp time.Time `json:"timestamp"`
}

// CheckAllAlerts evaluates every alert with is_active=true. Alerts whose
// stock has no price yet are skipped and logged. Per-alert failures are
// counted and logged; the loop always continues. Alerts already in
// triggered status stay eligible and may trigger again on later runs.
//
// This method must not run concurrently with itself: the duration state
// machine mutates per-alert working memory, and the scheduler's singleton
// job mode is the only concurrency guard.
func (s *AlertService) CheckAllAlerts(ctx context.Context) (*AlertCheckSummary, error) {
	var alerts []models.Alert
	if err := s.db.Where("is_active = ?", true).
		Preload("Stock").Preload("User").
		Find(&alerts).Error; err != nil {
		return nil, errs.Wrap(errs.ErrPersistence, err)
	}

	summary := &AlertCheckSummary{Total: len(alerts), Timestamp: time.Now().UTC()}

	for i := range alerts {
		select {
		case <-ctx.Done():
			s.log.Infow("Alert check cancelled", "checked", summary.Checked)
			summary.Timestamp = time.Now().UTC()
			return summary, nil
		default:
		}

		alert := &alerts[i]
		summary.Checked++

		if alert.Stock.Price == nil {
			s.log.Warnw("No price data for alert's stock, skipping",
				"alert_id", alert.ID, "symbol", alert.Stock.Symbol)
			continue
		}

		triggered, err := s.checkAlert(ctx, alert)
		if err != nil {
			s.log.Errorw("Error checking alert", "alert_id", alert.ID, "error", err)
			continue
		}
		if triggered {
			summary.Triggered++
		}
	}

	summary.Timestamp = time.Now().UTC()
	s.log.Infow("Alert check completed",
		"checked", summary.Checked, "triggered", summary.Triggered, "total", summary.Total)
	return summary, nil
}

// checkAlert evaluates one alert, persists its mutated state and, on a
// trigger, writes history, notifies the owner and marks the alert
// triggered.
func (s *AlertService) checkAlert(ctx context.Context, alert *models.Alert) (bool, error) {
	now := time.Now().UTC()
	result := EvaluateAlert(alert, alert.Stock.Price, now)

	// The duration state machine's working memory has to survive to the
	// next run, so state is written back every evaluation.
	updates := map[string]interface{}{
		"condition_start_time": alert.ConditionStartTime,
		"last_checked":         now,
	}
	if result.Triggered {
		updates["status"] = models.AlertStatusTriggered
	}
	if err := s.db.Model(alert).Updates(updates).Error; err != nil {
		return false, errs.Wrap(errs.ErrPersistence, err)
	}
	alert.LastChecked = &now

	if !result.Triggered {
		return false, nil
	}

	history := models.AlertHistory{
		AlertID:     alert.ID,
		TriggeredAt: now,
		StockPrice:  *alert.Stock.Price,
		Message:     result.Reason,
	}
	if err := s.db.Create(&history).Error; err != nil {
		return false, errs.Wrap(errs.ErrPersistence, err)
	}

	alert.Status = models.AlertStatusTriggered
	s.log.Infow("Alert triggered", "alert_id", alert.ID, "reason", result.Reason)
	s.sendTriggerNotification(ctx, alert, &history)

	return true, nil
}

// sendTriggerNotification delivers the trigger message. Delivery failures
// are recorded at the notifier boundary and logged here; they never
// propagate into the check loop.
func (s *AlertService) sendTriggerNotification(ctx context.Context, alert *models.Alert, history *models.AlertHistory) {
	subject := fmt.Sprintf("Stock Alert: %s %s %s",
		alert.Stock.Symbol, alert.Condition, alert.TargetPrice.StringFixed(2))
	body := fmt.Sprintf(
		"Your stock alert has been triggered\n\n"+
			"Stock: %s\n"+
			"Condition: %s $%s\n"+
			"Current Price: $%s\n"+
			"Triggered At: %s\n"+
			"Reason: %s\n",
		alert.Stock.Symbol, alert.Condition, alert.TargetPrice.StringFixed(2),
		history.StockPrice.StringFixed(2),
		history.TriggeredAt.Format(time.RFC3339),
		history.Message,
	)

	correlationID := uuid.NewString()
	delivery := s.notifier.Notify(ctx, alert.UserID, subject, body, correlationID)

	if attacher, ok := s.notifier.(*NotificationService); ok {
		if err := attacher.AttachHistory(correlationID, history.ID); err != nil {
			s.log.Warnw("Failed to link notification to history", "history_id", history.ID, "error", err)
		}
	}

	if delivery.Status != DeliverySent {
		s.log.Warnw("Alert notification not delivered",
			"alert_id", alert.ID, "correlation_id", correlationID, "error", delivery.Err)
		return
	}

	sentAt := time.Now().UTC()
	if err := s.db.Model(history).Updates(map[string]interface{}{
		"notification_sent":    true,
		"notification_sent_at": sentAt,
	}).Error; err != nil {
		s.log.Warnw("Failed to stamp history delivery", "history_id", history.ID, "error", err)
	}
}

// CreateAlertInput is the validated input for CreateAlert.
type CreateAlertInput struct {
	UserID          uint            `json:"user_id" validate:"required"`
	Symbol          string          `json:"symbol" validate:"required,max=10"`
	AlertType       string          `json:"alert_type" validate:"required,oneof=threshold duration"`
	Condition       string          `json:"condition" validate:"required,oneof=above below equals"`
	TargetPrice     decimal.Decimal `json:"target_price"`
	DurationMinutes *int            `json:"duration_minutes,omitempty"`
}

// CreateAlert validates and stores a new alert rule. Duration alerts must
// carry a positive duration; threshold alerts must not carry one.
func (s *AlertService) CreateAlert(input CreateAlertInput) (*models.Alert, error) {
	if err := validate.Struct(input); err != nil {
		return nil, errs.Wrap(errs.ErrValidation, err)
	}
	if !input.TargetPrice.GreaterThan(decimal.Zero) {
		return nil, errs.WithMessage(errs.ErrValidation, "target price must be positive")
	}

	switch input.AlertType {
	case models.AlertTypeDuration:
		if input.DurationMinutes == nil || *input.DurationMinutes <= 0 {
			return nil, errs.WithMessage(errs.ErrValidation, "duration alerts require a positive duration in minutes")
		}
	case models.AlertTypeThreshold:
		if input.DurationMinutes != nil {
			return nil, errs.WithMessage(errs.ErrValidation, "threshold alerts must not set a duration")
		}
	}

	var stock models.Stock
	err := s.db.Where("symbol = ? AND is_active = ?", input.Symbol, true).First(&stock).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errs.WithMessage(errs.ErrNotFound, "stock not found or inactive")
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrPersistence, err)
	}

	alert := models.Alert{
		UserID:          input.UserID,
		StockID:         stock.ID,
		AlertType:       input.AlertType,
		Condition:       input.Condition,
		TargetPrice:     input.TargetPrice,
		DurationMinutes: input.DurationMinutes,
		Status:          models.AlertStatusActive,
		IsActive:        true,
	}
	if err := s.db.Create(&alert).Error; err != nil {
		return nil, errs.Wrap(errs.ErrPersistence, err)
	}

	s.log.Infow("Alert created", "alert_id", alert.ID, "symbol", stock.Symbol, "type", alert.AlertType)
	alert.Stock = stock
	return &alert, nil
}

// DeactivateAlert suspends evaluation of an alert owned by the given user.
func (s *AlertService) DeactivateAlert(alertID, userID uint) error {
	var alert models.Alert
	err := s.db.Where("id = ? AND user_id = ?", alertID, userID).First(&alert).Error
	if err == gorm.ErrRecordNotFound {
		return errs.WithMessage(errs.ErrNotFound, "alert not found")
	}
	if err != nil {
		return errs.Wrap(errs.ErrPersistence, err)
	}

	if err := s.db.Model(&alert).Update("is_active", false).Error; err != nil {
		return errs.Wrap(errs.ErrPersistence, err)
	}
	s.log.Infow("Alert deactivated", "alert_id", alertID)
	return nil
}

// CleanupOldHistory deletes alert history rows older than the given number
// of days and returns how many rows were removed.
func (s *AlertService) CleanupOldHistory(days int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	result := s.db.Where("triggered_at < ?", cutoff).Delete(&models.AlertHistory{})
	if result.Error != nil {
		return 0, errs.Wrap(errs.ErrPersistence, result.Error)
	}
	return result.RowsAffected, nil
}
