package services

import (
	"context"
	"time"

	"stock_alert_system/errs"
	"stock_alert_system/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Delivery statuses returned by the Notifier boundary.
const (
	DeliverySent   = "sent"
	DeliveryFailed = "failed"
)

// DeliveryResult is the outcome of a single notification delivery.
type DeliveryResult struct {
	Status string
	Err    error
}

// Notifier delivers a message to a user and records the delivery outcome.
// The engine only records status; retrying failed deliveries is an
// operator action.
type Notifier interface {
	Notify(ctx context.Context, userID uint, subject, body, correlationID string) DeliveryResult
}

// EmailSender abstracts the concrete mail transport.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SESSender sends mail through AWS SES.
type SESSender struct {
	client *ses.Client
	sender string
}

// NewSESSender builds an SES-backed sender for the given region and
// verified sender address.
func NewSESSender(ctx context.Context, region, sender string) (*SESSender, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &SESSender{client: ses.NewFromConfig(cfg), sender: sender}, nil
}

// Send delivers one plain-text email.
func (s *SESSender) Send(ctx context.Context, to, subject, body string) error {
	input := &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(s.sender),
	}
	_, err := s.client.SendEmail(ctx, input)
	return err
}

// ConsoleSender logs the message instead of mailing it. Used in
// development and as the fallback when no mail transport is configured.
type ConsoleSender struct {
	log *zap.SugaredLogger
}

// NewConsoleSender creates a console sender.
func NewConsoleSender(log *zap.SugaredLogger) *ConsoleSender {
	return &ConsoleSender{log: log}
}

// Send logs the notification and always succeeds.
func (s *ConsoleSender) Send(_ context.Context, to, subject, body string) error {
	s.log.Infow("ALERT NOTIFICATION", "to", to, "subject", subject, "body", body)
	return nil
}

// NotificationService implements Notifier: it writes a pending
// Notification row, delegates delivery to the configured sender, and
// records sent/failed against the row.
type NotificationService struct {
	db       *gorm.DB
	sender   EmailSender
	sendType string
	log      *zap.SugaredLogger
}

// NewNotificationService creates a notification service. sendType is the
// notification type recorded on rows (email or console).
func NewNotificationService(db *gorm.DB, sender EmailSender, sendType string, log *zap.SugaredLogger) *NotificationService {
	return &NotificationService{
		db:       db,
		sender:   sender,
		sendType: sendType,
		log:      log,
	}
}

// Notify delivers a message to the user and records the outcome. Delivery
// failures are recorded, never raised: the returned result carries the
// error for the caller's log line only.
func (s *NotificationService) Notify(ctx context.Context, userID uint, subject, body, correlationID string) DeliveryResult {
	notification := models.Notification{
		UserID:        userID,
		Type:          s.sendType,
		Subject:       subject,
		Message:       body,
		Status:        models.NotificationStatusPending,
		CorrelationID: correlationID,
	}
	if err := s.db.Create(&notification).Error; err != nil {
		s.log.Errorw("Failed to record notification", "user_id", userID, "error", err)
		return DeliveryResult{Status: DeliveryFailed, Err: errs.Wrap(errs.ErrPersistence, err)}
	}

	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		s.markFailed(&notification, "user not found")
		return DeliveryResult{Status: DeliveryFailed, Err: errs.WithMessage(errs.ErrNotFound, "user not found")}
	}
	if user.Email == "" && s.sendType == models.NotificationTypeEmail {
		s.markFailed(&notification, "user has no email address")
		return DeliveryResult{Status: DeliveryFailed, Err: errs.WithMessage(errs.ErrValidation, "user has no email address")}
	}

	if err := s.sender.Send(ctx, user.Email, subject, body); err != nil {
		s.markFailed(&notification, err.Error())
		s.log.Warnw("Notification delivery failed",
			"user_id", userID, "correlation_id", correlationID, "error", err)
		return DeliveryResult{Status: DeliveryFailed, Err: err}
	}

	now := time.Now().UTC()
	s.db.Model(&notification).Updates(map[string]interface{}{
		"status":  models.NotificationStatusSent,
		"sent_at": now,
	})
	s.log.Infow("Notification sent", "user_id", userID, "correlation_id", correlationID)
	return DeliveryResult{Status: DeliverySent}
}

// AttachHistory links a notification to the alert history row that caused
// it. Called by the alert check job after both rows exist.
func (s *NotificationService) AttachHistory(correlationID string, historyID uint) error {
	return s.db.Model(&models.Notification{}).
		Where("correlation_id = ?", correlationID).
		Update("alert_history_id", historyID).Error
}

// Resend re-attempts delivery of a failed notification by id. Only failed
// rows are eligible.
func (s *NotificationService) Resend(ctx context.Context, id uint) error {
	var notification models.Notification
	err := s.db.First(&notification, id).Error
	if err == gorm.ErrRecordNotFound {
		return errs.WithMessage(errs.ErrNotFound, "notification not found")
	}
	if err != nil {
		return errs.Wrap(errs.ErrPersistence, err)
	}
	if notification.Status != models.NotificationStatusFailed {
		return errs.WithMessage(errs.ErrValidation, "only failed notifications can be resent")
	}

	var user models.User
	if err := s.db.First(&user, notification.UserID).Error; err != nil {
		return errs.WithMessage(errs.ErrNotFound, "user not found")
	}

	if err := s.sender.Send(ctx, user.Email, notification.Subject, notification.Message); err != nil {
		s.markFailed(&notification, err.Error())
		return err
	}

	now := time.Now().UTC()
	return s.db.Model(&notification).Updates(map[string]interface{}{
		"status":        models.NotificationStatusSent,
		"sent_at":       now,
		"error_message": "",
	}).Error
}

func (s *NotificationService) markFailed(notification *models.Notification, reason string) {
	if err := s.db.Model(notification).Updates(map[string]interface{}{
		"status":        models.NotificationStatusFailed,
		"error_message": reason,
	}).Error; err != nil {
		s.log.Errorw("Failed to mark notification failed", "id", notification.ID, "error", err)
	}
}
