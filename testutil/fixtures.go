package testutil

import (
	"fmt"
	"testing"

	"stock_alert_system/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CreateTestUser creates a user with a unique username and email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	n := nextID()
	user := &models.User{
		Username: fmt.Sprintf("user%d", n),
		Email:    fmt.Sprintf("user%d@test.com", n),
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestStock creates an active stock; price may be nil to model a
// stock that has never been fetched.
func CreateTestStock(t *testing.T, db *gorm.DB, symbol string, price *decimal.Decimal) *models.Stock {
	t.Helper()

	stock := &models.Stock{
		Symbol:   symbol,
		Name:     symbol + " Test Corp",
		Price:    price,
		Currency: "USD",
		Exchange: "NASDAQ",
		IsActive: true,
	}
	if err := db.Create(stock).Error; err != nil {
		t.Fatalf("failed to create test stock: %v", err)
	}
	return stock
}

// CreateTestAlert creates an active alert for the given user and stock.
// durationMinutes may be nil for threshold alerts.
func CreateTestAlert(t *testing.T, db *gorm.DB, user *models.User, stock *models.Stock, alertType, condition string, target decimal.Decimal, durationMinutes *int) *models.Alert {
	t.Helper()

	alert := &models.Alert{
		UserID:          user.ID,
		StockID:         stock.ID,
		AlertType:       alertType,
		Condition:       condition,
		TargetPrice:     target,
		DurationMinutes: durationMinutes,
		Status:          models.AlertStatusActive,
		IsActive:        true,
	}
	if err := db.Create(alert).Error; err != nil {
		t.Fatalf("failed to create test alert: %v", err)
	}
	return alert
}

// Dec parses a decimal literal, failing the test on bad input.
func Dec(t *testing.T, v string) decimal.Decimal {
	t.Helper()

	d, err := decimal.NewFromString(v)
	if err != nil {
		t.Fatalf("bad decimal literal %q: %v", v, err)
	}
	return d
}

// DecPtr parses a decimal literal and returns a pointer to it.
func DecPtr(t *testing.T, v string) *decimal.Decimal {
	t.Helper()

	d := Dec(t, v)
	return &d
}

// IntPtr returns a pointer to n.
func IntPtr(n int) *int {
	return &n
}
