package services

import (
	"fmt"
	"time"

	"stock_alert_system/models"

	"github.com/shopspring/decimal"
)

// equalsTolerance absorbs rounding for "equals" conditions: one cent.
var equalsTolerance = decimal.NewFromFloat(0.01)

// EvalResult is the outcome of evaluating one alert against one price.
type EvalResult struct {
	Triggered bool
	Reason    string
}

// EvaluateAlert decides whether alert fires at the given price and time.
//
// Threshold alerts are stateless comparisons. Duration alerts keep their
// working memory in alert.ConditionStartTime: the timer starts on the
// first sample where the condition holds (that sample never triggers),
// fires once the condition has held continuously for the configured
// duration, and resets whenever a sample breaks the condition. The
// function mutates only ConditionStartTime; persisting the change is the
// caller's job, since the state spans job runs. On a trigger the start
// time is left set — any reset policy after triggering belongs to the
// caller.
//
// A nil price never triggers and never mutates state.
func EvaluateAlert(alert *models.Alert, price *decimal.Decimal, now time.Time) EvalResult {
	if price == nil {
		return EvalResult{}
	}

	switch alert.AlertType {
	case models.AlertTypeThreshold:
		return evaluateThreshold(alert, *price)
	case models.AlertTypeDuration:
		return evaluateDuration(alert, *price, now)
	}
	return EvalResult{}
}

func evaluateThreshold(alert *models.Alert, price decimal.Decimal) EvalResult {
	if !conditionHolds(alert.Condition, price, alert.TargetPrice) {
		return EvalResult{}
	}
	return EvalResult{
		Triggered: true,
		Reason: fmt.Sprintf("Price $%s %s threshold $%s",
			price.StringFixed(2), alert.Condition, alert.TargetPrice.StringFixed(2)),
	}
}

func evaluateDuration(alert *models.Alert, price decimal.Decimal, now time.Time) EvalResult {
	if alert.DurationMinutes == nil || *alert.DurationMinutes <= 0 {
		return EvalResult{}
	}

	if !conditionHolds(alert.Condition, price, alert.TargetPrice) {
		// Condition broke: progress resets to zero.
		alert.ConditionStartTime = nil
		return EvalResult{}
	}

	if alert.ConditionStartTime == nil {
		start := now
		alert.ConditionStartTime = &start
		return EvalResult{}
	}

	required := time.Duration(*alert.DurationMinutes) * time.Minute
	if now.Sub(*alert.ConditionStartTime) < required {
		return EvalResult{}
	}

	return EvalResult{
		Triggered: true,
		Reason: fmt.Sprintf("Price $%s %s $%s for %d minutes",
			price.StringFixed(2), alert.Condition, alert.TargetPrice.StringFixed(2), *alert.DurationMinutes),
	}
}

// conditionHolds reports whether price satisfies the comparator against
// target. Above and below are strict; equals allows a one-cent tolerance.
func conditionHolds(condition string, price, target decimal.Decimal) bool {
	switch condition {
	case models.ConditionAbove:
		return price.GreaterThan(target)
	case models.ConditionBelow:
		return price.LessThan(target)
	case models.ConditionEquals:
		return price.Sub(target).Abs().LessThanOrEqual(equalsTolerance)
	}
	return false
}
