package services

import (
	"testing"
	"time"

	"stock_alert_system/models"
	"stock_alert_system/testutil"
)

func thresholdAlert(t *testing.T, condition, target string) *models.Alert {
	t.Helper()
	return &models.Alert{
		AlertType:   models.AlertTypeThreshold,
		Condition:   condition,
		TargetPrice: testutil.Dec(t, target),
	}
}

func durationAlert(t *testing.T, condition, target string, minutes int) *models.Alert {
	t.Helper()
	return &models.Alert{
		AlertType:       models.AlertTypeDuration,
		Condition:       condition,
		TargetPrice:     testutil.Dec(t, target),
		DurationMinutes: testutil.IntPtr(minutes),
	}
}

func TestEvaluateThreshold(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		condition string
		price     string
		target    string
		want      bool
	}{
		{"above_true", models.ConditionAbove, "100.01", "100.00", true},
		{"above_equal_is_false", models.ConditionAbove, "100.00", "100.00", false},
		{"above_false", models.ConditionAbove, "99.99", "100.00", false},
		{"below_true", models.ConditionBelow, "99.99", "100.00", true},
		{"below_equal_is_false", models.ConditionBelow, "100.00", "100.00", false},
		{"below_false", models.ConditionBelow, "100.01", "100.00", false},
		{"equals_exact", models.ConditionEquals, "100.00", "100.00", true},
		{"equals_at_tolerance", models.ConditionEquals, "100.01", "100.00", true},
		{"equals_at_tolerance_below", models.ConditionEquals, "99.99", "100.00", true},
		{"equals_past_tolerance", models.ConditionEquals, "100.011", "100.00", false},
		{"equals_far", models.ConditionEquals, "101.00", "100.00", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alert := thresholdAlert(t, tt.condition, tt.target)
			price := testutil.Dec(t, tt.price)

			result := EvaluateAlert(alert, &price, now)
			if result.Triggered != tt.want {
				t.Errorf("price=%s target=%s condition=%s: triggered=%v, want %v",
					tt.price, tt.target, tt.condition, result.Triggered, tt.want)
			}
			if result.Triggered && result.Reason == "" {
				t.Error("triggered result must carry a reason")
			}
		})
	}
}

func TestEvaluateDurationTimeline(t *testing.T) {
	alert := durationAlert(t, models.ConditionBelow, "50.00", 60)
	price := testutil.Dec(t, "45.00")
	start := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	// First sample starts the timer and can never trigger.
	result := EvaluateAlert(alert, &price, start)
	if result.Triggered {
		t.Fatal("first conforming sample must not trigger")
	}
	if alert.ConditionStartTime == nil || !alert.ConditionStartTime.Equal(start) {
		t.Fatalf("expected condition start time %v, got %v", start, alert.ConditionStartTime)
	}

	// 30 minutes in: under the configured duration.
	result = EvaluateAlert(alert, &price, start.Add(30*time.Minute))
	if result.Triggered {
		t.Fatal("sample at +30m of a 60m alert must not trigger")
	}

	// 70 minutes in: over the duration, triggers.
	result = EvaluateAlert(alert, &price, start.Add(70*time.Minute))
	if !result.Triggered {
		t.Fatal("sample at +70m of a 60m alert must trigger")
	}
	if alert.ConditionStartTime == nil {
		t.Fatal("trigger must leave the condition start time set")
	}
}

func TestEvaluateDurationExactBoundary(t *testing.T) {
	alert := durationAlert(t, models.ConditionBelow, "50.00", 60)
	price := testutil.Dec(t, "45.00")
	start := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	EvaluateAlert(alert, &price, start)

	result := EvaluateAlert(alert, &price, start.Add(60*time.Minute))
	if !result.Triggered {
		t.Fatal("elapsed exactly equal to the duration must trigger")
	}
}

func TestEvaluateDurationResetOnBreak(t *testing.T) {
	alert := durationAlert(t, models.ConditionBelow, "50.00", 60)
	below := testutil.Dec(t, "45.00")
	above := testutil.Dec(t, "55.00")
	start := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	EvaluateAlert(alert, &below, start)
	if alert.ConditionStartTime == nil {
		t.Fatal("timer should have started")
	}

	// Condition breaks at +10m: progress resets to zero.
	result := EvaluateAlert(alert, &above, start.Add(10*time.Minute))
	if result.Triggered {
		t.Fatal("broken condition must not trigger")
	}
	if alert.ConditionStartTime != nil {
		t.Fatal("broken condition must clear the timer")
	}

	// Condition holds again at +15m: the timer restarts from zero.
	restart := start.Add(15 * time.Minute)
	result = EvaluateAlert(alert, &below, restart)
	if result.Triggered {
		t.Fatal("restarted timer must not trigger immediately")
	}
	if alert.ConditionStartTime == nil || !alert.ConditionStartTime.Equal(restart) {
		t.Fatalf("timer must restart at %v, got %v", restart, alert.ConditionStartTime)
	}
}

func TestEvaluateDurationOtherComparators(t *testing.T) {
	alert := durationAlert(t, models.ConditionAbove, "50.00", 30)
	price := testutil.Dec(t, "60.00")
	start := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	EvaluateAlert(alert, &price, start)
	result := EvaluateAlert(alert, &price, start.Add(45*time.Minute))
	if !result.Triggered {
		t.Fatal("duration state machine must work for the above comparator too")
	}
}

func TestEvaluateDurationMissingDuration(t *testing.T) {
	alert := &models.Alert{
		AlertType:   models.AlertTypeDuration,
		Condition:   models.ConditionBelow,
		TargetPrice: testutil.Dec(t, "50.00"),
	}
	price := testutil.Dec(t, "45.00")

	result := EvaluateAlert(alert, &price, time.Now())
	if result.Triggered {
		t.Fatal("duration alert without a duration must never trigger")
	}
}

func TestEvaluateNilPrice(t *testing.T) {
	started := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	alert := durationAlert(t, models.ConditionBelow, "50.00", 60)
	alert.ConditionStartTime = &started

	result := EvaluateAlert(alert, nil, started.Add(2*time.Hour))
	if result.Triggered {
		t.Fatal("missing price must never trigger")
	}
	if alert.ConditionStartTime == nil || !alert.ConditionStartTime.Equal(started) {
		t.Fatal("missing price must not mutate duration state")
	}

	threshold := thresholdAlert(t, models.ConditionAbove, "10.00")
	if EvaluateAlert(threshold, nil, time.Now()).Triggered {
		t.Fatal("missing price must never trigger a threshold alert")
	}
}
