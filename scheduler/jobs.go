package scheduler

import (
	"context"
	"fmt"
	"time"

	"stock_alert_system/config"
	"stock_alert_system/services"

	"go.uber.org/zap"
)

// Job ids used by the operator control surface.
const (
	JobUpdateStockPrices = "update_stock_prices"
	JobCheckAlerts       = "check_alerts"
	JobMarketHoursUpdate = "market_hours_update"
	JobDailyCleanup      = "daily_cleanup"
)

// RegisterJobs wires the standard job set into the scheduler:
//
//   - update_stock_prices: every PriceUpdateInterval, misfire grace equal
//     to the interval
//   - check_alerts: every AlertCheckInterval, misfire grace equal to the
//     interval
//   - market_hours_update: a finer price-refresh cadence gated on market
//     hours in the configured exchange time zone
//   - daily_cleanup: retention pruning once per day at 00:00 UTC
func RegisterJobs(s *Scheduler, cfg *config.Config, prices *services.PriceService, alerts *services.AlertService, log *zap.SugaredLogger) error {
	marketLoc, err := time.LoadLocation(cfg.MarketTimezone)
	if err != nil {
		return fmt.Errorf("invalid market timezone %q: %w", cfg.MarketTimezone, err)
	}

	err = s.AddIntervalJob(JobUpdateStockPrices, "Update Stock Prices",
		cfg.PriceUpdateInterval, cfg.PriceUpdateInterval,
		func(ctx context.Context) {
			if _, err := prices.UpdateAllPrices(ctx); err != nil {
				log.Errorw("Price update job failed", "error", err)
			}
		})
	if err != nil {
		return err
	}

	err = s.AddIntervalJob(JobCheckAlerts, "Check Alerts",
		cfg.AlertCheckInterval, cfg.AlertCheckInterval,
		func(ctx context.Context) {
			if _, err := alerts.CheckAllAlerts(ctx); err != nil {
				log.Errorw("Alert check job failed", "error", err)
			}
		})
	if err != nil {
		return err
	}

	err = s.AddIntervalJob(JobMarketHoursUpdate, "Market Hours Update",
		cfg.MarketHoursInterval, 0,
		func(ctx context.Context) {
			if !isMarketOpen(time.Now().In(marketLoc)) {
				return
			}
			if _, err := prices.UpdateAllPrices(ctx); err != nil {
				log.Errorw("Market hours update failed", "error", err)
			}
		})
	if err != nil {
		return err
	}

	return s.AddDailyJob(JobDailyCleanup, "Daily Cleanup", "00:00",
		func(ctx context.Context) {
			pricesPruned, err := prices.CleanupOldPrices(cfg.PriceRetentionDays)
			if err != nil {
				log.Errorw("Price history cleanup failed", "error", err)
			}
			historyPruned, err := alerts.CleanupOldHistory(cfg.HistoryRetentionDays)
			if err != nil {
				log.Errorw("Alert history cleanup failed", "error", err)
			}
			log.Infow("Daily cleanup completed", "prices_pruned", pricesPruned, "history_pruned", historyPruned)
		})
}

// isMarketOpen reports whether t falls inside regular trading hours:
// weekdays, 9:30 to 16:00 in the exchange's local time.
func isMarketOpen(t time.Time) bool {
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}

	minutes := t.Hour()*60 + t.Minute()
	return minutes >= 9*60+30 && minutes < 16*60
}
