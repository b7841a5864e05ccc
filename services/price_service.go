package services

import (
	"context"
	"time"

	"stock_alert_system/errs"
	"stock_alert_system/models"
	"stock_alert_system/services/marketdata"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PriceService updates stock prices from the quote API and maintains the
// price history table.
type PriceService struct {
	db         *gorm.DB
	client     *marketdata.Client
	fetchDelay time.Duration
	log        *zap.SugaredLogger
}

// NewPriceService creates a price service. fetchDelay is the stagger
// between consecutive quote API calls inside a batch update.
func NewPriceService(db *gorm.DB, client *marketdata.Client, fetchDelay time.Duration, log *zap.SugaredLogger) *PriceService {
	return &PriceService{
		db:         db,
		client:     client,
		fetchDelay: fetchDelay,
		log:        log,
	}
}

// PriceUpdateSummary reports the outcome of one batch price update.
type PriceUpdateSummary struct {
	Updated   int       `json:"updated_count"`
	Failed    int       `json:"failed_count"`
	Total     int       `json:"total_stocks"`
	Timestamp time.Time `json:"timestamp"`
}

// UpdateAllPrices fetches and persists a fresh price for every active
// stock, sequentially and staggered so the whole batch stays under the
// quote API rate limit. A failed symbol is counted and skipped; it never
// aborts the batch. An empty batch returns a zero summary, not an error.
func (s *PriceService) UpdateAllPrices(ctx context.Context) (*PriceUpdateSummary, error) {
	var stocks []models.Stock
	if err := s.db.Where("is_active = ?", true).Order("symbol").Find(&stocks).Error; err != nil {
		return nil, errs.Wrap(errs.ErrPersistence, err)
	}

	summary := &PriceUpdateSummary{Total: len(stocks), Timestamp: time.Now().UTC()}
	if len(stocks) == 0 {
		s.log.Info("No active stocks to update")
		return summary, nil
	}

	s.log.Infow("Starting staggered price update", "stocks", len(stocks), "delay", s.fetchDelay)

	for i, stock := range stocks {
		if err := s.updateStock(ctx, &stock); err != nil {
			summary.Failed++
			s.log.Warnw("Price update failed", "symbol", stock.Symbol, "code", errs.Code(err), "error", err)
		} else {
			summary.Updated++
		}

		if i < len(stocks)-1 {
			select {
			case <-ctx.Done():
				s.log.Infow("Price update cancelled", "updated", summary.Updated, "failed", summary.Failed)
				summary.Timestamp = time.Now().UTC()
				return summary, nil
			case <-time.After(s.fetchDelay):
			}
		}
	}

	summary.Timestamp = time.Now().UTC()
	s.log.Infow("Price update completed", "updated", summary.Updated, "failed", summary.Failed, "total", summary.Total)
	return summary, nil
}

// UpdateSinglePrice refreshes one stock on demand. It shares the batch
// path's rate limiter, so ad-hoc refreshes count against the same quota.
func (s *PriceService) UpdateSinglePrice(ctx context.Context, symbol string) (*models.Stock, error) {
	if err := marketdata.ValidateSymbol(symbol); err != nil {
		return nil, err
	}

	var stock models.Stock
	err := s.db.Where("symbol = ? AND is_active = ?", symbol, true).First(&stock).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errs.WithMessage(errs.ErrNotFound, "stock "+symbol+" not found or inactive")
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrPersistence, err)
	}

	if err := s.updateStock(ctx, &stock); err != nil {
		return nil, err
	}
	return &stock, nil
}

// updateStock fetches a price and persists both the stock row and a new
// history sample.
func (s *PriceService) updateStock(ctx context.Context, stock *models.Stock) error {
	price, err := s.client.FetchPrice(ctx, stock.Symbol)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"price":        price,
		"last_updated": now,
	}
	if err := s.db.Model(stock).Updates(updates).Error; err != nil {
		return errs.Wrap(errs.ErrPersistence, err)
	}
	stock.Price = &price
	stock.LastUpdated = now

	sample := models.StockPrice{StockID: stock.ID, Price: price, Timestamp: now}
	if err := s.db.Create(&sample).Error; err != nil {
		return errs.Wrap(errs.ErrPersistence, err)
	}

	s.log.Debugw("Updated stock price", "symbol", stock.Symbol, "price", price.String())
	return nil
}

// CleanupOldPrices deletes price history samples older than the given
// number of days and returns how many rows were removed.
func (s *PriceService) CleanupOldPrices(days int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	result := s.db.Where("timestamp < ?", cutoff).Delete(&models.StockPrice{})
	if result.Error != nil {
		return 0, errs.Wrap(errs.ErrPersistence, result.Error)
	}
	return result.RowsAffected, nil
}
