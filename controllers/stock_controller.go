package controllers

import (
	"net/http"

	"stock_alert_system/models"
	"stock_alert_system/services"
	"stock_alert_system/services/marketdata"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// StockController handles stock and quote-quota requests
type StockController struct {
	db      *gorm.DB
	prices  *services.PriceService
	limiter *marketdata.RateLimiter
}

// NewStockController creates a new stock controller
func NewStockController(db *gorm.DB, prices *services.PriceService, limiter *marketdata.RateLimiter) *StockController {
	return &StockController{db: db, prices: prices, limiter: limiter}
}

// GetStocks returns the tracked stock list
// GET /api/stocks
func (sc *StockController) GetStocks(c *gin.Context) {
	var stocks []models.Stock
	query := sc.db.Order("symbol")
	if c.Query("active") == "true" {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Find(&stocks).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stocks"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stocks})
}

// RefreshStock fetches a fresh price for one symbol on demand. The call
// shares the scheduler's rate-limit quota.
// POST /api/stocks/:symbol/refresh
func (sc *StockController) RefreshStock(c *gin.Context) {
	stock, err := sc.prices.UpdateSinglePrice(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stock})
}

// GetQuota returns the quote API rate-limit snapshot
// GET /api/quota
func (sc *StockController) GetQuota(c *gin.Context) {
	c.JSON(http.StatusOK, sc.limiter.Status())
}
