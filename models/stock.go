package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Stock represents a tracked stock symbol
type Stock struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	Symbol      string           `gorm:"uniqueIndex;size:10;not null" json:"symbol"`
	Name        string           `gorm:"size:100" json:"name"`
	Price       *decimal.Decimal `gorm:"type:decimal(10,2)" json:"price"` // nil until first fetch
	Currency    string           `gorm:"size:3;default:USD" json:"currency"`
	Exchange    string           `gorm:"size:10;default:NASDAQ" json:"exchange"`
	IsActive    bool             `gorm:"default:true" json:"is_active"`
	LastUpdated time.Time        `gorm:"autoUpdateTime" json:"last_updated"`
	CreatedAt   time.Time        `json:"created_at"`
}

// StockPrice is an append-only historical price sample, written only by
// the price update path and pruned by the daily retention job.
type StockPrice struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	StockID   uint            `gorm:"index:idx_stock_timestamp" json:"stock_id"`
	Stock     Stock           `gorm:"foreignKey:StockID;constraint:OnDelete:CASCADE" json:"stock,omitempty"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2)" json:"price"`
	Timestamp time.Time       `gorm:"index:idx_stock_timestamp,sort:desc;autoCreateTime" json:"timestamp"`
}

// MigrateStockModels runs database migrations for stock-related models
func MigrateStockModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&Stock{},
		&StockPrice{},
	)
}

// DefaultStocks is the seed list applied on first boot for symbols that
// are not already present.
var DefaultStocks = []Stock{
	{Symbol: "AAPL", Name: "Apple Inc.", Exchange: "NASDAQ"},
	{Symbol: "GOOGL", Name: "Alphabet Inc.", Exchange: "NASDAQ"},
	{Symbol: "MSFT", Name: "Microsoft Corporation", Exchange: "NASDAQ"},
	{Symbol: "AMZN", Name: "Amazon.com Inc.", Exchange: "NASDAQ"},
	{Symbol: "TSLA", Name: "Tesla Inc.", Exchange: "NASDAQ"},
	{Symbol: "META", Name: "Meta Platforms Inc.", Exchange: "NASDAQ"},
	{Symbol: "NVDA", Name: "NVIDIA Corporation", Exchange: "NASDAQ"},
	{Symbol: "NFLX", Name: "Netflix Inc.", Exchange: "NASDAQ"},
	{Symbol: "AMD", Name: "Advanced Micro Devices", Exchange: "NASDAQ"},
	{Symbol: "INTC", Name: "Intel Corporation", Exchange: "NASDAQ"},
}

// SeedDefaultStocks inserts the default stock list, skipping symbols that
// already exist.
func SeedDefaultStocks(db *gorm.DB) error {
	for _, stock := range DefaultStocks {
		var existing Stock
		err := db.Where("symbol = ?", stock.Symbol).First(&existing).Error
		if err == gorm.ErrRecordNotFound {
			stock.IsActive = true
			if err := db.Create(&stock).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
	}
	return nil
}
