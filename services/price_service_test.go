package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stock_alert_system/models"
	"stock_alert_system/services/marketdata"
	"stock_alert_system/testutil"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// quoteHandler serves fixed prices per symbol and an error envelope for
// anything not in the map.
func quoteHandler(prices map[string]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		symbol := r.URL.Query().Get("symbol")
		if price, ok := prices[symbol]; ok {
			w.Write([]byte(`{"price":"` + price + `"}`))
			return
		}
		w.Write([]byte(`{"status":"error","message":"symbol not found"}`))
	}
}

func newTestPriceService(t *testing.T, db *gorm.DB, prices map[string]string) *PriceService {
	t.Helper()

	server := httptest.NewServer(quoteHandler(prices))
	t.Cleanup(server.Close)

	limiter := marketdata.NewRateLimiter(1000, time.Minute)
	client := marketdata.NewClient(server.URL, "test-key", 2*time.Second, limiter, zap.NewNop().Sugar())
	return NewPriceService(db, client, 0, zap.NewNop().Sugar())
}

func TestUpdateAllPrices(t *testing.T) {
	t.Run("partial_failure", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		testutil.CreateTestStock(t, db, "AAPL", nil)
		testutil.CreateTestStock(t, db, "BAD", nil)
		testutil.CreateTestStock(t, db, "MSFT", nil)

		svc := newTestPriceService(t, db, map[string]string{
			"AAPL": "178.23",
			"MSFT": "402.10",
		})

		summary, err := svc.UpdateAllPrices(context.Background())
		testutil.AssertNoError(t, err)

		if summary.Total != 3 || summary.Updated != 2 || summary.Failed != 1 {
			t.Fatalf("summary = %+v, want total=3 updated=2 failed=1", summary)
		}

		var aapl models.Stock
		testutil.AssertNoError(t, db.Where("symbol = ?", "AAPL").First(&aapl).Error)
		if aapl.Price == nil || aapl.Price.StringFixed(2) != "178.23" {
			t.Errorf("AAPL price not persisted, got %v", aapl.Price)
		}

		var bad models.Stock
		testutil.AssertNoError(t, db.Where("symbol = ?", "BAD").First(&bad).Error)
		if bad.Price != nil {
			t.Errorf("failed symbol must keep its old price, got %v", bad.Price)
		}

		var samples int64
		db.Model(&models.StockPrice{}).Count(&samples)
		if samples != 2 {
			t.Errorf("history samples = %d, want 2", samples)
		}
	})

	t.Run("empty_batch", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		svc := newTestPriceService(t, db, nil)

		summary, err := svc.UpdateAllPrices(context.Background())
		testutil.AssertNoError(t, err)
		if summary.Total != 0 || summary.Updated != 0 || summary.Failed != 0 {
			t.Fatalf("empty batch summary = %+v, want all zero", summary)
		}
	})

	t.Run("inactive_stocks_excluded", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		stock := testutil.CreateTestStock(t, db, "AAPL", nil)
		testutil.AssertNoError(t, db.Model(stock).Update("is_active", false).Error)

		svc := newTestPriceService(t, db, map[string]string{"AAPL": "178.23"})

		summary, err := svc.UpdateAllPrices(context.Background())
		testutil.AssertNoError(t, err)
		if summary.Total != 0 {
			t.Fatalf("inactive stocks must not be fetched, summary = %+v", summary)
		}
	})
}

func TestUpdateSinglePrice(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		testutil.CreateTestStock(t, db, "TSLA", testutil.DecPtr(t, "200.00"))
		svc := newTestPriceService(t, db, map[string]string{"TSLA": "251.30"})

		stock, err := svc.UpdateSinglePrice(context.Background(), "TSLA")
		testutil.AssertNoError(t, err)
		if stock.Price.StringFixed(2) != "251.30" {
			t.Errorf("price = %s, want 251.30", stock.Price.StringFixed(2))
		}

		var samples int64
		db.Model(&models.StockPrice{}).Count(&samples)
		if samples != 1 {
			t.Errorf("history samples = %d, want 1", samples)
		}
	})

	t.Run("unknown_symbol", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		svc := newTestPriceService(t, db, nil)
		_, err := svc.UpdateSinglePrice(context.Background(), "GHOST")
		testutil.AssertAppError(t, err, "NOT_FOUND")
	})

	t.Run("invalid_symbol", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		svc := newTestPriceService(t, db, nil)
		_, err := svc.UpdateSinglePrice(context.Background(), "12345")
		testutil.AssertAppError(t, err, "VALIDATION_ERROR")
	})
}

func TestCleanupOldPrices(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	stock := testutil.CreateTestStock(t, db, "AAPL", testutil.DecPtr(t, "100.00"))

	old := models.StockPrice{
		StockID:   stock.ID,
		Price:     testutil.Dec(t, "90.00"),
		Timestamp: time.Now().UTC().AddDate(0, 0, -45),
	}
	recent := models.StockPrice{
		StockID:   stock.ID,
		Price:     testutil.Dec(t, "100.00"),
		Timestamp: time.Now().UTC().AddDate(0, 0, -1),
	}
	testutil.AssertNoError(t, db.Create(&old).Error)
	testutil.AssertNoError(t, db.Create(&recent).Error)

	svc := newTestPriceService(t, db, nil)
	pruned, err := svc.CleanupOldPrices(30)
	testutil.AssertNoError(t, err)
	if pruned != 1 {
		t.Fatalf("pruned = %d, want 1", pruned)
	}

	var remaining int64
	db.Model(&models.StockPrice{}).Count(&remaining)
	if remaining != 1 {
		t.Fatalf("remaining samples = %d, want 1", remaining)
	}
}
