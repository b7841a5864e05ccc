package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stock_alert_system/config"
	"stock_alert_system/logger"
	"stock_alert_system/models"
	"stock_alert_system/routes"
	"stock_alert_system/scheduler"
	"stock_alert_system/services"
	"stock_alert_system/services/marketdata"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger.Init(cfg.Environment)
	defer logger.Sync()
	log := logger.Get()
	log.Info("Stock Alert System starting")

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalw("Database connection failed", "error", err)
	}

	log.Info("Running database migrations")
	if err := runMigrations(db); err != nil {
		log.Fatalw("Migration failed", "error", err)
	}
	if err := models.SeedDefaultStocks(db); err != nil {
		log.Warnw("Could not seed default stocks", "error", err)
	}

	// Wire services. The rate limiter is shared between the scheduled
	// batch updates and ad-hoc refreshes from the API.
	limiter := marketdata.NewRateLimiter(cfg.RateLimitMax, cfg.RateLimitWindow)
	quoteClient := marketdata.NewClient(cfg.QuoteAPIBaseURL, cfg.QuoteAPIKey, cfg.QuoteTimeout, limiter, log)
	priceService := services.NewPriceService(db, quoteClient, cfg.PriceFetchDelay, log)

	sender, sendType := buildSender(cfg, log)
	notifier := services.NewNotificationService(db, sender, sendType, log)
	alertService := services.NewAlertService(db, notifier, log)

	jobScheduler := scheduler.NewScheduler(log)
	if err := scheduler.RegisterJobs(jobScheduler, cfg, priceService, alertService, log); err != nil {
		log.Fatalw("Job registration failed", "error", err)
	}
	jobScheduler.Start()

	router := gin.New()
	router.Use(gin.Recovery())
	setupHealthEndpoints(router, db)
	routes.SetupRoutes(router, db, jobScheduler, priceService, limiter)

	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infow("Server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("Server error", "error", err)
		}
	}()

	gracefulShutdown(server, jobScheduler, db)
}

// buildSender picks the mail transport from config: SES for email mode,
// console otherwise (and as fallback when SES setup fails).
func buildSender(cfg *config.Config, log *zap.SugaredLogger) (services.EmailSender, string) {
	if cfg.NotifierMode == "email" {
		sender, err := services.NewSESSender(context.Background(), cfg.AWSRegion, cfg.SESSender)
		if err != nil {
			log.Warnw("SES setup failed, falling back to console notifications", "error", err)
		} else {
			return sender, models.NotificationTypeEmail
		}
	}
	return services.NewConsoleSender(log), models.NotificationTypeConsole
}

// runMigrations runs all database migrations
func runMigrations(db *gorm.DB) error {
	if err := models.MigrateStockModels(db); err != nil {
		return err
	}
	if err := models.MigrateUserModels(db); err != nil {
		return err
	}
	if err := models.MigrateAlertModels(db); err != nil {
		return err
	}
	return models.MigrateNotificationModels(db)
}

// setupHealthEndpoints sets up liveness and readiness probes
func setupHealthEndpoints(router *gin.Engine, db *gorm.DB) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/ready", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err != nil || sqlDB.Ping() != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
}

// gracefulShutdown stops the scheduler first so in-flight jobs drain
// before their storage goes away, then the HTTP server, then the DB.
func gracefulShutdown(server *http.Server, jobScheduler *scheduler.Scheduler, db *gorm.DB) {
	log := logger.Get()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Infow("Shutting down", "signal", sig.String())

	jobScheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Warnw("Server forced to shutdown", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	log.Info("Shutdown complete")
}
