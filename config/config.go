package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"stock_alert_system/logger"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Config holds all runtime settings. It is constructed once by LoadConfig
// and passed explicitly; there is no package-level instance.
type Config struct {
	Port        string
	Environment string

	DBDriver   string // postgres or sqlite
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPath     string // sqlite only

	QuoteAPIKey     string
	QuoteAPIBaseURL string
	QuoteTimeout    time.Duration

	RateLimitMax    int
	RateLimitWindow time.Duration

	PriceUpdateInterval  time.Duration
	AlertCheckInterval   time.Duration
	MarketHoursInterval  time.Duration
	PriceFetchDelay      time.Duration
	PriceRetentionDays   int
	HistoryRetentionDays int
	MarketTimezone       string

	NotifierMode string // email or console
	AWSRegion    string
	SESSender    string
}

// LoadConfig loads environment variables, reading .env first if present.
func LoadConfig() (*Config, error) {
	// Missing .env just means plain environment variables are in use.
	_ = godotenv.Load()

	config := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "stock_alerts"),
		DBPath:     getEnv("DB_PATH", "data/stock_alerts.db"),

		QuoteAPIKey:     getEnv("TWELVE_DATA_API_KEY", ""),
		QuoteAPIBaseURL: getEnv("QUOTE_API_BASE_URL", "https://api.twelvedata.com"),
		QuoteTimeout:    getEnvDuration("QUOTE_TIMEOUT", 8*time.Second),

		RateLimitMax:    getEnvInt("RATE_LIMIT_MAX", 100),
		RateLimitWindow: getEnvDuration("RATE_LIMIT_WINDOW", 60*time.Second),

		PriceUpdateInterval:  getEnvDuration("PRICE_UPDATE_INTERVAL", 5*time.Minute),
		AlertCheckInterval:   getEnvDuration("ALERT_CHECK_INTERVAL", 2*time.Minute),
		MarketHoursInterval:  getEnvDuration("MARKET_HOURS_INTERVAL", 3*time.Minute),
		PriceFetchDelay:      getEnvDuration("PRICE_FETCH_DELAY", 8*time.Second),
		PriceRetentionDays:   getEnvInt("PRICE_RETENTION_DAYS", 30),
		HistoryRetentionDays: getEnvInt("HISTORY_RETENTION_DAYS", 90),
		MarketTimezone:       getEnv("MARKET_TIMEZONE", "America/New_York"),

		NotifierMode: getEnv("NOTIFIER_MODE", "console"),
		AWSRegion:    getEnv("AWS_REGION", "us-east-1"),
		SESSender:    getEnv("SES_SENDER", ""),
	}

	return config, nil
}

// InitDB opens the database connection for the configured driver and
// verifies it with a ping.
func InitDB(cfg *Config) (*gorm.DB, error) {
	log := logger.Get()

	var logLevel gormlogger.LogLevel
	if cfg.Environment == "production" {
		logLevel = gormlogger.Error
	} else {
		logLevel = gormlogger.Warn
	}
	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(logLevel)}

	var db *gorm.DB
	var err error

	switch cfg.DBDriver {
	case "sqlite":
		log.Infow("Connecting to database", "driver", "sqlite", "path", cfg.DBPath)
		db, err = gorm.Open(sqlite.Open(cfg.DBPath), gormCfg)
	default:
		log.Infow("Connecting to database",
			"driver", "postgres",
			"host", maskHost(cfg.DBHost),
			"port", cfg.DBPort,
			"dbname", cfg.DBName,
		)
		dsn := fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort,
		)
		db, err = gorm.Open(postgres.Open(dsn), gormCfg)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	log.Info("Database connection verified")
	return db, nil
}

// maskHost masks host for logging, preserving domain structure
func maskHost(host string) string {
	if len(host) <= 3 {
		return "***"
	}
	if len(host) <= 15 {
		return host[:3] + "***"
	}
	return host[:8] + "***" + host[len(host)-10:]
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
