package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	// Application
	AppEnv   string
	LogLevel string

	// Database
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string

	// Ledger
	LedgerMaxAttempts  int
	LedgerRetryBaseMS  int
	AchievementPassCap int
	RequestTimeoutSec  int
	StreakTimezone     string
	EventRatePerMinute int
	EventRateBurst     int
	SeedCatalog        bool

	// Jobs
	RankSchedule        string
	StreakSweepSchedule string
	MetricsAddr         string

	// Notifications
	TelegramBotToken string
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DBDriver:   getEnv("DB_DRIVER", DriverPostgres),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "fitquest"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "fitquest_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		SQLitePath: getEnv("SQLITE_PATH", "file::memory:?cache=shared"),

		LedgerMaxAttempts:  getEnvInt("LEDGER_MAX_ATTEMPTS", 5),
		LedgerRetryBaseMS:  getEnvInt("LEDGER_RETRY_BASE_MS", 10),
		AchievementPassCap: getEnvInt("ACHIEVEMENT_PASS_CAP", 10),
		RequestTimeoutSec:  getEnvInt("REQUEST_TIMEOUT_SECONDS", 5),
		StreakTimezone:     getEnv("STREAK_TIMEZONE", "UTC"),
		EventRatePerMinute: getEnvInt("EVENT_RATE_PER_MINUTE", 60),
		EventRateBurst:     getEnvInt("EVENT_RATE_BURST", 10),
		SeedCatalog:        getEnvBool("SEED_CATALOG", true),

		RankSchedule:        getEnv("RANK_SCHEDULE", "@every 5m"),
		StreakSweepSchedule: getEnv("STREAK_SWEEP_SCHEDULE", "@hourly"),
		MetricsAddr:         getEnv("METRICS_ADDR", ":9090"),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverPostgres:
		if c.DBPassword == "" {
			return fmt.Errorf("DB_PASSWORD is required")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.DBDriver)
	}
	if c.LedgerMaxAttempts < 1 || c.LedgerMaxAttempts > 20 {
		return fmt.Errorf("LEDGER_MAX_ATTEMPTS must be between 1 and 20")
	}
	if c.LedgerRetryBaseMS < 0 {
		return fmt.Errorf("LEDGER_RETRY_BASE_MS must not be negative")
	}
	if c.AchievementPassCap < 1 || c.AchievementPassCap > 50 {
		return fmt.Errorf("ACHIEVEMENT_PASS_CAP must be between 1 and 50")
	}
	if c.RequestTimeoutSec <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT_SECONDS must be positive")
	}
	if c.EventRatePerMinute <= 0 || c.EventRateBurst <= 0 {
		return fmt.Errorf("EVENT_RATE_PER_MINUTE and EVENT_RATE_BURST must be positive")
	}
	if _, err := time.LoadLocation(c.StreakTimezone); err != nil {
		return fmt.Errorf("invalid STREAK_TIMEZONE: %w", err)
	}
	return nil
}

func (c *Config) ValidateProductionSecurity() error {
	if c.AppEnv != "production" {
		return nil
	}

	if c.DBDriver != DriverPostgres {
		return fmt.Errorf("DB_DRIVER must be postgres in production")
	}
	if c.DBSSLMode != "require" {
		return fmt.Errorf("DB_SSLMODE must be 'require' in production")
	}

	return nil
}

func (c *Config) GetDSN() string {
	if c.DBDriver == DriverSQLite {
		return c.SQLitePath
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

func (c *Config) GetRequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

func (c *Config) GetRetryBase() time.Duration {
	return time.Duration(c.LedgerRetryBaseMS) * time.Millisecond
}

// GetStreakLocation returns the timezone calendar days are counted in.
func (c *Config) GetStreakLocation() *time.Location {
	loc, err := time.LoadLocation(c.StreakTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
