package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the screener.
// All environment variables are read through this package only.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Cache
	CacheDir string

	// Upstream market data
	Data    DataConfig
	Catalog CatalogConfig

	// Optional Postgres mirror of the bar cache
	Database DatabaseConfig

	// Workers
	FetchWorkers  int
	ScreenWorkers int

	// Logging
	LogLevel  string
	LogFormat string
}

// DataConfig holds the daily-bar API configuration.
type DataConfig struct {
	BaseURL    string
	RatePerSec float64 // upstream request budget
	Burst      int
}

// CatalogConfig holds the exchange listing page configuration.
type CatalogConfig struct {
	BaseURL string
}

// DatabaseConfig holds PostgreSQL configuration. The database is an
// optional mirror of the bar cache; an empty URL disables it.
type DatabaseConfig struct {
	URL string

	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Enabled reports whether a Postgres mirror is configured.
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// Load reads configuration from environment variables.
// This is the only function that calls os.Getenv().
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8086"),
		Env:  getEnv("ENV", "development"),

		CacheDir: getEnv("CACHE_DIR", "stock_cache"),

		Data: DataConfig{
			BaseURL:    getEnv("DATA_BASE_URL", "https://quotes.ashare-data.cn"),
			RatePerSec: getEnvAsFloat("DATA_RATE_PER_SEC", 10),
			Burst:      getEnvAsInt("DATA_BURST", 5),
		},

		Catalog: CatalogConfig{
			BaseURL: getEnv("CATALOG_BASE_URL", "https://quotes.ashare-data.cn"),
		},

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		FetchWorkers:  getEnvAsInt("FETCH_WORKERS", 8),
		ScreenWorkers: getEnvAsInt("SCREEN_WORKERS", 16),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.CacheDir == "" {
		return fmt.Errorf("CACHE_DIR is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.FetchWorkers < 1 || c.ScreenWorkers < 1 {
		return fmt.Errorf("worker counts must be positive")
	}

	return nil
}

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
