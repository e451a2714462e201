package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Quote provider
	Finnhub FinnhubConfig

	// Price refresh
	PriceCacheTTL time.Duration
	PriceRate     float64 // quote requests per second
	PriceWorkers  int

	// Backups
	BackupDir      string
	BackupSchedule string // cron expression; empty disables scheduled backups

	// Preferences
	SummaryOrderPath string

	// Store
	DefaultPortfolio string

	// Uploads
	MaxUploadBytes int64

	// Logging
	LogLevel  string
	LogFormat string
}

// FinnhubConfig holds quote provider configuration
type FinnhubConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		// Quote provider
		Finnhub: FinnhubConfig{
			APIKey:  getEnv("FINNHUB_API_KEY", ""),
			BaseURL: getEnv("FINNHUB_BASE_URL", "https://finnhub.io/api/v1"),
			Timeout: getEnvAsDuration("FINNHUB_TIMEOUT", "10s"),
		},

		// Price refresh
		PriceCacheTTL: getEnvAsDuration("PRICE_CACHE_TTL", "1m"),
		PriceRate:     getEnvAsFloat("PRICE_RATE_LIMIT", 10),
		PriceWorkers:  getEnvAsInt("PRICE_WORKERS", 4),

		// Backups
		BackupDir:      getEnv("BACKUP_DIR", "backups"),
		BackupSchedule: getEnv("BACKUP_SCHEDULE", ""),

		// Preferences
		SummaryOrderPath: getEnv("SUMMARY_ORDER_PATH", "config/summary_order.json"),

		// Store
		DefaultPortfolio: getEnv("DEFAULT_PORTFOLIO_NAME", "Default"),

		// Uploads
		MaxUploadBytes: getEnvAsInt64("MAX_UPLOAD_BYTES", 8<<20),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.DefaultPortfolio == "" {
		return fmt.Errorf("DEFAULT_PORTFOLIO_NAME must not be empty")
	}

	if c.PriceWorkers < 1 {
		return fmt.Errorf("PRICE_WORKERS must be at least 1")
	}

	if c.MaxUploadBytes < 1 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env", // Current directory
	}

	// Also try relative to executable
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

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseInt(valueStr, 10, 64)
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
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
