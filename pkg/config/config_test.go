package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	// Check defaults
	if cfg.Port != "8080" {
		t.Errorf("Expected Port to be 8080, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Errorf("Expected Env to be development, got %s", cfg.Env)
	}
	if cfg.Finnhub.BaseURL != "https://finnhub.io/api/v1" {
		t.Errorf("Unexpected Finnhub base URL: %s", cfg.Finnhub.BaseURL)
	}
	if cfg.PriceCacheTTL != time.Minute {
		t.Errorf("Expected PriceCacheTTL to be 1m, got %v", cfg.PriceCacheTTL)
	}
	if cfg.DefaultPortfolio != "Default" {
		t.Errorf("Expected DefaultPortfolio to be Default, got %s", cfg.DefaultPortfolio)
	}
}

func TestLoadWithCustomValues(t *testing.T) {
	os.Setenv("PORT", "9000")
	os.Setenv("ENV", "production")
	os.Setenv("PRICE_WORKERS", "8")
	os.Setenv("PRICE_CACHE_TTL", "5m")
	os.Setenv("LOG_LEVEL", "info")

	defer func() {
		os.Unsetenv("PORT")
		os.Unsetenv("ENV")
		os.Unsetenv("PRICE_WORKERS")
		os.Unsetenv("PRICE_CACHE_TTL")
		os.Unsetenv("LOG_LEVEL")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "9000" {
		t.Errorf("Expected Port to be 9000, got %s", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Errorf("Expected Env to be production, got %s", cfg.Env)
	}
	if cfg.PriceWorkers != 8 {
		t.Errorf("Expected PriceWorkers to be 8, got %d", cfg.PriceWorkers)
	}
	if cfg.PriceCacheTTL != 5*time.Minute {
		t.Errorf("Expected PriceCacheTTL to be 5m, got %v", cfg.PriceCacheTTL)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected LogLevel to be info, got %s", cfg.LogLevel)
	}
}

func TestValidateBadEnv(t *testing.T) {
	os.Setenv("ENV", "nonsense")
	defer os.Unsetenv("ENV")

	if _, err := Load(); err == nil {
		t.Error("Expected error for invalid ENV, got nil")
	}
}

func TestValidateBadWorkerCount(t *testing.T) {
	os.Setenv("PRICE_WORKERS", "0")
	defer os.Unsetenv("PRICE_WORKERS")

	if _, err := Load(); err == nil {
		t.Error("Expected error for PRICE_WORKERS=0, got nil")
	}
}

func TestGetEnvAsIntIgnoresGarbage(t *testing.T) {
	os.Setenv("PRICE_WORKERS", "not-a-number")
	defer os.Unsetenv("PRICE_WORKERS")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.PriceWorkers != 4 {
		t.Errorf("Expected default 4 workers, got %d", cfg.PriceWorkers)
	}
}
