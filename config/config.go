package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"tradejournal/internal/adapters/logger" // Import the logger package for LogLevel
)

// Config holds all application configuration.
type Config struct {
	// Database
	DBPath string

	// HTTP API
	HTTPAddr         string
	APIPrefix        string
	DefaultPageLimit int
	MaxPageLimit     int
	ReadTimeout      time.Duration
	ShutdownTimeout  time.Duration
	RateLimit        float64 // requests per second, 0 disables
	RateBurst        int

	// Entry validation
	MaxLotSize    float64
	MinRiskReward float64 // 0 disables the risk/reward check

	// Logging
	LogLevel  logger.LogLevel
	LogFormat string // pretty or json
	LogFile   string // optional, rotated
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/journal.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// HTTP API
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")
	cfg.APIPrefix = getEnv("API_PREFIX", "/api/v1")
	if !strings.HasPrefix(cfg.APIPrefix, "/") {
		errs = append(errs, "API_PREFIX must start with '/'")
	}
	cfg.APIPrefix = strings.TrimRight(cfg.APIPrefix, "/")

	cfg.DefaultPageLimit, err = getEnvAsIntRequired("DEFAULT_PAGE_LIMIT", 500)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid DEFAULT_PAGE_LIMIT: %v", err))
	} else if cfg.DefaultPageLimit <= 0 {
		errs = append(errs, "DEFAULT_PAGE_LIMIT must be positive")
	}

	cfg.MaxPageLimit, err = getEnvAsIntRequired("MAX_PAGE_LIMIT", 1000)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_PAGE_LIMIT: %v", err))
	} else if cfg.MaxPageLimit < cfg.DefaultPageLimit {
		errs = append(errs, "MAX_PAGE_LIMIT must be at least DEFAULT_PAGE_LIMIT")
	}

	readTimeoutSeconds := getEnvAsInt("READ_TIMEOUT_SECONDS", 15)
	if readTimeoutSeconds <= 0 {
		errs = append(errs, "READ_TIMEOUT_SECONDS must be positive")
	}
	cfg.ReadTimeout = time.Duration(readTimeoutSeconds) * time.Second

	shutdownTimeoutSeconds := getEnvAsInt("SHUTDOWN_TIMEOUT_SECONDS", 10)
	if shutdownTimeoutSeconds <= 0 {
		errs = append(errs, "SHUTDOWN_TIMEOUT_SECONDS must be positive")
	}
	cfg.ShutdownTimeout = time.Duration(shutdownTimeoutSeconds) * time.Second

	cfg.RateLimit, err = getEnvAsFloatRequired("RATE_LIMIT_RPS", 0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid RATE_LIMIT_RPS: %v", err))
	} else if cfg.RateLimit < 0 {
		errs = append(errs, "RATE_LIMIT_RPS cannot be negative")
	}
	cfg.RateBurst = getEnvAsInt("RATE_LIMIT_BURST", 20)
	if cfg.RateBurst <= 0 {
		errs = append(errs, "RATE_LIMIT_BURST must be positive")
	}

	// Entry validation
	cfg.MaxLotSize, err = getEnvAsFloatRequired("MAX_LOT_SIZE", 100)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_LOT_SIZE: %v", err))
	} else if cfg.MaxLotSize <= 0 {
		errs = append(errs, "MAX_LOT_SIZE must be positive")
	}

	cfg.MinRiskReward, err = getEnvAsFloatRequired("MIN_RISK_REWARD", 1.5)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MIN_RISK_REWARD: %v", err))
	} else if cfg.MinRiskReward < 0 {
		errs = append(errs, "MIN_RISK_REWARD cannot be negative")
	}

	// Logging
	cfg.LogLevel = logger.ParseLevel(getEnv("LOG_LEVEL", "INFO"))
	cfg.LogFormat = strings.ToLower(getEnv("LOG_FORMAT", "pretty"))
	if cfg.LogFormat != "pretty" && cfg.LogFormat != "json" {
		errs = append(errs, "LOG_FORMAT must be 'pretty' or 'json'")
	}
	cfg.LogFile = getEnv("LOG_FILE", "")

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
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

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}
