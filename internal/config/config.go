package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all process configuration. Every field comes from the
// environment, optionally seeded from a .env file.
type Config struct {
	// Server
	Port           string
	GinMode        string
	AllowedOrigins []string
	APIAuthToken   string

	// Rate limiting, per client IP
	RateLimitPerMin int
	RateLimitBurst  int

	// Ledger sources
	DatabaseURL   string
	LedgerCSV     string
	ValueDecimals int32

	// Alerts
	AlertWebhookURL      string
	AlertWebhookSeverity string

	// Logging and randomness
	LogLevel string
	RNGMode  string
	RNGSeed  int64
}

// ErrMissingAuthToken is returned in release mode when no API token is set.
var ErrMissingAuthToken = errors.New("API_AUTH_TOKEN must be set when GIN_MODE=release")

// Load reads configuration from the environment. Files named in envFiles
// are loaded first if they exist; variables already set in the process
// environment win. With no envFiles, ./.env is tried.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := &Config{
		Port:           getEnv("PORT", "5339"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		AllowedOrigins: getEnvAsSlice("ALLOWED_ORIGINS", nil, ","),
		APIAuthToken:   getEnv("API_AUTH_TOKEN", ""),

		RateLimitPerMin: getEnvAsInt("RATE_LIMIT_PER_MIN", 120),
		RateLimitBurst:  getEnvAsInt("RATE_LIMIT_BURST", 30),

		DatabaseURL:   getEnv("DATABASE_URL", ""),
		LedgerCSV:     getEnv("LEDGER_CSV", ""),
		ValueDecimals: int32(getEnvAsInt("VALUE_DECIMALS", 18)),

		AlertWebhookURL:      getEnv("ALERT_WEBHOOK_URL", ""),
		AlertWebhookSeverity: getEnv("ALERT_WEBHOOK_MIN_SEVERITY", "high"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		RNGMode:  getEnv("RNG_MODE", "real"),
		RNGSeed:  getEnvAsInt64("RNG_SEED", 1),
	}

	if cfg.GinMode == "release" && cfg.APIAuthToken == "" {
		return nil, ErrMissingAuthToken
	}
	if cfg.ValueDecimals < 0 {
		return nil, fmt.Errorf("VALUE_DECIMALS must be non-negative, got %d", cfg.ValueDecimals)
	}
	return cfg, nil
}

// Helper functions for parsing environment variables
func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultVal
}

func getEnvAsInt64(key string, defaultVal int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultVal
}

func getEnvAsSlice(key string, defaultVal []string, sep string) []string {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultVal
	}
	parts := strings.Split(valStr, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
