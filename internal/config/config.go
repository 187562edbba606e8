// Package config loads runtime configuration from environment variables,
// optionally seeded from a .env file.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration.
type Config struct {
	Port     string
	LogLevel string

	// TimeZone is the fixed location all calendar bucketing is evaluated in.
	TimeZone string

	// UseFirestore selects the backing store; when false the in-memory store
	// is used (local development, tests).
	UseFirestore       bool
	FirestoreProjectID string

	JWTSecret string

	CacheTTL    time.Duration
	HTTPTimeout time.Duration

	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	OTLPEndpoint string
	DevMode      bool
}

// Load reads configuration from the environment with sensible defaults.
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		TimeZone: getEnv("TIME_ZONE", "Asia/Ho_Chi_Minh"),

		UseFirestore:       getEnv("USE_FIRESTORE", "false") == "true",
		FirestoreProjectID: getEnv("FIRESTORE_PROJECT_ID", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),

		CacheTTL:    getEnvDuration("CACHE_TTL", 5*time.Minute),
		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 30*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 50),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		DevMode:      getEnv("DEV_MODE", "false") == "true",
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
