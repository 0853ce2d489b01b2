// Package config handles loading application configuration from environment variables.
// All settings have sensible defaults for local development. A .env file in the
// working directory is loaded first when present.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application settings loaded from environment variables.
type Config struct {
	Port               string
	DatabasePath       string
	JWTSecret          string
	TokenDuration      time.Duration
	AppEnv             string
	RateLimitPerMinute int
	CORSAllowedOrigins []string
	TrustedProxies     []string

	// Live performance sessions
	LiveSendBuffer        int
	LiveMessagesPerSecond int
	LiveIdleTimeout       time.Duration
	LivePersistTimeout    time.Duration

	SentryDSN         string
	SentryDSNFrontend string
	SentryEnvironment string
}

// Load reads configuration from environment variables, using defaults where not set.
func Load() *Config {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	return &Config{
		Port:                  getEnv("PORT", "4000"),
		DatabasePath:          getEnv("DATABASE_PATH", "./guitarbuddy.db"),
		JWTSecret:             getEnv("JWT_SECRET", "dev_secret"), // #nosec G101 -- intentional dev default
		TokenDuration:         getDurationEnv("TOKEN_DURATION", 7*24*time.Hour),
		AppEnv:                getEnv("APP_ENV", "development"),
		RateLimitPerMinute:    getIntEnv("RATE_LIMIT_PER_MINUTE", 10),
		CORSAllowedOrigins:    getStringSliceEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		TrustedProxies:        getStringSliceEnv("TRUSTED_PROXIES", nil),
		LiveSendBuffer:        getIntEnv("LIVE_SEND_BUFFER", 64),
		LiveMessagesPerSecond: getIntEnv("LIVE_MESSAGES_PER_SECOND", 20),
		LiveIdleTimeout:       getDurationEnv("LIVE_IDLE_TIMEOUT", 0),
		LivePersistTimeout:    getDurationEnv("LIVE_PERSIST_TIMEOUT", 5*time.Second),
		SentryDSN:             getEnv("SENTRY_DSN", ""),
		SentryDSNFrontend:     getEnv("SENTRY_DSN_FRONTEND", ""),
		SentryEnvironment:     getEnv("SENTRY_ENVIRONMENT", "production"),
	}
}

// IsProduction reports whether the server runs with APP_ENV=production.
// Outside production, verification and reset tokens are echoed in responses.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var result []string
	for _, s := range strings.Split(value, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			result = append(result, s)
		}
	}
	return result
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
