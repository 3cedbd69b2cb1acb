package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// HTTP client (handoff webhook)
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Observability
	OTLPEndpoint   string
	TracingEnabled bool

	// Sessions
	SessionTTL    time.Duration
	SessionSecret string

	// Catalog
	EnableEmptyState bool
	DefaultIssuer    string
	DefaultPlan      string

	// Coupons: "code=0.15,other=1". Empty keeps the built-in registry.
	CouponCodes string

	// Order handoff
	HandoffWebhookURL    string
	HandoffWebhookSecret string

	// Redis session store (optional)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 50),

		OTLPEndpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		TracingEnabled: getEnvBool("TRACING_ENABLED", false),

		SessionTTL:    getEnvDuration("SESSION_TTL", 2*time.Hour),
		SessionSecret: getEnv("SESSION_SECRET", "checkout-default-dev-secret-change-me"),

		EnableEmptyState: getEnvBool("ENABLE_EMPTY_STATE", false),
		DefaultIssuer:    getEnv("DEFAULT_ISSUER", "teste"),
		DefaultPlan:      getEnv("DEFAULT_PLAN", "consultoria-online-anual"),

		CouponCodes: getEnv("COUPON_CODES", ""),

		HandoffWebhookURL:    getEnv("HANDOFF_WEBHOOK_URL", ""),
		HandoffWebhookSecret: getEnv("HANDOFF_WEBHOOK_SECRET", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
	}
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	if c.HandoffWebhookURL != "" && c.HandoffWebhookSecret == "" {
		return fmt.Errorf("HANDOFF_WEBHOOK_SECRET is required when HANDOFF_WEBHOOK_URL is set")
	}
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("MAX_CONCURRENCY must be >= 1, got %d", c.MaxConcurrency)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
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
