package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/noah-isme/backend-resto/internal/pricing"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	JWTSecret          string
	JWTIssuer          string
	JWTAudience        string
	CORSAllowedOrigins []string
	CurrencyCode       string
	PricingRounding    pricing.Rounding
	CatalogCacheTTL    time.Duration
	CheckoutLockTTL    time.Duration
	QuoteRateLimit     string
	RunMigrations      bool
	InvoiceQueue       string
	WorkerConcurrency  int
	LogFormat          string
	LogLevel           string
	MetricsNamespace   string
	TracingEnabled     bool
	OTLPEndpoint       string
	TracingSampling    float64
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		JWTSecret:          k.String("JWT_SECRET"),
		JWTIssuer:          strings.TrimSpace(k.String("JWT_ISSUER")),
		JWTAudience:        strings.TrimSpace(k.String("JWT_AUDIENCE")),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		CurrencyCode:       strings.ToUpper(valueOrDefault(k.String("CURRENCY_CODE"), "VND")),
		PricingRounding:    pricing.ParseRounding(k.String("PRICING_ROUNDING")),
		CatalogCacheTTL:    parseDuration(k.String("CATALOG_CACHE_TTL"), "60s"),
		CheckoutLockTTL:    parseDuration(k.String("CHECKOUT_LOCK_TTL"), "10s"),
		QuoteRateLimit:     valueOrDefault(k.String("QUOTE_RATE_LIMIT"), "120-M"),
		RunMigrations:      parseBool(k.String("RUN_MIGRATIONS")),
		InvoiceQueue:       valueOrDefault(k.String("INVOICE_QUEUE"), "invoices"),
		WorkerConcurrency:  parseInt(k.String("WORKER_CONCURRENCY"), 5),
		LogFormat:          valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
		LogLevel:           valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
		MetricsNamespace:   valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "resto"),
		TracingEnabled:     parseBoolDefault(k.String("OBS_ENABLE_TRACING"), true),
		OTLPEndpoint:       strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
		TracingSampling:    parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1.0),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string) bool {
	return parseBoolDefault(value, false)
}

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseInt(value string, fallback int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && v > 0 {
		return v
	}
	return fallback
}

func parseFloat(value string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
		return v
	}
	return fallback
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
