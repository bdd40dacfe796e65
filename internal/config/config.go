package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	RedisURL           string
	DatabaseURL        string
	CatalogAPIURL      string
	OutletAPIURL       string
	CORSAllowedOrigins []string

	LookupCacheTTL  time.Duration
	DraftTTL        time.Duration
	DraftSweepEvery time.Duration

	UpstreamTimeout     time.Duration
	UpstreamMaxAttempts int
	UpstreamBackoffBase time.Duration
	BreakerThreshold    int
	BreakerCoolOff      time.Duration

	SubmitQueue    string
	SubmitMaxRetry int
	RateLimit      string
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:              valueOrDefault(k.String("APP_ENV"), "development"),
		Port:                valueOrDefault(k.String("PORT"), "8080"),
		RedisURL:            k.String("REDIS_URL"),
		DatabaseURL:         k.String("DATABASE_URL"),
		CatalogAPIURL:       k.String("CATALOG_API_URL"),
		OutletAPIURL:        k.String("OUTLET_API_URL"),
		CORSAllowedOrigins:  splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		LookupCacheTTL:      parseDuration(k.String("LOOKUP_CACHE_TTL"), "5m"),
		DraftTTL:            parseDuration(k.String("DRAFT_TTL"), "24h"),
		DraftSweepEvery:     parseDuration(k.String("DRAFT_SWEEP_EVERY"), "10m"),
		UpstreamTimeout:     parseDuration(k.String("UPSTREAM_TIMEOUT"), "3s"),
		UpstreamMaxAttempts: intOrDefault(k.Int("UPSTREAM_MAX_ATTEMPTS"), 3),
		UpstreamBackoffBase: parseDuration(k.String("UPSTREAM_BACKOFF_BASE"), "100ms"),
		BreakerThreshold:    intOrDefault(k.Int("BREAKER_THRESHOLD"), 5),
		BreakerCoolOff:      parseDuration(k.String("BREAKER_COOL_OFF"), "30s"),
		SubmitQueue:         valueOrDefault(k.String("SUBMIT_QUEUE"), "orders"),
		SubmitMaxRetry:      intOrDefault(k.Int("SUBMIT_MAX_RETRY"), 5),
		RateLimit:           valueOrDefault(k.String("RATE_LIMIT"), "300-M"),
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.CatalogAPIURL == "" {
		return nil, errors.New("CATALOG_API_URL is required")
	}
	if cfg.OutletAPIURL == "" {
		return nil, errors.New("OUTLET_API_URL is required")
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
		return value
	}
	return fallback
}

func intOrDefault(value, fallback int) int {
	if value > 0 {
		return value
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

// MustLoad behaves like Load but panics on error. Useful for tests and
// command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without
// touching the real environment.
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
