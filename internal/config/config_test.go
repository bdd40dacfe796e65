package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseEnv() map[string]string {
	return map[string]string{
		"REDIS_URL":       "redis://localhost:6379/0",
		"CATALOG_API_URL": "http://catalog.local",
		"OUTLET_API_URL":  "http://outlet.local",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(baseEnv())
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, ":8080", cfg.HTTPAddr())
	assert.Equal(t, 5*time.Minute, cfg.LookupCacheTTL)
	assert.Equal(t, 24*time.Hour, cfg.DraftTTL)
	assert.Equal(t, 3, cfg.UpstreamMaxAttempts)
	assert.Equal(t, 5, cfg.BreakerThreshold)
	assert.Equal(t, "orders", cfg.SubmitQueue)
	assert.Equal(t, "300-M", cfg.RateLimit)
}

func TestLoadOverrides(t *testing.T) {
	env := baseEnv()
	env["PORT"] = "9999"
	env["APP_ENV"] = "production"
	env["DRAFT_TTL"] = "2h"
	env["UPSTREAM_MAX_ATTEMPTS"] = "5"
	env["CORS_ALLOWED_ORIGINS"] = "https://a.example, https://b.example"

	cfg, err := LoadForTests(env)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.HTTPAddr())
	assert.Equal(t, "production", cfg.AppEnv)
	assert.Equal(t, 2*time.Hour, cfg.DraftTTL)
	assert.Equal(t, 5, cfg.UpstreamMaxAttempts)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}

func TestLoadRequiresRedisURL(t *testing.T) {
	env := baseEnv()
	env["REDIS_URL"] = ""
	_, err := LoadForTests(env)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_URL")
}

func TestLoadRequiresUpstreamURLs(t *testing.T) {
	env := baseEnv()
	env["CATALOG_API_URL"] = ""
	_, err := LoadForTests(env)
	require.Error(t, err)

	env = baseEnv()
	env["OUTLET_API_URL"] = ""
	_, err = LoadForTests(env)
	require.Error(t, err)
}

func TestBadDurationFallsBack(t *testing.T) {
	env := baseEnv()
	env["DRAFT_TTL"] = "not-a-duration"
	cfg, err := LoadForTests(env)
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, cfg.DraftTTL)
}
