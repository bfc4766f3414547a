package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"APP_ENV", "LOG_LEVEL", "CART_API_BASE_URL", "CART_API_TIMEOUT",
		"CART_BREAKER_MAX_FAILURES", "CART_BREAKER_OPEN_TIMEOUT", "CART_STORAGE",
		"CART_STORAGE_KEY", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "POSTGRES_DSN", "NATS_URL",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.AppEnv)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "http://localhost:3333", cfg.APIBaseURL)
	assert.Equal(t, 10*time.Second, cfg.APITimeout)
	assert.Equal(t, uint32(5), cfg.BreakerMaxFailures)
	assert.Equal(t, 30*time.Second, cfg.BreakerOpenTimeout)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, "@RocketShoes:cart", cfg.StorageKey)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 0, cfg.RedisDB)
	assert.Empty(t, cfg.NATSURL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("CART_API_BASE_URL", "http://stock.internal:8080")
	t.Setenv("CART_API_TIMEOUT", "2s")
	t.Setenv("CART_BREAKER_MAX_FAILURES", "3")
	t.Setenv("CART_STORAGE", "Redis")
	t.Setenv("REDIS_DB", "4")
	t.Setenv("NATS_URL", "nats://localhost:4222")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.AppEnv)
	assert.Equal(t, "http://stock.internal:8080", cfg.APIBaseURL)
	assert.Equal(t, 2*time.Second, cfg.APITimeout)
	assert.Equal(t, uint32(3), cfg.BreakerMaxFailures)
	assert.Equal(t, StorageRedis, cfg.Storage)
	assert.Equal(t, 4, cfg.RedisDB)
	assert.Equal(t, "nats://localhost:4222", cfg.NATSURL)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("CART_STORAGE", "")
	t.Setenv("CART_API_TIMEOUT", "soon")
	t.Setenv("CART_BREAKER_OPEN_TIMEOUT", "-1s")
	t.Setenv("CART_BREAKER_MAX_FAILURES", "-2")
	t.Setenv("REDIS_DB", "one")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.APITimeout)
	assert.Equal(t, 30*time.Second, cfg.BreakerOpenTimeout)
	assert.Equal(t, uint32(5), cfg.BreakerMaxFailures)
	assert.Equal(t, 0, cfg.RedisDB)
}

func TestLoad_UnknownStorage(t *testing.T) {
	t.Setenv("CART_STORAGE", "sqlite")

	_, err := Load()
	assert.ErrorContains(t, err, `unknown CART_STORAGE "sqlite"`)
}
