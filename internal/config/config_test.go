package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "a-long-enough-test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5000", cfg.APIBaseURL)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, StoreFile, cfg.StoreBackend)
	assert.Equal(t, TrackingHTTP, cfg.TrackingTransport)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
}

func TestLoad_RequiresSecret(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_SECRET")
}

func TestLoad_RejectsShortSecret(t *testing.T) {
	t.Setenv("SESSION_SECRET", "short")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SESSION_SECRET", "a-long-enough-test-secret")
	t.Setenv("API_BASE_URL", "https://shop.example.com/api")
	t.Setenv("HTTP_TIMEOUT", "3s")
	t.Setenv("STORE_BACKEND", StoreRedis)
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://shop.example.com/api", cfg.APIBaseURL)
	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, StoreRedis, cfg.StoreBackend)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	t.Setenv("SESSION_SECRET", "a-long-enough-test-secret")
	t.Setenv("STORE_BACKEND", "floppy")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORE_BACKEND")
}

func TestLoad_MalformedNumbersFallBack(t *testing.T) {
	t.Setenv("SESSION_SECRET", "a-long-enough-test-secret")
	t.Setenv("REQUESTS_PER_SECOND", "lots")
	t.Setenv("REDIS_DB", "first")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 10.0, cfg.RequestsPerSecond)
	assert.Equal(t, 0, cfg.RedisDB)
}
