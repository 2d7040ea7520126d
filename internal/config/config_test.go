package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, StorageBadger, cfg.Storage.Backend)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.True(t, cfg.Cache.ProbeCaching)
	assert.Equal(t, 10*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, 3*time.Second, cfg.Provider.AttemptTimeout)
	assert.Less(t, cfg.Provider.AttemptTimeout, cfg.Provider.Timeout)
	assert.Equal(t, 3, cfg.Provider.MaxRetries)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("FXRATE_SERVER_PORT", "9090")
	t.Setenv("FXRATE_STORAGE_BACKEND", "redis")
	t.Setenv("FXRATE_EXCHANGE_RATE_API_KEY", "abcdef123456")
	t.Setenv("FXRATE_CACHE_TTL", "1h")
	t.Setenv("FXRATE_CACHE_PROBE_CACHING", "false")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, StorageRedis, cfg.Storage.Backend)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.False(t, cfg.Cache.ProbeCaching)
	assert.Equal(t, "ab****3456", cfg.MaskedAPIKey())
}

func TestLoadFromEnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("FXRATE_LOG_LEVEL=debug\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("FXRATE_LOG_LEVEL") })

	cfg, err := Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadMissingEnvFileIsIgnored(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}

func TestValidate(t *testing.T) {
	t.Run("Unsupported backend", func(t *testing.T) {
		t.Setenv("FXRATE_STORAGE_BACKEND", "postgres")
		_, err := Load("")
		assert.ErrorContains(t, err, "unsupported storage backend")
	})

	t.Run("Non-positive TTL", func(t *testing.T) {
		t.Setenv("FXRATE_CACHE_TTL", "0s")
		_, err := Load("")
		assert.ErrorContains(t, err, "cache TTL must be positive")
	})

	t.Run("Attempt timeout must leave room for retries", func(t *testing.T) {
		t.Setenv("FXRATE_EXCHANGE_RATE_TIMEOUT", "5s")
		t.Setenv("FXRATE_EXCHANGE_RATE_ATTEMPT_TIMEOUT", "5s")
		_, err := Load("")
		assert.ErrorContains(t, err, "attempt timeout")
	})

	t.Run("Short key is fully masked", func(t *testing.T) {
		cfg := &Config{Provider: ProviderConfig{APIKey: "abc"}}
		assert.Equal(t, "****", cfg.MaskedAPIKey())
	})
}
