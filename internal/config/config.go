package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	// StorageBadger keeps the rate cache in an embedded BadgerDB directory
	StorageBadger = "badger"
	// StorageRedis keeps the rate cache in a Redis instance
	StorageRedis = "redis"
)

type ServerConfig struct {
	Port         int           `envconfig:"PORT" default:"8080"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout  time.Duration `envconfig:"IDLE_TIMEOUT" default:"120s"`
}

type StorageConfig struct {
	Backend  string `envconfig:"BACKEND" default:"badger"`
	DataDir  string `envconfig:"DATA_DIR" default:"./data"`
	RedisURL string `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
}

type ProviderConfig struct {
	BaseURL    string        `envconfig:"API_URL" default:"https://v6.exchangerate-api.com/v6"`
	APIKey     string        `envconfig:"API_KEY"`
	// Timeout bounds a whole fetch, retries included; AttemptTimeout bounds one request
	Timeout        time.Duration `envconfig:"TIMEOUT" default:"10s"`
	AttemptTimeout time.Duration `envconfig:"ATTEMPT_TIMEOUT" default:"3s"`
	MaxRetries     int           `envconfig:"MAX_RETRIES" default:"3"`
}

type CacheConfig struct {
	TTL          time.Duration `envconfig:"TTL" default:"24h"`
	ProbeCaching bool          `envconfig:"PROBE_CACHING" default:"true"`
}

// Config is the process configuration, read from FXRATE_* environment variables
type Config struct {
	LogLevel string         `envconfig:"LOG_LEVEL" default:"info"`
	Server   ServerConfig   `envconfig:"SERVER"`
	Storage  StorageConfig  `envconfig:"STORAGE"`
	Provider ProviderConfig `envconfig:"EXCHANGE_RATE"`
	Cache    CacheConfig    `envconfig:"CACHE"`
}

// Load reads envFile when present, then the environment
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("fxrate", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects settings the server cannot start with
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case StorageBadger, StorageRedis:
	default:
		return fmt.Errorf("unsupported storage backend %q", c.Storage.Backend)
	}

	if c.Cache.TTL <= 0 {
		return errors.New("cache TTL must be positive")
	}

	if c.Provider.Timeout <= 0 {
		return errors.New("provider timeout must be positive")
	}

	if c.Provider.AttemptTimeout <= 0 || c.Provider.AttemptTimeout >= c.Provider.Timeout {
		return errors.New("provider attempt timeout must be positive and shorter than the provider timeout")
	}

	if c.Provider.MaxRetries < 0 {
		return errors.New("provider max retries must not be negative")
	}

	return nil
}

// MaskedAPIKey returns the provider key safe for logging
func (c *Config) MaskedAPIKey() string {
	key := c.Provider.APIKey
	if len(key) <= 6 {
		return "****"
	}
	return key[:2] + "****" + key[len(key)-4:]
}
