package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/damon-houk/fx-rate-engine/internal/domain/entity"
	"github.com/damon-houk/fx-rate-engine/internal/domain/repository"
	"github.com/damon-houk/fx-rate-engine/internal/infrastructure/logger"
)

// KeyPrefix namespaces rate entries on the shared key-value medium
const KeyPrefix = "fxrate:"

// ErrCacheWrite is returned when a rate could not be persisted
var ErrCacheWrite = errors.New("failed to write exchange rate cache")

// LookupStatus describes the outcome of reading a cache entry
type LookupStatus int

const (
	// LookupMissing means nothing was ever stored for the pair
	LookupMissing LookupStatus = iota
	// LookupFound means a well-formed entry was returned
	LookupFound
	// LookupCorrupt means the stored bytes did not decode into a valid rate
	LookupCorrupt
	// LookupFailed means the medium could not be read
	LookupFailed
)

func (s LookupStatus) String() string {
	switch s {
	case LookupFound:
		return "found"
	case LookupCorrupt:
		return "corrupt"
	case LookupFailed:
		return "failed"
	default:
		return "missing"
	}
}

// Option configures a RateCacheStore
type Option func(*RateCacheStore)

// WithTTL sets the freshness window for cached rates
func WithTTL(ttl time.Duration) Option {
	return func(s *RateCacheStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock replaces the time source
func WithClock(now func() time.Time) Option {
	return func(s *RateCacheStore) {
		if now != nil {
			s.now = now
		}
	}
}

// RateCacheStore persists one CachedRate per directional currency pair.
// Expired entries are kept until overwritten or cleared.
type RateCacheStore struct {
	kv     repository.KVStore
	ttl    time.Duration
	now    func() time.Time
	logger logger.Logger
}

// NewRateCacheStore creates a new rate cache over a key-value medium
func NewRateCacheStore(kv repository.KVStore, log logger.Logger, opts ...Option) *RateCacheStore {
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	s := &RateCacheStore{
		kv:     kv,
		ttl:    entity.DefaultTTL,
		now:    time.Now,
		logger: log,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// generateCacheKey creates a cache key from the directional pair
func generateCacheKey(from, to string) string {
	return KeyPrefix + entity.NormalizeCode(from) + ":" + entity.NormalizeCode(to)
}

// Lookup reads the entry for the pair and reports why it is absent when it is
func (s *RateCacheStore) Lookup(ctx context.Context, from, to string) (*entity.CachedRate, LookupStatus) {
	key := generateCacheKey(from, to)

	data, err := s.kv.Get(ctx, key)
	if errors.Is(err, repository.ErrKeyNotFound) {
		return nil, LookupMissing
	}

	if err != nil {
		s.logger.Warn("Failed to read cached exchange rate", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return nil, LookupFailed
	}

	rate, err := decodeRate(data)
	if err != nil {
		s.logger.Warn("Discarding corrupt cached exchange rate", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return nil, LookupCorrupt
	}

	return rate, LookupFound
}

// Get retrieves the cached rate for the pair, or nil when absent or unreadable
func (s *RateCacheStore) Get(ctx context.Context, from, to string) *entity.CachedRate {
	rate, status := s.Lookup(ctx, from, to)
	if status != LookupFound {
		return nil
	}
	return rate
}

// Put stores rate for the pair, keeping the rate's own CachedAt
func (s *RateCacheStore) Put(ctx context.Context, from, to string, rate *entity.CachedRate) error {
	key := generateCacheKey(from, to)

	if rate == nil {
		return fmt.Errorf("%w: %s: nil rate", ErrCacheWrite, key)
	}

	if err := rate.Validate(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCacheWrite, key, err)
	}

	data, err := json.Marshal(rate)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCacheWrite, key, err)
	}

	if err := s.kv.Put(ctx, key, data); err != nil {
		s.logger.Error("Failed to persist exchange rate", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return fmt.Errorf("%w: %s: %w", ErrCacheWrite, key, err)
	}

	s.logger.Debug("Cached exchange rate", map[string]interface{}{
		"key":       key,
		"rate":      rate.ConversionRate,
		"cached_at": rate.CachedAt,
	})

	return nil
}

// TTL returns the freshness window for cached rates
func (s *RateCacheStore) TTL() time.Duration {
	return s.ttl
}

// ClearAll removes every entry in the cache namespace
func (s *RateCacheStore) ClearAll(ctx context.Context) error {
	if err := s.kv.DeletePrefix(ctx, KeyPrefix); err != nil {
		return fmt.Errorf("failed to clear exchange rate cache: %w", err)
	}

	s.logger.Info("Exchange rate cache cleared", nil)
	return nil
}

// Stats counts entries by freshness at the current time.
// Undecodable entries are counted as expired.
func (s *RateCacheStore) Stats(ctx context.Context) (entity.CacheStats, error) {
	var stats entity.CacheStats
	now := s.now()

	err := s.kv.Scan(ctx, KeyPrefix, func(key string, value []byte) error {
		stats.Total++

		rate, err := decodeRate(value)
		if err == nil && rate.IsValid(now, s.ttl) {
			stats.Valid++
		} else {
			stats.Expired++
		}
		return nil
	})

	if err != nil {
		return entity.CacheStats{}, fmt.Errorf("failed to compute cache stats: %w", err)
	}

	return stats, nil
}

func decodeRate(data []byte) (*entity.CachedRate, error) {
	var rate entity.CachedRate
	if err := json.Unmarshal(data, &rate); err != nil {
		return nil, err
	}

	if err := rate.Validate(); err != nil {
		return nil, err
	}

	return &rate, nil
}

var _ repository.RateCache = (*RateCacheStore)(nil)
