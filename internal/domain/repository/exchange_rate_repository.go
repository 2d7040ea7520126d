// Package repository internal/domain/repository/exchange_rate_repository.go
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/damon-houk/fx-rate-engine/internal/domain/entity"
)

// ErrKeyNotFound is returned by a KVStore when the key has no value
var ErrKeyNotFound = errors.New("key not found")

// RateCache defines the interface for the persistent exchange rate cache
type RateCache interface {
	// Get returns the rate cached for the directional pair, or nil when absent
	Get(ctx context.Context, from, to string) *entity.CachedRate

	// Put replaces the rate cached for the pair
	Put(ctx context.Context, from, to string, rate *entity.CachedRate) error

	// ClearAll removes every cached rate
	ClearAll(ctx context.Context) error

	// Stats counts cached rates by freshness
	Stats(ctx context.Context) (entity.CacheStats, error)

	// TTL is the freshness window applied by Stats and by conversions
	TTL() time.Duration
}

// KVStore is a string-keyed byte store backing the rate cache
type KVStore interface {
	// Get returns the value for key or ErrKeyNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores value under key, replacing any previous value atomically
	Put(ctx context.Context, key string, value []byte) error

	// DeletePrefix removes every key starting with prefix
	DeletePrefix(ctx context.Context, prefix string) error

	// Scan calls fn for every key starting with prefix
	Scan(ctx context.Context, prefix string, fn func(key string, value []byte) error) error
}
