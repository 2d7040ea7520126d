package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/damon-houk/fx-rate-engine/internal/domain/repository"
	"github.com/redis/go-redis/v9"
)

const redisScanCount = 100

// RedisKVStore implements the KVStore interface on top of Redis
type RedisKVStore struct {
	client redis.UniversalClient
}

// NewRedisKVStore creates a new Redis backed key-value store
func NewRedisKVStore(client redis.UniversalClient) *RedisKVStore {
	return &RedisKVStore{client: client}
}

// Ping checks the connection to the Redis server
func (s *RedisKVStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Get retrieves the value stored under key
func (s *RedisKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, repository.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read key %s: %w", key, err)
	}
	return value, nil
}

// Put stores value under key without expiry
func (s *RedisKVStore) Put(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	return nil
}

// DeletePrefix removes every key under prefix
func (s *RedisKVStore) DeletePrefix(ctx context.Context, prefix string) error {
	keys, err := s.keys(ctx, prefix)
	if err != nil {
		return err
	}

	for start := 0; start < len(keys); start += redisScanCount {
		end := min(start+redisScanCount, len(keys))
		if err := s.client.Del(ctx, keys[start:end]...).Err(); err != nil {
			return fmt.Errorf("failed to delete keys with prefix %s: %w", prefix, err)
		}
	}

	return nil
}

// Scan calls fn for every key under prefix. Keys removed between the
// SCAN and the GET are skipped.
func (s *RedisKVStore) Scan(ctx context.Context, prefix string, fn func(key string, value []byte) error) error {
	keys, err := s.keys(ctx, prefix)
	if err != nil {
		return err
	}

	for _, key := range keys {
		value, err := s.Get(ctx, key)
		if errors.Is(err, repository.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return err
		}

		if err := fn(key, value); err != nil {
			return err
		}
	}

	return nil
}

func (s *RedisKVStore) keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string

	iter := s.client.Scan(ctx, 0, escapePattern(prefix)+"*", redisScanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}

	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan prefix %s: %w", prefix, err)
	}

	return keys, nil
}

// escapePattern quotes glob metacharacters so prefix matches literally
func escapePattern(prefix string) string {
	var b strings.Builder
	for _, r := range prefix {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

var _ repository.KVStore = (*RedisKVStore)(nil)
