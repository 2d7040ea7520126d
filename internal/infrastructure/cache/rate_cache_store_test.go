package cache

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/damon-houk/fx-rate-engine/internal/domain/entity"
	"github.com/damon-houk/fx-rate-engine/internal/infrastructure/db"
	"github.com/damon-houk/fx-rate-engine/internal/infrastructure/logger"
	"github.com/damon-houk/fx-rate-engine/internal/mocks"
	"github.com/dgraph-io/badger/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestKV(t *testing.T) *db.BadgerKVStore {
	t.Helper()

	badgerDB, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	t.Cleanup(func() { badgerDB.Close() })

	return db.NewBadgerKVStore(badgerDB)
}

func newTestStore(t *testing.T) (*RateCacheStore, *db.BadgerKVStore, *fakeClock) {
	t.Helper()

	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	kv := newTestKV(t)
	store := NewRateCacheStore(kv, logger.NewJSONLogger(io.Discard, logger.DebugLevel), WithClock(clock.Now))

	return store, kv, clock
}

func TestRateCacheStore(t *testing.T) {
	ctx := context.Background()
	store, _, clock := newTestStore(t)

	// Test initial state
	assert.Nil(t, store.Get(ctx, "USD", "EUR"))
	_, status := store.Lookup(ctx, "USD", "EUR")
	assert.Equal(t, LookupMissing, status)

	// Test storing and retrieving
	rate := &entity.CachedRate{
		BaseCode:       "USD",
		TargetCode:     "EUR",
		ConversionRate: 0.92,
		CachedAt:       clock.Now().UnixMilli(),
	}
	require.NoError(t, store.Put(ctx, "USD", "EUR", rate))

	retrieved := store.Get(ctx, "USD", "EUR")
	require.NotNil(t, retrieved)
	assert.Equal(t, rate, retrieved)

	// Pairs are directional
	assert.Nil(t, store.Get(ctx, "EUR", "USD"))

	// Codes are normalized into the key
	assert.Equal(t, rate, store.Get(ctx, " usd", "eur "))

	// Expired entries are kept
	clock.Advance(entity.DefaultTTL + time.Minute)
	stale := store.Get(ctx, "USD", "EUR")
	require.NotNil(t, stale)
	assert.False(t, stale.IsValid(clock.Now(), entity.DefaultTTL))
}

func TestRateCacheStorePutKeepsCachedAt(t *testing.T) {
	ctx := context.Background()
	store, _, clock := newTestStore(t)

	backdated := clock.Now().Add(-48 * time.Hour).UnixMilli()
	require.NoError(t, store.Put(ctx, "GBP", "JPY", &entity.CachedRate{
		BaseCode:       "GBP",
		TargetCode:     "JPY",
		ConversionRate: 188.4,
		CachedAt:       backdated,
	}))

	got := store.Get(ctx, "GBP", "JPY")
	require.NotNil(t, got)
	assert.Equal(t, backdated, got.CachedAt)

	// Overwrite replaces unconditionally
	require.NoError(t, store.Put(ctx, "GBP", "JPY", &entity.CachedRate{
		BaseCode:       "GBP",
		TargetCode:     "JPY",
		ConversionRate: 190.1,
		CachedAt:       clock.Now().UnixMilli(),
	}))
	assert.Equal(t, 190.1, store.Get(ctx, "GBP", "JPY").ConversionRate)
}

func TestRateCacheStorePutRejectsInvalidRates(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestStore(t)

	for _, r := range []float64{0, -1.5} {
		err := store.Put(ctx, "USD", "EUR", &entity.CachedRate{BaseCode: "USD", TargetCode: "EUR", ConversionRate: r})
		assert.ErrorIs(t, err, ErrCacheWrite)
		assert.ErrorIs(t, err, entity.ErrInvalidRate)
	}

	assert.ErrorIs(t, store.Put(ctx, "USD", "EUR", nil), ErrCacheWrite)
	assert.Nil(t, store.Get(ctx, "USD", "EUR"))
}

func TestRateCacheStorePutPropagatesWriteFailure(t *testing.T) {
	ctx := context.Background()
	kv := new(mocks.MockKVStore)
	store := NewRateCacheStore(kv, logger.NewJSONLogger(io.Discard, logger.InfoLevel))

	diskFull := errors.New("no space left on device")
	kv.On("Put", ctx, "fxrate:USD:EUR", mock.Anything).Return(diskFull).Once()

	err := store.Put(ctx, "USD", "EUR", &entity.CachedRate{BaseCode: "USD", TargetCode: "EUR", ConversionRate: 0.92})
	assert.ErrorIs(t, err, ErrCacheWrite)
	assert.ErrorIs(t, err, diskFull)
	kv.AssertExpectations(t)
}

func TestRateCacheStoreCorruptEntries(t *testing.T) {
	ctx := context.Background()
	kv := newTestKV(t)
	log := new(mocks.MockLogger)
	store := NewRateCacheStore(kv, log)

	log.On("Warn", "Discarding corrupt cached exchange rate", mock.Anything).Twice()

	t.Run("Undecodable bytes", func(t *testing.T) {
		require.NoError(t, kv.Put(ctx, "fxrate:USD:EUR", []byte("{not json")))

		rate, status := store.Lookup(ctx, "USD", "EUR")
		assert.Nil(t, rate)
		assert.Equal(t, LookupCorrupt, status)
	})

	t.Run("Invariant violation", func(t *testing.T) {
		require.NoError(t, kv.Put(ctx, "fxrate:USD:CHF", []byte(`{"base_code":"USD","target_code":"CHF","conversion_rate":-1,"cached_at":1}`)))

		assert.Nil(t, store.Get(ctx, "USD", "CHF"))
	})

	log.AssertExpectations(t)
}

func TestRateCacheStoreReadFailure(t *testing.T) {
	ctx := context.Background()
	kv := new(mocks.MockKVStore)
	store := NewRateCacheStore(kv, logger.NewJSONLogger(io.Discard, logger.InfoLevel))

	kv.On("Get", ctx, "fxrate:USD:EUR").Return(nil, errors.New("i/o timeout")).Once()

	rate, status := store.Lookup(ctx, "USD", "EUR")
	assert.Nil(t, rate)
	assert.Equal(t, LookupFailed, status)
	kv.AssertExpectations(t)
}

func TestRateCacheStoreStats(t *testing.T) {
	ctx := context.Background()
	store, kv, clock := newTestStore(t)

	pairs := [][2]string{{"USD", "EUR"}, {"EUR", "USD"}, {"GBP", "JPY"}}
	for _, p := range pairs {
		require.NoError(t, store.Put(ctx, p[0], p[1], &entity.CachedRate{
			BaseCode:       p[0],
			TargetCode:     p[1],
			ConversionRate: 1.1,
			CachedAt:       clock.Now().UnixMilli(),
		}))
	}

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.CacheStats{Total: 3, Valid: 3, Expired: 0}, stats)

	// Exactly at the TTL boundary the entry is still valid
	clock.Advance(entity.DefaultTTL)
	stats, err = store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Valid)

	clock.Advance(time.Millisecond)
	stats, err = store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.CacheStats{Total: 3, Valid: 0, Expired: 3}, stats)

	// Corrupt entries count as expired; foreign keys are ignored
	require.NoError(t, kv.Put(ctx, "fxrate:AUD:NZD", []byte("garbage")))
	require.NoError(t, kv.Put(ctx, "session:42", []byte("unrelated")))

	stats, err = store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.CacheStats{Total: 4, Valid: 0, Expired: 4}, stats)
}

func TestRateCacheStoreClearAll(t *testing.T) {
	ctx := context.Background()
	store, kv, clock := newTestStore(t)

	require.NoError(t, kv.Put(ctx, "session:42", []byte("unrelated")))
	for _, to := range []string{"EUR", "GBP", "JPY"} {
		require.NoError(t, store.Put(ctx, "USD", to, &entity.CachedRate{
			BaseCode:       "USD",
			TargetCode:     to,
			ConversionRate: 2,
			CachedAt:       clock.Now().UnixMilli(),
		}))
	}

	require.NoError(t, store.ClearAll(ctx))

	for _, to := range []string{"EUR", "GBP", "JPY"} {
		assert.Nil(t, store.Get(ctx, "USD", to))
	}

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)

	// Data outside the namespace survives
	value, err := kv.Get(ctx, "session:42")
	require.NoError(t, err)
	assert.Equal(t, "unrelated", string(value))

	// Clearing an empty cache is fine
	assert.NoError(t, store.ClearAll(ctx))
}

func TestLookupStatusString(t *testing.T) {
	assert.Equal(t, "found", LookupFound.String())
	assert.Equal(t, "missing", LookupMissing.String())
	assert.Equal(t, "corrupt", LookupCorrupt.String())
	assert.Equal(t, "failed", LookupFailed.String())
}
