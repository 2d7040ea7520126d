package internal

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/damon-houk/fx-rate-engine/internal/application/service"
	"github.com/damon-houk/fx-rate-engine/internal/domain/entity"
	"github.com/damon-houk/fx-rate-engine/internal/infrastructure/cache"
	"github.com/damon-houk/fx-rate-engine/internal/infrastructure/db"
	"github.com/damon-houk/fx-rate-engine/internal/infrastructure/logger"
	"github.com/dgraph-io/badger/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticRateProvider serves fixed rates with a simulated network delay
type staticRateProvider struct {
	calls atomic.Int64
	delay time.Duration
}

func (p *staticRateProvider) FetchRate(ctx context.Context, base, target string) (*entity.ExchangeRate, error) {
	p.calls.Add(1)

	rates := map[string]float64{
		"EUR": 0.92,
		"GBP": 0.79,
		"CAD": 1.36,
		"JPY": 150.2,
	}

	select {
	case <-time.After(p.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	rate, ok := rates[target]
	if !ok || base != "USD" {
		return nil, fmt.Errorf("no exchange rate available for %s/%s", base, target)
	}

	return &entity.ExchangeRate{
		BaseCode:       base,
		TargetCode:     target,
		ConversionRate: rate,
		ObservedAt:     time.Now(),
	}, nil
}

func TestPerformance(t *testing.T) {
	// Skip in short mode or CI
	if testing.Short() {
		t.Skip("Skipping performance test in short mode")
	}

	badgerDB, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLogger(nil))
	require.NoError(t, err)
	defer badgerDB.Close()

	log := logger.NewJSONLogger(io.Discard, logger.InfoLevel)
	store := cache.NewRateCacheStore(db.NewBadgerKVStore(badgerDB), log)
	provider := &staticRateProvider{delay: 5 * time.Millisecond}
	conversionService := service.NewConversionService(store, provider, log)

	numConversions := 1000
	concurrency := 10
	currencies := []string{"EUR", "GBP", "CAD", "JPY"}

	runConversions := func(t *testing.T) (int64, time.Duration) {
		var failures atomic.Int64
		startTime := time.Now()

		wg := sync.WaitGroup{}
		wg.Add(concurrency)

		perWorker := numConversions / concurrency

		for i := 0; i < concurrency; i++ {
			go func(workerID int) {
				defer wg.Done()

				ctx := context.Background()
				for j := 0; j < perWorker; j++ {
					amount := 100.0 + float64(rand.Intn(10000))/100.0
					currency := currencies[(workerID+j)%len(currencies)]

					if _, err := conversionService.Convert(ctx, amount, "USD", currency); err != nil {
						failures.Add(1)
						t.Logf("Error converting amount: %v", err)
					}
				}
			}(i)
		}

		wg.Wait()
		return failures.Load(), time.Since(startTime)
	}

	t.Run("Cold cache", func(t *testing.T) {
		failures, duration := runConversions(t)
		assert.Zero(t, failures)

		// Concurrent misses on the same pair share one fetch
		assert.LessOrEqual(t, provider.calls.Load(), int64(concurrency*len(currencies)))

		throughput := float64(numConversions) / duration.Seconds()
		t.Logf("Cold cache: %d conversions in %v (%.2f conv/sec, %d provider calls)",
			numConversions, duration, throughput, provider.calls.Load())
	})

	t.Run("Warm cache", func(t *testing.T) {
		before := provider.calls.Load()

		failures, duration := runConversions(t)
		assert.Zero(t, failures)
		assert.Equal(t, before, provider.calls.Load())

		throughput := float64(numConversions) / duration.Seconds()
		t.Logf("Warm cache: %d conversions in %v (%.2f conv/sec)",
			numConversions, duration, throughput)
	})

	t.Run("Cache statistics", func(t *testing.T) {
		startTime := time.Now()

		stats, err := conversionService.CacheStats(context.Background())
		require.NoError(t, err)
		assert.Equal(t, len(currencies), stats.Total)
		assert.Equal(t, len(currencies), stats.Valid)

		t.Logf("Cache statistics over %d entries in %v", stats.Total, time.Since(startTime))
	})
}
