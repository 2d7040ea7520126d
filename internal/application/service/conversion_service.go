// Package service internal/application/service/conversion_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/damon-houk/fx-rate-engine/internal/domain/entity"
	"github.com/damon-houk/fx-rate-engine/internal/domain/repository"
	domainservice "github.com/damon-houk/fx-rate-engine/internal/domain/service"
	"github.com/damon-houk/fx-rate-engine/internal/infrastructure/logger"
	"github.com/damon-houk/fx-rate-engine/internal/infrastructure/metrics"
	"github.com/damon-houk/fx-rate-engine/internal/infrastructure/middleware"
	"golang.org/x/sync/singleflight"
)

const defaultFetchTimeout = 10 * time.Second

var (
	// ErrConversionUnavailable is returned when neither a live nor a cached rate exists
	ErrConversionUnavailable = errors.New("conversion unavailable")
	// ErrInvalidRequest is returned for non-finite amounts or missing currency codes
	ErrInvalidRequest = errors.New("invalid conversion request")
)

// Source identifies how a conversion was resolved
type Source string

const (
	SourceIdentity    Source = "identity"
	SourceCache       Source = "cache"
	SourceLive        Source = "live"
	SourceStale       Source = "stale"
	SourceUnavailable Source = "unavailable"
)

// Conversion is the detailed outcome of a successful conversion
type Conversion struct {
	Amount          float64   `json:"amount"`
	From            string    `json:"from"`
	To              string    `json:"to"`
	Rate            float64   `json:"rate"`
	ConvertedAmount float64   `json:"converted_amount"`
	Source          Source    `json:"source"`
	RateCachedAt    time.Time `json:"rate_cached_at,omitempty"`
}

// Option configures a ConversionService
type Option func(*ConversionService)

// WithFetchTimeout bounds each remote lookup
func WithFetchTimeout(d time.Duration) Option {
	return func(s *ConversionService) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// WithClock replaces the time source
func WithClock(now func() time.Time) Option {
	return func(s *ConversionService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMetrics records conversion paths and fetch latencies
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *ConversionService) {
		s.metrics = m
	}
}

// WithProbeCaching controls whether IsAvailable stores the rate its probe fetched
func WithProbeCaching(enabled bool) Option {
	return func(s *ConversionService) {
		s.probeCaching = enabled
	}
}

// ConversionService converts amounts between currencies, preferring a fresh
// cached rate, then a live rate, then a stale cached rate.
type ConversionService struct {
	cache        repository.RateCache
	provider     domainservice.RateProvider
	logger       logger.Logger
	metrics      *metrics.Metrics
	fetchTimeout time.Duration
	now          func() time.Time
	probeCaching bool

	// one in-flight fetch per pair
	inflight singleflight.Group
}

// NewConversionService creates a new conversion service
func NewConversionService(cache repository.RateCache, provider domainservice.RateProvider, log logger.Logger, opts ...Option) *ConversionService {
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	s := &ConversionService{
		cache:        cache,
		provider:     provider,
		logger:       log,
		fetchTimeout: defaultFetchTimeout,
		now:          time.Now,
		probeCaching: true,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Convert returns amount expressed in the target currency. A same-currency
// pair returns amount unchanged, whatever its value.
func (s *ConversionService) Convert(ctx context.Context, amount float64, from, to string) (float64, error) {
	conv, err := s.ConvertDetailed(ctx, amount, from, to)
	if err != nil {
		return 0, err
	}
	return conv.ConvertedAmount, nil
}

// ConvertDetailed converts amount and reports which rate was used
func (s *ConversionService) ConvertDetailed(ctx context.Context, amount float64, from, to string) (*Conversion, error) {
	requestID := middleware.GetRequestID(ctx)

	from = entity.NormalizeCode(from)
	to = entity.NormalizeCode(to)

	if from == "" || to == "" {
		return nil, fmt.Errorf("%w: source and target currencies are required", ErrInvalidRequest)
	}

	conv := &Conversion{Amount: amount, From: from, To: to}

	// identity returns amount unchanged, non-finite values included
	if from == to {
		conv.Rate = 1
		conv.ConvertedAmount = amount
		conv.Source = SourceIdentity
		s.record(requestID, conv)
		return conv, nil
	}

	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, fmt.Errorf("%w: amount must be a finite number", ErrInvalidRequest)
	}

	if cached := s.cache.Get(ctx, from, to); cached != nil && cached.IsValid(s.now(), s.cache.TTL()) {
		s.apply(conv, cached, SourceCache)
		s.record(requestID, conv)
		return conv, nil
	}

	fresh, fetchErr := s.refresh(ctx, from, to, true)
	if fetchErr == nil {
		if fresh.writeErr != nil {
			s.metrics.ObserveCacheWriteFailure()
			s.logger.Error("Fetched exchange rate could not be cached", map[string]interface{}{
				"request_id": requestID,
				"from":       from,
				"to":         to,
				"error":      fresh.writeErr.Error(),
			})
			return nil, fmt.Errorf("failed to cache exchange rate %s/%s: %w", from, to, fresh.writeErr)
		}

		s.apply(conv, fresh.rate, SourceLive)
		s.record(requestID, conv)
		return conv, nil
	}

	s.logger.Warn("Exchange rate fetch failed", map[string]interface{}{
		"request_id": requestID,
		"from":       from,
		"to":         to,
		"error":      fetchErr.Error(),
	})

	if stale := s.cache.Get(ctx, from, to); stale != nil {
		s.apply(conv, stale, SourceStale)
		s.record(requestID, conv)
		return conv, nil
	}

	s.metrics.ObserveConversion(string(SourceUnavailable))
	s.logger.Info("No exchange rate available", map[string]interface{}{
		"request_id": requestID,
		"from":       from,
		"to":         to,
	})

	return nil, fmt.Errorf("%w: no cached or live rate for %s/%s (%v)", ErrConversionUnavailable, from, to, fetchErr)
}

// IsAvailable reports whether Convert is expected to succeed for the pair.
// Without a valid cache entry it probes the provider, which by default
// also caches the fetched rate.
func (s *ConversionService) IsAvailable(ctx context.Context, from, to string) bool {
	from = entity.NormalizeCode(from)
	to = entity.NormalizeCode(to)

	if from == "" || to == "" {
		return false
	}

	if from == to {
		return true
	}

	if cached := s.cache.Get(ctx, from, to); cached != nil && cached.IsValid(s.now(), s.cache.TTL()) {
		return true
	}

	fresh, err := s.refresh(ctx, from, to, s.probeCaching)
	if err != nil {
		s.logger.Debug("Availability probe failed", map[string]interface{}{
			"request_id": middleware.GetRequestID(ctx),
			"from":       from,
			"to":         to,
			"error":      err.Error(),
		})
		return false
	}

	if fresh.writeErr != nil {
		s.metrics.ObserveCacheWriteFailure()
		s.logger.Error("Probed exchange rate could not be cached", map[string]interface{}{
			"request_id": middleware.GetRequestID(ctx),
			"from":       from,
			"to":         to,
			"error":      fresh.writeErr.Error(),
		})
		return false
	}

	return true
}

// ClearCache removes every cached rate
func (s *ConversionService) ClearCache(ctx context.Context) error {
	return s.cache.ClearAll(ctx)
}

// CacheStats reports how many cached rates are fresh and expired
func (s *ConversionService) CacheStats(ctx context.Context) (entity.CacheStats, error) {
	return s.cache.Stats(ctx)
}

type refreshResult struct {
	rate     *entity.CachedRate
	writeErr error
}

// refresh fetches the pair from the provider and optionally stores it.
// Concurrent callers for the same pair share one fetch.
func (s *ConversionService) refresh(ctx context.Context, from, to string, persist bool) (refreshResult, error) {
	key := from + "/" + to
	if !persist {
		key += "#probe"
	}

	v, err, _ := s.inflight.Do(key, func() (interface{}, error) {
		// the flight is shared, so no single caller's cancellation may end it
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
		defer cancel()

		start := time.Now()
		observed, err := s.provider.FetchRate(fetchCtx, from, to)
		if err == nil {
			err = observed.Validate()
		}

		if err != nil {
			s.metrics.ObserveFetch("failure", time.Since(start))
			return refreshResult{}, err
		}
		s.metrics.ObserveFetch("success", time.Since(start))

		rate := entity.NewCachedRate(observed, s.now())
		rate.BaseCode = from
		rate.TargetCode = to

		if !persist {
			return refreshResult{rate: rate}, nil
		}

		// a fetched rate is written even if every caller has gone away
		writeErr := s.cache.Put(context.WithoutCancel(ctx), from, to, rate)
		return refreshResult{rate: rate, writeErr: writeErr}, nil
	})

	if err != nil {
		return refreshResult{}, err
	}

	return v.(refreshResult), nil
}

func (s *ConversionService) apply(conv *Conversion, rate *entity.CachedRate, source Source) {
	conv.Rate = rate.ConversionRate
	conv.ConvertedAmount = rate.Convert(conv.Amount)
	conv.Source = source
	conv.RateCachedAt = rate.CachedTime().UTC()
}

func (s *ConversionService) record(requestID string, conv *Conversion) {
	s.metrics.ObserveConversion(string(conv.Source))

	s.logger.Debug("Conversion completed", map[string]interface{}{
		"request_id":       requestID,
		"from":             conv.From,
		"to":               conv.To,
		"amount":           conv.Amount,
		"rate":             conv.Rate,
		"converted_amount": conv.ConvertedAmount,
		"source":           string(conv.Source),
	})
}
