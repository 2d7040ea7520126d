// Package db internal/infrastructure/db/logging_rate_provider.go
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/damon-houk/fx-rate-engine/internal/domain/entity"
	"github.com/damon-houk/fx-rate-engine/internal/domain/service"
	"github.com/damon-houk/fx-rate-engine/internal/infrastructure/logger"
	"github.com/damon-houk/fx-rate-engine/internal/infrastructure/middleware"
)

// LoggingRateProvider decorates a RateProvider with structured call logging
type LoggingRateProvider struct {
	provider service.RateProvider
	logger   logger.Logger
}

// NewLoggingRateProvider wraps provider so every lookup is logged
func NewLoggingRateProvider(provider service.RateProvider, log logger.Logger) *LoggingRateProvider {
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &LoggingRateProvider{
		provider: provider,
		logger:   log,
	}
}

// FetchRate retrieves the rate from the wrapped provider
func (p *LoggingRateProvider) FetchRate(ctx context.Context, base, target string) (*entity.ExchangeRate, error) {
	requestID := middleware.GetRequestID(ctx)
	start := time.Now()

	p.logger.Info("Fetching exchange rate", map[string]interface{}{
		"request_id": requestID,
		"base":       base,
		"target":     target,
	})

	rate, err := p.provider.FetchRate(ctx, base, target)
	if err != nil {
		p.logger.Error("Failed to retrieve exchange rate", map[string]interface{}{
			"request_id":  requestID,
			"base":        base,
			"target":      target,
			"duration_ms": time.Since(start).Milliseconds(),
			"error":       err.Error(),
		})
		return nil, fmt.Errorf("failed to retrieve exchange rate: %w", err)
	}

	p.logger.Info("Exchange rate fetched", map[string]interface{}{
		"request_id":  requestID,
		"base":        rate.BaseCode,
		"target":      rate.TargetCode,
		"rate":        rate.ConversionRate,
		"observed_at": rate.ObservedAt.Format(time.RFC3339),
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return rate, nil
}

var _ service.RateProvider = (*LoggingRateProvider)(nil)
