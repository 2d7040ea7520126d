package service

import (
	"context"

	"github.com/damon-houk/fx-rate-engine/internal/domain/entity"
)

// RateProvider defines the interface for remote exchange rate lookups
type RateProvider interface {
	// FetchRate retrieves the current rate converting base into target
	FetchRate(ctx context.Context, base, target string) (*entity.ExchangeRate, error)
}
