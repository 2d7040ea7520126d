// internal/infrastructure/db/logging_rate_provider_test.go
package db

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/damon-houk/fx-rate-engine/internal/domain/entity"
	"github.com/damon-houk/fx-rate-engine/internal/infrastructure/logger"
	"github.com/damon-houk/fx-rate-engine/internal/infrastructure/middleware"
	"github.com/damon-houk/fx-rate-engine/internal/mocks"
	"github.com/stretchr/testify/assert"
)

func TestLoggingRateProvider(t *testing.T) {
	mockProvider := new(mocks.MockRateProvider)
	var buf bytes.Buffer
	log := logger.NewJSONLogger(&buf, logger.InfoLevel)
	provider := NewLoggingRateProvider(mockProvider, log)

	ctx := middleware.WithRequestID(context.Background(), "req-7")
	expectedRate := &entity.ExchangeRate{
		BaseCode:       "USD",
		TargetCode:     "EUR",
		ConversionRate: 0.92,
		ObservedAt:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	t.Run("Successful rate retrieval", func(t *testing.T) {
		buf.Reset()
		mockProvider.On("FetchRate", ctx, "USD", "EUR").Return(expectedRate, nil).Once()

		rate, err := provider.FetchRate(ctx, "USD", "EUR")
		assert.NoError(t, err)
		assert.Equal(t, expectedRate, rate)
		assert.Contains(t, buf.String(), "Exchange rate fetched")
		assert.Contains(t, buf.String(), "req-7")

		mockProvider.AssertExpectations(t)
	})

	t.Run("Provider error", func(t *testing.T) {
		buf.Reset()
		mockProvider.On("FetchRate", ctx, "USD", "XYZ").
			Return(nil, errors.New("unsupported-code")).Once()

		rate, err := provider.FetchRate(ctx, "USD", "XYZ")
		assert.Error(t, err)
		assert.Nil(t, rate)
		assert.Contains(t, err.Error(), "failed to retrieve exchange rate")
		assert.Contains(t, buf.String(), "unsupported-code")

		mockProvider.AssertExpectations(t)
	})
}
