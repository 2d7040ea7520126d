package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/damon-houk/fx-rate-engine/internal/domain/entity"
	"github.com/damon-houk/fx-rate-engine/internal/domain/service"
	"github.com/damon-houk/fx-rate-engine/internal/infrastructure/logger"
)

const (
	defaultBaseURL         = "https://v6.exchangerate-api.com/v6"
	defaultTimeout         = 10 * time.Second
	defaultMaxRetries      = 3
	defaultInitialInterval = 200 * time.Millisecond
	maxResponseBytes       = 1 << 20
)

var (
	// ErrProviderUnavailable covers network failures, timeouts and 5xx/429 responses
	ErrProviderUnavailable = errors.New("exchange rate provider unavailable")
	// ErrProviderRejected covers 4xx responses and provider-reported errors
	ErrProviderRejected = errors.New("exchange rate provider rejected request")
	// ErrMalformedPayload covers bodies that do not carry a usable rate
	ErrMalformedPayload = errors.New("malformed exchange rate payload")
)

// ClientOption configures an ExchangeRateAPIClient
type ClientOption func(*ExchangeRateAPIClient)

// WithBaseURL overrides the provider endpoint
func WithBaseURL(baseURL string) ClientOption {
	return func(c *ExchangeRateAPIClient) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithAPIKey sets the key embedded in the request path
func WithAPIKey(key string) ClientOption {
	return func(c *ExchangeRateAPIClient) {
		c.apiKey = key
	}
}

// WithMaxRetries sets how many times a retryable failure is retried
func WithMaxRetries(n int) ClientOption {
	return func(c *ExchangeRateAPIClient) {
		if n >= 0 {
			c.maxRetries = uint64(n)
		}
	}
}

// WithInitialBackoff sets the first retry delay
func WithInitialBackoff(d time.Duration) ClientOption {
	return func(c *ExchangeRateAPIClient) {
		if d > 0 {
			c.initialInterval = d
		}
	}
}

// WithLogger sets the client logger
func WithLogger(log logger.Logger) ClientOption {
	return func(c *ExchangeRateAPIClient) {
		if log != nil {
			c.logger = log
		}
	}
}

// WithClock replaces the time source used when the payload has no timestamp
func WithClock(now func() time.Time) ClientOption {
	return func(c *ExchangeRateAPIClient) {
		if now != nil {
			c.now = now
		}
	}
}

// ExchangeRateAPIClient fetches pair rates from an exchangerate-api compatible provider
type ExchangeRateAPIClient struct {
	baseURL         string
	apiKey          string
	httpClient      *http.Client
	maxRetries      uint64
	initialInterval time.Duration
	now             func() time.Time
	logger          logger.Logger
}

// NewExchangeRateAPIClient creates a new provider client
func NewExchangeRateAPIClient(httpClient *http.Client, opts ...ClientOption) *ExchangeRateAPIClient {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: defaultTimeout,
		}
	}

	c := &ExchangeRateAPIClient{
		baseURL:         defaultBaseURL,
		httpClient:      httpClient,
		maxRetries:      defaultMaxRetries,
		initialInterval: defaultInitialInterval,
		now:             time.Now,
		logger:          logger.GetDefaultLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// pairURL builds {base}/{key}/pair/{from}/{to}
func (c *ExchangeRateAPIClient) pairURL(base, target string) string {
	reqURL := c.baseURL
	if c.apiKey != "" {
		reqURL += "/" + url.PathEscape(c.apiKey)
	}
	return reqURL + "/pair/" + url.PathEscape(base) + "/" + url.PathEscape(target)
}

// FetchRate retrieves the current rate converting base into target
func (c *ExchangeRateAPIClient) FetchRate(ctx context.Context, base, target string) (*entity.ExchangeRate, error) {
	base = entity.NormalizeCode(base)
	target = entity.NormalizeCode(target)

	if base == "" || target == "" {
		return nil, fmt.Errorf("%w: base and target currency codes are required", ErrProviderRejected)
	}

	reqURL := c.pairURL(base, target)
	var body []byte

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Add("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%w: failed to execute request: %w", ErrProviderUnavailable, err)
		}

		defer func() {
			if closeErr := resp.Body.Close(); closeErr != nil {
				c.logger.Debug("Error closing response body", map[string]interface{}{
					"error": closeErr.Error(),
				})
			}
		}()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return fmt.Errorf("%w: failed to read response body: %w", ErrProviderUnavailable, err)
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			body = data
			return nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
			return fmt.Errorf("%w: API returned status %d", ErrProviderUnavailable, resp.StatusCode)
		default:
			return backoff.Permanent(fmt.Errorf("%w: API returned status %d: %s",
				ErrProviderRejected, resp.StatusCode, truncate(data, 256)))
		}
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.initialInterval

	notify := func(err error, wait time.Duration) {
		c.logger.Warn("Exchange rate request failed, retrying", map[string]interface{}{
			"base":   base,
			"target": target,
			"error":  err.Error(),
			"wait":   wait.String(),
		})
	}

	err := backoff.RetryNotify(operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, c.maxRetries), ctx), notify)
	if err != nil {
		if !errors.Is(err, ErrProviderRejected) && !errors.Is(err, ErrProviderUnavailable) {
			err = fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
		}
		return nil, err
	}

	rate, err := parseRatePayload(body, base, target, c.now())
	if err != nil {
		c.logger.Warn("Unusable exchange rate payload", map[string]interface{}{
			"base":   base,
			"target": target,
			"error":  err.Error(),
		})
		return nil, err
	}

	return rate, nil
}

func truncate(data []byte, n int) string {
	if len(data) > n {
		return string(data[:n]) + "..."
	}
	return string(data)
}

var _ service.RateProvider = (*ExchangeRateAPIClient)(nil)
