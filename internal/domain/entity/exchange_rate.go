package entity

import (
	"errors"
	"strings"
	"time"
)

// DefaultTTL is how long a cached rate stays fresh
const DefaultTTL = 24 * time.Hour

// ErrInvalidRate is returned when a rate is not strictly positive
var ErrInvalidRate = errors.New("exchange rate must be a positive value")

// ExchangeRate represents a rate observation returned by a rate provider
type ExchangeRate struct {
	BaseCode       string    `json:"base_code"`
	TargetCode     string    `json:"target_code"`
	ConversionRate float64   `json:"conversion_rate"`
	ObservedAt     time.Time `json:"observed_at"`
	NextUpdateAt   time.Time `json:"next_update_at,omitempty"`
}

// Validate ensures the observation can be used for conversion
func (r *ExchangeRate) Validate() error {
	if r.BaseCode == "" || r.TargetCode == "" {
		return errors.New("exchange rate must carry base and target codes")
	}
	if !(r.ConversionRate > 0) {
		return ErrInvalidRate
	}
	return nil
}

// CachedRate is the persisted form of an exchange rate.
// CachedAt is stored in epoch milliseconds.
type CachedRate struct {
	BaseCode       string  `json:"base_code"`
	TargetCode     string  `json:"target_code"`
	ConversionRate float64 `json:"conversion_rate"`
	CachedAt       int64   `json:"cached_at"`
}

// NewCachedRate builds a cache entry from a provider observation stamped at cachedAt
func NewCachedRate(rate *ExchangeRate, cachedAt time.Time) *CachedRate {
	return &CachedRate{
		BaseCode:       rate.BaseCode,
		TargetCode:     rate.TargetCode,
		ConversionRate: rate.ConversionRate,
		CachedAt:       cachedAt.UnixMilli(),
	}
}

// Validate ensures the entry satisfies the positive-rate invariant
func (r *CachedRate) Validate() error {
	if !(r.ConversionRate > 0) {
		return ErrInvalidRate
	}
	return nil
}

// CachedTime returns CachedAt as a time.Time
func (r *CachedRate) CachedTime() time.Time {
	return time.UnixMilli(r.CachedAt)
}

// IsValid reports whether the entry is still within ttl at now
func (r *CachedRate) IsValid(now time.Time, ttl time.Duration) bool {
	return now.UnixMilli()-r.CachedAt <= ttl.Milliseconds()
}

// Convert applies the cached rate to amount
func (r *CachedRate) Convert(amount float64) float64 {
	return amount * r.ConversionRate
}

// CacheStats summarizes the cache partitioned by freshness
type CacheStats struct {
	Total   int `json:"total"`
	Valid   int `json:"valid"`
	Expired int `json:"expired"`
}

// NormalizeCode canonicalizes a currency code for comparison and keying
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
