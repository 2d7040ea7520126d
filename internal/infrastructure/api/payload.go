package api

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/damon-houk/fx-rate-engine/internal/domain/entity"
)

// ratePayload accepts the field spellings used by the pair, latest and
// legacy endpoints of exchangerate-api style providers.
type ratePayload struct {
	Result    string `json:"result"`
	Success   *bool  `json:"success"`
	ErrorType string `json:"error-type"`

	BaseCode   string `json:"base_code"`
	Base       string `json:"base"`
	TargetCode string `json:"target_code"`
	Target     string `json:"target"`

	ConversionRate  *float64           `json:"conversion_rate"`
	Rate            *float64           `json:"rate"`
	Rates           map[string]float64 `json:"rates"`
	ConversionRates map[string]float64 `json:"conversion_rates"`

	TimeLastUpdateUnix int64 `json:"time_last_update_unix"`
	Timestamp          int64 `json:"timestamp"`
	TimeNextUpdateUnix int64 `json:"time_next_update_unix"`
}

// parseRatePayload normalizes a provider body into a single ExchangeRate.
// now stamps the observation when the body carries no update time.
func parseRatePayload(body []byte, base, target string, now time.Time) (*entity.ExchangeRate, error) {
	var p ratePayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	if p.Result != "" && p.Result != "success" {
		return nil, fmt.Errorf("%w: API returned result=%s error-type=%s", ErrProviderRejected, p.Result, p.ErrorType)
	}
	if p.Success != nil && !*p.Success {
		return nil, fmt.Errorf("%w: API reported success=false", ErrProviderRejected)
	}

	if got := entity.NormalizeCode(firstNonEmpty(p.BaseCode, p.Base)); got != "" && got != base {
		return nil, fmt.Errorf("%w: base %s does not match requested %s", ErrMalformedPayload, got, base)
	}
	if got := entity.NormalizeCode(firstNonEmpty(p.TargetCode, p.Target)); got != "" && got != target {
		return nil, fmt.Errorf("%w: target %s does not match requested %s", ErrMalformedPayload, got, target)
	}

	rate, ok := p.rateFor(target)
	if !ok {
		return nil, fmt.Errorf("%w: no rate for %s", ErrMalformedPayload, target)
	}
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate <= 0 {
		return nil, fmt.Errorf("%w: invalid rate %v", ErrMalformedPayload, rate)
	}

	observedAt := now
	if ts := firstNonZero(p.TimeLastUpdateUnix, p.Timestamp); ts > 0 {
		observedAt = time.Unix(ts, 0).UTC()
	}

	var nextUpdateAt time.Time
	if p.TimeNextUpdateUnix > 0 {
		nextUpdateAt = time.Unix(p.TimeNextUpdateUnix, 0).UTC()
	}

	return &entity.ExchangeRate{
		BaseCode:       base,
		TargetCode:     target,
		ConversionRate: rate,
		ObservedAt:     observedAt,
		NextUpdateAt:   nextUpdateAt,
	}, nil
}

func (p *ratePayload) rateFor(target string) (float64, bool) {
	switch {
	case p.ConversionRate != nil:
		return *p.ConversionRate, true
	case p.Rate != nil:
		return *p.Rate, true
	}

	for _, rates := range []map[string]float64{p.ConversionRates, p.Rates} {
		if r, ok := rates[target]; ok {
			return r, true
		}
	}

	return 0, false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonZero(values ...int64) int64 {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}
