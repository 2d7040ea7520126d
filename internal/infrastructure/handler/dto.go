package handler

// ConversionResponse represents the response for the conversion endpoint
type ConversionResponse struct {
	Amount          float64 `json:"amount"`
	From            string  `json:"from"`
	To              string  `json:"to"`
	ExchangeRate    float64 `json:"exchange_rate"`
	ConvertedAmount float64 `json:"converted_amount"`
	Source          string  `json:"source"`
	RateCachedAt    string  `json:"rate_cached_at,omitempty"`
}

// AvailabilityResponse represents the response for the availability endpoint
type AvailabilityResponse struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Available bool   `json:"available"`
}

// CacheStatsResponse represents the response for the cache statistics endpoint
type CacheStatsResponse struct {
	Total   int `json:"total"`
	Valid   int `json:"valid"`
	Expired int `json:"expired"`
}

// HealthResponse represents the response for the health endpoint
type HealthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error       string `json:"error"`
	Status      int    `json:"status"`
	Description string `json:"description,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
}
