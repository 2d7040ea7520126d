// Package handler internal/infrastructure/handler/conversion_handler.go
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/damon-houk/fx-rate-engine/internal/application/service"
	"github.com/damon-houk/fx-rate-engine/internal/infrastructure/cache"
	"github.com/damon-houk/fx-rate-engine/internal/infrastructure/logger"
	"github.com/damon-houk/fx-rate-engine/internal/infrastructure/middleware"
	"github.com/gorilla/mux"
)

// ConversionHandler handles HTTP requests for currency conversion
type ConversionHandler struct {
	service *service.ConversionService
	logger  logger.Logger
}

// NewConversionHandler creates a new conversion handler
func NewConversionHandler(service *service.ConversionService, log logger.Logger) *ConversionHandler {
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &ConversionHandler{
		service: service,
		logger:  log,
	}
}

// Convert handles converting an amount between two currencies
func (h *ConversionHandler) Convert(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	query := r.URL.Query()

	from := strings.TrimSpace(query.Get("from"))
	to := strings.TrimSpace(query.Get("to"))
	rawAmount := query.Get("amount")

	h.logger.Info("Handling convert request", map[string]interface{}{
		"request_id": requestID,
		"from":       from,
		"to":         to,
		"amount":     rawAmount,
	})

	if from == "" || to == "" || rawAmount == "" {
		h.logger.Warn("Missing conversion parameters", map[string]interface{}{
			"request_id": requestID,
		})
		sendErrorResponse(w, h.logger, "Missing parameters",
			"The 'amount', 'from' and 'to' query parameters are required", http.StatusBadRequest, requestID)
		return
	}

	if !validCurrencyCode(from) || !validCurrencyCode(to) {
		h.logger.Warn("Invalid currency code", map[string]interface{}{
			"request_id": requestID,
			"from":       from,
			"to":         to,
		})
		sendErrorResponse(w, h.logger, "Invalid currency code",
			"Currency codes should be 3 letters (e.g., EUR, GBP, CAD)", http.StatusBadRequest, requestID)
		return
	}

	amount, err := strconv.ParseFloat(rawAmount, 64)
	if err != nil {
		h.logger.Warn("Invalid amount", map[string]interface{}{
			"request_id": requestID,
			"amount":     rawAmount,
			"error":      err.Error(),
		})
		sendErrorResponse(w, h.logger, "Invalid amount",
			"Amount must be a decimal number", http.StatusBadRequest, requestID)
		return
	}

	conv, err := h.service.ConvertDetailed(r.Context(), amount, from, to)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest):
			h.logger.Warn("Conversion request rejected", map[string]interface{}{
				"request_id": requestID,
				"error":      err.Error(),
			})
			sendErrorResponse(w, h.logger, "Invalid conversion request",
				err.Error(), http.StatusBadRequest, requestID)
		case errors.Is(err, service.ErrConversionUnavailable):
			h.logger.Warn("No exchange rate available", map[string]interface{}{
				"request_id": requestID,
				"from":       from,
				"to":         to,
				"error":      err.Error(),
			})
			sendErrorResponse(w, h.logger, "No exchange rate available",
				"No live or cached exchange rate is available for the requested currencies. Please try again later.",
				http.StatusServiceUnavailable, requestID)
		case errors.Is(err, cache.ErrCacheWrite):
			h.logger.Error("Exchange rate cache error", map[string]interface{}{
				"request_id": requestID,
				"from":       from,
				"to":         to,
				"error":      err.Error(),
			})
			sendErrorResponse(w, h.logger, "Exchange rate cache unavailable",
				"The exchange rate was retrieved but could not be stored",
				http.StatusInternalServerError, requestID)
		default:
			h.logger.Error("Unexpected error in conversion handler", map[string]interface{}{
				"request_id": requestID,
				"error":      err.Error(),
			})
			sendErrorResponse(w, h.logger, "Internal server error",
				"An unexpected error occurred. Please try again later.",
				http.StatusInternalServerError, requestID)
		}
		return
	}

	h.logger.Info("Amount converted successfully", map[string]interface{}{
		"request_id":       requestID,
		"from":             conv.From,
		"to":               conv.To,
		"exchange_rate":    conv.Rate,
		"converted_amount": conv.ConvertedAmount,
		"source":           string(conv.Source),
	})

	resp := ConversionResponse{
		Amount:          conv.Amount,
		From:            conv.From,
		To:              conv.To,
		ExchangeRate:    conv.Rate,
		ConvertedAmount: conv.ConvertedAmount,
		Source:          string(conv.Source),
	}
	if conv.Source != service.SourceIdentity {
		resp.RateCachedAt = conv.RateCachedAt.Format(time.RFC3339)
	}

	sendJSON(w, http.StatusOK, resp)
}

// Availability reports whether a pair can currently be converted
func (h *ConversionHandler) Availability(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	vars := mux.Vars(r)
	from, to := vars["from"], vars["to"]

	if !validCurrencyCode(from) || !validCurrencyCode(to) {
		sendErrorResponse(w, h.logger, "Invalid currency code",
			"Currency codes should be 3 letters (e.g., EUR, GBP, CAD)", http.StatusBadRequest, requestID)
		return
	}

	available := h.service.IsAvailable(r.Context(), from, to)

	h.logger.Info("Availability checked", map[string]interface{}{
		"request_id": requestID,
		"from":       from,
		"to":         to,
		"available":  available,
	})

	sendJSON(w, http.StatusOK, AvailabilityResponse{
		From:      strings.ToUpper(from),
		To:        strings.ToUpper(to),
		Available: available,
	})
}

// RegisterRoutes registers the conversion handler routes
func (h *ConversionHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/convert", h.Convert).Methods("GET")
	router.HandleFunc("/rates/{from}/{to}/availability", h.Availability).Methods("GET")

	h.logger.Info("Conversion routes registered", map[string]interface{}{
		"routes": []string{
			"GET /convert",
			"GET /rates/{from}/{to}/availability",
		},
	})
}

func validCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, c := range code {
		if (c < 'A' || c > 'Z') && (c < 'a' || c > 'z') {
			return false
		}
	}
	return true
}
