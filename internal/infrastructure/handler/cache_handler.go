package handler

import (
	"context"
	"net/http"

	"github.com/damon-houk/fx-rate-engine/internal/application/service"
	"github.com/damon-houk/fx-rate-engine/internal/infrastructure/logger"
	"github.com/damon-houk/fx-rate-engine/internal/infrastructure/middleware"
	"github.com/gorilla/mux"
)

// Pinger is implemented by storage backends that can report their health
type Pinger interface {
	Ping(ctx context.Context) error
}

// CacheHandler exposes cache maintenance and health endpoints
type CacheHandler struct {
	service *service.ConversionService
	store   Pinger
	logger  logger.Logger
}

// NewCacheHandler creates a new cache handler. store may be nil.
func NewCacheHandler(service *service.ConversionService, store Pinger, log logger.Logger) *CacheHandler {
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &CacheHandler{
		service: service,
		store:   store,
		logger:  log,
	}
}

// Stats returns the valid/expired breakdown of cached rates
func (h *CacheHandler) Stats(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	stats, err := h.service.CacheStats(r.Context())
	if err != nil {
		h.logger.Error("Failed to compute cache statistics", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		sendErrorResponse(w, h.logger, "Cache unavailable",
			"Cache statistics could not be computed", http.StatusInternalServerError, requestID)
		return
	}

	sendJSON(w, http.StatusOK, CacheStatsResponse{
		Total:   stats.Total,
		Valid:   stats.Valid,
		Expired: stats.Expired,
	})
}

// Clear removes every cached rate
func (h *CacheHandler) Clear(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	if err := h.service.ClearCache(r.Context()); err != nil {
		h.logger.Error("Failed to clear cache", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		sendErrorResponse(w, h.logger, "Cache unavailable",
			"The cache could not be cleared", http.StatusInternalServerError, requestID)
		return
	}

	h.logger.Info("Rate cache cleared", map[string]interface{}{
		"request_id": requestID,
	})

	w.WriteHeader(http.StatusNoContent)
}

// Health reports whether the storage backend is reachable
func (h *CacheHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.store != nil {
		if err := h.store.Ping(r.Context()); err != nil {
			h.logger.Warn("Health check failed", map[string]interface{}{
				"request_id": middleware.GetRequestID(r.Context()),
				"error":      err.Error(),
			})
			sendJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Error: err.Error()})
			return
		}
	}

	sendJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// RegisterRoutes registers the cache handler routes
func (h *CacheHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/cache/stats", h.Stats).Methods("GET")
	router.HandleFunc("/cache", h.Clear).Methods("DELETE")
	router.HandleFunc("/health", h.Health).Methods("GET")

	h.logger.Info("Cache routes registered", map[string]interface{}{
		"routes": []string{
			"GET /cache/stats",
			"DELETE /cache",
			"GET /health",
		},
	})
}
