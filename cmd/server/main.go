package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/damon-houk/fx-rate-engine/internal/application/service"
	"github.com/damon-houk/fx-rate-engine/internal/config"
	"github.com/damon-houk/fx-rate-engine/internal/domain/repository"
	"github.com/damon-houk/fx-rate-engine/internal/infrastructure/api"
	"github.com/damon-houk/fx-rate-engine/internal/infrastructure/cache"
	"github.com/damon-houk/fx-rate-engine/internal/infrastructure/db"
	"github.com/damon-houk/fx-rate-engine/internal/infrastructure/handler"
	"github.com/damon-houk/fx-rate-engine/internal/infrastructure/logger"
	"github.com/damon-houk/fx-rate-engine/internal/infrastructure/metrics"
	"github.com/damon-houk/fx-rate-engine/internal/infrastructure/middleware"
	"github.com/dgraph-io/badger/v3"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// storage is a KV backend that can also report its health
type storage interface {
	repository.KVStore
	Ping(ctx context.Context) error
}

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		logger.Fatal("Failed to load configuration", map[string]interface{}{
			"error": err.Error(),
		})
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Fatal("Invalid log level", map[string]interface{}{
			"error": err.Error(),
		})
	}
	log := logger.NewJSONLogger(os.Stdout, level)
	logger.SetDefaultLogger(log)

	log.Info("Starting FX rate engine", map[string]interface{}{
		"port":            cfg.Server.Port,
		"storage_backend": cfg.Storage.Backend,
		"provider_url":    cfg.Provider.BaseURL,
		"api_key":         cfg.MaskedAPIKey(),
		"cache_ttl":       cfg.Cache.TTL.String(),
		"fetch_timeout":   cfg.Provider.Timeout.String(),
		"attempt_timeout": cfg.Provider.AttemptTimeout.String(),
	})

	kv, closeStorage, err := openStorage(cfg.Storage)
	if err != nil {
		log.Fatal("Failed to open storage", map[string]interface{}{
			"backend": cfg.Storage.Backend,
			"error":   err.Error(),
		})
	}
	defer func() {
		if err := closeStorage(); err != nil {
			log.Error("Error closing storage", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	m := metrics.NewMetrics(prometheus.DefaultRegisterer)

	store := cache.NewRateCacheStore(kv, log.WithField("component", "rate_cache"), cache.WithTTL(cfg.Cache.TTL))

	client := api.NewExchangeRateAPIClient(
		&http.Client{Timeout: cfg.Provider.AttemptTimeout},
		api.WithBaseURL(cfg.Provider.BaseURL),
		api.WithAPIKey(cfg.Provider.APIKey),
		api.WithMaxRetries(cfg.Provider.MaxRetries),
		api.WithLogger(log.WithField("component", "rate_provider")),
	)
	provider := db.NewLoggingRateProvider(client, log.WithField("component", "rate_provider"))

	conversionService := service.NewConversionService(store, provider, log,
		service.WithFetchTimeout(cfg.Provider.Timeout),
		service.WithProbeCaching(cfg.Cache.ProbeCaching),
		service.WithMetrics(m),
	)

	router := mux.NewRouter()
	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.LoggingMiddleware(log))
	router.Use(middleware.MetricsMiddleware(m))

	handler.NewConversionHandler(conversionService, log).RegisterRoutes(router)
	handler.NewCacheHandler(conversionService, kv, log).RegisterRoutes(router)
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Server listening", map[string]interface{}{
			"addr": server.Addr,
		})
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server stopped unexpectedly", map[string]interface{}{
				"error": err.Error(),
			})
		}
	case <-ctx.Done():
		log.Info("Shutting down server", nil)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Graceful shutdown failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
}

func openStorage(cfg config.StorageConfig) (storage, func() error, error) {
	switch cfg.Backend {
	case config.StorageRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid redis url: %w", err)
		}

		client := redis.NewClient(opts)
		store := db.NewRedisKVStore(client)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("redis unreachable: %w", err)
		}

		return store, client.Close, nil

	default:
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create database directory: %w", err)
		}

		badgerOpts := badger.DefaultOptions(cfg.DataDir)
		badgerOpts.Logger = nil

		badgerDB, err := badger.Open(badgerOpts)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}

		return db.NewBadgerKVStore(badgerDB), badgerDB.Close, nil
	}
}
