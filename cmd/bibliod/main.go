package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bibliod/bibliod/pkg/api"
	"github.com/bibliod/bibliod/pkg/auth"
	"github.com/bibliod/bibliod/pkg/catalog"
	"github.com/bibliod/bibliod/pkg/config"
	"github.com/bibliod/bibliod/pkg/observability"
	"github.com/bibliod/bibliod/pkg/storage"
	"github.com/bibliod/bibliod/pkg/storage/postgres"
	"github.com/bibliod/bibliod/pkg/storage/sqlite"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	var (
		registry *prometheus.Registry
		metrics  *observability.Metrics
	)
	if cfg.Observability.MetricsEnabled {
		registry = prometheus.NewRegistry()
		metrics = observability.NewMetrics(registry)
	}

	store, err := openStore(cfg.Storage, metrics)
	if err != nil {
		logger.WithError(err).Error("failed to open storage")
		os.Exit(1)
	}
	defer store.Close()
	logger.WithField("backend", cfg.Storage.Type).Info("storage opened")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Storage.PostgresTimeout)
	err = store.EnsureSchema(ctx)
	cancel()
	if err != nil {
		logger.WithError(err).Error("failed to ensure schema")
		os.Exit(1)
	}

	tokens := auth.NewTokenCodec(cfg.Auth.SigningKey, cfg.Auth.TokenTTL)
	authService := auth.NewService(store, tokens, cfg.Auth.BcryptCost, metrics)
	catalogService := catalog.NewService(store, metrics)

	server := api.NewServer(cfg.Server, logger, metrics, authService, catalogService)

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	checker := observability.NewHealthChecker(store.DB())
	opsServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler: api.NewOpsHandler(checker, registry),
	}

	go func() {
		defer observability.RecoverPanic(logger, "ops server")
		logger.WithField("addr", opsServer.Addr).Info("health/metrics server listening")
		if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("health/metrics server failed")
		}
	}()

	shutdown := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return opsServer.Shutdown(ctx)
	})
	shutdown.RegisterShutdownFunc(func(context.Context) error {
		return store.Close()
	})

	go func() {
		defer observability.RecoverPanic(logger, "api server")
		logger.WithField("addr", httpServer.Addr).Info("api server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("api server failed")
			os.Exit(1)
		}
	}()

	if err := shutdown.WaitForShutdown(); err != nil {
		logger.WithError(err).Error("shutdown did not complete cleanly")
		os.Exit(1)
	}
}

// dbStore is the storage surface main needs beyond the service contracts
type dbStore interface {
	storage.Store
	DB() *sql.DB
}

func openStore(cfg config.StorageConfig, metrics *observability.Metrics) (dbStore, error) {
	switch cfg.Type {
	case "postgres":
		return postgres.Open(cfg, metrics)
	case "sqlite":
		return sqlite.Open(cfg.SQLitePath, metrics)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}
