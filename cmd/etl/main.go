package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/epi-signal-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/epi-signal-etl/internal/adapter/kafka"
	"github.com/couchcryptid/epi-signal-etl/internal/adapter/popregistry"
	"github.com/couchcryptid/epi-signal-etl/internal/config"
	"github.com/couchcryptid/epi-signal-etl/internal/domain"
	"github.com/couchcryptid/epi-signal-etl/internal/observability"
	"github.com/couchcryptid/epi-signal-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// Initialize population lookup (feature-flagged via POPREG_ENABLED / POPREG_URL).
	var population domain.PopulationLookup
	if cfg.PopRegistryEnabled {
		client := popregistry.NewClient(cfg.PopRegistryURL, cfg.PopRegistryTimeout, logger, metrics)
		population = popregistry.NewCachedLookup(client, cfg.PopRegistryCacheSize, metrics)
		metrics.PopulationEnabled.Set(1)
		logger.Info("population registry enabled", "cache_size", cfg.PopRegistryCacheSize, "timeout", cfg.PopRegistryTimeout)
	} else {
		logger.Info("population registry disabled")
	}

	analyzer, err := pipeline.NewAnalyzer(cfg, population, logger, metrics)
	if err != nil {
		logger.Error("invalid analysis configuration", "error", err)
		os.Exit(1)
	}

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)

	p := pipeline.New(reader, analyzer, writer, logger, metrics, cfg.BatchSize, cfg.AnalysisWorkers)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start analysis pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
