package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/banjirlab/flood-risk-service/internal/adapter/http"
	kafkaadapter "github.com/banjirlab/flood-risk-service/internal/adapter/kafka"

	"github.com/banjirlab/flood-risk-service/internal/adapter/elevation"
	"github.com/banjirlab/flood-risk-service/internal/classifier"
	"github.com/banjirlab/flood-risk-service/internal/config"
	"github.com/banjirlab/flood-risk-service/internal/domain"
	"github.com/banjirlab/flood-risk-service/internal/observability"
	"github.com/banjirlab/flood-risk-service/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// Initialize elevation lookup (feature-flagged via FLOODRISK_ELEVATION_ENABLED).
	var resolver domain.ElevationResolver
	if cfg.Elevation.Enabled {
		client := elevation.NewClient(cfg.Elevation.BaseURL, cfg.Elevation.Timeout, metrics, logger)
		resolver = elevation.NewCachedResolver(client, cfg.Elevation.CacheSize, metrics)
		metrics.ElevationEnabled.Set(1)
		logger.Info("elevation lookup enabled",
			"base_url", cfg.Elevation.BaseURL,
			"cache_size", cfg.Elevation.CacheSize,
			"timeout", cfg.Elevation.Timeout)
	} else {
		logger.Info("elevation lookup disabled")
	}

	provider := classifier.NewProvider(cfg.Model.BundlePath, cfg.SeverityScale(), logger, metrics)
	if cfg.Model.WarmOnStart {
		// A broken bundle should not keep the process down: the API stays up
		// answering 503 until a reload fixes it.
		if _, err := provider.Assignment(); err != nil {
			logger.Error("model warm-up failed, serving degraded", "error", err)
		}
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, provider, resolver, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start streaming pipeline when configured.
	var reader *kafkaadapter.Reader
	var writer *kafkaadapter.Writer
	if cfg.Kafka.Enabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		writer = kafkaadapter.NewWriter(cfg, logger)
		transformer := pipeline.NewTransformer(provider, resolver, logger)
		p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.Kafka.BatchSize)

		go func() {
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
	} else {
		logger.Info("kafka pipeline disabled")
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
