package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"

	"github.com/couchcryptid/station-ridership/internal/adapter/dataset"
	httpadapter "github.com/couchcryptid/station-ridership/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/station-ridership/internal/adapter/kafka"
	"github.com/couchcryptid/station-ridership/internal/config"
	"github.com/couchcryptid/station-ridership/internal/domain"
	"github.com/couchcryptid/station-ridership/internal/loader"
	"github.com/couchcryptid/station-ridership/internal/observability"
	"github.com/couchcryptid/station-ridership/internal/pipeline"
)

// readiness is ready when every check passes.
type readiness []sharedobs.ReadinessChecker

func (r readiness) CheckReadiness(ctx context.Context) error {
	for _, c := range r {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	var opts []loader.Option
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		opts = append(opts, loader.WithNotifier(writer))
		logger.Info("kafka enabled", "brokers", cfg.KafkaBrokers,
			"refresh_topic", cfg.KafkaRefreshTopic, "events_topic", cfg.KafkaEventsTopic)
	} else {
		logger.Info("kafka disabled")
	}

	reader := dataset.NewReader(cfg.CSVDelimiter, cfg.SQLiteTable)
	l := loader.New(cfg.DataPrimaryPath, cfg.DataFallbackPath, reader, logger, metrics, opts...)

	dashboard := pipeline.NewDashboard(l, pipeline.Settings{
		DefaultColorBy: cfg.Presentation.DefaultColorBy,
		DefaultTopN:    cfg.Presentation.DefaultTopN,
		HistogramBins:  cfg.Presentation.HistogramBins,
		Palette:        domain.Palette(cfg.Presentation.Palette),
		CacheSize:      cfg.ViewCacheSize,
	}, logger, metrics)

	ready := readiness{dashboard}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Warm the cache; a missing dataset is reported but the API still starts.
	if _, err := l.Load(ctx); err != nil {
		logger.Warn("initial dataset load failed", "error", err,
			"primary", cfg.DataPrimaryPath, "fallback", cfg.DataFallbackPath)
	}

	var noticeReader *kafkaadapter.Reader
	if cfg.KafkaEnabled {
		noticeReader = kafkaadapter.NewReader(cfg, logger)
		watcher := pipeline.NewRefreshWatcher(noticeReader, l, logger, metrics)
		ready = append(ready, watcher)

		go func() {
			if err := watcher.Run(ctx); err != nil {
				logger.Error("refresh watcher error", "error", err)
			}
		}()
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, dashboard, ready, cfg.Presentation.CORSAllowedOrigins, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if noticeReader != nil {
		if err := noticeReader.Close(); err != nil {
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
