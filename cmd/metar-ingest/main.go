// Package main provides metar-ingest, which decodes reports arriving on a
// NATS subject, stores them in ClickHouse and PostgreSQL, publishes the
// decoded form back to NATS, and optionally produces it to Kafka. Every
// STALE_SWEEP_INTERVAL it counts the stations silent for longer than
// STALE_AFTER into the metar_stale_stations gauge.
//
// Settings come from the environment (see internal/config). Set
// KAFKA_BROKERS to enable the Kafka sink.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"metar_parser/internal/config"
	"metar_parser/internal/ingest"
	"metar_parser/internal/observability"
	"metar_parser/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(ctx, cfg.Storage())
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.CreateSchemas(ctx); err != nil {
		logger.Error("failed to create schemas", "error", err)
		os.Exit(1)
	}

	nc, err := nats.Connect(cfg.NATSURL,
		nats.Name("metar-ingest"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		logger.Error("failed to connect to nats", "url", cfg.NATSURL, "error", err)
		os.Exit(1)
	}
	defer nc.Close()

	sinks := []ingest.Sink{ingest.NewStoreSink(db)}
	if len(cfg.KafkaBrokers) > 0 {
		kafka := ingest.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer func() {
			if err := kafka.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		sinks = append(sinks, kafka)
		logger.Info("kafka sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	processor := ingest.NewProcessor(ingest.ProcessorConfig{
		Publisher:      nc,
		DecodedSubject: cfg.DecodedSubject,
		Source:         cfg.RawSubject,
	}, sinks, logger, metrics)
	consumer := ingest.NewConsumer(nc, cfg.RawSubject, cfg.QueueGroup, cfg.Workers, processor, logger)

	stale := ingest.NewStaleMonitor(db.PG, cfg.StaleAfter, cfg.StaleSweepInterval, nil, metrics, logger)
	if err := stale.Start(); err != nil {
		logger.Error("failed to start stale station sweep", "error", err)
		os.Exit(1)
	}
	defer stale.Stop()

	// Health and metrics.
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if !nc.IsConnected() {
			http.Error(w, "nats disconnected", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	if err := consumer.Run(ctx); err != nil {
		logger.Error("consumer error", "error", err)
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := nc.Drain(); err != nil {
		logger.Error("nats drain error", "error", err)
	}
	logger.Info("shutdown complete")
}
