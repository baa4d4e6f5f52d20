// Package main provides metar-api, the HTTP server for decoding reports and
// reading stored observations.
//
// Settings come from the environment (see internal/config); flags override
// the most common ones.
//
// Usage:
//
//	metar-api [options]
//
// Options:
//
//	-addr ADDR      Listen address (default: :8080, env: HTTP_ADDR)
//	-store          Serve latest and stale stations from PostgreSQL (default: true)
//	-history        Serve history and stats from ClickHouse (default: true)
//	-auth           Enable API key authentication
//	-api-keys KEYS  Comma-separated list of valid API keys (env: API_KEY)
//
// API Endpoints:
//
//	GET  /api/v1/health
//	POST /api/v1/decode                  Body: report text, or {"report": "..."}
//	POST /api/v1/decode/batch            Body: {"reports": ["...", ...]}
//	GET  /api/v1/stations/{icao}/latest
//	GET  /api/v1/stations/{icao}/history  Query: since, until, failed, search, limit, order
//	GET  /api/v1/stations/stale           Query: max_age (default: STALE_AFTER)
//	GET  /api/v1/stats
//	GET  /metrics
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"metar_parser/internal/api"
	"metar_parser/internal/config"
	"metar_parser/internal/observability"
	"metar_parser/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	addr := flag.String("addr", cfg.HTTPAddr, "Listen address")
	useStore := flag.Bool("store", true, "Serve latest and stale stations from PostgreSQL")
	useHistory := flag.Bool("history", true, "Serve history and stats from ClickHouse")
	authEnabled := flag.Bool("auth", cfg.APIKey != "", "Enable API key authentication")
	apiKeys := flag.String("api-keys", cfg.APIKey, "Comma-separated list of valid API keys (when auth enabled)")
	flag.Parse()

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store api.StationStore
	if *useStore {
		pg, err := storage.OpenPostgres(ctx, cfg.Postgres)
		if err != nil {
			logger.Error("failed to open postgres", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		if err := pg.CreateSchema(ctx); err != nil {
			logger.Error("failed to create schema", "error", err)
			os.Exit(1)
		}
		store = pg
	}

	var history api.HistoryStore
	if *useHistory {
		ch, err := storage.OpenClickHouse(ctx, cfg.ClickHouse)
		if err != nil {
			logger.Error("failed to open clickhouse", "error", err)
			os.Exit(1)
		}
		defer func() { _ = ch.Close() }()
		if err := ch.CreateSchema(ctx); err != nil {
			logger.Error("failed to create schema", "error", err)
			os.Exit(1)
		}
		history = ch
	}

	var keys []string
	for _, k := range strings.Split(*apiKeys, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}

	server := api.NewServer(store, history, metrics, logger, api.Config{
		AuthEnabled: *authEnabled,
		APIKeys:     keys,
		StaleAfter:  cfg.StaleAfter,
	})
	srv := &http.Server{Addr: *addr, Handler: server.Router()}

	go func() {
		logger.Info("api listening", "addr", *addr, "auth", *authEnabled, "store", *useStore, "history", *useHistory)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
	logger.Info("shutdown complete")
}
