// Shelfmates - Romantasy Reader Similarity and Book Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfmates

// Package main is the entry point for the Shelfmates server.
//
// Shelfmates finds readers with similar Romantasy taste and recommends books
// those readers loved. A periodic batch computes reader-reader similarities
// and stores each reader's top neighbors in DuckDB; recommendations are scored
// on demand from that neighbor table.
//
// # Startup Order
//
//  1. Configuration (Koanf v2: defaults, config.yaml, environment)
//  2. Logging (zerolog)
//  3. Database (DuckDB schema and migrations)
//  4. Recommendation cache (memory or BadgerDB)
//  5. Recommendation engine and batch orchestrator
//  6. Supervisor tree: batch scheduler and HTTP server
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the root context. The HTTP server stops
// accepting connections, in-flight requests finish within the shutdown
// timeout, and any batch started through the API is waited for before the
// database is closed.
//
// # Example Usage
//
//	export DATABASE_PATH=/data/shelfmates.duckdb
//	export BATCH_INTERVAL=6h
//	export RECOMMEND_MIN_OVERLAP=5
//	./shelfmates
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/shelfmates/internal/api"
	"github.com/tomtom215/shelfmates/internal/config"
	"github.com/tomtom215/shelfmates/internal/database"
	"github.com/tomtom215/shelfmates/internal/logging"
	"github.com/tomtom215/shelfmates/internal/recommend"
	"github.com/tomtom215/shelfmates/internal/supervisor"
	"github.com/tomtom215/shelfmates/internal/supervisor/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const httpShutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", version).
		Str("db_path", cfg.Database.Path).
		Str("cache_backend", cfg.Cache.Backend).
		Bool("batch_enabled", cfg.Batch.Enabled).
		Msg("Starting Shelfmates")

	if cfg.ShouldWarnAboutCORS() {
		logging.Warn().Msg("CORS allows all origins in production; set CORS_ORIGINS to restrict it")
	}

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Shelfmates stopped with error")
	}
	logging.Info().Msg("Application stopped gracefully")
}

// run wires every component and blocks until the supervisor tree stops.
func run(cfg *config.Config) error {
	db, err := database.New(&cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized successfully")

	cacheStore, err := buildCacheStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := cacheStore.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing recommendation cache")
		}
	}()

	logger := logging.Logger()
	engine, err := recommend.NewEngine(buildEngineConfig(cfg), db, cacheStore, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return err
	}

	if sched := newBatchScheduler(cfg, engine, logger); sched != nil {
		tree.AddBatchService(sched)
		logging.Info().
			Dur("interval", cfg.Batch.Interval).
			Bool("run_on_startup", cfg.Batch.RunOnStartup).
			Msg("Batch scheduler added to supervisor tree")
	} else {
		logging.Info().Msg("Batch scheduler disabled (BATCH_ENABLED=false); batches run only through the API")
	}

	handler := api.NewHandler(engine, db, db, logger,
		api.WithBaseContext(ctx),
		api.WithVersion(version),
	)
	mw := api.NewChiMiddlewareFromSecurity(
		cfg.Security.CORSOrigins,
		cfg.Security.RateLimitReqs,
		cfg.Security.RateLimitWindow,
		cfg.Security.RateLimitDisabled,
	)
	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.NewRouter(handler, mw).SetupChi(),
		ReadTimeout:       cfg.Server.Timeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, httpShutdownTimeout, services.WithDrain(handler.Wait)))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	logging.Info().Msg("Starting supervisor tree...")
	err = tree.Serve(ctx)

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if ctx.Err() != nil {
		logging.Info().Msg("Received shutdown signal")
	}
	return nil
}
