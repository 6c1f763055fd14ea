// Package main is the entry point for the GridWatch API server.
//
// It loads configuration, connects Postgres and Redis, wires the repositories
// and domain services into the HTTP handlers, and serves the versioned API
// with graceful shutdown on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"gridwatch/internal/aggregation"
	"gridwatch/internal/api/handlers"
	"gridwatch/internal/auth"
	"gridwatch/internal/config"
	"gridwatch/internal/core"
	"gridwatch/internal/dashboard"
	"gridwatch/internal/db"
	"gridwatch/internal/ingest"
	"gridwatch/internal/jobs"
	"gridwatch/internal/reports"
	"gridwatch/internal/seed"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("gridwatch API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
	)

	ctx := context.Background()

	pool, err := newDBPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}

	cache := redis.NewClient(&redis.Options{
		Addr:     cfg.Cache.RedisAddr,
		Password: cfg.Cache.RedisPassword.Unmask(),
		DB:       cfg.Cache.RedisDB,
	})

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	srv.Authenticator = auth.NewVerifier(cfg.Auth, logger)
	srv.RateLimitStore = core.NewMemoryRateLimitStore()
	srv.RegisterCloser(poolCloser{pool})
	srv.RegisterCloser(cache)

	// Repositories.
	buildingRepo := db.NewBuildingRepository(pool)
	zoneRepo := db.NewZoneRepository(pool)
	meterRepo := db.NewMeterRepository(pool)
	readingRepo := db.NewReadingRepository(pool)
	aggregateRepo := db.NewAggregateRepository(pool)
	ruleRepo := db.NewAlertRuleRepository(pool)
	alertRepo := db.NewAlertRepository(pool)
	jobRepo := db.NewJobRepository(pool)
	reportRepo := db.NewReportRepository(pool)

	// Domain services.
	ingestSvc := ingest.NewService(meterRepo, readingRepo, logger)
	engine := aggregation.NewEngine(readingRepo, aggregateRepo, logger)
	evaluator := aggregation.NewEvaluator(ruleRepo, meterRepo, alertRepo, logger)
	runner := jobs.NewRunner(engine, evaluator, jobRepo, logger)
	generator := reports.NewGenerator(aggregateRepo, reportRepo, logger)
	overview := dashboard.NewService(dashboard.Repos{
		Buildings: buildingRepo,
		Zones:     zoneRepo,
		Meters:    meterRepo,
		Readings:  readingRepo,
		Alerts:    alertRepo,
		Series:    aggregateRepo,
	}, cache, cfg.Cache.DashboardTTL, cfg.Dashboard.RecentAlerts, logger)

	// HTTP handlers.
	registrars := []core.RouteRegistrar{
		handlers.NewBuildingHandler(buildingRepo, srv.Validator, logger).RegisterRoutes,
		handlers.NewZoneHandler(zoneRepo, srv.Validator, logger).RegisterRoutes,
		handlers.NewMeterHandler(meterRepo, zoneRepo, srv.Validator, logger).RegisterRoutes,
		handlers.NewReadingHandler(readingRepo, ingestSvc, srv.Validator, logger).RegisterRoutes,
		handlers.NewJobHandler(runner, jobRepo, srv.Validator, logger).RegisterRoutes,
		handlers.NewAggregateHandler(aggregateRepo, logger).RegisterRoutes,
		handlers.NewAlertRuleHandler(ruleRepo, srv.Validator, logger).RegisterRoutes,
		handlers.NewAlertHandler(alertRepo, srv.Validator, logger).RegisterRoutes,
		handlers.NewReportHandler(generator, reportRepo, srv.Validator, logger).RegisterRoutes,
		handlers.NewDashboardHandler(overview, logger).RegisterRoutes,
	}

	if cfg.Seed.Enabled && cfg.Environment != "prod" {
		seeder := seed.NewSeeder(buildingRepo, zoneRepo, meterRepo, readingRepo, ruleRepo, logger)
		registrars = append(registrars, handlers.NewSeedHandler(seeder, logger).RegisterRoutes)
		logger.Warn("demo seed endpoint enabled")
	}
	srv.V1RouteRegistrars = registrars

	srv.HealthProbes = []core.HealthProbe{
		core.ProbeFunc{ProbeName: "postgres", Fn: pool.Ping},
		core.ProbeFunc{ProbeName: "redis", Fn: func(ctx context.Context) error {
			return cache.Ping(ctx).Err()
		}},
	}

	srv.MountRoutes()

	return runHTTPServer(srv, cfg, logger)
}

// newDBPool builds a pgx connection pool with the configured tuning and
// verifies connectivity before returning.
func newDBPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL.Unmask())
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.HealthCheckPeriod = cfg.HealthCheckPeriod

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.AcquireTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return pool, nil
}

// poolCloser adapts pgxpool.Pool's Close to io.Closer.
type poolCloser struct {
	pool *pgxpool.Pool
}

func (c poolCloser) Close() error {
	c.pool.Close()
	return nil
}

// runHTTPServer starts the server in standard HTTP mode with graceful shutdown.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)

	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server resource shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler)
}
