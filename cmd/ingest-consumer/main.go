// Package main runs the GridWatch Kafka reading consumer.
//
// It subscribes to the configured readings topic and feeds each JSON batch
// through the same ingestion pipeline the HTTP API uses, so validation and
// meter resolution behave identically regardless of transport.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"gridwatch/internal/config"
	"gridwatch/internal/db"
	"gridwatch/internal/ingest"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if len(cfg.Ingest.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS must be set for the ingest consumer")
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("gridwatch ingest consumer starting",
		"environment", cfg.Environment,
		"topic", cfg.Ingest.KafkaTopic,
		"group", cfg.Ingest.KafkaGroupID,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := newDBPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer pool.Close()

	meterRepo := db.NewMeterRepository(pool)
	readingRepo := db.NewReadingRepository(pool)
	service := ingest.NewService(meterRepo, readingRepo, logger)

	consumer := ingest.NewConsumer(cfg.Ingest, service, logger)
	defer func() {
		if err := consumer.Close(); err != nil {
			logger.Error("consumer close failed", "error", err)
		}
	}()

	if err := consumer.Run(ctx); err != nil {
		return fmt.Errorf("consuming readings: %w", err)
	}

	logger.Info("ingest consumer stopped cleanly")
	return nil
}

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
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
