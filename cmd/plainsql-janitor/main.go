package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/plainsql/plainsql/internal/config"
	"github.com/plainsql/plainsql/internal/maintenance"
	"github.com/plainsql/plainsql/internal/observability"
	sessionpostgres "github.com/plainsql/plainsql/internal/session/postgres"
	s3store "github.com/plainsql/plainsql/internal/storage/s3"
)

func main() {
	cfg, err := config.LoadFromEnv("plainsql-janitor")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	if cfg.Sessions.Backend != config.SessionBackendPostgres {
		logger.Error("janitor requires the postgres session backend; the api server sweeps in-memory sessions itself")
		os.Exit(1)
	}
	db, err := sessionpostgres.Open(context.Background(), sessionpostgres.DBConfig{
		DSN:             cfg.Sessions.DSN,
		MaxOpenConns:    cfg.Sessions.MaxOpenConns,
		MaxIdleConns:    cfg.Sessions.MaxIdleConns,
		ConnMaxIdleTime: cfg.Sessions.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.Sessions.ConnMaxLifetime,
	})
	if err != nil {
		logger.Error("failed to open session db", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	store, err := s3store.New(context.Background(), s3store.FromConfig(cfg.ObjectStore))
	if err != nil {
		logger.Error("failed to initialize object store", slog.Any("error", err))
		os.Exit(1)
	}

	svc := &maintenance.Service{
		Sessions:    sessionpostgres.NewStore(db),
		ObjectStore: store,
		Config:      maintenance.FromConfig(cfg.Maintenance),
		Logger:      logger,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("janitor started", slog.Duration("session_ttl", cfg.Maintenance.SessionTTL))
	if err := svc.Run(ctx); err != nil {
		logger.Error("janitor failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("janitor stopped")
}

