package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/plainsql/plainsql/internal/api"
	"github.com/plainsql/plainsql/internal/auth"
	"github.com/plainsql/plainsql/internal/config"
	"github.com/plainsql/plainsql/internal/maintenance"
	"github.com/plainsql/plainsql/internal/nl2sql"
	"github.com/plainsql/plainsql/internal/observability"
	"github.com/plainsql/plainsql/internal/query"
	duckdbengine "github.com/plainsql/plainsql/internal/query/duckdb"
	sqliteengine "github.com/plainsql/plainsql/internal/query/sqlite"
	"github.com/plainsql/plainsql/internal/session"
	sessionpostgres "github.com/plainsql/plainsql/internal/session/postgres"
	"github.com/plainsql/plainsql/internal/storage"
	s3store "github.com/plainsql/plainsql/internal/storage/s3"
)

type sessionBackend interface {
	session.Store
	session.Auditor
	session.Lister
}

func main() {
	cfg, err := config.LoadFromEnv("plainsql-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	sessions, sessionsDB, err := openSessions(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to open session store", slog.Any("error", err))
		os.Exit(1)
	}
	if sessionsDB != nil {
		defer func() { _ = sessionsDB.Close() }()
	}

	objectStore, err := openObjectStore(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to initialize object store", slog.Any("error", err))
		os.Exit(1)
	}
	workspace := &query.Workspace{Store: objectStore, WorkDir: cfg.Engine.WorkDir}
	queryEngine := &query.Router{
		Store: objectStore,
		Engines: map[query.Format]query.Engine{
			query.FormatDuckDB: duckdbengine.NewEngineWithWorkspace(workspace),
			query.FormatSQLite: sqliteengine.NewEngineWithWorkspace(workspace),
		},
	}

	translator := &nl2sql.FallbackTranslator{
		Primary: nl2sql.NewRuleTranslator(),
		Logger:  logger,
	}
	if cfg.AI.TranslateEnabled {
		model, err := nl2sql.NewOpenAITranslator(nl2sql.OpenAIConfig{
			BaseURL:     cfg.AI.BaseURL,
			APIKey:      cfg.AI.APIKey,
			Model:       cfg.AI.Model,
			Temperature: cfg.AI.Temperature,
			Timeout:     cfg.AI.Timeout,
		})
		if err != nil {
			logger.Error("failed to initialize model translator", slog.Any("error", err))
			os.Exit(1)
		}
		translator.Secondary = model
	}

	janitor := &maintenance.Service{
		Sessions:    sessions,
		ObjectStore: objectStore,
		Config:      maintenance.FromConfig(cfg.Maintenance),
		Logger:      logger,
	}

	deps := api.Dependencies{
		Logger:           logger,
		Sessions:         sessions,
		Auditor:          sessions,
		ObjectStore:      objectStore,
		QueryEngine:      queryEngine,
		Translator:       translator,
		Maintenance:      janitor,
		RowLimit:         cfg.Engine.RowLimit,
		SchemaSampleRows: cfg.Engine.SchemaSampleRows,
		MaxUploadBytes:   cfg.Uploads.MaxBytes,
		Readiness: api.CombineReadinessChecks(
			api.CheckSessionStore(sessions),
			api.CheckObjectStoreConfig(cfg),
		),
		DependencyTimeout: time.Second,
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// In-memory sessions live only in this process, so nothing else can sweep them.
	if cfg.Sessions.Backend == config.SessionBackendMemory {
		go func() {
			if err := janitor.Run(ctx); err != nil {
				logger.Error("in-process janitor failed", slog.Any("error", err))
			}
		}()
	}

	go func() {
		logger.Info("starting api server",
			slog.String("addr", cfg.HTTP.Address),
			slog.String("sessions_backend", string(cfg.Sessions.Backend)),
			slog.String("object_store_backend", string(cfg.ObjectStore.Backend)),
			slog.Bool("model_fallback", translator.Secondary != nil),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}

func openSessions(ctx context.Context, cfg config.Config) (sessionBackend, *sql.DB, error) {
	if cfg.Sessions.Backend != config.SessionBackendPostgres {
		return session.NewMemoryStore(), nil, nil
	}
	db, err := sessionpostgres.Open(ctx, sessionpostgres.DBConfig{
		DSN:             cfg.Sessions.DSN,
		MaxOpenConns:    cfg.Sessions.MaxOpenConns,
		MaxIdleConns:    cfg.Sessions.MaxIdleConns,
		ConnMaxIdleTime: cfg.Sessions.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.Sessions.ConnMaxLifetime,
	})
	if err != nil {
		return nil, nil, err
	}
	return sessionpostgres.NewStore(db), db, nil
}

func openObjectStore(ctx context.Context, cfg config.Config) (storage.ObjectStore, error) {
	if cfg.ObjectStore.Backend == config.ObjectStoreBackendMemory {
		return storage.NewMemoryStore(), nil
	}
	return s3store.New(ctx, s3store.FromConfig(cfg.ObjectStore))
}
