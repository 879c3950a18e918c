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

	"github.com/sqlagent/sqlagent/internal/api"
	"github.com/sqlagent/sqlagent/internal/api/uistatic"
	"github.com/sqlagent/sqlagent/internal/config"
	"github.com/sqlagent/sqlagent/internal/db"
	duckdbbackend "github.com/sqlagent/sqlagent/internal/db/duckdb"
	postgresbackend "github.com/sqlagent/sqlagent/internal/db/postgres"
	"github.com/sqlagent/sqlagent/internal/export"
	"github.com/sqlagent/sqlagent/internal/nl2sql"
	"github.com/sqlagent/sqlagent/internal/observability"
	"github.com/sqlagent/sqlagent/internal/pipeline"
	s3store "github.com/sqlagent/sqlagent/internal/storage/s3"
)

func main() {
	cfg, err := config.LoadFromEnv("sqlagent-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	backend, err := openBackend(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to open database backend", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = backend.Close() }()

	translator, err := nl2sql.NewOpenAITranslator(nl2sql.OpenAIConfig{
		BaseURL:     cfg.AI.BaseURL,
		APIKey:      cfg.AI.APIKey,
		Model:       cfg.AI.Model,
		Temperature: cfg.AI.Temperature,
		Timeout:     cfg.AI.Timeout,
		Dialect:     dialectName(cfg.Database.Backend),
	})
	if err != nil {
		logger.Error("failed to initialize query translator", slog.Any("error", err))
		os.Exit(1)
	}

	queryPipeline := pipeline.New(translator, backend, pipeline.Config{
		GenerateTimeout: cfg.Pipeline.GenerateTimeout,
		ExecuteTimeout:  cfg.Pipeline.ExecuteTimeout,
		SampleRows:      cfg.UI.SampleRows,
	}, logger)

	deps := api.Dependencies{
		Logger:            logger,
		Readiness:         api.CheckBackend(backend),
		DependencyTimeout: time.Second,
		Pipeline:          queryPipeline,
		Backend:           backend,
		SampleRows:        cfg.UI.SampleRows,
		UI:                uistatic.Handler(),
	}

	if cfg.Export.Enabled {
		objectStore, err := s3store.New(context.Background(), s3store.Config{
			Endpoint:         cfg.Export.Endpoint,
			Region:           cfg.Export.Region,
			Bucket:           cfg.Export.Bucket,
			AccessKeyID:      cfg.Export.AccessKeyID,
			SecretAccessKey:  cfg.Export.SecretAccessKey,
			UseSSL:           cfg.Export.UseSSL,
			Prefix:           cfg.Export.Prefix,
			AutoCreateBucket: cfg.Export.AutoCreateBucket,
		})
		if err != nil {
			logger.Error("failed to initialize export store", slog.Any("error", err))
			os.Exit(1)
		}
		deps.Exporter = export.New(backend, objectStore)
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

	go func() {
		logger.Info("starting api server",
			slog.String("addr", cfg.HTTP.Address),
			slog.String("backend", string(cfg.Database.Backend)))
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

func openBackend(ctx context.Context, cfg config.Config) (db.Backend, error) {
	switch cfg.Database.Backend {
	case config.BackendPostgres:
		return postgresbackend.Open(ctx, postgresbackend.Config{
			DSN:             cfg.Database.PostgresDSN,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
	default:
		return duckdbbackend.Open(ctx, cfg.Database.DuckDBPath)
	}
}

func dialectName(backend config.Backend) string {
	if backend == config.BackendPostgres {
		return "PostgreSQL"
	}
	return "DuckDB"
}
