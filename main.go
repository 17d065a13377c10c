package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/threecubed/seo-engine/pkg/config"
	"github.com/threecubed/seo-engine/pkg/database"
	"github.com/threecubed/seo-engine/pkg/fda"
	"github.com/threecubed/seo-engine/pkg/handlers"
	"github.com/threecubed/seo-engine/pkg/llm"
	"github.com/threecubed/seo-engine/pkg/logging"
	"github.com/threecubed/seo-engine/pkg/middleware"
	"github.com/threecubed/seo-engine/pkg/repositories"
	"github.com/threecubed/seo-engine/pkg/retry"
	"github.com/threecubed/seo-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.ConnectionString())),
		zap.String("generation_model", cfg.Generation.Model),
		zap.String("review_model", cfg.Review.Model))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database comes up alongside the service in local compose setups, so
	// retry the initial connection instead of crash-looping.
	db, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*database.DB, error) {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return database.NewConnection(connectCtx, &database.Config{
			URL:            cfg.Database.ConnectionString(),
			MaxConnections: cfg.Database.MaxConnections,
		})
	})
	if err != nil {
		logger.Fatal("Failed to connect to database",
			zap.String("error", logging.SanitizeError(err)))
	}
	defer db.Close()

	if err := runMigrations(cfg, logger); err != nil {
		logger.Fatal("Failed to run migrations",
			zap.String("error", logging.SanitizeError(err)))
	}

	generationClient, err := llm.NewClient(&llm.ClientConfig{
		Endpoint:    cfg.Generation.Endpoint,
		Model:       cfg.Generation.Model,
		APIKey:      cfg.Generation.APIKey,
		Temperature: cfg.Generation.Temperature,
		MaxTokens:   cfg.Generation.MaxTokens,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create generation client", zap.Error(err))
	}

	reviewClient, err := llm.NewAnthropicClient(&llm.AnthropicConfig{
		APIKey:    cfg.Review.APIKey,
		Model:     cfg.Review.Model,
		MaxTokens: cfg.Review.MaxTokens,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create review client", zap.Error(err))
	}

	enricher := fda.NewClient(&fda.Config{
		OpenFDABaseURL:        cfg.Enrichment.OpenFDABaseURL,
		ClinicalTrialsBaseURL: cfg.Enrichment.ClinicalTrialsBaseURL,
		RequestTimeout:        cfg.Enrichment.RequestTimeout,
		MaxConcurrent:         cfg.Enrichment.MaxConcurrent,
	}, logger)

	submissionRepo := repositories.NewSubmissionRepository(db)
	generator := services.NewContentGenerator(generationClient, logger)
	reviewer := services.NewQAReviewer(reviewClient, logger)
	processor := services.NewProcessor(submissionRepo, enricher, generator, reviewer, logger)
	batch := services.NewBatchProcessor(submissionRepo, processor, services.BatchConfig{
		BatchSize:  cfg.Pipeline.BatchSize,
		BatchDelay: cfg.Pipeline.BatchDelay,
	}, logger)
	poller := services.NewStatusPoller(submissionRepo, services.PollerConfig{
		Interval:    cfg.Pipeline.PollInterval,
		MaxAttempts: cfg.Pipeline.PollMaxAttempts,
	}, logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, db, logger).RegisterRoutes(mux)
	handlers.NewSubmissionsHandler(submissionRepo, poller, logger).RegisterRoutes(mux)
	handlers.NewProcessHandler(processor, batch, logger).RegisterRoutes(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	server := &http.Server{
		Addr:              addr,
		Handler:           middleware.RequestLogger(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting seo-engine",
			zap.String("addr", addr),
			zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" || env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// runMigrations opens a separate database/sql connection for golang-migrate,
// which does not speak the pgx pool interface.
func runMigrations(cfg *config.Config, logger *zap.Logger) error {
	sqlDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()

	return database.RunMigrations(sqlDB, cfg.Database.MigrationsPath, logger)
}
