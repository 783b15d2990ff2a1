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

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/joseph-ayodele/jobs-ingest/internal/async"
	"github.com/joseph-ayodele/jobs-ingest/internal/common"
	"github.com/joseph-ayodele/jobs-ingest/internal/export"
	"github.com/joseph-ayodele/jobs-ingest/internal/ingest"
	repo "github.com/joseph-ayodele/jobs-ingest/internal/repository"
	"github.com/joseph-ayodele/jobs-ingest/internal/server"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg := common.LoadConfig()

	level := slog.LevelInfo
	if cfg.App.Debug {
		level = slog.LevelDebug
	}
	// Structured logger that outputs messages with variables but no time/level
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(cfg.Ingest.UploadDir, 0o755); err != nil {
		logger.Error("failed to create upload dir", "dir", cfg.Ingest.UploadDir, "error", err)
		os.Exit(1)
	}

	drv, pool, err := repo.Open(ctx, repo.Config{
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer repo.Close(drv, pool, logger)

	if err := repo.HealthCheck(ctx, drv, 5*time.Second, logger); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	if err := repo.EnsureSchema(ctx, drv); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	jobsRepo := repo.NewJobRepository(drv, logger)
	tasksRepo := repo.NewTaskRepository(drv, logger)

	runner := ingest.NewRunner(cfg.Ingest.UploadDir, cfg.Ingest.ChunkSize, jobsRepo, logger)
	queue := async.NewRunnerQueue(runner, tasksRepo, logger,
		async.WithWorkers(cfg.Ingest.Workers),
		async.WithQueueSize(cfg.Ingest.QueueSize),
		async.WithProcessTimeout(cfg.Ingest.ProcessTimeout),
	)

	if cfg.Ingest.WatchDir != "" {
		if err := os.MkdirAll(cfg.Ingest.WatchDir, 0o755); err != nil {
			logger.Error("failed to create watch dir", "dir", cfg.Ingest.WatchDir, "error", err)
			os.Exit(1)
		}
		paths, watchErrs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
			Roots:       []string{cfg.Ingest.WatchDir},
			InitialScan: true,
			Debounce:    cfg.Ingest.WatchDebounce,
		})
		if err != nil {
			logger.Error("failed to start watcher", "dir", cfg.Ingest.WatchDir, "error", err)
			os.Exit(1)
		}
		spooler := async.NewSpooler(cfg.Ingest.UploadDir, cfg.Ingest.WatchColumnMap, tasksRepo, queue, logger)
		go spooler.Run(ctx, paths, watchErrs)
		logger.Info("watching drop directory", "dir", cfg.Ingest.WatchDir)
	}

	srv := server.NewServer(server.Deps{
		Config:   cfg,
		Driver:   drv,
		Jobs:     jobsRepo,
		Tasks:    tasksRepo,
		Queue:    queue,
		Exporter: export.NewService(jobsRepo, logger),
		Logger:   logger,
	})

	// Janitor: terminal task rows expire after the configured TTL.
	janitor := cron.New()
	if _, err := janitor.AddFunc(cfg.Tasks.CleanupSpec, func() {
		cutoff := time.Now().UTC().Add(-cfg.Tasks.ResultTTL)
		if _, err := tasksRepo.DeleteExpired(context.Background(), cutoff); err != nil {
			logger.Error("task cleanup failed", "error", err)
		}
	}); err != nil {
		logger.Error("invalid cleanup spec", "spec", cfg.Tasks.CleanupSpec, "error", err)
		os.Exit(1)
	}
	janitor.Start()

	go func() {
		if err := srv.Start(cfg.Server.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "error", err)
	}
	queue.Shutdown(shutdownCtx)
	<-janitor.Stop().Done()
}
