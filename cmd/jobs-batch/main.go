package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/jobs-ingest/internal/common"
	"github.com/joseph-ayodele/jobs-ingest/internal/export"
	"github.com/joseph-ayodele/jobs-ingest/internal/ingest"
	repo "github.com/joseph-ayodele/jobs-ingest/internal/repository"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	// Parse CLI flags
	var (
		inmem   = flag.Bool("inmem", false, "use in-memory SQLite database")
		file    = flag.String("file", "", "tabular file to ingest (required)")
		mapJSON = flag.String("map", "", "column mapping JSON, canonical field to source column (omit to list the file's columns)")
		chunk   = flag.Int("chunk", 0, "rows per transaction (0 uses CHUNK_SIZE)")
		out     = flag.String("out", "", "write an XLSX export of stored rows to this path")
	)
	flag.Parse()

	if *file == "" {
		printError("Error: -file is required\n")
		os.Exit(1)
	}

	var columnMap map[string]string
	if *mapJSON != "" {
		if err := json.Unmarshal([]byte(*mapJSON), &columnMap); err != nil {
			printError("Error: invalid -map JSON: %v\n", err)
			os.Exit(1)
		}
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx := context.Background()
	cfg := common.LoadConfig()

	var (
		drv  *entsql.Driver
		pool *pgxpool.Pool
		err  error
	)
	if *inmem {
		drv, err = repo.OpenLite(":memory:", logger)
	} else {
		if cfg.Database.DSN == "" {
			printError("Error: DB_URL is required unless -inmem is set\n")
			os.Exit(1)
		}
		drv, pool, err = repo.Open(ctx, repo.Config{
			DSN:              cfg.Database.DSN,
			MaxConns:         cfg.Database.MaxConns,
			MinConns:         cfg.Database.MinConns,
			MaxConnLifetime:  cfg.Database.MaxConnLifetime,
			MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
			DialTimeout:      cfg.Database.DialTimeout,
			StatementTimeout: cfg.Database.StatementTimeout,
		}, logger)
	}
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer repo.Close(drv, pool, logger)

	if err := repo.EnsureSchema(ctx, drv); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	jobsRepo := repo.NewJobRepository(drv, logger)

	chunkSize := *chunk
	if chunkSize <= 0 {
		chunkSize = cfg.Ingest.ChunkSize
	}

	// The runner resolves files relative to its upload root, so point the
	// root at the file's directory.
	abs, err := filepath.Abs(*file)
	if err != nil {
		logger.Error("failed to resolve file path", "file", *file, "error", err)
		os.Exit(1)
	}
	runner := ingest.NewRunner(filepath.Dir(abs), chunkSize, jobsRepo, logger)

	start := time.Now()
	res, err := runner.Run(ctx, filepath.Base(abs), columnMap, nil)
	if err != nil {
		logger.Error("ingestion failed", "file", abs, "error", err)
		os.Exit(1)
	}

	encoded, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		logger.Error("failed to encode result", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(encoded))

	if *out != "" {
		exporter := export.NewService(jobsRepo, logger)
		xlsxBytes, err := exporter.JobsXLSX(ctx, 0)
		if err != nil {
			logger.Error("failed to export jobs", "error", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*out, xlsxBytes, 0644); err != nil {
			logger.Error("failed to write output file", "error", err)
			os.Exit(1)
		}
		fmt.Printf("Export written to %s\n", *out)
	}

	logger.Info("batch ingestion complete",
		"file", abs,
		"inserted", res.Inserted,
		"total", res.Total,
		"elapsed_ms", time.Since(start).Milliseconds())
}
