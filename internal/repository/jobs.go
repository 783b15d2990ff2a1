package repository

import (
	"context"
	"fmt"
	"log/slog"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/jobs-ingest/constants"
	"github.com/joseph-ayodele/jobs-ingest/internal/common"
	"github.com/joseph-ayodele/jobs-ingest/internal/entity"
)

const (
	// JobsTable is the destination table for normalized rows.
	JobsTable = "jobs"

	// DefaultChunkSize bounds how many rows share one transaction.
	DefaultChunkSize = 1000
)

// JobRepository persists normalized job rows.
type JobRepository interface {
	// InsertBatch writes records in chunked transactions. Each committed
	// chunk invokes report with running counters; on error the rows already
	// committed stay in place and their count is returned.
	InsertBatch(ctx context.Context, recs []entity.Job, chunkSize int, report func(processed, total, percent int)) (int, error)

	// ListJobs returns stored rows, newest insertion order not guaranteed.
	// A non-positive limit means no limit.
	ListJobs(ctx context.Context, limit int) ([]entity.Job, error)

	// CountJobs returns the number of stored rows.
	CountJobs(ctx context.Context) (int, error)
}

type jobRepository struct {
	drv    *entsql.Driver
	logger *slog.Logger
}

func NewJobRepository(drv *entsql.Driver, logger *slog.Logger) JobRepository {
	return &jobRepository{drv: drv, logger: logger}
}

var jobColumns = []string{
	constants.FieldTitle,
	constants.FieldSalary,
	constants.FieldCurrency,
	constants.FieldCountry,
	constants.FieldSeniority,
	constants.FieldStack,
}

func (r *jobRepository) InsertBatch(ctx context.Context, recs []entity.Job, chunkSize int, report func(processed, total, percent int)) (int, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	total := len(recs)
	inserted := 0
	for start := 0; start < total; start += chunkSize {
		end := start + chunkSize
		if end > total {
			end = total
		}
		if err := r.insertChunk(ctx, recs[start:end]); err != nil {
			r.logger.Error("chunk insert failed", "offset", start, "size", end-start, "error", err)
			return inserted, fmt.Errorf("%w: chunk at row %d: %w", common.ErrPersistence, start, err)
		}
		inserted = end
		percent := progressPercent(inserted, total)
		r.logger.Debug("chunk committed", "processed", inserted, "total", total, "percent", percent)
		if report != nil {
			report(inserted, total, percent)
		}
	}
	return inserted, nil
}

// insertChunk writes one chunk inside its own transaction, so a failure
// never rolls back chunks committed before it.
func (r *jobRepository) insertChunk(ctx context.Context, recs []entity.Job) error {
	tx, err := r.drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	b := entsql.Dialect(r.drv.Dialect()).
		Insert(JobsTable).
		Columns(append([]string{"id"}, jobColumns...)...)
	for _, rec := range recs {
		b.Values(uuid.New().String(), rec.Title, rec.Salary, rec.Currency, rec.Country, rec.Seniority, rec.Stack)
	}
	query, args := b.Query()
	if err := tx.Exec(ctx, query, args, nil); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (r *jobRepository) ListJobs(ctx context.Context, limit int) ([]entity.Job, error) {
	builder := entsql.Dialect(r.drv.Dialect()).
		Select(jobColumns...).
		From(entsql.Table(JobsTable)).
		OrderBy("id")
	if limit > 0 {
		builder.Limit(limit)
	}
	query, args := builder.Query()

	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]entity.Job, 0)
	for rows.Next() {
		var j entity.Job
		if err := rows.Scan(&j.Title, &j.Salary, &j.Currency, &j.Country, &j.Seniority, &j.Stack); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

func (r *jobRepository) CountJobs(ctx context.Context) (int, error) {
	query, args := entsql.Dialect(r.drv.Dialect()).
		Select(entsql.Count("*")).
		From(entsql.Table(JobsTable)).
		Query()

	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return 0, fmt.Errorf("count jobs: %w", err)
	}
	defer rows.Close()

	var n int
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, fmt.Errorf("count jobs: %w", err)
		}
	}
	return n, rows.Err()
}

// progressPercent computes an integer percentage, guarding against
// empty batches.
func progressPercent(processed, total int) int {
	if total < 1 {
		total = 1
	}
	return processed * 100 / total
}
