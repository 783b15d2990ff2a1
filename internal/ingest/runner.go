package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/jobs-ingest/internal/common"
	"github.com/joseph-ayodele/jobs-ingest/internal/entity"
	"github.com/joseph-ayodele/jobs-ingest/internal/tabular"
)

// Persister writes normalized records in bounded transactional chunks and
// invokes report after each committed chunk.
type Persister interface {
	InsertBatch(ctx context.Context, recs []entity.Job, chunkSize int, report func(processed, total, percent int)) (int, error)
}

// Runner executes the ingestion pipeline for one uploaded file: load, map,
// normalize, persist.
type Runner struct {
	uploadDir string
	chunkSize int
	store     Persister
	logger    *slog.Logger
}

func NewRunner(uploadDir string, chunkSize int, store Persister, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{uploadDir: uploadDir, chunkSize: chunkSize, store: store, logger: logger}
}

// Run processes fileID under the upload root with the supplied column
// mapping. Expected failure modes (missing file, unsupported type, unusable
// mapping, zero surviving rows) fold into the Result; only storage failures
// surface as errors, with chunks committed before the failure staying
// durable.
func (r *Runner) Run(ctx context.Context, fileID string, columnMap map[string]string, rep Reporter) (Result, error) {
	if rep == nil {
		rep = NopReporter{}
	}
	log := r.logger
	if rid := common.RequestIDFromContext(ctx); rid != "" {
		log = log.With("trace_id", rid)
	}

	// 1) resolve the path; a missing file ends the run before any reporting
	path := filepath.Join(r.uploadDir, fileID)
	if _, err := os.Stat(path); err != nil {
		log.Warn("ingest.file.missing", "file_id", fileID)
		return Result{FileID: fileID, Err: "file not found"}, nil
	}

	rep.Report(ctx, Progress{Stage: StageLoading})

	// 2) load → raw table
	table, err := tabular.LoadFile(path)
	if err != nil {
		var ute *tabular.UnsupportedTypeError
		if errors.As(err, &ute) {
			log.Warn("ingest.file.unsupported", "file_id", fileID, "ext", ute.Ext)
			return Result{FileID: fileID, Err: ute.Error()}, nil
		}
		return Result{FileID: fileID}, fmt.Errorf("load %s: %w", fileID, err)
	}

	// 3) mapping → rename plan
	plan, err := ResolveMapping(table, columnMap)
	if err != nil {
		var me *MappingError
		if errors.As(err, &me) {
			log.Warn("ingest.mapping.invalid", "file_id", fileID, "columns", len(me.Columns))
			return Result{FileID: fileID, Err: me.Error(), Columns: me.Columns}, nil
		}
		return Result{FileID: fileID}, err
	}

	// 4) normalize
	recs := Normalize(plan.Apply(table))
	if len(recs) == 0 {
		log.Info("ingest.empty", "file_id", fileID, "raw_rows", len(table.Rows))
		return Result{FileID: fileID, Inserted: 0, Note: "no valid rows after normalization"}, nil
	}

	// 5) chunked persist with progress after each commit
	inserted, err := r.store.InsertBatch(ctx, recs, r.chunkSize, func(processed, total, percent int) {
		rep.Report(ctx, Progress{Processed: processed, Total: total, Percent: percent})
	})
	if err != nil {
		// earlier committed chunks stay durable; Inserted records how far we got
		return Result{FileID: fileID, Inserted: inserted, Total: len(recs)}, common.WrapError(err, "insert batch")
	}

	sample := recs
	if len(sample) > 3 {
		sample = sample[:3]
	}
	log.Info("ingestion complete", "file_id", fileID, "inserted", inserted, "total", len(recs))
	return Result{FileID: fileID, Inserted: inserted, Total: len(recs), Sample: sample}, nil
}
