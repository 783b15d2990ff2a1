package ingest

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// StageLoading is reported once before the file is read.
const StageLoading = "loading"

// Progress is one best-effort progress event. A non-empty Stage marks a
// phase change; otherwise Processed/Total/Percent describe committed rows.
type Progress struct {
	Stage     string
	Processed int
	Total     int
	Percent   int
}

// Reporter receives Progress events. Reporting is fire-and-forget
// telemetry: implementations swallow their own failures and may never abort
// a run.
type Reporter interface {
	Report(ctx context.Context, p Progress)
}

// NopReporter discards every event. It is the default when no reporter is
// injected, and the one tests usually want.
type NopReporter struct{}

func (NopReporter) Report(context.Context, Progress) {}

// TaskProgressStore is the slice of the task store the reporter writes to.
type TaskProgressStore interface {
	MarkStarted(ctx context.Context, id uuid.UUID, stage string) error
	SetProgress(ctx context.Context, id uuid.UUID, processed, total, percent int) error
}

// StoreReporter persists progress onto one task row. Store errors are
// logged and dropped.
type StoreReporter struct {
	store  TaskProgressStore
	taskID uuid.UUID
	logger *slog.Logger
}

func NewStoreReporter(store TaskProgressStore, taskID uuid.UUID, logger *slog.Logger) *StoreReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreReporter{store: store, taskID: taskID, logger: logger}
}

func (r *StoreReporter) Report(ctx context.Context, p Progress) {
	var err error
	if p.Stage != "" {
		err = r.store.MarkStarted(ctx, r.taskID, p.Stage)
	} else {
		err = r.store.SetProgress(ctx, r.taskID, p.Processed, p.Total, p.Percent)
	}
	if err != nil {
		r.logger.Warn("progress report dropped", "task_id", r.taskID, "error", err)
	}
}
