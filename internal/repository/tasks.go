package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/jobs-ingest/constants"
	"github.com/joseph-ayodele/jobs-ingest/internal/common"
	"github.com/joseph-ayodele/jobs-ingest/internal/entity"
)

// TasksTable tracks one row per submitted ingestion run.
const TasksTable = "ingest_tasks"

// TaskRepository records the lifecycle of ingestion tasks.
type TaskRepository interface {
	// Create inserts a new task in the QUEUED state and returns it.
	Create(ctx context.Context, fileID string) (*entity.IngestTask, error)

	// MarkStarted flips the task to STARTED and records the stage label.
	MarkStarted(ctx context.Context, id uuid.UUID, stage string) error

	// SetProgress flips the task to PROGRESS and stores running counters.
	SetProgress(ctx context.Context, id uuid.UUID, processed, total, percent int) error

	// FinishSuccess stores the result payload and marks the task SUCCESS.
	FinishSuccess(ctx context.Context, id uuid.UUID, result json.RawMessage) error

	// FinishFailure records the error message and marks the task FAILURE.
	// Progress counters keep their last committed values.
	FinishFailure(ctx context.Context, id uuid.UUID, message string) error

	// GetByID fetches a task, wrapping common.ErrNotFound when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*entity.IngestTask, error)

	// DeleteExpired removes terminal tasks last updated before cutoff and
	// returns how many rows were deleted.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int, error)
}

type taskRepository struct {
	drv    *entsql.Driver
	logger *slog.Logger
}

func NewTaskRepository(drv *entsql.Driver, logger *slog.Logger) TaskRepository {
	return &taskRepository{drv: drv, logger: logger}
}

var taskColumns = []string{
	"id", "file_id", "status", "stage", "processed", "total", "percent",
	"error_message", "result", "created_at", "updated_at", "finished_at",
}

func (r *taskRepository) Create(ctx context.Context, fileID string) (*entity.IngestTask, error) {
	now := time.Now().UTC()
	task := &entity.IngestTask{
		ID:        uuid.New(),
		FileID:    fileID,
		Status:    constants.TaskStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}

	query, args := entsql.Dialect(r.drv.Dialect()).
		Insert(TasksTable).
		Columns("id", "file_id", "status", "processed", "total", "percent", "created_at", "updated_at").
		Values(task.ID.String(), task.FileID, string(task.Status), 0, 0, 0, now, now).
		Query()
	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		r.logger.Error("failed to create task", "file_id", fileID, "error", err)
		return nil, fmt.Errorf("create task: %w", err)
	}

	r.logger.Info("task created", "task_id", task.ID, "file_id", fileID)
	return task, nil
}

func (r *taskRepository) MarkStarted(ctx context.Context, id uuid.UUID, stage string) error {
	return r.update(ctx, id, func(b *entsql.UpdateBuilder) {
		b.Set("status", string(constants.TaskStatusStarted)).
			Set("stage", stage)
	})
}

func (r *taskRepository) SetProgress(ctx context.Context, id uuid.UUID, processed, total, percent int) error {
	return r.update(ctx, id, func(b *entsql.UpdateBuilder) {
		b.Set("status", string(constants.TaskStatusProgress)).
			Set("processed", processed).
			Set("total", total).
			Set("percent", percent)
	})
}

func (r *taskRepository) FinishSuccess(ctx context.Context, id uuid.UUID, result json.RawMessage) error {
	return r.update(ctx, id, func(b *entsql.UpdateBuilder) {
		// bound as text so the Postgres jsonb column coerces it
		b.Set("status", string(constants.TaskStatusSuccess)).
			Set("result", string(result)).
			Set("finished_at", time.Now().UTC())
	})
}

func (r *taskRepository) FinishFailure(ctx context.Context, id uuid.UUID, message string) error {
	return r.update(ctx, id, func(b *entsql.UpdateBuilder) {
		b.Set("status", string(constants.TaskStatusFailure)).
			Set("error_message", message).
			Set("finished_at", time.Now().UTC())
	})
}

// update applies the mutation plus an updated_at bump and reports
// common.ErrNotFound for unknown task ids.
func (r *taskRepository) update(ctx context.Context, id uuid.UUID, mutate func(*entsql.UpdateBuilder)) error {
	b := entsql.Dialect(r.drv.Dialect()).
		Update(TasksTable).
		Set("updated_at", time.Now().UTC())
	mutate(b)
	query, args := b.Where(entsql.EQ("id", id.String())).Query()

	var res sql.Result
	if err := r.drv.Exec(ctx, query, args, &res); err != nil {
		r.logger.Error("failed to update task", "task_id", id, "error", err)
		return fmt.Errorf("update task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("task %s: %w", id, common.ErrNotFound)
	}
	return nil
}

func (r *taskRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.IngestTask, error) {
	query, args := entsql.Dialect(r.drv.Dialect()).
		Select(taskColumns...).
		From(entsql.Table(TasksTable)).
		Where(entsql.EQ("id", id.String())).
		Query()

	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("get task: %w", err)
		}
		return nil, fmt.Errorf("task %s: %w", id, common.ErrNotFound)
	}
	return scanTask(rows)
}

func (r *taskRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int, error) {
	query, args := entsql.Dialect(r.drv.Dialect()).
		Delete(TasksTable).
		Where(entsql.And(
			entsql.In("status", string(constants.TaskStatusSuccess), string(constants.TaskStatusFailure)),
			entsql.LT("updated_at", cutoff),
		)).
		Query()

	var res sql.Result
	if err := r.drv.Exec(ctx, query, args, &res); err != nil {
		r.logger.Error("failed to delete expired tasks", "error", err)
		return 0, fmt.Errorf("delete expired tasks: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired tasks: %w", err)
	}
	if affected > 0 {
		r.logger.Info("expired tasks deleted", "count", affected, "cutoff", cutoff)
	}
	return int(affected), nil
}

func scanTask(rows *entsql.Rows) (*entity.IngestTask, error) {
	var (
		task       entity.IngestTask
		rawID      string
		status     string
		stage      sql.NullString
		errMsg     sql.NullString
		result     []byte
		finishedAt sql.NullTime
	)
	if err := rows.Scan(
		&rawID, &task.FileID, &status, &stage,
		&task.Processed, &task.Total, &task.Percent,
		&errMsg, &result, &task.CreatedAt, &task.UpdatedAt, &finishedAt,
	); err != nil {
		return nil, fmt.Errorf("scan task: %w", err)
	}

	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("scan task id: %w", err)
	}
	task.ID = id
	task.Status = constants.TaskStatus(status)
	if stage.Valid {
		task.Stage = &stage.String
	}
	if errMsg.Valid {
		task.ErrorMessage = &errMsg.String
	}
	if len(result) > 0 {
		task.Result = json.RawMessage(result)
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		task.FinishedAt = &t
	}
	return &task, nil
}
