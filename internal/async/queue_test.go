package async

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/jobs-ingest/constants"
	"github.com/joseph-ayodele/jobs-ingest/internal/ingest"
	"github.com/joseph-ayodele/jobs-ingest/internal/repository"
)

type queueFixture struct {
	drv     *entsql.Driver
	jobs    repository.JobRepository
	tasks   repository.TaskRepository
	dir     string
	queue   *RunnerQueue
	timeout time.Duration
}

func newQueueFixture(t *testing.T, opts ...Option) *queueFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	drv, err := repository.OpenLite(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = drv.Close() })
	require.NoError(t, repository.EnsureSchema(context.Background(), drv))

	f := &queueFixture{
		drv:     drv,
		jobs:    repository.NewJobRepository(drv, logger),
		tasks:   repository.NewTaskRepository(drv, logger),
		dir:     t.TempDir(),
		timeout: 5 * time.Second,
	}
	runner := ingest.NewRunner(f.dir, 2, f.jobs, logger)
	f.queue = NewRunnerQueue(runner, f.tasks, logger, append([]Option{WithWorkers(1), WithQueueSize(8)}, opts...)...)
	t.Cleanup(func() { f.queue.Shutdown(context.Background()) })
	return f
}

func (f *queueFixture) writeUpload(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, name), []byte(content), 0o644))
}

func (f *queueFixture) waitTerminal(t *testing.T, id uuid.UUID) *taskSnapshot {
	t.Helper()
	var snap *taskSnapshot
	require.Eventually(t, func() bool {
		got, err := f.tasks.GetByID(context.Background(), id)
		if err != nil || !got.Status.Terminal() {
			return false
		}
		snap = &taskSnapshot{
			status:  got.Status,
			percent: got.Percent,
			errMsg:  got.ErrorMessage,
			result:  got.Result,
		}
		return true
	}, f.timeout, 20*time.Millisecond)
	return snap
}

type taskSnapshot struct {
	status  constants.TaskStatus
	percent int
	errMsg  *string
	result  json.RawMessage
}

func TestRunnerQueue_ProcessesTaskToSuccess(t *testing.T) {
	f := newQueueFixture(t)
	f.writeUpload(t, "salaries.csv",
		"position,amount,curr\n"+
			"Backend Engineer,95000,EUR\n"+
			"Data Engineer,not-a-number,USD\n"+
			"SRE,120000,\n")

	task, err := f.tasks.Create(context.Background(), "salaries.csv")
	require.NoError(t, err)
	require.NoError(t, f.queue.Enqueue(context.Background(), Task{
		ID:     task.ID,
		FileID: "salaries.csv",
		ColumnMap: map[string]string{
			"title":    "position",
			"salary":   "amount",
			"currency": "curr",
		},
		SubmittedAt: time.Now(),
		TraceID:     "trace-1",
	}))

	snap := f.waitTerminal(t, task.ID)
	assert.Equal(t, constants.TaskStatusSuccess, snap.status)
	assert.Equal(t, 100, snap.percent)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(snap.result, &payload))
	assert.Equal(t, "salaries.csv", payload["file_id"])
	assert.EqualValues(t, 2, payload["inserted"])
	assert.EqualValues(t, 2, payload["total"])
	sample, ok := payload["sample"].([]any)
	require.True(t, ok)
	assert.Len(t, sample, 2)

	count, err := f.jobs.CountJobs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRunnerQueue_MissingFileRecordsRecoverableResult(t *testing.T) {
	f := newQueueFixture(t)

	task, err := f.tasks.Create(context.Background(), "nowhere.csv")
	require.NoError(t, err)
	require.NoError(t, f.queue.Enqueue(context.Background(), Task{ID: task.ID, FileID: "nowhere.csv", ColumnMap: map[string]string{"title": "a"}}))

	snap := f.waitTerminal(t, task.ID)
	assert.Equal(t, constants.TaskStatusSuccess, snap.status)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(snap.result, &payload))
	assert.Equal(t, "file not found", payload["error"])
	assert.NotContains(t, payload, "inserted")

	count, err := f.jobs.CountJobs(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRunnerQueue_InvalidMappingListsColumns(t *testing.T) {
	f := newQueueFixture(t)
	f.writeUpload(t, "cols.csv", "alpha,beta\n1,2\n")

	task, err := f.tasks.Create(context.Background(), "cols.csv")
	require.NoError(t, err)
	require.NoError(t, f.queue.Enqueue(context.Background(), Task{ID: task.ID, FileID: "cols.csv", ColumnMap: map[string]string{"title": "does_not_exist"}}))

	snap := f.waitTerminal(t, task.ID)
	assert.Equal(t, constants.TaskStatusSuccess, snap.status)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(snap.result, &payload))
	assert.Equal(t, "invalid mapping", payload["error"])
	assert.ElementsMatch(t, []any{"alpha", "beta"}, payload["columns"])
}

func TestRunnerQueue_ZeroSurvivingRowsRecordsNote(t *testing.T) {
	f := newQueueFixture(t)
	f.writeUpload(t, "bad.csv", "t,s\nEng,xpto\nOps,n/a\n")

	task, err := f.tasks.Create(context.Background(), "bad.csv")
	require.NoError(t, err)
	require.NoError(t, f.queue.Enqueue(context.Background(), Task{ID: task.ID, FileID: "bad.csv", ColumnMap: map[string]string{"title": "t", "salary": "s"}}))

	snap := f.waitTerminal(t, task.ID)
	assert.Equal(t, constants.TaskStatusSuccess, snap.status)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(snap.result, &payload))
	assert.EqualValues(t, 0, payload["inserted"])
	assert.Equal(t, "no valid rows after normalization", payload["note"])

	count, err := f.jobs.CountJobs(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRunnerQueue_PersistenceFailureMarksTaskFailed(t *testing.T) {
	f := newQueueFixture(t)
	f.writeUpload(t, "rows.csv", "t,s\nEng,1000\nOps,2000\nSRE,3000\n")

	// Break the destination table so every chunk insert fails.
	require.NoError(t, f.drv.Exec(context.Background(), "ALTER TABLE jobs RENAME TO jobs_gone", []any{}, nil))

	task, err := f.tasks.Create(context.Background(), "rows.csv")
	require.NoError(t, err)
	require.NoError(t, f.queue.Enqueue(context.Background(), Task{ID: task.ID, FileID: "rows.csv", ColumnMap: map[string]string{"title": "t", "salary": "s"}}))

	snap := f.waitTerminal(t, task.ID)
	assert.Equal(t, constants.TaskStatusFailure, snap.status)
	require.NotNil(t, snap.errMsg)
	assert.Contains(t, *snap.errMsg, "persistence error")
	assert.Nil(t, snap.result)
}

func TestRunnerQueue_ShutdownDrainsPendingTasks(t *testing.T) {
	f := newQueueFixture(t)

	ids := make([]uuid.UUID, 0, 3)
	for _, name := range []string{"a.csv", "b.csv", "c.csv"} {
		f.writeUpload(t, name, "t,s\nEng,1000\n")
		task, err := f.tasks.Create(context.Background(), name)
		require.NoError(t, err)
		require.NoError(t, f.queue.Enqueue(context.Background(), Task{ID: task.ID, FileID: name, ColumnMap: map[string]string{"title": "t", "salary": "s"}}))
		ids = append(ids, task.ID)
	}

	f.queue.Shutdown(context.Background())

	for _, id := range ids {
		got, err := f.tasks.GetByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, constants.TaskStatusSuccess, got.Status)
	}

	count, err := f.jobs.CountJobs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestRunnerQueue_EnqueueAfterShutdownIsNoop(t *testing.T) {
	f := newQueueFixture(t)
	f.queue.Shutdown(context.Background())

	task, err := f.tasks.Create(context.Background(), "late.csv")
	require.NoError(t, err)
	require.NoError(t, f.queue.Enqueue(context.Background(), Task{ID: task.ID, FileID: "late.csv"}))

	got, err := f.tasks.GetByID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.TaskStatusQueued, got.Status)
}
