package async

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"log/slog"

	"github.com/joseph-ayodele/jobs-ingest/internal/common"
	"github.com/joseph-ayodele/jobs-ingest/internal/ingest"
	"github.com/joseph-ayodele/jobs-ingest/internal/repository"
)

type RunnerQueue struct {
	runner  *ingest.Runner
	tasks   repository.TaskRepository
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Task
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*RunnerQueue)

func WithWorkers(n int) Option {
	return func(q *RunnerQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *RunnerQueue) {
		if n > 0 {
			q.ch = make(chan Task, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *RunnerQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewRunnerQueue(runner *ingest.Runner, tasks repository.TaskRepository, logger *slog.Logger, opts ...Option) *RunnerQueue {
	q := &RunnerQueue{
		runner:  runner,
		tasks:   tasks,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan Task, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *RunnerQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)

				for task := range q.ch {
					q.handle(workerID, task)
				}

				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *RunnerQueue) handle(workerID int, task Task) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	if task.TraceID != "" {
		ctx = common.WithRequestID(ctx, task.TraceID)
	}

	reporter := ingest.NewStoreReporter(q.tasks, task.ID, q.logger)
	res, err := q.runner.Run(ctx, task.FileID, task.ColumnMap, reporter)

	// Outcome writes get their own context so a timed-out run can still be
	// recorded.
	finishCtx, finishCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer finishCancel()

	if err != nil {
		q.logger.Error("ingestion failed", "worker_id", workerID, "task_id", task.ID, "file_id", task.FileID, "error", err)
		if ferr := q.tasks.FinishFailure(finishCtx, task.ID, err.Error()); ferr != nil {
			q.logger.Error("failed to record task failure", "task_id", task.ID, "error", ferr)
		}
		return
	}

	payload, err := json.Marshal(res)
	if err != nil {
		q.logger.Error("failed to encode task result", "task_id", task.ID, "error", err)
		if ferr := q.tasks.FinishFailure(finishCtx, task.ID, "encode result: "+err.Error()); ferr != nil {
			q.logger.Error("failed to record task failure", "task_id", task.ID, "error", ferr)
		}
		return
	}
	if ferr := q.tasks.FinishSuccess(finishCtx, task.ID, payload); ferr != nil {
		q.logger.Error("failed to record task result", "task_id", task.ID, "error", ferr)
		return
	}
	q.logger.Info("task completed", "worker_id", workerID, "task_id", task.ID, "file_id", task.FileID, "inserted", res.Inserted)
}

func (q *RunnerQueue) Enqueue(_ context.Context, task Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "task_id", task.ID, "file_id", task.FileID)
		return nil
	}
	select {
	case q.ch <- task:
		q.logger.Info("queued file for ingestion", "task_id", task.ID, "file_id", task.FileID)
	default:
		q.logger.Warn("queue full, applying backpressure", "task_id", task.ID, "file_id", task.FileID)
		q.ch <- task
	}
	return nil
}

func (q *RunnerQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
