package async

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/jobs-ingest/internal/ingest"
	"github.com/joseph-ayodele/jobs-ingest/internal/repository"
)

// Spooler turns files dropped into a watched directory into ingestion tasks.
// Each file is moved under the upload root with a generated file id, recorded
// as a queued task and handed to the worker queue with the configured column
// mapping.
type Spooler struct {
	uploadDir string
	columnMap map[string]string
	tasks     repository.TaskRepository
	queue     Queue
	logger    *slog.Logger
}

func NewSpooler(uploadDir string, columnMap map[string]string, tasks repository.TaskRepository, queue Queue, logger *slog.Logger) *Spooler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Spooler{
		uploadDir: uploadDir,
		columnMap: columnMap,
		tasks:     tasks,
		queue:     queue,
		logger:    logger,
	}
}

// Run consumes watcher events until ctx is cancelled or both channels close.
func (s *Spooler) Run(ctx context.Context, paths <-chan string, errs <-chan error) {
	for paths != nil || errs != nil {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-paths:
			if !ok {
				paths = nil
				continue
			}
			s.spool(ctx, p)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.logger.Warn("watcher reported error", "error", err)
		}
	}
}

func (s *Spooler) spool(ctx context.Context, path string) {
	fileID := uuid.New().String() + "_" + ingest.SanitizeFilename(filepath.Base(path))
	if err := moveFile(path, filepath.Join(s.uploadDir, fileID)); err != nil {
		s.logger.Error("spool move failed", "path", path, "error", err)
		return
	}

	task, err := s.tasks.Create(ctx, fileID)
	if err != nil {
		s.logger.Error("spool task create failed", "file_id", fileID, "error", err)
		return
	}
	if err := s.queue.Enqueue(ctx, Task{
		ID:          task.ID,
		FileID:      fileID,
		ColumnMap:   s.columnMap,
		SubmittedAt: time.Now().UTC(),
	}); err != nil {
		s.logger.Error("spool enqueue failed", "task_id", task.ID, "error", err)
		return
	}
	s.logger.Info("file spooled", "path", path, "file_id", fileID, "task_id", task.ID)
}

// moveFile renames src into place, falling back to copy+remove when the
// watch and upload directories sit on different filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
