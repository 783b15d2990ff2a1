package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/jobs-ingest/internal/async"
	"github.com/joseph-ayodele/jobs-ingest/internal/common"
	"github.com/joseph-ayodele/jobs-ingest/internal/ingest"
)

// handleUploadFile stores a multipart upload under a server-generated file id.
// Unsupported file types are not rejected here; the ingestion task reports
// them so the client gets a structured result either way.
func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Server.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		s.writeError(w, http.StatusBadRequest, "file too large or invalid form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	fileID := uuid.New().String() + "_" + ingest.SanitizeFilename(header.Filename)
	dst, err := os.Create(filepath.Join(s.cfg.Ingest.UploadDir, fileID))
	if err != nil {
		s.logger.Error("upload store failed", "file_id", fileID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to store file")
		return
	}
	defer dst.Close()

	written, err := io.Copy(dst, file)
	if err != nil {
		s.logger.Error("upload store failed", "file_id", fileID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to store file")
		return
	}

	s.logger.Info("upload stored", "file_id", fileID, "bytes", written)
	s.writeJSON(w, http.StatusOK, map[string]string{"file_id": fileID})
}

type processRequest struct {
	FileID    string            `json:"file_id"`
	ColumnMap map[string]string `json:"column_map"`
}

// handleProcessFile validates the request, records a queued task and hands it
// to the worker queue. The response carries only the task id; progress and
// the final result are read from the task endpoint.
func (s *Server) handleProcessFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	if err := validateJSONAgainstSchema(processRequestSchema, body); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req processRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	task, err := s.tasks.Create(r.Context(), req.FileID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to create task")
		return
	}

	if err := s.queue.Enqueue(r.Context(), async.Task{
		ID:          task.ID,
		FileID:      req.FileID,
		ColumnMap:   req.ColumnMap,
		SubmittedAt: time.Now().UTC(),
		TraceID:     middleware.GetReqID(r.Context()),
	}); err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to enqueue task")
		return
	}

	s.writeJSON(w, http.StatusAccepted, map[string]string{"task_id": task.ID.String()})
}

type taskResponse struct {
	TaskID    string          `json:"task_id"`
	Status    string          `json:"status"`
	Stage     *string         `json:"stage,omitempty"`
	Processed int             `json:"processed"`
	Total     int             `json:"total"`
	Percent   int             `json:"percent"`
	Error     *string         `json:"error,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Done      bool            `json:"done"`
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "taskID"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "task_id must be a UUID")
		return
	}

	task, err := s.tasks.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "task not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "failed to fetch task")
		return
	}

	s.writeJSON(w, http.StatusOK, taskResponse{
		TaskID:    task.ID.String(),
		Status:    string(task.Status),
		Stage:     task.Stage,
		Processed: task.Processed,
		Total:     task.Total,
		Percent:   task.Percent,
		Error:     task.ErrorMessage,
		Result:    task.Result,
		Done:      task.Status.Terminal(),
	})
}
