package server

import (
	"net/http"
	"strconv"
	"time"
)

// handleListJobs returns stored job rows as JSON. The limit query parameter
// defaults to 100; zero means everything.
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r, 100)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}

	jobs, err := s.jobs.ListJobs(r.Context(), limit)
	if err != nil {
		s.logger.Error("list jobs failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// handleExportJobs streams the stored rows as an XLSX attachment.
func (s *Server) handleExportJobs(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r, 0)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}

	out, err := s.exporter.JobsXLSX(r.Context(), limit)
	if err != nil {
		s.logger.Error("export.xlsx.failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	filename := "jobs_" + time.Now().UTC().Format("20060102_150405") + ".xlsx"
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(out)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

func limitParam(r *http.Request, def int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, strconv.ErrSyntax
	}
	return limit, nil
}
