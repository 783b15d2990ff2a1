package server

import (
	"net/http"
	"time"

	"github.com/joseph-ayodele/jobs-ingest/internal/repository"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"message": s.cfg.App.Name + " backend is running",
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"app":   s.cfg.App.Name,
		"env":   s.cfg.App.Environment,
		"debug": s.cfg.App.Debug,
	})
}

// handleHealth reports application and database state. A failing database
// degrades the body but keeps the endpoint reachable.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{"application": "ok", "db": "ok"}
	if err := repository.HealthCheck(r.Context(), s.drv, 2*time.Second, s.logger); err != nil {
		body["db"] = "error: " + err.Error()
	}
	s.writeJSON(w, http.StatusOK, body)
}
