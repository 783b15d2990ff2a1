// Package server provides the HTTP surface for uploads, ingestion tasks and
// job queries.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/joseph-ayodele/jobs-ingest/internal/async"
	"github.com/joseph-ayodele/jobs-ingest/internal/common"
	"github.com/joseph-ayodele/jobs-ingest/internal/export"
	"github.com/joseph-ayodele/jobs-ingest/internal/repository"
)

// Deps bundles everything the HTTP layer talks to.
type Deps struct {
	Config   *common.Config
	Driver   *entsql.Driver
	Jobs     repository.JobRepository
	Tasks    repository.TaskRepository
	Queue    async.Queue
	Exporter *export.Service
	Logger   *slog.Logger
}

// Server is the HTTP server for the ingestion API.
type Server struct {
	cfg      *common.Config
	drv      *entsql.Driver
	jobs     repository.JobRepository
	tasks    repository.TaskRepository
	queue    async.Queue
	exporter *export.Service
	logger   *slog.Logger
	router   *chi.Mux
	server   *http.Server
}

// NewServer creates a new Server instance.
func NewServer(d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:      d.Config,
		drv:      d.Driver,
		jobs:     d.Jobs,
		tasks:    d.Tasks,
		queue:    d.Queue,
		exporter: d.Exporter,
		logger:   logger,
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleRoot)
	s.router.Get("/config", s.handleConfig)
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(api chi.Router) {
		api.Route("/jobs", func(r chi.Router) {
			r.Get("/", s.handleListJobs)
			r.Get("/export", s.handleExportJobs)
			r.Post("/upload", s.handleUploadFile)
			r.Post("/process", s.handleProcessFile)
		})
		api.Get("/tasks/{taskID}", s.handleGetTask)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("http server listening", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// writeJSON encodes v and writes it with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("json encode failed", "error", err)
	}
}

// writeError writes a JSON error body and logs it server-side.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.logger.Warn("request failed", "status", status, "error", message)
	s.writeJSON(w, status, map[string]string{"error": message})
}
