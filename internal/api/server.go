// Package api exposes the dashboard HTTP interface over the store and
// the pipeline.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/scholarhunt/scholarhunt/internal/metrics"
	"github.com/scholarhunt/scholarhunt/internal/pipeline"
	"github.com/scholarhunt/scholarhunt/internal/store"
)

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context, query string, maxResults int) (pipeline.Summary, error)
}

// Reader loads all stored records.
type Reader interface {
	ReadAll(ctx context.Context) ([]store.Record, error)
}

// Config carries only the server-facing configuration fields.
type Config struct {
	CacheTTL          time.Duration
	AuthEnabled       bool
	APIKey            string
	DefaultQuery      string
	DefaultMaxResults int
	// Credentials maps credential names to presence, for the config
	// status view. Values are never exposed.
	Credentials map[string]bool
}

// Server wires HTTP handlers to the store reader and the pipeline.
type Server struct {
	router chi.Router
	runner Runner
	cache  *recordCache
	cfg    Config
	logger *zap.Logger

	// runMu serializes triggered runs; the store assumes a single
	// sequential writer.
	runMu sync.Mutex
}

// NewServer constructs a Server with middleware and routes.
func NewServer(runner Runner, reader Reader, cfg Config, logger *zap.Logger) *Server {
	s := &Server{
		runner: runner,
		cache:  newRecordCache(reader, cfg.CacheTTL, logger),
		cfg:    cfg,
		logger: logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(120 * time.Second))
	if cfg.AuthEnabled {
		r.Use(apiKeyMiddleware(cfg.APIKey))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/scholarships", s.listScholarships)
		r.Get("/stats", s.getStats)
		r.Get("/config", s.getConfigStatus)
		r.Post("/runs", s.triggerRun)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
