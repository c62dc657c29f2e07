// Package server exposes the enrichment pipeline over HTTP: job submission,
// job retrieval, a progressive SSE stream, exports, feedback, and ontology
// lookups.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lexigraph/lexigraph/pkg/config"
	"github.com/lexigraph/lexigraph/pkg/export"
	"github.com/lexigraph/lexigraph/pkg/folio"
	"github.com/lexigraph/lexigraph/pkg/logger"
	"github.com/lexigraph/lexigraph/pkg/pipeline"
	"github.com/lexigraph/lexigraph/pkg/store"
)

// Server ties the HTTP surface to the pipeline and stores.
type Server struct {
	cfg          config.ServerConfig
	pollInterval time.Duration

	jobs         *store.JobStore
	feedback     *store.FeedbackStore
	onto         *folio.Ontology
	orchestrator *pipeline.Orchestrator
	exporters    *export.Registry
	limiter      *clientLimiter

	httpServer *http.Server
}

// New assembles a server over pre-built collaborators.
func New(cfg *config.Config, jobs *store.JobStore, feedback *store.FeedbackStore,
	onto *folio.Ontology, orchestrator *pipeline.Orchestrator) *Server {
	return &Server{
		cfg:          cfg.Server,
		pollInterval: cfg.Pipeline.EventPollInterval,
		jobs:         jobs,
		feedback:     feedback,
		onto:         onto,
		orchestrator: orchestrator,
		exporters:    export.NewRegistry(),
		limiter:      newClientLimiter(cfg.Server.RateLimitPerSecond, cfg.Server.RateLimitBurst),
	}
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.limiter.middleware)

	r.Get("/health", s.handleHealth)
	r.Get("/health/detail", s.handleHealthDetail)

	r.Route("/enrich", func(r chi.Router) {
		r.Post("/", s.handleCreateJob)
		r.Get("/", s.handleListJobs)
		r.Get("/{jobID}", s.handleGetJob)
		r.Delete("/{jobID}", s.handleDeleteJob)
		r.Get("/{jobID}/stream", s.handleStream)
		r.Get("/{jobID}/export", s.handleExport)
	})

	r.Route("/feedback", func(r chi.Router) {
		r.Post("/", s.handleSubmitFeedback)
		r.Get("/insights", s.handleInsights)
		r.Get("/insights/{jobID}", s.handleInsights)
		r.Delete("/{feedbackID}", s.handleDeleteFeedback)
	})

	r.Route("/concepts", func(r chi.Router) {
		r.Get("/search", s.handleConceptSearch)
		r.Get("/{iriHash}", s.handleConceptDetail)
	})

	return r
}

// ListenAndServe runs the server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.GetLogger().Info("http server listening", "addr", addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// writeJSON serializes a response body; failures at this point can only be
// logged.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.GetLogger().Warn("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
