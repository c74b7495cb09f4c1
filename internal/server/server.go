// Package server is the ingraph HTTP facade: a thin REST layer over GraphDB
// for uploads, SPARQL queries and repository management.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/intendproject/ingraph/internal/api"
	"github.com/intendproject/ingraph/internal/logging"
	"github.com/intendproject/ingraph/internal/orchestrator"
	"github.com/intendproject/ingraph/pkg/graphstore"
	"github.com/intendproject/ingraph/pkg/jsonld"
)

// Backend is the GraphDB surface the facade forwards to.
// *graphstore.Client satisfies it.
type Backend interface {
	orchestrator.Store
	ActiveRepositories(ctx context.Context) ([]graphstore.Repository, error)
	PostStatements(ctx context.Context, repoID, contentType string, body []byte) error
	Query(ctx context.Context, repoID, query string, format graphstore.Format) (*graphstore.RawResponse, error)
	Update(ctx context.Context, repoID, update string) error
	Size(ctx context.Context, repoID string) (int64, error)
	RepositoryInfo(ctx context.Context, repoID string) (*graphstore.RepositoryInfo, error)
}

// Options configures the facade.
type Options struct {
	Addr              string
	DefaultRepository string
	MaxUploadBytes    int64
	HealthTimeout     time.Duration
	PublicURL         string // used in /examples
}

func (o *Options) applyDefaults() {
	if o.Addr == "" {
		o.Addr = "0.0.0.0:5000"
	}
	if o.DefaultRepository == "" {
		o.DefaultRepository = "second-graph"
	}
	if o.MaxUploadBytes <= 0 {
		o.MaxUploadBytes = 16 << 20
	}
	if o.HealthTimeout <= 0 {
		o.HealthTimeout = 5 * time.Second
	}
	if o.PublicURL == "" {
		o.PublicURL = "http://" + o.Addr
	}
}

// Server wires routes, middleware and the orchestrator together.
type Server struct {
	backend    Backend
	orch       *orchestrator.Orchestrator
	normalizer *jsonld.Normalizer
	logger     logging.Logger
	metrics    *Metrics
	opts       Options
	router     *mux.Router
}

// New builds a facade over backend. Events from normalized uploads go to
// reporter (may be nil).
func New(backend Backend, normalizer *jsonld.Normalizer, reporter orchestrator.Reporter, logger logging.Logger, opts Options) *Server {
	opts.applyDefaults()
	if normalizer == nil {
		normalizer = jsonld.NewNormalizer(nil)
	}
	if logger == nil {
		logger = logging.Discard()
	}

	s := &Server{
		backend:    backend,
		normalizer: normalizer,
		logger:     logger,
		metrics:    NewMetrics(),
		opts:       opts,
		router:     mux.NewRouter(),
	}
	s.orch = orchestrator.New(backend, orchestrator.Options{
		HealthTimeout: opts.HealthTimeout,
		Reporter:      orchestrator.MultiReporter(orchestrator.LogReporter(logger), reporter),
	})
	s.setupRoutes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Metrics returns the facade metrics.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

func (s *Server) setupRoutes() {
	s.router.Use(s.recoveryMiddleware)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.metrics.middleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/repositories", s.handleListRepositories).Methods(http.MethodGet)
	s.router.HandleFunc("/repositories/active", s.handleActiveRepositories).Methods(http.MethodGet)
	s.router.HandleFunc("/repository/{name}/size", s.handleSize).Methods(http.MethodGet)
	s.router.HandleFunc("/repository/{name}/clear", s.handleClear).Methods(http.MethodDelete)
	s.router.HandleFunc("/repository/{name}/info", s.handleInfo).Methods(http.MethodGet)
	s.router.HandleFunc("/examples", s.handleExamples).Methods(http.MethodGet)
	s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	// Routes accepting bodies are size limited
	limited := s.router.NewRoute().Subrouter()
	limited.Use(s.limitMiddleware)
	limited.HandleFunc("/repositories/create", s.handleCreateRepository).Methods(http.MethodPost)
	limited.HandleFunc("/upload", s.handleUpload).Methods(http.MethodPost)
	limited.HandleFunc("/query", s.handleQuery).Methods(http.MethodPost)
	limited.HandleFunc("/update", s.handleUpdate).Methods(http.MethodPost)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeErrorResponse(w, http.StatusNotFound, api.KindNotFound, "Endpoint not found")
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeErrorResponse(w, http.StatusMethodNotAllowed, api.KindValidation, "Method not allowed")
	})
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("ingraph-server listening", "addr", s.opts.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}
