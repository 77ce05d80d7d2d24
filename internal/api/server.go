// Package api exposes the RCA engine over HTTP: analysis requests, index
// refresh, corpus stats, health, and Prometheus metrics.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Chandanbam/openstack-rca-system/internal/corpus"
	"github.com/Chandanbam/openstack-rca-system/internal/logging"
	"github.com/Chandanbam/openstack-rca-system/internal/models"
)

// Analyzer is the engine capability the API depends on. Satisfied by
// *analysis.Engine.
type Analyzer interface {
	Analyze(ctx context.Context, query string, c *corpus.Corpus, mode models.AnalysisMode) (*models.RCAReport, error)
	RefreshIndex(ctx context.Context, c *corpus.Corpus) error
}

// CorpusSource provides the corpus under analysis. Satisfied by
// *corpus.Store.
type CorpusSource interface {
	// Snapshot returns the current corpus, nil when nothing is loaded
	Snapshot() *corpus.Corpus

	// Reload re-reads the log source and swaps in the fresh corpus
	Reload(ctx context.Context) (*corpus.Corpus, error)
}

// Options configures the API server.
type Options struct {
	// Port is the HTTP listen port
	Port int

	// DefaultWindowMinutes sizes a requested window with missing bounds
	DefaultWindowMinutes int

	// MaxConcurrentRequests bounds simultaneous analyze requests
	MaxConcurrentRequests int

	// Gatherer backs the /metrics endpoint; nil disables it
	Gatherer prometheus.Gatherer
}

// Server handles HTTP API requests.
type Server struct {
	port          int
	server        *http.Server
	router        *http.ServeMux
	logger        *logging.Logger
	engine        Analyzer
	source        CorpusSource
	gatherer      prometheus.Gatherer
	windowMinutes int
	slots         chan struct{}
}

// NewServer creates an API server around the engine and corpus source.
func NewServer(engine Analyzer, source CorpusSource, opts Options) *Server {
	if opts.Port <= 0 {
		opts.Port = 8080
	}
	if opts.DefaultWindowMinutes <= 0 {
		opts.DefaultWindowMinutes = 30
	}
	if opts.MaxConcurrentRequests <= 0 {
		opts.MaxConcurrentRequests = 16
	}

	s := &Server{
		port:          opts.Port,
		router:        http.NewServeMux(),
		logger:        logging.GetLogger("api"),
		engine:        engine,
		source:        source,
		gatherer:      opts.Gatherer,
		windowMinutes: opts.DefaultWindowMinutes,
		slots:         make(chan struct{}, opts.MaxConcurrentRequests),
	}
	s.registerHandlers()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", opts.Port),
		Handler:      s.withRequestID(s.withRequestLog(s.withRecovery(s.router))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the fully wrapped handler chain, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start implements the lifecycle.Component interface. It begins listening in
// the background and returns immediately.
func (s *Server) Start(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.ErrorWithErr("http server error", err)
		}
	}()

	s.logger.InfoWithFields("api server listening", logging.Field("port", s.port))
	return nil
}

// Stop implements the lifecycle.Component interface with a graceful drain.
func (s *Server) Stop(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		done <- s.server.Shutdown(shutdownCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			s.logger.ErrorWithErr("http server shutdown error", err)
			return err
		}
		s.logger.Info("api server stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("api server shutdown timed out")
		return ctx.Err()
	}
}

// Name implements the lifecycle.Component interface.
func (s *Server) Name() string {
	return "API Server"
}

// GetPort returns the configured listen port.
func (s *Server) GetPort() int {
	return s.port
}

// registerHandlers wires every route. /metrics is only exposed when a
// gatherer was configured.
func (s *Server) registerHandlers() {
	s.router.HandleFunc("/api/v1/analyze", s.withMethod(http.MethodPost, s.handleAnalyze))
	s.router.HandleFunc("/api/v1/index/refresh", s.withMethod(http.MethodPost, s.handleRefresh))
	s.router.HandleFunc("/api/v1/corpus/stats", s.withMethod(http.MethodGet, s.handleStats))
	s.router.HandleFunc("/healthz", s.handleHealth)
	s.router.HandleFunc("/readyz", s.handleReady)
	if s.gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
}

// handleHealth reports process liveness.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = writeJSON(w, map[string]interface{}{"status": "healthy"})
}

// handleReady reports whether a corpus is loaded and requests can be served.
func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	ready := s.source.Snapshot() != nil

	w.Header().Set("Content-Type", "application/json")
	if ready {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = writeJSON(w, map[string]interface{}{"ready": ready})
}
