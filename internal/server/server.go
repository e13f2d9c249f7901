// Package server exposes the design pipeline over HTTP: a design endpoint,
// the facility listing, cache statistics and Prometheus metrics. The
// surface is deliberately thin; everything interesting happens in the
// pipeline.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ELBIXishere/aidd/internal/config"
	"github.com/ELBIXishere/aidd/internal/pipeline"
	"github.com/ELBIXishere/aidd/internal/wfs"
)

var designRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "aidd",
	Subsystem: "server",
	Name:      "design_requests_total",
	Help:      "Design requests by outcome status.",
}, []string{"status"})

// CacheReporter exposes the tile-cache counters for the stats endpoint.
type CacheReporter interface {
	CacheStats() wfs.Stats
}

// Server handles the HTTP surface.
type Server struct {
	cfg      *config.Config
	engine   *pipeline.Engine
	cache    CacheReporter
	validate *validator.Validate
	logger   *slog.Logger
}

// New creates a server around an engine. cache may be nil when no cache
// stats are available (tests).
func New(cfg *config.Config, engine *pipeline.Engine, cache CacheReporter) *Server {
	return &Server{
		cfg:      cfg,
		engine:   engine,
		cache:    cache,
		validate: validator.New(),
		logger:   slog.Default(),
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/design", s.handleDesign)
	mux.HandleFunc("GET /api/facilities", s.handleFacilities)
	mux.HandleFunc("GET /api/cache/stats", s.handleCacheStats)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	return s.logRequests(mux)
}

// ListenAndServe runs the server until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", s.cfg.ListenAddr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "elapsed", time.Since(start))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	if s.cache == nil {
		writeJSON(w, http.StatusOK, wfs.Stats{})
		return
	}
	writeJSON(w, http.StatusOK, s.cache.CacheStats())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, reason string) {
	writeJSON(w, code, map[string]string{"status": "failed", "reason": reason})
}
