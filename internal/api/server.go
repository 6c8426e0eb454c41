// internal/api/server.go
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/prismfin/prism/internal/history"
	"github.com/prismfin/prism/internal/insight"
	"github.com/prismfin/prism/internal/metrics"
	"github.com/prismfin/prism/internal/optimizer"
	"github.com/prismfin/prism/internal/session"
	"github.com/prismfin/prism/internal/storage/artifact"

	"github.com/prismfin/prism/internal/core"
)

// Optimizer is the upstream optimization service surface the server needs.
type Optimizer interface {
	Optimize(ctx context.Context, req optimizer.Request) (*core.OptimizationResult, error)
	Coins(ctx context.Context) ([]string, error)
	CheckDataQuality(ctx context.Context, symbols []string, lookbackDays int) (*optimizer.DataQuality, error)
}

// Config holds server configuration
type Config struct {
	Host        string
	Port        int
	MetricsPath string
}

// Dependencies wires the server's collaborators. Session and Optimizer
// are required; the rest are optional.
type Dependencies struct {
	Session   *session.Session
	Optimizer Optimizer
	Insight   *insight.Service
	History   *history.Store
	Archiver  *artifact.Archiver
	Metrics   *metrics.Registry
}

// Server represents the HTTP server for prism
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux

	session   *session.Session
	optimizer Optimizer
	insights  *insight.Service
	store     *history.Store
	archiver  *artifact.Archiver
	reg       *metrics.Registry
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()

	s := &Server{
		logger:    logger,
		mux:       mux,
		session:   deps.Session,
		optimizer: deps.Optimizer,
		insights:  deps.Insight,
		store:     deps.History,
		archiver:  deps.Archiver,
		reg:       deps.Metrics,
	}

	s.setupRoutes(cfg.MetricsPath)

	var handler http.Handler = mux
	if s.reg != nil {
		handler = metrics.HTTPMiddleware(s.reg)(mux)
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(metricsPath string) {
	s.mux.HandleFunc("POST /api/optimize", s.handleOptimize)
	s.mux.HandleFunc("GET /api/portfolio", s.handlePortfolio)
	s.mux.HandleFunc("GET /charts/{slot}", s.handleChart)
	s.mux.HandleFunc("POST /api/tabs/{tab}/activate", s.handleTabActivate)
	s.mux.HandleFunc("POST /api/performance/rolling", s.handleRollingToggle)
	s.mux.HandleFunc("GET /api/export.csv", s.handleExport)
	s.mux.HandleFunc("GET /api/insight", s.handleInsight)
	s.mux.HandleFunc("GET /api/history", s.handleHistory)
	s.mux.HandleFunc("GET /api/coins", s.handleCoins)
	s.mux.HandleFunc("POST /api/data-quality", s.handleDataQuality)
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	if s.reg != nil && metricsPath != "" {
		s.mux.Handle("GET "+metricsPath, promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))
	}
}

// Handler exposes the full handler chain, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
