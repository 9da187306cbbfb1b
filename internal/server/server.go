// Package server exposes the market table over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/polyscreen/internal/server/handler"
	"github.com/alanyoungcy/polyscreen/internal/server/middleware"
)

// Config holds the HTTP server configuration.
type Config struct {
	Addr        string
	CORSOrigins []string
	// RefreshPerMinute caps manual refreshes per client. Zero disables the
	// limit.
	RefreshPerMinute float64
	WriteTimeout     time.Duration
}

// Handlers aggregates the HTTP handlers the server registers.
type Handlers struct {
	Health  *handler.HealthHandler
	Tables  *handler.TableHandler
	Markets *handler.MarketHandler
	Views   *handler.ViewHandler
	// Metrics serves the Prometheus exposition. Optional.
	Metrics http.Handler
}

// Server is the HTTP API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered on a ServeMux and
// wrapped in logging and CORS middleware. obs may be nil.
func NewServer(cfg Config, h Handlers, obs middleware.HTTPObserver, logger *slog.Logger) *Server {
	logger = logger.With(slog.String("component", "server"))
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", h.Health.HealthCheck)
	mux.HandleFunc("GET /api/status", h.Tables.GetStatus)
	mux.HandleFunc("GET /api/snapshot.csv", h.Tables.SnapshotCSV)

	var limiter *middleware.ClientLimiter
	if cfg.RefreshPerMinute > 0 {
		limiter = middleware.NewClientLimiter(cfg.RefreshPerMinute, 1)
	}
	mux.Handle("POST /api/refresh", middleware.RateLimit(limiter)(http.HandlerFunc(h.Tables.Refresh)))

	mux.HandleFunc("GET /api/markets", h.Markets.ListMarkets)
	mux.HandleFunc("GET /api/markets/{id}", h.Markets.GetMarket)

	mux.HandleFunc("GET /api/overview", h.Views.Overview)
	mux.HandleFunc("GET /api/domains", h.Views.Domains)
	mux.HandleFunc("GET /api/domains/{domain}", h.Views.DomainMarkets)
	mux.HandleFunc("GET /api/screener", h.Views.Screener)

	if h.Metrics != nil {
		mux.Handle("GET /metrics", h.Metrics)
	}

	var root http.Handler = mux
	root = middleware.Logging(logger, obs)(root)
	root = middleware.CORS(cfg.CORSOrigins)(root)

	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		// A manual refresh holds the response open for the whole fetch.
		writeTimeout = 6 * time.Minute
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           root,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       60 * time.Second,
		},
		logger: logger,
	}
}

// Handler returns the root handler, middleware included.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
