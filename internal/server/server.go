// Package server exposes the read-only HTTP and websocket API over the
// monitor engine.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/launchrlabs/launchwatch/internal/domain"
	"github.com/launchrlabs/launchwatch/internal/server/handler"
	"github.com/launchrlabs/launchwatch/internal/server/middleware"
	"github.com/launchrlabs/launchwatch/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
	RateLimit   int    // requests per window per client; 0 disables
	RateWindow  time.Duration
}

// Handlers aggregates the HTTP handlers the server registers.
type Handlers struct {
	Health   *handler.HealthHandler
	Status   *handler.StatusHandler
	Alerts   *handler.AlertHandler
	Launches *handler.LaunchHandler
	Stats    *handler.StatsHandler
}

// Server is the HTTP + websocket API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered and the middleware
// chain (CORS, logging, rate limiting, auth) wired up. limiter and
// metricsHandler may be nil, disabling rate limiting and the /metrics
// endpoint respectively.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, metricsHandler http.Handler, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)
	mux.HandleFunc("GET /api/status", handlers.Status.GetStatus)

	mux.HandleFunc("GET /api/alerts", handlers.Alerts.ListAlerts)

	mux.HandleFunc("GET /api/launches", handlers.Launches.ListLaunches)
	mux.HandleFunc("GET /api/launches/{id}/summary", handlers.Launches.GetSummary)
	mux.HandleFunc("GET /api/launches/{id}/volume", handlers.Launches.GetVolumeHistory)

	mux.HandleFunc("GET /api/stats", handlers.Stats.GetStats)

	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}

	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Middleware chain, innermost first. Health, metrics, and the websocket
	// upgrade stay reachable without credentials.
	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey, "/api/health", "/metrics", "/ws")(h)
	if limiter != nil && cfg.RateLimit > 0 {
		h = middleware.RateLimit(limiter, cfg.RateLimit, cfg.RateWindow)(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger.With(slog.String("component", "server")),
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
