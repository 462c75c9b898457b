// Package health provides HTTP endpoints for liveness checks and
// Prometheus metrics. The server is optional; it only runs when a
// metrics port is configured.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Response is the /health payload.
type Response struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Backend string `json:"backend,omitempty"`
}

// Server provides /health and /metrics endpoints.
type Server struct {
	port    int
	version string
	backend string
	mux     *http.ServeMux
	server  *http.Server
	logger  *slog.Logger
}

// Option is a functional option for configuring the Server.
type Option func(*Server)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithVersion reports the build version in health responses.
func WithVersion(version string) Option {
	return func(s *Server) {
		s.version = version
	}
}

// WithBackend reports the active remote execution backend in health
// responses.
func WithBackend(name string) Option {
	return func(s *Server) {
		s.backend = name
	}
}

// New creates a health server on the specified port.
func New(port int, opts ...Option) *Server {
	s := &Server{
		port:   port,
		mux:    http.NewServeMux(),
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.Handle("/metrics", promhttp.Handler())

	return s
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(Response{
		Status:  "ok",
		Version: s.version,
		Backend: s.backend,
	})
}

// Handler returns the server's routing mux.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start binds the listen port and serves in a background goroutine.
// Bind failures are returned immediately.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("binding health server: %w", err)
	}

	s.server = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		s.logger.Info("health server starting", slog.Int("port", s.port))
		if err := s.server.Serve(ln); err != http.ErrServerClosed {
			s.logger.Error("health server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the health server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
