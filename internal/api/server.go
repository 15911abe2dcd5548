package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"stockwatch/internal/api/health"
	"stockwatch/internal/metrics"
	"stockwatch/pkg/errors"
	"stockwatch/pkg/logger"
)

// ServerConfig contains configuration for the ops HTTP server
type ServerConfig struct {
	Port        int
	ServiceName string
	Version     string
}

// Server exposes health probes and Prometheus metrics. It is not a user-facing API.
type Server struct {
	httpServer *http.Server
	log        *logger.Logger
}

// NewServer wires /health, /ready, /live and /metrics
func NewServer(cfg ServerConfig, healthHandler *health.Handler) *Server {
	log := logger.Get().With("component", "http_server")
	mux := http.NewServeMux()

	mux.HandleFunc("/health", healthHandler.HandleHealth)
	mux.HandleFunc("/ready", healthHandler.HandleReadiness)
	mux.HandleFunc("/live", healthHandler.HandleLiveness)
	mux.Handle("/metrics", metrics.Handler())

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"service": cfg.ServiceName,
			"version": cfg.Version,
			"status":  "running",
		})
	})

	port := 8080
	if cfg.Port > 0 {
		port = cfg.Port
	}

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		log: log,
	}
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start blocks until the server is shut down
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return errors.Wrap(err, "listen")
	}
	return s.Serve(ln)
}

// Serve accepts on ln until Shutdown
func (s *Server) Serve(ln net.Listener) error {
	s.log.Infow("Starting HTTP server", "addr", ln.Addr().String())

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "http server failed")
	}
	return nil
}

// Shutdown waits for active connections within ctx
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "http server shutdown failed")
	}
	s.log.Infow("HTTP server stopped")
	return nil
}
