// Package server exposes training runs over HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sanonone/kektorsom/internal/server/ui"
	"github.com/sanonone/kektorsom/internal/trainer"
	"github.com/sanonone/kektorsom/pkg/config"
)

// Server holds the HTTP interface and the trainer it drives.
type Server struct {
	Trainer *trainer.Trainer

	httpServer *http.Server
	handler    http.Handler
	defaults   config.Config
	authToken  string
	logger     *slog.Logger
}

// NewServer builds the HTTP surface over tr. defaults is the base
// configuration new runs start from; its server section sets the listen
// address and the bearer token.
func NewServer(tr *trainer.Trainer, defaults config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		Trainer:   tr,
		defaults:  defaults,
		authToken: defaults.Server.AuthToken,
		logger:    logger,
	}

	mux := http.NewServeMux()
	s.registerHTTPHandlers(mux)

	// Recovery -> Logging -> Auth -> Mux. Recovery must be outer-most.
	var handler http.Handler = mux
	handler = s.authMiddleware(handler)
	handler = s.LoggingMiddleware(handler)
	handler = s.RecoveryMiddleware(handler)

	rootMux := http.NewServeMux()
	rootMux.HandleFunc("GET /healthz", s.handleHealthz)
	rootMux.Handle("GET /metrics", promhttp.Handler())
	// The viewer page is public; its API calls carry the token.
	rootMux.Handle("GET /ui/", http.StripPrefix("/ui", ui.GetHandler()))
	rootMux.Handle("/", handler)

	s.handler = rootMux
	s.httpServer = &http.Server{
		Addr:              defaults.Server.HTTPAddr,
		Handler:           rootMux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the root handler, including health and metrics routes.
func (s *Server) Handler() http.Handler { return s.handler }

// Run starts the HTTP server and blocks until it is shut down.
func (s *Server) Run() error {
	s.logger.Info("HTTP server listening", "addr", s.httpServer.Addr, "auth", s.authToken != "")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server startup failed: %w", err)
	}
	return nil
}

// Shutdown stops the HTTP server. It does NOT stop the trainer; main owns
// that lifecycle.
func (s *Server) Shutdown() {
	s.logger.Info("starting graceful shutdown of HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}
}
