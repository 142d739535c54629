// Package api implements the read-only HTTP query surface over the
// crawler's store (spec AMBIENT STACK), grounded on the teacher's
// internal/server: a graceful-shutdown *http.Server wrapping a chi
// router.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sevigo/countpkg/internal/config"
	"github.com/sevigo/countpkg/internal/crawler"
	"github.com/sevigo/countpkg/internal/store"
)

// Server wraps an HTTP server with graceful shutdown capabilities.
type Server struct {
	server *http.Server
	logger *slog.Logger
}

// NewServer builds a Server exposing package/repository lookups against
// st and live progress against pool.
func NewServer(cfg *config.Config, st *store.Store, pool *crawler.Pool, logger *slog.Logger) *Server {
	router := NewRouter(st, pool, logger)

	return &Server{
		server: &http.Server{
			Addr:         ":" + cfg.Server.Port,
			Handler:      router,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		logger: logger,
	}
}

// Start starts the HTTP server and blocks until shutdown or error.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "address", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the server with a 30-second timeout.
func (s *Server) Stop() error {
	s.logger.Info("shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}
