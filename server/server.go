// Package server provides the status server that runs next to the scheduler.
// It exposes health, the last run report and Prometheus metrics, with
// graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joe-wehbe/mouser-sheets-automation/handlers"
	"github.com/joe-wehbe/mouser-sheets-automation/interfaces"
	"github.com/joe-wehbe/mouser-sheets-automation/logging"
	"github.com/joe-wehbe/mouser-sheets-automation/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server represents the status HTTP server
type Server struct {
	server  *http.Server
	router  chi.Router
	handler *handlers.StatusHandler
}

// NewServer creates a status server listening on address:port
func NewServer(address, port string, store interfaces.RunStore, healthChecker interfaces.HealthChecker) *Server {
	router := chi.NewRouter()

	s := &Server{
		server: &http.Server{
			Handler:      router,
			Addr:         net.JoinHostPort(address, port),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		router:  router,
		handler: handlers.NewStatusHandler(store, healthChecker),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures all middleware
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(logging.LoggingMiddleware(logging.With("component", "status_server")))
	s.router.Use(middleware.Recoverer)
	s.router.Use(metrics.Metrics)
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handler.HealthCheck)
	s.router.Get("/runs/last", s.handler.LastRun)
	s.router.Handle("/metrics", promhttp.Handler())
}

// Handler returns the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens until Shutdown is called. A clean shutdown returns nil.
func (s *Server) Start() error {
	logging.Info(fmt.Sprintf("Starting status server at: %s", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("status server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down status server...")

	if err := s.server.Shutdown(ctx); err != nil {
		logging.Error("Status server forced to shutdown", "error", err)
		// If graceful shutdown fails, force close
		if err := s.server.Close(); err != nil {
			logging.Error("Status server close error", "error", err)
			return err
		}
	}

	logging.Info("Status server shutdown complete")
	return nil
}
