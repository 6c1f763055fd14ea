// Package core provides the API chassis for the GridWatch service.
// It builds the chi router and enforces cross-cutting concerns -- security,
// logging, authentication, and error handling -- before requests reach
// domain-specific handlers.
package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gridwatch/internal/config"
)

// Server encapsulates the dependencies of the GridWatch API, allowing for
// easy injection during testing and distinct configuration for different
// environments.
type Server struct {
	Config        *config.Config
	Logger        *slog.Logger
	Validator     *Validator
	Authenticator Authenticator  // Resolves tokens to Actors; injected for testability.
	RateLimitStore RateLimitStore // Optional; nil disables rate limiting.

	// HealthProbes are executed concurrently by GET /health.
	HealthProbes []HealthProbe

	// V1RouteRegistrars are populated by the application entry point before
	// MountRoutes is called.
	V1RouteRegistrars []RouteRegistrar

	// closers are shut down in Shutdown, in registration order.
	closers []io.Closer

	router *chi.Mux
}

// NewServer initializes dependencies, sets up the router, and prepares the
// server for route mounting. It performs a fail-fast check on critical
// dependencies.
//
// The caller is responsible for mounting routes (via MountRoutes) after
// construction. This separation allows tests to customize route registration.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	s := &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(logger),
		router:    chi.NewRouter(),
	}

	return s, nil
}

// Handler returns the http.Handler interface for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// RegisterCloser adds a resource (database pool, cache client, consumer) to
// be closed during graceful shutdown.
func (s *Server) RegisterCloser(c io.Closer) {
	s.closers = append(s.closers, c)
}

// Shutdown performs a graceful termination of server resources, closing
// registered resources in registration order.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("server shutdown initiated")

	var firstErr error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			s.Logger.Error("error closing resource", "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("closing resource: %w", err)
			}
		}
	}

	if firstErr != nil {
		return firstErr
	}

	s.Logger.Info("server shutdown complete")
	return nil
}
