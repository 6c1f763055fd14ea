package core

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"gridwatch/internal/types"
)

// defaultRequestTimeout is the soft timeout applied to request contexts when
// no explicit RequestTimeout is configured.
const defaultRequestTimeout = 30 * time.Second

// defaultRedactedHeaders lists header names whose values are masked in request
// logs to prevent accidental leakage of credentials.
var defaultRedactedHeaders = []string{
	"Authorization",
	"Cookie",
}

// MountRoutes defines the top-level routing hierarchy.
// It registers the global middleware chain, the /v1 API group, and top-level
// routes (health check).
func (s *Server) MountRoutes() {
	// Global middleware registration (strict order matters).
	s.registerGlobalMiddleware()

	// API version groups.
	s.router.Route("/v1", s.mountV1)

	// Top-level routes (outside /v1 namespace).
	s.router.Get("/health", s.HandleHealth)

	// Unknown routes get the structured 404 instead of chi's plain text.
	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		Error(w, r, types.NewAppError(types.ErrCodeNotFoundRoute, "route not found", nil))
	})
}

// registerGlobalMiddleware applies middleware in strict order.
//
// Ordering rationale:
//  1. Recoverer       - Catches panics; outermost to catch all failures.
//  2. ContextTimeout  - Sets the soft request deadline.
//  3. RequestID       - Generates/propagates correlation ID for tracing.
//  4. SecurityHeaders - Ensures all responses include security headers.
//  5. RequestLogger   - Structured logging (redacted headers).
//  6. CORS            - Browser security headers, preflight handling.
//  7. Auth            - Resolves the Actor and injects it into context.
//  8. RateLimit       - Per-actor fixed windows (requires Actor from Auth).
func (s *Server) registerGlobalMiddleware() {
	s.router.Use(s.Recoverer)
	s.router.Use(ContextTimeoutMiddleware(s.requestTimeout()))
	s.router.Use(RequestIDMiddleware)
	s.router.Use(s.SecurityHeadersMiddleware)
	s.router.Use(RequestLogger(s.Logger, s.redactedHeaders()))
	s.router.Use(NewCORSMiddleware(s.corsAllowedOrigins()))
	s.router.Use(s.AuthMiddleware)
	s.router.Use(s.RateLimit)
}

// mountV1 registers all v1 endpoints. Domain handler routes are registered via
// V1RouteRegistrars, which are populated by the application entry point
// (main.go). This indirection avoids import cycles between core and handler
// packages.
func (s *Server) mountV1(r chi.Router) {
	for _, registrar := range s.V1RouteRegistrars {
		registrar(r)
	}
}

// requestTimeout returns the configured request timeout, falling back to the
// default when the config does not specify one.
func (s *Server) requestTimeout() time.Duration {
	if s.Config != nil && s.Config.Server.RequestTimeout > 0 {
		return s.Config.Server.RequestTimeout
	}
	return defaultRequestTimeout
}

// redactedHeaders returns the list of header names to redact in request logs.
func (s *Server) redactedHeaders() []string {
	return defaultRedactedHeaders
}

// corsAllowedOrigins returns the CORS allowed origins from configuration.
func (s *Server) corsAllowedOrigins() []string {
	if s.Config != nil && len(s.Config.Security.CorsAllowedOrigins) > 0 {
		return s.Config.Security.CorsAllowedOrigins
	}
	return []string{"*"}
}

// ContextTimeoutMiddleware sets a deadline on the request context.
// If the deadline is exceeded, downstream handlers receive a cancelled
// context; the response is controlled by the handler's behavior on context
// cancellation.
func ContextTimeoutMiddleware(duration time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), duration)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDMiddleware generates or propagates a unique request ID for
// correlation across logs and traces. If the incoming request contains an
// X-Request-Id header, that value is reused; otherwise, a new random ID is
// generated.
//
// The request ID is stored in the context via types.WithRequestID and set as
// the X-Request-Id response header for client correlation.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = generateRequestID()
		}

		ctx := types.WithRequestID(r.Context(), requestID)

		w.Header().Set("X-Request-Id", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// generateRequestID produces a cryptographically random hex string suitable
// for use as a request correlation ID. It generates 16 random bytes encoded
// as 32 hex characters.
func generateRequestID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand failing is effectively fatal elsewhere; still return a
		// non-empty ID for correlation.
		return "fallback-" + hex.EncodeToString([]byte(time.Now().String()))
	}
	return hex.EncodeToString(b)
}
