package core

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"gridwatch/internal/types"
)

// authPublicPaths lists URL paths that are exempt from authentication.
// Requests to these paths bypass the AuthMiddleware entirely.
var authPublicPaths = map[string]bool{
	"/health": true,
}

// AuthMiddleware wraps handlers requiring authentication.
//
//  1. Extracts the Bearer token from the Authorization header.
//  2. Calls Authenticator.VerifyToken to resolve the token to an Actor.
//  3. Injects the Actor into the request context via types.WithActor.
//  4. Returns 401 Unauthorized on failure with distinct error codes:
//     - auth_token_missing: No Authorization header or empty Bearer token.
//     - auth_token_invalid: Token is malformed, unknown, or revoked.
//     - auth_token_expired: Token exists but has expired.
//  5. Returns 502 when the identity provider cannot be reached
//     (upstream_auth_provider_unavailable).
//
// If the Authenticator field on Server is nil (e.g., during tests that don't
// inject one), the middleware passes through without authentication.
func (s *Server) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// If no authenticator is configured, pass through.
		if s.Authenticator == nil {
			next.ServeHTTP(w, r)
			return
		}

		// Skip authentication for public paths.
		if authPublicPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			s.writeAuthError(w, r, types.ErrCodeAuthTokenMissing, "Authorization header is required")
			return
		}

		token := extractBearerToken(authHeader)
		if token == "" {
			s.writeAuthError(w, r, types.ErrCodeAuthTokenMissing, "Bearer token is required")
			return
		}

		actor, err := s.Authenticator.VerifyToken(r.Context(), token)
		if err != nil {
			s.handleAuthError(w, r, err)
			return
		}

		if actor == nil {
			s.writeAuthError(w, r, types.ErrCodeAuthTokenInvalid, "Invalid authentication token")
			return
		}

		ctx := types.WithActor(r.Context(), *actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractBearerToken parses the Authorization header value and returns
// the token string. It expects the format "Bearer <token>" (case-insensitive
// scheme per RFC 7235). Returns empty string if the format is invalid.
func extractBearerToken(authHeader string) string {
	const prefix = "Bearer "
	if len(authHeader) < len(prefix) {
		return ""
	}
	// Case-insensitive comparison of the "Bearer " scheme prefix per RFC 7235.
	if !strings.EqualFold(authHeader[:len(prefix)], prefix) {
		return ""
	}
	token := authHeader[len(prefix):]
	return strings.TrimSpace(token)
}

// handleAuthError inspects the error from Authenticator.VerifyToken and
// writes the appropriate response with the correct error code.
func (s *Server) handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case types.ErrCodeAuthTokenExpired:
			s.Logger.Warn("authentication failed: token expired",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)
			s.writeAuthError(w, r, types.ErrCodeAuthTokenExpired, "Authentication token has expired")
			return
		case types.ErrCodeAuthTokenInvalid:
			s.Logger.Warn("authentication failed: token invalid",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)
			s.writeAuthError(w, r, types.ErrCodeAuthTokenInvalid, "Invalid authentication token")
			return
		case types.ErrCodeUpstreamAuth:
			// Provider outage is a gateway failure, not the client's fault.
			s.Logger.Error("authentication failed: provider unavailable",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("error", err.Error()),
			)
			Error(w, r, appErr)
			return
		}
	}

	// Generic error: log it but don't leak internal details.
	s.Logger.Error("authentication failed: unexpected error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	s.writeAuthError(w, r, types.ErrCodeAuthTokenInvalid, "Authentication failed")
}

// writeAuthError writes a 401 Unauthorized JSON response with the given error code.
func (s *Server) writeAuthError(w http.ResponseWriter, r *http.Request, code types.ErrorCode, message string) {
	requestID := types.GetRequestID(r.Context())
	resp := APIErrorResponse{
		Error: ErrorDetail{
			Code:      string(code),
			Message:   message,
			RequestID: requestID,
		},
	}
	JSON(w, r, http.StatusUnauthorized, resp)
}

// RequireRole returns middleware that checks if the Actor in the request
// context has a role equal to or higher than the specified role.
// The role hierarchy is: admin > operator.
//
// If the Actor is not present in context (unauthenticated), returns 401.
// If the Actor's role is insufficient, returns 403 Forbidden.
//
// System actors (jobs, consumers) bypass role checks entirely.
func (s *Server) RequireRole(role types.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := types.GetActor(r.Context())
			if !ok {
				s.writeAuthError(w, r, types.ErrCodeAuthTokenMissing, "Authentication required")
				return
			}

			if actor.Type == types.ActorTypeSystem {
				next.ServeHTTP(w, r)
				return
			}

			if !actor.RoleHasAtLeast(role) {
				requestID := types.GetRequestID(r.Context())
				resp := APIErrorResponse{
					Error: ErrorDetail{
						Code:      string(types.ErrCodePermissionRole),
						Message:   "Insufficient role for this operation",
						RequestID: requestID,
					},
				}
				JSON(w, r, http.StatusForbidden, resp)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
