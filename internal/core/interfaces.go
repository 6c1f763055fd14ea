package core

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"

	"gridwatch/internal/types"
)

// Authenticator decouples the HTTP layer from the token verification
// mechanism (identity provider introspection or static dev tokens), allowing
// for easy mocking in tests.
type Authenticator interface {
	// VerifyToken validates a bearer token and returns the Actor it
	// represents.
	//
	// Distinct error codes:
	//   - ErrCodeAuthTokenInvalid for malformed, unknown, or revoked tokens.
	//   - ErrCodeAuthTokenExpired for tokens past their expiry.
	//   - ErrCodeUpstreamAuth when the identity provider is unreachable.
	VerifyToken(ctx context.Context, token string) (*types.Actor, error)
}

// RateLimitStore abstracts the backing store for rate limiting.
type RateLimitStore interface {
	// IncrementAndCheck atomically increments the rate limit counter for the
	// given key and checks if the limit has been exceeded within the window.
	IncrementAndCheck(ctx context.Context, key string, limit int, window time.Duration) (RateLimitResult, error)
}

// RateLimitResult contains the outcome of a rate limit check.
type RateLimitResult struct {
	// Allowed indicates whether the request is within the rate limit.
	Allowed bool
	// Remaining is the number of requests remaining in the current window.
	Remaining int
	// ResetAt is the time when the current rate limit window resets.
	ResetAt time.Time
}

// RouteRegistrar mounts a handler package's routes onto the /v1 router.
// Handler packages expose a registrar instead of importing core, which keeps
// the dependency direction one-way.
type RouteRegistrar func(r chi.Router)
