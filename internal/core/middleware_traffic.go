package core

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"gridwatch/internal/types"
)

// defaultRateLimitWindow is the fixed window used by the rate limit middleware.
const defaultRateLimitWindow = time.Minute

// defaultRateLimitMax is the maximum number of requests per actor per window.
const defaultRateLimitMax = 300

// RateLimit enforces a per-actor fixed-window request budget.
//
// The middleware extracts the Actor from the request context (set by
// AuthMiddleware) and calls RateLimitStore.IncrementAndCheck to atomically
// increment the counter and check against the limit.
//
// If no RateLimitStore is configured (e.g., during tests), the middleware
// passes through without rate limiting.
//
// If no Actor is in the context (unauthenticated request), the middleware
// passes through -- AuthMiddleware handles the 401.
//
// On every request (allowed or not), the middleware sets standard rate limit
// response headers:
//   - X-RateLimit-Limit: The maximum number of requests in the window.
//   - X-RateLimit-Remaining: The number of requests remaining.
//   - X-RateLimit-Reset: Unix timestamp when the window resets.
//
// When rate limited, the middleware also sets:
//   - Retry-After: Seconds until the rate limit window resets.
func (s *Server) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.RateLimitStore == nil {
			next.ServeHTTP(w, r)
			return
		}

		actor, ok := types.GetActor(r.Context())
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		// System actors (job runners, the ingest consumer) are not subject
		// to interactive rate limits.
		if actor.Type == types.ActorTypeSystem {
			next.ServeHTTP(w, r)
			return
		}

		result, err := s.RateLimitStore.IncrementAndCheck(
			r.Context(),
			actor.ID,
			defaultRateLimitMax,
			defaultRateLimitWindow,
		)
		if err != nil {
			// On store errors, fail open: allow the request through but log
			// the error. This prevents a rate limit store outage from blocking
			// all API traffic.
			s.Logger.Error("rate limit store error",
				slog.String("actor_id", actor.ID),
				slog.String("error", err.Error()),
			)
			next.ServeHTTP(w, r)
			return
		}

		// Set rate limit headers on every response (allowed or denied).
		setRateLimitHeaders(w, defaultRateLimitMax, result)

		if !result.Allowed {
			s.Logger.Warn("rate limit exceeded",
				slog.String("actor_id", actor.ID),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)

			retryAfter := int(time.Until(result.ResetAt).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

			requestID := types.GetRequestID(r.Context())
			resp := APIErrorResponse{
				Error: ErrorDetail{
					Code:      string(types.ErrCodeRateLimit),
					Message:   "Rate limit exceeded. Please retry after the reset time.",
					RequestID: requestID,
				},
			}
			JSON(w, r, http.StatusTooManyRequests, resp)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// setRateLimitHeaders writes the standard X-RateLimit-* headers to the response.
func setRateLimitHeaders(w http.ResponseWriter, limit int, result RateLimitResult) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

// MemoryRateLimitStore is an in-process fixed-window RateLimitStore.
// Suitable for single-instance deployments; multi-instance setups would back
// this interface with a shared store instead.
type MemoryRateLimitStore struct {
	mu      sync.Mutex
	windows map[string]*rateWindow
	now     func() time.Time
}

type rateWindow struct {
	count   int
	resetAt time.Time
}

// NewMemoryRateLimitStore creates an empty in-memory rate limit store.
func NewMemoryRateLimitStore() *MemoryRateLimitStore {
	return &MemoryRateLimitStore{
		windows: make(map[string]*rateWindow),
		now:     time.Now,
	}
}

// IncrementAndCheck implements RateLimitStore with a per-key fixed window.
// Expired windows are replaced lazily on access.
func (m *MemoryRateLimitStore) IncrementAndCheck(_ context.Context, key string, limit int, window time.Duration) (RateLimitResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	w, ok := m.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &rateWindow{resetAt: now.Add(window)}
		m.windows[key] = w
	}

	w.count++

	remaining := limit - w.count
	if remaining < 0 {
		remaining = 0
	}

	return RateLimitResult{
		Allowed:   w.count <= limit,
		Remaining: remaining,
		ResetAt:   w.resetAt,
	}, nil
}

// compile-time interface check
var _ RateLimitStore = (*MemoryRateLimitStore)(nil)
