package core

import (
	"context"
	"sync"
	"time"

	"gridwatch/internal/types"
)

// --- MockAuthenticator ---

// MockAuthenticator implements the Authenticator interface for testing.
// It allows injecting a predefined Actor for a given token, or returning
// a fixed error to simulate authentication failures.
//
// Usage:
//
//	mock := &MockAuthenticator{
//	    Actor: &types.Actor{
//	        ID:   "usr_test123",
//	        Type: types.ActorTypeUser,
//	        Role: types.RoleOperator,
//	    },
//	}
//	actor, err := mock.VerifyToken(ctx, "tok_abc123")
//
// To simulate an error:
//
//	mock := &MockAuthenticator{
//	    Err: types.NewAppError(types.ErrCodeAuthTokenInvalid, "invalid token", nil),
//	}
type MockAuthenticator struct {
	// Actor is the predefined Actor returned on successful token verification.
	// If nil and Err is also nil, VerifyToken returns (nil, nil).
	Actor *types.Actor

	// Err is the error returned by VerifyToken. When set, Actor is ignored.
	Err error

	// VerifyTokenFunc is an optional function that overrides the default behavior.
	// When set, it takes precedence over Actor and Err fields. This allows tests
	// to implement dynamic behavior based on the token value.
	VerifyTokenFunc func(ctx context.Context, token string) (*types.Actor, error)

	// mu protects Calls for concurrent access.
	mu sync.Mutex

	// Calls records every token passed to VerifyToken for assertion purposes.
	Calls []string
}

// VerifyToken implements the Authenticator interface.
// It records the call, then delegates to VerifyTokenFunc if set,
// otherwise returns Err (if set) or Actor.
func (m *MockAuthenticator) VerifyToken(ctx context.Context, token string) (*types.Actor, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, token)
	m.mu.Unlock()

	if m.VerifyTokenFunc != nil {
		return m.VerifyTokenFunc(ctx, token)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Actor, nil
}

// --- MockRateLimitStore ---

// MockRateLimitStore implements the RateLimitStore interface for testing.
// It allows injecting a predefined result or error to simulate rate limiting.
//
// Usage:
//
//	mock := &MockRateLimitStore{
//	    Result: RateLimitResult{Allowed: true, Remaining: 99, ResetAt: time.Now().Add(time.Minute)},
//	}
//	result, err := mock.IncrementAndCheck(ctx, "usr_123", 300, time.Minute)
//
// To simulate rate limit exceeded:
//
//	mock := &MockRateLimitStore{
//	    Result: RateLimitResult{Allowed: false, Remaining: 0, ResetAt: time.Now().Add(30 * time.Second)},
//	}
type MockRateLimitStore struct {
	// Result is the predefined RateLimitResult returned by IncrementAndCheck.
	Result RateLimitResult

	// Err is the error returned by IncrementAndCheck. When set, Result is still
	// returned alongside the error (consistent with typical Go patterns where
	// partial results may accompany errors).
	Err error

	// IncrementAndCheckFunc is an optional function that overrides the default behavior.
	// When set, it takes precedence over Result and Err fields.
	IncrementAndCheckFunc func(ctx context.Context, key string, limit int, window time.Duration) (RateLimitResult, error)

	// mu protects Calls for concurrent access.
	mu sync.Mutex

	// Calls records every invocation for assertion purposes.
	Calls []RateLimitCall
}

// RateLimitCall records the arguments of a single IncrementAndCheck invocation.
type RateLimitCall struct {
	Key    string
	Limit  int
	Window time.Duration
}

// IncrementAndCheck implements the RateLimitStore interface.
// It records the call, then delegates to IncrementAndCheckFunc if set,
// otherwise returns Result and Err.
func (m *MockRateLimitStore) IncrementAndCheck(ctx context.Context, key string, limit int, window time.Duration) (RateLimitResult, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, RateLimitCall{Key: key, Limit: limit, Window: window})
	m.mu.Unlock()

	if m.IncrementAndCheckFunc != nil {
		return m.IncrementAndCheckFunc(ctx, key, limit, window)
	}
	return m.Result, m.Err
}

// --- MockHealthProbe ---

// MockHealthProbe implements HealthProbe for testing. It returns CheckErr
// from Check, optionally after sleeping Delay (to exercise the health
// endpoint's timeout path).
type MockHealthProbe struct {
	ProbeName string
	CheckErr  error
	Delay     time.Duration
}

// Name implements HealthProbe.
func (m *MockHealthProbe) Name() string { return m.ProbeName }

// Check implements HealthProbe.
func (m *MockHealthProbe) Check(ctx context.Context) error {
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return m.CheckErr
}

// Compile-time interface assertions.
var (
	_ Authenticator  = (*MockAuthenticator)(nil)
	_ RateLimitStore = (*MockRateLimitStore)(nil)
	_ HealthProbe    = (*MockHealthProbe)(nil)
)
