package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker/v2"

	"gridwatch/internal/config"
	"gridwatch/internal/core"
	"gridwatch/internal/types"
)

// introspectionResponse is the identity provider's verdict for one token.
type introspectionResponse struct {
	Active   bool   `json:"active"`
	Subject  string `json:"sub"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Exp      int64  `json:"exp"`
}

// cachedVerdict holds one introspection outcome. A nil actor means the token
// was rejected; rejections are cached too so a flood of bad tokens does not
// hammer the identity provider.
type cachedVerdict struct {
	actor     *types.Actor
	errCode   types.ErrorCode
	expiresAt time.Time
}

// IntrospectionVerifier verifies bearer tokens against an external identity
// provider's introspection endpoint. Calls go through a circuit breaker that
// opens after repeated consecutive failures, and verdicts are cached
// in-process for the configured TTL.
type IntrospectionVerifier struct {
	client       *resty.Client
	breaker      *gobreaker.CircuitBreaker[*resty.Response]
	url          string
	clientSecret types.SecretString
	cacheTTL     time.Duration
	logger       *slog.Logger
	now          func() time.Time

	mu    sync.Mutex
	cache map[string]cachedVerdict
}

var _ core.Authenticator = (*IntrospectionVerifier)(nil)

// NewIntrospectionVerifier creates an IntrospectionVerifier from the auth
// config.
func NewIntrospectionVerifier(cfg config.AuthConfig, logger *slog.Logger) *IntrospectionVerifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 60 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker[*resty.Response](gobreaker.Settings{
		Name:        "auth-introspection",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	})

	return &IntrospectionVerifier{
		client:       resty.New().SetTimeout(timeout),
		breaker:      cb,
		url:          cfg.IntrospectURL,
		clientSecret: cfg.ClientSecret,
		cacheTTL:     cacheTTL,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
		cache:        make(map[string]cachedVerdict),
	}
}

// VerifyToken returns the actor for a valid token. The token itself never
// enters the cache; verdicts are keyed by its SHA-256 hash.
func (v *IntrospectionVerifier) VerifyToken(ctx context.Context, token string) (*types.Actor, error) {
	key := hashToken(token)

	if verdict, ok := v.lookup(key); ok {
		if verdict.actor != nil {
			actor := *verdict.actor
			return &actor, nil
		}
		return nil, types.NewAppError(verdict.errCode, "invalid token", nil)
	}

	out, err := v.introspect(ctx, token)
	if err != nil {
		// Upstream trouble is never cached; the breaker is the backstop.
		return nil, err
	}

	if !out.Active {
		code := types.ErrCodeAuthTokenInvalid
		if out.Exp > 0 && time.Unix(out.Exp, 0).Before(v.now()) {
			code = types.ErrCodeAuthTokenExpired
		}
		v.store(key, cachedVerdict{errCode: code})
		return nil, types.NewAppError(code, "invalid token", nil)
	}

	role := types.UserRole(out.Role)
	if role != types.RoleAdmin && role != types.RoleOperator {
		role = types.RoleOperator
	}
	actor := &types.Actor{
		ID:   out.Subject,
		Name: out.Username,
		Type: types.ActorTypeUser,
		Role: role,
	}
	v.store(key, cachedVerdict{actor: actor})

	result := *actor
	return &result, nil
}

// introspect posts the token to the identity provider through the circuit
// breaker and maps transport-level failures to upstream error codes.
func (v *IntrospectionVerifier) introspect(ctx context.Context, token string) (*introspectionResponse, error) {
	var out introspectionResponse

	resp, err := v.breaker.Execute(func() (*resty.Response, error) {
		// Some providers answer without a JSON Content-Type; force decoding
		// so the verdict is never silently left zero-valued.
		req := v.client.R().
			SetContext(ctx).
			SetBody(map[string]string{"token": token}).
			SetResult(&out).
			ForceContentType("application/json")
		if secret := v.clientSecret.Unmask(); secret != "" {
			req.SetHeader("X-Client-Secret", secret)
		}

		r, postErr := req.Post(v.url)
		if postErr != nil {
			return nil, postErr
		}
		if r.StatusCode() >= 500 {
			return r, fmt.Errorf("identity provider returned %d", r.StatusCode())
		}
		if r.StatusCode() == 429 {
			return r, fmt.Errorf("identity provider returned 429")
		}
		return r, nil
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, types.NewAppError(types.ErrCodeUpstreamAuth, "identity provider circuit breaker is open", err)
		}
		if resp != nil && resp.StatusCode() == 429 {
			return nil, types.NewAppError(types.ErrCodeUpstreamRateLimited, "identity provider rate limit exceeded", err)
		}
		return nil, types.NewAppError(types.ErrCodeUpstreamAuth, "token introspection failed", err)
	}

	// A 4xx verdict from the provider means the credentials it was given are
	// bad, not that the caller's token is valid.
	if resp.StatusCode() >= 400 {
		return nil, types.NewAppError(types.ErrCodeAuthTokenInvalid, "identity provider rejected the token", nil)
	}

	return &out, nil
}

func (v *IntrospectionVerifier) lookup(key string) (cachedVerdict, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	verdict, ok := v.cache[key]
	if !ok || v.now().After(verdict.expiresAt) {
		delete(v.cache, key)
		return cachedVerdict{}, false
	}
	return verdict, true
}

func (v *IntrospectionVerifier) store(key string, verdict cachedVerdict) {
	v.mu.Lock()
	defer v.mu.Unlock()

	verdict.expiresAt = v.now().Add(v.cacheTTL)
	v.cache[key] = verdict
}

// hashToken produces a hex-encoded SHA-256 hash of a raw token string, so
// raw tokens never sit in the verdict cache.
func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
