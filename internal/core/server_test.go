package core

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"gridwatch/internal/config"
	"gridwatch/internal/types"
)

func TestNewServer_FailFast(t *testing.T) {
	if _, err := NewServer(nil, testLogger()); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := NewServer(&config.Config{}, nil); err == nil {
		t.Error("expected error for nil logger")
	}
}

func TestNewServer_InitializesValidatorAndRouter(t *testing.T) {
	s := newTestServer(t)
	if s.Validator == nil {
		t.Error("expected validator to be initialized")
	}
	if s.Router() == nil {
		t.Error("expected router to be initialized")
	}
	if s.Handler() == nil {
		t.Error("expected handler to be available")
	}
}

type fakeCloser struct {
	closed bool
	err    error
}

func (f *fakeCloser) Close() error {
	f.closed = true
	return f.err
}

func TestShutdown_ClosesRegisteredResources(t *testing.T) {
	s := newTestServer(t)
	a := &fakeCloser{}
	b := &fakeCloser{}
	s.RegisterCloser(a)
	s.RegisterCloser(b)

	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if !a.closed || !b.closed {
		t.Error("expected all registered resources to be closed")
	}
}

func TestShutdown_ReturnsFirstErrorButClosesAll(t *testing.T) {
	s := newTestServer(t)
	a := &fakeCloser{err: errors.New("pool already closed")}
	b := &fakeCloser{}
	s.RegisterCloser(a)
	s.RegisterCloser(b)

	if err := s.Shutdown(context.Background()); err == nil {
		t.Error("expected error from failing closer")
	}
	if !b.closed {
		t.Error("remaining resources should still be closed after an error")
	}
}

func TestMountRoutes_HealthIsPublic(t *testing.T) {
	s := newTestServer(t)
	s.Authenticator = &MockAuthenticator{
		Err: types.NewAppError(types.ErrCodeAuthTokenInvalid, "invalid", nil),
	}
	s.MountRoutes()

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Errorf("GET /health = %d, want 200 without credentials", w.Code)
	}
}

func TestMountRoutes_V1RegistrarsMounted(t *testing.T) {
	s := newTestServer(t)
	s.V1RouteRegistrars = append(s.V1RouteRegistrars, func(r chi.Router) {
		r.Get("/buildings", func(w http.ResponseWriter, req *http.Request) {
			JSON(w, req, http.StatusOK, APIResponse{Data: []string{}})
		})
	})
	s.MountRoutes()

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/buildings", nil))

	if w.Code != http.StatusOK {
		t.Errorf("GET /v1/buildings = %d, want 200", w.Code)
	}
}

func TestMountRoutes_V1RequiresAuth(t *testing.T) {
	s := newTestServer(t)
	s.Authenticator = &MockAuthenticator{
		Actor: &types.Actor{ID: "usr_1", Type: types.ActorTypeUser, Role: types.RoleOperator},
	}
	s.V1RouteRegistrars = append(s.V1RouteRegistrars, func(r chi.Router) {
		r.Get("/meters", func(w http.ResponseWriter, req *http.Request) {
			JSON(w, req, http.StatusOK, APIResponse{})
		})
	})
	s.MountRoutes()

	t.Run("missing token rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/meters", nil))
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})

	t.Run("valid token accepted", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/v1/meters", nil)
		r.Header.Set("Authorization", "Bearer tok_ok")
		s.Handler().ServeHTTP(w, r)
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", w.Code)
		}
	})
}

func TestMountRoutes_UnknownRouteStructured404(t *testing.T) {
	s := newTestServer(t)
	s.MountRoutes()

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/nothing-here", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	var resp APIErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("404 body should be structured JSON: %v", err)
	}
	if resp.Error.Code != string(types.ErrCodeNotFoundRoute) {
		t.Errorf("code = %q, want %s", resp.Error.Code, types.ErrCodeNotFoundRoute)
	}
}

func TestMountRoutes_ResponsesCarryRequestID(t *testing.T) {
	s := newTestServer(t)
	s.MountRoutes()

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Header().Get("X-Request-Id") == "" {
		t.Error("expected X-Request-Id header on every response")
	}
}

func TestRequestTimeout_FallsBackToDefault(t *testing.T) {
	s := newTestServer(t)
	if got := s.requestTimeout(); got != defaultRequestTimeout {
		t.Errorf("requestTimeout = %s, want default %s", got, defaultRequestTimeout)
	}

	s.Config.Server.RequestTimeout = 5 * time.Second
	if got := s.requestTimeout(); got != 5*time.Second {
		t.Errorf("requestTimeout = %s, want 5s", got)
	}
}
