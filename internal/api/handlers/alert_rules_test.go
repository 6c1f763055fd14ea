package handlers

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridwatch/internal/core"
	"gridwatch/internal/db"
	"gridwatch/internal/types"
)

type mockAlertRuleRepo struct {
	createFn  func(ctx context.Context, ar *types.AlertRule) error
	getByIDFn func(ctx context.Context, id string) (*types.AlertRule, error)
	updateFn  func(ctx context.Context, ar *types.AlertRule) error
	deleteFn  func(ctx context.Context, id string) error
	listFn    func(ctx context.Context, params db.ListAlertRulesParams) ([]*types.AlertRule, types.PageInfo, error)
}

func (m *mockAlertRuleRepo) Create(ctx context.Context, ar *types.AlertRule) error {
	if m.createFn != nil {
		return m.createFn(ctx, ar)
	}
	return nil
}

func (m *mockAlertRuleRepo) GetByID(ctx context.Context, id string) (*types.AlertRule, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return &types.AlertRule{
		ID:         id,
		Name:       "High consumption",
		MetricType: types.MetricConsumption,
		Comparison: types.CompareAbove,
		Threshold:  50,
		Unit:       "kWh",
		Severity:   types.SeverityMedium,
		Enabled:    true,
	}, nil
}

func (m *mockAlertRuleRepo) Update(ctx context.Context, ar *types.AlertRule) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, ar)
	}
	return nil
}

func (m *mockAlertRuleRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockAlertRuleRepo) List(ctx context.Context, params db.ListAlertRulesParams) ([]*types.AlertRule, types.PageInfo, error) {
	if m.listFn != nil {
		return m.listFn(ctx, params)
	}
	return nil, types.PageInfo{}, nil
}

func newTestAlertRuleHandler() (*AlertRuleHandler, *mockAlertRuleRepo) {
	repo := &mockAlertRuleRepo{}
	logger := slog.Default()
	return NewAlertRuleHandler(repo, core.NewValidator(logger), logger), repo
}

func alertRuleRouter(h *AlertRuleHandler) chi.Router {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func TestAlertRuleHandler_Create_DefaultsEnabled(t *testing.T) {
	h, repo := newTestAlertRuleHandler()

	var created *types.AlertRule
	repo.createFn = func(_ context.Context, ar *types.AlertRule) error {
		created = ar
		return nil
	}

	body := []byte(`{"name":"High consumption","metric_type":"consumption","comparison":"above","threshold":50,"unit":"kWh","severity":"medium"}`)
	req := httptest.NewRequest(http.MethodPost, "/alert-rules", bytes.NewReader(body))
	req = req.WithContext(actorContext(types.RoleAdmin))
	w := httptest.NewRecorder()

	alertRuleRouter(h).ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, created)
	assert.Regexp(t, `^rule_`, created.ID)
	assert.Equal(t, types.MetricConsumption, created.MetricType)
	assert.Equal(t, types.CompareAbove, created.Comparison)
	assert.Equal(t, 50.0, created.Threshold)
	assert.True(t, created.Enabled)
}

func TestAlertRuleHandler_Create_DisabledExplicitly(t *testing.T) {
	h, repo := newTestAlertRuleHandler()

	var created *types.AlertRule
	repo.createFn = func(_ context.Context, ar *types.AlertRule) error {
		created = ar
		return nil
	}

	body := []byte(`{"name":"High consumption","metric_type":"consumption","comparison":"above","threshold":50,"unit":"kWh","severity":"medium","enabled":false}`)
	req := httptest.NewRequest(http.MethodPost, "/alert-rules", bytes.NewReader(body))
	req = req.WithContext(actorContext(types.RoleAdmin))
	w := httptest.NewRecorder()

	alertRuleRouter(h).ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, created)
	assert.False(t, created.Enabled)
}

func TestAlertRuleHandler_Create_InvalidEnums(t *testing.T) {
	h, _ := newTestAlertRuleHandler()

	tests := []struct {
		name string
		body string
	}{
		{"bad metric", `{"name":"r","metric_type":"power","comparison":"above","threshold":50,"unit":"kWh","severity":"medium"}`},
		{"bad comparison", `{"name":"r","metric_type":"consumption","comparison":"over","threshold":50,"unit":"kWh","severity":"medium"}`},
		{"bad severity", `{"name":"r","metric_type":"consumption","comparison":"above","threshold":50,"unit":"kWh","severity":"urgent"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/alert-rules", bytes.NewReader([]byte(tt.body)))
			req = req.WithContext(actorContext(types.RoleAdmin))
			w := httptest.NewRecorder()

			alertRuleRouter(h).ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestAlertRuleHandler_Update_Toggle(t *testing.T) {
	h, repo := newTestAlertRuleHandler()

	var updated *types.AlertRule
	repo.updateFn = func(_ context.Context, ar *types.AlertRule) error {
		updated = ar
		return nil
	}

	body := []byte(`{"enabled":false,"threshold":75}`)
	req := httptest.NewRequest(http.MethodPatch, "/alert-rules/rule_1", bytes.NewReader(body))
	req = req.WithContext(actorContext(types.RoleAdmin))
	w := httptest.NewRecorder()

	alertRuleRouter(h).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, updated)
	assert.False(t, updated.Enabled)
	assert.Equal(t, 75.0, updated.Threshold)
	assert.Equal(t, "High consumption", updated.Name)
}

func TestAlertRuleHandler_Delete_OperatorForbidden(t *testing.T) {
	h, _ := newTestAlertRuleHandler()

	req := httptest.NewRequest(http.MethodDelete, "/alert-rules/rule_1", nil)
	req = req.WithContext(actorContext(types.RoleOperator))
	w := httptest.NewRecorder()

	alertRuleRouter(h).ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}
