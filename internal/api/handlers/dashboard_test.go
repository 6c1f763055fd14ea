package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridwatch/internal/types"
)

type mockOverviewProvider struct {
	overviewFn func(ctx context.Context) (*types.DashboardOverview, error)
}

func (m *mockOverviewProvider) Overview(ctx context.Context) (*types.DashboardOverview, error) {
	if m.overviewFn != nil {
		return m.overviewFn(ctx)
	}
	return &types.DashboardOverview{}, nil
}

func TestDashboardHandler_Overview(t *testing.T) {
	provider := &mockOverviewProvider{
		overviewFn: func(_ context.Context) (*types.DashboardOverview, error) {
			return &types.DashboardOverview{
				Counts:           types.EntityCounts{Buildings: 2, Zones: 5, Meters: 12, Readings: 4800},
				ActiveAlertCount: 3,
			}, nil
		},
	}
	h := NewDashboardHandler(provider, slog.Default())

	req := httptest.NewRequest(http.MethodGet, "/v1/dashboard", nil)
	req = req.WithContext(actorContext(types.RoleOperator))
	w := httptest.NewRecorder()

	h.Overview(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data types.DashboardOverview `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Data.Counts.Buildings)
	assert.Equal(t, 3, resp.Data.ActiveAlertCount)
}

func TestDashboardHandler_Overview_SourceError(t *testing.T) {
	provider := &mockOverviewProvider{
		overviewFn: func(_ context.Context) (*types.DashboardOverview, error) {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "count failed", nil)
		},
	}
	h := NewDashboardHandler(provider, slog.Default())

	req := httptest.NewRequest(http.MethodGet, "/v1/dashboard", nil)
	req = req.WithContext(actorContext(types.RoleOperator))
	w := httptest.NewRecorder()

	h.Overview(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, string(types.ErrCodeInternalDB), decodeErrorCode(t, w))
}
