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

type mockZoneRepo struct {
	createFn  func(ctx context.Context, z *types.Zone) error
	getByIDFn func(ctx context.Context, id string) (*types.Zone, error)
	updateFn  func(ctx context.Context, z *types.Zone) error
	deleteFn  func(ctx context.Context, id string) error
	listFn    func(ctx context.Context, params db.ListZonesParams) ([]*types.Zone, types.PageInfo, error)
}

func (m *mockZoneRepo) Create(ctx context.Context, z *types.Zone) error {
	if m.createFn != nil {
		return m.createFn(ctx, z)
	}
	return nil
}

func (m *mockZoneRepo) GetByID(ctx context.Context, id string) (*types.Zone, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return &types.Zone{
		ID:         id,
		BuildingID: "bld_1",
		Name:       "Floor 1",
		Floor:      1,
		Area:       100,
	}, nil
}

func (m *mockZoneRepo) Update(ctx context.Context, z *types.Zone) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, z)
	}
	return nil
}

func (m *mockZoneRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockZoneRepo) List(ctx context.Context, params db.ListZonesParams) ([]*types.Zone, types.PageInfo, error) {
	if m.listFn != nil {
		return m.listFn(ctx, params)
	}
	return nil, types.PageInfo{}, nil
}

func newTestZoneHandler() (*ZoneHandler, *mockZoneRepo) {
	repo := &mockZoneRepo{}
	logger := slog.Default()
	return NewZoneHandler(repo, core.NewValidator(logger), logger), repo
}

func zoneRouter(h *ZoneHandler) chi.Router {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func TestZoneHandler_Create(t *testing.T) {
	h, repo := newTestZoneHandler()

	var created *types.Zone
	repo.createFn = func(_ context.Context, z *types.Zone) error {
		created = z
		return nil
	}

	body := []byte(`{"building_id":"bld_1","name":"Floor 1","floor":1,"area":100}`)
	req := httptest.NewRequest(http.MethodPost, "/zones", bytes.NewReader(body))
	req = req.WithContext(actorContext(types.RoleAdmin))
	w := httptest.NewRecorder()

	zoneRouter(h).ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, created)
	assert.Regexp(t, `^zn_`, created.ID)
	assert.Equal(t, "bld_1", created.BuildingID)
	assert.Equal(t, 1, created.Floor)
	assert.Equal(t, 100.0, created.Area)
}

func TestZoneHandler_Create_UnknownBuilding(t *testing.T) {
	h, repo := newTestZoneHandler()
	repo.createFn = func(_ context.Context, _ *types.Zone) error {
		return types.NewAppError(types.ErrCodeValidationUnknownParent, "building does not exist", nil)
	}

	body := []byte(`{"building_id":"bld_missing","name":"Floor 1","floor":1,"area":100}`)
	req := httptest.NewRequest(http.MethodPost, "/zones", bytes.NewReader(body))
	req = req.WithContext(actorContext(types.RoleAdmin))
	w := httptest.NewRecorder()

	zoneRouter(h).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(types.ErrCodeValidationUnknownParent), decodeErrorCode(t, w))
}

func TestZoneHandler_Create_MissingBuildingID(t *testing.T) {
	h, _ := newTestZoneHandler()

	body := []byte(`{"name":"Floor 1","floor":1,"area":100}`)
	req := httptest.NewRequest(http.MethodPost, "/zones", bytes.NewReader(body))
	req = req.WithContext(actorContext(types.RoleAdmin))
	w := httptest.NewRecorder()

	zoneRouter(h).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestZoneHandler_Update_KeepsParent(t *testing.T) {
	h, repo := newTestZoneHandler()

	var updated *types.Zone
	repo.updateFn = func(_ context.Context, z *types.Zone) error {
		updated = z
		return nil
	}

	body := []byte(`{"name":"Floor 1 East","area":60}`)
	req := httptest.NewRequest(http.MethodPatch, "/zones/zn_1", bytes.NewReader(body))
	req = req.WithContext(actorContext(types.RoleAdmin))
	w := httptest.NewRecorder()

	zoneRouter(h).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, updated)
	assert.Equal(t, "Floor 1 East", updated.Name)
	assert.Equal(t, 60.0, updated.Area)
	assert.Equal(t, "bld_1", updated.BuildingID)
}

func TestZoneHandler_Delete_OperatorForbidden(t *testing.T) {
	h, _ := newTestZoneHandler()

	req := httptest.NewRequest(http.MethodDelete, "/zones/zn_1", nil)
	req = req.WithContext(actorContext(types.RoleOperator))
	w := httptest.NewRecorder()

	zoneRouter(h).ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestZoneHandler_List_BuildingFilter(t *testing.T) {
	h, repo := newTestZoneHandler()

	repo.listFn = func(_ context.Context, params db.ListZonesParams) ([]*types.Zone, types.PageInfo, error) {
		assert.Equal(t, "bld_1", params.BuildingID)
		return []*types.Zone{{ID: "zn_1"}}, types.PageInfo{}, nil
	}

	req := httptest.NewRequest(http.MethodGet, "/zones?building_id=bld_1", nil)
	req = req.WithContext(actorContext(types.RoleOperator))
	w := httptest.NewRecorder()

	zoneRouter(h).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
