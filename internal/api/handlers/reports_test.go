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
	"gridwatch/internal/reports"
	"gridwatch/internal/types"
)

type mockReportGenerator struct {
	generateFn func(ctx context.Context, req reports.GenerateRequest) (*reports.Artifact, error)
	downloadFn func(ctx context.Context, id string) (*reports.Artifact, error)
}

func (m *mockReportGenerator) Generate(ctx context.Context, req reports.GenerateRequest) (*reports.Artifact, error) {
	if m.generateFn != nil {
		return m.generateFn(ctx, req)
	}
	return &reports.Artifact{
		Report:      &types.Report{ID: "rpt_1", Format: types.FormatXLSX, FileName: "report_rpt_1.xlsx"},
		Data:        []byte("xlsx-bytes"),
		ContentType: reports.ContentTypeXLSX,
	}, nil
}

func (m *mockReportGenerator) Download(ctx context.Context, id string) (*reports.Artifact, error) {
	if m.downloadFn != nil {
		return m.downloadFn(ctx, id)
	}
	return &reports.Artifact{
		Report:      &types.Report{ID: id, Format: types.FormatXLSX, FileName: "report_" + id + ".xlsx"},
		Data:        []byte("xlsx-bytes"),
		ContentType: reports.ContentTypeXLSX,
	}, nil
}

type mockReportRepo struct {
	getByIDFn func(ctx context.Context, id string) (*types.Report, error)
	listFn    func(ctx context.Context, params db.ListReportsParams) ([]*types.Report, types.PageInfo, error)
}

func (m *mockReportRepo) GetByID(ctx context.Context, id string) (*types.Report, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return &types.Report{ID: id, Period: types.PeriodWeekly, Format: types.FormatXLSX}, nil
}

func (m *mockReportRepo) List(ctx context.Context, params db.ListReportsParams) ([]*types.Report, types.PageInfo, error) {
	if m.listFn != nil {
		return m.listFn(ctx, params)
	}
	return nil, types.PageInfo{}, nil
}

func newTestReportHandler() (*ReportHandler, *mockReportGenerator, *mockReportRepo) {
	generator := &mockReportGenerator{}
	repo := &mockReportRepo{}
	logger := slog.Default()
	return NewReportHandler(generator, repo, core.NewValidator(logger), logger), generator, repo
}

func reportRouter(h *ReportHandler) chi.Router {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func TestReportHandler_Generate(t *testing.T) {
	h, generator, _ := newTestReportHandler()

	var got reports.GenerateRequest
	generator.generateFn = func(_ context.Context, req reports.GenerateRequest) (*reports.Artifact, error) {
		got = req
		return &reports.Artifact{
			Report: &types.Report{ID: "rpt_1", Period: req.Period, Format: req.Format},
		}, nil
	}

	body := []byte(`{"title":"Weekly consumption","period":"weekly","format":"xlsx","building_id":"bld_1"}`)
	req := httptest.NewRequest(http.MethodPost, "/reports/generate", bytes.NewReader(body))
	req = req.WithContext(actorContext(types.RoleOperator))
	w := httptest.NewRecorder()

	reportRouter(h).ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Weekly consumption", got.Title)
	assert.Equal(t, types.PeriodWeekly, got.Period)
	assert.Equal(t, types.FormatXLSX, got.Format)
	assert.Equal(t, "bld_1", got.BuildingID)
}

func TestReportHandler_Generate_InvalidPeriod(t *testing.T) {
	h, generator, _ := newTestReportHandler()
	generator.generateFn = func(_ context.Context, _ reports.GenerateRequest) (*reports.Artifact, error) {
		t.Fatal("Generate should not be called")
		return nil, nil
	}

	body := []byte(`{"period":"yearly","format":"xlsx"}`)
	req := httptest.NewRequest(http.MethodPost, "/reports/generate", bytes.NewReader(body))
	req = req.WithContext(actorContext(types.RoleOperator))
	w := httptest.NewRecorder()

	reportRouter(h).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportHandler_Download_XLSXHeaders(t *testing.T) {
	h, _, _ := newTestReportHandler()

	req := httptest.NewRequest(http.MethodGet, "/reports/rpt_1/download", nil)
	req = req.WithContext(actorContext(types.RoleOperator))
	w := httptest.NewRecorder()

	reportRouter(h).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, reports.ContentTypeXLSX, w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="report_rpt_1.xlsx"`, w.Header().Get("Content-Disposition"))
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, "xlsx-bytes", w.Body.String())
}

func TestReportHandler_Download_JSONGzipped(t *testing.T) {
	h, generator, _ := newTestReportHandler()

	generator.downloadFn = func(_ context.Context, id string) (*reports.Artifact, error) {
		return &reports.Artifact{
			Report:      &types.Report{ID: id, Format: types.FormatJSON, FileName: "report_" + id + ".json"},
			Data:        []byte("gzip-bytes"),
			ContentType: reports.ContentTypeJSON,
		}, nil
	}

	req := httptest.NewRequest(http.MethodGet, "/reports/rpt_2/download", nil)
	req = req.WithContext(actorContext(types.RoleOperator))
	w := httptest.NewRecorder()

	reportRouter(h).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
}

func TestReportHandler_Download_NotFound(t *testing.T) {
	h, generator, _ := newTestReportHandler()
	generator.downloadFn = func(_ context.Context, _ string) (*reports.Artifact, error) {
		return nil, types.NewAppError(types.ErrCodeNotFoundReport, "report not found", nil)
	}

	req := httptest.NewRequest(http.MethodGet, "/reports/rpt_missing/download", nil)
	req = req.WithContext(actorContext(types.RoleOperator))
	w := httptest.NewRecorder()

	reportRouter(h).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReportHandler_Get(t *testing.T) {
	h, _, repo := newTestReportHandler()

	repo.getByIDFn = func(_ context.Context, id string) (*types.Report, error) {
		assert.Equal(t, "rpt_1", id)
		return &types.Report{ID: id, Period: types.PeriodMonthly}, nil
	}

	req := httptest.NewRequest(http.MethodGet, "/reports/rpt_1", nil)
	req = req.WithContext(actorContext(types.RoleOperator))
	w := httptest.NewRecorder()

	reportRouter(h).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
