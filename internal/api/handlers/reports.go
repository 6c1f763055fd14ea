package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"gridwatch/internal/core"
	"gridwatch/internal/db"
	"gridwatch/internal/reports"
	"gridwatch/internal/types"
)

// ReportGenerator builds report artifacts and regenerates them on download.
type ReportGenerator interface {
	Generate(ctx context.Context, req reports.GenerateRequest) (*reports.Artifact, error)
	Download(ctx context.Context, id string) (*reports.Artifact, error)
}

// ReportRepo defines the data access contract for report metadata queries.
type ReportRepo interface {
	GetByID(ctx context.Context, id string) (*types.Report, error)
	List(ctx context.Context, params db.ListReportsParams) ([]*types.Report, types.PageInfo, error)
}

// GenerateReportRequest is the request body for POST /v1/reports/generate.
type GenerateReportRequest struct {
	Title       string `json:"title,omitempty" validate:"omitempty,max=200"`
	Description string `json:"description,omitempty" validate:"omitempty,max=1000"`
	ReportType  string `json:"report_type,omitempty" validate:"omitempty,max=50"`
	Period      string `json:"period" validate:"required,report_period"`
	BuildingID  string `json:"building_id,omitempty"`
	Format      string `json:"format" validate:"required,report_format"`
}

// ReportHandler manages report generation and retrieval.
type ReportHandler struct {
	generator ReportGenerator
	repo      ReportRepo
	validator *core.Validator
	logger    *slog.Logger
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(generator ReportGenerator, repo ReportRepo, validator *core.Validator, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{
		generator: generator,
		repo:      repo,
		validator: validator,
		logger:    logger,
	}
}

// RegisterRoutes mounts the report routes.
func (h *ReportHandler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/generate", h.Generate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Get("/download", h.Download)
		})
	})
}

// Generate handles POST /v1/reports/generate. The artifact is rendered
// synchronously; the response carries the stored report metadata and
// downloads regenerate the file from it.
func (h *ReportHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateReportRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	artifact, err := h.generator.Generate(r.Context(), reports.GenerateRequest{
		Title:       req.Title,
		Description: req.Description,
		ReportType:  req.ReportType,
		Period:      types.ReportPeriod(req.Period),
		BuildingID:  req.BuildingID,
		Format:      types.ReportFormat(req.Format),
	})
	if err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.Info("report generated",
		"report_id", artifact.Report.ID,
		"period", artifact.Report.Period,
		"format", artifact.Report.Format,
	)
	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: artifact.Report})
}

// Get handles GET /v1/reports/{id}.
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	report, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: report})
}

// Download handles GET /v1/reports/{id}/download. The artifact is
// regenerated from the stored report parameters, so repeated downloads
// cover the same time window. JSON artifacts are gzip-compressed.
func (h *ReportHandler) Download(w http.ResponseWriter, r *http.Request) {
	artifact, err := h.generator.Download(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, r, err)
		return
	}

	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Report.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(artifact.Data)))
	if artifact.Report.Format == types.FormatJSON {
		w.Header().Set("Content-Encoding", "gzip")
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(artifact.Data); err != nil {
		h.logger.Error("report download write failed",
			"report_id", artifact.Report.ID,
			"error", err.Error(),
		)
	}
}

// List handles GET /v1/reports.
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	params := db.ListReportsParams{
		Limit:  queryLimit(r),
		Cursor: r.URL.Query().Get("cursor"),
	}

	rows, page, err := h.repo.List(r.Context(), params)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{
		Data: rows,
		Meta: &types.ResponseMeta{
			Pagination: &page,
		},
	})
}
