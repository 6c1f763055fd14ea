package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"gridwatch/internal/core"
	"gridwatch/internal/db"
	"gridwatch/internal/jobs"
	"gridwatch/internal/types"
)

// JobRunner executes aggregation runs.
type JobRunner interface {
	RunAggregation(ctx context.Context, jobType types.JobType, opts jobs.RunOptions) (*jobs.RunResult, error)
}

// JobRepo defines the data access contract for job queries.
type JobRepo interface {
	GetByID(ctx context.Context, id string) (*types.Job, error)
	List(ctx context.Context, params db.ListJobsParams) ([]*types.Job, types.PageInfo, error)
}

// RunAggregationRequest is the request body for POST /v1/jobs/aggregate/{type}.
// All fields are optional: an empty target date means "now", an empty scope
// means all meters.
type RunAggregationRequest struct {
	TargetDate *time.Time `json:"target_date,omitempty"`
	BuildingID string     `json:"building_id,omitempty"`
	ZoneID     string     `json:"zone_id,omitempty"`
}

// JobHandler triggers aggregation runs and serves job history.
type JobHandler struct {
	runner    JobRunner
	repo      JobRepo
	validator *core.Validator
	logger    *slog.Logger
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(runner JobRunner, repo JobRepo, validator *core.Validator, logger *slog.Logger) *JobHandler {
	return &JobHandler{
		runner:    runner,
		repo:      repo,
		validator: validator,
		logger:    logger,
	}
}

// RegisterRoutes mounts the job routes.
func (h *JobHandler) RegisterRoutes(r chi.Router) {
	r.Route("/jobs", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Post("/aggregate/{type}", h.RunAggregation)
	})
}

// RunAggregation handles POST /v1/jobs/aggregate/{type} where type is
// "hourly" or "daily". The run executes synchronously and the response
// carries the finished job plus an aggregate preview and triggered alerts.
func (h *JobHandler) RunAggregation(w http.ResponseWriter, r *http.Request) {
	bucketType := types.BucketType(chi.URLParam(r, "type"))
	if !bucketType.IsValid() {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationBucketType,
			"aggregation type must be hourly or daily",
			nil,
		))
		return
	}

	var req RunAggregationRequest
	if r.ContentLength > 0 {
		if err := core.DecodeJSON(w, r, &req); err != nil {
			core.Error(w, r, err)
			return
		}
	}

	opts := jobs.RunOptions{
		BuildingID: req.BuildingID,
		ZoneID:     req.ZoneID,
	}
	if req.TargetDate != nil {
		opts.TargetDate = req.TargetDate.UTC()
	}

	result, err := h.runner.RunAggregation(r.Context(), types.JobTypeForBucket(bucketType), opts)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: result})
}

// Get handles GET /v1/jobs/{id}.
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	job, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: job})
}

// List handles GET /v1/jobs. Accepts optional status and job_type filters,
// newest first.
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	status := types.JobStatus(r.URL.Query().Get("status"))
	jobType := types.JobType(r.URL.Query().Get("job_type"))

	params := db.ListJobsParams{
		Status:  status,
		JobType: jobType,
		Limit:   queryLimit(r),
		Cursor:  r.URL.Query().Get("cursor"),
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
