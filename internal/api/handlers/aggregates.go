package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gridwatch/internal/core"
	"gridwatch/internal/db"
	"gridwatch/internal/types"
)

// AggregateRepo defines the data access contract for aggregate queries.
type AggregateRepo interface {
	List(ctx context.Context, params db.ListAggregatesParams) ([]*types.Aggregate, types.PageInfo, error)
}

// AggregateHandler serves computed aggregates.
type AggregateHandler struct {
	repo   AggregateRepo
	logger *slog.Logger
}

// NewAggregateHandler creates a new AggregateHandler.
func NewAggregateHandler(repo AggregateRepo, logger *slog.Logger) *AggregateHandler {
	return &AggregateHandler{
		repo:   repo,
		logger: logger,
	}
}

// RegisterRoutes mounts the aggregate routes.
func (h *AggregateHandler) RegisterRoutes(r chi.Router) {
	r.Get("/aggregates/{type}", h.List)
}

// List handles GET /v1/aggregates/{type} where type is "hourly" or "daily".
// Accepts optional from, to, meter_id, and building_id filters.
func (h *AggregateHandler) List(w http.ResponseWriter, r *http.Request) {
	bucketType := types.BucketType(chi.URLParam(r, "type"))
	if !bucketType.IsValid() {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationBucketType,
			"aggregate type must be hourly or daily",
			nil,
		))
		return
	}

	from, err := queryTime(r, "from")
	if err != nil {
		core.Error(w, r, err)
		return
	}
	to, err := queryTime(r, "to")
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationTimeWindow,
			"to must not be before from",
			nil,
		))
		return
	}

	params := db.ListAggregatesParams{
		BucketType: bucketType,
		MeterID:    r.URL.Query().Get("meter_id"),
		BuildingID: r.URL.Query().Get("building_id"),
		From:       from,
		To:         to,
		Limit:      queryLimit(r),
		Cursor:     r.URL.Query().Get("cursor"),
	}

	aggregates, page, err := h.repo.List(r.Context(), params)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{
		Data: aggregates,
		Meta: &types.ResponseMeta{
			Pagination: &page,
		},
	})
}
