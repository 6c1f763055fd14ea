package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"gridwatch/internal/core"
	"gridwatch/internal/db"
	"gridwatch/internal/types"
)

// MeterRepo defines the data access contract for meter operations.
type MeterRepo interface {
	Create(ctx context.Context, m *types.Meter) error
	GetByID(ctx context.Context, id string) (*types.Meter, error)
	Update(ctx context.Context, m *types.Meter) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, params db.ListMetersParams) ([]*types.Meter, types.PageInfo, error)
}

// MeterZoneResolver looks up the parent zone so the meter row can carry the
// denormalized building id.
type MeterZoneResolver interface {
	GetByID(ctx context.Context, id string) (*types.Zone, error)
}

// CreateMeterRequest is the request body for POST /v1/meters.
type CreateMeterRequest struct {
	ZoneID      string `json:"zone_id" validate:"required"`
	Name        string `json:"name" validate:"required,max=200"`
	MeterNo     string `json:"meter_no" validate:"required,meter_no"`
	Location    string `json:"location,omitempty" validate:"omitempty,max=200"`
	Description string `json:"description,omitempty" validate:"omitempty,max=1000"`
}

// UpdateMeterRequest is the request body for PATCH /v1/meters/{id}. The
// meter number and parent zone are immutable.
type UpdateMeterRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Location    *string `json:"location,omitempty" validate:"omitempty,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=1000"`
}

// MeterHandler manages meter CRUD.
type MeterHandler struct {
	repo      MeterRepo
	zones     MeterZoneResolver
	validator *core.Validator
	logger    *slog.Logger
}

// NewMeterHandler creates a new MeterHandler.
func NewMeterHandler(repo MeterRepo, zones MeterZoneResolver, validator *core.Validator, logger *slog.Logger) *MeterHandler {
	return &MeterHandler{
		repo:      repo,
		zones:     zones,
		validator: validator,
		logger:    logger,
	}
}

// RegisterRoutes mounts the meter routes. Mutations require admin.
func (h *MeterHandler) RegisterRoutes(r chi.Router) {
	r.Route("/meters", func(r chi.Router) {
		r.Get("/", h.List)
		r.With(requireMinRole(types.RoleAdmin)).Post("/", h.Create)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.With(requireMinRole(types.RoleAdmin)).Patch("/", h.Update)
			r.With(requireMinRole(types.RoleAdmin)).Delete("/", h.Delete)
		})
	})
}

// Create handles POST /v1/meters. The parent zone is resolved first so the
// meter carries its building id.
func (h *MeterHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateMeterRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	zone, err := h.zones.GetByID(r.Context(), req.ZoneID)
	if err != nil {
		if types.IsNotFound(err) {
			core.Error(w, r, types.NewAppError(
				types.ErrCodeValidationUnknownParent,
				"zone_id does not reference an existing zone",
				err,
			))
			return
		}
		core.Error(w, r, err)
		return
	}

	now := time.Now().UTC()
	meter := &types.Meter{
		ID:          "mtr_" + uuid.New().String(),
		ZoneID:      zone.ID,
		BuildingID:  zone.BuildingID,
		Name:        req.Name,
		MeterNo:     req.MeterNo,
		Location:    req.Location,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.repo.Create(r.Context(), meter); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.Info("meter created", "meter_id", meter.ID, "meter_no", meter.MeterNo)
	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: meter})
}

// Get handles GET /v1/meters/{id}.
func (h *MeterHandler) Get(w http.ResponseWriter, r *http.Request) {
	meter, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: meter})
}

// Update handles PATCH /v1/meters/{id}.
func (h *MeterHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateMeterRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	meter, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, r, err)
		return
	}

	if req.Name != nil {
		meter.Name = *req.Name
	}
	if req.Location != nil {
		meter.Location = *req.Location
	}
	if req.Description != nil {
		meter.Description = *req.Description
	}
	meter.UpdatedAt = time.Now().UTC()

	if err := h.repo.Update(r.Context(), meter); err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: meter})
}

// Delete handles DELETE /v1/meters/{id}. Deleting a meter cascades to its
// readings and aggregates.
func (h *MeterHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.repo.Delete(r.Context(), id); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.Info("meter deleted", "meter_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// List handles GET /v1/meters. Accepts optional zone_id and building_id
// filters.
func (h *MeterHandler) List(w http.ResponseWriter, r *http.Request) {
	params := db.ListMetersParams{
		ZoneID:     r.URL.Query().Get("zone_id"),
		BuildingID: r.URL.Query().Get("building_id"),
		Limit:      queryLimit(r),
		Cursor:     r.URL.Query().Get("cursor"),
	}

	meters, page, err := h.repo.List(r.Context(), params)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{
		Data: meters,
		Meta: &types.ResponseMeta{
			Pagination: &page,
		},
	})
}
