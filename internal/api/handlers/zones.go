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

// ZoneRepo defines the data access contract for zone operations.
type ZoneRepo interface {
	Create(ctx context.Context, z *types.Zone) error
	GetByID(ctx context.Context, id string) (*types.Zone, error)
	Update(ctx context.Context, z *types.Zone) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, params db.ListZonesParams) ([]*types.Zone, types.PageInfo, error)
}

// CreateZoneRequest is the request body for POST /v1/zones.
type CreateZoneRequest struct {
	BuildingID  string  `json:"building_id" validate:"required"`
	Name        string  `json:"name" validate:"required,max=200"`
	Floor       int     `json:"floor" validate:"required,gt=0"`
	Area        float64 `json:"area" validate:"required,gt=0"`
	Description string  `json:"description,omitempty" validate:"omitempty,max=1000"`
}

// UpdateZoneRequest is the request body for PATCH /v1/zones/{id}. The parent
// building cannot be changed after creation.
type UpdateZoneRequest struct {
	Name        *string  `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Floor       *int     `json:"floor,omitempty" validate:"omitempty,gt=0"`
	Area        *float64 `json:"area,omitempty" validate:"omitempty,gt=0"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=1000"`
}

// ZoneHandler manages zone CRUD.
type ZoneHandler struct {
	repo      ZoneRepo
	validator *core.Validator
	logger    *slog.Logger
}

// NewZoneHandler creates a new ZoneHandler.
func NewZoneHandler(repo ZoneRepo, validator *core.Validator, logger *slog.Logger) *ZoneHandler {
	return &ZoneHandler{
		repo:      repo,
		validator: validator,
		logger:    logger,
	}
}

// RegisterRoutes mounts the zone routes. Mutations require admin.
func (h *ZoneHandler) RegisterRoutes(r chi.Router) {
	r.Route("/zones", func(r chi.Router) {
		r.Get("/", h.List)
		r.With(requireMinRole(types.RoleAdmin)).Post("/", h.Create)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.With(requireMinRole(types.RoleAdmin)).Patch("/", h.Update)
			r.With(requireMinRole(types.RoleAdmin)).Delete("/", h.Delete)
		})
	})
}

// Create handles POST /v1/zones. An unknown building_id surfaces as a
// validation_unknown_parent error from the repository.
func (h *ZoneHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateZoneRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	now := time.Now().UTC()
	zone := &types.Zone{
		ID:          "zn_" + uuid.New().String(),
		BuildingID:  req.BuildingID,
		Name:        req.Name,
		Floor:       req.Floor,
		Area:        req.Area,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.repo.Create(r.Context(), zone); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.Info("zone created", "zone_id", zone.ID, "building_id", zone.BuildingID)
	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: zone})
}

// Get handles GET /v1/zones/{id}.
func (h *ZoneHandler) Get(w http.ResponseWriter, r *http.Request) {
	zone, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: zone})
}

// Update handles PATCH /v1/zones/{id}.
func (h *ZoneHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateZoneRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	zone, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, r, err)
		return
	}

	if req.Name != nil {
		zone.Name = *req.Name
	}
	if req.Floor != nil {
		zone.Floor = *req.Floor
	}
	if req.Area != nil {
		zone.Area = *req.Area
	}
	if req.Description != nil {
		zone.Description = *req.Description
	}
	zone.UpdatedAt = time.Now().UTC()

	if err := h.repo.Update(r.Context(), zone); err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: zone})
}

// Delete handles DELETE /v1/zones/{id}. Deleting a zone cascades to its
// meters and their readings.
func (h *ZoneHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.repo.Delete(r.Context(), id); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.Info("zone deleted", "zone_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// List handles GET /v1/zones. Accepts an optional building_id filter.
func (h *ZoneHandler) List(w http.ResponseWriter, r *http.Request) {
	params := db.ListZonesParams{
		BuildingID: r.URL.Query().Get("building_id"),
		Limit:      queryLimit(r),
		Cursor:     r.URL.Query().Get("cursor"),
	}

	zones, page, err := h.repo.List(r.Context(), params)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{
		Data: zones,
		Meta: &types.ResponseMeta{
			Pagination: &page,
		},
	})
}
