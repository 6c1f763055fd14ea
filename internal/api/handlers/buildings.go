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

// BuildingRepo defines the data access contract for building operations.
type BuildingRepo interface {
	Create(ctx context.Context, b *types.Building) error
	GetByID(ctx context.Context, id string) (*types.Building, error)
	Update(ctx context.Context, b *types.Building) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, params db.ListBuildingsParams) ([]*types.Building, types.PageInfo, error)
}

// CreateBuildingRequest is the request body for POST /v1/buildings.
type CreateBuildingRequest struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Address     string  `json:"address" validate:"required,max=500"`
	Area        float64 `json:"area" validate:"required,gt=0"`
	Floors      int     `json:"floors" validate:"required,gt=0"`
	Description string  `json:"description,omitempty" validate:"omitempty,max=1000"`
}

// UpdateBuildingRequest is the request body for PATCH /v1/buildings/{id}.
// Only the fields present in the body are changed.
type UpdateBuildingRequest struct {
	Name        *string  `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Address     *string  `json:"address,omitempty" validate:"omitempty,min=1,max=500"`
	Area        *float64 `json:"area,omitempty" validate:"omitempty,gt=0"`
	Floors      *int     `json:"floors,omitempty" validate:"omitempty,gt=0"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=1000"`
}

// BuildingHandler manages building CRUD.
type BuildingHandler struct {
	repo      BuildingRepo
	validator *core.Validator
	logger    *slog.Logger
}

// NewBuildingHandler creates a new BuildingHandler.
func NewBuildingHandler(repo BuildingRepo, validator *core.Validator, logger *slog.Logger) *BuildingHandler {
	return &BuildingHandler{
		repo:      repo,
		validator: validator,
		logger:    logger,
	}
}

// RegisterRoutes mounts the building routes. Mutations require admin.
func (h *BuildingHandler) RegisterRoutes(r chi.Router) {
	r.Route("/buildings", func(r chi.Router) {
		r.Get("/", h.List)
		r.With(requireMinRole(types.RoleAdmin)).Post("/", h.Create)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.With(requireMinRole(types.RoleAdmin)).Patch("/", h.Update)
			r.With(requireMinRole(types.RoleAdmin)).Delete("/", h.Delete)
		})
	})
}

// Create handles POST /v1/buildings.
func (h *BuildingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateBuildingRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	now := time.Now().UTC()
	building := &types.Building{
		ID:          "bld_" + uuid.New().String(),
		Name:        req.Name,
		Address:     req.Address,
		Area:        req.Area,
		Floors:      req.Floors,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.repo.Create(r.Context(), building); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.Info("building created", "building_id", building.ID)
	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: building})
}

// Get handles GET /v1/buildings/{id}.
func (h *BuildingHandler) Get(w http.ResponseWriter, r *http.Request) {
	building, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: building})
}

// Update handles PATCH /v1/buildings/{id}.
func (h *BuildingHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateBuildingRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	building, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, r, err)
		return
	}

	if req.Name != nil {
		building.Name = *req.Name
	}
	if req.Address != nil {
		building.Address = *req.Address
	}
	if req.Area != nil {
		building.Area = *req.Area
	}
	if req.Floors != nil {
		building.Floors = *req.Floors
	}
	if req.Description != nil {
		building.Description = *req.Description
	}
	building.UpdatedAt = time.Now().UTC()

	if err := h.repo.Update(r.Context(), building); err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: building})
}

// Delete handles DELETE /v1/buildings/{id}. Deleting a building cascades to
// its zones, meters, and readings.
func (h *BuildingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.repo.Delete(r.Context(), id); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.Info("building deleted", "building_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// List handles GET /v1/buildings.
func (h *BuildingHandler) List(w http.ResponseWriter, r *http.Request) {
	params := db.ListBuildingsParams{
		Limit:  queryLimit(r),
		Cursor: r.URL.Query().Get("cursor"),
	}

	buildings, page, err := h.repo.List(r.Context(), params)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{
		Data: buildings,
		Meta: &types.ResponseMeta{
			Pagination: &page,
		},
	})
}
