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

// AlertRuleRepo defines the data access contract for alert rule operations.
type AlertRuleRepo interface {
	Create(ctx context.Context, ar *types.AlertRule) error
	GetByID(ctx context.Context, id string) (*types.AlertRule, error)
	Update(ctx context.Context, ar *types.AlertRule) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, params db.ListAlertRulesParams) ([]*types.AlertRule, types.PageInfo, error)
}

// CreateAlertRuleRequest is the request body for POST /v1/alert-rules.
// Enabled defaults to true when omitted.
type CreateAlertRuleRequest struct {
	Name         string  `json:"name" validate:"required,max=200"`
	Description  string  `json:"description,omitempty" validate:"omitempty,max=1000"`
	MetricType   string  `json:"metric_type" validate:"required,metric_type"`
	Comparison   string  `json:"comparison" validate:"required,comparison"`
	Threshold    float64 `json:"threshold" validate:"required"`
	Unit         string  `json:"unit" validate:"required,max=20"`
	BuildingName string  `json:"building_name,omitempty" validate:"omitempty,max=200"`
	ZoneName     string  `json:"zone_name,omitempty" validate:"omitempty,max=200"`
	Severity     string  `json:"severity" validate:"required,alert_severity"`
	Enabled      *bool   `json:"enabled,omitempty"`
}

// UpdateAlertRuleRequest is the request body for PATCH /v1/alert-rules/{id}.
type UpdateAlertRuleRequest struct {
	Name         *string  `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description  *string  `json:"description,omitempty" validate:"omitempty,max=1000"`
	MetricType   *string  `json:"metric_type,omitempty" validate:"omitempty,metric_type"`
	Comparison   *string  `json:"comparison,omitempty" validate:"omitempty,comparison"`
	Threshold    *float64 `json:"threshold,omitempty"`
	Unit         *string  `json:"unit,omitempty" validate:"omitempty,min=1,max=20"`
	BuildingName *string  `json:"building_name,omitempty" validate:"omitempty,max=200"`
	ZoneName     *string  `json:"zone_name,omitempty" validate:"omitempty,max=200"`
	Severity     *string  `json:"severity,omitempty" validate:"omitempty,alert_severity"`
	Enabled      *bool    `json:"enabled,omitempty"`
}

// AlertRuleHandler manages alert rule CRUD.
type AlertRuleHandler struct {
	repo      AlertRuleRepo
	validator *core.Validator
	logger    *slog.Logger
}

// NewAlertRuleHandler creates a new AlertRuleHandler.
func NewAlertRuleHandler(repo AlertRuleRepo, validator *core.Validator, logger *slog.Logger) *AlertRuleHandler {
	return &AlertRuleHandler{
		repo:      repo,
		validator: validator,
		logger:    logger,
	}
}

// RegisterRoutes mounts the alert rule routes. Mutations require admin.
func (h *AlertRuleHandler) RegisterRoutes(r chi.Router) {
	r.Route("/alert-rules", func(r chi.Router) {
		r.Get("/", h.List)
		r.With(requireMinRole(types.RoleAdmin)).Post("/", h.Create)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.With(requireMinRole(types.RoleAdmin)).Patch("/", h.Update)
			r.With(requireMinRole(types.RoleAdmin)).Delete("/", h.Delete)
		})
	})
}

// Create handles POST /v1/alert-rules.
func (h *AlertRuleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateAlertRuleRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	now := time.Now().UTC()
	rule := &types.AlertRule{
		ID:           "rule_" + uuid.New().String(),
		Name:         req.Name,
		Description:  req.Description,
		MetricType:   types.MetricType(req.MetricType),
		Comparison:   types.Comparison(req.Comparison),
		Threshold:    req.Threshold,
		Unit:         req.Unit,
		BuildingName: req.BuildingName,
		ZoneName:     req.ZoneName,
		Severity:     types.AlertSeverity(req.Severity),
		Enabled:      enabled,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.repo.Create(r.Context(), rule); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.Info("alert rule created", "rule_id", rule.ID, "metric_type", rule.MetricType)
	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: rule})
}

// Get handles GET /v1/alert-rules/{id}.
func (h *AlertRuleHandler) Get(w http.ResponseWriter, r *http.Request) {
	rule, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: rule})
}

// Update handles PATCH /v1/alert-rules/{id}.
func (h *AlertRuleHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateAlertRuleRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	rule, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, r, err)
		return
	}

	if req.Name != nil {
		rule.Name = *req.Name
	}
	if req.Description != nil {
		rule.Description = *req.Description
	}
	if req.MetricType != nil {
		rule.MetricType = types.MetricType(*req.MetricType)
	}
	if req.Comparison != nil {
		rule.Comparison = types.Comparison(*req.Comparison)
	}
	if req.Threshold != nil {
		rule.Threshold = *req.Threshold
	}
	if req.Unit != nil {
		rule.Unit = *req.Unit
	}
	if req.BuildingName != nil {
		rule.BuildingName = *req.BuildingName
	}
	if req.ZoneName != nil {
		rule.ZoneName = *req.ZoneName
	}
	if req.Severity != nil {
		rule.Severity = types.AlertSeverity(*req.Severity)
	}
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}
	rule.UpdatedAt = time.Now().UTC()

	if err := h.repo.Update(r.Context(), rule); err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: rule})
}

// Delete handles DELETE /v1/alert-rules/{id}. Alerts already raised by the
// rule survive deletion.
func (h *AlertRuleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.repo.Delete(r.Context(), id); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.Info("alert rule deleted", "rule_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// List handles GET /v1/alert-rules.
func (h *AlertRuleHandler) List(w http.ResponseWriter, r *http.Request) {
	params := db.ListAlertRulesParams{
		Limit:  queryLimit(r),
		Cursor: r.URL.Query().Get("cursor"),
	}

	rules, page, err := h.repo.List(r.Context(), params)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{
		Data: rules,
		Meta: &types.ResponseMeta{
			Pagination: &page,
		},
	})
}
