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

// AlertRepo defines the data access contract for alert operations.
type AlertRepo interface {
	GetByID(ctx context.Context, id string) (*types.Alert, error)
	UpdateStatus(ctx context.Context, id string, from, to types.AlertStatus, actor string) error
	List(ctx context.Context, params db.ListAlertsParams) ([]*types.Alert, types.PageInfo, error)
}

// TransitionAlertRequest is the request body for PATCH /v1/alerts/{id}.
// Actor overrides the authenticated actor's name in the audit fields.
type TransitionAlertRequest struct {
	Status string `json:"status" validate:"required,alert_status"`
	Actor  string `json:"actor,omitempty" validate:"omitempty,max=200"`
}

// AlertHandler serves alert queries and lifecycle transitions.
type AlertHandler struct {
	repo      AlertRepo
	validator *core.Validator
	logger    *slog.Logger
}

// NewAlertHandler creates a new AlertHandler.
func NewAlertHandler(repo AlertRepo, validator *core.Validator, logger *slog.Logger) *AlertHandler {
	return &AlertHandler{
		repo:      repo,
		validator: validator,
		logger:    logger,
	}
}

// RegisterRoutes mounts the alert routes. Transitions are open to operators.
func (h *AlertHandler) RegisterRoutes(r chi.Router) {
	r.Route("/alerts", func(r chi.Router) {
		r.Get("/", h.List)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Patch("/", h.Transition)
		})
	})
}

// Get handles GET /v1/alerts/{id}.
func (h *AlertHandler) Get(w http.ResponseWriter, r *http.Request) {
	alert, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: alert})
}

// Transition handles PATCH /v1/alerts/{id}. Status moves forward only:
// active -> acknowledged -> resolved, with active -> resolved allowed.
// Anything else is a conflict.
func (h *AlertHandler) Transition(w http.ResponseWriter, r *http.Request) {
	var req TransitionAlertRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	id := chi.URLParam(r, "id")
	alert, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	target := types.AlertStatus(req.Status)
	if !alert.Status.CanTransitionTo(target) {
		core.Error(w, r, types.NewAppErrorWithDetails(
			types.ErrCodeConflictAlertTransition,
			"alert status can only move forward",
			nil,
			map[string]any{
				"current_status":   alert.Status,
				"requested_status": target,
			},
		))
		return
	}

	actorName := req.Actor
	if actorName == "" {
		if actor, ok := types.GetActor(r.Context()); ok {
			actorName = actor.Name
		}
	}

	if err := h.repo.UpdateStatus(r.Context(), id, alert.Status, target, actorName); err != nil {
		core.Error(w, r, err)
		return
	}

	updated, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.Info("alert transitioned",
		"alert_id", id,
		"from", alert.Status,
		"to", target,
	)
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: updated})
}

// List handles GET /v1/alerts. Accepts optional status and severity filters,
// newest first.
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	params := db.ListAlertsParams{
		Status:   types.AlertStatus(r.URL.Query().Get("status")),
		Severity: types.AlertSeverity(r.URL.Query().Get("severity")),
		Limit:    queryLimit(r),
		Cursor:   r.URL.Query().Get("cursor"),
	}

	alerts, page, err := h.repo.List(r.Context(), params)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{
		Data: alerts,
		Meta: &types.ResponseMeta{
			Pagination: &page,
		},
	})
}
