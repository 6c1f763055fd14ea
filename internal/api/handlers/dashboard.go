package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gridwatch/internal/core"
	"gridwatch/internal/types"
)

// OverviewProvider computes the dashboard read model.
type OverviewProvider interface {
	Overview(ctx context.Context) (*types.DashboardOverview, error)
}

// DashboardHandler serves the dashboard overview.
type DashboardHandler struct {
	provider OverviewProvider
	logger   *slog.Logger
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(provider OverviewProvider, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		provider: provider,
		logger:   logger,
	}
}

// RegisterRoutes mounts the dashboard route.
func (h *DashboardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/dashboard", h.Overview)
}

// Overview handles GET /v1/dashboard.
func (h *DashboardHandler) Overview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.provider.Overview(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: overview})
}
