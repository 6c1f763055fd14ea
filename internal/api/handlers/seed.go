package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gridwatch/internal/core"
	"gridwatch/internal/seed"
	"gridwatch/internal/types"
)

// DemoSeeder resets and recreates the demo fixture.
type DemoSeeder interface {
	Seed(ctx context.Context) (*seed.Result, error)
}

// SeedHandler serves the demo seed endpoint. The route is only mounted when
// seeding is enabled in config, and never in production.
type SeedHandler struct {
	seeder DemoSeeder
	logger *slog.Logger
}

// NewSeedHandler creates a new SeedHandler.
func NewSeedHandler(seeder DemoSeeder, logger *slog.Logger) *SeedHandler {
	return &SeedHandler{
		seeder: seeder,
		logger: logger,
	}
}

// RegisterRoutes mounts the seed route. Admin only.
func (h *SeedHandler) RegisterRoutes(r chi.Router) {
	r.With(requireMinRole(types.RoleAdmin)).Post("/seed", h.Seed)
}

// Seed handles POST /v1/seed. Re-seeding replaces the previous demo fixture.
func (h *SeedHandler) Seed(w http.ResponseWriter, r *http.Request) {
	result, err := h.seeder.Seed(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.Info("demo data seeded",
		"buildings", result.Buildings,
		"readings", result.Readings,
	)
	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: result})
}
