package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gridwatch/internal/core"
	"gridwatch/internal/db"
	"gridwatch/internal/ingest"
	"gridwatch/internal/types"
)

// ReadingRepo defines the data access contract for reading queries.
type ReadingRepo interface {
	List(ctx context.Context, params db.ListReadingsParams) ([]*types.Reading, types.PageInfo, error)
}

// ReadingIngestor accepts reading batches for validation and storage.
type ReadingIngestor interface {
	IngestBatch(ctx context.Context, rows []ingest.ReadingRow) (*ingest.BatchResult, error)
}

// IngestReadingsRequest is the request body for POST /v1/readings.
type IngestReadingsRequest struct {
	Readings []ingest.ReadingRow `json:"readings"`
}

// ReadingHandler serves reading queries and batch ingestion.
type ReadingHandler struct {
	repo      ReadingRepo
	ingestor  ReadingIngestor
	validator *core.Validator
	logger    *slog.Logger
}

// NewReadingHandler creates a new ReadingHandler.
func NewReadingHandler(repo ReadingRepo, ingestor ReadingIngestor, validator *core.Validator, logger *slog.Logger) *ReadingHandler {
	return &ReadingHandler{
		repo:      repo,
		ingestor:  ingestor,
		validator: validator,
		logger:    logger,
	}
}

// RegisterRoutes mounts the reading routes. Ingestion is open to operators;
// meters push readings with operator-scoped tokens.
func (h *ReadingHandler) RegisterRoutes(r chi.Router) {
	r.Route("/readings", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Ingest)
	})
}

// Ingest handles POST /v1/readings. Row-level failures are reported in the
// response without failing the batch; only an empty or oversized batch, or a
// storage failure, rejects the request outright.
func (h *ReadingHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req IngestReadingsRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	result, err := h.ingestor.IngestBatch(r.Context(), req.Readings)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	status := http.StatusCreated
	if result.Saved == 0 && len(result.Errors) > 0 {
		status = http.StatusUnprocessableEntity
	}
	core.JSON(w, r, status, core.APIResponse{Data: result})
}

// List handles GET /v1/readings. Accepts optional meter_id, from, and to
// filters.
func (h *ReadingHandler) List(w http.ResponseWriter, r *http.Request) {
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

	params := db.ListReadingsParams{
		MeterID: r.URL.Query().Get("meter_id"),
		From:    from,
		To:      to,
		Limit:   queryLimit(r),
		Cursor:  r.URL.Query().Get("cursor"),
	}

	readings, page, err := h.repo.List(r.Context(), params)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{
		Data: readings,
		Meta: &types.ResponseMeta{
			Pagination: &page,
		},
	})
}
