// Package ingest validates and persists batches of meter readings. The same
// service backs the HTTP batch endpoint and the Kafka consumer.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"gridwatch/internal/types"
)

// MeterResolver looks up meters during row validation.
type MeterResolver interface {
	GetByID(ctx context.Context, id string) (*types.Meter, error)
	GetByMeterNo(ctx context.Context, meterNo string) (*types.Meter, error)
}

// ReadingWriter persists validated readings.
type ReadingWriter interface {
	CreateBatch(ctx context.Context, readings []*types.Reading) error
}

// ReadingRow is one inbound measurement. The meter is identified by id or by
// meter number; quality defaults to good when absent.
type ReadingRow struct {
	MeterID   string               `json:"meter_id,omitempty"`
	MeterNo   string               `json:"meter_no,omitempty"`
	Value     float64              `json:"value"`
	Timestamp time.Time            `json:"timestamp"`
	Quality   types.ReadingQuality `json:"quality,omitempty"`
}

// BatchResult summarizes one ingestion batch. Partial success is normal:
// invalid rows are reported and the rest are saved.
type BatchResult struct {
	Processed int      `json:"processed"`
	Saved     int      `json:"saved"`
	Errors    []string `json:"errors"`
}

// Service ingests reading batches.
type Service struct {
	meters   MeterResolver
	readings ReadingWriter
	clock    types.Clock
	logger   *slog.Logger
}

// NewService creates a reading ingestion service.
func NewService(meters MeterResolver, readings ReadingWriter, logger *slog.Logger) *Service {
	return &Service{
		meters:   meters,
		readings: readings,
		clock:    types.RealClock{},
		logger:   logger,
	}
}

// IngestBatch validates every row, persists the valid ones in a single
// multi-row insert, and reports per-row failures as "Row N: <reason>"
// messages (first matching rule wins, at most MaxBatchErrorDetail kept).
// A storage failure fails the whole batch.
func (s *Service) IngestBatch(ctx context.Context, rows []ReadingRow) (*BatchResult, error) {
	if len(rows) == 0 {
		return nil, types.NewAppError(types.ErrCodeValidationBatchSize, "batch must contain at least one reading", nil)
	}
	if len(rows) > types.MaxBatchReadings {
		return nil, types.NewAppError(types.ErrCodeValidationBatchSize,
			fmt.Sprintf("batch exceeds %d readings", types.MaxBatchReadings), nil)
	}

	result := &BatchResult{Processed: len(rows), Errors: []string{}}

	// Meter lookups are cached per batch; bulk feeds repeat the same meter.
	byID := make(map[string]*types.Meter)
	byNo := make(map[string]*types.Meter)

	valid := make([]*types.Reading, 0, len(rows))
	now := s.clock.Now()

	for i, row := range rows {
		rowNum := i + 1

		if row.Value <= 0 {
			result.addError(rowNum, "value must be a positive number")
			continue
		}
		if row.Timestamp.IsZero() {
			result.addError(rowNum, "timestamp is required")
			continue
		}

		quality := row.Quality
		if quality == "" {
			quality = types.QualityGood
		}
		if !quality.IsValid() {
			result.addError(rowNum, fmt.Sprintf("unknown quality %q", row.Quality))
			continue
		}

		meter, err := s.resolveMeter(ctx, row, byID, byNo)
		if err != nil {
			return nil, err
		}
		if meter == nil {
			result.addError(rowNum, meterErrorFor(row))
			continue
		}

		valid = append(valid, &types.Reading{
			ID:        "rdg_" + uuid.New().String(),
			MeterID:   meter.ID,
			Value:     row.Value,
			Timestamp: row.Timestamp.UTC(),
			Quality:   quality,
			CreatedAt: now,
		})
	}

	if len(valid) > 0 {
		if err := s.readings.CreateBatch(ctx, valid); err != nil {
			return nil, err
		}
	}
	result.Saved = len(valid)

	s.logger.Info("reading batch ingested",
		"processed", result.Processed,
		"saved", result.Saved,
		"failed", result.Processed-result.Saved,
	)
	return result, nil
}

// resolveMeter finds the row's meter by id, else by meter number. A nil
// meter with nil error means the row does not resolve; infrastructure
// failures propagate.
func (s *Service) resolveMeter(ctx context.Context, row ReadingRow, byID, byNo map[string]*types.Meter) (*types.Meter, error) {
	if row.MeterID != "" {
		if m, ok := byID[row.MeterID]; ok {
			return m, nil
		}
		m, err := s.meters.GetByID(ctx, row.MeterID)
		if err != nil {
			if types.IsNotFound(err) {
				byID[row.MeterID] = nil
				return nil, nil
			}
			return nil, err
		}
		byID[row.MeterID] = m
		return m, nil
	}

	if row.MeterNo != "" {
		if m, ok := byNo[row.MeterNo]; ok {
			return m, nil
		}
		m, err := s.meters.GetByMeterNo(ctx, row.MeterNo)
		if err != nil {
			if types.IsNotFound(err) {
				byNo[row.MeterNo] = nil
				return nil, nil
			}
			return nil, err
		}
		byNo[row.MeterNo] = m
		return m, nil
	}

	return nil, nil
}

// meterErrorFor phrases the resolution failure for one row.
func meterErrorFor(row ReadingRow) string {
	switch {
	case row.MeterID != "":
		return fmt.Sprintf("unknown meter %s", row.MeterID)
	case row.MeterNo != "":
		return fmt.Sprintf("unknown meter number %s", row.MeterNo)
	default:
		return "meter_id or meter_no is required"
	}
}

func (r *BatchResult) addError(rowNum int, reason string) {
	if len(r.Errors) < types.MaxBatchErrorDetail {
		r.Errors = append(r.Errors, fmt.Sprintf("Row %d: %s", rowNum, reason))
	}
}
