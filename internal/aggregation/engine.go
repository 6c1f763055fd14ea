// Package aggregation computes hourly and daily per-meter statistics from
// raw readings and evaluates alert rules against the fresh aggregates.
package aggregation

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"gridwatch/internal/db"
	"gridwatch/internal/types"
)

// ReadingSource provides the readings to aggregate.
type ReadingSource interface {
	ListWindow(ctx context.Context, from, to time.Time, scope db.ReadingScope) ([]*types.Reading, error)
}

// AggregateStore persists computed aggregates.
type AggregateStore interface {
	UpsertBatch(ctx context.Context, aggregates []*types.Aggregate) error
}

// Engine rolls raw readings up into per-meter bucket statistics.
type Engine struct {
	readings ReadingSource
	store    AggregateStore
	clock    types.Clock
	logger   *slog.Logger
}

// NewEngine creates an aggregation engine.
func NewEngine(readings ReadingSource, store AggregateStore, logger *slog.Logger) *Engine {
	return &Engine{
		readings: readings,
		store:    store,
		clock:    types.RealClock{},
		logger:   logger,
	}
}

// bucketKey identifies one aggregation group.
type bucketKey struct {
	meterID string
	bucket  time.Time
}

// Run aggregates all readings in the lookback window ending at target:
// 24 hours for hourly buckets, 30 days for daily. A zero target means now.
// Re-running the same window upserts in place, so runs are idempotent.
// Results are ordered by meter id, then bucket timestamp.
func (e *Engine) Run(ctx context.Context, bucketType types.BucketType, target time.Time, scope db.ReadingScope) ([]*types.Aggregate, error) {
	if !bucketType.IsValid() {
		return nil, types.NewAppError(types.ErrCodeValidationBucketType, "unknown bucket type", nil)
	}

	if target.IsZero() {
		target = e.clock.Now()
	}
	from, to := types.AggregationWindow(bucketType, target)

	readings, err := e.readings.ListWindow(ctx, from, to, scope)
	if err != nil {
		return nil, err
	}
	if len(readings) == 0 {
		return []*types.Aggregate{}, nil
	}

	groups := make(map[bucketKey]*types.Aggregate)
	for _, r := range readings {
		key := bucketKey{meterID: r.MeterID, bucket: types.TruncateToBucket(bucketType, r.Timestamp)}

		agg, ok := groups[key]
		if !ok {
			groups[key] = &types.Aggregate{
				ID:           "agg_" + uuid.New().String(),
				MeterID:      r.MeterID,
				BucketType:   bucketType,
				BucketTS:     key.bucket,
				ReadingCount: 1,
				Sum:          r.Value,
				Min:          r.Value,
				Max:          r.Value,
			}
			continue
		}

		agg.ReadingCount++
		agg.Sum += r.Value
		if r.Value < agg.Min {
			agg.Min = r.Value
		}
		if r.Value > agg.Max {
			agg.Max = r.Value
		}
	}

	aggregates := make([]*types.Aggregate, 0, len(groups))
	now := e.clock.Now()
	for _, agg := range groups {
		agg.Avg = agg.Sum / float64(agg.ReadingCount)
		agg.CreatedAt = now
		aggregates = append(aggregates, agg)
	}

	sort.Slice(aggregates, func(i, j int) bool {
		if aggregates[i].MeterID != aggregates[j].MeterID {
			return aggregates[i].MeterID < aggregates[j].MeterID
		}
		return aggregates[i].BucketTS.Before(aggregates[j].BucketTS)
	})

	if err := e.store.UpsertBatch(ctx, aggregates); err != nil {
		return nil, err
	}

	e.logger.Info("aggregation run complete",
		"bucket_type", string(bucketType),
		"window_from", from,
		"window_to", to,
		"readings", len(readings),
		"aggregates", len(aggregates),
	)
	return aggregates, nil
}
