package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"gridwatch/internal/types"
)

// ListAggregatesParams defines the filtering and pagination parameters for
// listing aggregates.
type ListAggregatesParams struct {
	BucketType types.BucketType `json:"bucket_type"`
	MeterID    string           `json:"meter_id"`
	BuildingID string           `json:"building_id"`
	From       time.Time        `json:"from"`
	To         time.Time        `json:"to"`
	Limit      int              `json:"limit"`
	Cursor     string           `json:"cursor"`
}

// AggregateRepository provides data access for the aggregates table.
type AggregateRepository struct {
	db DBTX
}

// NewAggregateRepository creates a new AggregateRepository backed by the
// given database connection (pool or transaction).
func NewAggregateRepository(db DBTX) *AggregateRepository {
	return &AggregateRepository{db: db}
}

const aggregateColumns = `a.id, a.meter_id, a.bucket_type, a.bucket_ts,
	a.reading_count, a.sum, a.avg, a.min, a.max, a.created_at`

// scanAggregate scans a single aggregate row. The columns must match the
// order defined in aggregateColumns.
func scanAggregate(row pgx.Row) (*types.Aggregate, error) {
	var a types.Aggregate
	err := row.Scan(
		&a.ID,
		&a.MeterID,
		&a.BucketType,
		&a.BucketTS,
		&a.ReadingCount,
		&a.Sum,
		&a.Avg,
		&a.Min,
		&a.Max,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// UpsertBatch writes aggregates in a single multi-row INSERT with
// ON CONFLICT (meter_id, bucket_type, bucket_ts) DO UPDATE, so re-running
// an aggregation window refreshes the existing rows instead of duplicating
// them. The existing row keeps its id and created_at.
func (r *AggregateRepository) UpsertBatch(ctx context.Context, aggregates []*types.Aggregate) error {
	if len(aggregates) == 0 {
		return nil
	}

	const colCount = 9
	var sb strings.Builder
	sb.WriteString(`INSERT INTO aggregates (
		id, meter_id, bucket_type, bucket_ts,
		reading_count, sum, avg, min, max
	) VALUES `)

	args := make([]any, 0, len(aggregates)*colCount)
	for i, a := range aggregates {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * colCount
		sb.WriteString("(")
		for j := 0; j < colCount; j++ {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(fmt.Sprintf("$%d", base+j+1))
		}
		sb.WriteString(")")

		args = append(args,
			a.ID,
			a.MeterID,
			a.BucketType,
			a.BucketTS,
			a.ReadingCount,
			a.Sum,
			a.Avg,
			a.Min,
			a.Max,
		)
	}

	sb.WriteString(` ON CONFLICT (meter_id, bucket_type, bucket_ts) DO UPDATE SET
		reading_count = EXCLUDED.reading_count,
		sum = EXCLUDED.sum,
		avg = EXCLUDED.avg,
		min = EXCLUDED.min,
		max = EXCLUDED.max`)

	_, err := r.db.Exec(ctx, sb.String(), args...)
	if err != nil {
		if isForeignKeyViolation(err) {
			return types.NewAppError(types.ErrCodeValidationUnknownParent, "aggregate references a missing meter", err)
		}
		return types.NewAppError(types.ErrCodeInternalDB, "failed to upsert aggregates", err)
	}
	return nil
}

// List retrieves aggregates of one bucket type, optionally filtered by
// meter, building, and time range, with cursor-based pagination ordered by
// bucket_ts DESC.
func (r *AggregateRepository) List(ctx context.Context, params ListAggregatesParams) ([]*types.Aggregate, types.PageInfo, error) {
	limit := types.ClampLimit(params.Limit)

	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, fmt.Sprintf("a.bucket_type = $%d", argIdx))
	args = append(args, params.BucketType)
	argIdx++

	if params.MeterID != "" {
		conditions = append(conditions, fmt.Sprintf("a.meter_id = $%d", argIdx))
		args = append(args, params.MeterID)
		argIdx++
	}

	joinClause := ""
	if params.BuildingID != "" {
		joinClause = "JOIN meters m ON m.id = a.meter_id"
		conditions = append(conditions, fmt.Sprintf("m.building_id = $%d", argIdx))
		args = append(args, params.BuildingID)
		argIdx++
	}

	if !params.From.IsZero() {
		conditions = append(conditions, fmt.Sprintf("a.bucket_ts >= $%d", argIdx))
		args = append(args, params.From)
		argIdx++
	}

	if !params.To.IsZero() {
		conditions = append(conditions, fmt.Sprintf("a.bucket_ts <= $%d", argIdx))
		args = append(args, params.To)
		argIdx++
	}

	if params.Cursor != "" {
		cursorTime, err := time.Parse(time.RFC3339Nano, params.Cursor)
		if err != nil {
			return nil, types.PageInfo{}, types.NewAppError(
				types.ErrCodeValidationMissingField,
				"invalid cursor format; expected RFC3339 timestamp",
				err,
			)
		}
		conditions = append(conditions, fmt.Sprintf("a.bucket_ts < $%d", argIdx))
		args = append(args, cursorTime)
		argIdx++
	}

	query := fmt.Sprintf(
		`SELECT %s
		 FROM aggregates a
		 %s
		 WHERE %s
		 ORDER BY a.bucket_ts DESC
		 LIMIT $%d`,
		aggregateColumns,
		joinClause,
		strings.Join(conditions, " AND "),
		argIdx,
	)
	args = append(args, limit+1)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, types.PageInfo{}, types.NewAppError(types.ErrCodeInternalDB, "failed to list aggregates", err)
	}
	defer rows.Close()

	var results []*types.Aggregate
	for rows.Next() {
		a, scanErr := scanAggregate(rows)
		if scanErr != nil {
			return nil, types.PageInfo{}, types.NewAppError(types.ErrCodeInternalDB, "failed to scan aggregate row", scanErr)
		}
		results = append(results, a)
	}
	if err := rows.Err(); err != nil {
		return nil, types.PageInfo{}, types.NewAppError(types.ErrCodeInternalDB, "error iterating aggregate rows", err)
	}

	pageInfo := types.PageInfo{}
	if len(results) > limit {
		pageInfo.HasMore = true
		pageInfo.NextCursor = results[limit-1].BucketTS.Format(time.RFC3339Nano)
		results = results[:limit]
	}

	return results, pageInfo, nil
}

// ListRange retrieves all aggregates of one bucket type in [from, to],
// optionally scoped to one building. Report generation consumes the result,
// so rows are ordered by bucket_ts then meter.
func (r *AggregateRepository) ListRange(ctx context.Context, bucketType types.BucketType, from, to time.Time, buildingID string) ([]*types.Aggregate, error) {
	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, fmt.Sprintf("a.bucket_type = $%d", argIdx))
	args = append(args, bucketType)
	argIdx++

	conditions = append(conditions, fmt.Sprintf("a.bucket_ts >= $%d", argIdx))
	args = append(args, from)
	argIdx++

	conditions = append(conditions, fmt.Sprintf("a.bucket_ts <= $%d", argIdx))
	args = append(args, to)
	argIdx++

	joinClause := ""
	if buildingID != "" {
		joinClause = "JOIN meters m ON m.id = a.meter_id"
		conditions = append(conditions, fmt.Sprintf("m.building_id = $%d", argIdx))
		args = append(args, buildingID)
		argIdx++
	}

	query := fmt.Sprintf(
		`SELECT %s
		 FROM aggregates a
		 %s
		 WHERE %s
		 ORDER BY a.bucket_ts, a.meter_id`,
		aggregateColumns,
		joinClause,
		strings.Join(conditions, " AND "),
	)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query aggregate range", err)
	}
	defer rows.Close()

	var results []*types.Aggregate
	for rows.Next() {
		a, scanErr := scanAggregate(rows)
		if scanErr != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan aggregate row", scanErr)
		}
		results = append(results, a)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating aggregate range rows", err)
	}

	return results, nil
}

// HourlyTotals returns the total consumption across all meters for each
// hourly bucket in [from, to], ordered chronologically. Used by the
// dashboard chart.
func (r *AggregateRepository) HourlyTotals(ctx context.Context, from, to time.Time) ([]types.SeriesPoint, error) {
	rows, err := r.db.Query(ctx,
		`SELECT bucket_ts, SUM(sum) AS total
		 FROM aggregates
		 WHERE bucket_type = $1 AND bucket_ts >= $2 AND bucket_ts <= $3
		 GROUP BY bucket_ts
		 ORDER BY bucket_ts`,
		types.BucketHourly, from, to,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query hourly totals", err)
	}
	defer rows.Close()

	var results []types.SeriesPoint
	for rows.Next() {
		var p types.SeriesPoint
		if err := rows.Scan(&p.BucketTS, &p.Total); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan hourly total row", err)
		}
		results = append(results, p)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating hourly total rows", err)
	}

	return results, nil
}
