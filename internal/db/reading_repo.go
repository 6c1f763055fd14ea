package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"gridwatch/internal/types"
)

// ListReadingsParams defines the filtering and pagination parameters for
// listing readings.
type ListReadingsParams struct {
	MeterID string    `json:"meter_id"`
	From    time.Time `json:"from"`
	To      time.Time `json:"to"`
	Limit   int       `json:"limit"`
	Cursor  string    `json:"cursor"`
}

// ReadingScope restricts a window query to the meters under one building or
// one zone. Zero value means all meters.
type ReadingScope struct {
	BuildingID string `json:"building_id"`
	ZoneID     string `json:"zone_id"`
}

// ReadingRepository provides data access for the readings table.
type ReadingRepository struct {
	db DBTX
}

// NewReadingRepository creates a new ReadingRepository backed by the given
// database connection (pool or transaction).
func NewReadingRepository(db DBTX) *ReadingRepository {
	return &ReadingRepository{db: db}
}

const readingColumns = `r.id, r.meter_id, r.value, r.ts, r.quality, r.created_at`

// scanReading scans a single reading row. The columns must match the order
// defined in readingColumns.
func scanReading(row pgx.Row) (*types.Reading, error) {
	var rd types.Reading
	err := row.Scan(
		&rd.ID,
		&rd.MeterID,
		&rd.Value,
		&rd.Timestamp,
		&rd.Quality,
		&rd.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rd, nil
}

// CreateBatch inserts multiple readings in a single atomic INSERT statement.
// The caller must pre-populate IDs, meter IDs, values, timestamps, and
// quality before calling. Ingestion validates rows before they reach here,
// so the batch succeeds or fails as a whole.
func (r *ReadingRepository) CreateBatch(ctx context.Context, readings []*types.Reading) error {
	if len(readings) == 0 {
		return nil
	}

	const colCount = 6
	var sb strings.Builder
	sb.WriteString(`INSERT INTO readings (id, meter_id, value, ts, quality, created_at) VALUES `)

	args := make([]any, 0, len(readings)*colCount)
	for i, rd := range readings {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * colCount
		sb.WriteString(fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, COALESCE($%d, NOW()))",
			base+1, base+2, base+3, base+4, base+5, base+6))

		args = append(args,
			rd.ID,
			rd.MeterID,
			rd.Value,
			rd.Timestamp,
			rd.Quality,
			nilIfZeroTime(rd.CreatedAt),
		)
	}

	_, err := r.db.Exec(ctx, sb.String(), args...)
	if err != nil {
		if isForeignKeyViolation(err) {
			return types.NewAppError(types.ErrCodeValidationUnknownParent, "reading references a missing meter", err)
		}
		return types.NewAppError(types.ErrCodeInternalDB, "failed to batch create readings", err)
	}
	return nil
}

// List retrieves readings filtered by meter and time range, with cursor-based
// pagination ordered by ts DESC (newest first).
func (r *ReadingRepository) List(ctx context.Context, params ListReadingsParams) ([]*types.Reading, types.PageInfo, error) {
	limit := types.ClampLimit(params.Limit)

	var conditions []string
	var args []any
	argIdx := 1

	if params.MeterID != "" {
		conditions = append(conditions, fmt.Sprintf("r.meter_id = $%d", argIdx))
		args = append(args, params.MeterID)
		argIdx++
	}

	if !params.From.IsZero() {
		conditions = append(conditions, fmt.Sprintf("r.ts >= $%d", argIdx))
		args = append(args, params.From)
		argIdx++
	}

	if !params.To.IsZero() {
		conditions = append(conditions, fmt.Sprintf("r.ts <= $%d", argIdx))
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
		conditions = append(conditions, fmt.Sprintf("r.ts < $%d", argIdx))
		args = append(args, cursorTime)
		argIdx++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(
		`SELECT %s
		 FROM readings r
		 %s
		 ORDER BY r.ts DESC
		 LIMIT $%d`,
		readingColumns,
		whereClause,
		argIdx,
	)
	args = append(args, limit+1)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, types.PageInfo{}, types.NewAppError(types.ErrCodeInternalDB, "failed to list readings", err)
	}
	defer rows.Close()

	var results []*types.Reading
	for rows.Next() {
		rd, scanErr := scanReading(rows)
		if scanErr != nil {
			return nil, types.PageInfo{}, types.NewAppError(types.ErrCodeInternalDB, "failed to scan reading row", scanErr)
		}
		results = append(results, rd)
	}
	if err := rows.Err(); err != nil {
		return nil, types.PageInfo{}, types.NewAppError(types.ErrCodeInternalDB, "error iterating reading rows", err)
	}

	pageInfo := types.PageInfo{}
	if len(results) > limit {
		pageInfo.HasMore = true
		pageInfo.NextCursor = results[limit-1].Timestamp.Format(time.RFC3339Nano)
		results = results[:limit]
	}

	return results, pageInfo, nil
}

// ListWindow retrieves all readings in [from, to], optionally restricted to
// the meters under one building or zone. The aggregation engine consumes the
// result in a single pass, so rows are ordered by meter then timestamp.
func (r *ReadingRepository) ListWindow(ctx context.Context, from, to time.Time, scope ReadingScope) ([]*types.Reading, error) {
	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, fmt.Sprintf("r.ts >= $%d", argIdx))
	args = append(args, from)
	argIdx++

	conditions = append(conditions, fmt.Sprintf("r.ts <= $%d", argIdx))
	args = append(args, to)
	argIdx++

	if scope.BuildingID != "" {
		conditions = append(conditions, fmt.Sprintf("m.building_id = $%d", argIdx))
		args = append(args, scope.BuildingID)
		argIdx++
	}

	if scope.ZoneID != "" {
		conditions = append(conditions, fmt.Sprintf("m.zone_id = $%d", argIdx))
		args = append(args, scope.ZoneID)
		argIdx++
	}

	query := fmt.Sprintf(
		`SELECT %s
		 FROM readings r
		 JOIN meters m ON m.id = r.meter_id
		 WHERE %s
		 ORDER BY r.meter_id, r.ts`,
		readingColumns,
		strings.Join(conditions, " AND "),
	)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query reading window", err)
	}
	defer rows.Close()

	var results []*types.Reading
	for rows.Next() {
		rd, scanErr := scanReading(rows)
		if scanErr != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan reading row", scanErr)
		}
		results = append(results, rd)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating reading window rows", err)
	}

	return results, nil
}

// Count returns the total number of readings. Used by the dashboard rollup.
func (r *ReadingRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM readings`).Scan(&count)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to count readings", err)
	}
	return count, nil
}
