package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"gridwatch/internal/types"
)

// ListReportsParams defines the pagination parameters for listing reports.
type ListReportsParams struct {
	Limit  int    `json:"limit"`
	Cursor string `json:"cursor"`
}

// ReportRepository provides data access for the reports table. Only report
// metadata and summary statistics are stored; artifact bytes are regenerated
// on download from the recorded parameters.
type ReportRepository struct {
	db DBTX
}

// NewReportRepository creates a new ReportRepository backed by the given
// database connection (pool or transaction).
func NewReportRepository(db DBTX) *ReportRepository {
	return &ReportRepository{db: db}
}

const reportColumns = `r.id, r.title, r.description, r.report_type, r.period,
	r.building_id, r.range_start, r.range_end, r.total_consumption,
	r.avg_consumption, r.peak_power, r.meter_count, r.format, r.file_name,
	r.file_size, r.generated_at`

// scanReport scans a single report row. The columns must match the order
// defined in reportColumns.
func scanReport(row pgx.Row) (*types.Report, error) {
	var rp types.Report
	var (
		description *string
		buildingID  *string
	)

	err := row.Scan(
		&rp.ID,
		&rp.Title,
		&description,
		&rp.ReportType,
		&rp.Period,
		&buildingID,
		&rp.RangeStart,
		&rp.RangeEnd,
		&rp.TotalConsumption,
		&rp.AvgConsumption,
		&rp.PeakPower,
		&rp.MeterCount,
		&rp.Format,
		&rp.FileName,
		&rp.FileSize,
		&rp.GeneratedAt,
	)
	if err != nil {
		return nil, err
	}

	if description != nil {
		rp.Description = *description
	}
	if buildingID != nil {
		rp.BuildingID = *buildingID
	}

	return &rp, nil
}

// Create inserts a new report record. The caller must set the ID (prefixed
// UUID, e.g. "rpt_...") and all summary/file fields before calling.
func (r *ReportRepository) Create(ctx context.Context, rp *types.Report) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO reports (
			id, title, description, report_type, period, building_id,
			range_start, range_end, total_consumption, avg_consumption,
			peak_power, meter_count, format, file_name, file_size,
			generated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, $13, $14, $15,
			COALESCE($16, NOW())
		)`,
		rp.ID,
		rp.Title,
		nilIfEmpty(rp.Description),
		rp.ReportType,
		rp.Period,
		nilIfEmpty(rp.BuildingID),
		rp.RangeStart,
		rp.RangeEnd,
		rp.TotalConsumption,
		rp.AvgConsumption,
		rp.PeakPower,
		rp.MeterCount,
		rp.Format,
		rp.FileName,
		rp.FileSize,
		nilIfZeroTime(rp.GeneratedAt),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create report", err)
	}
	return nil
}

// GetByID retrieves a report by its ID. Returns ErrCodeNotFoundReport if no
// row matches.
func (r *ReportRepository) GetByID(ctx context.Context, id string) (*types.Report, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+reportColumns+`
		 FROM reports r
		 WHERE r.id = $1`,
		id,
	)

	rp, err := scanReport(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundReport, "report not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve report", err)
	}
	return rp, nil
}

// List retrieves reports with cursor-based pagination ordered by
// generated_at DESC.
func (r *ReportRepository) List(ctx context.Context, params ListReportsParams) ([]*types.Report, types.PageInfo, error) {
	limit := types.ClampLimit(params.Limit)

	var conditions []string
	var args []any
	argIdx := 1

	if params.Cursor != "" {
		cursorTime, err := time.Parse(time.RFC3339Nano, params.Cursor)
		if err != nil {
			return nil, types.PageInfo{}, types.NewAppError(
				types.ErrCodeValidationMissingField,
				"invalid cursor format; expected RFC3339 timestamp",
				err,
			)
		}
		conditions = append(conditions, fmt.Sprintf("r.generated_at < $%d", argIdx))
		args = append(args, cursorTime)
		argIdx++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(
		`SELECT %s
		 FROM reports r
		 %s
		 ORDER BY r.generated_at DESC
		 LIMIT $%d`,
		reportColumns,
		whereClause,
		argIdx,
	)
	args = append(args, limit+1)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, types.PageInfo{}, types.NewAppError(types.ErrCodeInternalDB, "failed to list reports", err)
	}
	defer rows.Close()

	var results []*types.Report
	for rows.Next() {
		rp, scanErr := scanReport(rows)
		if scanErr != nil {
			return nil, types.PageInfo{}, types.NewAppError(types.ErrCodeInternalDB, "failed to scan report row", scanErr)
		}
		results = append(results, rp)
	}
	if err := rows.Err(); err != nil {
		return nil, types.PageInfo{}, types.NewAppError(types.ErrCodeInternalDB, "error iterating report rows", err)
	}

	pageInfo := types.PageInfo{}
	if len(results) > limit {
		pageInfo.HasMore = true
		pageInfo.NextCursor = results[limit-1].GeneratedAt.Format(time.RFC3339Nano)
		results = results[:limit]
	}

	return results, pageInfo, nil
}
