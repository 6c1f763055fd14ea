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

// ListJobsParams defines the filtering and pagination parameters for listing
// jobs.
type ListJobsParams struct {
	Status  types.JobStatus `json:"status"`
	JobType types.JobType   `json:"job_type"`
	Limit   int             `json:"limit"`
	Cursor  string          `json:"cursor"`
}

// JobRepository provides data access for the jobs table. Jobs are written
// in two steps: Start inserts the row as running before any aggregation
// work begins, Finish records the terminal outcome.
type JobRepository struct {
	db DBTX
}

// NewJobRepository creates a new JobRepository backed by the given database
// connection (pool or transaction).
func NewJobRepository(db DBTX) *JobRepository {
	return &JobRepository{db: db}
}

const jobColumns = `j.id, j.job_type, j.status, j.target_date, j.building_id,
	j.zone_id, j.started_at, j.finished_at, j.aggregates_count,
	j.alerts_triggered, j.error, j.created_at`

// scanJob scans a single job row. The columns must match the order defined
// in jobColumns.
func scanJob(row pgx.Row) (*types.Job, error) {
	var j types.Job
	var (
		buildingID *string
		zoneID     *string
		jobError   *string
	)

	err := row.Scan(
		&j.ID,
		&j.JobType,
		&j.Status,
		&j.TargetDate,
		&buildingID,
		&zoneID,
		&j.StartedAt,
		&j.FinishedAt,
		&j.AggregatesCount,
		&j.AlertsTriggered,
		&jobError,
		&j.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if buildingID != nil {
		j.BuildingID = *buildingID
	}
	if zoneID != nil {
		j.ZoneID = *zoneID
	}
	if jobError != nil {
		j.Error = *jobError
	}

	return &j, nil
}

// Start inserts a new job row with status running. The caller must set the
// ID (prefixed UUID, e.g. "job_..."), job type, and target date; started_at
// and created_at are stamped by the database and returned on the struct.
func (r *JobRepository) Start(ctx context.Context, j *types.Job) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO jobs (id, job_type, status, target_date, building_id, zone_id, started_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW())
		 RETURNING started_at, created_at`,
		j.ID,
		j.JobType,
		types.JobRunning,
		j.TargetDate,
		nilIfEmpty(j.BuildingID),
		nilIfEmpty(j.ZoneID),
	).Scan(&j.StartedAt, &j.CreatedAt)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to start job", err)
	}
	j.Status = types.JobRunning
	return nil
}

// Finish records the terminal outcome of a job. The WHERE clause requires
// the row to still be running, so a terminal job can never be finished
// twice; zero rows affected is reported as ErrCodeConflictJobTerminal.
// If jobErr is non-nil the status is failed and its message is stored.
func (r *JobRepository) Finish(ctx context.Context, id string, aggregatesCount, alertsTriggered int, jobErr error) error {
	status := types.JobCompleted
	var errMsg *string
	if jobErr != nil {
		status = types.JobFailed
		s := jobErr.Error()
		errMsg = &s
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE jobs SET
			status = $1,
			finished_at = NOW(),
			aggregates_count = $2,
			alerts_triggered = $3,
			error = $4
		 WHERE id = $5 AND status = $6`,
		status,
		aggregatesCount,
		alertsTriggered,
		errMsg,
		id,
		types.JobRunning,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to finish job", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeConflictJobTerminal, "job is not running", nil)
	}
	return nil
}

// GetByID retrieves a job by its ID. Returns ErrCodeNotFoundJob if no row
// matches.
func (r *JobRepository) GetByID(ctx context.Context, id string) (*types.Job, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+jobColumns+`
		 FROM jobs j
		 WHERE j.id = $1`,
		id,
	)

	j, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundJob, "job not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve job", err)
	}
	return j, nil
}

// List retrieves jobs, optionally filtered by status and job type, with
// cursor-based pagination ordered by created_at DESC.
func (r *JobRepository) List(ctx context.Context, params ListJobsParams) ([]*types.Job, types.PageInfo, error) {
	limit := types.ClampLimit(params.Limit)

	var conditions []string
	var args []any
	argIdx := 1

	if params.Status != "" {
		conditions = append(conditions, fmt.Sprintf("j.status = $%d", argIdx))
		args = append(args, params.Status)
		argIdx++
	}

	if params.JobType != "" {
		conditions = append(conditions, fmt.Sprintf("j.job_type = $%d", argIdx))
		args = append(args, params.JobType)
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
		conditions = append(conditions, fmt.Sprintf("j.created_at < $%d", argIdx))
		args = append(args, cursorTime)
		argIdx++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(
		`SELECT %s
		 FROM jobs j
		 %s
		 ORDER BY j.created_at DESC
		 LIMIT $%d`,
		jobColumns,
		whereClause,
		argIdx,
	)
	args = append(args, limit+1)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, types.PageInfo{}, types.NewAppError(types.ErrCodeInternalDB, "failed to list jobs", err)
	}
	defer rows.Close()

	var results []*types.Job
	for rows.Next() {
		j, scanErr := scanJob(rows)
		if scanErr != nil {
			return nil, types.PageInfo{}, types.NewAppError(types.ErrCodeInternalDB, "failed to scan job row", scanErr)
		}
		results = append(results, j)
	}
	if err := rows.Err(); err != nil {
		return nil, types.PageInfo{}, types.NewAppError(types.ErrCodeInternalDB, "error iterating job rows", err)
	}

	pageInfo := types.PageInfo{}
	if len(results) > limit {
		pageInfo.HasMore = true
		pageInfo.NextCursor = results[limit-1].CreatedAt.Format(time.RFC3339Nano)
		results = results[:limit]
	}

	return results, pageInfo, nil
}
