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

// ListAlertsParams defines the filtering and pagination parameters for
// listing alerts.
type ListAlertsParams struct {
	Status   types.AlertStatus   `json:"status"`
	Severity types.AlertSeverity `json:"severity"`
	Limit    int                 `json:"limit"`
	Cursor   string              `json:"cursor"`
}

// AlertRepository provides data access for the alerts table.
type AlertRepository struct {
	db DBTX
}

// NewAlertRepository creates a new AlertRepository backed by the given
// database connection (pool or transaction).
func NewAlertRepository(db DBTX) *AlertRepository {
	return &AlertRepository{db: db}
}

const alertColumns = `a.id, a.rule_id, a.title, a.description, a.metric_type,
	a.severity, a.status, a.building_name, a.zone_name, a.meter_id,
	a.value, a.threshold, a.unit, a.triggered_at,
	a.acknowledged_by, a.acknowledged_at, a.resolved_by, a.resolved_at,
	a.created_at`

// scanAlert scans a single alert row. The columns must match the order
// defined in alertColumns.
func scanAlert(row pgx.Row) (*types.Alert, error) {
	var a types.Alert
	var (
		description    *string
		buildingName   *string
		zoneName       *string
		unit           *string
		acknowledgedBy *string
		resolvedBy     *string
	)

	err := row.Scan(
		&a.ID,
		&a.RuleID,
		&a.Title,
		&description,
		&a.MetricType,
		&a.Severity,
		&a.Status,
		&buildingName,
		&zoneName,
		&a.MeterID,
		&a.Value,
		&a.Threshold,
		&unit,
		&a.TriggeredAt,
		&acknowledgedBy,
		&a.AcknowledgedAt,
		&resolvedBy,
		&a.ResolvedAt,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if description != nil {
		a.Description = *description
	}
	if buildingName != nil {
		a.BuildingName = *buildingName
	}
	if zoneName != nil {
		a.ZoneName = *zoneName
	}
	if unit != nil {
		a.Unit = *unit
	}
	if acknowledgedBy != nil {
		a.AcknowledgedBy = *acknowledgedBy
	}
	if resolvedBy != nil {
		a.ResolvedBy = *resolvedBy
	}

	return &a, nil
}

// Create inserts a new alert record. The caller must set the ID (prefixed
// UUID, e.g. "alrt_...") and the rule/meter references before calling.
func (r *AlertRepository) Create(ctx context.Context, a *types.Alert) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO alerts (
			id, rule_id, title, description, metric_type, severity, status,
			building_name, zone_name, meter_id, value, threshold, unit,
			triggered_at, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12, $13,
			$14, COALESCE($15, NOW())
		)`,
		a.ID,
		a.RuleID,
		a.Title,
		nilIfEmpty(a.Description),
		a.MetricType,
		a.Severity,
		a.Status,
		nilIfEmpty(a.BuildingName),
		nilIfEmpty(a.ZoneName),
		a.MeterID,
		a.Value,
		a.Threshold,
		nilIfEmpty(a.Unit),
		a.TriggeredAt,
		nilIfZeroTime(a.CreatedAt),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return types.NewAppError(types.ErrCodeValidationUnknownParent, "alert references a missing rule", err)
		}
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create alert", err)
	}
	return nil
}

// GetByID retrieves an alert by its ID. Returns ErrCodeNotFoundAlert if no
// row matches.
func (r *AlertRepository) GetByID(ctx context.Context, id string) (*types.Alert, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+alertColumns+`
		 FROM alerts a
		 WHERE a.id = $1`,
		id,
	)

	a, err := scanAlert(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundAlert, "alert not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve alert", err)
	}
	return a, nil
}

// UpdateStatus moves an alert to the next lifecycle state, stamping the
// acknowledging or resolving actor and timestamp. The WHERE clause repeats
// the current status so a concurrent transition loses cleanly: zero rows
// affected means the alert moved (or vanished) underneath us, reported as
// ErrCodeConflictAlertTransition.
func (r *AlertRepository) UpdateStatus(ctx context.Context, id string, from, to types.AlertStatus, actor string) error {
	var query string
	switch to {
	case types.AlertAcknowledged:
		query = `UPDATE alerts SET
			status = $1, acknowledged_by = $2, acknowledged_at = NOW()
		 WHERE id = $3 AND status = $4`
	case types.AlertResolved:
		query = `UPDATE alerts SET
			status = $1, resolved_by = $2, resolved_at = NOW()
		 WHERE id = $3 AND status = $4`
	default:
		return types.NewAppError(types.ErrCodeValidationStatus, "invalid target alert status", nil)
	}

	tag, err := r.db.Exec(ctx, query, to, nilIfEmpty(actor), id, from)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update alert status", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeConflictAlertTransition, "alert status changed concurrently", nil)
	}
	return nil
}

// List retrieves alerts, optionally filtered by status and severity, with
// cursor-based pagination ordered by created_at DESC.
func (r *AlertRepository) List(ctx context.Context, params ListAlertsParams) ([]*types.Alert, types.PageInfo, error) {
	limit := types.ClampLimit(params.Limit)

	var conditions []string
	var args []any
	argIdx := 1

	if params.Status != "" {
		conditions = append(conditions, fmt.Sprintf("a.status = $%d", argIdx))
		args = append(args, params.Status)
		argIdx++
	}

	if params.Severity != "" {
		conditions = append(conditions, fmt.Sprintf("a.severity = $%d", argIdx))
		args = append(args, params.Severity)
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
		conditions = append(conditions, fmt.Sprintf("a.created_at < $%d", argIdx))
		args = append(args, cursorTime)
		argIdx++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(
		`SELECT %s
		 FROM alerts a
		 %s
		 ORDER BY a.created_at DESC
		 LIMIT $%d`,
		alertColumns,
		whereClause,
		argIdx,
	)
	args = append(args, limit+1)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, types.PageInfo{}, types.NewAppError(types.ErrCodeInternalDB, "failed to list alerts", err)
	}
	defer rows.Close()

	var results []*types.Alert
	for rows.Next() {
		a, scanErr := scanAlert(rows)
		if scanErr != nil {
			return nil, types.PageInfo{}, types.NewAppError(types.ErrCodeInternalDB, "failed to scan alert row", scanErr)
		}
		results = append(results, a)
	}
	if err := rows.Err(); err != nil {
		return nil, types.PageInfo{}, types.NewAppError(types.ErrCodeInternalDB, "error iterating alert rows", err)
	}

	pageInfo := types.PageInfo{}
	if len(results) > limit {
		pageInfo.HasMore = true
		pageInfo.NextCursor = results[limit-1].CreatedAt.Format(time.RFC3339Nano)
		results = results[:limit]
	}

	return results, pageInfo, nil
}

// ListRecent retrieves the newest alerts regardless of status. Used by the
// dashboard rollup.
func (r *AlertRepository) ListRecent(ctx context.Context, limit int) ([]*types.Alert, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+alertColumns+`
		 FROM alerts a
		 ORDER BY a.created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list recent alerts", err)
	}
	defer rows.Close()

	var results []*types.Alert
	for rows.Next() {
		a, scanErr := scanAlert(rows)
		if scanErr != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan alert row", scanErr)
		}
		results = append(results, a)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating recent alert rows", err)
	}

	return results, nil
}

// CountActive returns the number of alerts currently in active status.
// Used by the dashboard rollup.
func (r *AlertRepository) CountActive(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM alerts WHERE status = $1`,
		types.AlertActive,
	).Scan(&count)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to count active alerts", err)
	}
	return count, nil
}
