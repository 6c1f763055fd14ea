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

// ListAlertRulesParams defines the pagination parameters for listing alert
// rules.
type ListAlertRulesParams struct {
	Limit  int    `json:"limit"`
	Cursor string `json:"cursor"`
}

// AlertRuleRepository provides data access for the alert_rules table.
type AlertRuleRepository struct {
	db DBTX
}

// NewAlertRuleRepository creates a new AlertRuleRepository backed by the
// given database connection (pool or transaction).
func NewAlertRuleRepository(db DBTX) *AlertRuleRepository {
	return &AlertRuleRepository{db: db}
}

const alertRuleColumns = `ar.id, ar.name, ar.description, ar.metric_type,
	ar.comparison, ar.threshold, ar.unit, ar.building_name, ar.zone_name,
	ar.severity, ar.enabled, ar.created_at, ar.updated_at`

// scanAlertRule scans a single alert rule row. The columns must match the
// order defined in alertRuleColumns.
func scanAlertRule(row pgx.Row) (*types.AlertRule, error) {
	var ar types.AlertRule
	var (
		description  *string
		unit         *string
		buildingName *string
		zoneName     *string
	)

	err := row.Scan(
		&ar.ID,
		&ar.Name,
		&description,
		&ar.MetricType,
		&ar.Comparison,
		&ar.Threshold,
		&unit,
		&buildingName,
		&zoneName,
		&ar.Severity,
		&ar.Enabled,
		&ar.CreatedAt,
		&ar.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if description != nil {
		ar.Description = *description
	}
	if unit != nil {
		ar.Unit = *unit
	}
	if buildingName != nil {
		ar.BuildingName = *buildingName
	}
	if zoneName != nil {
		ar.ZoneName = *zoneName
	}

	return &ar, nil
}

// Create inserts a new alert rule record. The caller must set the ID
// (prefixed UUID, e.g. "rule_...") and required fields before calling.
func (r *AlertRuleRepository) Create(ctx context.Context, ar *types.AlertRule) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO alert_rules (
			id, name, description, metric_type, comparison, threshold, unit,
			building_name, zone_name, severity, enabled,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11,
			COALESCE($12, NOW()), COALESCE($13, NOW())
		)`,
		ar.ID,
		ar.Name,
		nilIfEmpty(ar.Description),
		ar.MetricType,
		ar.Comparison,
		ar.Threshold,
		nilIfEmpty(ar.Unit),
		nilIfEmpty(ar.BuildingName),
		nilIfEmpty(ar.ZoneName),
		ar.Severity,
		ar.Enabled,
		nilIfZeroTime(ar.CreatedAt),
		nilIfZeroTime(ar.UpdatedAt),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create alert rule", err)
	}
	return nil
}

// GetByID retrieves an alert rule by its ID. Returns ErrCodeNotFoundAlertRule
// if no row matches.
func (r *AlertRuleRepository) GetByID(ctx context.Context, id string) (*types.AlertRule, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+alertRuleColumns+`
		 FROM alert_rules ar
		 WHERE ar.id = $1`,
		id,
	)

	ar, err := scanAlertRule(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundAlertRule, "alert rule not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve alert rule", err)
	}
	return ar, nil
}

// Update applies changes to an existing alert rule.
func (r *AlertRuleRepository) Update(ctx context.Context, ar *types.AlertRule) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE alert_rules SET
			name = $1,
			description = $2,
			metric_type = $3,
			comparison = $4,
			threshold = $5,
			unit = $6,
			building_name = $7,
			zone_name = $8,
			severity = $9,
			enabled = $10,
			updated_at = NOW()
		 WHERE id = $11`,
		ar.Name,
		nilIfEmpty(ar.Description),
		ar.MetricType,
		ar.Comparison,
		ar.Threshold,
		nilIfEmpty(ar.Unit),
		nilIfEmpty(ar.BuildingName),
		nilIfEmpty(ar.ZoneName),
		ar.Severity,
		ar.Enabled,
		ar.ID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update alert rule", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundAlertRule, "alert rule not found", nil)
	}
	return nil
}

// Delete removes an alert rule. Alerts raised by it are removed by the DB
// through FK ON DELETE CASCADE.
func (r *AlertRuleRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM alert_rules WHERE id = $1`,
		id,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete alert rule", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundAlertRule, "alert rule not found", nil)
	}
	return nil
}

// List retrieves alert rules with cursor-based pagination ordered by
// created_at DESC.
func (r *AlertRuleRepository) List(ctx context.Context, params ListAlertRulesParams) ([]*types.AlertRule, types.PageInfo, error) {
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
		conditions = append(conditions, fmt.Sprintf("ar.created_at < $%d", argIdx))
		args = append(args, cursorTime)
		argIdx++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(
		`SELECT %s
		 FROM alert_rules ar
		 %s
		 ORDER BY ar.created_at DESC
		 LIMIT $%d`,
		alertRuleColumns,
		whereClause,
		argIdx,
	)
	args = append(args, limit+1)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, types.PageInfo{}, types.NewAppError(types.ErrCodeInternalDB, "failed to list alert rules", err)
	}
	defer rows.Close()

	var results []*types.AlertRule
	for rows.Next() {
		ar, scanErr := scanAlertRule(rows)
		if scanErr != nil {
			return nil, types.PageInfo{}, types.NewAppError(types.ErrCodeInternalDB, "failed to scan alert rule row", scanErr)
		}
		results = append(results, ar)
	}
	if err := rows.Err(); err != nil {
		return nil, types.PageInfo{}, types.NewAppError(types.ErrCodeInternalDB, "error iterating alert rule rows", err)
	}

	pageInfo := types.PageInfo{}
	if len(results) > limit {
		pageInfo.HasMore = true
		pageInfo.NextCursor = results[limit-1].CreatedAt.Format(time.RFC3339Nano)
		results = results[:limit]
	}

	return results, pageInfo, nil
}

// ListEnabled retrieves all enabled alert rules. The evaluator loads these
// once per aggregation run.
func (r *AlertRuleRepository) ListEnabled(ctx context.Context) ([]*types.AlertRule, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+alertRuleColumns+`
		 FROM alert_rules ar
		 WHERE ar.enabled = TRUE
		 ORDER BY ar.created_at`,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list enabled alert rules", err)
	}
	defer rows.Close()

	var results []*types.AlertRule
	for rows.Next() {
		ar, scanErr := scanAlertRule(rows)
		if scanErr != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan alert rule row", scanErr)
		}
		results = append(results, ar)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating enabled alert rule rows", err)
	}

	return results, nil
}
