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

// ListMetersParams defines the filtering and pagination parameters for
// listing meters.
type ListMetersParams struct {
	ZoneID     string `json:"zone_id"`
	BuildingID string `json:"building_id"`
	Limit      int    `json:"limit"`
	Cursor     string `json:"cursor"`
}

// MeterRepository provides data access for the meters table.
type MeterRepository struct {
	db DBTX
}

// NewMeterRepository creates a new MeterRepository backed by the given
// database connection (pool or transaction).
func NewMeterRepository(db DBTX) *MeterRepository {
	return &MeterRepository{db: db}
}

const meterColumns = `m.id, m.zone_id, m.building_id, m.name, m.meter_no,
	m.location, m.description, m.created_at, m.updated_at`

// scanMeter scans a single meter row. The columns must match the order
// defined in meterColumns.
func scanMeter(row pgx.Row) (*types.Meter, error) {
	var m types.Meter
	var (
		location    *string
		description *string
	)

	err := row.Scan(
		&m.ID,
		&m.ZoneID,
		&m.BuildingID,
		&m.Name,
		&m.MeterNo,
		&location,
		&description,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if location != nil {
		m.Location = *location
	}
	if description != nil {
		m.Description = *description
	}

	return &m, nil
}

// Create inserts a new meter record. The caller must set the ID (prefixed
// UUID, e.g. "mtr_..."), the parent ZoneID, and the BuildingID denormalized
// from the zone. A duplicate meter_no surfaces as ErrCodeConflictMeterNumber;
// a reference to a missing zone as ErrCodeValidationUnknownParent.
func (r *MeterRepository) Create(ctx context.Context, m *types.Meter) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO meters (
			id, zone_id, building_id, name, meter_no, location, description,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			COALESCE($8, NOW()), COALESCE($9, NOW())
		)`,
		m.ID,
		m.ZoneID,
		m.BuildingID,
		m.Name,
		m.MeterNo,
		nilIfEmpty(m.Location),
		nilIfEmpty(m.Description),
		nilIfZeroTime(m.CreatedAt),
		nilIfZeroTime(m.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return types.NewAppError(types.ErrCodeConflictMeterNumber, "meter number already in use", err)
		}
		if isForeignKeyViolation(err) {
			return types.NewAppError(types.ErrCodeValidationUnknownParent, "zone does not exist", err)
		}
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create meter", err)
	}
	return nil
}

// GetByID retrieves a meter by its ID. Returns ErrCodeNotFoundMeter if no
// row matches.
func (r *MeterRepository) GetByID(ctx context.Context, id string) (*types.Meter, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+meterColumns+`
		 FROM meters m
		 WHERE m.id = $1`,
		id,
	)

	m, err := scanMeter(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundMeter, "meter not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve meter", err)
	}
	return m, nil
}

// GetByMeterNo retrieves a meter by its unique meter number. Used by
// ingestion to resolve rows that carry a meter_no instead of a meter id.
func (r *MeterRepository) GetByMeterNo(ctx context.Context, meterNo string) (*types.Meter, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+meterColumns+`
		 FROM meters m
		 WHERE m.meter_no = $1`,
		meterNo,
	)

	m, err := scanMeter(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundMeter, "meter not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve meter by number", err)
	}
	return m, nil
}

// Update applies changes to an existing meter. The parent zone and the
// meter_no are immutable after creation.
func (r *MeterRepository) Update(ctx context.Context, m *types.Meter) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE meters SET
			name = $1,
			location = $2,
			description = $3,
			updated_at = NOW()
		 WHERE id = $4`,
		m.Name,
		nilIfEmpty(m.Location),
		nilIfEmpty(m.Description),
		m.ID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update meter", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundMeter, "meter not found", nil)
	}
	return nil
}

// Delete removes a meter. Readings and aggregates under it are removed by
// the DB through FK ON DELETE CASCADE.
func (r *MeterRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM meters WHERE id = $1`,
		id,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete meter", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundMeter, "meter not found", nil)
	}
	return nil
}

// List retrieves meters, optionally filtered by zone or building, with
// cursor-based pagination ordered by created_at DESC.
func (r *MeterRepository) List(ctx context.Context, params ListMetersParams) ([]*types.Meter, types.PageInfo, error) {
	limit := types.ClampLimit(params.Limit)

	var conditions []string
	var args []any
	argIdx := 1

	if params.ZoneID != "" {
		conditions = append(conditions, fmt.Sprintf("m.zone_id = $%d", argIdx))
		args = append(args, params.ZoneID)
		argIdx++
	}

	if params.BuildingID != "" {
		conditions = append(conditions, fmt.Sprintf("m.building_id = $%d", argIdx))
		args = append(args, params.BuildingID)
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
		conditions = append(conditions, fmt.Sprintf("m.created_at < $%d", argIdx))
		args = append(args, cursorTime)
		argIdx++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(
		`SELECT %s
		 FROM meters m
		 %s
		 ORDER BY m.created_at DESC
		 LIMIT $%d`,
		meterColumns,
		whereClause,
		argIdx,
	)
	args = append(args, limit+1)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, types.PageInfo{}, types.NewAppError(types.ErrCodeInternalDB, "failed to list meters", err)
	}
	defer rows.Close()

	var results []*types.Meter
	for rows.Next() {
		m, scanErr := scanMeter(rows)
		if scanErr != nil {
			return nil, types.PageInfo{}, types.NewAppError(types.ErrCodeInternalDB, "failed to scan meter row", scanErr)
		}
		results = append(results, m)
	}
	if err := rows.Err(); err != nil {
		return nil, types.PageInfo{}, types.NewAppError(types.ErrCodeInternalDB, "error iterating meter rows", err)
	}

	pageInfo := types.PageInfo{}
	if len(results) > limit {
		pageInfo.HasMore = true
		pageInfo.NextCursor = results[limit-1].CreatedAt.Format(time.RFC3339Nano)
		results = results[:limit]
	}

	return results, pageInfo, nil
}

// GetScopes performs a vectorized lookup of the zone/building chain for the
// given meter IDs. The alert evaluator uses the result to match rule scopes
// and stamp building/zone names onto created alerts.
func (r *MeterRepository) GetScopes(ctx context.Context, meterIDs []string) (map[string]types.MeterScope, error) {
	if len(meterIDs) == 0 {
		return map[string]types.MeterScope{}, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT m.id, m.meter_no, z.id, z.name, b.id, b.name
		 FROM meters m
		 JOIN zones z ON z.id = m.zone_id
		 JOIN buildings b ON b.id = m.building_id
		 WHERE m.id = ANY($1)`,
		meterIDs,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to resolve meter scopes", err)
	}
	defer rows.Close()

	result := make(map[string]types.MeterScope, len(meterIDs))
	for rows.Next() {
		var s types.MeterScope
		if err := rows.Scan(&s.MeterID, &s.MeterNo, &s.ZoneID, &s.ZoneName, &s.BuildingID, &s.BuildingName); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan meter scope row", err)
		}
		result[s.MeterID] = s
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating meter scope rows", err)
	}

	return result, nil
}

// Count returns the total number of meters. Used by the dashboard rollup.
func (r *MeterRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM meters`).Scan(&count)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to count meters", err)
	}
	return count, nil
}
