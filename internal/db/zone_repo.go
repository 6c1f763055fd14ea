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

// ListZonesParams defines the filtering and pagination parameters for
// listing zones.
type ListZonesParams struct {
	BuildingID string `json:"building_id"`
	Limit      int    `json:"limit"`
	Cursor     string `json:"cursor"`
}

// ZoneRepository provides data access for the zones table.
type ZoneRepository struct {
	db DBTX
}

// NewZoneRepository creates a new ZoneRepository backed by the given
// database connection (pool or transaction).
func NewZoneRepository(db DBTX) *ZoneRepository {
	return &ZoneRepository{db: db}
}

const zoneColumns = `z.id, z.building_id, z.name, z.floor, z.area, z.description,
	z.created_at, z.updated_at`

// scanZone scans a single zone row. The columns must match the order defined
// in zoneColumns.
func scanZone(row pgx.Row) (*types.Zone, error) {
	var z types.Zone
	var description *string

	err := row.Scan(
		&z.ID,
		&z.BuildingID,
		&z.Name,
		&z.Floor,
		&z.Area,
		&description,
		&z.CreatedAt,
		&z.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if description != nil {
		z.Description = *description
	}

	return &z, nil
}

// Create inserts a new zone record. The caller must set the ID (prefixed
// UUID, e.g. "zn_...") and the parent BuildingID before calling. A reference
// to a missing building surfaces as ErrCodeValidationUnknownParent.
func (r *ZoneRepository) Create(ctx context.Context, z *types.Zone) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO zones (
			id, building_id, name, floor, area, description,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			COALESCE($7, NOW()), COALESCE($8, NOW())
		)`,
		z.ID,
		z.BuildingID,
		z.Name,
		z.Floor,
		z.Area,
		nilIfEmpty(z.Description),
		nilIfZeroTime(z.CreatedAt),
		nilIfZeroTime(z.UpdatedAt),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return types.NewAppError(types.ErrCodeValidationUnknownParent, "building does not exist", err)
		}
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create zone", err)
	}
	return nil
}

// GetByID retrieves a zone by its ID. Returns ErrCodeNotFoundZone if no row
// matches.
func (r *ZoneRepository) GetByID(ctx context.Context, id string) (*types.Zone, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+zoneColumns+`
		 FROM zones z
		 WHERE z.id = $1`,
		id,
	)

	z, err := scanZone(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundZone, "zone not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve zone", err)
	}
	return z, nil
}

// Update applies changes to an existing zone. The parent building is not
// mutable; zones move buildings by delete and recreate.
func (r *ZoneRepository) Update(ctx context.Context, z *types.Zone) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE zones SET
			name = $1,
			floor = $2,
			area = $3,
			description = $4,
			updated_at = NOW()
		 WHERE id = $5`,
		z.Name,
		z.Floor,
		z.Area,
		nilIfEmpty(z.Description),
		z.ID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update zone", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundZone, "zone not found", nil)
	}
	return nil
}

// Delete removes a zone. Meters and their readings under the zone are removed
// by the DB through FK ON DELETE CASCADE.
func (r *ZoneRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM zones WHERE id = $1`,
		id,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete zone", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundZone, "zone not found", nil)
	}
	return nil
}

// List retrieves zones, optionally filtered by building, with cursor-based
// pagination ordered by created_at DESC.
func (r *ZoneRepository) List(ctx context.Context, params ListZonesParams) ([]*types.Zone, types.PageInfo, error) {
	limit := types.ClampLimit(params.Limit)

	var conditions []string
	var args []any
	argIdx := 1

	if params.BuildingID != "" {
		conditions = append(conditions, fmt.Sprintf("z.building_id = $%d", argIdx))
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
		conditions = append(conditions, fmt.Sprintf("z.created_at < $%d", argIdx))
		args = append(args, cursorTime)
		argIdx++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(
		`SELECT %s
		 FROM zones z
		 %s
		 ORDER BY z.created_at DESC
		 LIMIT $%d`,
		zoneColumns,
		whereClause,
		argIdx,
	)
	args = append(args, limit+1)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, types.PageInfo{}, types.NewAppError(types.ErrCodeInternalDB, "failed to list zones", err)
	}
	defer rows.Close()

	var results []*types.Zone
	for rows.Next() {
		z, scanErr := scanZone(rows)
		if scanErr != nil {
			return nil, types.PageInfo{}, types.NewAppError(types.ErrCodeInternalDB, "failed to scan zone row", scanErr)
		}
		results = append(results, z)
	}
	if err := rows.Err(); err != nil {
		return nil, types.PageInfo{}, types.NewAppError(types.ErrCodeInternalDB, "error iterating zone rows", err)
	}

	pageInfo := types.PageInfo{}
	if len(results) > limit {
		pageInfo.HasMore = true
		pageInfo.NextCursor = results[limit-1].CreatedAt.Format(time.RFC3339Nano)
		results = results[:limit]
	}

	return results, pageInfo, nil
}

// Count returns the total number of zones. Used by the dashboard rollup.
func (r *ZoneRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM zones`).Scan(&count)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to count zones", err)
	}
	return count, nil
}
