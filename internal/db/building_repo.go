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

// ListBuildingsParams defines the pagination parameters for listing buildings.
type ListBuildingsParams struct {
	Limit  int    `json:"limit"`
	Cursor string `json:"cursor"`
}

// BuildingRepository provides data access for the buildings table.
type BuildingRepository struct {
	db DBTX
}

// NewBuildingRepository creates a new BuildingRepository backed by the given
// database connection (pool or transaction).
func NewBuildingRepository(db DBTX) *BuildingRepository {
	return &BuildingRepository{db: db}
}

// buildingColumns defines the standard set of columns selected for building queries.
const buildingColumns = `b.id, b.name, b.address, b.area, b.floors, b.description,
	b.created_at, b.updated_at`

// scanBuilding scans a single building row into a types.Building struct.
// The columns must match the order defined in buildingColumns.
func scanBuilding(row pgx.Row) (*types.Building, error) {
	var b types.Building
	var description *string

	err := row.Scan(
		&b.ID,
		&b.Name,
		&b.Address,
		&b.Area,
		&b.Floors,
		&description,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if description != nil {
		b.Description = *description
	}

	return &b, nil
}

// Create inserts a new building record. The caller must set the ID (prefixed
// UUID, e.g. "bld_...") and required fields before calling.
func (r *BuildingRepository) Create(ctx context.Context, b *types.Building) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO buildings (
			id, name, address, area, floors, description,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			COALESCE($7, NOW()), COALESCE($8, NOW())
		)`,
		b.ID,
		b.Name,
		b.Address,
		b.Area,
		b.Floors,
		nilIfEmpty(b.Description),
		nilIfZeroTime(b.CreatedAt),
		nilIfZeroTime(b.UpdatedAt),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create building", err)
	}
	return nil
}

// GetByID retrieves a building by its ID. Returns ErrCodeNotFoundBuilding
// if no row matches.
func (r *BuildingRepository) GetByID(ctx context.Context, id string) (*types.Building, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+buildingColumns+`
		 FROM buildings b
		 WHERE b.id = $1`,
		id,
	)

	b, err := scanBuilding(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundBuilding, "building not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve building", err)
	}
	return b, nil
}

// Update applies changes to an existing building. The updated_at timestamp is
// set by the database.
func (r *BuildingRepository) Update(ctx context.Context, b *types.Building) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE buildings SET
			name = $1,
			address = $2,
			area = $3,
			floors = $4,
			description = $5,
			updated_at = NOW()
		 WHERE id = $6`,
		b.Name,
		b.Address,
		b.Area,
		b.Floors,
		nilIfEmpty(b.Description),
		b.ID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update building", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundBuilding, "building not found", nil)
	}
	return nil
}

// Delete removes a building. Zones, meters, readings, and aggregates under it
// are removed by the DB through FK ON DELETE CASCADE.
func (r *BuildingRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM buildings WHERE id = $1`,
		id,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete building", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundBuilding, "building not found", nil)
	}
	return nil
}

// List retrieves buildings with cursor-based pagination, ordered by
// created_at DESC (newest first). Uses limit+1 fetch strategy to determine
// HasMore without a separate COUNT query.
func (r *BuildingRepository) List(ctx context.Context, params ListBuildingsParams) ([]*types.Building, types.PageInfo, error) {
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
		conditions = append(conditions, fmt.Sprintf("b.created_at < $%d", argIdx))
		args = append(args, cursorTime)
		argIdx++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(
		`SELECT %s
		 FROM buildings b
		 %s
		 ORDER BY b.created_at DESC
		 LIMIT $%d`,
		buildingColumns,
		whereClause,
		argIdx,
	)
	args = append(args, limit+1)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, types.PageInfo{}, types.NewAppError(types.ErrCodeInternalDB, "failed to list buildings", err)
	}
	defer rows.Close()

	var results []*types.Building
	for rows.Next() {
		b, scanErr := scanBuilding(rows)
		if scanErr != nil {
			return nil, types.PageInfo{}, types.NewAppError(types.ErrCodeInternalDB, "failed to scan building row", scanErr)
		}
		results = append(results, b)
	}
	if err := rows.Err(); err != nil {
		return nil, types.PageInfo{}, types.NewAppError(types.ErrCodeInternalDB, "error iterating building rows", err)
	}

	pageInfo := types.PageInfo{}
	if len(results) > limit {
		pageInfo.HasMore = true
		pageInfo.NextCursor = results[limit-1].CreatedAt.Format(time.RFC3339Nano)
		results = results[:limit]
	}

	return results, pageInfo, nil
}

// Count returns the total number of buildings. Used by the dashboard rollup.
func (r *BuildingRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM buildings`).Scan(&count)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to count buildings", err)
	}
	return count, nil
}
