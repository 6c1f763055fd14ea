package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gridwatch/internal/types"
)

func alertRuleFixtureRow(id string, enabled bool, createdAt time.Time) []any {
	return []any{
		id, "Rule " + id, nil, types.MetricConsumption, types.CompareAbove,
		100.0, "kWh", "Headquarters", nil, types.SeverityHigh, enabled,
		createdAt, createdAt,
	}
}

func TestAlertRuleRepository_Create_Success(t *testing.T) {
	db := new(mockDBTX)
	repo := NewAlertRuleRepository(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	err := repo.Create(context.Background(), &types.AlertRule{
		ID:         "rule_test123",
		Name:       "High consumption",
		MetricType: types.MetricConsumption,
		Comparison: types.CompareAbove,
		Threshold:  100,
		Severity:   types.SeverityHigh,
		Enabled:    true,
	})
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestAlertRuleRepository_GetByID_NotFound(t *testing.T) {
	db := new(mockDBTX)
	repo := NewAlertRuleRepository(db)

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanErr: pgx.ErrNoRows})

	_, err := repo.GetByID(context.Background(), "rule_missing")
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeNotFoundAlertRule, appErr.Code)
}

func TestAlertRuleRepository_ListEnabled(t *testing.T) {
	db := new(mockDBTX)
	repo := NewAlertRuleRepository(db)

	now := time.Now().UTC()
	rows := newMockRows([][]any{
		alertRuleFixtureRow("rule_1", true, now),
		alertRuleFixtureRow("rule_2", true, now),
	})

	var capturedSQL string
	db.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Run(func(args mock.Arguments) {
			capturedSQL = args.String(1)
		}).
		Return(rows, nil)

	results, err := repo.ListEnabled(context.Background())
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "rule_1", results[0].ID)
	assert.Equal(t, "Headquarters", results[0].BuildingName)
	assert.Empty(t, results[0].ZoneName)
	assert.True(t, results[0].Enabled)
	assert.Contains(t, capturedSQL, "ar.enabled = TRUE")
}

func TestAlertRuleRepository_Update_NotFound(t *testing.T) {
	db := new(mockDBTX)
	repo := NewAlertRuleRepository(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("UPDATE 0"), nil)

	err := repo.Update(context.Background(), &types.AlertRule{ID: "rule_missing"})
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeNotFoundAlertRule, appErr.Code)
}
