package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"

	"gridwatch/internal/types"
)

// --- Mock DBTX ---

type mockDBTX struct {
	mock.Mock
}

func (m *mockDBTX) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *mockDBTX) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	args := m.Called(ctx, sql, arguments)
	if r := args.Get(0); r != nil {
		return r.(pgx.Rows), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDBTX) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgx.Row)
}

// --- Mock Row ---

type mockRow struct {
	scanErr error
	scanFn  func(dest ...any) error
}

func (r *mockRow) Scan(dest ...any) error {
	if r.scanFn != nil {
		return r.scanFn(dest...)
	}
	return r.scanErr
}

// --- Mock Rows ---

// mockRows replays a fixed set of rows through the pgx.Rows interface.
// A nil cell scans into pointer destinations as nil (NULL column).
type mockRows struct {
	data    [][]any
	idx     int
	closed  bool
	scanErr error
	errVal  error
}

func newMockRows(data [][]any) *mockRows {
	return &mockRows{data: data, idx: -1}
}

func (r *mockRows) Next() bool {
	if r.closed {
		return false
	}
	r.idx++
	return r.idx < len(r.data)
}

func (r *mockRows) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	row := r.data[r.idx]
	for i, d := range dest {
		assignCell(d, row[i])
	}
	return nil
}

func (r *mockRows) Close()                                       { r.closed = true }
func (r *mockRows) Err() error                                   { return r.errVal }
func (r *mockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *mockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *mockRows) RawValues() [][]byte                          { return nil }
func (r *mockRows) Values() ([]any, error)                       { return nil, nil }
func (r *mockRows) Conn() *pgx.Conn                              { return nil }

// assignCell writes one fixture cell into a scan destination, covering the
// column types the repositories read.
func assignCell(d, cell any) {
	switch v := d.(type) {
	case *string:
		*v = cell.(string)
	case **string:
		if cell == nil {
			*v = nil
		} else {
			s := cell.(string)
			*v = &s
		}
	case *float64:
		*v = cell.(float64)
	case *int:
		*v = cell.(int)
	case *int64:
		*v = cell.(int64)
	case *bool:
		*v = cell.(bool)
	case *time.Time:
		*v = cell.(time.Time)
	case **time.Time:
		if cell == nil {
			*v = nil
		} else {
			t := cell.(time.Time)
			*v = &t
		}
	case *types.BucketType:
		*v = cell.(types.BucketType)
	case *types.MetricType:
		*v = cell.(types.MetricType)
	case *types.Comparison:
		*v = cell.(types.Comparison)
	case *types.AlertSeverity:
		*v = cell.(types.AlertSeverity)
	case *types.AlertStatus:
		*v = cell.(types.AlertStatus)
	case *types.JobType:
		*v = cell.(types.JobType)
	case *types.JobStatus:
		*v = cell.(types.JobStatus)
	case *types.ReadingQuality:
		*v = cell.(types.ReadingQuality)
	case *types.ReportPeriod:
		*v = cell.(types.ReportPeriod)
	case *types.ReportFormat:
		*v = cell.(types.ReportFormat)
	}
}
