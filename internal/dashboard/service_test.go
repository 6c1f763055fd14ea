package dashboard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gridwatch/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type stubCounter struct {
	n   int
	err error

	calls int
}

func (c *stubCounter) Count(ctx context.Context) (int, error) {
	c.calls++
	return c.n, c.err
}

type mockAlertSource struct {
	mock.Mock
}

func (m *mockAlertSource) CountActive(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockAlertSource) ListRecent(ctx context.Context, limit int) ([]*types.Alert, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Alert), args.Error(1)
}

type mockSeriesSource struct {
	mock.Mock
}

func (m *mockSeriesSource) HourlyTotals(ctx context.Context, from, to time.Time) ([]types.SeriesPoint, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.SeriesPoint), args.Error(1)
}

var dashNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func healthyRepos() (Repos, *mockAlertSource, *mockSeriesSource) {
	alerts := new(mockAlertSource)
	alerts.On("CountActive", mock.Anything).Return(2, nil)
	alerts.On("ListRecent", mock.Anything, 10).Return([]*types.Alert{
		{ID: "alrt_1", Status: types.AlertActive},
	}, nil)

	series := new(mockSeriesSource)
	series.On("HourlyTotals", mock.Anything, dashNow.Add(-24*time.Hour), dashNow).Return([]types.SeriesPoint{
		{BucketTS: dashNow.Add(-2 * time.Hour), Total: 2},
		{BucketTS: dashNow.Add(-time.Hour), Total: 3},
	}, nil)

	return Repos{
		Buildings: &stubCounter{n: 1},
		Zones:     &stubCounter{n: 4},
		Meters:    &stubCounter{n: 9},
		Readings:  &stubCounter{n: 1200},
		Alerts:    alerts,
		Series:    series,
	}, alerts, series
}

func newTestService(repos Repos, cache *redis.Client) *Service {
	svc := NewService(repos, cache, 5*time.Minute, 10, testLogger())
	svc.clock = fixedClock{t: dashNow}
	return svc
}

func TestOverview_ComputesReadModel(t *testing.T) {
	repos, _, _ := healthyRepos()

	svc := newTestService(repos, nil)

	overview, err := svc.Overview(context.Background())

	require.NoError(t, err)
	assert.Equal(t, types.EntityCounts{Buildings: 1, Zones: 4, Meters: 9, Readings: 1200}, overview.Counts)
	assert.Equal(t, 2, overview.ActiveAlertCount)
	require.Len(t, overview.HourlySeries, 2)
	require.Len(t, overview.RecentAlerts, 1)
	assert.Equal(t, "alrt_1", overview.RecentAlerts[0].ID)
	assert.Equal(t, dashNow, overview.GeneratedAt)

	// 24h total 5 kWh: month figure extrapolates across 30 days, cost and
	// CO2 stay day-based.
	assert.InDelta(t, 150.0, overview.KPIs.MonthConsumptionEstimate, 1e-9)
	assert.InDelta(t, 600.0, overview.KPIs.EnergyCost, 1e-9)
	assert.InDelta(t, 2.3, overview.KPIs.CO2Kg, 1e-9)
}

func TestOverview_EmptySourcesYieldEmptySlices(t *testing.T) {
	alerts := new(mockAlertSource)
	alerts.On("CountActive", mock.Anything).Return(0, nil)
	alerts.On("ListRecent", mock.Anything, 10).Return([]*types.Alert{}, nil)

	series := new(mockSeriesSource)
	series.On("HourlyTotals", mock.Anything, mock.Anything, mock.Anything).Return([]types.SeriesPoint{}, nil)

	repos := Repos{
		Buildings: &stubCounter{},
		Zones:     &stubCounter{},
		Meters:    &stubCounter{},
		Readings:  &stubCounter{},
		Alerts:    alerts,
		Series:    series,
	}

	svc := newTestService(repos, nil)

	overview, err := svc.Overview(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, overview.HourlySeries)
	assert.NotNil(t, overview.RecentAlerts)
	assert.Zero(t, overview.KPIs.MonthConsumptionEstimate)
}

func TestOverview_ServedFromCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	repos, _, _ := healthyRepos()
	buildings := repos.Buildings.(*stubCounter)

	svc := newTestService(repos, client)

	first, err := svc.Overview(context.Background())
	require.NoError(t, err)

	second, err := svc.Overview(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.Counts, second.Counts)
	assert.Equal(t, first.KPIs, second.KPIs)
	assert.Equal(t, 1, buildings.calls)

	assert.True(t, mr.Exists(cacheKey))
	ttl := mr.TTL(cacheKey)
	assert.Equal(t, 5*time.Minute, ttl)
}

func TestOverview_RedisDownFallsBackToPostgres(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mr.Close()

	repos, _, _ := healthyRepos()

	svc := newTestService(repos, client)

	overview, err := svc.Overview(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, overview.Counts.Buildings)
}

func TestOverview_CorruptCacheEntryRecomputed(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	require.NoError(t, mr.Set(cacheKey, "{not json"))

	repos, _, _ := healthyRepos()

	svc := newTestService(repos, client)

	overview, err := svc.Overview(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, overview.Counts.Buildings)
}

func TestOverview_SourceErrorPropagates(t *testing.T) {
	repos, _, _ := healthyRepos()
	repos.Readings = &stubCounter{err: errors.New("count failed")}

	svc := newTestService(repos, nil)

	_, err := svc.Overview(context.Background())

	require.Error(t, err)
}

func TestOverview_RecentAlertLimitConfigurable(t *testing.T) {
	repos, alerts, _ := healthyRepos()
	alerts.ExpectedCalls = nil
	alerts.On("CountActive", mock.Anything).Return(0, nil)
	alerts.On("ListRecent", mock.Anything, 25).Return([]*types.Alert{}, nil)

	svc := NewService(repos, nil, time.Minute, 25, testLogger())
	svc.clock = fixedClock{t: dashNow}

	_, err := svc.Overview(context.Background())

	require.NoError(t, err)
	alerts.AssertCalled(t, "ListRecent", mock.Anything, 25)
}
