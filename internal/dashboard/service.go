// Package dashboard assembles the overview read model: inventory counts,
// the 24-hour consumption series, derived KPIs, and recent alerts.
package dashboard

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"gridwatch/internal/types"
)

// cacheKey is the Redis key holding the serialized overview.
const cacheKey = "dashboard:overview"

// Counter exposes the total row count of one inventory table.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// AlertSource provides the alert figures on the overview.
type AlertSource interface {
	CountActive(ctx context.Context) (int, error)
	ListRecent(ctx context.Context, limit int) ([]*types.Alert, error)
}

// SeriesSource provides the hourly consumption totals.
type SeriesSource interface {
	HourlyTotals(ctx context.Context, from, to time.Time) ([]types.SeriesPoint, error)
}

// Repos bundles the data sources the overview fans out over.
type Repos struct {
	Buildings Counter
	Zones     Counter
	Meters    Counter
	Readings  Counter
	Alerts    AlertSource
	Series    SeriesSource
}

// Service computes and caches the dashboard overview.
type Service struct {
	repos        Repos
	cache        *redis.Client
	cacheTTL     time.Duration
	recentAlerts int
	clock        types.Clock
	logger       *slog.Logger
}

// NewService creates a dashboard service. A nil cache disables caching.
func NewService(repos Repos, cache *redis.Client, cacheTTL time.Duration, recentAlerts int, logger *slog.Logger) *Service {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	if recentAlerts <= 0 {
		recentAlerts = 10
	}
	return &Service{
		repos:        repos,
		cache:        cache,
		cacheTTL:     cacheTTL,
		recentAlerts: recentAlerts,
		clock:        types.RealClock{},
		logger:       logger,
	}
}

// Overview returns the dashboard read model, served from Redis when a fresh
// copy exists. Cache failures are logged and absorbed; the overview is then
// computed from Postgres and written back best-effort. Mutations do not
// invalidate the cache, so staleness is bounded by the TTL.
func (s *Service) Overview(ctx context.Context) (*types.DashboardOverview, error) {
	if cached := s.fromCache(ctx); cached != nil {
		return cached, nil
	}

	overview, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}

	s.toCache(ctx, overview)
	return overview, nil
}

// compute fans the source queries out concurrently and derives the KPIs.
func (s *Service) compute(ctx context.Context) (*types.DashboardOverview, error) {
	now := s.clock.Now()
	overview := &types.DashboardOverview{GeneratedAt: now}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := s.repos.Buildings.Count(gctx)
		overview.Counts.Buildings = n
		return err
	})
	g.Go(func() error {
		n, err := s.repos.Zones.Count(gctx)
		overview.Counts.Zones = n
		return err
	})
	g.Go(func() error {
		n, err := s.repos.Meters.Count(gctx)
		overview.Counts.Meters = n
		return err
	})
	g.Go(func() error {
		n, err := s.repos.Readings.Count(gctx)
		overview.Counts.Readings = n
		return err
	})
	g.Go(func() error {
		n, err := s.repos.Alerts.CountActive(gctx)
		overview.ActiveAlertCount = n
		return err
	})
	g.Go(func() error {
		alerts, err := s.repos.Alerts.ListRecent(gctx, s.recentAlerts)
		if err != nil {
			return err
		}
		recent := make([]types.Alert, len(alerts))
		for i, a := range alerts {
			recent[i] = *a
		}
		overview.RecentAlerts = recent
		return nil
	})
	g.Go(func() error {
		series, err := s.repos.Series.HourlyTotals(gctx, now.Add(-24*time.Hour), now)
		overview.HourlySeries = series
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if overview.HourlySeries == nil {
		overview.HourlySeries = []types.SeriesPoint{}
	}
	if overview.RecentAlerts == nil {
		overview.RecentAlerts = []types.Alert{}
	}

	var dayTotal float64
	for _, point := range overview.HourlySeries {
		dayTotal += point.Total
	}
	// Cost and CO2 are derived from the last day's consumption; only the
	// month figure extrapolates.
	overview.KPIs = types.DashboardKPIs{
		MonthConsumptionEstimate: dayTotal * types.KPIMonthExtrapolationDays,
		EnergyCost:               dayTotal * types.KPICostPerKWh,
		CO2Kg:                    dayTotal * types.KPICO2KgPerKWh,
	}

	return overview, nil
}

func (s *Service) fromCache(ctx context.Context) *types.DashboardOverview {
	if s.cache == nil {
		return nil
	}

	payload, err := s.cache.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("dashboard cache read failed", "error", err)
		}
		return nil
	}

	var overview types.DashboardOverview
	if err := json.Unmarshal(payload, &overview); err != nil {
		s.logger.Warn("dashboard cache entry unreadable", "error", err)
		return nil
	}
	return &overview
}

func (s *Service) toCache(ctx context.Context, overview *types.DashboardOverview) {
	if s.cache == nil {
		return
	}

	payload, err := json.Marshal(overview)
	if err != nil {
		s.logger.Warn("dashboard cache encode failed", "error", err)
		return
	}
	if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn("dashboard cache write failed", "error", err)
	}
}
