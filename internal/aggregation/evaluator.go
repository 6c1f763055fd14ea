package aggregation

import (
	"context"
	"log/slog"
	"math"

	"github.com/google/uuid"

	"gridwatch/internal/types"
)

// RuleSource provides the enabled alert rules.
type RuleSource interface {
	ListEnabled(ctx context.Context) ([]*types.AlertRule, error)
}

// ScopeResolver maps meter ids to their zone/building chain.
type ScopeResolver interface {
	GetScopes(ctx context.Context, meterIDs []string) (map[string]types.MeterScope, error)
}

// AlertSink persists triggered alerts.
type AlertSink interface {
	Create(ctx context.Context, a *types.Alert) error
}

// Evaluator checks freshly computed aggregates against the enabled alert
// rules and materializes one alert per breach.
type Evaluator struct {
	rules  RuleSource
	scopes ScopeResolver
	alerts AlertSink
	clock  types.Clock
	logger *slog.Logger
}

// NewEvaluator creates an alert rule evaluator.
func NewEvaluator(rules RuleSource, scopes ScopeResolver, alerts AlertSink, logger *slog.Logger) *Evaluator {
	return &Evaluator{
		rules:  rules,
		scopes: scopes,
		alerts: alerts,
		clock:  types.RealClock{},
		logger: logger,
	}
}

// Evaluate runs every enabled rule against every aggregate and creates an
// alert row for each match. There is no dedup or rate limiting; a rule that
// keeps breaching keeps producing alerts. A storage error aborts the run and
// alerts created before it remain.
func (ev *Evaluator) Evaluate(ctx context.Context, aggregates []*types.Aggregate) ([]*types.Alert, error) {
	if len(aggregates) == 0 {
		return []*types.Alert{}, nil
	}

	rules, err := ev.rules.ListEnabled(ctx)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return []*types.Alert{}, nil
	}

	scopes, err := ev.scopes.GetScopes(ctx, meterIDs(aggregates))
	if err != nil {
		return nil, err
	}

	created := []*types.Alert{}
	for _, rule := range rules {
		for _, agg := range aggregates {
			scope, ok := scopes[agg.MeterID]
			if !ok {
				// Meter deleted between aggregation and evaluation.
				continue
			}
			if !ruleAppliesTo(rule, scope) {
				continue
			}

			value := metricValue(rule.MetricType, agg)
			if !breaches(rule.Comparison, value, rule.Threshold) {
				continue
			}

			alert := &types.Alert{
				ID:           "alrt_" + uuid.New().String(),
				RuleID:       rule.ID,
				Title:        rule.Name,
				Description:  rule.Description,
				MetricType:   rule.MetricType,
				Severity:     rule.Severity,
				Status:       types.AlertActive,
				BuildingName: scope.BuildingName,
				ZoneName:     scope.ZoneName,
				MeterID:      agg.MeterID,
				Value:        value,
				Threshold:    rule.Threshold,
				Unit:         rule.Unit,
				TriggeredAt:  agg.BucketTS,
				CreatedAt:    ev.clock.Now(),
			}
			if err := ev.alerts.Create(ctx, alert); err != nil {
				return nil, err
			}
			created = append(created, alert)
		}
	}

	if len(created) > 0 {
		ev.logger.Info("alert evaluation complete",
			"rules", len(rules),
			"aggregates", len(aggregates),
			"alerts_triggered", len(created),
		)
	}
	return created, nil
}

// meterIDs returns the distinct meter ids across the aggregates, preserving
// first-seen order.
func meterIDs(aggregates []*types.Aggregate) []string {
	seen := make(map[string]struct{}, len(aggregates))
	ids := make([]string, 0, len(aggregates))
	for _, agg := range aggregates {
		if _, ok := seen[agg.MeterID]; ok {
			continue
		}
		seen[agg.MeterID] = struct{}{}
		ids = append(ids, agg.MeterID)
	}
	return ids
}

// ruleAppliesTo checks the rule's building/zone scope against the meter's
// resolved chain. Unset names match everything; set names match exactly.
func ruleAppliesTo(rule *types.AlertRule, scope types.MeterScope) bool {
	if rule.BuildingName != "" && rule.BuildingName != scope.BuildingName {
		return false
	}
	if rule.ZoneName != "" && rule.ZoneName != scope.ZoneName {
		return false
	}
	return true
}

// metricValue selects the aggregate statistic a metric type compares against.
func metricValue(metric types.MetricType, agg *types.Aggregate) float64 {
	switch metric {
	case types.MetricConsumption:
		return agg.Sum
	case types.MetricEfficiency:
		return agg.Avg
	default: // peak, anomaly
		return agg.Max
	}
}

// breaches applies the rule's comparison operator.
func breaches(cmp types.Comparison, value, threshold float64) bool {
	switch cmp {
	case types.CompareAbove:
		return value > threshold
	case types.CompareBelow:
		return value < threshold
	case types.CompareEquals:
		return math.Abs(value-threshold) < types.EqualsEpsilon
	}
	return false
}
