package types

// BucketType identifies the time granularity of an aggregation bucket.
type BucketType string

const (
	BucketHourly BucketType = "hourly"
	BucketDaily  BucketType = "daily"
)

// IsValid reports whether the bucket type is one of the known values.
func (b BucketType) IsValid() bool {
	return b == BucketHourly || b == BucketDaily
}

// MetricType identifies which aggregate statistic an alert rule targets.
type MetricType string

const (
	MetricConsumption MetricType = "consumption"
	MetricPeak        MetricType = "peak"
	MetricEfficiency  MetricType = "efficiency"
	MetricAnomaly     MetricType = "anomaly"
)

// IsValid reports whether the metric type is one of the known values.
func (m MetricType) IsValid() bool {
	switch m {
	case MetricConsumption, MetricPeak, MetricEfficiency, MetricAnomaly:
		return true
	}
	return false
}

// Comparison defines the threshold comparison operator for alert rules.
type Comparison string

const (
	CompareAbove  Comparison = "above"
	CompareBelow  Comparison = "below"
	CompareEquals Comparison = "equals"
)

// IsValid reports whether the comparison is one of the known operators.
func (c Comparison) IsValid() bool {
	return c == CompareAbove || c == CompareBelow || c == CompareEquals
}

// AlertSeverity ranks the operational urgency of an alert.
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// IsValid reports whether the severity is one of the known values.
func (s AlertSeverity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// AlertStatus represents the lifecycle state of an alert.
// Transitions are forward-only: active -> acknowledged -> resolved.
type AlertStatus string

const (
	AlertActive       AlertStatus = "active"
	AlertAcknowledged AlertStatus = "acknowledged"
	AlertResolved     AlertStatus = "resolved"
)

// IsValid reports whether the status is one of the known lifecycle states.
func (s AlertStatus) IsValid() bool {
	_, ok := alertStatusRank[s]
	return ok
}

// alertStatusRank orders alert statuses for the forward-only transition check.
var alertStatusRank = map[AlertStatus]int{
	AlertActive:       0,
	AlertAcknowledged: 1,
	AlertResolved:     2,
}

// CanTransitionTo reports whether moving from s to next is a strictly forward
// transition. Skipping acknowledged (active -> resolved) is allowed; any
// repeat or regression is not.
func (s AlertStatus) CanTransitionTo(next AlertStatus) bool {
	from, ok := alertStatusRank[s]
	if !ok {
		return false
	}
	to, ok := alertStatusRank[next]
	if !ok {
		return false
	}
	return to > from
}

// JobType identifies the kind of aggregation job.
type JobType string

const (
	JobHourlyAggregation JobType = "hourly_aggregation"
	JobDailyAggregation  JobType = "daily_aggregation"
)

// JobTypeForBucket maps a bucket type to its job type.
func JobTypeForBucket(b BucketType) JobType {
	if b == BucketDaily {
		return JobDailyAggregation
	}
	return JobHourlyAggregation
}

// JobStatus represents the execution state of a job.
// running is initial; completed and failed are terminal.
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// IsTerminal reports whether the job status can no longer change.
func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed
}

// ReadingQuality flags the trustworthiness of a reading.
type ReadingQuality string

const (
	QualityGood         ReadingQuality = "good"
	QualityEstimated    ReadingQuality = "estimated"
	QualityQuestionable ReadingQuality = "questionable"
)

// ReportPeriod defines the time span a report covers, ending at generation time.
type ReportPeriod string

const (
	PeriodDaily   ReportPeriod = "daily"
	PeriodWeekly  ReportPeriod = "weekly"
	PeriodMonthly ReportPeriod = "monthly"
)

// IsValid reports whether the period is one of the known report spans.
func (p ReportPeriod) IsValid() bool {
	return p == PeriodDaily || p == PeriodWeekly || p == PeriodMonthly
}

// ReportFormat identifies the artifact encoding for a generated report.
type ReportFormat string

const (
	FormatXLSX ReportFormat = "xlsx"
	FormatJSON ReportFormat = "json"
)

// IsValid reports whether the format is one of the supported encodings.
func (f ReportFormat) IsValid() bool {
	return f == FormatXLSX || f == FormatJSON
}

// IsValid reports whether the quality flag is one of the known values.
func (q ReadingQuality) IsValid() bool {
	return q == QualityGood || q == QualityEstimated || q == QualityQuestionable
}

// UserRole defines authorization levels for API access.
type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleOperator UserRole = "operator"
)

// roleRank orders roles for RoleHasAtLeast comparisons.
var roleRank = map[UserRole]int{
	RoleOperator: 1,
	RoleAdmin:    2,
}

// Dashboard KPI multipliers. The month estimate extrapolates the last 24 hours
// of consumption; cost and CO2 factors match the reporting conventions of the
// billing utility (KRW 120 per kWh, 0.46 kg CO2 per kWh).
const (
	KPIMonthExtrapolationDays = 30
	KPICostPerKWh             = 120.0
	KPICO2KgPerKWh            = 0.46
)

// EqualsEpsilon is the tolerance used by the equals comparison on alert rules.
const EqualsEpsilon = 0.01
