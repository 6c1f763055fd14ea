package types

import (
	"time"
)

// Building is the top-level inventory entity. A building owns zero or more
// zones; deleting a building cascades to its zones, meters, and readings.
type Building struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Address     string    `json:"address" db:"address"`
	Area        float64   `json:"area" db:"area"`
	Floors      int       `json:"floors" db:"floors"`
	Description string    `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Zone is a floor-level subdivision of a building.
type Zone struct {
	ID          string    `json:"id" db:"id"`
	BuildingID  string    `json:"building_id" db:"building_id"`
	Name        string    `json:"name" db:"name"`
	Floor       int       `json:"floor" db:"floor"`
	Area        float64   `json:"area" db:"area"`
	Description string    `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Meter is a metering point inside a zone. BuildingID is denormalized from
// the parent zone so aggregation scope queries avoid a double join.
type Meter struct {
	ID          string    `json:"id" db:"id"`
	ZoneID      string    `json:"zone_id" db:"zone_id"`
	BuildingID  string    `json:"building_id" db:"building_id"`
	Name        string    `json:"name" db:"name"`
	MeterNo     string    `json:"meter_no" db:"meter_no"`
	Location    string    `json:"location,omitempty" db:"location"`
	Description string    `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Reading is a single timestamped power measurement from a meter.
// Value is strictly positive; ingestion rejects non-positive rows.
type Reading struct {
	ID        string         `json:"id" db:"id"`
	MeterID   string         `json:"meter_id" db:"meter_id"`
	Value     float64        `json:"value" db:"value"`
	Timestamp time.Time      `json:"timestamp" db:"ts"`
	Quality   ReadingQuality `json:"quality" db:"quality"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}

// Aggregate is the statistical summary of one meter's readings over one
// hourly or daily bucket. Uniquely keyed by (meter_id, bucket_type, bucket_ts);
// re-running aggregation upserts in place.
type Aggregate struct {
	ID           string     `json:"id" db:"id"`
	MeterID      string     `json:"meter_id" db:"meter_id"`
	BucketType   BucketType `json:"bucket_type" db:"bucket_type"`
	BucketTS     time.Time  `json:"bucket_ts" db:"bucket_ts"`
	ReadingCount int        `json:"reading_count" db:"reading_count"`
	Sum          float64    `json:"sum" db:"sum"`
	Avg          float64    `json:"avg" db:"avg"`
	Min          float64    `json:"min" db:"min"`
	Max          float64    `json:"max" db:"max"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// AlertRule is a configured threshold condition evaluated against freshly
// computed aggregates. An empty BuildingName/ZoneName means the rule applies
// to all buildings/zones.
type AlertRule struct {
	ID           string        `json:"id" db:"id"`
	Name         string        `json:"name" db:"name"`
	Description  string        `json:"description,omitempty" db:"description"`
	MetricType   MetricType    `json:"metric_type" db:"metric_type"`
	Comparison   Comparison    `json:"comparison" db:"comparison"`
	Threshold    float64       `json:"threshold" db:"threshold"`
	Unit         string        `json:"unit" db:"unit"`
	BuildingName string        `json:"building_name,omitempty" db:"building_name"`
	ZoneName     string        `json:"zone_name,omitempty" db:"zone_name"`
	Severity     AlertSeverity `json:"severity" db:"severity"`
	Enabled      bool          `json:"enabled" db:"enabled"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at" db:"updated_at"`
}

// Alert is a materialized rule breach. Status moves forward only:
// active -> acknowledged -> resolved.
type Alert struct {
	ID           string        `json:"id" db:"id"`
	RuleID       string        `json:"rule_id" db:"rule_id"`
	Title        string        `json:"title" db:"title"`
	Description  string        `json:"description,omitempty" db:"description"`
	MetricType   MetricType    `json:"metric_type" db:"metric_type"`
	Severity     AlertSeverity `json:"severity" db:"severity"`
	Status       AlertStatus   `json:"status" db:"status"`
	BuildingName string        `json:"building_name,omitempty" db:"building_name"`
	ZoneName     string        `json:"zone_name,omitempty" db:"zone_name"`
	MeterID      string        `json:"meter_id" db:"meter_id"`
	Value        float64       `json:"value" db:"value"`
	Threshold    float64       `json:"threshold" db:"threshold"`
	Unit         string        `json:"unit" db:"unit"`
	TriggeredAt  time.Time     `json:"triggered_at" db:"triggered_at"`

	AcknowledgedBy string     `json:"acknowledged_by,omitempty" db:"acknowledged_by"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty" db:"acknowledged_at"`
	ResolvedBy     string     `json:"resolved_by,omitempty" db:"resolved_by"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty" db:"resolved_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Job tracks one aggregation run. Created as running before work starts,
// finished as completed (with result counts) or failed (with error message).
type Job struct {
	ID              string     `json:"id" db:"id"`
	JobType         JobType    `json:"job_type" db:"job_type"`
	Status          JobStatus  `json:"status" db:"status"`
	TargetDate      time.Time  `json:"target_date" db:"target_date"`
	BuildingID      string     `json:"building_id,omitempty" db:"building_id"`
	ZoneID          string     `json:"zone_id,omitempty" db:"zone_id"`
	StartedAt       time.Time  `json:"started_at" db:"started_at"`
	FinishedAt      *time.Time `json:"finished_at,omitempty" db:"finished_at"`
	AggregatesCount int        `json:"aggregates_count" db:"aggregates_count"`
	AlertsTriggered int        `json:"alerts_triggered" db:"alerts_triggered"`
	Error           string     `json:"error,omitempty" db:"error"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}

// Report records one generated report document: the parameters it was built
// from, the summary statistics, and the artifact file metadata.
type Report struct {
	ID              string       `json:"id" db:"id"`
	Title           string       `json:"title" db:"title"`
	Description     string       `json:"description,omitempty" db:"description"`
	ReportType      string       `json:"report_type" db:"report_type"`
	Period          ReportPeriod `json:"period" db:"period"`
	BuildingID      string       `json:"building_id,omitempty" db:"building_id"`
	RangeStart      time.Time    `json:"range_start" db:"range_start"`
	RangeEnd        time.Time    `json:"range_end" db:"range_end"`
	TotalConsumption float64     `json:"total_consumption" db:"total_consumption"`
	AvgConsumption  float64      `json:"avg_consumption" db:"avg_consumption"`
	PeakPower       float64      `json:"peak_power" db:"peak_power"`
	MeterCount      int          `json:"meter_count" db:"meter_count"`
	Format          ReportFormat `json:"format" db:"format"`
	FileName        string       `json:"file_name" db:"file_name"`
	FileSize        int64        `json:"file_size" db:"file_size"`
	GeneratedAt     time.Time    `json:"generated_at" db:"generated_at"`
}

// MeterScope is the resolved building/zone chain for a meter, used by the
// alert evaluator for scope matching and label stamping.
type MeterScope struct {
	MeterID      string `json:"meter_id" db:"meter_id"`
	MeterNo      string `json:"meter_no" db:"meter_no"`
	ZoneID       string `json:"zone_id" db:"zone_id"`
	ZoneName     string `json:"zone_name" db:"zone_name"`
	BuildingID   string `json:"building_id" db:"building_id"`
	BuildingName string `json:"building_name" db:"building_name"`
}

// EntityCounts holds the inventory totals shown on the dashboard.
type EntityCounts struct {
	Buildings int `json:"buildings"`
	Zones     int `json:"zones"`
	Meters    int `json:"meters"`
	Readings  int `json:"readings"`
}

// SeriesPoint is one point of the dashboard consumption chart: the total
// consumption across all meters for one hourly bucket.
type SeriesPoint struct {
	BucketTS time.Time `json:"bucket_ts"`
	Total    float64   `json:"total"`
}

// DashboardKPIs are the derived headline figures. MonthEstimate extrapolates
// the last 24 hours of consumption across a month; cost and CO2 apply fixed
// per-kWh factors.
type DashboardKPIs struct {
	MonthConsumptionEstimate float64 `json:"month_consumption_estimate"`
	EnergyCost               float64 `json:"energy_cost"`
	CO2Kg                    float64 `json:"co2_kg"`
}

// DashboardOverview is the read model returned by GET /dashboard.
type DashboardOverview struct {
	Counts           EntityCounts  `json:"counts"`
	ActiveAlertCount int           `json:"active_alert_count"`
	HourlySeries     []SeriesPoint `json:"hourly_series"`
	KPIs             DashboardKPIs `json:"kpis"`
	RecentAlerts     []Alert       `json:"recent_alerts"`
	GeneratedAt      time.Time     `json:"generated_at"`
}
