package types

import (
	"fmt"
	"regexp"
	"time"
)

// Validation constraint constants.
const (
	MaxNameLength        = 200
	MaxDescriptionLength = 1000
	MaxBatchReadings     = 1000
	MaxBatchErrorDetail  = 10
)

// MeterNoPattern is the required meter number format: two uppercase letters,
// a dash, three digits (e.g. MT-001).
var MeterNoPattern = regexp.MustCompile(`^[A-Z]{2}-\d{3}$`)

// ValidMeterNo reports whether s matches the meter number format.
func ValidMeterNo(s string) bool {
	return MeterNoPattern.MatchString(s)
}

// ValidateTimeRange ensures end is after start when both are set.
func ValidateTimeRange(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return nil
	}
	if !end.After(start) {
		return fmt.Errorf("%s: end must be after start", ErrCodeValidationTimeWindow)
	}
	return nil
}

// AggregationWindow returns the query window ending at target for the given
// bucket type: 24 hours back for hourly buckets, 30 days back for daily.
func AggregationWindow(b BucketType, target time.Time) (time.Time, time.Time) {
	target = target.UTC()
	if b == BucketDaily {
		return target.AddDate(0, 0, -30), target
	}
	return target.Add(-24 * time.Hour), target
}

// TruncateToBucket truncates ts to the start of its hourly or daily bucket
// in UTC.
func TruncateToBucket(b BucketType, ts time.Time) time.Time {
	ts = ts.UTC()
	if b == BucketDaily {
		return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
	}
	return ts.Truncate(time.Hour)
}

// ReportWindow returns the report range ending at now for the given period:
// 1 day for daily, 7 for weekly, 30 for monthly.
func ReportWindow(p ReportPeriod, now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	switch p {
	case PeriodWeekly:
		return now.AddDate(0, 0, -7), now
	case PeriodMonthly:
		return now.AddDate(0, 0, -30), now
	default:
		return now.AddDate(0, 0, -1), now
	}
}
