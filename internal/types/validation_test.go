package types

import (
	"strings"
	"testing"
	"time"
)

// --- ValidMeterNo Tests ---

func TestValidMeterNo_ValidValues(t *testing.T) {
	tests := []string{
		"MT-001",
		"AB-999",
		"ZZ-000",
		"EM-123",
	}

	for _, no := range tests {
		t.Run(no, func(t *testing.T) {
			if !ValidMeterNo(no) {
				t.Errorf("ValidMeterNo(%q) = false, want true", no)
			}
		})
	}
}

func TestValidMeterNo_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		no   string
	}{
		{"lowercase prefix", "mt-001"},
		{"mixed case prefix", "Mt-001"},
		{"one letter prefix", "M-001"},
		{"three letter prefix", "MTR-001"},
		{"two digits", "MT-01"},
		{"four digits", "MT-0011"},
		{"missing dash", "MT001"},
		{"underscore separator", "MT_001"},
		{"letters in number", "MT-0A1"},
		{"leading space", " MT-001"},
		{"trailing space", "MT-001 "},
		{"embedded match", "XMT-001"},
		{"empty string", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if ValidMeterNo(tt.no) {
				t.Errorf("ValidMeterNo(%q) = true, want false", tt.no)
			}
		})
	}
}

// --- ValidateTimeRange Tests ---

func TestValidateTimeRange_ZeroValuesPass(t *testing.T) {
	now := time.Now().UTC()
	if err := ValidateTimeRange(time.Time{}, now); err != nil {
		t.Errorf("ValidateTimeRange with zero start should pass, got: %v", err)
	}
	if err := ValidateTimeRange(now, time.Time{}); err != nil {
		t.Errorf("ValidateTimeRange with zero end should pass, got: %v", err)
	}
}

func TestValidateTimeRange_ValidRange(t *testing.T) {
	now := time.Now().UTC()
	if err := ValidateTimeRange(now, now.Add(time.Hour)); err != nil {
		t.Errorf("ValidateTimeRange with valid range returned error: %v", err)
	}
}

func TestValidateTimeRange_EndBeforeStart(t *testing.T) {
	now := time.Now().UTC()
	err := ValidateTimeRange(now, now.Add(-time.Hour))
	if err == nil {
		t.Fatal("ValidateTimeRange with end before start should return error")
	}
	if !strings.Contains(err.Error(), string(ErrCodeValidationTimeWindow)) {
		t.Errorf("error should contain code %q, got: %v", ErrCodeValidationTimeWindow, err)
	}
}

func TestValidateTimeRange_EndEqualsStart(t *testing.T) {
	now := time.Now().UTC()
	if err := ValidateTimeRange(now, now); err == nil {
		t.Fatal("ValidateTimeRange with end == start should return error")
	}
}

// --- AggregationWindow Tests ---

func TestAggregationWindow_Hourly(t *testing.T) {
	target := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)
	start, end := AggregationWindow(BucketHourly, target)

	if !end.Equal(target) {
		t.Errorf("end = %v, want %v", end, target)
	}
	if !start.Equal(target.Add(-24 * time.Hour)) {
		t.Errorf("start = %v, want %v", start, target.Add(-24*time.Hour))
	}
}

func TestAggregationWindow_Daily(t *testing.T) {
	target := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)
	start, end := AggregationWindow(BucketDaily, target)

	if !end.Equal(target) {
		t.Errorf("end = %v, want %v", end, target)
	}
	if !start.Equal(target.AddDate(0, 0, -30)) {
		t.Errorf("start = %v, want %v", start, target.AddDate(0, 0, -30))
	}
}

func TestAggregationWindow_NormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("KST", 9*3600)
	target := time.Date(2026, 3, 15, 10, 0, 0, 0, loc)
	_, end := AggregationWindow(BucketHourly, target)
	if end.Location() != time.UTC {
		t.Errorf("end location = %v, want UTC", end.Location())
	}
}

// --- TruncateToBucket Tests ---

func TestTruncateToBucket_Hourly(t *testing.T) {
	ts := time.Date(2026, 3, 15, 10, 42, 59, 123456, time.UTC)
	got := TruncateToBucket(BucketHourly, ts)
	want := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("TruncateToBucket(hourly) = %v, want %v", got, want)
	}
}

func TestTruncateToBucket_Daily(t *testing.T) {
	ts := time.Date(2026, 3, 15, 23, 59, 59, 0, time.UTC)
	got := TruncateToBucket(BucketDaily, ts)
	want := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("TruncateToBucket(daily) = %v, want %v", got, want)
	}
}

func TestTruncateToBucket_AlreadyTruncated(t *testing.T) {
	ts := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	if got := TruncateToBucket(BucketHourly, ts); !got.Equal(ts) {
		t.Errorf("TruncateToBucket on bucket boundary = %v, want %v", got, ts)
	}
}

func TestTruncateToBucket_ConvertsToUTCFirst(t *testing.T) {
	// 01:30 KST on March 16 is 16:30 UTC on March 15; the daily bucket must be
	// the UTC day, not the local day.
	loc := time.FixedZone("KST", 9*3600)
	ts := time.Date(2026, 3, 16, 1, 30, 0, 0, loc)
	got := TruncateToBucket(BucketDaily, ts)
	want := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("TruncateToBucket(daily, KST) = %v, want %v", got, want)
	}
}

// --- ReportWindow Tests ---

func TestReportWindow(t *testing.T) {
	now := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		period ReportPeriod
		start  time.Time
	}{
		{PeriodDaily, now.AddDate(0, 0, -1)},
		{PeriodWeekly, now.AddDate(0, 0, -7)},
		{PeriodMonthly, now.AddDate(0, 0, -30)},
	}

	for _, tt := range tests {
		t.Run(string(tt.period), func(t *testing.T) {
			start, end := ReportWindow(tt.period, now)
			if !end.Equal(now) {
				t.Errorf("end = %v, want %v", end, now)
			}
			if !start.Equal(tt.start) {
				t.Errorf("start = %v, want %v", start, tt.start)
			}
		})
	}
}

// --- Validation Constants Tests ---

func TestValidationConstants(t *testing.T) {
	if MaxNameLength != 200 {
		t.Errorf("MaxNameLength = %d, want 200", MaxNameLength)
	}
	if MaxBatchReadings != 1000 {
		t.Errorf("MaxBatchReadings = %d, want 1000", MaxBatchReadings)
	}
	if MaxBatchErrorDetail != 10 {
		t.Errorf("MaxBatchErrorDetail = %d, want 10", MaxBatchErrorDetail)
	}
	if EqualsEpsilon != 0.01 {
		t.Errorf("EqualsEpsilon = %v, want 0.01", EqualsEpsilon)
	}
}
