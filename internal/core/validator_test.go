package core

import (
	"errors"
	"log/slog"
	"os"
	"testing"

	"gridwatch/internal/types"
)

// testLogger returns a logger that only surfaces errors during tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// -- Test structs for custom validation tags --

type testMeterStruct struct {
	MeterNo string `validate:"required,meter_no"`
}

type testBucketStruct struct {
	BucketType string `validate:"required,bucket_type"`
}

type testRuleStruct struct {
	MetricType string  `validate:"required,metric_type"`
	Comparison string  `validate:"required,comparison"`
	Severity   string  `validate:"required,alert_severity"`
	Threshold  float64 `validate:"gt=0"`
}

type testReportStruct struct {
	Period string `validate:"required,report_period"`
	Format string `validate:"omitempty,report_format"`
}

type testRequiredStruct struct {
	Name  string `validate:"required"`
	Limit int    `validate:"gte=1"`
}

// -- ValidationResult tests --

func TestValidationResult_IsValid(t *testing.T) {
	t.Run("empty result is valid", func(t *testing.T) {
		r := ValidationResult{}
		if !r.IsValid() {
			t.Error("expected empty ValidationResult to be valid")
		}
	})

	t.Run("result with errors is not valid", func(t *testing.T) {
		r := ValidationResult{
			Errors: []ValidationError{{Field: "name", Code: "required", Message: "required"}},
		}
		if r.IsValid() {
			t.Error("expected ValidationResult with errors to be invalid")
		}
	})

	t.Run("result with only warnings is valid", func(t *testing.T) {
		r := ValidationResult{
			Warnings: []string{"deprecated field"},
		}
		if !r.IsValid() {
			t.Error("expected ValidationResult with only warnings to be valid")
		}
	})
}

func TestNewValidator(t *testing.T) {
	v := NewValidator(testLogger())
	if v == nil {
		t.Fatal("NewValidator returned nil")
	}
	if v.validate == nil {
		t.Error("expected validate field to be non-nil")
	}
	if v.logger == nil {
		t.Error("expected logger field to be non-nil")
	}
}

func TestValidateStruct_Success(t *testing.T) {
	v := NewValidator(testLogger())

	req := testRequiredStruct{Name: "Test", Limit: 10}
	if err := v.ValidateStruct(req); err != nil {
		t.Errorf("expected nil error, got: %v", err)
	}
}

func TestValidateStruct_Failure_ReturnsAppError(t *testing.T) {
	v := NewValidator(testLogger())

	req := testRequiredStruct{Name: "", Limit: 0}

	err := v.ValidateStruct(req)
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *types.AppError, got %T: %v", err, err)
	}

	// The error code should map to the first validation failure.
	if appErr.Code != types.ErrCodeValidationMissingField {
		t.Errorf("expected code %s, got %s", types.ErrCodeValidationMissingField, appErr.Code)
	}

	// Details should contain validation_errors.
	if appErr.Details == nil {
		t.Fatal("expected non-nil details")
	}
	ve, ok := appErr.Details["validation_errors"]
	if !ok {
		t.Fatal("expected validation_errors key in details")
	}
	errs, ok := ve.([]ValidationError)
	if !ok {
		t.Fatalf("expected []ValidationError, got %T", ve)
	}
	if len(errs) != 2 {
		t.Errorf("expected 2 validation errors, got %d", len(errs))
	}
}

func TestValidateStructWithWarnings_Invalid(t *testing.T) {
	v := NewValidator(testLogger())

	req := testRequiredStruct{Name: "", Limit: 0}

	result := v.ValidateStructWithWarnings(req)
	if result.IsValid() {
		t.Error("expected invalid result")
	}

	codeMap := make(map[string]bool)
	for _, e := range result.Errors {
		codeMap[e.Code] = true
	}
	if !codeMap[string(types.ErrCodeValidationMissingField)] {
		t.Error("expected validation_missing_required_field code for empty Name")
	}
	if !codeMap[string(types.ErrCodeValidationPositiveNumber)] {
		t.Error("expected validation_number_not_positive code for zero Limit")
	}
}

// -- Custom tag tests --

func TestMeterNoTag(t *testing.T) {
	v := NewValidator(testLogger())

	tests := []struct {
		meterNo string
		valid   bool
	}{
		{"MT-001", true},
		{"AB-999", true},
		{"mt-001", false},
		{"MT-01", false},
		{"MT-0001", false},
		{"MTX-001", false},
		{"MT001", false},
	}

	for _, tt := range tests {
		t.Run(tt.meterNo, func(t *testing.T) {
			err := v.ValidateStruct(testMeterStruct{MeterNo: tt.meterNo})
			if tt.valid && err != nil {
				t.Errorf("expected %q to pass, got: %v", tt.meterNo, err)
			}
			if !tt.valid {
				if err == nil {
					t.Fatalf("expected %q to fail", tt.meterNo)
				}
				var appErr *types.AppError
				if errors.As(err, &appErr) && appErr.Code != types.ErrCodeValidationMeterNumber {
					t.Errorf("expected code %s, got %s", types.ErrCodeValidationMeterNumber, appErr.Code)
				}
			}
		})
	}
}

func TestBucketTypeTag(t *testing.T) {
	v := NewValidator(testLogger())

	for _, valid := range []string{"hourly", "daily"} {
		if err := v.ValidateStruct(testBucketStruct{BucketType: valid}); err != nil {
			t.Errorf("expected %q to pass, got: %v", valid, err)
		}
	}

	err := v.ValidateStruct(testBucketStruct{BucketType: "weekly"})
	if err == nil {
		t.Fatal("expected weekly to fail bucket_type validation")
	}
	var appErr *types.AppError
	if errors.As(err, &appErr) && appErr.Code != types.ErrCodeValidationBucketType {
		t.Errorf("expected code %s, got %s", types.ErrCodeValidationBucketType, appErr.Code)
	}
}

func TestRuleTags(t *testing.T) {
	v := NewValidator(testLogger())

	valid := testRuleStruct{
		MetricType: "consumption",
		Comparison: "above",
		Severity:   "high",
		Threshold:  50,
	}
	if err := v.ValidateStruct(valid); err != nil {
		t.Errorf("expected valid rule to pass, got: %v", err)
	}

	tests := []struct {
		name string
		req  testRuleStruct
		code types.ErrorCode
	}{
		{
			name: "bad metric type",
			req:  testRuleStruct{MetricType: "power", Comparison: "above", Severity: "low", Threshold: 1},
			code: types.ErrCodeValidationMetricType,
		},
		{
			name: "bad comparison",
			req:  testRuleStruct{MetricType: "peak", Comparison: "over", Severity: "low", Threshold: 1},
			code: types.ErrCodeValidationComparison,
		},
		{
			name: "bad severity",
			req:  testRuleStruct{MetricType: "peak", Comparison: "above", Severity: "urgent", Threshold: 1},
			code: types.ErrCodeValidationSeverity,
		},
		{
			name: "non-positive threshold",
			req:  testRuleStruct{MetricType: "peak", Comparison: "above", Severity: "low", Threshold: 0},
			code: types.ErrCodeValidationPositiveNumber,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateStruct(tt.req)
			if err == nil {
				t.Fatal("expected validation failure")
			}
			var appErr *types.AppError
			if !errors.As(err, &appErr) {
				t.Fatalf("expected *types.AppError, got %T", err)
			}
			if appErr.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, appErr.Code)
			}
		})
	}
}

func TestReportTags(t *testing.T) {
	v := NewValidator(testLogger())

	if err := v.ValidateStruct(testReportStruct{Period: "weekly", Format: "xlsx"}); err != nil {
		t.Errorf("expected valid report request to pass, got: %v", err)
	}

	// Empty format is allowed via omitempty.
	if err := v.ValidateStruct(testReportStruct{Period: "daily"}); err != nil {
		t.Errorf("expected empty format to pass, got: %v", err)
	}

	err := v.ValidateStruct(testReportStruct{Period: "quarterly"})
	if err == nil {
		t.Fatal("expected quarterly to fail report_period validation")
	}
	var appErr *types.AppError
	if errors.As(err, &appErr) && appErr.Code != types.ErrCodeValidationReportPeriod {
		t.Errorf("expected code %s, got %s", types.ErrCodeValidationReportPeriod, appErr.Code)
	}

	err = v.ValidateStruct(testReportStruct{Period: "daily", Format: "pdf"})
	if err == nil {
		t.Fatal("expected pdf to fail report_format validation")
	}
}

func TestAlertStatusTag(t *testing.T) {
	v := NewValidator(testLogger())

	type patchStruct struct {
		Status string `validate:"required,alert_status"`
	}

	for _, valid := range []string{"active", "acknowledged", "resolved"} {
		if err := v.ValidateStruct(patchStruct{Status: valid}); err != nil {
			t.Errorf("expected %q to pass, got: %v", valid, err)
		}
	}

	err := v.ValidateStruct(patchStruct{Status: "closed"})
	if err == nil {
		t.Fatal("expected closed to fail alert_status validation")
	}
	var appErr *types.AppError
	if errors.As(err, &appErr) && appErr.Code != types.ErrCodeValidationStatus {
		t.Errorf("expected code %s, got %s", types.ErrCodeValidationStatus, appErr.Code)
	}
}

func TestValidateStruct_NonStruct(t *testing.T) {
	v := NewValidator(testLogger())

	err := v.ValidateStruct("not a struct")
	if err == nil {
		t.Fatal("expected error for non-struct input")
	}
	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *types.AppError, got %T", err)
	}
	if appErr.Code != types.ErrCodeValidationFailed {
		t.Errorf("expected code %s, got %s", types.ErrCodeValidationFailed, appErr.Code)
	}
}

func TestFieldPath_StripsRootStruct(t *testing.T) {
	v := NewValidator(testLogger())

	type inner struct {
		Value string `validate:"required"`
	}
	type outer struct {
		Nested inner
	}

	result := v.ValidateStructWithWarnings(outer{})
	if result.IsValid() {
		t.Fatal("expected nested required failure")
	}
	if result.Errors[0].Field != "Nested.Value" {
		t.Errorf("expected field path Nested.Value, got %q", result.Errors[0].Field)
	}
}
