package core

import (
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"gridwatch/internal/types"
)

// Validator wraps go-playground/validator and registers the domain-specific
// rules used by request DTOs: meter numbers, bucket types, metric types,
// comparisons, severities, alert statuses, and report periods/formats.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// ValidationError describes a single field-level validation failure in a
// client-consumable shape.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult aggregates field errors and non-blocking warnings.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []string
}

// IsValid reports whether the result contains no errors. Warnings alone do
// not make a result invalid.
func (r ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// NewValidator creates a new Validator and registers custom validation tags.
func NewValidator(logger *slog.Logger) *Validator {
	v := validator.New()

	// RegisterValidation only errors on an empty tag or nil func.
	_ = v.RegisterValidation("meter_no", validateMeterNo)
	_ = v.RegisterValidation("bucket_type", validateBucketType)
	_ = v.RegisterValidation("metric_type", validateMetricType)
	_ = v.RegisterValidation("comparison", validateComparison)
	_ = v.RegisterValidation("alert_severity", validateAlertSeverity)
	_ = v.RegisterValidation("alert_status", validateAlertStatus)
	_ = v.RegisterValidation("report_period", validateReportPeriod)
	_ = v.RegisterValidation("report_format", validateReportFormat)

	return &Validator{
		validate: v,
		logger:   logger,
	}
}

// ValidateStruct validates the given struct against its `validate` tags.
// On failure it returns a *types.AppError whose Code reflects the first
// validation failure and whose Details carry the full list of field errors
// under the "validation_errors" key.
func (v *Validator) ValidateStruct(s interface{}) error {
	result := v.ValidateStructWithWarnings(s)
	if result.IsValid() {
		return nil
	}

	first := result.Errors[0]
	return types.NewAppErrorWithDetails(
		types.ErrorCode(first.Code),
		"request validation failed",
		nil,
		map[string]any{
			"validation_errors": result.Errors,
		},
	)
}

// ValidateStructWithWarnings validates the struct and returns the full
// result instead of collapsing it into a single error. Handlers that want to
// report every field failure use this directly.
func (v *Validator) ValidateStructWithWarnings(s interface{}) ValidationResult {
	var result ValidationResult

	err := v.validate.Struct(s)
	if err == nil {
		return result
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		// InvalidValidationError: the caller passed something that is not a
		// struct. This is a programming error, not bad user input.
		v.logger.Error("validator received non-struct value", "error", err.Error())
		result.Errors = append(result.Errors, ValidationError{
			Field:   "",
			Code:    string(types.ErrCodeValidationFailed),
			Message: "invalid request payload",
		})
		return result
	}

	for _, fe := range validationErrs {
		result.Errors = append(result.Errors, ValidationError{
			Field:   fieldPath(fe),
			Code:    string(codeForTag(fe.Tag())),
			Message: messageForTag(fe),
		})
	}

	return result
}

// fieldPath returns the field's namespace relative to the root struct
// (e.g. "Scope.BuildingID" instead of "CreateRuleRequest.Scope.BuildingID").
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	return ns
}

// codeForTag maps a validation tag to the structured error code clients
// switch on.
func codeForTag(tag string) types.ErrorCode {
	switch tag {
	case "required", "required_if", "required_with":
		return types.ErrCodeValidationMissingField
	case "meter_no":
		return types.ErrCodeValidationMeterNumber
	case "gt", "gte", "min":
		return types.ErrCodeValidationPositiveNumber
	case "bucket_type":
		return types.ErrCodeValidationBucketType
	case "metric_type":
		return types.ErrCodeValidationMetricType
	case "comparison":
		return types.ErrCodeValidationComparison
	case "alert_severity":
		return types.ErrCodeValidationSeverity
	case "alert_status":
		return types.ErrCodeValidationStatus
	case "report_period", "report_format":
		return types.ErrCodeValidationReportPeriod
	default:
		return types.ErrCodeValidationFailed
	}
}

// messageForTag produces a human-readable message for a field error.
func messageForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if", "required_with":
		return "this field is required"
	case "meter_no":
		return "meter number must match the pattern AA-000"
	case "gt", "gte", "min":
		return "value must be positive"
	case "max":
		return "value exceeds the maximum allowed"
	case "bucket_type":
		return "bucket type must be one of: hourly, daily"
	case "metric_type":
		return "metric type must be one of: consumption, peak, efficiency, anomaly"
	case "comparison":
		return "comparison must be one of: above, below, equals"
	case "alert_severity":
		return "severity must be one of: low, medium, high, critical"
	case "alert_status":
		return "status must be one of: active, acknowledged, resolved"
	case "report_period":
		return "period must be one of: daily, weekly, monthly"
	case "report_format":
		return "format must be one of: xlsx, json"
	case "oneof":
		return "value must be one of: " + fe.Param()
	default:
		return "failed validation rule: " + fe.Tag()
	}
}

func validateMeterNo(fl validator.FieldLevel) bool {
	return types.ValidMeterNo(fl.Field().String())
}

func validateBucketType(fl validator.FieldLevel) bool {
	return types.BucketType(fl.Field().String()).IsValid()
}

func validateMetricType(fl validator.FieldLevel) bool {
	return types.MetricType(fl.Field().String()).IsValid()
}

func validateComparison(fl validator.FieldLevel) bool {
	return types.Comparison(fl.Field().String()).IsValid()
}

func validateAlertSeverity(fl validator.FieldLevel) bool {
	return types.AlertSeverity(fl.Field().String()).IsValid()
}

func validateAlertStatus(fl validator.FieldLevel) bool {
	return types.AlertStatus(fl.Field().String()).IsValid()
}

func validateReportPeriod(fl validator.FieldLevel) bool {
	return types.ReportPeriod(fl.Field().String()).IsValid()
}

func validateReportFormat(fl validator.FieldLevel) bool {
	return types.ReportFormat(fl.Field().String()).IsValid()
}
