package types

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Complete error code constants.
// All handlers MUST use these constants instead of hardcoded strings.
const (
	// Validation (400)
	ErrCodeValidationFailed         ErrorCode = "validation_failed"
	ErrCodeValidationMissingField   ErrorCode = "validation_missing_required_field"
	ErrCodeValidationMeterNumber    ErrorCode = "validation_invalid_meter_number"
	ErrCodeValidationPositiveNumber ErrorCode = "validation_number_not_positive"
	ErrCodeValidationBucketType     ErrorCode = "validation_invalid_bucket_type"
	ErrCodeValidationMetricType     ErrorCode = "validation_invalid_metric_type"
	ErrCodeValidationComparison     ErrorCode = "validation_invalid_comparison"
	ErrCodeValidationSeverity       ErrorCode = "validation_invalid_severity"
	ErrCodeValidationStatus         ErrorCode = "validation_invalid_status"
	ErrCodeValidationTimeWindow     ErrorCode = "validation_time_window_invalid"
	ErrCodeValidationReportPeriod   ErrorCode = "validation_invalid_report_period"
	ErrCodeValidationUnknownParent  ErrorCode = "validation_unknown_parent"
	ErrCodeValidationBatchSize      ErrorCode = "validation_batch_size_exceeded"
	ErrCodeBulkPartialFailure       ErrorCode = "bulk_partial_failure"

	// Auth (401)
	ErrCodeAuthTokenMissing ErrorCode = "auth_token_missing"
	ErrCodeAuthTokenInvalid ErrorCode = "auth_token_invalid"
	ErrCodeAuthTokenExpired ErrorCode = "auth_token_expired"

	// Permission (403)
	ErrCodePermissionRole ErrorCode = "permission_role_insufficient"

	// Rate limiting (429)
	ErrCodeRateLimit ErrorCode = "rate_limit_exceeded"

	// Not Found (404)
	ErrCodeNotFoundBuilding  ErrorCode = "not_found_building"
	ErrCodeNotFoundZone      ErrorCode = "not_found_zone"
	ErrCodeNotFoundMeter     ErrorCode = "not_found_meter"
	ErrCodeNotFoundAlertRule ErrorCode = "not_found_alert_rule"
	ErrCodeNotFoundAlert     ErrorCode = "not_found_alert"
	ErrCodeNotFoundJob       ErrorCode = "not_found_job"
	ErrCodeNotFoundReport    ErrorCode = "not_found_report"
	ErrCodeNotFoundRoute     ErrorCode = "not_found_route"

	// Conflict (409)
	ErrCodeConflictMeterNumber     ErrorCode = "conflict_meter_number_exists"
	ErrCodeConflictAlertTransition ErrorCode = "conflict_alert_status_regression"
	ErrCodeConflictJobTerminal     ErrorCode = "conflict_job_already_finished"

	// Internal/Upstream (500/502)
	ErrCodeInternalDB         ErrorCode = "internal_database_error"
	ErrCodeInternalCache      ErrorCode = "internal_cache_error"
	ErrCodeInternalReport     ErrorCode = "internal_report_generation_error"
	ErrCodeInternalUnexpected ErrorCode = "internal_unexpected_error"
	ErrCodeUpstreamAuth       ErrorCode = "upstream_auth_provider_unavailable"
	ErrCodeUpstreamRateLimited ErrorCode = "upstream_rate_limited"
)

// HTTPStatus maps an ErrorCode to its corresponding HTTP status code.
// Used by the API layer to translate AppErrors into HTTP responses.
// Returns 500 for unrecognized error codes as a safe default.
func (c ErrorCode) HTTPStatus() int {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "validation_"):
		return http.StatusBadRequest // 400
	case strings.HasPrefix(s, "auth_"):
		return http.StatusUnauthorized // 401
	case strings.HasPrefix(s, "permission_"):
		return http.StatusForbidden // 403
	case s == string(ErrCodeRateLimit):
		return http.StatusTooManyRequests // 429
	case strings.HasPrefix(s, "not_found_"):
		return http.StatusNotFound // 404
	case strings.HasPrefix(s, "conflict_"):
		return http.StatusConflict // 409
	case s == string(ErrCodeUpstreamRateLimited):
		return http.StatusTooManyRequests // 429
	case strings.HasPrefix(s, "upstream_"):
		return http.StatusBadGateway // 502
	case strings.HasPrefix(s, "internal_"):
		return http.StatusInternalServerError // 500
	default:
		return http.StatusInternalServerError // 500
	}
}

// AppError is the standard application error type used throughout the service.
// All domain and handler errors should be expressed as AppError to enable
// consistent error formatting, HTTP status mapping, and error chain support.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code corresponding to this error's code.
func (e *AppError) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a copy of the error with the provided details merged in.
// This is useful for adding context without mutating the original error.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Details: merged,
	}
}

// NewAppError creates a new AppError with the given code, message, and optional
// underlying error. This is the standard constructor for domain errors.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsNotFound reports whether err is an AppError carrying a not-found code.
func IsNotFound(err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return strings.HasPrefix(string(appErr.Code), "not_found_")
}

// IsValidation reports whether err is an AppError carrying a validation code.
func IsValidation(err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return strings.HasPrefix(string(appErr.Code), "validation_")
}

// NewAppErrorWithDetails creates a new AppError with the given code, message,
// underlying error, and structured details.
func NewAppErrorWithDetails(code ErrorCode, message string, err error, details map[string]any) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: details,
	}
}
