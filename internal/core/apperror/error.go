// Package apperror provides structured error handling following RFC 7807 Problem Details.
// All counter and binder errors must use AppError for consistent handling by callers and the admin API.
package apperror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	// Infrastructure errors (5xx)
	CodeInternal               = "INTERNAL_ERROR"
	CodeStoreUnavailable       = "STORE_UNAVAILABLE"
	CodeConcurrentInitConflict = "CONCURRENT_INIT_CONFLICT"

	// Validation errors (400)
	CodeValidation          = "VALIDATION_ERROR"
	CodeInvalidBinderConfig = "INVALID_BINDER_CONFIG"

	// Counter exhausted (409)
	CodeCounterOverflow = "COUNTER_OVERFLOW"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"
)

// AppError is the standard error type for the module.
// It implements error interface and provides structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (counter name, field, etc.)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions for common errors ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewInvalidBinderConfig is raised at registration time when binder options
// cannot be applied to the record type. Never retried.
func NewInvalidBinderConfig(recordType, message string) *AppError {
	return &AppError{
		Code:       CodeInvalidBinderConfig,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"record_type": recordType},
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewStoreUnavailable wraps a storage failure (unreachable, timed out, closed).
func NewStoreUnavailable(counter string, err error) *AppError {
	return &AppError{
		Code:       CodeStoreUnavailable,
		Message:    "Counter store is unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Details:    map[string]any{"counter": counter},
		Err:        err,
	}
}

// NewConcurrentInitConflict reports two first-callers diverging on counter creation.
// It signals a store-level atomicity violation.
func NewConcurrentInitConflict(counter string, err error) *AppError {
	return &AppError{
		Code:       CodeConcurrentInitConflict,
		Message:    "Concurrent counter initialization conflict",
		HTTPStatus: http.StatusServiceUnavailable,
		Details:    map[string]any{"counter": counter},
		Err:        err,
	}
}

// NewCounterOverflow reports an advance that would leave the int64 range.
// The counter is left unchanged.
func NewCounterOverflow(counter string, err error) *AppError {
	return &AppError{
		Code:       CodeCounterOverflow,
		Message:    "Counter value out of range",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"counter": counter},
		Err:        err,
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// --- Helper functions ---

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == CodeNotFound
	}
	return false
}

// IsStoreUnavailable reports whether err means the counter store could not serve the call.
// Init conflicts are treated the same way.
func IsStoreUnavailable(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == CodeStoreUnavailable || appErr.Code == CodeConcurrentInitConflict
	}
	return false
}

// IsCounterOverflow checks if error is a counter overflow.
func IsCounterOverflow(err error) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == CodeCounterOverflow
}

// IsInvalidBinderConfig checks if error is CodeInvalidBinderConfig
func IsInvalidBinderConfig(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == CodeInvalidBinderConfig
	}
	return false
}

// IsTimeout reports context expiry anywhere in the chain.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
