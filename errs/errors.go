// Package errs provides typed application errors with stable codes.
// Batch jobs match on these codes to decide whether a failure degrades a
// single item or the whole run; nothing in this package is fatal.
package errs

import (
	"errors"
	"net/http"
)

// AppError is a structured application error with an error code,
// human-readable message, HTTP status code, and optional wrapped cause.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the wrapped cause for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Is matches two AppErrors by code so sentinel comparison works
// through wrapping.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// Wrap returns a copy of sentinel carrying internal as its cause.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage returns a copy of sentinel with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Price fetch errors.
var (
	ErrRateLimited  = &AppError{Code: "RATE_LIMITED", Message: "API rate limit exceeded", StatusCode: http.StatusTooManyRequests}
	ErrTimeout      = &AppError{Code: "TIMEOUT", Message: "Quote API request timed out", StatusCode: http.StatusGatewayTimeout}
	ErrTransport    = &AppError{Code: "TRANSPORT_ERROR", Message: "Quote API request failed", StatusCode: http.StatusBadGateway}
	ErrInvalidPrice = &AppError{Code: "INVALID_PRICE", Message: "Quote API returned an invalid price", StatusCode: http.StatusBadGateway}
	ErrUpstream     = &AppError{Code: "UPSTREAM_ERROR", Message: "Quote API returned an error", StatusCode: http.StatusBadGateway}
)

// Domain errors.
var (
	ErrNotFound    = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrValidation  = &AppError{Code: "VALIDATION_ERROR", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrPersistence = &AppError{Code: "PERSISTENCE_ERROR", Message: "Storage operation failed", StatusCode: http.StatusInternalServerError}
)

// Scheduler errors.
var (
	ErrJobNotFound         = &AppError{Code: "JOB_NOT_FOUND", Message: "Scheduled job not found", StatusCode: http.StatusNotFound}
	ErrSchedulerNotRunning = &AppError{Code: "SCHEDULER_NOT_RUNNING", Message: "Scheduler is not running", StatusCode: http.StatusConflict}
)

// Code returns the AppError code for err, or "INTERNAL" when err is not
// an AppError.
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "INTERNAL"
}
