// Package errors defines structured error types for the Gatewarden decision engine.
// Errors carry a stable machine-readable code and an HTTP status so the interface
// layer never leaks internals to callers.
package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gatewarden/gatewarden/pkg/constants"
)

// AppError is the structured application error used across all layers.
type AppError struct {
	Code       constants.ErrorCode
	HTTPStatus int
	Message    string
	cause      error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause for errors.Is/As chains.
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithError attaches a cause to a copy of the error. The receiver is not
// mutated so the package-level sentinels stay comparable.
func (e *AppError) WithError(cause error) *AppError {
	return &AppError{
		Code:       e.Code,
		HTTPStatus: e.HTTPStatus,
		Message:    e.Message,
		cause:      cause,
	}
}

// WithMessage replaces the message on a copy of the error.
func (e *AppError) WithMessage(msg string) *AppError {
	return &AppError{
		Code:       e.Code,
		HTTPStatus: e.HTTPStatus,
		Message:    msg,
		cause:      e.cause,
	}
}

// Is matches AppErrors by code so wrapped copies compare equal to sentinels.
func (e *AppError) Is(target error) bool {
	var appErr *AppError
	if errors.As(target, &appErr) {
		return e.Code == appErr.Code
	}
	return false
}

// NewError creates a new AppError with the given code, status and message.
func NewError(code constants.ErrorCode, httpStatus int, message string) *AppError {
	return &AppError{
		Code:       code,
		HTTPStatus: httpStatus,
		Message:    message,
	}
}

// Predefined sentinel errors.
var (
	// ErrInvalidRequest marks malformed input rejected at the API boundary.
	ErrInvalidRequest = NewError(constants.ErrorCodeInvalidRequest, http.StatusBadRequest, "invalid request")

	// ErrNotFound marks a missing resource.
	ErrNotFound = NewError(constants.ErrorCodeNotFound, http.StatusNotFound, "resource not found")

	// ErrForbidden is returned to blocked clients. The message stays generic;
	// the stable rule label travels separately in the response body.
	ErrForbidden = NewError(constants.ErrorCodeForbidden, http.StatusForbidden, "request forbidden")

	// ErrRateLimited marks a rate-limit rejection.
	ErrRateLimited = NewError(constants.ErrorCodeRateLimited, http.StatusTooManyRequests, "too many requests")

	// ErrDatabaseOperation marks a durable-storage failure.
	ErrDatabaseOperation = NewError(constants.ErrorCodeInternal, http.StatusInternalServerError, "database operation failed")

	// ErrCache marks a cache-layer failure.
	ErrCache = NewError(constants.ErrorCodeServiceUnavailable, http.StatusServiceUnavailable, "cache operation failed")

	// ErrInvalidConfig marks unusable configuration at startup.
	ErrInvalidConfig = NewError(constants.ErrorCodeInternal, http.StatusInternalServerError, "invalid configuration")
)

// ErrRuleNotFound builds a not-found error for a rule ID.
func ErrRuleNotFound(ruleID string) *AppError {
	return ErrNotFound.WithMessage(fmt.Sprintf("rule %s not found", ruleID))
}

// ErrBlockNotFound builds a not-found error for a block ID.
func ErrBlockNotFound(blockID string) *AppError {
	return ErrNotFound.WithMessage(fmt.Sprintf("block %s not found", blockID))
}
