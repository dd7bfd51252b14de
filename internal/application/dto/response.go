// Package dto defines the request and response shapes of the HTTP surfaces.
package dto

import (
	stderrors "errors"
	"time"

	"github.com/gatewarden/gatewarden/pkg/errors"
)

// APIResponse is the common response envelope.
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorDTO   `json:"error,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// ErrorDTO carries the machine-readable error code and a safe message.
type ErrorDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SuccessResponse creates a success envelope.
func SuccessResponse(data interface{}) *APIResponse {
	return &APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
}

// ErrorResponse creates an error envelope. AppErrors expose their code; other
// errors collapse to internal_error so internals never leak.
func ErrorResponse(err error) *APIResponse {
	errorDTO := &ErrorDTO{
		Code:    "internal_error",
		Message: "internal error",
	}

	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		errorDTO.Code = string(appErr.Code)
		errorDTO.Message = appErr.Message
	}

	return &APIResponse{
		Success:   false,
		Error:     errorDTO,
		Timestamp: time.Now().Unix(),
	}
}

// HTTPStatus resolves the response status for an error.
func HTTPStatus(err error) int {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) && appErr.HTTPStatus != 0 {
		return appErr.HTTPStatus
	}
	return 500
}
