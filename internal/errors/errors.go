// Package errors provides custom error types for the Brokersync API.
// All service-layer errors should use AppError to ensure consistent
// error responses that never leak internal details to clients.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// Import session errors.
var (
	ErrSessionNotFound    = &AppError{Code: "SESSION_NOT_FOUND", Message: "Import session not found", StatusCode: http.StatusNotFound}
	ErrInvalidStage       = &AppError{Code: "INVALID_STAGE", Message: "Operation not allowed in the current workflow stage", StatusCode: http.StatusConflict}
	ErrMappingRowNotFound = &AppError{Code: "MAPPING_ROW_NOT_FOUND", Message: "No mapping row for that broker symbol in this session", StatusCode: http.StatusNotFound}
	ErrMappingsIncomplete = &AppError{Code: "MAPPINGS_INCOMPLETE", Message: "All broker symbols must have a selected ticker before confirming", StatusCode: http.StatusConflict}
	ErrImportInProgress   = &AppError{Code: "IMPORT_IN_PROGRESS", Message: "Import is already running and cannot be cancelled", StatusCode: http.StatusConflict}
)

// Mapping registry errors.
var (
	ErrMappingNotFound = &AppError{Code: "MAPPING_NOT_FOUND", Message: "Symbol mapping not found", StatusCode: http.StatusNotFound}
)

// Batch import errors.
var (
	ErrImportFailed = &AppError{Code: "IMPORT_FAILED", Message: "Batch import aborted after a submission failure", StatusCode: http.StatusBadGateway}
)
