package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeMalformedReport  ErrorType = "MALFORMED_REPORT"
	ErrTypeRecordParse      ErrorType = "RECORD_PARSE"
	ErrTypeInsufficientData ErrorType = "INSUFFICIENT_DATA"
	ErrTypeInvalidParameter ErrorType = "INVALID_PARAMETER"
	ErrTypeIO               ErrorType = "IO"
	ErrTypeValidation       ErrorType = "VALIDATION"
	ErrTypeNotFound         ErrorType = "NOT_FOUND"
	ErrTypeConfig           ErrorType = "CONFIG"
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// IsType reports whether err is (or wraps) an AppError of the given type.
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}

// Helper constructors for the error taxonomy

// NewMalformedReportError marks a whole report file as unparseable (for
// example no header row found inside the scan window). The batch loader
// skips the file and continues.
func NewMalformedReportError(message string, cause error) *AppError {
	return NewAppError(ErrTypeMalformedReport, message, cause)
}

// NewRecordParseError marks a single bad row. The remaining rows of the
// same file are unaffected.
func NewRecordParseError(message string, cause error) *AppError {
	return NewAppError(ErrTypeRecordParse, message, cause)
}

// NewInsufficientDataError signals that a statistic is undefined for the
// accumulated sample size rather than returning a misleading number.
func NewInsufficientDataError(message string) *AppError {
	return NewAppError(ErrTypeInsufficientData, message, nil)
}

// NewInvalidParameterError rejects an out-of-domain caller parameter.
func NewInvalidParameterError(message string) *AppError {
	return NewAppError(ErrTypeInvalidParameter, message, nil)
}

// NewIOError wraps a filesystem failure that aborts the requested batch.
func NewIOError(message string, cause error) *AppError {
	return NewAppError(ErrTypeIO, message, cause)
}

// NewAppValidationError creates a validation error for AppError type
func NewAppValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrTypeNotFound, fmt.Sprintf("%s not found", resource), nil)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}
