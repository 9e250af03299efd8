package errors

import (
	"errors"
	"fmt"

	"dynaconn/domain/core"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context, classifying domain
// sentinels into their pipeline error codes.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   appErr,
		}
	}
	return &AppError{
		Code:    classify(err),
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithCode adds an error code to an existing error
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    code,
			Message: appErr.Message,
			Cause:   appErr.Cause,
		}
	}
	return &AppError{
		Code:    code,
		Message: err.Error(),
		Cause:   err,
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetCode returns the code of the nearest AppError in the chain, or the
// code implied by a recognized domain sentinel, otherwise "UNKNOWN".
func GetCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	if code := classify(err); code != CodeInternalError {
		return code
	}
	return "UNKNOWN"
}

func classify(err error) string {
	switch {
	case core.IsShapeError(err):
		return CodeInputShape
	case core.IsConfigError(err):
		return CodeConfiguration
	case core.IsDegeneracyError(err):
		return CodeNumericDegeneracy
	case core.IsPersistenceError(err):
		return CodePersistence
	case core.IsNotFound(err):
		return CodeNotFound
	default:
		return CodeInternalError
	}
}

// Predefined error codes
const (
	CodeInputShape        = "INPUT_SHAPE"
	CodeConfiguration     = "CONFIGURATION"
	CodeNumericDegeneracy = "NUMERIC_DEGENERACY"
	CodePersistence       = "PERSISTENCE"
	CodeIngest            = "INGEST_ERROR"
	CodeDatabaseError     = "DATABASE_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeInternalError     = "INTERNAL_ERROR"
	CodeInvalidInput      = "INVALID_INPUT"
)

// Common error constructors
func Configuration(message string) *AppError {
	return New(CodeConfiguration, message)
}

func InputShape(message string) *AppError {
	return New(CodeInputShape, message)
}

func NumericDegeneracy(message string) *AppError {
	return New(CodeNumericDegeneracy, message)
}

func Persistence(key string, cause error) *AppError {
	return &AppError{
		Code:    CodePersistence,
		Message: fmt.Sprintf("persist %s", key),
		Cause:   cause,
	}
}

func Ingest(path string, cause error) *AppError {
	return &AppError{
		Code:    CodeIngest,
		Message: fmt.Sprintf("read %s", path),
		Cause:   cause,
	}
}

func DatabaseError(message string) *AppError {
	return New(CodeDatabaseError, message)
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

func InternalError(message string) *AppError {
	return New(CodeInternalError, message)
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}
