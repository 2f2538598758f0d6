package errors

import (
	"errors"
	"fmt"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error

	// Details carries structured context for the caller, e.g. bucket
	// counts on a LIMIT_EXCEEDED rejection.
	Details map[string]interface{}
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

// WithDetails attaches structured context to the error
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   err,
		}
	}
	return &AppError{
		Code:    CodeInternalError,
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

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetCode returns the error code if it's an AppError, otherwise returns "UNKNOWN"
func GetCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

// GetDetails returns the structured details if present
func GetDetails(err error) map[string]interface{} {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Details
	}
	return nil
}

// HasCode reports whether err carries the given application code
func HasCode(err error, code string) bool {
	return GetCode(err) == code
}

// Predefined error codes
const (
	CodeConfigInvalid   = "CONFIG_INVALID"
	CodeDatabaseError   = "DATABASE_ERROR"
	CodeValidationError = "VALIDATION_ERROR"
	CodeLimitExceeded   = "LIMIT_EXCEEDED"
	CodeInvalidInput    = "INVALID_INPUT"
	CodeAIUnavailable   = "AI_UNAVAILABLE"
	CodeStorageFailure  = "STORAGE_FAILURE"
	CodeNotFound        = "NOT_FOUND"
	CodeInternalError   = "INTERNAL_ERROR"
)

// Common error constructors

func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func DatabaseError(message string) *AppError {
	return New(CodeDatabaseError, message)
}

// ValidationError reports bad or missing input. Never retried automatically.
func ValidationError(message string) *AppError {
	return New(CodeValidationError, message)
}

// LimitExceeded reports a selection-policy bucket cap. Surfaced to callers as
// a warning, not a hard failure.
func LimitExceeded(bucket string, current, max int) *AppError {
	return New(CodeLimitExceeded,
		fmt.Sprintf("display limit reached for %s widgets (%d of %d shown)", bucket, current, max)).
		WithDetails(map[string]interface{}{
			"bucket":  bucket,
			"current": current,
			"max":     max,
		})
}

// InvalidInput reports an operation against ineligible state, e.g. combining
// a file that has not finished parsing.
func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}

// AIUnavailable reports an external AI collaborator timeout or failure.
// Retryable by the user via an explicit regenerate/retry action.
func AIUnavailable(cause error) *AppError {
	return &AppError{
		Code:    CodeAIUnavailable,
		Message: "AI analysis is temporarily unavailable, please retry",
		Cause:   cause,
	}
}

// StorageFailure reports a failed persistence step
func StorageFailure(message string, cause error) *AppError {
	return &AppError{
		Code:    CodeStorageFailure,
		Message: message,
		Cause:   cause,
	}
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

func InternalError(message string) *AppError {
	return New(CodeInternalError, message)
}
