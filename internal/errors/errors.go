package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType represents the type of error.
type ErrorType string

const (
	ErrorTypeValidation         ErrorType = "VALIDATION_ERROR"
	ErrorTypeMalformedInput     ErrorType = "MALFORMED_INPUT"
	ErrorTypeInsufficientSignal ErrorType = "INSUFFICIENT_SIGNAL"
	ErrorTypeProbe              ErrorType = "PROBE_ERROR"
	ErrorTypeNotFound           ErrorType = "NOT_FOUND"
	ErrorTypeMethodNotAllowed   ErrorType = "METHOD_NOT_ALLOWED"
	ErrorTypeInternal           ErrorType = "INTERNAL_ERROR"
	ErrorTypeTimeout            ErrorType = "TIMEOUT"
	ErrorTypeRateLimit          ErrorType = "RATE_LIMIT"
)

// AppError represents an application error with additional context.
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	Code       string                 `json:"code,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	HTTPStatus int                    `json:"-"`
	Err        error                  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails adds details to the error.
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// WithCode adds an error code.
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// New creates a new AppError.
func New(errType ErrorType, message string, httpStatus int) *AppError {
	return &AppError{
		Type:       errType,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an existing error.
func Wrap(err error, errType ErrorType, message string, httpStatus int) *AppError {
	return &AppError{
		Type:       errType,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// Common error constructors.

// NewValidationError creates a validation error.
func NewValidationError(message string) *AppError {
	return New(ErrorTypeValidation, message, http.StatusBadRequest)
}

// NewMalformedInputError reports a required field that is missing or invalid.
// The field name is recorded in Details so callers can point at it.
func NewMalformedInputError(field, message string) *AppError {
	err := New(ErrorTypeMalformedInput, message, http.StatusBadRequest)
	if field != "" {
		err.Details = map[string]interface{}{"field": field}
	}
	return err
}

// NewInsufficientSignalError reports an input that carries nothing to analyze.
func NewInsufficientSignalError(message string) *AppError {
	return New(ErrorTypeInsufficientSignal, message, http.StatusUnprocessableEntity)
}

// WrapProbeError wraps a failure of the external probe tooling.
func WrapProbeError(err error, message string) *AppError {
	return Wrap(err, ErrorTypeProbe, message, http.StatusBadGateway)
}

// NewNotFoundError creates a not found error.
func NewNotFoundError(resource string) *AppError {
	return New(ErrorTypeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// NewMethodNotAllowedError creates a method not allowed error.
func NewMethodNotAllowedError() *AppError {
	return New(ErrorTypeMethodNotAllowed, "method not allowed", http.StatusMethodNotAllowed)
}

// NewInternalError creates an internal server error.
func NewInternalError(message string) *AppError {
	return New(ErrorTypeInternal, message, http.StatusInternalServerError)
}

// WrapInternalError wraps an error as internal server error.
func WrapInternalError(err error, message string) *AppError {
	return Wrap(err, ErrorTypeInternal, message, http.StatusInternalServerError)
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(message string) *AppError {
	return New(ErrorTypeTimeout, message, http.StatusRequestTimeout)
}

// NewRateLimitError creates a rate limit error.
func NewRateLimitError(message string) *AppError {
	return New(ErrorTypeRateLimit, message, http.StatusTooManyRequests)
}


// IsAppError checks if an error is, or wraps, an AppError.
func IsAppError(err error) bool {
	_, ok := GetAppError(err)
	return ok
}

// GetAppError extracts the first AppError in err's chain.
func GetAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType reports whether err carries an AppError of the given type.
func IsType(err error, errType ErrorType) bool {
	appErr, ok := GetAppError(err)
	return ok && appErr.Type == errType
}

// IsMalformedInput reports whether err is a malformed input error.
func IsMalformedInput(err error) bool {
	return IsType(err, ErrorTypeMalformedInput)
}

// IsInsufficientSignal reports whether err is an insufficient signal error.
func IsInsufficientSignal(err error) bool {
	return IsType(err, ErrorTypeInsufficientSignal)
}
