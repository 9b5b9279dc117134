package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError(t *testing.T) {
	t.Run("New creates error correctly", func(t *testing.T) {
		err := New(ErrorTypeValidation, "Invalid input", http.StatusBadRequest)

		assert.Equal(t, ErrorTypeValidation, err.Type)
		assert.Equal(t, "Invalid input", err.Message)
		assert.Equal(t, http.StatusBadRequest, err.HTTPStatus)
		assert.Equal(t, "VALIDATION_ERROR: Invalid input", err.Error())
	})

	t.Run("Wrap wraps error correctly", func(t *testing.T) {
		originalErr := errors.New("original error")
		err := Wrap(originalErr, ErrorTypeInternal, "Something went wrong", http.StatusInternalServerError)

		assert.Equal(t, ErrorTypeInternal, err.Type)
		assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus)
		assert.Equal(t, originalErr, err.Unwrap())
		assert.Contains(t, err.Error(), "original error")
	})

	t.Run("WithDetails adds details", func(t *testing.T) {
		err := New(ErrorTypeValidation, "Invalid input", http.StatusBadRequest)
		details := map[string]interface{}{"field": "width"}
		_ = err.WithDetails(details)

		assert.Equal(t, details, err.Details)
	})

	t.Run("WithCode adds code", func(t *testing.T) {
		err := New(ErrorTypeValidation, "Invalid input", http.StatusBadRequest)
		_ = err.WithCode("ERR_001")

		assert.Equal(t, "ERR_001", err.Code)
	})
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name       string
		fn         func() *AppError
		wantType   ErrorType
		wantStatus int
	}{
		{
			name:       "NewValidationError",
			fn:         func() *AppError { return NewValidationError("missing required parameter: path") },
			wantType:   ErrorTypeValidation,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "NewMalformedInputError",
			fn:         func() *AppError { return NewMalformedInputError("duration", "duration must be positive") },
			wantType:   ErrorTypeMalformedInput,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "NewInsufficientSignalError",
			fn:         func() *AppError { return NewInsufficientSignalError("no inputs supplied") },
			wantType:   ErrorTypeInsufficientSignal,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "WrapProbeError",
			fn:         func() *AppError { return WrapProbeError(errors.New("exit 1"), "ffprobe failed") },
			wantType:   ErrorTypeProbe,
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "NewNotFoundError",
			fn:         func() *AppError { return NewNotFoundError("tool") },
			wantType:   ErrorTypeNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "NewMethodNotAllowedError",
			fn:         NewMethodNotAllowedError,
			wantType:   ErrorTypeMethodNotAllowed,
			wantStatus: http.StatusMethodNotAllowed,
		},
		{
			name:       "NewInternalError",
			fn:         func() *AppError { return NewInternalError("Server error") },
			wantType:   ErrorTypeInternal,
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "NewTimeoutError",
			fn:         func() *AppError { return NewTimeoutError("Request timeout") },
			wantType:   ErrorTypeTimeout,
			wantStatus: http.StatusRequestTimeout,
		},
		{
			name:       "NewRateLimitError",
			fn:         func() *AppError { return NewRateLimitError("Too many requests") },
			wantType:   ErrorTypeRateLimit,
			wantStatus: http.StatusTooManyRequests,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fn()
			assert.Equal(t, tt.wantType, err.Type)
			assert.Equal(t, tt.wantStatus, err.HTTPStatus)
			assert.NotEmpty(t, err.Message)
		})
	}
}

func TestMalformedInputErrorRecordsField(t *testing.T) {
	err := NewMalformedInputError("width", "width must be positive")
	assert.Equal(t, "width", err.Details["field"])

	noField := NewMalformedInputError("", "bad input")
	assert.Nil(t, noField.Details)
}

func TestGetAppErrorUnwrapsChain(t *testing.T) {
	base := NewInsufficientSignalError("empty frame sequence")
	wrapped := fmt.Errorf("gop analysis: %w", base)

	appErr, ok := GetAppError(wrapped)
	require.True(t, ok)
	assert.Same(t, base, appErr)
	assert.True(t, IsAppError(wrapped))
	assert.True(t, IsInsufficientSignal(wrapped))
	assert.False(t, IsMalformedInput(wrapped))

	_, ok = GetAppError(errors.New("plain"))
	assert.False(t, ok)
	assert.False(t, IsType(nil, ErrorTypeInternal))
}
