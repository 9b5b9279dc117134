package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/zsiec/vidqa/internal/logger"
)

// ErrorResponse is the failure envelope returned by every tool endpoint.
type ErrorResponse struct {
	Success bool         `json:"success"`
	Error   ErrorDetails `json:"error"`
	TraceID string       `json:"trace_id,omitempty"`
}

// ErrorDetails contains the error details.
type ErrorDetails struct {
	Type    ErrorType              `json:"type"`
	Message string                 `json:"message"`
	Code    string                 `json:"code,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Envelope converts err into the failure envelope and its HTTP status.
// Errors that carry no AppError become internal errors, except deadline
// expiry which reports a timeout.
func Envelope(err error, traceID string) (ErrorResponse, int) {
	appErr := asAppError(err)
	return ErrorResponse{
		Success: false,
		Error: ErrorDetails{
			Type:    appErr.Type,
			Message: appErr.Message,
			Code:    appErr.Code,
			Details: appErr.Details,
		},
		TraceID: traceID,
	}, appErr.HTTPStatus
}

func asAppError(err error) *AppError {
	if appErr, ok := GetAppError(err); ok {
		return appErr
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError("analysis did not finish before the deadline")
	}
	return WrapInternalError(err, "An unexpected error occurred")
}

// ErrorHandler writes failure envelopes for HTTP requests.
type ErrorHandler struct {
	logger *logrus.Logger
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger *logrus.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
	}
}

// HandleError logs err at a level matching its status and writes the
// envelope.
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	traceID := requestID(r)
	resp, status := Envelope(err, traceID)

	entry := h.entry(r).WithFields(logrus.Fields{
		"error_type": resp.Error.Type,
		"status":     status,
	})
	if resp.Error.Code != "" {
		entry = entry.WithField("error_code", resp.Error.Code)
	}
	entry.Log(logLevel(status), err.Error())

	h.writeJSON(w, status, resp)
}

// HandleNotFound handles 404 errors.
func (h *ErrorHandler) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	h.HandleError(w, r, NewNotFoundError("endpoint"))
}

// HandleMethodNotAllowed handles 405 errors.
func (h *ErrorHandler) HandleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.HandleError(w, r, NewMethodNotAllowedError())
}

// HandlePanic reports a recovered panic as an internal error.
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	h.entry(r).WithField("panic", recovered).Error("Panic recovered in HTTP handler")
	h.HandleError(w, r, WrapInternalError(fmt.Errorf("panic: %v", recovered), "An unexpected error occurred"))
}

// entry prefers the request-scoped logger set by the request middleware.
func (h *ErrorHandler) entry(r *http.Request) *logrus.Entry {
	if logger.GetRequestID(r.Context()) != "" {
		return logger.FromContext(r.Context())
	}
	return h.logger.WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
	})
}

func requestID(r *http.Request) string {
	if id := logger.GetRequestID(r.Context()); id != "" {
		return id
	}
	return r.Header.Get(logger.RequestIDHeader)
}

func logLevel(status int) logrus.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return logrus.ErrorLevel
	case status >= http.StatusBadRequest:
		return logrus.WarnLevel
	default:
		return logrus.InfoLevel
	}
}

func (h *ErrorHandler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.WithError(err).Error("Failed to encode error response")
	}
}
