// Package handler provides HTTP handlers for the application.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	apperrors "github.com/posentia/posentia/internal/errors"
	"github.com/posentia/posentia/internal/middleware"
)

// BaseHandler provides shared functionality for all handlers.
type BaseHandler struct {
	logger *zap.Logger
}

// NewBaseHandler creates a BaseHandler. A nil logger discards output.
func NewBaseHandler(logger *zap.Logger) BaseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return BaseHandler{logger: logger}
}

// Logger returns the handler's logger.
func (b *BaseHandler) Logger() *zap.Logger {
	return b.logger
}

// WriteJSON writes a JSON response with the appropriate headers.
func (b *BaseHandler) WriteJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	if reqID := middleware.GetRequestID(r.Context()); reqID != "" {
		w.Header().Set(middleware.RequestIDHeader, reqID)
	}

	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			b.logger.Debug("failed to write JSON response", zap.Error(err))
		}
	}
}

// ErrorResponse is the body of every error answer.
type ErrorResponse struct {
	Success   bool                   `json:"success"`
	Error     string                 `json:"error"`
	Status    int                    `json:"status"`
	RequestID string                 `json:"request_id,omitempty"`
	Errors    []ValidationFieldError `json:"errors,omitempty"`
}

// ValidationFieldError represents a single field validation error.
type ValidationFieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// WriteError writes an error response in JSON format.
func (b *BaseHandler) WriteError(w http.ResponseWriter, r *http.Request, status int, message string) {
	b.WriteJSON(w, r, status, ErrorResponse{
		Error:     message,
		Status:    status,
		RequestID: middleware.GetRequestID(r.Context()),
	})
}

// WriteAppError maps err to a status and writes it. Field errors of a
// validation failure are listed; system errors are logged and masked.
func (b *BaseHandler) WriteAppError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		middleware.LoggerWithCorrelation(r.Context(), b.logger).Error("request failed", zap.Error(err))
		b.WriteError(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	status := appErr.HTTPStatus()
	if status >= http.StatusInternalServerError {
		middleware.LoggerWithCorrelation(r.Context(), b.logger).Error("request failed",
			zap.String("code", string(appErr.Code)),
			zap.Error(err),
		)
	}

	resp := ErrorResponse{
		Error:     appErr.Message,
		Status:    status,
		RequestID: middleware.GetRequestID(r.Context()),
	}
	for _, f := range appErr.Fields {
		resp.Errors = append(resp.Errors, ValidationFieldError{Field: f.Field, Message: f.Message})
	}
	b.WriteJSON(w, r, status, resp)
}

// DecodeJSON reads the request body into dst. An empty body leaves dst
// untouched; malformed JSON is a validation error.
func (b *BaseHandler) DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperrors.ValidationFailed("Request body too large")
	}
	return apperrors.ValidationFailed("Invalid JSON body")
}
