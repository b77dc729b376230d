// internal/common/errors/handler.go
package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"time"
)

// ErrorHandler writes failed requests as standardized JSON error responses
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleRequestError handles any error raised while serving an HTTP request
func (h *ErrorHandler) HandleRequestError(w http.ResponseWriter, requestID string, err error) {
	// Normalize to MatchError
	matchErr := h.normalizeError(err)

	// Map to an HTTP status
	status := HTTPStatus(matchErr.Code)

	// Log
	h.logError(requestID, status, matchErr)

	// Respond
	writeJSONError(w, status, requestID, matchErr)
}

// normalizeError ensures we always have a MatchError
func (h *ErrorHandler) normalizeError(err error) *MatchError {
	var matchErr *MatchError
	if stderrors.As(err, &matchErr) {
		return matchErr
	}
	return &MatchError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// HTTPStatus maps internal error codes to HTTP status codes.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeValidation, ErrCodeQueryBuildFailed:
		return http.StatusBadRequest
	case ErrCodeQueryNotFound:
		return http.StatusNotFound
	case ErrCodeWarehouseError, ErrCodeDirectoryError, ErrCodeIndexNotFound:
		return http.StatusBadGateway
	case ErrCodeQueryTimeout, ErrCodeSearchTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error     *MatchError `json:"error"`
	RequestID string      `json:"request_id,omitempty"`
}

func writeJSONError(w http.ResponseWriter, status int, requestID string, matchErr *MatchError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: matchErr, RequestID: requestID})
}

func (h *ErrorHandler) logError(requestID string, status int, matchErr *MatchError) {
	h.logger.Error("Request failed", map[string]interface{}{
		"requestId":     requestID,
		"httpStatus":    status,
		"errorCode":     string(matchErr.Code),
		"message":       matchErr.Message,
		"details":       matchErr.Details,
		"retryable":     matchErr.Retryable,
		"retries":       GetRetryCount(matchErr.Code),
		"errorCategory": GetErrorCategory(matchErr.Code),
	})
}
