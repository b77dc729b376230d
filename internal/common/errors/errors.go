// Package errors provides standardized error handling for the matching pipeline.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Profile / request validation
	ErrCodeValidation       ErrorCode = "VALIDATION_ERROR"
	ErrCodeQueryBuildFailed ErrorCode = "QUERY_BUILD_FAILED"

	// Warehouse (Postgres)
	ErrCodeWarehouseError ErrorCode = "WAREHOUSE_ERROR"
	ErrCodeQueryTimeout   ErrorCode = "QUERY_TIMEOUT"
	ErrCodeQueryNotFound  ErrorCode = "QUERY_NOT_FOUND"

	// Directory (Elasticsearch)
	ErrCodeDirectoryError ErrorCode = "DIRECTORY_ERROR"
	ErrCodeSearchTimeout  ErrorCode = "SEARCH_TIMEOUT"
	ErrCodeIndexNotFound  ErrorCode = "INDEX_NOT_FOUND"

	// Cache (Redis)
	ErrCodeCacheUnavailable ErrorCode = "CACHE_UNAVAILABLE"

	// Pipeline
	ErrCodeRankingFailed ErrorCode = "RANKING_FAILED"
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
)

// MatchError represents a structured application error.
type MatchError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *MatchError) Error() string {
	return fmt.Sprintf("MatchError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewValidationError creates a non-retryable validation error. The
// individual problems are joined into Details and kept in Metadata for
// structured consumers.
func NewValidationError(problems []string) *MatchError {
	return &MatchError{
		Code:      ErrCodeValidation,
		Message:   "Student profile validation failed",
		Details:   strings.Join(problems, "; "),
		Retryable: false,
		Metadata:  map[string]interface{}{"problems": problems},
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryBuildFailedError creates a non-retryable query construction error.
func NewQueryBuildFailedError(details string) *MatchError {
	return &MatchError{
		Code:      ErrCodeQueryBuildFailed,
		Message:   "Query construction failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewWarehouseError creates a retryable warehouse query error.
func NewWarehouseError(queryName string, err error) *MatchError {
	return &MatchError{
		Code:      ErrCodeWarehouseError,
		Message:   "Warehouse query error",
		Details:   fmt.Sprintf("query: %s, error: %s", queryName, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryTimeoutError creates a retryable warehouse timeout error.
func NewQueryTimeoutError(queryName string) *MatchError {
	return &MatchError{
		Code:      ErrCodeQueryTimeout,
		Message:   "Warehouse query timeout",
		Details:   fmt.Sprintf("query: %s", queryName),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryNotFoundError creates a non-retryable unknown query error.
func NewQueryNotFoundError(name string) *MatchError {
	return &MatchError{
		Code:      ErrCodeQueryNotFound,
		Message:   "Query not found in registry",
		Details:   fmt.Sprintf("query: %s", name),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDirectoryError creates a retryable directory search error.
func NewDirectoryError(operation string, err error) *MatchError {
	return &MatchError{
		Code:      ErrCodeDirectoryError,
		Message:   "Directory search error",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSearchTimeoutError creates a retryable directory timeout error.
func NewSearchTimeoutError(index string) *MatchError {
	return &MatchError{
		Code:      ErrCodeSearchTimeout,
		Message:   "Directory search timeout",
		Details:   fmt.Sprintf("index: %s", index),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewIndexNotFoundError creates a non-retryable index not found error.
func NewIndexNotFoundError(indexName string) *MatchError {
	return &MatchError{
		Code:      ErrCodeIndexNotFound,
		Message:   "Directory index not found",
		Details:   fmt.Sprintf("indexName: %s", indexName),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCacheUnavailableError creates a non-retryable cache error. Callers are
// expected to degrade to the underlying source rather than fail the request.
func NewCacheUnavailableError(err error) *MatchError {
	return &MatchError{
		Code:      ErrCodeCacheUnavailable,
		Message:   "Cache unavailable",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRankingFailedError creates a non-retryable ranking error.
func NewRankingFailedError(details string) *MatchError {
	return &MatchError{
		Code:      ErrCodeRankingFailed,
		Message:   "Ranking failed for scored records",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInternalError creates a non-retryable internal error.
func NewInternalError(err error) *MatchError {
	return &MatchError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected internal error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Retry Policy
// ==========================

// GetRetryCount returns the recommended retry count for an error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeWarehouseError,
		ErrCodeDirectoryError:
		return 3 // Retryable technical errors

	case ErrCodeQueryTimeout,
		ErrCodeSearchTimeout:
		return 2 // Partial retry for timeouts

	default:
		return 0 // Business errors: no retry
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// ==========================
// 4. Utility Functions
// ==========================

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	case strings.Contains(codeStr, "CACHE"):
		return "CACHE"
	case strings.Contains(codeStr, "RANKING"):
		return "MATCHING"
	case strings.Contains(codeStr, "SEARCH") || strings.Contains(codeStr, "INDEX") || strings.Contains(codeStr, "DIRECTORY"):
		return "DIRECTORY"
	case strings.Contains(codeStr, "QUERY") || strings.Contains(codeStr, "WAREHOUSE"):
		return "WAREHOUSE"
	default:
		return "OTHER"
	}
}
