// internal/warehouse/source.go

// Package warehouse executes matching and analytics queries against the
// school data warehouse and returns typed records. Zero rows is a valid
// outcome, never an error.
package warehouse

import (
	"context"

	"school-matcher/internal/models"
)

// Source runs bound statements against the warehouse.
type Source interface {
	// Match executes a fully-bound matching statement and returns the
	// scored candidate rows, deduplicated by NCES school id.
	Match(ctx context.Context, spec *models.QuerySpec) ([]models.SchoolRecord, error)

	// Run executes a named analytics query from the registry.
	Run(ctx context.Context, name models.QueryType, params map[string]interface{}) (*QueryResult, error)

	// Ping reports whether the warehouse is reachable.
	Ping(ctx context.Context) error
}

// QueryResult is the outcome of a named analytics query.
type QueryResult struct {
	Name     models.QueryType `json:"name"`
	Data     interface{}      `json:"data"`
	RowCount int              `json:"row_count"`
	Duration int64            `json:"query_execution_time_ms"`
}
