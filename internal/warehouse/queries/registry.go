// internal/warehouse/queries/registry.go
package queries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"school-matcher/internal/models"
)

var (
	ErrInvalidParam     = errors.New("invalid query parameter")
	ErrUnknownQueryType = errors.New("unknown query type")
)

// QueryFunc returns: data, rowCount, executionTime (ms), error
type QueryFunc func(ctx context.Context, db *sql.DB, schema string, params map[string]interface{}) (interface{}, int, int64, error)

var Registry = map[models.QueryType]QueryFunc{
	models.QueryTypeHighNeedLowTech:      HighNeedLowTech,
	models.QueryTypeHighGradLowFunding:   HighGradLowFunding,
	models.QueryTypeStrongSTEMSmallClass: StrongSTEMSmallClass,
}

func Execute(ctx context.Context, db *sql.DB, schema string, queryType models.QueryType, params map[string]interface{}) (interface{}, int, int64, error) {
	fn, exists := Registry[queryType]
	if !exists {
		return nil, 0, 0, fmt.Errorf("%w: %s", ErrUnknownQueryType, queryType)
	}
	return fn(ctx, db, schema, params)
}
