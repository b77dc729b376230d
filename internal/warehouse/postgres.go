// internal/warehouse/postgres.go
package warehouse

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"school-matcher/internal/common/errors"
	"school-matcher/internal/common/logger"
	"school-matcher/internal/common/metrics"
	"school-matcher/internal/models"
	"school-matcher/internal/warehouse/queries"
)

// PostgresSource executes warehouse statements against Postgres.
type PostgresSource struct {
	db     *sql.DB
	schema string
	logger logger.Logger
}

func NewPostgresSource(db *sql.DB, schema string, log logger.Logger) *PostgresSource {
	return &PostgresSource{
		db:     db,
		schema: schema,
		logger: log.WithFields(map[string]interface{}{"component": "warehouse"}),
	}
}

// Match executes the bound matching statement and scans the result into
// typed records. Duplicate NCES ids keep the first occurrence so the
// warehouse ordering decides which row survives.
func (s *PostgresSource) Match(ctx context.Context, spec *models.QuerySpec) ([]models.SchoolRecord, error) {
	queryName := string(models.QueryTypeMatchSchools)
	start := time.Now()

	rows, err := s.db.QueryContext(ctx, spec.SQL, spec.Args...)
	if err != nil {
		return nil, s.mapQueryError(ctx, queryName, err)
	}
	defer rows.Close()

	records := make([]models.SchoolRecord, 0, spec.Limit)
	for rows.Next() {
		rec, err := scanSchoolRecord(rows)
		if err != nil {
			return nil, s.mapQueryError(ctx, queryName, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, s.mapQueryError(ctx, queryName, err)
	}

	records = dedupeByNCESID(records)

	elapsed := time.Since(start)
	metrics.WarehouseQueryDuration.WithLabelValues(queryName).Observe(elapsed.Seconds())
	s.logger.Debug("match query executed", map[string]interface{}{
		"rowCount":   len(records),
		"durationMs": elapsed.Milliseconds(),
	})

	return records, nil
}

// Run executes a named analytics query from the registry.
func (s *PostgresSource) Run(ctx context.Context, name models.QueryType, params map[string]interface{}) (*QueryResult, error) {
	if _, exists := queries.Registry[name]; !exists {
		return nil, errors.NewQueryNotFoundError(string(name))
	}

	data, rowCount, execTime, err := queries.Execute(ctx, s.db, s.schema, name, params)
	if err != nil {
		if stderrors.Is(err, queries.ErrInvalidParam) {
			return nil, errors.NewQueryBuildFailedError(err.Error())
		}
		mapped := s.mapQueryError(ctx, string(name), err)
		metrics.WarehouseQueryFailures.WithLabelValues(string(name), errorCode(mapped)).Inc()
		return nil, mapped
	}

	metrics.WarehouseQueryDuration.WithLabelValues(string(name)).Observe(float64(execTime) / 1000.0)
	s.logger.Debug("analytics query executed", map[string]interface{}{
		"query":      string(name),
		"rowCount":   rowCount,
		"durationMs": execTime,
	})

	return &QueryResult{
		Name:     name,
		Data:     data,
		RowCount: rowCount,
		Duration: execTime,
	}, nil
}

// Ping reports warehouse reachability.
func (s *PostgresSource) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return errors.NewWarehouseError("ping", err)
	}
	return nil
}

func (s *PostgresSource) mapQueryError(ctx context.Context, queryName string, err error) error {
	if ctx.Err() == context.DeadlineExceeded {
		metrics.WarehouseQueryFailures.WithLabelValues(queryName, string(errors.ErrCodeQueryTimeout)).Inc()
		return errors.NewQueryTimeoutError(queryName)
	}
	metrics.WarehouseQueryFailures.WithLabelValues(queryName, string(errors.ErrCodeWarehouseError)).Inc()
	return errors.NewWarehouseError(queryName, err)
}

func errorCode(err error) string {
	var matchErr *errors.MatchError
	if stderrors.As(err, &matchErr) {
		return string(matchErr.Code)
	}
	return string(errors.ErrCodeInternal)
}

// scanSchoolRecord reads one row in the column order of the matching
// statement's final SELECT. Columns the warehouse may legitimately leave
// NULL come through sql.Null* and land as pointers or zero values.
func scanSchoolRecord(rows *sql.Rows) (models.SchoolRecord, error) {
	var (
		rec      models.SchoolRecord
		district sql.NullString
		leaid    sql.NullString
		city     sql.NullString
		state    sql.NullString
		county   sql.NullString
		level    sql.NullInt64
		ratio    sql.NullFloat64
		lowInc   sql.NullFloat64
		gradRate sql.NullFloat64
		apCrs    sql.NullInt64
		apEnr    sql.NullInt64
		gifted   sql.NullInt64
		charter  sql.NullInt64
		lat      sql.NullFloat64
		long     sql.NullFloat64
		ppTotal  sql.NullFloat64
		ppInstr  sql.NullFloat64
		category string
	)

	err := rows.Scan(
		&rec.NCESSchoolID,
		&rec.Name,
		&district,
		&leaid,
		&city,
		&state,
		&county,
		&level,
		&rec.Enrollment,
		&rec.TeachersFTE,
		&ratio,
		&lowInc,
		&gradRate,
		&apCrs,
		&apEnr,
		&gifted,
		&charter,
		&lat,
		&long,
		&ppTotal,
		&ppInstr,
		&rec.BaseScore,
		&category,
	)
	if err != nil {
		return models.SchoolRecord{}, err
	}

	rec.District = district.String
	rec.LEAID = leaid.String
	rec.City = city.String
	rec.State = state.String
	rec.County = county.String
	rec.Level = models.SchoolLevel(level.Int64)
	rec.StudentTeacherRatio = ratio.Float64
	rec.LowIncomePct = nullableFloat(lowInc)
	rec.GraduationRate = nullableFloat(gradRate)
	rec.APCourses = nullableInt(apCrs)
	rec.APEnrollment = nullableInt(apEnr)
	rec.HasGiftedProgram = gifted.Int64 == 1
	rec.Charter = charter.Int64 == 1
	rec.Latitude = nullableFloat(lat)
	rec.Longitude = nullableFloat(long)
	rec.PerPupilTotal = nullableFloat(ppTotal)
	rec.PerPupilInstruction = nullableFloat(ppInstr)
	rec.Category = models.MatchCategory(category)

	return rec, nil
}

func nullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullableInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

// dedupeByNCESID keeps the first occurrence of each NCES school id,
// preserving order.
func dedupeByNCESID(records []models.SchoolRecord) []models.SchoolRecord {
	seen := make(map[string]struct{}, len(records))
	out := make([]models.SchoolRecord, 0, len(records))
	for _, rec := range records {
		if _, dup := seen[rec.NCESSchoolID]; dup {
			continue
		}
		seen[rec.NCESSchoolID] = struct{}{}
		out = append(out, rec)
	}
	return out
}
