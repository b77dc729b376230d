// internal/warehouse/queries/analytics.go
package queries

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

const analyticsTable = "synthetic_school_demo_fund_perf"

// Analytics query caps mirror the matching pre-limit.
const maxAnalyticsLimit = 100

// HighNeedLowTech ranks schools by low-income share against per-pupil
// technology spending, surfacing candidates for priority grant funding.
func HighNeedLowTech(ctx context.Context, db *sql.DB, schema string, params map[string]interface{}) (interface{}, int, int64, error) {
	county, err := stringParam(params, "county")
	if err != nil {
		return nil, 0, 0, err
	}
	state, err := stringParam(params, "state")
	if err != nil {
		return nil, 0, 0, err
	}
	limit, err := limitParam(params, 5)
	if err != nil {
		return nil, 0, 0, err
	}

	var (
		filters strings.Builder
		args    []interface{}
	)
	if county != "" {
		args = append(args, county)
		fmt.Fprintf(&filters, "  AND LOWER(county) = LOWER($%d)\n", len(args))
	}
	if state != "" {
		args = append(args, state)
		fmt.Fprintf(&filters, "  AND state = $%d\n", len(args))
	}
	args = append(args, limit)

	query := fmt.Sprintf(`SELECT
    school_name,
    district,
    state,
    county,
    low_income_pct,
    tech_spending_per_pupil,
    total_enrollment,
    (low_income_pct * 100 - tech_spending_per_pupil) AS need_score
FROM %s.%s
WHERE low_income_pct IS NOT NULL
  AND tech_spending_per_pupil IS NOT NULL
%sORDER BY low_income_pct DESC, tech_spending_per_pupil ASC
LIMIT $%d`, pq.QuoteIdentifier(schema), analyticsTable, filters.String(), len(args))

	start := time.Now()

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, 0, err
	}
	defer rows.Close()

	var results []map[string]interface{}
	for rows.Next() {
		var (
			schoolName string
			district   sql.NullString
			stateVal   sql.NullString
			countyVal  sql.NullString
			lowIncome  float64
			techSpend  float64
			enrollment sql.NullInt64
			needScore  float64
		)
		err := rows.Scan(&schoolName, &district, &stateVal, &countyVal, &lowIncome, &techSpend, &enrollment, &needScore)
		if err != nil {
			return nil, 0, 0, err
		}
		results = append(results, map[string]interface{}{
			"school_name":             schoolName,
			"district":                nullString(district),
			"state":                   nullString(stateVal),
			"county":                  nullString(countyVal),
			"low_income_pct":          lowIncome,
			"tech_spending_per_pupil": techSpend,
			"total_enrollment":        nullInt(enrollment),
			"need_score":              needScore,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, 0, 0, err
	}

	execTime := time.Since(start).Milliseconds()
	return results, len(results), execTime, nil
}

// HighGradLowFunding finds schools beating a graduation-rate floor on
// below-average per-pupil spending. Their program models travel well.
func HighGradLowFunding(ctx context.Context, db *sql.DB, schema string, params map[string]interface{}) (interface{}, int, int64, error) {
	state, err := stringParam(params, "state")
	if err != nil {
		return nil, 0, 0, err
	}
	minGradRate, err := floatParam(params, "min_graduation_rate", 85.0)
	if err != nil {
		return nil, 0, 0, err
	}
	limit, err := limitParam(params, 10)
	if err != nil {
		return nil, 0, 0, err
	}

	args := []interface{}{minGradRate}

	var filters strings.Builder
	if state != "" {
		args = append(args, state)
		fmt.Fprintf(&filters, "  AND s.state = $%d\n", len(args))
	}
	args = append(args, limit)

	schemaRef := pq.QuoteIdentifier(schema)
	query := fmt.Sprintf(`WITH avg_funding AS (
    SELECT AVG(per_pupil_spending) AS avg_spending
    FROM %s.%s
    WHERE per_pupil_spending IS NOT NULL
)
SELECT
    s.school_name,
    s.district,
    s.state,
    s.graduation_rate,
    s.per_pupil_spending,
    a.avg_spending,
    (s.per_pupil_spending / a.avg_spending) AS funding_ratio,
    s.total_enrollment
FROM %s.%s s
CROSS JOIN avg_funding a
WHERE s.graduation_rate >= $1
  AND s.per_pupil_spending < a.avg_spending
  AND s.graduation_rate IS NOT NULL
  AND s.per_pupil_spending IS NOT NULL
%sORDER BY s.graduation_rate DESC, s.per_pupil_spending ASC
LIMIT $%d`, schemaRef, analyticsTable, schemaRef, analyticsTable, filters.String(), len(args))

	start := time.Now()

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, 0, err
	}
	defer rows.Close()

	var results []map[string]interface{}
	for rows.Next() {
		var (
			schoolName   string
			district     sql.NullString
			stateVal     sql.NullString
			gradRate     float64
			perPupil     float64
			avgSpending  float64
			fundingRatio float64
			enrollment   sql.NullInt64
		)
		err := rows.Scan(&schoolName, &district, &stateVal, &gradRate, &perPupil, &avgSpending, &fundingRatio, &enrollment)
		if err != nil {
			return nil, 0, 0, err
		}
		results = append(results, map[string]interface{}{
			"school_name":        schoolName,
			"district":           nullString(district),
			"state":              nullString(stateVal),
			"graduation_rate":    gradRate,
			"per_pupil_spending": perPupil,
			"avg_spending":       avgSpending,
			"funding_ratio":      fundingRatio,
			"total_enrollment":   nullInt(enrollment),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, 0, 0, err
	}

	execTime := time.Since(start).Milliseconds()
	return results, len(results), execTime, nil
}

// StrongSTEMSmallClass finds schools pairing strong STEM programs with
// favorable class sizes.
func StrongSTEMSmallClass(ctx context.Context, db *sql.DB, schema string, params map[string]interface{}) (interface{}, int, int64, error) {
	state, err := stringParam(params, "state")
	if err != nil {
		return nil, 0, 0, err
	}
	maxClassSize, err := floatParam(params, "max_class_size", 20)
	if err != nil {
		return nil, 0, 0, err
	}
	limit, err := limitParam(params, 10)
	if err != nil {
		return nil, 0, 0, err
	}

	args := []interface{}{maxClassSize}

	var filters strings.Builder
	if state != "" {
		args = append(args, state)
		fmt.Fprintf(&filters, "  AND state = $%d\n", len(args))
	}
	args = append(args, limit)

	query := fmt.Sprintf(`SELECT
    school_name,
    district,
    state,
    stem_program_score,
    avg_class_size,
    student_teacher_ratio,
    total_enrollment,
    stem_courses_offered
FROM %s.%s
WHERE avg_class_size <= $1
  AND stem_program_score IS NOT NULL
  AND avg_class_size IS NOT NULL
%sORDER BY stem_program_score DESC, avg_class_size ASC
LIMIT $%d`, pq.QuoteIdentifier(schema), analyticsTable, filters.String(), len(args))

	start := time.Now()

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, 0, err
	}
	defer rows.Close()

	var results []map[string]interface{}
	for rows.Next() {
		var (
			schoolName  string
			district    sql.NullString
			stateVal    sql.NullString
			stemScore   float64
			avgClass    float64
			ratio       sql.NullFloat64
			enrollment  sql.NullInt64
			stemCourses sql.NullInt64
		)
		err := rows.Scan(&schoolName, &district, &stateVal, &stemScore, &avgClass, &ratio, &enrollment, &stemCourses)
		if err != nil {
			return nil, 0, 0, err
		}
		results = append(results, map[string]interface{}{
			"school_name":           schoolName,
			"district":              nullString(district),
			"state":                 nullString(stateVal),
			"stem_program_score":    stemScore,
			"avg_class_size":        avgClass,
			"student_teacher_ratio": nullFloat(ratio),
			"total_enrollment":      nullInt(enrollment),
			"stem_courses_offered":  nullInt(stemCourses),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, 0, 0, err
	}

	execTime := time.Since(start).Milliseconds()
	return results, len(results), execTime, nil
}

// --- parameter and scan helpers ---

func stringParam(params map[string]interface{}, key string) (string, error) {
	raw, exists := params[key]
	if !exists || raw == nil {
		return "", nil
	}
	val, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string", ErrInvalidParam, key)
	}
	return val, nil
}

func floatParam(params map[string]interface{}, key string, def float64) (float64, error) {
	raw, exists := params[key]
	if !exists || raw == nil {
		return def, nil
	}
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("%w: %s must be a number", ErrInvalidParam, key)
	}
}

func limitParam(params map[string]interface{}, def int) (int, error) {
	raw, exists := params["limit"]
	if !exists || raw == nil {
		return def, nil
	}

	var limit int
	switch v := raw.(type) {
	case int:
		limit = v
	case int64:
		limit = int(v)
	case float64:
		limit = int(v)
	default:
		return 0, fmt.Errorf("%w: limit must be a number", ErrInvalidParam)
	}

	if limit <= 0 {
		return def, nil
	}
	if limit > maxAnalyticsLimit {
		return maxAnalyticsLimit, nil
	}
	return limit, nil
}

func nullString(v sql.NullString) interface{} {
	if !v.Valid {
		return nil
	}
	return v.String
}

func nullInt(v sql.NullInt64) interface{} {
	if !v.Valid {
		return nil
	}
	return v.Int64
}

func nullFloat(v sql.NullFloat64) interface{} {
	if !v.Valid {
		return nil
	}
	return v.Float64
}
