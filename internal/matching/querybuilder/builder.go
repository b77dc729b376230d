// internal/matching/querybuilder/builder.go

// Package querybuilder translates a student profile into the bound
// warehouse statement. The scoring expression is obtained from the
// scoring package, never written here.
package querybuilder

import (
	"fmt"
	"strconv"
	"strings"

	"school-matcher/internal/matching/scoring"
	"school-matcher/internal/models"

	"github.com/lib/pq"
)

const (
	// PreLimit bounds the candidate set before scoring so the
	// warehouse never scores an unbounded raw set.
	PreLimit = 100

	// DefaultLimit applies when the caller passes no limit.
	DefaultLimit = 20
)

type Builder struct {
	schema string
}

// New returns a builder targeting the given warehouse schema. The
// schema name comes from configuration, not user input, and is quoted
// anyway.
func New(schema string) *Builder {
	return &Builder{schema: schema}
}

// Build renders the matching statement for one profile. Every
// profile-derived value is bound as a positional parameter; the only
// text spliced into the SQL is the shared scoring expression and the
// quoted schema name.
func (b *Builder) Build(profile *models.StudentProfile, limit int) *models.QuerySpec {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > PreLimit {
		limit = PreLimit
	}

	var (
		filters strings.Builder
		args    []interface{}
	)

	if profile != nil && profile.SchoolLevel > models.LevelUnspecified {
		args = append(args, int(profile.SchoolLevel))
		fmt.Fprintf(&filters, "  AND c.school_level = $%d\n", len(args))
	}
	if city := profile.HomeCity(); city != "" {
		args = append(args, strings.ToUpper(city))
		fmt.Fprintf(&filters, "  AND UPPER(c.city_location) = $%d\n", len(args))
	}

	args = append(args, limit)
	limitParam := len(args)

	sql := fmt.Sprintf(`WITH school_data AS (
    SELECT
        c.ncessch,
        c.school_name,
        c.lea_name AS district_name,
        c.leaid,
        c.city_location,
        c.state_location,
        c.county_code,
        c.school_level,
        c.enrollment,
        c.teachers_fte,
        c.charter,
        c.latitude,
        c.longitude,
        ROUND(c.free_lunch::numeric / NULLIF(c.enrollment, 0)::numeric * 100, 1)::float8 AS low_income_pct,
        ROUND(c.enrollment::numeric / NULLIF(c.teachers_fte, 0)::numeric, 1)::float8 AS student_teacher_ratio,
        g.grad_rate_midpt AS graduation_rate,
        CASE
            WHEN c.school_level = %d THEN GREATEST(COALESCE(ap.ap_courses, 0), 0)
            ELSE NULL
        END AS ap_courses,
        CASE
            WHEN c.school_level = %d THEN GREATEST(COALESCE(ap.ap_enrollment_male, 0) + COALESCE(ap.ap_enrollment_female, 0), 0)
            ELSE NULL
        END AS ap_enrollment,
        CASE WHEN gt.combokey IS NOT NULL THEN 1 ELSE 0 END AS has_gifted_program,
        f.per_pupil_total,
        f.per_pupil_instruction
    FROM %s.ccd_directory c
    LEFT JOIN %s.graduation_rates g
        ON c.ncessch = g.ncessch
        AND g.race = 99
        AND g.disability = 99
        AND g.econ_disadvantaged = 99
    LEFT JOIN %s.stem_advanced_placement ap
        ON c.leaid || c.school_id::text = ap.combokey
    LEFT JOIN %s.stem_gifted_and_talented gt
        ON c.leaid || c.school_id::text = gt.combokey
    LEFT JOIN %s.district_finance f
        ON c.leaid = f.leaid
    WHERE c.enrollment >= 50
      AND c.teachers_fte > 0
      AND c.school_name IS NOT NULL
%s    LIMIT %d
),
scored_schools AS (
    SELECT
        *,
        %s AS base_match_score
    FROM school_data
)
SELECT
    ncessch,
    school_name,
    district_name,
    leaid,
    city_location,
    state_location,
    county_code,
    school_level,
    enrollment,
    teachers_fte,
    student_teacher_ratio,
    low_income_pct,
    graduation_rate,
    ap_courses,
    ap_enrollment,
    has_gifted_program,
    charter,
    latitude,
    longitude,
    per_pupil_total,
    per_pupil_instruction,
    base_match_score,
    %s AS match_category
FROM scored_schools
WHERE base_match_score >= %s
ORDER BY base_match_score DESC, graduation_rate DESC NULLS LAST
LIMIT $%d`,
		int(models.LevelHigh),
		int(models.LevelHigh),
		b.schemaRef(), b.schemaRef(), b.schemaRef(), b.schemaRef(), b.schemaRef(),
		filters.String(),
		PreLimit,
		scoring.Expression(),
		scoring.CategoryExpression(),
		thresholdLiteral(),
		limitParam)

	return &models.QuerySpec{
		SQL:      sql,
		Args:     args,
		Limit:    limit,
		PreLimit: PreLimit,
	}
}

func (b *Builder) schemaRef() string {
	return pq.QuoteIdentifier(b.schema)
}

func thresholdLiteral() string {
	return strconv.FormatFloat(scoring.Threshold, 'f', 2, 64)
}
