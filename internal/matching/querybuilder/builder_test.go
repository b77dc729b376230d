// internal/matching/querybuilder/builder_test.go
package querybuilder

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"school-matcher/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func testBuilder() *Builder {
	return New("education_data")
}

func profileWith(level models.SchoolLevel, city string) *models.StudentProfile {
	return &models.StudentProfile{
		SchoolLevel: level,
		Location:    models.Location{City: city},
	}
}

// ==========================
// Statement Shape Tests
// ==========================

func TestBuild_UnfilteredStatement(t *testing.T) {
	spec := testBuilder().Build(&models.StudentProfile{}, 20)

	// Candidate gate and quoted schema references.
	assert.Contains(t, spec.SQL, `FROM "education_data".ccd_directory c`)
	assert.Contains(t, spec.SQL, `LEFT JOIN "education_data".graduation_rates g`)
	assert.Contains(t, spec.SQL, `LEFT JOIN "education_data".stem_advanced_placement ap`)
	assert.Contains(t, spec.SQL, `LEFT JOIN "education_data".stem_gifted_and_talented gt`)
	assert.Contains(t, spec.SQL, `LEFT JOIN "education_data".district_finance f`)
	assert.Contains(t, spec.SQL, "WHERE c.enrollment >= 50")
	assert.Contains(t, spec.SQL, "AND c.teachers_fte > 0")
	assert.Contains(t, spec.SQL, "AND c.school_name IS NOT NULL")

	// Graduation join pins the all-students cohort.
	assert.Contains(t, spec.SQL, "AND g.race = 99")
	assert.Contains(t, spec.SQL, "AND g.disability = 99")
	assert.Contains(t, spec.SQL, "AND g.econ_disadvantaged = 99")

	// AP columns only materialize for high schools.
	assert.Contains(t, spec.SQL, "WHEN c.school_level = 3 THEN GREATEST(COALESCE(ap.ap_courses, 0), 0)")

	// Scoring expression and category bucketing are embedded, and the
	// threshold filters below-par candidates.
	assert.Contains(t, spec.SQL, "AS base_match_score")
	assert.Contains(t, spec.SQL, "AS match_category")
	assert.Contains(t, spec.SQL, "WHEN graduation_rate >= 90 THEN 1.0")
	assert.Contains(t, spec.SQL, "WHERE base_match_score >= 0.40")
	assert.Contains(t, spec.SQL, "ORDER BY base_match_score DESC, graduation_rate DESC NULLS LAST")

	// No profile filters: the only bound argument is the limit.
	assert.Equal(t, []interface{}{20}, spec.Args)
	assert.Contains(t, spec.SQL, "LIMIT $1")
	assert.NotContains(t, spec.SQL, "c.school_level = $")
	assert.NotContains(t, spec.SQL, "UPPER(c.city_location)")
}

func TestBuild_ProfileFilters(t *testing.T) {
	tests := []struct {
		name         string
		profile      *models.StudentProfile
		expectedArgs []interface{}
		contains     []string
		notContains  []string
	}{
		{
			name:         "level only",
			profile:      profileWith(models.LevelMiddle, ""),
			expectedArgs: []interface{}{2, 20},
			contains:     []string{"AND c.school_level = $1", "LIMIT $2"},
			notContains:  []string{"UPPER(c.city_location)"},
		},
		{
			name:         "city only",
			profile:      profileWith(models.LevelUnspecified, "Springfield"),
			expectedArgs: []interface{}{"SPRINGFIELD", 20},
			contains:     []string{"AND UPPER(c.city_location) = $1", "LIMIT $2"},
			notContains:  []string{"c.school_level = $"},
		},
		{
			name:         "level and city",
			profile:      profileWith(models.LevelHigh, "Springfield"),
			expectedArgs: []interface{}{3, "SPRINGFIELD", 20},
			contains: []string{
				"AND c.school_level = $1",
				"AND UPPER(c.city_location) = $2",
				"LIMIT $3",
			},
		},
		{
			name:         "city is trimmed and uppercased",
			profile:      profileWith(models.LevelUnspecified, "  Portland  "),
			expectedArgs: []interface{}{"PORTLAND", 20},
			contains:     []string{"AND UPPER(c.city_location) = $1"},
		},
		{
			name:         "nil profile builds the unfiltered statement",
			profile:      nil,
			expectedArgs: []interface{}{20},
			contains:     []string{"LIMIT $1"},
			notContains:  []string{"c.school_level = $", "UPPER(c.city_location)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := testBuilder().Build(tt.profile, 20)

			assert.Equal(t, tt.expectedArgs, spec.Args)
			for _, fragment := range tt.contains {
				assert.Contains(t, spec.SQL, fragment)
			}
			for _, fragment := range tt.notContains {
				assert.NotContains(t, spec.SQL, fragment)
			}
		})
	}
}

// ==========================
// Limit Handling Tests
// ==========================

func TestBuild_LimitClamping(t *testing.T) {
	tests := []struct {
		name     string
		limit    int
		expected int
	}{
		{"zero falls back to default", 0, DefaultLimit},
		{"negative falls back to default", -5, DefaultLimit},
		{"within range passes through", 50, 50},
		{"above pre-limit is capped", 500, PreLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := testBuilder().Build(&models.StudentProfile{}, tt.limit)

			assert.Equal(t, tt.expected, spec.Limit)
			assert.Equal(t, tt.expected, spec.Args[len(spec.Args)-1])
		})
	}
}

func TestBuild_PreLimitBoundsCandidateSet(t *testing.T) {
	spec := testBuilder().Build(&models.StudentProfile{}, 20)

	assert.Equal(t, PreLimit, spec.PreLimit)
	// The candidate CTE is capped inline, before scoring.
	assert.Contains(t, spec.SQL, "    LIMIT 100\n)")
}

// ==========================
// Edge Cases
// ==========================

func TestBuild_SchemaNameIsQuoted(t *testing.T) {
	spec := New(`edu"data`).Build(&models.StudentProfile{}, 10)

	assert.Contains(t, spec.SQL, `FROM "edu""data".ccd_directory c`)
}
