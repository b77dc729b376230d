// internal/matching/recommend/assembler_test.go
package recommend

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"school-matcher/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func scored(id string, score float64, charter bool) models.ScoredSchool {
	return models.ScoredSchool{
		SchoolRecord: models.SchoolRecord{
			NCESSchoolID: id,
			Name:         "School " + id,
			Charter:      charter,
		},
		MatchScore:    score,
		AdmissionType: admissionLabel(charter),
	}
}

func admissionLabel(charter bool) string {
	if charter {
		return models.AdmissionCharter
	}
	return models.AdmissionPublic
}

func rankedList(scores ...float64) []models.ScoredSchool {
	list := make([]models.ScoredSchool, 0, len(scores))
	for i, score := range scores {
		list = append(list, scored(fmt.Sprintf("%04d", i+1), score, false))
	}
	return list
}

// ==========================
// Core Functionality Tests
// ==========================

func TestAssemble_TierPartition(t *testing.T) {
	ranked := rankedList(92, 88, 74, 71, 55, 48)

	bundle := Assemble(ranked, &models.StudentProfile{})

	assert.Equal(t, models.StatusSuccess, bundle.Status)
	assert.Equal(t, 6, bundle.TotalMatches)
	assert.Len(t, bundle.Top10, 6)

	assert.Len(t, bundle.ByCategory.Excellent, 2)
	assert.Len(t, bundle.ByCategory.Good, 2)
	assert.Len(t, bundle.ByCategory.Fair, 1)

	// Every tiered school sits in exactly one band; sub-50 entries stay
	// out of the tier lists entirely.
	for _, s := range bundle.ByCategory.Excellent {
		assert.GreaterOrEqual(t, s.MatchScore, 85.0)
	}
	for _, s := range bundle.ByCategory.Good {
		assert.GreaterOrEqual(t, s.MatchScore, 70.0)
		assert.Less(t, s.MatchScore, 85.0)
	}
	for _, s := range bundle.ByCategory.Fair {
		assert.GreaterOrEqual(t, s.MatchScore, 50.0)
		assert.Less(t, s.MatchScore, 70.0)
	}
}

func TestAssemble_TierBoundaries(t *testing.T) {
	// Exactly 85 is excellent, exactly 70 is good, exactly 50 is fair.
	ranked := rankedList(85, 70, 50, 49.9)

	bundle := Assemble(ranked, &models.StudentProfile{})

	assert.Len(t, bundle.ByCategory.Excellent, 1)
	assert.Len(t, bundle.ByCategory.Good, 1)
	assert.Len(t, bundle.ByCategory.Fair, 1)
	assert.Equal(t, 4, bundle.TotalMatches)
}

func TestAssemble_ListCaps(t *testing.T) {
	scores := []float64{
		99, 98, 97, 96, 95, 94, 93, // seven excellent
		84, 83, 82, 81, 80, 79, // six good
		69, 68, 67, 66, // four fair
	}
	ranked := rankedList(scores...)

	bundle := Assemble(ranked, &models.StudentProfile{})

	assert.Equal(t, len(scores), bundle.TotalMatches)
	assert.Len(t, bundle.Top10, 10)
	assert.Len(t, bundle.ByCategory.Excellent, 5)
	assert.Len(t, bundle.ByCategory.Good, 5)
	assert.Len(t, bundle.ByCategory.Fair, 3)

	// Caps keep the highest-ranked entries.
	assert.Equal(t, "0001", bundle.Top10[0].NCESSchoolID)
	assert.Equal(t, "0001", bundle.ByCategory.Excellent[0].NCESSchoolID)
	assert.Equal(t, "0008", bundle.ByCategory.Good[0].NCESSchoolID)
	assert.Equal(t, "0014", bundle.ByCategory.Fair[0].NCESSchoolID)
}

func TestAssemble_Summary(t *testing.T) {
	ranked := rankedList(92, 88, 74, 71, 55, 48)

	bundle := Assemble(ranked, &models.StudentProfile{})

	expected := `Found 6 schools matching your child's profile:
• 2 Excellent matches (85%+ fit)
• 2 Good matches (70-85% fit)
• 1 Fair matches (50-70% fit)`
	assert.Equal(t, expected, bundle.Summary)
}

func TestAssemble_CarriesProfileAndStrategy(t *testing.T) {
	profile := &models.StudentProfile{
		SchoolLevel: models.LevelMiddle,
		Location:    models.Location{City: "Springfield"},
	}
	ranked := rankedList(92, 74)

	bundle := Assemble(ranked, profile)

	assert.Same(t, profile, bundle.Profile)
	assert.NotNil(t, bundle.Strategy)
	assert.NotNil(t, bundle.Strategy.TopChoice)
}

// ==========================
// Edge Cases
// ==========================

func TestAssemble_EmptyInput(t *testing.T) {
	profile := &models.StudentProfile{}

	bundle := Assemble(nil, profile)

	assert.Equal(t, models.StatusNoRecommendations, bundle.Status)
	assert.Equal(t, "No schools matched the criteria", bundle.Message)
	assert.Same(t, profile, bundle.Profile)
	assert.Zero(t, bundle.TotalMatches)
	assert.Nil(t, bundle.ByCategory)
	assert.Nil(t, bundle.Strategy)
}

func TestAssemble_AllBelowFairStillSucceeds(t *testing.T) {
	ranked := rankedList(45, 42)

	bundle := Assemble(ranked, &models.StudentProfile{})

	assert.Equal(t, models.StatusSuccess, bundle.Status)
	assert.Equal(t, 2, bundle.TotalMatches)
	assert.Len(t, bundle.Top10, 2)
	assert.Empty(t, bundle.ByCategory.Excellent)
	assert.Empty(t, bundle.ByCategory.Good)
	assert.Empty(t, bundle.ByCategory.Fair)
}
