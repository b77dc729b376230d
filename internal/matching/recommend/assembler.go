// internal/matching/recommend/assembler.go

// Package recommend assembles the final bundle: tier partitions, the
// family-facing summary, and the application strategy.
package recommend

import (
	"fmt"
	"strings"

	"school-matcher/internal/models"
)

// Presentation tiers on the final 0-100 score. Consider (<50) stays in
// the full ranked list but is excluded from the tier lists.
const (
	tierExcellent = 85.0
	tierGood      = 70.0
	tierFair      = 50.0
)

const (
	topListSize      = 10
	excellentListMax = 5
	goodListMax      = 5
	fairListMax      = 3
)

// Assemble produces the recommendation bundle from the ranked list. An
// empty input yields a no_recommendations status, never a panic.
func Assemble(ranked []models.ScoredSchool, profile *models.StudentProfile) *models.RecommendationBundle {
	if len(ranked) == 0 {
		return &models.RecommendationBundle{
			Status:  models.StatusNoRecommendations,
			Message: "No schools matched the criteria",
			Profile: profile,
		}
	}

	var excellent, good, fair []models.ScoredSchool
	for _, s := range ranked {
		switch {
		case s.MatchScore >= tierExcellent:
			excellent = append(excellent, s)
		case s.MatchScore >= tierGood:
			good = append(good, s)
		case s.MatchScore >= tierFair:
			fair = append(fair, s)
		}
	}

	summary := fmt.Sprintf(`Found %d schools matching your child's profile:
• %d Excellent matches (85%%+ fit)
• %d Good matches (70-85%% fit)
• %d Fair matches (50-70%% fit)`,
		len(ranked), len(excellent), len(good), len(fair))

	return &models.RecommendationBundle{
		Status:       models.StatusSuccess,
		TotalMatches: len(ranked),
		Top10:        truncate(ranked, topListSize),
		ByCategory: &models.CategoryLists{
			Excellent: truncate(excellent, excellentListMax),
			Good:      truncate(good, goodListMax),
			Fair:      truncate(fair, fairListMax),
		},
		Summary:  strings.TrimSpace(summary),
		Strategy: BuildStrategy(ranked),
		Profile:  profile,
	}
}

func truncate(list []models.ScoredSchool, max int) []models.ScoredSchool {
	if len(list) > max {
		return list[:max]
	}
	return list
}
