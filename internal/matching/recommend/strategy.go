// internal/matching/recommend/strategy.go
package recommend

import (
	"fmt"

	"school-matcher/internal/models"
)

const maxLotterySchools = 3

// BuildStrategy derives the application plan from the ranked list: the
// top choice, the best by-right public option, up to three lottery
// candidates, and numbered next steps that branch on whether the top
// choice requires a lottery application.
func BuildStrategy(ranked []models.ScoredSchool) *models.ApplicationStrategy {
	var public, charter []models.ScoredSchool
	for _, s := range ranked {
		if s.Charter {
			charter = append(charter, s)
		} else {
			public = append(public, s)
		}
	}

	lottery := charter
	if len(lottery) > maxLotterySchools {
		lottery = lottery[:maxLotterySchools]
	}

	strategy := &models.ApplicationStrategy{
		LotterySchools: lottery,
		NextSteps:      []string{},
	}

	if len(public) > 0 {
		neighborhood := public[0]
		strategy.NeighborhoodOption = &neighborhood
	}

	if len(ranked) > 0 {
		top := ranked[0]
		strategy.TopChoice = &top

		if top.Charter {
			strategy.RecommendedApproach = fmt.Sprintf(
				"Your top match (%s) is a charter school requiring lottery application.", top.Name)
			strategy.NextSteps = append(strategy.NextSteps,
				"1. Submit lottery application before deadline (typically Jan-Feb)",
				"2. Have a backup plan (neighborhood school)",
				"3. Monitor lottery results (typically March-April)")
		} else {
			strategy.RecommendedApproach = fmt.Sprintf(
				"Your top match (%s) is a public school. You likely have guaranteed enrollment if you live in the attendance zone.", top.Name)
			strategy.NextSteps = append(strategy.NextSteps,
				"1. Verify you live in the school's attendance boundary",
				"2. Complete enrollment forms by district deadline",
				"3. Schedule a school tour to visit")
		}
	}

	if len(charter) > 0 {
		strategy.NextSteps = append(strategy.NextSteps,
			fmt.Sprintf("4. Apply to %d charter schools to maximize options", len(lottery)))
	}

	return strategy
}
