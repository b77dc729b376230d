// internal/matching/ranking/ranker.go

// Package ranking turns warehouse candidates into the final ordered
// list: location-adjusted score on the 0-100 scale, reasoning,
// admission label, and a dense 1-based rank.
package ranking

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"school-matcher/internal/matching/reasoning"
	"school-matcher/internal/models"
)

// Blend shares for the final score. The base score already carries a
// location placeholder; these re-balance it against the real
// home-city fit.
const (
	baseShare     = 0.85
	locationShare = 0.15
)

const (
	locationSameCity  = 1.0
	locationOtherCity = 0.5
)

// Rank scores, sorts, and ranks the candidate list. The sort is
// stable: equal final scores keep warehouse order, which is already
// base score descending with graduation rate as tie-break. An error
// means the input could not be ranked as a whole; callers degrade to
// the original order rather than failing the request.
func Rank(records []models.SchoolRecord, profile *models.StudentProfile) ([]models.ScoredSchool, error) {
	home := profile.HomeCity()

	ranked := make([]models.ScoredSchool, 0, len(records))
	for i := range records {
		rec := &records[i]
		if err := validate(rec); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}

		loc := locationScore(rec, home)
		adjusted := rec.BaseScore*baseShare + loc*locationShare

		admission := models.AdmissionPublic
		if rec.Charter {
			admission = models.AdmissionCharter
		}

		ranked = append(ranked, models.ScoredSchool{
			SchoolRecord:  *rec,
			MatchScore:    roundScore(adjusted * 100),
			LocationScore: loc,
			Reasons:       reasoning.Explain(rec, profile),
			AdmissionType: admission,
			Rank:          0,
		})
	}

	stableSortByScore(ranked)

	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	return ranked, nil
}

// locationScore is 1.0 when there is nothing to compare, 1.0 for a
// same-city record, 0.5 otherwise.
func locationScore(rec *models.SchoolRecord, homeCity string) float64 {
	if homeCity == "" || rec.City == "" {
		return locationSameCity
	}
	if strings.EqualFold(rec.City, homeCity) {
		return locationSameCity
	}
	return locationOtherCity
}

func validate(rec *models.SchoolRecord) error {
	if rec.NCESSchoolID == "" {
		return fmt.Errorf("missing school id")
	}
	if rec.BaseScore < 0 || rec.BaseScore > 1 {
		return fmt.Errorf("base score %v out of range", rec.BaseScore)
	}
	return nil
}

func stableSortByScore(list []models.ScoredSchool) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].MatchScore > list[j].MatchScore
	})
}

func roundScore(v float64) float64 {
	return math.Round(v*10) / 10
}
