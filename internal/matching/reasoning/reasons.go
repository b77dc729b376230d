// internal/matching/reasoning/reasons.go

// Package reasoning derives the per-school justification strings shown
// to families. Reasons are emitted in a fixed priority order and the
// list never has fewer than three entries.
package reasoning

import (
	"fmt"
	"strconv"
	"strings"

	"school-matcher/internal/models"
)

const minReasons = 3

const fillerReason = "✓ Meets basic quality standards"

// Explain generates the ordered reason list for one record. The
// thresholds mirror the scoring tiers textually but are not scoring
// inputs; changing a reason never changes a score.
func Explain(rec *models.SchoolRecord, profile *models.StudentProfile) []string {
	reasons := []string{}

	if g := rec.GraduationRate; g != nil && *g >= 85 {
		reasons = append(reasons, fmt.Sprintf("✓ High graduation rate (%s%%)", floatText(*g)))
	} else if g != nil && *g >= 75 {
		reasons = append(reasons, fmt.Sprintf("✓ Good graduation rate (%s%%)", floatText(*g)))
	}

	if r := rec.StudentTeacherRatio; r > 0 && r <= 18 {
		reasons = append(reasons, fmt.Sprintf("✓ Small class sizes (%s:1 student-teacher ratio)", floatText(r)))
	} else if r > 0 && r <= 22 {
		reasons = append(reasons, fmt.Sprintf("✓ Reasonable class sizes (%s:1 ratio)", floatText(r)))
	}

	if ap := rec.APCourses; ap != nil && *ap >= 5 && profile.HasInterest("stem") {
		reasons = append(reasons, fmt.Sprintf("✓ Strong STEM programs (%d AP courses)", *ap))
	} else if ap != nil && *ap > 0 {
		reasons = append(reasons, fmt.Sprintf("✓ Offers AP courses (%d available)", *ap))
	}

	if rec.HasGiftedProgram && profile.HasNeed("gifted") {
		reasons = append(reasons, "✓ Has Gifted & Talented program")
	}

	if home := profile.HomeCity(); home != "" && strings.EqualFold(rec.City, home) {
		reasons = append(reasons, fmt.Sprintf("✓ Located in %s", rec.City))
	}

	if e := rec.Enrollment; e >= 200 && e <= 800 {
		reasons = append(reasons, fmt.Sprintf("✓ Medium-sized school (%d students)", e))
	}

	if rec.Charter {
		reasons = append(reasons, "⚠ Charter school (lottery application required)")
	} else {
		reasons = append(reasons, "✓ Public school (neighborhood enrollment)")
	}

	for len(reasons) < minReasons {
		reasons = append(reasons, fillerReason)
	}

	return reasons
}

// floatText always includes a decimal part, so a whole ratio reads as
// "14.0" rather than "14".
func floatText(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
