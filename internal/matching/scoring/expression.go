// internal/matching/scoring/expression.go
package scoring

import (
	"fmt"
	"strconv"
	"strings"

	"school-matcher/internal/models"
)

// tier and weight format the shared constants for SQL. Tier values
// render with one decimal, weights with two, matching the layout the
// warehouse query has always used.
func tier(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func weight(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// Expression renders the base-score formula as a SQL expression over
// the school_data CTE columns. It is generated from the same constants
// BaseScore evaluates, so the two can never drift apart.
func Expression() string {
	factors := []string{
		qualityExpr(),
		programsExpr(),
		environmentExpr(),
		locationExpr(),
		admissionExpr(),
	}
	return "(\n" + strings.Join(factors, " +\n") + "\n)"
}

// CategoryExpression renders the match-category bucketing over the
// computed base_match_score column.
func CategoryExpression() string {
	return fmt.Sprintf(`CASE
    WHEN base_match_score >= %s THEN '%s'
    WHEN base_match_score >= %s THEN '%s'
    WHEN base_match_score >= %s THEN '%s'
    ELSE '%s'
END`,
		weight(cutExcellent), models.CategoryExcellent,
		weight(cutGood), models.CategoryGood,
		weight(cutFair), models.CategoryFair,
		models.CategoryConsider)
}

func qualityExpr() string {
	return fmt.Sprintf(`(
    CASE
        WHEN graduation_rate >= %d THEN %s
        WHEN graduation_rate >= %d THEN %s
        WHEN graduation_rate >= %d THEN %s
        WHEN graduation_rate IS NULL AND school_level < %d THEN %s
        ELSE %s
    END * %s +
    CASE
        WHEN student_teacher_ratio <= %d THEN %s
        WHEN student_teacher_ratio <= %d THEN %s
        WHEN student_teacher_ratio <= %d THEN %s
        ELSE %s
    END * %s
) * %s`,
		gradRateHigh, tier(gradTierHigh),
		gradRateMid, tier(gradTierMid),
		gradRateLow, tier(gradTierLow),
		int(models.LevelHigh), tier(gradTierNoData),
		tier(gradTierDefault),
		weight(gradSubWeight),
		classRatioTight, tier(classTierTight),
		classRatioGood, tier(classTierGood),
		classRatioFair, tier(classTierFair),
		tier(classTierDefault),
		weight(classSizeSubWeight),
		weight(WeightQuality))
}

func programsExpr() string {
	return fmt.Sprintf(`(
    CASE
        WHEN ap_courses >= %d THEN %s
        WHEN ap_courses >= %d THEN %s
        WHEN ap_courses > 0 THEN %s
        WHEN ap_courses IS NULL AND school_level < %d THEN %s
        ELSE %s
    END * %s +
    CASE WHEN has_gifted_program = 1 THEN %s ELSE %s END * %s
) * %s`,
		apCoursesStrong, tier(stemTierStrong),
		apCoursesSolid, tier(stemTierSolid),
		tier(stemTierSome),
		int(models.LevelHigh), tier(stemTierNoData),
		tier(stemTierDefault),
		weight(stemSubWeight),
		tier(giftedTierHas), tier(giftedTierNone),
		weight(giftedSubWeight),
		weight(WeightPrograms))
}

func environmentExpr() string {
	return fmt.Sprintf(`(
    CASE
        WHEN enrollment BETWEEN %d AND %d THEN %s
        WHEN enrollment BETWEEN %d AND %d THEN %s
        ELSE %s
    END * %s +
    CASE
        WHEN student_teacher_ratio <= %d THEN %s
        WHEN student_teacher_ratio <= %d THEN %s
        ELSE %s
    END * %s
) * %s`,
		sizeIdealMin, sizeIdealMax, tier(sizeTierIdeal),
		sizeOkMin, sizeOkMax, tier(sizeTierOk),
		tier(sizeTierDefault),
		weight(sizeSubWeight),
		comfortRatioSmall, tier(comfortTierSmall),
		comfortRatioMedium, tier(comfortTierMedium),
		tier(comfortTierDefault),
		weight(comfortSubWeight),
		weight(WeightEnvironment))
}

func locationExpr() string {
	return fmt.Sprintf("%s * %s", weight(WeightLocation), tier(LocationPlaceholder))
}

func admissionExpr() string {
	return fmt.Sprintf(`(
    CASE WHEN COALESCE(charter, 0) = 1 THEN %s ELSE %s END
) * %s`,
		tier(admissionTierCharter), tier(admissionTierPublic),
		weight(WeightAdmission))
}
