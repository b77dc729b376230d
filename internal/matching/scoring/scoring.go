// internal/matching/scoring/scoring.go

// Package scoring is the single authority for the base match formula.
// BaseScore evaluates it over a typed record; Expression renders the
// identical formula as SQL for the warehouse push-down. Every weight,
// boundary, and tier value lives here and nowhere else.
package scoring

import (
	"school-matcher/internal/models"
)

// Factor weights. Must sum to 1.0.
const (
	WeightQuality     = 0.30
	WeightPrograms    = 0.25
	WeightEnvironment = 0.20
	WeightLocation    = 0.15
	WeightAdmission   = 0.10
)

// Sub-weights inside each factor.
const (
	gradSubWeight      = 0.5
	classSizeSubWeight = 0.5
	stemSubWeight      = 0.6
	giftedSubWeight    = 0.4
	sizeSubWeight      = 0.5
	comfortSubWeight   = 0.5
)

// LocationPlaceholder is the fixed location contribution inside the
// base score. Real location fit is applied later by the ranker.
const LocationPlaceholder = 0.8

// Threshold is the minimum base score a candidate must reach to be
// returned by the warehouse query.
const Threshold = 0.40

// Graduation-rate tiers (School Quality).
const (
	gradRateHigh    = 90
	gradRateMid     = 80
	gradRateLow     = 70
	gradTierHigh    = 1.0
	gradTierMid     = 0.8
	gradTierLow     = 0.6
	gradTierNoData  = 0.7
	gradTierDefault = 0.4
)

// Student-teacher ratio tiers (School Quality).
const (
	classRatioTight   = 15
	classRatioGood    = 20
	classRatioFair    = 25
	classTierTight    = 1.0
	classTierGood     = 0.8
	classTierFair     = 0.6
	classTierDefault  = 0.4
)

// AP-course tiers (Programs & Services).
const (
	apCoursesStrong = 10
	apCoursesSolid  = 5
	stemTierStrong  = 1.0
	stemTierSolid   = 0.7
	stemTierSome    = 0.5
	stemTierNoData  = 0.7
	stemTierDefault = 0.3
)

// Gifted-program tiers (Programs & Services).
const (
	giftedTierHas  = 1.0
	giftedTierNone = 0.5
)

// Enrollment tiers (School Environment).
const (
	sizeIdealMin    = 200
	sizeIdealMax    = 800
	sizeOkMin       = 100
	sizeOkMax       = 1500
	sizeTierIdeal   = 1.0
	sizeTierOk      = 0.7
	sizeTierDefault = 0.5
)

// Ratio-comfort tiers (School Environment).
const (
	comfortRatioSmall   = 18
	comfortRatioMedium  = 22
	comfortTierSmall    = 1.0
	comfortTierMedium   = 0.7
	comfortTierDefault  = 0.5
)

// Admission tiers.
const (
	admissionTierPublic  = 1.0
	admissionTierCharter = 0.7
)

// Category cutoffs on the [0,1] base score.
const (
	cutExcellent = 0.85
	cutGood      = 0.70
	cutFair      = 0.50
)

// BaseScore computes the five-factor weighted score in [0,1] from
// school attributes alone. Location inside the base score is a fixed
// placeholder; the ranker blends the real location fit afterwards.
func BaseScore(rec *models.SchoolRecord) float64 {
	quality := gradRateTier(rec.GraduationRate, rec.Level)*gradSubWeight +
		classSizeTier(rec.StudentTeacherRatio)*classSizeSubWeight

	programs := stemTier(rec.APCourses, rec.Level)*stemSubWeight +
		giftedTier(rec.HasGiftedProgram)*giftedSubWeight

	environment := enrollmentTier(rec.Enrollment)*sizeSubWeight +
		comfortTier(rec.StudentTeacherRatio)*comfortSubWeight

	admission := admissionTier(rec.Charter)

	return quality*WeightQuality +
		programs*WeightPrograms +
		environment*WeightEnvironment +
		LocationPlaceholder*WeightLocation +
		admission*WeightAdmission
}

// Categorize buckets a base score into its match category.
func Categorize(base float64) models.MatchCategory {
	if base >= cutExcellent {
		return models.CategoryExcellent
	} else if base >= cutGood {
		return models.CategoryGood
	} else if base >= cutFair {
		return models.CategoryFair
	}
	return models.CategoryConsider
}

// gradRateTier tolerates a missing rate below high school: elementary
// and middle schools have no terminal cohort, so absence is expected
// and must not drop them to the worst tier.
func gradRateTier(rate *float64, level models.SchoolLevel) float64 {
	if rate != nil {
		if *rate >= gradRateHigh {
			return gradTierHigh
		} else if *rate >= gradRateMid {
			return gradTierMid
		} else if *rate >= gradRateLow {
			return gradTierLow
		}
		return gradTierDefault
	}
	if level < models.LevelHigh {
		return gradTierNoData
	}
	return gradTierDefault
}

func classSizeTier(ratio float64) float64 {
	if ratio <= classRatioTight {
		return classTierTight
	} else if ratio <= classRatioGood {
		return classTierGood
	} else if ratio <= classRatioFair {
		return classTierFair
	}
	return classTierDefault
}

// stemTier follows the same no-data rule as gradRateTier: AP columns
// are only populated for high schools.
func stemTier(apCourses *int, level models.SchoolLevel) float64 {
	if apCourses != nil {
		if *apCourses >= apCoursesStrong {
			return stemTierStrong
		} else if *apCourses >= apCoursesSolid {
			return stemTierSolid
		} else if *apCourses > 0 {
			return stemTierSome
		}
		return stemTierDefault
	}
	if level < models.LevelHigh {
		return stemTierNoData
	}
	return stemTierDefault
}

func giftedTier(hasProgram bool) float64 {
	if hasProgram {
		return giftedTierHas
	}
	return giftedTierNone
}

func enrollmentTier(enrollment int) float64 {
	if enrollment >= sizeIdealMin && enrollment <= sizeIdealMax {
		return sizeTierIdeal
	} else if enrollment >= sizeOkMin && enrollment <= sizeOkMax {
		return sizeTierOk
	}
	return sizeTierDefault
}

func comfortTier(ratio float64) float64 {
	if ratio <= comfortRatioSmall {
		return comfortTierSmall
	} else if ratio <= comfortRatioMedium {
		return comfortTierMedium
	}
	return comfortTierDefault
}

func admissionTier(charter bool) float64 {
	if charter {
		return admissionTierCharter
	}
	return admissionTierPublic
}
