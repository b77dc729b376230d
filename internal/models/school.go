// internal/models/school.go
package models

type MatchCategory string

const (
	CategoryExcellent MatchCategory = "Excellent Match"
	CategoryGood      MatchCategory = "Good Match"
	CategoryFair      MatchCategory = "Fair Match"
	CategoryConsider  MatchCategory = "Consider"
)

const (
	AdmissionCharter = "Charter School (Lottery)"
	AdmissionPublic  = "Public School (Enrollment)"
)

// SchoolRecord is one validated warehouse row. Columns that are
// legitimately absent for some school levels stay pointers; everything
// else is defaulted at the source boundary so scoring never sees a
// loose map.
type SchoolRecord struct {
	NCESSchoolID        string      `json:"ncessch"`
	Name                string      `json:"school_name"`
	District            string      `json:"district_name"`
	LEAID               string      `json:"leaid"`
	City                string      `json:"city_location"`
	State               string      `json:"state_location,omitempty"`
	County              string      `json:"county_code,omitempty"`
	Level               SchoolLevel `json:"school_level"`
	Enrollment          int         `json:"enrollment"`
	TeachersFTE         float64     `json:"teachers_fte,omitempty"`
	StudentTeacherRatio float64     `json:"student_teacher_ratio"`
	LowIncomePct        *float64    `json:"low_income_pct,omitempty"`
	GraduationRate      *float64    `json:"graduation_rate,omitempty"`
	APCourses           *int        `json:"ap_courses,omitempty"`
	APEnrollment        *int        `json:"ap_enrollment,omitempty"`
	HasGiftedProgram    bool        `json:"has_gifted_program"`
	Charter             bool        `json:"charter"`
	Latitude            *float64    `json:"latitude,omitempty"`
	Longitude           *float64    `json:"longitude,omitempty"`
	PerPupilTotal       *float64    `json:"per_pupil_total,omitempty"`
	PerPupilInstruction *float64    `json:"per_pupil_instruction,omitempty"`

	// Computed by the warehouse-side scoring expression.
	BaseScore float64       `json:"base_match_score"`
	Category  MatchCategory `json:"match_category"`
}

// ScoredSchool is a SchoolRecord enriched by the ranker: final score on
// the 0-100 scale, reasoning, admission label, and a dense 1-based
// rank. Derived per request, never persisted.
type ScoredSchool struct {
	SchoolRecord
	MatchScore    float64  `json:"match_score"`
	LocationScore float64  `json:"distance_score"`
	Reasons       []string `json:"match_reasoning"`
	AdmissionType string   `json:"admission_type"`
	Rank          int      `json:"rank"`
}
