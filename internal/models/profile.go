// internal/models/profile.go
package models

import "strings"

// SchoolLevel mirrors the warehouse level codes. LevelHigh is the only
// level with a terminal cohort, so graduation and AP columns are
// expected to be null below it.
type SchoolLevel int

const (
	LevelUnspecified SchoolLevel = 0
	LevelElementary  SchoolLevel = 1
	LevelMiddle      SchoolLevel = 2
	LevelHigh        SchoolLevel = 3
)

func (l SchoolLevel) String() string {
	switch l {
	case LevelElementary:
		return "elementary"
	case LevelMiddle:
		return "middle"
	case LevelHigh:
		return "high"
	default:
		return "unspecified"
	}
}

// Location is the student's home location. City drives the ranking
// adjustment; coordinates are carried for future distance scoring.
type Location struct {
	City      string   `json:"city,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// StudentProfile is the immutable input to one matching request.
// Needs and Interests are open-keyed category maps; today only
// "gifted" and "stem" gate reasoning output.
type StudentProfile struct {
	SchoolLevel SchoolLevel     `json:"school_level"`
	Location    Location        `json:"location"`
	Needs       map[string]bool `json:"needs_categories,omitempty"`
	Interests   map[string]bool `json:"interest_categories,omitempty"`
}

func (p *StudentProfile) HomeCity() string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(p.Location.City)
}

func (p *StudentProfile) HasNeed(name string) bool {
	return p != nil && p.Needs[name]
}

func (p *StudentProfile) HasInterest(name string) bool {
	return p != nil && p.Interests[name]
}
