// internal/models/match.go
package models

type MatchStatus string

const (
	StatusSuccess           MatchStatus = "success"
	StatusNoMatches         MatchStatus = "no_matches"
	StatusNoRecommendations MatchStatus = "no_recommendations"
	StatusError             MatchStatus = "error"
)

// QueryEcho carries the executed statement back to the caller for
// traceability. Args are bound parameters, never interpolated values.
type QueryEcho struct {
	SQL  string        `json:"sql"`
	Args []interface{} `json:"args,omitempty"`
}

// MatchResult is the typed outcome of the candidate-fetch stage. Status
// distinguishes hard failure from an empty result set so callers never
// have to parse messages.
type MatchResult struct {
	Status    MatchStatus     `json:"status"`
	Schools   []SchoolRecord  `json:"schools"`
	Count     int             `json:"count,omitempty"`
	Message   string          `json:"message,omitempty"`
	Query     *QueryEcho      `json:"query,omitempty"`
	Profile   *StudentProfile `json:"student_profile,omitempty"`
	RequestID string          `json:"request_id,omitempty"`

	// Err holds the typed cause when Status is error. It never goes on
	// the wire; HTTP handlers map it to a status code instead.
	Err error `json:"-"`
}

type CategoryLists struct {
	Excellent []ScoredSchool `json:"excellent"`
	Good      []ScoredSchool `json:"good"`
	Fair      []ScoredSchool `json:"fair"`
}

type ApplicationStrategy struct {
	RecommendedApproach string         `json:"recommended_approach"`
	TopChoice           *ScoredSchool  `json:"top_choice"`
	NeighborhoodOption  *ScoredSchool  `json:"neighborhood_option"`
	LotterySchools      []ScoredSchool `json:"lottery_schools"`
	NextSteps           []string       `json:"next_steps"`
}

// RecommendationBundle is the final pipeline output. Degraded marks a
// bundle whose ranking fell back to warehouse order after a ranking
// failure; the data is still served.
type RecommendationBundle struct {
	Status       MatchStatus          `json:"status"`
	Message      string               `json:"message,omitempty"`
	TotalMatches int                  `json:"total_matches,omitempty"`
	Top10        []ScoredSchool       `json:"top_10,omitempty"`
	ByCategory   *CategoryLists       `json:"by_category,omitempty"`
	Summary      string               `json:"summary,omitempty"`
	Strategy     *ApplicationStrategy `json:"application_strategy,omitempty"`
	Profile      *StudentProfile      `json:"student_profile,omitempty"`
	Degraded     bool                 `json:"degraded,omitempty"`
	RequestID    string               `json:"request_id,omitempty"`

	// Err mirrors MatchResult.Err for the error status.
	Err error `json:"-"`
}
