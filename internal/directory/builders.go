// internal/directory/builders.go
package directory

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"school-matcher/internal/models"
)

var ErrMissingIndex = errors.New("index name is required")

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// SchoolSearch defines the structure of a directory search request
type SchoolSearch struct {
	Index    string
	Keywords string
	City     string
	State    string
	Level    models.SchoolLevel
	Charter  *bool
	MinEnrollment int
	MaxEnrollment int
	SortBy   string
	From     int
	Size     int
}

// BuildSearchRequest builds an Elasticsearch search request from the
// directory filters
func BuildSearchRequest(s SchoolSearch) (*esapi.SearchRequest, error) {
	if s.Index == "" {
		return nil, ErrMissingIndex
	}

	from := s.From
	if from < 0 {
		from = 0
	}
	size := s.Size
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	body, _ := json.Marshal(buildSchoolSearchQuery(s))

	req := esapi.SearchRequest{
		Index: []string{s.Index},
		Body:  strings.NewReader(string(body)),
		From:  &from,
		Size:  &size,
	}

	return &req, nil
}

// buildSchoolSearchQuery builds the school directory query dynamically
func buildSchoolSearchQuery(s SchoolSearch) map[string]interface{} {
	boolQuery := make(map[string]interface{})
	mustClauses := []interface{}{}
	filterClauses := []interface{}{}

	// Keyword search across name, district and city
	if s.Keywords != "" {
		mustClauses = append(mustClauses, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  s.Keywords,
				"fields": []string{"school_name^3", "district_name^2", "city_location"},
				"type":   "best_fields",
			},
		})
	}

	// City filter
	if s.City != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"city_location": strings.ToUpper(s.City)},
		})
	}

	// State filter
	if s.State != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"state_location": strings.ToUpper(s.State)},
		})
	}

	// School level filter
	if s.Level > models.LevelUnspecified {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"school_level": int(s.Level)},
		})
	}

	// Charter filter
	if s.Charter != nil {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"charter": *s.Charter},
		})
	}

	// Enrollment range filter
	if s.MinEnrollment > 0 || s.MaxEnrollment > 0 {
		rangeBody := map[string]interface{}{}
		if s.MinEnrollment > 0 {
			rangeBody["gte"] = s.MinEnrollment
		}
		if s.MaxEnrollment > 0 {
			rangeBody["lte"] = s.MaxEnrollment
		}
		filterClauses = append(filterClauses, map[string]interface{}{
			"range": map[string]interface{}{"enrollment": rangeBody},
		})
	}

	// Default match_all if no keyword
	if len(mustClauses) == 0 {
		mustClauses = append(mustClauses, map[string]interface{}{"match_all": map[string]interface{}{}})
	}

	boolQuery["must"] = mustClauses
	if len(filterClauses) > 0 {
		boolQuery["filter"] = filterClauses
	}

	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": boolQuery,
		},
	}

	// Sorting logic
	switch s.SortBy {
	case "name":
		query["sort"] = []map[string]interface{}{{"school_name": "asc"}}
	case "enrollment":
		query["sort"] = []map[string]interface{}{{"enrollment": "desc"}}
	}

	return query
}
