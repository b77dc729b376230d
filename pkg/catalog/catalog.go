// pkg/catalog/catalog.go

// Package catalog loads the JSON descriptor of the named analytics
// queries. The catalog is documentation plus a parameter gate: requests
// are validated against it before they reach the warehouse registry.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"

	"school-matcher/internal/common/validation"
)

func Load(path string) (*QueryCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cat QueryCatalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, err
	}
	for _, q := range cat.Queries {
		if err := validation.ValidateQueryName(q.Name); err != nil {
			return nil, fmt.Errorf("catalog entry %q: %w", q.Name, err)
		}
	}
	return &cat, nil
}

// Lookup returns the entry for a query name, or nil when the catalog
// does not list it.
func (c *QueryCatalog) Lookup(name string) *QueryEntry {
	for i := range c.Queries {
		if c.Queries[i].Name == name {
			return &c.Queries[i]
		}
	}
	return nil
}

// ValidateParams checks caller parameters against the declared ones:
// unknown keys are rejected, required keys must be present, and values
// must match the declared type. Returns the list of problems, empty
// when the parameters are acceptable.
func (e *QueryEntry) ValidateParams(params map[string]interface{}) []string {
	var problems []string

	declared := make(map[string]Parameter, len(e.Parameters))
	for _, p := range e.Parameters {
		declared[p.Name] = p
	}

	for name := range params {
		if _, ok := declared[name]; !ok {
			problems = append(problems, fmt.Sprintf("unknown parameter %q", name))
		}
	}

	for _, p := range e.Parameters {
		v, present := params[p.Name]
		if !present || v == nil {
			if p.Required {
				problems = append(problems, fmt.Sprintf("missing required parameter %q", p.Name))
			}
			continue
		}
		if !typeMatches(p.Type, v) {
			problems = append(problems, fmt.Sprintf("parameter %q must be a %s", p.Name, p.Type))
		}
	}

	return problems
}

func typeMatches(declared string, v interface{}) bool {
	switch declared {
	case "string":
		_, ok := v.(string)
		return ok
	case "number":
		switch v.(type) {
		case float64, float32, int, int64:
			return true
		}
		return false
	case "integer":
		// JSON numbers decode as float64; accept whole values.
		switch x := v.(type) {
		case int, int64:
			return true
		case float64:
			return x == float64(int64(x))
		}
		return false
	}
	return true
}
