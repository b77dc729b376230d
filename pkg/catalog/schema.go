// pkg/catalog/schema.go
package catalog

type QueryCatalog struct {
	Version     string       `json:"version"`
	LastUpdated string       `json:"lastUpdated"`
	Queries     []QueryEntry `json:"queries"`
}

type QueryEntry struct {
	Name        string      `json:"name"`
	DisplayName string      `json:"displayName"`
	Description string      `json:"description"`
	Parameters  []Parameter `json:"parameters"`
	MaxLimit    int         `json:"maxLimit"`
	Tags        []string    `json:"tags"`
}

// Parameter describes one accepted query parameter. Type is one of
// "string", "number", "integer".
type Parameter struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Required    bool        `json:"required"`
	Default     interface{} `json:"default,omitempty"`
}
