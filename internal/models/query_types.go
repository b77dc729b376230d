// internal/models/query_types.go
package models

type QueryType string

const (
	QueryTypeMatchSchools         QueryType = "match_schools"
	QueryTypeHighNeedLowTech      QueryType = "high_need_low_tech"
	QueryTypeHighGradLowFunding   QueryType = "high_grad_low_funding"
	QueryTypeStrongSTEMSmallClass QueryType = "strong_stem_small_class"
)

// QuerySpec is a fully-bound statement for a warehouse source. SQL uses
// positional placeholders; Args holds the bound values in order.
type QuerySpec struct {
	SQL      string
	Args     []interface{}
	Limit    int
	PreLimit int
}
