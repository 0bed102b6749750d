package models

import "time"

// Record is one row of a structured query result: the declared return
// aliases in order, plus the value bound to each alias. Graph values are
// converted to Entity/Relationship before they reach callers.
type Record struct {
	Keys   []string       `json:"keys"`
	Values map[string]any `json:"values"`
}

// QueryResult is the outcome of a structured query execution.
type QueryResult struct {
	Records           []Record      `json:"records"`
	ExecutionTime     time.Duration `json:"execution_time"`
	NodeCount         int           `json:"node_count"`
	RelationshipCount int           `json:"relationship_count"`
}

// NLQueryResult pairs a natural-language query's results with the generated
// structured query, which is always surfaced for auditability.
type NLQueryResult struct {
	GeneratedQuery string       `json:"generated_query"`
	Result         *QueryResult `json:"result"`
	Attempts       int          `json:"attempts"`
	FromCache      bool         `json:"from_cache"`
}

// ScoredEntity is a search hit with its ranking score. For hybrid results
// the per-list normalized scores are carried alongside the fused score.
type ScoredEntity struct {
	Entity       Entity  `json:"entity"`
	Score        float64 `json:"score"`
	VectorScore  float64 `json:"vector_score,omitempty"`
	KeywordScore float64 `json:"keyword_score,omitempty"`
}

// ContextResult is a search hit bundled with its k-hop neighborhood.
type ContextResult struct {
	Hit     ScoredEntity `json:"hit"`
	Context Subgraph     `json:"context"`
}

// Statistics summarizes committed graph state.
type Statistics struct {
	NodeCount           int64            `json:"node_count"`
	RelationshipCount   int64            `json:"relationship_count"`
	NodesByLabel        map[string]int64 `json:"nodes_by_label"`
	RelationshipsByType map[string]int64 `json:"relationships_by_type"`
}

// SchemaInfo is the observed schema of the store: labels, relationship
// types, and property keys currently in use.
type SchemaInfo struct {
	Labels            []string `json:"labels"`
	RelationshipTypes []string `json:"relationship_types"`
	PropertyKeys      []string `json:"property_keys"`
}
