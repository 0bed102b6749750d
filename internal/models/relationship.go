package models

// Relationship represents a directed, typed edge between two entities.
// Relationships are deduplicated on (SourceID, TargetID, Type): re-ingesting
// the same triple merges properties onto the existing edge.
type Relationship struct {
	SourceID   string     `json:"source_id"`
	TargetID   string     `json:"target_id"`
	Type       string     `json:"type"`
	Properties Properties `json:"properties,omitempty"`
	Confidence float64    `json:"confidence,omitempty"`
}

// Key returns the identity triple used for edge deduplication.
func (r Relationship) Key() RelationshipKey {
	return RelationshipKey{Source: r.SourceID, Target: r.TargetID, Type: r.Type}
}

// RelationshipKey is the (source, target, type) identity of an edge.
type RelationshipKey struct {
	Source string
	Target string
	Type   string
}

// Clone returns a deep copy of the relationship.
func (r Relationship) Clone() Relationship {
	out := r
	if len(r.Properties) > 0 {
		out.Properties = r.Properties.Clone()
	}
	return out
}

// Subgraph is an induced slice of the graph: a set of entities plus the
// relationships between them. Traversal, path-finding, and context
// expansion all return this shape.
type Subgraph struct {
	Entities      []Entity       `json:"entities"`
	Relationships []Relationship `json:"relationships"`
}

// Path is an ordered walk through the graph from one entity to another.
type Path struct {
	EntityIDs     []string       `json:"entity_ids"`
	Relationships []Relationship `json:"relationships"`
}

// Length returns the number of hops in the path.
func (p Path) Length() int { return len(p.Relationships) }
