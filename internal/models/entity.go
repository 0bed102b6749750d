package models

// Entity represents a node in the knowledge graph. Entities come from the
// extraction pipeline or direct API calls and are identified by a stable,
// caller-supplied ID. Re-ingesting an entity with an existing ID merges
// properties instead of creating a duplicate node.
type Entity struct {
	ID         string     `json:"id"`
	Text       string     `json:"text"`
	Labels     []string   `json:"labels"`
	Properties Properties `json:"properties,omitempty"`
	Confidence float64    `json:"confidence,omitempty"`

	// Embedding is a cached vector for the entity text. It is computed
	// lazily by the index service and cleared whenever Text changes.
	Embedding []float32 `json:"embedding,omitempty"`
}

// PrimaryLabel returns the first label, or "Entity" when none is set.
// Merge statements key on a single label; additional labels are applied
// after the merge.
func (e Entity) PrimaryLabel() string {
	if len(e.Labels) == 0 {
		return "Entity"
	}
	return e.Labels[0]
}

// HasLabel reports whether the entity carries the given label.
func (e Entity) HasLabel(label string) bool {
	for _, l := range e.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so stored entities cannot be mutated through
// shared slices or maps.
func (e Entity) Clone() Entity {
	out := e
	if len(e.Labels) > 0 {
		out.Labels = append([]string(nil), e.Labels...)
	}
	if len(e.Properties) > 0 {
		out.Properties = e.Properties.Clone()
	}
	if len(e.Embedding) > 0 {
		out.Embedding = append([]float32(nil), e.Embedding...)
	}
	return out
}
