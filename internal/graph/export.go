package graph

import (
	"context"
	"encoding/json"
	"io"

	"github.com/ajitpratap0/graphcortex/internal/models"
)

// Export is a JSON-serializable snapshot of the graph: node and edge
// tables plus an adjacency list keyed by entity ID.
type Export struct {
	Entities      []models.Entity       `json:"entities"`
	Relationships []models.Relationship `json:"relationships"`
	Adjacency     map[string][]string   `json:"adjacency"`
}

// Snapshot reads the full graph from the store into an Export. Ordering is
// deterministic so repeated exports of the same graph are byte-identical.
func Snapshot(ctx context.Context, store Store) (*Export, error) {
	entities, err := store.Entities(ctx, "")
	if err != nil {
		return nil, err
	}
	rels, err := store.Relationships(ctx)
	if err != nil {
		return nil, err
	}
	adjacency := make(map[string][]string, len(entities))
	for _, r := range rels {
		adjacency[r.SourceID] = append(adjacency[r.SourceID], r.TargetID)
	}
	// Embeddings are index internals, not export payload.
	for i := range entities {
		entities[i].Embedding = nil
	}
	return &Export{
		Entities:      entities,
		Relationships: rels,
		Adjacency:     adjacency,
	}, nil
}

// WriteJSON streams the export as indented JSON.
func (e *Export) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}
