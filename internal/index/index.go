// Package index maintains the embedding vector index used for similarity
// search.
package index

import (
	"encoding/gob"
	"fmt"
	"os"
	"sort"

	"github.com/viterin/vek/vek32"

	"github.com/ajitpratap0/graphcortex/internal/graph"
)

// VectorIndex is an immutable in-memory vector index. Entries are entity
// IDs with their label sets and embedding vectors, all of one dimension.
// Build a new index and swap it in rather than mutating a published one.
type VectorIndex struct {
	Dimension int
	IDs       []string
	Labels    [][]string
	Vectors   [][]float32
}

// Hit is one nearest-neighbor result.
type Hit struct {
	ID    string
	Score float64
}

// NewVectorIndex returns an empty index for the given dimension.
func NewVectorIndex(dimension int) *VectorIndex {
	return &VectorIndex{Dimension: dimension}
}

// Add appends an entry. The vector must match the index dimension.
func (idx *VectorIndex) Add(id string, labels []string, vec []float32) error {
	if len(vec) != idx.Dimension {
		return fmt.Errorf("vector for %s has dimension %d, index expects %d",
			id, len(vec), idx.Dimension)
	}
	idx.IDs = append(idx.IDs, id)
	idx.Labels = append(idx.Labels, append([]string(nil), labels...))
	idx.Vectors = append(idx.Vectors, append([]float32(nil), vec...))
	return nil
}

// Len reports the number of indexed entries.
func (idx *VectorIndex) Len() int { return len(idx.IDs) }

// Has reports whether id is indexed.
func (idx *VectorIndex) Has(id string) bool {
	for _, existing := range idx.IDs {
		if existing == id {
			return true
		}
	}
	return false
}

// Search returns the topK entries most cosine-similar to query, optionally
// restricted to entries carrying one of labelFilter. Ties break by ID so
// results are deterministic.
func (idx *VectorIndex) Search(query []float32, topK int, labelFilter []string) ([]Hit, error) {
	if len(query) != idx.Dimension {
		return nil, fmt.Errorf("query has dimension %d, index expects %d",
			len(query), idx.Dimension)
	}
	if topK <= 0 {
		return nil, nil
	}
	hits := make([]Hit, 0, len(idx.IDs))
	for i, vec := range idx.Vectors {
		if len(labelFilter) > 0 && !hasAnyLabel(idx.Labels[i], labelFilter) {
			continue
		}
		score := float64(vek32.CosineSimilarity(query, vec))
		hits = append(hits, Hit{ID: idx.IDs[i], Score: score})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func hasAnyLabel(labels, filter []string) bool {
	for _, l := range labels {
		for _, f := range filter {
			if l == f {
				return true
			}
		}
	}
	return false
}

// persisted is the gob envelope for Save/Load.
type persisted struct {
	Dimension int
	IDs       []string
	Labels    [][]string
	Vectors   [][]float32
}

// Save writes the index to path.
func (idx *VectorIndex) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer f.Close()
	enc := gob.NewEncoder(f)
	if err := enc.Encode(persisted{
		Dimension: idx.Dimension,
		IDs:       idx.IDs,
		Labels:    idx.Labels,
		Vectors:   idx.Vectors,
	}); err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	return f.Sync()
}

// Load reads an index from path and verifies it against the expected
// embedder dimension. A dimension mismatch means the index was built with
// a different embedder and must be rebuilt.
func Load(path string, expectDimension int) (*VectorIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var p persisted
	if err := gob.NewDecoder(f).Decode(&p); err != nil {
		return nil, &graph.IndexCorruptError{Path: path, Detail: err.Error()}
	}
	if p.Dimension != expectDimension {
		return nil, &graph.IndexCorruptError{
			Path: path,
			Detail: fmt.Sprintf("index dimension %d does not match embedder dimension %d",
				p.Dimension, expectDimension),
		}
	}
	if len(p.IDs) != len(p.Vectors) || len(p.IDs) != len(p.Labels) {
		return nil, &graph.IndexCorruptError{Path: path, Detail: "entry tables have mismatched lengths"}
	}
	for i, vec := range p.Vectors {
		if len(vec) != p.Dimension {
			return nil, &graph.IndexCorruptError{
				Path:   path,
				Detail: fmt.Sprintf("entry %d has dimension %d, expected %d", i, len(vec), p.Dimension),
			}
		}
	}
	return &VectorIndex{
		Dimension: p.Dimension,
		IDs:       p.IDs,
		Labels:    p.Labels,
		Vectors:   p.Vectors,
	}, nil
}
