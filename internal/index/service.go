package index

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/graphcortex/internal/embedder"
	"github.com/ajitpratap0/graphcortex/internal/graph"
	"github.com/ajitpratap0/graphcortex/internal/metrics"
)

// BuildStats summarizes one index build.
type BuildStats struct {
	Indexed  int `json:"indexed"`
	Embedded int `json:"embedded"`
	Skipped  int `json:"skipped"`
}

// Service builds and publishes the vector index. Builds embed missing
// vectors through the embedder with bounded parallelism; entities whose
// embedding fails are logged and skipped, never fatal. The published index
// is swapped atomically so searches always see a complete one.
type Service struct {
	store       graph.Store
	embedder    embedder.Embedder
	parallelism int
	logger      *slog.Logger

	current atomic.Pointer[VectorIndex]
	buildMu sync.Mutex
}

func NewService(store graph.Store, emb embedder.Embedder, parallelism int, logger *slog.Logger) *Service {
	if parallelism <= 0 {
		parallelism = 4
	}
	return &Service{
		store:       store,
		embedder:    emb,
		parallelism: parallelism,
		logger:      logger,
	}
}

// Current returns the published index, or nil if none has been built or
// loaded yet.
func (s *Service) Current() *VectorIndex {
	return s.current.Load()
}

// Search runs a nearest-neighbor query against the published index.
// Returns ErrIndexNotBuilt when no index is available.
func (s *Service) Search(query []float32, topK int, labelFilter []string) ([]Hit, error) {
	idx := s.current.Load()
	if idx == nil {
		return nil, graph.ErrIndexNotBuilt
	}
	return idx.Search(query, topK, labelFilter)
}

// Build constructs the index from store contents and publishes it. With
// full=false, entities that already carry a stored embedding reuse it and
// only missing vectors are embedded; full=true re-embeds everything. A
// non-empty label restricts the index to entities carrying that label.
func (s *Service) Build(ctx context.Context, full bool, label string) (*BuildStats, error) {
	// One build at a time; concurrent callers queue, searches keep
	// hitting the previous index meanwhile.
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	entities, err := s.store.Entities(ctx, label)
	if err != nil {
		return nil, err
	}

	stats := &BuildStats{}
	var mu sync.Mutex
	vectors := make([][]float32, len(entities))
	embedded := make([]bool, len(entities))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for i := range entities {
		e := &entities[i]
		if !full && len(e.Embedding) == s.embedder.Dimension() {
			vectors[i] = e.Embedding
			continue
		}
		if e.Text == "" {
			mu.Lock()
			stats.Skipped++
			mu.Unlock()
			continue
		}
		g.Go(func() error {
			vec, err := s.embedder.Embed(gctx, e.Text)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.logger.Warn("embedding failed, entity skipped",
					"id", e.ID, "error", err)
				metrics.Inc(metrics.EmbeddingFailures)
				mu.Lock()
				stats.Skipped++
				mu.Unlock()
				return nil
			}
			vectors[i] = vec
			embedded[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	idx := NewVectorIndex(s.embedder.Dimension())
	for i := range entities {
		if vectors[i] == nil {
			continue
		}
		if err := idx.Add(entities[i].ID, entities[i].Labels, vectors[i]); err != nil {
			s.logger.Warn("entity excluded from index", "id", entities[i].ID, "error", err)
			stats.Skipped++
			continue
		}
		stats.Indexed++
		if embedded[i] {
			stats.Embedded++
			if err := s.store.SetEntityEmbedding(ctx, entities[i].ID, vectors[i]); err != nil {
				s.logger.Warn("could not persist embedding", "id", entities[i].ID, "error", err)
			}
		}
	}

	s.current.Store(idx)
	metrics.Inc(metrics.IndexBuilds)
	s.logger.Info("vector index built",
		"indexed", stats.Indexed, "embedded", stats.Embedded,
		"skipped", stats.Skipped, "full", full, "label", label)
	return stats, nil
}

// EmbedQuery embeds a search query through the same embedder the index was
// built with.
func (s *Service) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return s.embedder.Embed(ctx, text)
}

// Save persists the published index to path.
func (s *Service) Save(path string) error {
	idx := s.current.Load()
	if idx == nil {
		return graph.ErrIndexNotBuilt
	}
	return idx.Save(path)
}

// LoadFrom reads a persisted index from path and publishes it, rejecting
// one whose dimension does not match the configured embedder.
func (s *Service) LoadFrom(path string) error {
	idx, err := Load(path, s.embedder.Dimension())
	if err != nil {
		return err
	}
	s.current.Store(idx)
	s.logger.Info("vector index loaded", "path", path, "entries", idx.Len())
	return nil
}
