package search

import (
	"context"
	"log/slog"
	"sort"

	"github.com/ajitpratap0/graphcortex/internal/graph"
	"github.com/ajitpratap0/graphcortex/internal/index"
	"github.com/ajitpratap0/graphcortex/internal/metrics"
	"github.com/ajitpratap0/graphcortex/internal/models"
)

// Options tunes hybrid fusion and context expansion.
type Options struct {
	VectorWeight  float64
	KeywordWeight float64
	Overfetch     int
	ContextHops   int
	ContextLimit  int
}

// DefaultOptions is the baseline tuning: similarity-dominant fusion with a
// threefold overfetch.
func DefaultOptions() Options {
	return Options{
		VectorWeight:  0.7,
		KeywordWeight: 0.3,
		Overfetch:     3,
		ContextHops:   1,
		ContextLimit:  25,
	}
}

// Engine answers vector, keyword, and hybrid searches over the graph.
type Engine struct {
	store   graph.Store
	vectors *index.Service
	keyword *KeywordIndex
	opts    Options
	logger  *slog.Logger
}

func NewEngine(store graph.Store, vectors *index.Service, keyword *KeywordIndex, opts Options, logger *slog.Logger) *Engine {
	if opts.Overfetch < 1 {
		opts.Overfetch = 1
	}
	return &Engine{
		store:   store,
		vectors: vectors,
		keyword: keyword,
		opts:    opts,
		logger:  logger,
	}
}

// Vector runs pure similarity search. Fails with ErrIndexNotBuilt when no
// vector index is available.
func (e *Engine) Vector(ctx context.Context, query string, topK int, labelFilter []string) ([]models.ScoredEntity, error) {
	metrics.Inc(metrics.VectorSearches)
	vec, err := e.vectors.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	hits, err := e.vectors.Search(vec, topK, labelFilter)
	if err != nil {
		return nil, err
	}
	return e.resolve(ctx, hits)
}

// Keyword runs pure full-text search. Works without embeddings.
func (e *Engine) Keyword(ctx context.Context, query string, topK int, labelFilter []string) ([]models.ScoredEntity, error) {
	metrics.Inc(metrics.KeywordSearches)
	hits, err := e.keyword.Search(ctx, query, topK, labelFilter)
	if err != nil {
		return nil, err
	}
	scored := make([]index.Hit, len(hits))
	for i, h := range hits {
		scored[i] = index.Hit{ID: h.ID, Score: h.Score}
	}
	return e.resolve(ctx, scored)
}

// Hybrid overfetches both retrievers, normalizes each score list to [0,1]
// with min-max scaling, and fuses with the configured weights. An entity
// missing from one list contributes zero for that component. Ties break by
// entity ID so ranking is deterministic.
func (e *Engine) Hybrid(ctx context.Context, query string, topK int, labelFilter []string) ([]models.ScoredEntity, error) {
	metrics.Inc(metrics.HybridSearches)
	fetch := topK * e.opts.Overfetch

	vec, err := e.vectors.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	vectorHits, err := e.vectors.Search(vec, fetch, labelFilter)
	if err != nil {
		return nil, err
	}
	keywordHits, err := e.keyword.Search(ctx, query, fetch, labelFilter)
	if err != nil {
		return nil, err
	}

	vectorNorm := normalize(vectorHitsToPairs(vectorHits))
	keywordNorm := normalize(keywordHitsToPairs(keywordHits))

	type fused struct {
		id     string
		score  float64
		vscore float64
		kscore float64
	}
	byID := make(map[string]*fused)
	for id, s := range vectorNorm {
		byID[id] = &fused{id: id, vscore: s}
	}
	for id, s := range keywordNorm {
		f, ok := byID[id]
		if !ok {
			f = &fused{id: id}
			byID[id] = f
		}
		f.kscore = s
	}
	ranked := make([]*fused, 0, len(byID))
	for _, f := range byID {
		f.score = e.opts.VectorWeight*f.vscore + e.opts.KeywordWeight*f.kscore
		ranked = append(ranked, f)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].id < ranked[j].id
	})
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}

	out := make([]models.ScoredEntity, 0, len(ranked))
	for _, f := range ranked {
		entity, err := e.store.GetEntity(ctx, f.id)
		if err != nil {
			// Indexed but since deleted from the store; skip.
			e.logger.Debug("search hit missing from store", "id", f.id)
			continue
		}
		out = append(out, models.ScoredEntity{
			Entity:       *entity,
			Score:        f.score,
			VectorScore:  f.vscore,
			KeywordScore: f.kscore,
		})
	}
	return out, nil
}

// WithContext runs a hybrid search and attaches each hit's neighborhood,
// expanded breadth-first up to the configured hop count with a per-hop
// relationship cap.
func (e *Engine) WithContext(ctx context.Context, query string, topK int, labelFilter []string) ([]models.ContextResult, error) {
	hits, err := e.Hybrid(ctx, query, topK, labelFilter)
	if err != nil {
		return nil, err
	}
	out := make([]models.ContextResult, 0, len(hits))
	for _, hit := range hits {
		sg, err := e.neighborhood(ctx, hit.Entity.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, models.ContextResult{Hit: hit, Context: *sg})
	}
	return out, nil
}

func (e *Engine) neighborhood(ctx context.Context, seed string) (*models.Subgraph, error) {
	frontier := []string{seed}
	seenEntities := map[string]struct{}{seed: {}}
	seenRels := map[models.RelationshipKey]struct{}{}
	sg := &models.Subgraph{}

	for hop := 0; hop < e.opts.ContextHops && len(frontier) > 0; hop++ {
		rels, err := e.store.Neighbors(ctx, frontier, graph.DirectionBoth, e.opts.ContextLimit)
		if err != nil {
			return nil, err
		}
		var next []string
		for _, r := range rels {
			if _, ok := seenRels[r.Key()]; ok {
				continue
			}
			seenRels[r.Key()] = struct{}{}
			sg.Relationships = append(sg.Relationships, r)
			for _, id := range []string{r.SourceID, r.TargetID} {
				if _, ok := seenEntities[id]; ok {
					continue
				}
				seenEntities[id] = struct{}{}
				next = append(next, id)
			}
		}
		frontier = next
	}

	ids := make([]string, 0, len(seenEntities))
	for id := range seenEntities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		entity, err := e.store.GetEntity(ctx, id)
		if err != nil {
			continue
		}
		sg.Entities = append(sg.Entities, *entity)
	}
	return sg, nil
}

func (e *Engine) resolve(ctx context.Context, hits []index.Hit) ([]models.ScoredEntity, error) {
	out := make([]models.ScoredEntity, 0, len(hits))
	for _, h := range hits {
		entity, err := e.store.GetEntity(ctx, h.ID)
		if err != nil {
			e.logger.Debug("search hit missing from store", "id", h.ID)
			continue
		}
		out = append(out, models.ScoredEntity{Entity: *entity, Score: h.Score})
	}
	return out, nil
}

func vectorHitsToPairs(hits []index.Hit) []scorePair {
	out := make([]scorePair, len(hits))
	for i, h := range hits {
		out[i] = scorePair{id: h.ID, score: h.Score}
	}
	return out
}

func keywordHitsToPairs(hits []Hit) []scorePair {
	out := make([]scorePair, len(hits))
	for i, h := range hits {
		out[i] = scorePair{id: h.ID, score: h.Score}
	}
	return out
}

type scorePair struct {
	id    string
	score float64
}

// normalize min-max scales scores to [0,1]. When every score is equal the
// whole list maps to 1.0 so a uniform retriever still contributes.
func normalize(pairs []scorePair) map[string]float64 {
	out := make(map[string]float64, len(pairs))
	if len(pairs) == 0 {
		return out
	}
	minS, maxS := pairs[0].score, pairs[0].score
	for _, p := range pairs[1:] {
		if p.score < minS {
			minS = p.score
		}
		if p.score > maxS {
			maxS = p.score
		}
	}
	for _, p := range pairs {
		if maxS == minS {
			out[p.id] = 1.0
			continue
		}
		out[p.id] = (p.score - minS) / (maxS - minS)
	}
	return out
}
