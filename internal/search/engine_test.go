package search

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/graphcortex/internal/graph"
	"github.com/ajitpratap0/graphcortex/internal/index"
	"github.com/ajitpratap0/graphcortex/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// charEmbedder maps text onto a 4-dim vector of rune sums, so identical
// texts embed identically and similar texts land close.
type charEmbedder struct {
	mu sync.Mutex
}

func (e *charEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	vec := make([]float32, 4)
	for i, r := range text {
		vec[i%4] += float32(r)
	}
	return vec, nil
}

func (e *charEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (e *charEmbedder) Dimension() int { return 4 }

func buildFixture(t *testing.T) (*Engine, *index.Service, graph.Store) {
	t.Helper()
	ctx := context.Background()
	store := graph.NewMemStore()
	require.NoError(t, store.MergeEntities(ctx, []models.Entity{
		{ID: "go", Text: "golang programming language", Labels: []string{"Language"}},
		{ID: "py", Text: "python programming language", Labels: []string{"Language"}},
		{ID: "acme", Text: "acme corporation headquarters", Labels: []string{"Organization"}},
	}))
	require.NoError(t, store.MergeRelationships(ctx, []models.Relationship{
		{SourceID: "acme", TargetID: "go", Type: "USES"},
	}))

	vectors := index.NewService(store, &charEmbedder{}, 2, testLogger())
	keyword, err := NewKeywordIndex()
	require.NoError(t, err)
	t.Cleanup(func() { keyword.Close() })

	entities, err := store.Entities(ctx, "")
	require.NoError(t, err)
	require.NoError(t, keyword.IndexEntities(entities))

	engine := NewEngine(store, vectors, keyword, DefaultOptions(), testLogger())
	return engine, vectors, store
}

func TestVectorSearchWithoutIndexFails(t *testing.T) {
	engine, _, _ := buildFixture(t)
	_, err := engine.Vector(context.Background(), "programming", 5, nil)
	assert.ErrorIs(t, err, graph.ErrIndexNotBuilt)
}

func TestKeywordSearchWorksWithoutVectorIndex(t *testing.T) {
	engine, _, _ := buildFixture(t)
	hits, err := engine.Keyword(context.Background(), "programming", 5, nil)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	ids := []string{hits[0].Entity.ID, hits[1].Entity.ID}
	assert.ElementsMatch(t, []string{"go", "py"}, ids)
}

func TestKeywordSearchLabelFilter(t *testing.T) {
	engine, _, _ := buildFixture(t)
	hits, err := engine.Keyword(context.Background(), "acme", 5, []string{"Organization"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "acme", hits[0].Entity.ID)
}

func TestHybridSearchFusesBothRetrievers(t *testing.T) {
	ctx := context.Background()
	engine, vectors, _ := buildFixture(t)
	_, err := vectors.Build(ctx, false, "")
	require.NoError(t, err)

	hits, err := engine.Hybrid(ctx, "golang programming language", 3, nil)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "go", hits[0].Entity.ID, "exact text match ranks first")

	for _, h := range hits {
		assert.GreaterOrEqual(t, h.VectorScore, 0.0)
		assert.LessOrEqual(t, h.VectorScore, 1.0)
		assert.GreaterOrEqual(t, h.KeywordScore, 0.0)
		assert.LessOrEqual(t, h.KeywordScore, 1.0)
	}
}

func TestHybridSearchIsDeterministic(t *testing.T) {
	ctx := context.Background()
	engine, vectors, _ := buildFixture(t)
	_, err := vectors.Build(ctx, false, "")
	require.NoError(t, err)

	first, err := engine.Hybrid(ctx, "programming language", 3, nil)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := engine.Hybrid(ctx, "programming language", 3, nil)
		require.NoError(t, err)
		require.Len(t, again, len(first))
		for j := range first {
			assert.Equal(t, first[j].Entity.ID, again[j].Entity.ID)
			assert.InDelta(t, first[j].Score, again[j].Score, 1e-12)
		}
	}
}

func TestHybridSkipsEntitiesDeletedAfterIndexing(t *testing.T) {
	ctx := context.Background()
	engine, vectors, store := buildFixture(t)
	_, err := vectors.Build(ctx, false, "")
	require.NoError(t, err)

	require.NoError(t, store.DeleteEntity(ctx, "py"))

	hits, err := engine.Hybrid(ctx, "python programming language", 5, nil)
	require.NoError(t, err)
	for _, h := range hits {
		assert.NotEqual(t, "py", h.Entity.ID)
	}
}

func TestWithContextAttachesNeighborhood(t *testing.T) {
	ctx := context.Background()
	engine, vectors, _ := buildFixture(t)
	_, err := vectors.Build(ctx, false, "")
	require.NoError(t, err)

	results, err := engine.WithContext(ctx, "acme corporation headquarters", 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "acme", results[0].Hit.Entity.ID)
	require.Len(t, results[0].Context.Relationships, 1)
	assert.Equal(t, "USES", results[0].Context.Relationships[0].Type)

	var contextIDs []string
	for _, e := range results[0].Context.Entities {
		contextIDs = append(contextIDs, e.ID)
	}
	assert.ElementsMatch(t, []string{"acme", "go"}, contextIDs)
}

func TestNormalizeMinMax(t *testing.T) {
	scores := normalize([]scorePair{
		{id: "a", score: 10},
		{id: "b", score: 5},
		{id: "c", score: 0},
	})
	assert.Equal(t, 1.0, scores["a"])
	assert.Equal(t, 0.5, scores["b"])
	assert.Equal(t, 0.0, scores["c"])

	uniform := normalize([]scorePair{{id: "a", score: 3}, {id: "b", score: 3}})
	assert.Equal(t, 1.0, uniform["a"])
	assert.Equal(t, 1.0, uniform["b"])

	assert.Empty(t, normalize(nil))
}
