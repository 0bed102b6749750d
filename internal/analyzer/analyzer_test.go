package analyzer

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/graphcortex/internal/graph"
	"github.com/ajitpratap0/graphcortex/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newAnalyzer(t *testing.T, store graph.Store) *Analyzer {
	t.Helper()
	pm := NewProjectionManager(store, time.Minute, testLogger())
	return New(pm, DefaultOptions(), testLogger())
}

// starStore: hub connected to n spokes.
func starStore(t *testing.T, spokes int) graph.Store {
	t.Helper()
	ctx := context.Background()
	s := graph.NewMemStore()
	entities := []models.Entity{{ID: "hub", Text: "hub", Labels: []string{"Node"}}}
	var rels []models.Relationship
	for i := 0; i < spokes; i++ {
		id := string(rune('a' + i))
		entities = append(entities, models.Entity{ID: id, Text: id, Labels: []string{"Node"}})
		rels = append(rels, models.Relationship{SourceID: "hub", TargetID: id, Type: "LINK"})
	}
	require.NoError(t, s.MergeEntities(ctx, entities))
	require.NoError(t, s.MergeRelationships(ctx, rels))
	return s
}

// twoTriangles: two triangles joined by a single bridge node path.
func twoTriangles(t *testing.T) graph.Store {
	t.Helper()
	ctx := context.Background()
	s := graph.NewMemStore()
	ids := []string{"a1", "a2", "a3", "b1", "b2", "b3"}
	var entities []models.Entity
	for _, id := range ids {
		entities = append(entities, models.Entity{ID: id, Text: id, Labels: []string{"Node"}})
	}
	require.NoError(t, s.MergeEntities(ctx, entities))
	require.NoError(t, s.MergeRelationships(ctx, []models.Relationship{
		{SourceID: "a1", TargetID: "a2", Type: "E"},
		{SourceID: "a2", TargetID: "a3", Type: "E"},
		{SourceID: "a3", TargetID: "a1", Type: "E"},
		{SourceID: "b1", TargetID: "b2", Type: "E"},
		{SourceID: "b2", TargetID: "b3", Type: "E"},
		{SourceID: "b3", TargetID: "b1", Type: "E"},
		{SourceID: "a1", TargetID: "b1", Type: "E"},
	}))
	return s
}

func TestPageRankSumsToOne(t *testing.T) {
	a := newAnalyzer(t, starStore(t, 5))

	scores, err := a.PageRank(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, scores, 6)

	var sum float64
	for _, s := range scores {
		assert.Greater(t, s.Score, 0.0)
		sum += s.Score
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
}

func TestPageRankSpokesOutrankDanglingHub(t *testing.T) {
	// All edges point hub -> spoke, so rank flows to the spokes.
	a := newAnalyzer(t, starStore(t, 4))
	scores, err := a.PageRank(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.NotEqual(t, "hub", scores[0].ID)
}

func TestPageRankEmptyGraph(t *testing.T) {
	a := newAnalyzer(t, graph.NewMemStore())
	scores, err := a.PageRank(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, scores)
}

func TestBetweennessHighlightsBridge(t *testing.T) {
	a := newAnalyzer(t, twoTriangles(t))

	scores, err := a.Betweenness(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.ElementsMatch(t, []string{"a1", "b1"},
		[]string{scores[0].ID, scores[1].ID},
		"the two bridge endpoints carry the paths between triangles")
}

func TestClosenessSafeOnDisconnectedGraph(t *testing.T) {
	ctx := context.Background()
	s := graph.NewMemStore()
	require.NoError(t, s.MergeEntities(ctx, []models.Entity{
		{ID: "a", Text: "a"}, {ID: "b", Text: "b"}, {ID: "lone", Text: "lone"},
	}))
	require.NoError(t, s.MergeRelationships(ctx, []models.Relationship{
		{SourceID: "a", TargetID: "b", Type: "E"},
	}))
	a := newAnalyzer(t, s)

	scores, err := a.Closeness(ctx, 0)
	require.NoError(t, err)
	require.Len(t, scores, 3)
	for _, sc := range scores {
		assert.False(t, sc.Score != sc.Score, "no NaN scores")
	}
}

func TestDegreeCentrality(t *testing.T) {
	a := newAnalyzer(t, starStore(t, 4))
	scores, err := a.Degree(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, "hub", scores[0].ID)
	assert.InDelta(t, 1.0, scores[0].Score, 1e-9, "hub touches every other node")
}

func TestImportanceCombinesComponents(t *testing.T) {
	a := newAnalyzer(t, twoTriangles(t))
	scores, err := a.Importance(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.ElementsMatch(t, []string{"a1", "b1"},
		[]string{scores[0].ID, scores[1].ID})
}

func TestLouvainPartitionsDisjointAndComplete(t *testing.T) {
	a := newAnalyzer(t, twoTriangles(t))

	result, err := a.Louvain(context.Background(), 1.0)
	require.NoError(t, err)
	require.NotEmpty(t, result.Communities)

	seen := make(map[string]int)
	for _, c := range result.Communities {
		for _, m := range c.Members {
			seen[m]++
		}
	}
	assert.Len(t, seen, 6, "every entity is assigned")
	for id, n := range seen {
		assert.Equal(t, 1, n, "entity %s in exactly one community", id)
	}
	assert.Greater(t, result.Modularity, 0.0)
}

func TestLouvainIsDeterministic(t *testing.T) {
	a := newAnalyzer(t, twoTriangles(t))

	first, err := a.Louvain(context.Background(), 1.0)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := a.Louvain(context.Background(), 1.0)
		require.NoError(t, err)
		assert.Equal(t, first.Communities, again.Communities)
	}
}

func TestLabelPropagationFindsTheTriangles(t *testing.T) {
	a := newAnalyzer(t, twoTriangles(t))

	result, err := a.LabelPropagation(context.Background(), 20)
	require.NoError(t, err)

	seen := make(map[string]int)
	for _, c := range result.Communities {
		for _, m := range c.Members {
			seen[m]++
		}
	}
	assert.Len(t, seen, 6)
	for _, n := range seen {
		assert.Equal(t, 1, n)
	}
	require.Len(t, result.Communities, 2)
	assert.Equal(t, []string{"a1", "a2", "a3"}, result.Communities[0].Members)
	assert.Equal(t, []string{"b1", "b2", "b3"}, result.Communities[1].Members)
	assert.Greater(t, result.Modularity, 0.0,
		"separating the triangles beats a random partition")
}

func TestMetricsOnTriangles(t *testing.T) {
	a := newAnalyzer(t, twoTriangles(t))

	m, err := a.Metrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, m.NodeCount)
	assert.Equal(t, 7, m.EdgeCount)
	assert.Equal(t, 1, m.ConnectedComponents)
	assert.Equal(t, 6, m.LargestComponent)
	assert.Greater(t, m.ClusteringCoefficient, 0.0)
	require.NotNil(t, m.Diameter, "small connected graph gets a diameter")
	assert.Equal(t, 3, *m.Diameter)
}

func TestMetricsSkipDiameterWhenDisconnected(t *testing.T) {
	ctx := context.Background()
	s := graph.NewMemStore()
	require.NoError(t, s.MergeEntities(ctx, []models.Entity{
		{ID: "a", Text: "a"}, {ID: "b", Text: "b"},
	}))
	a := newAnalyzer(t, s)

	m, err := a.Metrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, m.ConnectedComponents)
	assert.Nil(t, m.Diameter)
}

func TestMetricsSkipDiameterOverNodeCap(t *testing.T) {
	pm := NewProjectionManager(starStore(t, 5), time.Minute, testLogger())
	opts := DefaultOptions()
	opts.MaxDiameterNodes = 3
	a := New(pm, opts, testLogger())

	m, err := a.Metrics(context.Background())
	require.NoError(t, err)
	assert.Nil(t, m.Diameter)
}

func TestBridgesFindsArticulationPoints(t *testing.T) {
	a := newAnalyzer(t, twoTriangles(t))

	bridges, err := a.Bridges(context.Background())
	require.NoError(t, err)
	require.Len(t, bridges, 2)
	assert.Equal(t, "a1", bridges[0].ID)
	assert.Equal(t, "b1", bridges[1].ID)
	for _, b := range bridges {
		assert.Equal(t, []int{0, 1}, b.Communities,
			"each bridge endpoint touches both triangle communities")
	}
}

func TestNodeImportanceBundlesAllMeasures(t *testing.T) {
	a := newAnalyzer(t, twoTriangles(t))

	profile, err := a.NodeImportance(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, "a1", profile.ID)
	assert.Equal(t, 3, profile.Degree, "a2, a3, and the bridge to b1")
	assert.InDelta(t, 1.0/3.0, profile.Clustering, 1e-9,
		"only a2-a3 of the three neighbor pairs is connected")
	assert.Greater(t, profile.PageRank, 0.0)
	assert.Greater(t, profile.Betweenness, 0.0, "a1 carries the inter-triangle paths")
	assert.Greater(t, profile.Closeness, 0.0)

	interior, err := a.NodeImportance(context.Background(), "a2")
	require.NoError(t, err)
	assert.Equal(t, 2, interior.Degree)
	assert.InDelta(t, 1.0, interior.Clustering, 1e-9, "a2's neighbors are connected")
	assert.Zero(t, interior.Betweenness)
}

func TestNodeImportanceUnknownEntity(t *testing.T) {
	a := newAnalyzer(t, twoTriangles(t))

	_, err := a.NodeImportance(context.Background(), "ghost")
	var notFound *graph.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestProjectionInvalidation(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemStore()
	require.NoError(t, store.MergeEntities(ctx, []models.Entity{{ID: "a", Text: "a"}}))
	pm := NewProjectionManager(store, time.Hour, testLogger())

	p1, err := pm.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, p1.NodeCount())

	// Without invalidation the cached projection is served.
	require.NoError(t, store.MergeEntities(ctx, []models.Entity{{ID: "b", Text: "b"}}))
	p2, err := pm.Get(ctx)
	require.NoError(t, err)
	assert.Same(t, p1, p2)

	pm.Invalidate()
	p3, err := pm.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, p3.NodeCount())
}
