package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/graphcortex/internal/graph"
	"github.com/ajitpratap0/graphcortex/internal/models"
)

// chainStore builds a -> b -> c -> d plus a diamond s -> x -> t, s -> y -> t.
func chainStore(t *testing.T) graph.Store {
	t.Helper()
	ctx := context.Background()
	s := graph.NewMemStore()
	var entities []models.Entity
	for _, id := range []string{"a", "b", "c", "d", "s", "x", "y", "z", "t"} {
		entities = append(entities, models.Entity{ID: id, Text: id, Labels: []string{"Node"}})
	}
	require.NoError(t, s.MergeEntities(ctx, entities))
	require.NoError(t, s.MergeRelationships(ctx, []models.Relationship{
		{SourceID: "a", TargetID: "b", Type: "NEXT"},
		{SourceID: "b", TargetID: "c", Type: "NEXT"},
		{SourceID: "c", TargetID: "d", Type: "NEXT"},
		{SourceID: "b", TargetID: "a", Type: "BACK"},
		{SourceID: "s", TargetID: "x", Type: "EDGE"},
		{SourceID: "s", TargetID: "y", Type: "EDGE"},
		{SourceID: "x", TargetID: "t", Type: "EDGE"},
		{SourceID: "y", TargetID: "t", Type: "EDGE"},
	}))
	return s
}

func newTraverseEngine(t *testing.T) *Engine {
	t.Helper()
	return NewEngine(chainStore(t), nil, time.Second, 0, testLogger())
}

func TestTraverseRespectsHopBound(t *testing.T) {
	engine := newTraverseEngine(t)

	sg, err := engine.Traverse(context.Background(), "a", 2, graph.DirectionOutgoing, nil)
	require.NoError(t, err)

	var ids []string
	for _, e := range sg.Entities {
		ids = append(ids, e.ID)
	}
	assert.ElementsMatch(t, []string{"a", "b", "c"}, ids, "d is three hops out")
}

func TestTraverseDeduplicatesCycles(t *testing.T) {
	engine := newTraverseEngine(t)

	// a -> b -> a re-reaches a via the BACK edge.
	sg, err := engine.Traverse(context.Background(), "a", 4, graph.DirectionBoth, nil)
	require.NoError(t, err)

	seen := make(map[string]int)
	for _, e := range sg.Entities {
		seen[e.ID]++
	}
	for id, n := range seen {
		assert.Equal(t, 1, n, "entity %s appears once", id)
	}
	relSeen := make(map[models.RelationshipKey]int)
	for _, r := range sg.Relationships {
		relSeen[r.Key()]++
	}
	for key, n := range relSeen {
		assert.Equal(t, 1, n, "relationship %v appears once", key)
	}
}

func TestTraverseFiltersRelationshipTypes(t *testing.T) {
	engine := newTraverseEngine(t)

	sg, err := engine.Traverse(context.Background(), "a", 3,
		graph.DirectionOutgoing, []string{"NEXT"})
	require.NoError(t, err)
	for _, r := range sg.Relationships {
		assert.Equal(t, "NEXT", r.Type)
	}
}

func TestTraverseUnknownStartFails(t *testing.T) {
	engine := newTraverseEngine(t)
	_, err := engine.Traverse(context.Background(), "ghost", 2, graph.DirectionBoth, nil)
	var notFound *graph.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestShortestPathsFindsAllShortest(t *testing.T) {
	engine := newTraverseEngine(t)

	paths, err := engine.ShortestPaths(context.Background(), "s", "t", 5)
	require.NoError(t, err)
	require.Len(t, paths, 2, "both branches of the diamond are shortest")
	for _, p := range paths {
		assert.Equal(t, 2, p.Length())
		assert.Equal(t, "s", p.EntityIDs[0])
		assert.Equal(t, "t", p.EntityIDs[len(p.EntityIDs)-1])
	}
	assert.Equal(t, []string{"s", "x", "t"}, paths[0].EntityIDs)
	assert.Equal(t, []string{"s", "y", "t"}, paths[1].EntityIDs)
}

func TestShortestPathsBeyondBoundIsEmpty(t *testing.T) {
	engine := newTraverseEngine(t)

	paths, err := engine.ShortestPaths(context.Background(), "a", "d", 2)
	require.NoError(t, err, "no path within the bound is not an error")
	assert.Empty(t, paths)
}

func TestShortestPathsDisconnectedIsEmpty(t *testing.T) {
	engine := newTraverseEngine(t)

	paths, err := engine.ShortestPaths(context.Background(), "a", "z", 10)
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestShortestPathsSameNode(t *testing.T) {
	engine := newTraverseEngine(t)

	paths, err := engine.ShortestPaths(context.Background(), "a", "a", 3)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, 0, paths[0].Length())
}

func TestExtractSubgraphInducesEdges(t *testing.T) {
	engine := newTraverseEngine(t)

	sg, err := engine.ExtractSubgraph(context.Background(), []string{"a", "b", "ghost"}, 0)
	require.NoError(t, err, "unknown ids are ignored")
	require.Len(t, sg.Entities, 2)
	require.Len(t, sg.Relationships, 2, "both a->b and b->a are induced")
	for _, r := range sg.Relationships {
		assert.Contains(t, []string{"a", "b"}, r.SourceID)
		assert.Contains(t, []string{"a", "b"}, r.TargetID)
	}
}

func TestExtractSubgraphExpandsToDepth(t *testing.T) {
	engine := newTraverseEngine(t)

	sg, err := engine.ExtractSubgraph(context.Background(), []string{"a"}, 2)
	require.NoError(t, err)

	var ids []string
	for _, e := range sg.Entities {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids, "d is three hops out")
	require.Len(t, sg.Relationships, 3, "a->b, b->a, and b->c are all induced")
	for _, r := range sg.Relationships {
		assert.Contains(t, []string{"a", "b", "c"}, r.SourceID)
		assert.Contains(t, []string{"a", "b", "c"}, r.TargetID)
	}
}

func TestExtractSubgraphExpandsFromAllSeeds(t *testing.T) {
	engine := newTraverseEngine(t)

	sg, err := engine.ExtractSubgraph(context.Background(), []string{"c", "s"}, 1)
	require.NoError(t, err)

	var ids []string
	for _, e := range sg.Entities {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"b", "c", "d", "s", "x", "y"}, ids,
		"one hop out from both seeds, t stays two hops from s")
}
