package builder

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/graphcortex/internal/graph"
	"github.com/ajitpratap0/graphcortex/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func entity(id, text string) models.Entity {
	return models.Entity{ID: id, Text: text, Labels: []string{"Person"}}
}

func TestAddEntitiesDedupesLastWins(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemStore()
	b := New(store, 100, testLogger())

	result := b.AddEntities(ctx, []models.Entity{
		entity("alice", "first version"),
		entity("bob", "bob"),
		entity("alice", "second version"),
	})
	require.False(t, result.Failed())
	assert.Equal(t, 2, result.SuccessCount)

	got, err := store.GetEntity(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "second version", got.Text)
}

func TestAddEntitiesFailedBatchDoesNotBlockLaterBatches(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemStore()
	b := New(store, 2, testLogger())

	bad := entity("bad", "bad")
	bad.Properties = models.Properties{"nested": map[string]any{"no": true}}

	result := b.AddEntities(ctx, []models.Entity{
		entity("a", "a"),
		bad,
		entity("c", "c"),
		entity("d", "d"),
	})

	assert.Equal(t, 2, result.SuccessCount, "second batch still commits")
	require.Len(t, result.FailedBatches, 1)
	assert.Equal(t, 0, result.FailedBatches[0].Start)
	assert.Equal(t, 2, result.FailedBatches[0].End)
	assert.Contains(t, result.FailedBatches[0].Reason, "nested")

	// The failing batch is all-or-nothing: its good entity did not land.
	_, err := store.GetEntity(ctx, "a")
	var notFound *graph.NotFoundError
	assert.ErrorAs(t, err, &notFound)
	_, err = store.GetEntity(ctx, "c")
	assert.NoError(t, err)
}

func TestAddEntitiesStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := graph.NewMemStore()
	b := New(store, 1, testLogger())

	result := b.AddEntities(ctx, []models.Entity{entity("a", "a")})
	assert.ErrorIs(t, result.Err, context.Canceled)
	assert.Equal(t, 0, result.SuccessCount)
}

func TestAddSubgraphResolvesInternalReferences(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemStore()
	b := New(store, 100, testLogger())

	entityResult, relResult := b.AddSubgraph(ctx, models.Subgraph{
		Entities: []models.Entity{
			entity("alice", "Alice"),
			{ID: "acme", Text: "Acme Corp", Labels: []string{"Organization"}},
		},
		Relationships: []models.Relationship{
			{SourceID: "alice", TargetID: "acme", Type: "WORKS_AT"},
		},
	})
	require.False(t, entityResult.Failed())
	require.False(t, relResult.Failed())

	stats, err := b.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.NodeCount)
	assert.Equal(t, int64(1), stats.RelationshipCount)
}

func TestDestructiveOperationsRequireConfirmation(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemStore()
	b := New(store, 100, testLogger())
	b.AddEntities(ctx, []models.Entity{entity("alice", "Alice")})

	err := b.Clear(ctx, false)
	assert.ErrorIs(t, err, ErrConfirmRequired)
	_, err = b.RemoveByLabel(ctx, "Person", false)
	assert.ErrorIs(t, err, ErrConfirmRequired)

	// Nothing was deleted.
	stats, err := b.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.NodeCount)

	require.NoError(t, b.Clear(ctx, true))
	stats, err = b.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.NodeCount)
}

func TestIngestThenQueryEndToEnd(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemStore()
	b := New(store, 100, testLogger())

	entityResult, relResult := b.AddSubgraph(ctx, models.Subgraph{
		Entities: []models.Entity{
			entity("alice", "Alice"),
			entity("bob", "Bob"),
			{ID: "acme", Text: "Acme Corp", Labels: []string{"Organization"}},
		},
		Relationships: []models.Relationship{
			{SourceID: "alice", TargetID: "acme", Type: "WORKS_AT"},
			{SourceID: "alice", TargetID: "bob", Type: "KNOWS"},
		},
	})
	require.False(t, entityResult.Failed())
	require.False(t, relResult.Failed())

	records, err := store.Run(ctx,
		"MATCH (a:Person)-[r:WORKS_AT]->(b:Organization) RETURN a.id AS who, b.id AS org", nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "alice", records[0].Values["who"])
	assert.Equal(t, "acme", records[0].Values["org"])
}
