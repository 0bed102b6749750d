package schema

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/graphcortex/internal/graph"
)

func TestApplyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m := NewManager(graph.NewMemStore(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	constraints, indexes := Defaults()
	constraints = append(constraints, Constraint{Label: "Person", Property: "id"})
	indexes = append(indexes, Index{Label: "Person", Property: "text"})

	require.NoError(t, m.Apply(ctx, constraints, indexes))
	require.NoError(t, m.Apply(ctx, constraints, indexes), "re-applying the schema is a no-op")
}

func TestDefaultsCoverTheGenericLabel(t *testing.T) {
	constraints, indexes := Defaults()
	require.Len(t, constraints, 1)
	assert.Equal(t, "Entity", constraints[0].Label)
	assert.Equal(t, "id", constraints[0].Property)
	require.Len(t, indexes, 1)
	assert.Equal(t, "text", indexes[0].Property)
}
