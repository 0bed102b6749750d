package query

import (
	"context"
	"fmt"
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

func seedStore(t *testing.T) graph.Store {
	t.Helper()
	ctx := context.Background()
	s := graph.NewMemStore()
	require.NoError(t, s.MergeEntities(ctx, []models.Entity{
		{ID: "alice", Text: "Alice", Labels: []string{"Person"}},
		{ID: "bob", Text: "Bob", Labels: []string{"Person"}},
		{ID: "acme", Text: "Acme Corp", Labels: []string{"Organization"}},
	}))
	require.NoError(t, s.MergeRelationships(ctx, []models.Relationship{
		{SourceID: "alice", TargetID: "acme", Type: "WORKS_AT"},
		{SourceID: "alice", TargetID: "bob", Type: "KNOWS"},
	}))
	return s
}

// scriptedTranslator returns queued responses in order; an empty string
// queues a failure.
type scriptedTranslator struct {
	responses []string
	cached    bool
	calls     int
}

func (s *scriptedTranslator) Translate(_ context.Context, question string, _ *models.SchemaInfo) (string, bool, error) {
	if s.calls >= len(s.responses) {
		return "", false, fmt.Errorf("no scripted response for call %d", s.calls)
	}
	resp := s.responses[s.calls]
	s.calls++
	if resp == "" {
		return "", false, fmt.Errorf("scripted translation failure")
	}
	return resp, s.cached, nil
}

func TestExecuteStructuredReturnsRecords(t *testing.T) {
	engine := NewEngine(seedStore(t), nil, time.Second, 0, testLogger())

	result, err := engine.ExecuteStructured(context.Background(),
		"MATCH (p:Person) WHERE p.id = $id RETURN p.text AS text",
		map[string]any{"id": "alice"})
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, "Alice", result.Records[0].Values["text"])
	assert.GreaterOrEqual(t, result.ExecutionTime, time.Duration(0))
}

func TestExecuteStructuredCountsGraphValues(t *testing.T) {
	engine := NewEngine(seedStore(t), nil, time.Second, 0, testLogger())

	result, err := engine.ExecuteStructured(context.Background(),
		"MATCH (p:Person) RETURN p", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.NodeCount)
	assert.Equal(t, 0, result.RelationshipCount)
}

func TestExecuteStructuredMapsSyntaxErrors(t *testing.T) {
	engine := NewEngine(seedStore(t), nil, time.Second, 0, testLogger())

	_, err := engine.ExecuteStructured(context.Background(), "TOTALLY NOT CYPHER", nil)
	var syntaxErr *graph.QuerySyntaxError
	require.ErrorAs(t, err, &syntaxErr)
}

// hangingStore blocks Run until the context deadline fires.
type hangingStore struct {
	graph.Store
}

func (h *hangingStore) Run(ctx context.Context, query string, params map[string]any) ([]models.Record, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestExecuteStructuredEnforcesTimeout(t *testing.T) {
	engine := NewEngine(&hangingStore{Store: seedStore(t)}, nil,
		20*time.Millisecond, 0, testLogger())

	_, err := engine.ExecuteStructured(context.Background(), "MATCH (n) RETURN count(n)", nil)
	var timeoutErr *graph.QueryTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNaturalLanguageHappyPath(t *testing.T) {
	translator := &scriptedTranslator{responses: []string{
		"MATCH (n) RETURN count(n) AS total",
	}}
	engine := NewEngine(seedStore(t), translator, time.Second, 2, testLogger())

	result, err := engine.NaturalLanguage(context.Background(), "how many entities are there?")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, "MATCH (n) RETURN count(n) AS total", result.GeneratedQuery)
	assert.False(t, result.FromCache)
	require.NotNil(t, result.Result)
	require.Len(t, result.Result.Records, 1)
	assert.Equal(t, int64(3), result.Result.Records[0].Values["total"])
}

func TestNaturalLanguageReportsCacheHit(t *testing.T) {
	translator := &scriptedTranslator{
		responses: []string{"MATCH (n) RETURN count(n) AS total"},
		cached:    true,
	}
	engine := NewEngine(seedStore(t), translator, time.Second, 0, testLogger())

	result, err := engine.NaturalLanguage(context.Background(), "how many entities are there?")
	require.NoError(t, err)
	assert.True(t, result.FromCache)
}

func TestNaturalLanguageRetriesAfterBadQuery(t *testing.T) {
	translator := &scriptedTranslator{responses: []string{
		"THIS IS NOT A QUERY",
		"MATCH (n) RETURN count(n) AS total",
	}}
	engine := NewEngine(seedStore(t), translator, time.Second, 2, testLogger())

	result, err := engine.NaturalLanguage(context.Background(), "count everything")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Attempts)
	require.NotNil(t, result.Result)
}

func TestNaturalLanguageFailsAfterRetriesExhausted(t *testing.T) {
	translator := &scriptedTranslator{responses: []string{"", "", ""}}
	engine := NewEngine(seedStore(t), translator, time.Second, 2, testLogger())

	_, err := engine.NaturalLanguage(context.Background(), "anything")
	var transErr *graph.TranslationError
	require.ErrorAs(t, err, &transErr)
	assert.Equal(t, 3, transErr.Attempts)
	assert.Equal(t, 3, translator.calls)
}

func TestNaturalLanguageSurfacesQueryOnFailure(t *testing.T) {
	translator := &scriptedTranslator{responses: []string{
		"BROKEN QUERY ONE",
		"BROKEN QUERY TWO",
	}}
	engine := NewEngine(seedStore(t), translator, time.Second, 1, testLogger())

	result, err := engine.NaturalLanguage(context.Background(), "anything")
	var transErr *graph.TranslationError
	require.ErrorAs(t, err, &transErr)
	assert.Equal(t, "BROKEN QUERY TWO", result.GeneratedQuery,
		"the last generated query is surfaced even on failure")
}

func TestCleanGeneratedQueryStripsFences(t *testing.T) {
	assert.Equal(t, "MATCH (n) RETURN n",
		cleanGeneratedQuery("```cypher\nMATCH (n) RETURN n\n```"))
	assert.Equal(t, "MATCH (n) RETURN n",
		cleanGeneratedQuery("```\nMATCH (n) RETURN n\n```"))
	assert.Equal(t, "MATCH (n) RETURN n",
		cleanGeneratedQuery("  MATCH (n) RETURN n  "))
}

func TestRejectWritesBlocksMutations(t *testing.T) {
	assert.NoError(t, rejectWrites("MATCH (n) RETURN n"))
	assert.Error(t, rejectWrites("CREATE (n:Person {id: 'x'}) RETURN n"))
	assert.Error(t, rejectWrites("MATCH (n) DETACH DELETE n"))
	assert.Error(t, rejectWrites("MATCH (n) SET n.x = 1 RETURN n"))
}
