package query

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ajitpratap0/graphcortex/internal/graph"
	"github.com/ajitpratap0/graphcortex/internal/metrics"
	"github.com/ajitpratap0/graphcortex/internal/models"
)

// Engine executes structured queries with a hard deadline and answers
// natural-language questions by translating them first.
type Engine struct {
	store      graph.Store
	translator Translator
	timeout    time.Duration
	maxRetries int
	logger     *slog.Logger
}

func NewEngine(store graph.Store, translator Translator, timeout time.Duration, maxRetries int, logger *slog.Logger) *Engine {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Engine{
		store:      store,
		translator: translator,
		timeout:    timeout,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// ExecuteStructured runs a parameterized read query under the engine's
// timeout. Values always travel as parameters; the engine never
// interpolates them into query text.
func (e *Engine) ExecuteStructured(ctx context.Context, query string, params map[string]any) (*models.QueryResult, error) {
	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	records, err := e.store.Run(runCtx, query, params)
	elapsed := time.Since(start)
	if err != nil {
		metrics.Inc(metrics.QueriesFailed)
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, &graph.QueryTimeoutError{Query: query, Err: err}
		}
		return nil, err
	}
	metrics.Inc(metrics.QueriesExecuted)

	result := &models.QueryResult{
		Records:       records,
		ExecutionTime: elapsed,
	}
	for _, rec := range records {
		for _, v := range rec.Values {
			countGraphValues(v, result)
		}
	}
	e.logger.Debug("query executed",
		"records", len(records), "elapsed", elapsed)
	return result, nil
}

func countGraphValues(v any, result *models.QueryResult) {
	switch x := v.(type) {
	case models.Entity:
		result.NodeCount++
	case models.Relationship:
		result.RelationshipCount++
	case []any:
		for _, item := range x {
			countGraphValues(item, result)
		}
	case map[string]any:
		for _, item := range x {
			countGraphValues(item, result)
		}
	}
}

// NaturalLanguage answers a question by translating it into a structured
// query and executing it. Translation or execution failures retry with
// fresh translations up to the configured limit. The generated query is
// always returned, on success and on failure, so callers can audit what
// ran.
func (e *Engine) NaturalLanguage(ctx context.Context, question string) (*models.NLQueryResult, error) {
	schema, err := e.store.Schema(ctx)
	if err != nil {
		return nil, err
	}

	out := &models.NLQueryResult{}
	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			break
		}
		out.Attempts = attempt + 1
		if attempt > 0 {
			metrics.Inc(metrics.TranslationRetries)
		}

		cypher, cached, err := e.translator.Translate(ctx, question, schema)
		if err != nil {
			lastErr = err
			e.logger.Warn("translation attempt failed",
				"attempt", attempt+1, "error", err)
			continue
		}
		out.GeneratedQuery = cypher
		out.FromCache = cached

		result, err := e.ExecuteStructured(ctx, cypher, nil)
		if err != nil {
			lastErr = err
			e.logger.Warn("generated query failed",
				"attempt", attempt+1, "query", cypher, "error", err)
			continue
		}
		out.Result = result
		return out, nil
	}

	if lastErr == nil {
		lastErr = ctx.Err()
	}
	return out, &graph.TranslationError{
		Question: question,
		Attempts: out.Attempts,
		Err:      lastErr,
	}
}

// Schema reports the store's observed schema.
func (e *Engine) Schema(ctx context.Context) (*models.SchemaInfo, error) {
	return e.store.Schema(ctx)
}
