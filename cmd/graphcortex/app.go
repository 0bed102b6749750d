package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ajitpratap0/graphcortex/internal/analyzer"
	"github.com/ajitpratap0/graphcortex/internal/builder"
	"github.com/ajitpratap0/graphcortex/internal/embedder"
	"github.com/ajitpratap0/graphcortex/internal/graph"
	"github.com/ajitpratap0/graphcortex/internal/index"
	"github.com/ajitpratap0/graphcortex/internal/query"
	"github.com/ajitpratap0/graphcortex/internal/schema"
	"github.com/ajitpratap0/graphcortex/internal/search"
)

// app wires the configured backends together for one CLI invocation.
type app struct {
	store    graph.Store
	builder  *builder.Builder
	schema   *schema.Manager
	index    *index.Service
	keyword  *search.KeywordIndex
	search   *search.Engine
	query    *query.Engine
	analyzer *analyzer.Analyzer
}

func newApp(ctx context.Context) (*app, error) {
	var store graph.Store
	switch cfg.Store.Backend {
	case "neo4j":
		s, err := graph.NewNeo4jStore(ctx, graph.Neo4jConfig{
			URI:      cfg.Store.URI,
			Username: cfg.Store.Username,
			Password: cfg.Store.Password,
			Database: cfg.Store.Database,
		}, logger)
		if err != nil {
			return nil, err
		}
		store = s
	default:
		store = graph.NewMemStore()
	}

	emb, err := embedder.New(cfg.Embedder.Provider, cfg.Embedder.BaseURL,
		cfg.Embedder.APIKey, cfg.Embedder.Model, cfg.Embedder.Dimension)
	if err != nil {
		return nil, err
	}

	keyword, err := search.NewKeywordIndex()
	if err != nil {
		return nil, err
	}

	indexSvc := index.NewService(store, emb, cfg.Index.Parallelism, logger)
	searchEngine := search.NewEngine(store, indexSvc, keyword, search.Options{
		VectorWeight:  cfg.Search.VectorWeight,
		KeywordWeight: cfg.Search.KeywordWeight,
		Overfetch:     cfg.Search.Overfetch,
		ContextHops:   cfg.Search.ContextHops,
		ContextLimit:  cfg.Search.ContextLimit,
	}, logger)

	translator := query.NewAnthropicTranslator(query.TranslatorOptions{
		APIKey:    cfg.Translator.APIKey,
		Model:     cfg.Translator.Model,
		MaxTokens: cfg.Translator.MaxTokens,
		CacheSize: cfg.Translator.CacheSize,
		CacheTTL:  cfg.Translator.CacheTTL,
	}, logger)
	queryEngine := query.NewEngine(store, translator, cfg.Query.Timeout,
		cfg.Translator.MaxRetries, logger)

	projections := analyzer.NewProjectionManager(store, cfg.Analyzer.ProjectionTTL, logger)
	analyze := analyzer.New(projections, analyzer.Options{
		PageRankDamping:  cfg.Analyzer.PageRankDamping,
		PageRankMaxIter:  cfg.Analyzer.PageRankMaxIter,
		PageRankTol:      1e-6,
		MaxDiameterNodes: cfg.Analyzer.MaxDiameterNodes,
		CommunitySeed:    cfg.Analyzer.CommunitySeed,
	}, logger)

	return &app{
		store:    store,
		builder:  builder.New(store, cfg.Builder.BatchSize, logger),
		schema:   schema.NewManager(store, logger),
		index:    indexSvc,
		keyword:  keyword,
		search:   searchEngine,
		query:    queryEngine,
		analyzer: analyze,
	}, nil
}

func (a *app) close(ctx context.Context) {
	if err := a.keyword.Close(); err != nil {
		logger.Warn("closing keyword index", "error", err)
	}
	if err := a.store.Close(ctx); err != nil {
		logger.Warn("closing store", "error", err)
	}
}

// refreshKeywordIndex mirrors current store contents into the full-text
// index so keyword search reflects the committed graph.
func (a *app) refreshKeywordIndex(ctx context.Context) error {
	entities, err := a.store.Entities(ctx, "")
	if err != nil {
		return err
	}
	return a.keyword.IndexEntities(entities)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
