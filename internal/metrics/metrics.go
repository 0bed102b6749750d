// Package metrics exposes process counters via expvar.
package metrics

import "expvar"

var (
	EntitiesMerged      = expvar.NewInt("graphcortex_entities_merged")
	RelationshipsMerged = expvar.NewInt("graphcortex_relationships_merged")
	BatchesFailed       = expvar.NewInt("graphcortex_batches_failed")
	QueriesExecuted     = expvar.NewInt("graphcortex_queries_executed")
	QueriesFailed       = expvar.NewInt("graphcortex_queries_failed")
	Translations        = expvar.NewInt("graphcortex_translations")
	TranslationRetries  = expvar.NewInt("graphcortex_translation_retries")
	TranslationCacheHit = expvar.NewInt("graphcortex_translation_cache_hits")
	VectorSearches      = expvar.NewInt("graphcortex_vector_searches")
	KeywordSearches     = expvar.NewInt("graphcortex_keyword_searches")
	HybridSearches      = expvar.NewInt("graphcortex_hybrid_searches")
	IndexBuilds         = expvar.NewInt("graphcortex_index_builds")
	EmbeddingFailures   = expvar.NewInt("graphcortex_embedding_failures")
	ProjectionRebuilds  = expvar.NewInt("graphcortex_projection_rebuilds")
)

// Inc bumps a counter, tolerating nil so tests can pass zero values.
func Inc(counter *expvar.Int) {
	if counter != nil {
		counter.Add(1)
	}
}

// Add bumps a counter by n.
func Add(counter *expvar.Int, n int64) {
	if counter != nil {
		counter.Add(n)
	}
}
