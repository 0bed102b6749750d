// Package search serves vector, keyword, and hybrid entity search.
package search

import (
	"context"
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/ajitpratap0/graphcortex/internal/models"
)

// keywordDoc is the shape indexed per entity.
type keywordDoc struct {
	Text   string   `json:"text"`
	Labels []string `json:"labels"`
}

// KeywordIndex is a full-text index over entity text, backed by an
// in-memory bleve index. Keyword search works without embeddings, so it
// stays available when the vector index has not been built.
type KeywordIndex struct {
	mu  sync.RWMutex
	idx bleve.Index
}

func newKeywordMapping() mapping.IndexMapping {
	m := bleve.NewIndexMapping()
	doc := bleve.NewDocumentMapping()
	text := bleve.NewTextFieldMapping()
	doc.AddFieldMappingsAt("text", text)
	labels := bleve.NewKeywordFieldMapping()
	doc.AddFieldMappingsAt("labels", labels)
	m.DefaultMapping = doc
	return m
}

// NewKeywordIndex returns an empty in-memory keyword index.
func NewKeywordIndex() (*KeywordIndex, error) {
	idx, err := bleve.NewMemOnly(newKeywordMapping())
	if err != nil {
		return nil, fmt.Errorf("create keyword index: %w", err)
	}
	return &KeywordIndex{idx: idx}, nil
}

// IndexEntities adds or replaces entities in the index.
func (k *KeywordIndex) IndexEntities(entities []models.Entity) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	batch := k.idx.NewBatch()
	for _, e := range entities {
		if e.Text == "" {
			continue
		}
		if err := batch.Index(e.ID, keywordDoc{Text: e.Text, Labels: e.Labels}); err != nil {
			return fmt.Errorf("index entity %s: %w", e.ID, err)
		}
	}
	return k.idx.Batch(batch)
}

// Remove drops an entity from the index.
func (k *KeywordIndex) Remove(id string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.idx.Delete(id)
}

// Hit is one keyword search result.
type Hit struct {
	ID    string
	Score float64
}

// Search runs a match query over entity text, optionally restricted to
// entities carrying one of labelFilter.
func (k *KeywordIndex) Search(ctx context.Context, text string, topK int, labelFilter []string) ([]Hit, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	match := bleve.NewMatchQuery(text)
	match.SetField("text")

	var req *bleve.SearchRequest
	if len(labelFilter) > 0 {
		boolean := bleve.NewBooleanQuery()
		boolean.AddMust(match)
		labels := bleve.NewBooleanQuery()
		for _, l := range labelFilter {
			term := bleve.NewTermQuery(l)
			term.SetField("labels")
			labels.AddShould(term)
		}
		boolean.AddMust(labels)
		req = bleve.NewSearchRequestOptions(boolean, topK, 0, false)
	} else {
		req = bleve.NewSearchRequestOptions(match, topK, 0, false)
	}

	res, err := k.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hits = append(hits, Hit{ID: h.ID, Score: h.Score})
	}
	return hits, nil
}

// Close releases the index.
func (k *KeywordIndex) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.idx.Close()
}
