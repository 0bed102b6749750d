// Package query executes structured and natural-language queries against
// the graph.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/ajitpratap0/graphcortex/internal/metrics"
	"github.com/ajitpratap0/graphcortex/internal/models"
)

// Translator turns a natural-language question into a structured query,
// given the current graph schema. The second return reports whether the
// translation came from a cache rather than a fresh model call.
type Translator interface {
	Translate(ctx context.Context, question string, schema *models.SchemaInfo) (string, bool, error)
}

// TranslatorOptions configures the LLM-backed translator.
type TranslatorOptions struct {
	APIKey    string
	Model     string
	MaxTokens int
	CacheSize int
	CacheTTL  time.Duration
}

// AnthropicTranslator translates questions to Cypher with the Anthropic
// Messages API. Translations are cached by question plus schema so
// repeated questions skip the model call until the schema changes.
type AnthropicTranslator struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	cache     *expirable.LRU[string, string]
	logger    *slog.Logger
}

func NewAnthropicTranslator(opts TranslatorOptions, logger *slog.Logger) *AnthropicTranslator {
	size := opts.CacheSize
	if size <= 0 {
		size = 256
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	maxTokens := int64(opts.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &AnthropicTranslator{
		client:    anthropic.NewClient(option.WithAPIKey(opts.APIKey)),
		model:     opts.Model,
		maxTokens: maxTokens,
		cache:     expirable.NewLRU[string, string](size, nil, ttl),
		logger:    logger,
	}
}

const translatePrompt = `You translate questions about a knowledge graph into a single read-only Cypher query.

Graph schema:
Labels: %s
Relationship types: %s
Property keys: %s

Every node has the properties id (string), text (string), and confidence (float).

Rules:
- Output ONLY the Cypher query, no explanation, no code fences.
- Read-only: never use CREATE, MERGE, SET, DELETE, REMOVE, or DROP.
- Use only the labels and relationship types listed above.
- Prefer RETURN with explicit aliases.

Question: %s`

func (t *AnthropicTranslator) Translate(ctx context.Context, question string, schema *models.SchemaInfo) (string, bool, error) {
	key := cacheKey(question, schema)
	if cached, ok := t.cache.Get(key); ok {
		metrics.Inc(metrics.TranslationCacheHit)
		return cached, true, nil
	}

	prompt := fmt.Sprintf(translatePrompt,
		strings.Join(schema.Labels, ", "),
		strings.Join(schema.RelationshipTypes, ", "),
		strings.Join(schema.PropertyKeys, ", "),
		question)

	resp, err := t.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(t.model),
		MaxTokens: t.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", false, fmt.Errorf("translation request: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	cypher := cleanGeneratedQuery(sb.String())
	if cypher == "" {
		return "", false, fmt.Errorf("model returned no query")
	}
	if err := rejectWrites(cypher); err != nil {
		return "", false, err
	}

	metrics.Inc(metrics.Translations)
	t.cache.Add(key, cypher)
	t.logger.Debug("question translated", "question", question, "query", cypher)
	return cypher, false, nil
}

func cacheKey(question string, schema *models.SchemaInfo) string {
	return question + "\x00" +
		strings.Join(schema.Labels, ",") + "\x00" +
		strings.Join(schema.RelationshipTypes, ",")
}

// cleanGeneratedQuery strips code fences and surrounding prose the model
// sometimes emits despite instructions.
func cleanGeneratedQuery(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```cypher")
		s = strings.TrimPrefix(s, "```")
		if i := strings.Index(s, "```"); i >= 0 {
			s = s[:i]
		}
	}
	return strings.TrimSpace(s)
}

var writeKeywords = []string{"CREATE ", "MERGE ", "DELETE ", "DETACH ", "SET ", "REMOVE ", "DROP "}

// rejectWrites refuses generated queries that would mutate the graph. The
// translation path is read-only regardless of what the model produces.
func rejectWrites(cypher string) error {
	upper := strings.ToUpper(cypher)
	for _, kw := range writeKeywords {
		if strings.Contains(upper, kw) {
			return fmt.Errorf("generated query contains write clause %s", strings.TrimSpace(kw))
		}
	}
	return nil
}
