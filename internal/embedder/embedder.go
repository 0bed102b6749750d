// Package embedder turns text into dense vectors for similarity search.
package embedder

import (
	"context"
	"fmt"
)

// Embedder converts text into fixed-dimension embedding vectors.
type Embedder interface {
	// Embed returns the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch embeds texts in order. The result has one vector per
	// input.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension reports the vector length this embedder produces.
	Dimension() int
}

// New builds an Embedder for the named provider.
func New(provider, baseURL, apiKey, model string, dimension int) (Embedder, error) {
	switch provider {
	case "ollama":
		return NewOllama(baseURL, model, dimension), nil
	case "openai":
		return NewOpenAI(baseURL, apiKey, model, dimension), nil
	}
	return nil, fmt.Errorf("unknown embedder provider %q", provider)
}
