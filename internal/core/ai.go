package core

import "context"

// EmbeddingProvider turns a bounded batch of texts into vectors. The output
// has the same length and order as the input; callers zip vectors back onto
// their originating chunks positionally.
type EmbeddingProvider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// LLMProvider generates a grounded answer from a system and user prompt.
type LLMProvider interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (string, error)
}
