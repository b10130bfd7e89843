package core

import "context"

// EmbeddingProvider maps texts to fixed-dimension dense vectors. The same
// provider instance serves both ingestion and query embedding so the two call
// sites can never drift into different vector spaces.
type EmbeddingProvider interface {
	// EmbedTexts returns exactly one vector per input text, in input order,
	// or an *EmbeddingProviderError. It never returns fallback vectors.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)

	// Model identifies the embedding model/version. It is stored alongside
	// every persisted vector so cross-version similarity comparisons can be
	// detected and excluded.
	Model() string
}

type LLMProvider interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (string, error)
}
