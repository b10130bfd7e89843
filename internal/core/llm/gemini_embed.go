package llm

import (
	"fmt"
	"os"

	"context"

	"github.com/google/generative-ai-go/genai"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	"github.com/icare-health/rag-service/internal/core"
)

type GeminiEmbedder struct {
	client    *genai.Client
	modelName string
	limiter   *rate.Limiter
}

// NewGeminiEmbedder builds the embedding client used by both the ingestion
// and the query path. requestsPerSecond throttles calls to stay inside the
// provider's rate limits; <= 0 disables throttling.
func NewGeminiEmbedder(ctx context.Context, apiKey, modelName string, requestsPerSecond float64) (*GeminiEmbedder, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "embedding-001"
	}
	var limiter *rate.Limiter
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	return &GeminiEmbedder{client: cl, modelName: modelName, limiter: limiter}, nil
}

func (g *GeminiEmbedder) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// Model identifies the embedding model so stored vectors carry the version
// they were produced with.
func (g *GeminiEmbedder) Model() string { return g.modelName }

// EmbedTexts batches all texts in one request. Provider failure surfaces as
// *core.EmbeddingProviderError; no fallback vectors are ever returned.
func (g *GeminiEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, &core.EmbeddingProviderError{Model: g.modelName, Err: err}
		}
	}

	em := g.client.EmbeddingModel(g.modelName)
	batch := em.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	resp, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, &core.EmbeddingProviderError{Model: g.modelName, Err: err}
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, &core.EmbeddingProviderError{
			Model: g.modelName,
			Err:   fmt.Errorf("got %d embeddings for %d texts", len(resp.Embeddings), len(texts)),
		}
	}

	out := make([][]float32, 0, len(resp.Embeddings))
	for _, e := range resp.Embeddings {
		out = append(out, e.Values)
	}
	return out, nil
}

var _ core.EmbeddingProvider = (*GeminiEmbedder)(nil)
