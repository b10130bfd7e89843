package ingest

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/icare-health/rag-service/internal/core"
	"github.com/icare-health/rag-service/internal/core/chunker"
	"github.com/icare-health/rag-service/internal/models"
)

// FailurePolicy decides what happens when a chunk's embedding call fails
// during ingestion. The provider's failure is always visible either way; a
// degraded fallback vector never enters the index.
type FailurePolicy string

const (
	// PolicyAbort fails the whole ingestion request. Default.
	PolicyAbort FailurePolicy = "abort"
	// PolicySkip drops the chunks whose embedding failed and compacts the
	// surviving chunk indices so they stay dense.
	PolicySkip FailurePolicy = "skip"
)

// Config tunes the ingestion pipeline.
//
// ChunkSize / ChunkOverlap: token window geometry, validated at construction.
// EmbedBatchSize:   texts per embedding request.
// EmbedConcurrency: concurrent embedding requests (provider rate limits).
// FailurePolicy:    abort or skip on embedding failure during ingest.
type Config struct {
	ChunkSize        int
	ChunkOverlap     int
	EmbedBatchSize   int
	EmbedConcurrency int
	FailurePolicy    FailurePolicy
}

// Pipeline orchestrates ingestion (extract, chunk, embed, store) and querying
// (embed, search). The same embedder instance serves both directions, keeping
// ingest-time and query-time vectors in one embedding space.
type Pipeline struct {
	store    core.VectorStore
	embedder core.EmbeddingProvider
	web      core.URLExtractor
	pdf      core.PDFExtractor
	chunker  *chunker.Chunker
	cfg      Config
}

func New(store core.VectorStore, embedder core.EmbeddingProvider, web core.URLExtractor, pdf core.PDFExtractor, cfg Config) (*Pipeline, error) {
	ch, err := chunker.New(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = 16
	}
	if cfg.EmbedConcurrency <= 0 {
		cfg.EmbedConcurrency = 4
	}
	if cfg.FailurePolicy == "" {
		cfg.FailurePolicy = PolicyAbort
	}
	return &Pipeline{store: store, embedder: embedder, web: web, pdf: pdf, chunker: ch, cfg: cfg}, nil
}

// IngestURL fetches and ingests a web page.
func (p *Pipeline) IngestURL(ctx context.Context, url, title string, meta map[string]string) (*models.IngestResult, error) {
	ext, err := p.web.ExtractURL(ctx, url, title)
	if err != nil {
		return nil, err
	}
	return p.ingest(ctx, ext, url, "url", meta)
}

// IngestPDF ingests an uploaded PDF byte buffer.
func (p *Pipeline) IngestPDF(ctx context.Context, data []byte, title string, meta map[string]string) (*models.IngestResult, error) {
	ext, err := p.pdf.ExtractPDF(ctx, data, title)
	if err != nil {
		return nil, err
	}
	return p.ingest(ctx, ext, "uploaded_pdf", "pdf", meta)
}

// ingest runs chunk -> embed-all -> replace chunks -> write metadata. The
// metadata record is written only after the chunk upsert commits, so a failed
// embedding pass never leaves metadata pointing at absent vectors.
func (p *Pipeline) ingest(ctx context.Context, ext *core.Extraction, source, sourceType string, meta map[string]string) (*models.IngestResult, error) {
	docID := uuid.NewString()

	chunks := p.chunker.Chunk(ext.Text)
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	texts, embeddings, err := p.embedAll(ctx, texts)
	if err != nil {
		return nil, err
	}

	added, err := p.store.ReplaceChunks(ctx, docID, texts, embeddings, p.embedder.Model(), meta)
	if err != nil {
		return nil, err
	}

	doc := &models.Document{
		ID:         docID,
		Title:      ext.Title,
		Source:     source,
		SourceType: sourceType,
		ChunkCount: len(texts),
		EmbedModel: p.embedder.Model(),
		AddedAt:    time.Now().UTC(),
		Meta:       meta,
	}
	if err := p.store.UpsertDocument(ctx, doc); err != nil {
		return nil, err
	}

	return &models.IngestResult{DocID: docID, Chunks: len(texts), VectorsAdded: added}, nil
}

// embedAll embeds texts in batches, issuing up to EmbedConcurrency requests
// in parallel. Results are reassembled in original chunk order before the
// store write, since index order carries adjacency meaning downstream.
func (p *Pipeline) embedAll(ctx context.Context, texts []string) ([]string, [][]float32, error) {
	if len(texts) == 0 {
		return nil, nil, nil
	}

	vectors := make([][]float32, len(texts))
	failed := make([]bool, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.EmbedConcurrency)

	for start := 0; start < len(texts); start += p.cfg.EmbedBatchSize {
		end := start + p.cfg.EmbedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		start, end := start, end
		g.Go(func() error {
			vecs, err := p.embedder.EmbedTexts(gctx, texts[start:end])
			if err != nil {
				if p.cfg.FailurePolicy == PolicySkip {
					log.Printf("ingest: dropping chunks %d-%d, embedding failed: %v", start, end-1, err)
					for i := start; i < end; i++ {
						failed[i] = true
					}
					return nil
				}
				return err
			}
			copy(vectors[start:end], vecs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	// Compact out skipped chunks so stored indices stay dense from 0.
	keptTexts := make([]string, 0, len(texts))
	keptVecs := make([][]float32, 0, len(texts))
	for i := range texts {
		if failed[i] {
			continue
		}
		keptTexts = append(keptTexts, texts[i])
		keptVecs = append(keptVecs, vectors[i])
	}
	return keptTexts, keptVecs, nil
}

// Query embeds the user's text and ranks the stored corpus against it.
// Embedding failure propagates as *core.EmbeddingProviderError so callers can
// report "retrieval unavailable" instead of silently returning nothing.
func (p *Pipeline) Query(ctx context.Context, text string, topK int, filterDocIDs []string) ([]models.SearchHit, error) {
	vecs, err := p.embedder.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, &core.EmbeddingProviderError{
			Model: p.embedder.Model(),
			Err:   fmt.Errorf("expected 1 query embedding, got %d", len(vecs)),
		}
	}
	return p.store.Search(ctx, vecs[0], p.embedder.Model(), topK, filterDocIDs)
}
