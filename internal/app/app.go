package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/icare-health/rag-service/internal/config"
	"github.com/icare-health/rag-service/internal/core"
	"github.com/icare-health/rag-service/internal/core/extract"
	"github.com/icare-health/rag-service/internal/core/ingest"
	"github.com/icare-health/rag-service/internal/core/llm"
	"github.com/icare-health/rag-service/internal/core/objectclient"
	"github.com/icare-health/rag-service/internal/core/vectorstore"
)

type App struct {
	Store    core.VectorStore
	Embedder *llm.GeminiEmbedder
	Server   *Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	store, err := vectorstore.NewStore(appCtx, cfg.DatabaseURL, cfg.EmbedDim)
	if err != nil {
		return nil, fmt.Errorf("vector store init: %w", err)
	}
	log.Println("Vector store initialized and ready.")

	return newAppWithStore(appCtx, cfg, store)
}

// newAppWithStore wires everything downstream of the store. On any failure
// the store (and whatever else was already built) is closed before returning,
// so a failed constructor never leaks connections.
func newAppWithStore(ctx context.Context, cfg *config.Config, store core.VectorStore) (*App, error) {
	var (
		embedder    *llm.GeminiEmbedder
		llmProvider *llm.GeminiLLM
	)
	fail := func(err error) (*App, error) {
		if llmProvider != nil {
			_ = llmProvider.Close()
		}
		if embedder != nil {
			_ = embedder.Close()
		}
		_ = store.Close()
		return nil, err
	}

	embedder, err := llm.NewGeminiEmbedder(ctx, cfg.AIAPIKey, cfg.EmbedModel, cfg.EmbedRPS)
	if err != nil {
		return fail(fmt.Errorf("couldn't initialize the embedder: %w", err))
	}

	llmProvider, err = llm.NewGeminiLLM(ctx, cfg.AIAPIKey, cfg.GenModel)
	if err != nil {
		return fail(fmt.Errorf("couldn't initialize the LLM: %w", err))
	}

	web := extract.NewWebExtractor(time.Duration(cfg.FetchTimeoutSecs) * time.Second)
	pdf, err := extract.NewUniPDFExtractor(cfg.UnidocLicenseKey)
	if err != nil {
		return fail(fmt.Errorf("couldn't initialize the PDF extractor: %w", err))
	}

	pipeline, err := ingest.New(store, embedder, web, pdf, ingest.Config{
		ChunkSize:        cfg.ChunkSize,
		ChunkOverlap:     cfg.ChunkOverlap,
		EmbedBatchSize:   cfg.EmbedBatchSize,
		EmbedConcurrency: cfg.EmbedConcurrency,
		FailurePolicy:    ingest.FailurePolicy(cfg.EmbedPolicy),
	})
	if err != nil {
		return fail(err)
	}

	// Archival is optional: without credentials the service runs without it.
	var archive core.ObjectClient
	if cfg.AwsAccessKey != "" && cfg.AwsSecretKey != "" && cfg.BucketName != "" {
		archive, err = objectclient.NewS3Client(ctx, cfg.AwsAccessKey, cfg.AwsSecretKey, cfg.AwsRegion)
		if err != nil {
			return fail(err)
		}
		log.Println("Object client initialized and ready.")
	} else {
		log.Println("AWS credentials not set; running without upload archival.")
	}

	server := NewServer(cfg, store, pipeline, llmProvider, archive)

	return &App{Store: store, Embedder: embedder, Server: server}, nil
}

func (a *App) Close() {
	if a.Embedder != nil {
		_ = a.Embedder.Close()
	}
	if a.Store != nil {
		_ = a.Store.Close()
	}
}
