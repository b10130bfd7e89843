package core

import (
	"context"

	"github.com/icare-health/rag-service/internal/models"
)

// VectorStore is the durable mapping from chunk identity to (text, embedding,
// owning document). It abstracts Postgres/pgvector so higher layers never
// depend on a specific backend.
type VectorStore interface {
	// UpsertDocument writes document metadata, insert-or-replace by id.
	UpsertDocument(ctx context.Context, doc *models.Document) error

	// ReplaceChunks atomically swaps the full chunk set of a document:
	// every existing chunk for docID is deleted, then texts[i] is inserted
	// paired with embeddings[i]. Mismatched lengths are a precondition
	// violation. Returns the number of vectors written.
	ReplaceChunks(ctx context.Context, docID string, texts []string, embeddings [][]float32, embedModel string, meta map[string]string) (int, error)

	// Search scans every candidate chunk (optionally restricted to
	// filterDocIDs) and returns the topK highest cosine-similarity hits,
	// scores descending. Only chunks embedded with embedModel participate.
	Search(ctx context.Context, queryVec []float32, embedModel string, topK int, filterDocIDs []string) ([]models.SearchHit, error)

	// DeleteDocument removes the metadata record and, best-effort, the
	// document's chunks. Returns the number of metadata rows deleted.
	DeleteDocument(ctx context.Context, id string) (int64, error)

	GetDocument(ctx context.Context, id string) (*models.Document, error)
	ListDocuments(ctx context.Context, skip, limit int) ([]models.Document, error)

	Close() error
}

// ObjectClient archives raw source bytes in object storage. Abstract so AWS
// can be swapped for MinIO, GCS, etc.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) (url string, err error)
	DeleteFile(ctx context.Context, bucket, key string) error
}
