package models

import (
	"time"
)

// Document is one unit of ingested knowledge: a crawled page or an uploaded PDF.
// Immutable after ingestion except for deletion.
type Document struct {
	ID         string            `db:"id" json:"doc_id"`
	Title      string            `db:"title" json:"title"`
	Source     string            `db:"source" json:"source"`           // original URL or "uploaded_pdf"
	SourceType string            `db:"source_type" json:"type"`        // "url" or "pdf"
	ChunkCount int               `db:"chunk_count" json:"chunks"`
	EmbedModel string            `db:"embed_model" json:"embed_model"` // model the chunk vectors were produced with
	AddedAt    time.Time         `db:"added_at" json:"added_at"`
	Meta       map[string]string `db:"meta" json:"meta,omitempty"`
}

// DocumentChunk is one overlapping token-window slice of a document's text.
// Chunk indices within a document are dense, starting at 0; a chunk never
// outlives its document.
type DocumentChunk struct {
	DocumentID string            `db:"doc_id" json:"doc_id"`
	Index      int               `db:"chunk_index" json:"chunk_index"`
	ChunkID    string            `db:"chunk_id" json:"chunk_id"` // "{doc_id}__{index}"
	Text       string            `db:"text" json:"text"`
	Embedding  []float32         `db:"embedding" json:"-"` // pgvector column
	EmbedModel string            `db:"embed_model" json:"-"`
	Meta       map[string]string `db:"meta" json:"meta,omitempty"`
}

// SearchHit is one ranked retrieval result. Produced fresh per query, never stored.
type SearchHit struct {
	DocID   string            `json:"doc_id"`
	ChunkID string            `json:"chunk_id"`
	Text    string            `json:"text"`
	Score   float64           `json:"score"`
	Meta    map[string]string `json:"meta,omitempty"`
}

// IngestResult reports what a completed ingestion wrote.
type IngestResult struct {
	DocID        string `json:"doc_id"`
	Chunks       int    `json:"chunks"`
	VectorsAdded int    `json:"vectors_added"`
}
