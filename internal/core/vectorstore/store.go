package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/pgvector/pgvector-go"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/icare-health/rag-service/internal/core"
	"github.com/icare-health/rag-service/internal/models"
)

// Store keeps document metadata and chunk vectors in Postgres. Similarity
// search loads the candidate set and ranks it in process with an exact
// linear scan, which is O(corpus size) per query; that ceiling is accepted
// here, and the VectorStore contract leaves room for an index-backed engine.
type Store struct {
	db       *sql.DB
	docLocks *keyedMutex
}

func NewStore(ctx context.Context, databaseURL string, embedDim int) (core.VectorStore, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}
	if embedDim <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", embedDim)
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db, embedDim); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &Store{db: db, docLocks: newKeyedMutex()}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) UpsertDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	metaJSON, err := marshalMeta(doc.Meta)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO rag_documents (id, title, source, source_type, chunk_count, embed_model, added_at, meta)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, now()), $8)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			source = EXCLUDED.source,
			source_type = EXCLUDED.source_type,
			chunk_count = EXCLUDED.chunk_count,
			embed_model = EXCLUDED.embed_model,
			added_at = EXCLUDED.added_at,
			meta = EXCLUDED.meta
	`
	var addedAt *time.Time
	if !doc.AddedAt.IsZero() {
		addedAt = &doc.AddedAt
	}
	_, err = s.db.ExecContext(ctx, q,
		doc.ID, doc.Title, doc.Source, doc.SourceType, doc.ChunkCount, doc.EmbedModel, addedAt, metaJSON)
	return err
}

// ReplaceChunks swaps the full chunk set for a document inside one
// transaction: delete everything for docID, then insert texts[i] paired with
// embeddings[i]. Concurrent calls for the same document are serialized, so a
// reader sees either the old set or the new one, never a mix.
func (s *Store) ReplaceChunks(ctx context.Context, docID string, texts []string, embeddings [][]float32, embedModel string, meta map[string]string) (int, error) {
	if len(texts) != len(embeddings) {
		return 0, fmt.Errorf("texts/embeddings length mismatch: %d vs %d", len(texts), len(embeddings))
	}

	unlock := s.docLocks.lock(docID)
	defer unlock()

	metaJSON, err := marshalMeta(meta)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, &core.VectorWriteError{DocID: docID, Err: err}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM rag_chunks WHERE doc_id = $1`, docID); err != nil {
		_ = tx.Rollback()
		return 0, &core.VectorWriteError{DocID: docID, Err: err}
	}

	const q = `
		INSERT INTO rag_chunks (doc_id, chunk_index, chunk_id, text, embedding, embed_model, meta)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return 0, &core.VectorWriteError{DocID: docID, Err: err}
	}
	defer stmt.Close()

	for i := range texts {
		vec := pgvector.NewVector(embeddings[i])
		if _, err := stmt.ExecContext(ctx,
			docID, i, chunkID(docID, i), texts[i], vec, embedModel, metaJSON,
		); err != nil {
			_ = tx.Rollback()
			return 0, &core.VectorWriteError{DocID: docID, Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, &core.VectorWriteError{DocID: docID, Err: err}
	}
	return len(texts), nil
}

// Search loads every candidate chunk embedded with embedModel (optionally
// restricted to filterDocIDs) and ranks by cosine similarity against the
// query vector. Candidates are scanned in (doc_id, chunk_index) order and
// ties keep that order.
func (s *Store) Search(ctx context.Context, queryVec []float32, embedModel string, topK int, filterDocIDs []string) ([]models.SearchHit, error) {
	if topK <= 0 {
		topK = 5
	}

	q := `
		SELECT doc_id, chunk_id, text, embedding, meta
		FROM rag_chunks
		WHERE embed_model = $1
	`
	args := []any{embedModel}
	if len(filterDocIDs) > 0 {
		q += ` AND doc_id = ANY($2)`
		args = append(args, filterDocIDs)
	}
	q += ` ORDER BY doc_id, chunk_index`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []models.SearchHit
	for rows.Next() {
		var (
			hit      models.SearchHit
			emb      pgvector.Vector
			metaJSON []byte
		)
		if err := rows.Scan(&hit.DocID, &hit.ChunkID, &hit.Text, &emb, &metaJSON); err != nil {
			return nil, err
		}
		hit.Meta, err = unmarshalMeta(metaJSON)
		if err != nil {
			return nil, err
		}
		hit.Score = CosineSimilarity(queryVec, emb.Slice())
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rankHits(hits, topK), nil
}

// DeleteDocument removes the metadata record and, best-effort, the chunks.
// A failed chunk deletion is logged but never blocks the metadata delete,
// which is the primary contract.
func (s *Store) DeleteDocument(ctx context.Context, id string) (int64, error) {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM rag_chunks WHERE doc_id = $1`, id); err != nil {
		log.Printf("vectorstore: chunk deletion for document %s failed (metadata delete proceeds): %v", id, err)
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM rag_documents WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	const q = `
		SELECT id, title, source, source_type, chunk_count, embed_model, added_at, meta
		FROM rag_documents
		WHERE id = $1
	`
	var (
		d        models.Document
		metaJSON []byte
	)
	err := s.db.QueryRowContext(ctx, q, id).Scan(
		&d.ID, &d.Title, &d.Source, &d.SourceType, &d.ChunkCount, &d.EmbedModel, &d.AddedAt, &metaJSON,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	if d.Meta, err = unmarshalMeta(metaJSON); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Store) ListDocuments(ctx context.Context, skip, limit int) ([]models.Document, error) {
	if limit <= 0 {
		limit = 50
	}
	if skip < 0 {
		skip = 0
	}
	const q = `
		SELECT id, title, source, source_type, chunk_count, embed_model, added_at
		FROM rag_documents
		ORDER BY added_at DESC
		OFFSET $1 LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, q, skip, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(
			&d.ID, &d.Title, &d.Source, &d.SourceType, &d.ChunkCount, &d.EmbedModel, &d.AddedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// chunkID derives the globally unique chunk identifier from the owning
// document and the chunk's dense index.
func chunkID(docID string, index int) string {
	return fmt.Sprintf("%s__%d", docID, index)
}

func marshalMeta(meta map[string]string) ([]byte, error) {
	if meta == nil {
		meta = map[string]string{}
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal meta: %w", err)
	}
	return b, nil
}

func unmarshalMeta(raw []byte) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var meta map[string]string
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("unmarshal meta: %w", err)
	}
	return meta, nil
}
