package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/icare-health/rag-service/internal/core"
	"github.com/icare-health/rag-service/internal/core/ingest"
)

const maxUploadBytes = 50 << 20 // 50 MB

type RagHandler struct {
	pipeline *ingest.Pipeline
	store    core.VectorStore
	archive  core.ObjectClient // nil when archival is not configured
	bucket   string
}

func NewRagHandler(pipeline *ingest.Pipeline, store core.VectorStore, archive core.ObjectClient, bucket string) *RagHandler {
	return &RagHandler{pipeline: pipeline, store: store, archive: archive, bucket: bucket}
}

type ingestURLRequest struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// IngestURL crawls a web page into the index. Admin-gated by the router.
func (h *RagHandler) IngestURL(w http.ResponseWriter, r *http.Request) {
	var req ingestURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		http.Error(w, "invalid body: url required", http.StatusBadRequest)
		return
	}

	res, err := h.pipeline.IngestURL(r.Context(), req.URL, req.Title, nil)
	if err != nil {
		writeIngestError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ingested",
		"doc_id":        res.DocID,
		"chunks":        res.Chunks,
		"vectors_added": res.VectorsAdded,
	})
}

// IngestPDF ingests an uploaded PDF. Admin-gated by the router; any other
// file type is rejected before extraction starts.
func (h *RagHandler) IngestPDF(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "invalid file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !isPDFUpload(header.Filename, contentType) {
		err := &core.UnsupportedSourceError{ContentType: contentType}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		http.Error(w, "failed to read upload", http.StatusBadRequest)
		return
	}

	meta := h.archiveUpload(r, header.Filename, data)

	res, err := h.pipeline.IngestPDF(r.Context(), data, header.Filename, meta)
	if err != nil {
		writeIngestError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ingested",
		"doc_id":        res.DocID,
		"chunks":        res.Chunks,
		"vectors_added": res.VectorsAdded,
	})
}

// archiveUpload keeps the raw PDF bytes in object storage when archival is
// configured. Failures are logged only; ingestion never depends on archival.
func (h *RagHandler) archiveUpload(r *http.Request, filename string, data []byte) map[string]string {
	if h.archive == nil || h.bucket == "" {
		return nil
	}
	key := fmt.Sprintf("rag/%s/%s", uuid.NewString(), filepath.Base(filename))
	url, err := h.archive.UploadFile(r.Context(), h.bucket, key, data, "application/pdf")
	if err != nil {
		log.Printf("rag: archival of %q failed (ingestion proceeds): %v", filename, err)
		return nil
	}
	return map[string]string{"archive_key": key, "archive_url": url}
}

// ListDocuments returns document metadata only; vectors stay in the store.
func (h *RagHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	skip := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", 50)

	docs, err := h.store.ListDocuments(r.Context(), skip, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":     len(docs),
		"documents": docs,
	})
}

func (h *RagHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")

	doc, err := h.store.GetDocument(r.Context(), docID)
	if errors.Is(err, core.ErrDocumentNotFound) {
		http.Error(w, "document not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// DeleteDocument removes metadata and, best-effort, the chunk vectors and the
// archived source file. Admin-gated by the router.
func (h *RagHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")

	if h.archive != nil && h.bucket != "" {
		if doc, err := h.store.GetDocument(r.Context(), docID); err == nil {
			if key := doc.Meta["archive_key"]; key != "" {
				if err := h.archive.DeleteFile(r.Context(), h.bucket, key); err != nil {
					log.Printf("rag: archive delete for %s failed: %v", docID, err)
				}
			}
		}
	}

	deleted, err := h.store.DeleteDocument(r.Context(), docID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "deleted",
		"deleted_count": deleted,
	})
}

// writeIngestError maps the error taxonomy to user-facing responses with a
// clear reason.
func writeIngestError(w http.ResponseWriter, err error) {
	var (
		fetchErr *core.FetchError
		insErr   *core.InsufficientContentError
		provErr  *core.EmbeddingProviderError
		srcErr   *core.UnsupportedSourceError
	)
	switch {
	case errors.As(err, &fetchErr):
		http.Error(w, err.Error(), http.StatusBadGateway)
	case errors.As(err, &insErr):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.As(err, &srcErr):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &provErr):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		http.Error(w, fmt.Sprintf("ingest failed: %v", err), http.StatusInternalServerError)
	}
}

func isPDFUpload(filename, contentType string) bool {
	if strings.EqualFold(strings.TrimSpace(contentType), "application/pdf") {
		return true
	}
	return strings.HasSuffix(strings.ToLower(filename), ".pdf")
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write response: %v", err)
	}
}
