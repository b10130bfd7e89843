package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/icare-health/rag-service/internal/core"
	"github.com/icare-health/rag-service/internal/core/ingest"
	"github.com/icare-health/rag-service/internal/models"
)

const (
	// snippetLimit caps how much of each retrieved chunk goes into the prompt.
	snippetLimit = 1200

	systemPrompt = `You are iCare's health information assistant. Answer the user's question
using ONLY the reference material provided below. If the material does not
cover the question, say so plainly and suggest the user consult a healthcare
professional. Never invent medical facts. Keep answers clear and concise.`
)

type ChatHandler struct {
	pipeline *ingest.Pipeline
	llm      core.LLMProvider
	topK     int
}

func NewChatHandler(pipeline *ingest.Pipeline, llm core.LLMProvider, topK int) *ChatHandler {
	if topK <= 0 {
		topK = 5
	}
	return &ChatHandler{pipeline: pipeline, llm: llm, topK: topK}
}

type chatRequest struct {
	Message string   `json:"message"`
	TopK    int      `json:"top_k,omitempty"`
	DocIDs  []string `json:"doc_ids,omitempty"`
}

type chatSource struct {
	DocID   string  `json:"doc_id"`
	ChunkID string  `json:"chunk_id"`
	Text    string  `json:"text"`
	Score   float64 `json:"score"`
}

// Chat answers a user question grounded on the retrieved corpus.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		http.Error(w, "invalid body: message required", http.StatusBadRequest)
		return
	}

	topK := req.TopK
	if topK <= 0 {
		topK = h.topK
	}

	hits, err := h.pipeline.Query(r.Context(), req.Message, topK, req.DocIDs)
	if err != nil {
		var provErr *core.EmbeddingProviderError
		if errors.As(err, &provErr) {
			http.Error(w, "retrieval unavailable", http.StatusServiceUnavailable)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	answer, err := h.llm.Generate(r.Context(), systemPrompt, buildUserPrompt(req.Message, hits))
	if err != nil {
		http.Error(w, "generation failed", http.StatusBadGateway)
		return
	}

	sources := make([]chatSource, 0, len(hits))
	for _, hit := range hits {
		sources = append(sources, chatSource{DocID: hit.DocID, ChunkID: hit.ChunkID, Text: hit.Text, Score: hit.Score})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"answer":  answer,
		"sources": sources,
	})
}

// buildUserPrompt interleaves the retrieved snippets with the question. When
// nothing was retrieved the model is told so instead of being handed an empty
// context block.
func buildUserPrompt(message string, hits []models.SearchHit) string {
	var b strings.Builder

	if len(hits) == 0 {
		b.WriteString("Reference material: none retrieved.\n\n")
	} else {
		b.WriteString("Reference material:\n\n")
		for i, hit := range hits {
			text := hit.Text
			if len(text) > snippetLimit {
				text = text[:snippetLimit]
			}
			fmt.Fprintf(&b, "[%d] (source %s)\n%s\n\n", i+1, hit.ChunkID, text)
		}
	}

	b.WriteString("Question: ")
	b.WriteString(message)
	return b.String()
}
