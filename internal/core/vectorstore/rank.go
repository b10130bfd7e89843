package vectorstore

import (
	"math"
	"sort"

	"github.com/icare-health/rag-service/internal/models"
)

// CosineSimilarity returns the normalized dot product of two vectors. A
// zero-norm operand scores 0 rather than raising a division fault, and
// mismatched lengths compare over the shorter prefix.
func CosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	for _, v := range a {
		normA += float64(v) * float64(v)
	}
	for _, v := range b {
		normB += float64(v) * float64(v)
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// rankHits sorts hits by score descending and truncates to topK. The sort is
// stable: ties keep the candidate scan order (doc_id, chunk_index ascending).
func rankHits(hits []models.SearchHit, topK int) []models.SearchHit {
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if topK >= 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}
