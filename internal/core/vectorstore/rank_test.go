package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/icare-health/rag-service/internal/models"
)

func TestCosineSimilarity_SelfSimilarity(t *testing.T) {
	v := []float32{0.3, -1.2, 4.5, 0.07}
	assert.InDelta(t, 1.0, CosineSimilarity(v, v), 1e-6)
}

func TestCosineSimilarity_Symmetric(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{-2, 0.5, 7}
	assert.InDelta(t, CosineSimilarity(a, b), CosineSimilarity(b, a), 1e-12)
}

func TestCosineSimilarity_ZeroVector(t *testing.T) {
	zero := []float32{0, 0, 0}
	v := []float32{1, 2, 3}
	assert.Equal(t, 0.0, CosineSimilarity(zero, v))
	assert.Equal(t, 0.0, CosineSimilarity(v, zero))
	assert.Equal(t, 0.0, CosineSimilarity(zero, zero))
}

func TestCosineSimilarity_OppositeAndOrthogonal(t *testing.T) {
	a := []float32{1, 0}
	assert.InDelta(t, -1.0, CosineSimilarity(a, []float32{-1, 0}), 1e-6)
	assert.InDelta(t, 0.0, CosineSimilarity(a, []float32{0, 1}), 1e-6)
}

func TestRankHits_SortsDescendingAndTruncates(t *testing.T) {
	hits := []models.SearchHit{
		{ChunkID: "a__0", Score: 0.2},
		{ChunkID: "a__1", Score: 0.9},
		{ChunkID: "b__0", Score: 0.5},
		{ChunkID: "b__1", Score: 0.7},
	}

	got := rankHits(hits, 3)
	assert.Len(t, got, 3)
	assert.Equal(t, "a__1", got[0].ChunkID)
	assert.Equal(t, "b__1", got[1].ChunkID)
	assert.Equal(t, "b__0", got[2].ChunkID)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Score, got[i].Score)
	}
}

func TestRankHits_TiesKeepScanOrder(t *testing.T) {
	hits := []models.SearchHit{
		{ChunkID: "a__0", Score: 0.5},
		{ChunkID: "a__1", Score: 0.5},
		{ChunkID: "b__0", Score: 0.5},
	}
	got := rankHits(hits, 3)
	assert.Equal(t, "a__0", got[0].ChunkID)
	assert.Equal(t, "a__1", got[1].ChunkID)
	assert.Equal(t, "b__0", got[2].ChunkID)
}

func TestRankHits_TopKLargerThanCandidates(t *testing.T) {
	hits := []models.SearchHit{{ChunkID: "a__0", Score: 0.1}}
	assert.Len(t, rankHits(hits, 10), 1)
}

func TestChunkID(t *testing.T) {
	assert.Equal(t, "doc-123__0", chunkID("doc-123", 0))
	assert.Equal(t, "doc-123__17", chunkID("doc-123", 17))
}
