package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icare-health/rag-service/internal/core"
)

func words(n int) string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(out, " ")
}

func TestNew_RejectsBadConfig(t *testing.T) {
	cases := []struct {
		name          string
		size, overlap int
	}{
		{"zero size", 0, 0},
		{"negative size", -1, 0},
		{"negative overlap", 10, -1},
		{"overlap equals size", 10, 10},
		{"overlap exceeds size", 10, 12},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.size, tc.overlap)
			require.Error(t, err)
			var cfgErr *core.ChunkConfigError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestChunk_WindowOffsets(t *testing.T) {
	// size=10 overlap=3 gives stride 7: windows start at 0, 7, 14, 21.
	c, err := New(10, 3)
	require.NoError(t, err)

	chunks := c.Chunk(words(25))
	require.Len(t, chunks, 4)

	wantStarts := []int{0, 7, 14, 21}
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
		toks := strings.Fields(ch.Text)
		assert.Equal(t, fmt.Sprintf("w%d", wantStarts[i]), toks[0], "window %d start", i)
	}

	// The last window is truncated by input length: tokens 21..24.
	last := strings.Fields(chunks[3].Text)
	assert.Len(t, last, 4)
	assert.Equal(t, "w24", last[3])
}

func TestChunk_OverlapSharesTokens(t *testing.T) {
	c, err := New(10, 3)
	require.NoError(t, err)

	chunks := c.Chunk(words(25))
	require.True(t, len(chunks) >= 2)

	first := strings.Fields(chunks[0].Text)
	second := strings.Fields(chunks[1].Text)
	// Last 3 tokens of window 0 are the first 3 of window 1.
	assert.Equal(t, first[len(first)-3:], second[:3])
}

func TestChunk_SingleWindowWhenInputFits(t *testing.T) {
	c, err := New(800, 100)
	require.NoError(t, err)

	chunks := c.Chunk(words(250))
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Len(t, strings.Fields(chunks[0].Text), 250)
}

func TestChunk_EmptyInput(t *testing.T) {
	c, err := New(800, 100)
	require.NoError(t, err)

	assert.Empty(t, c.Chunk(""))
	assert.Empty(t, c.Chunk("   \n\t  "))
}

func TestChunk_IndicesAreDense(t *testing.T) {
	c, err := New(5, 2)
	require.NoError(t, err)

	chunks := c.Chunk(words(40))
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
	}
}
