package chunker

import (
	"strings"

	"github.com/icare-health/rag-service/internal/core"
)

// Chunk is one token window emitted by the chunker. Index values are dense,
// starting at 0, in emission order.
type Chunk struct {
	Index int
	Text  string
}

// Chunker slides a fixed-size token window over whitespace-delimited text.
// Consecutive windows share `overlap` tokens so adjacent chunks keep context.
type Chunker struct {
	size    int
	overlap int
}

// New validates the window configuration. Overlap >= size would make the
// stride non-positive and the slide would never terminate, so it is rejected
// here rather than discovered at runtime.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, &core.ChunkConfigError{Size: size, Overlap: overlap}
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Chunk splits text into overlapping windows of c.size tokens, advancing by
// size-overlap tokens per step. Window tokens are re-joined with single
// spaces. Empty or blank input yields no chunks and no error.
func (c *Chunker) Chunk(text string) []Chunk {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return nil
	}

	stride := c.size - c.overlap
	var out []Chunk
	for i := 0; i < len(tokens); i += stride {
		end := i + c.size
		if end > len(tokens) {
			end = len(tokens)
		}
		out = append(out, Chunk{
			Index: len(out),
			Text:  strings.Join(tokens[i:end], " "),
		})
	}
	return out
}

// Size returns the configured window size in tokens.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured overlap in tokens.
func (c *Chunker) Overlap() int { return c.overlap }
