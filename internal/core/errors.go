package core

import (
	"errors"
	"fmt"
)

// FetchError reports a failed URL fetch: a non-2xx status that survived the
// minimal-header retry, a timeout, or a transport failure.
type FetchError struct {
	URL        string
	StatusCode int // 0 when the failure happened below HTTP (timeout, DNS, ...)
	Reason     string
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d: %s", e.URL, e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Reason)
}

func (e *FetchError) Unwrap() error { return e.Err }

// InsufficientContentError means extraction produced less text than the
// minimum quality gate. The source is unusable; the caller must supply another.
type InsufficientContentError struct {
	Source string
	Length int
	Min    int
}

func (e *InsufficientContentError) Error() string {
	return fmt.Sprintf("insufficient content from %s: %d chars extracted, need at least %d", e.Source, e.Length, e.Min)
}

// UnsupportedSourceError means the caller supplied a file type the ingestion
// pipeline does not handle.
type UnsupportedSourceError struct {
	ContentType string
}

func (e *UnsupportedSourceError) Error() string {
	return fmt.Sprintf("unsupported source type %q: only PDF uploads are accepted", e.ContentType)
}

// EmbeddingProviderError wraps a failed embedding call. It must always surface
// to the caller; substituting a constant or random vector would silently
// corrupt the similarity space.
type EmbeddingProviderError struct {
	Model string
	Err   error
}

func (e *EmbeddingProviderError) Error() string {
	return fmt.Sprintf("embedding provider (%s): %v", e.Model, e.Err)
}

func (e *EmbeddingProviderError) Unwrap() error { return e.Err }

// ChunkConfigError reports an invalid chunker configuration. Overlap >= size
// would make the window stride non-positive and loop forever, so it is
// rejected at construction time.
type ChunkConfigError struct {
	Size    int
	Overlap int
}

func (e *ChunkConfigError) Error() string {
	return fmt.Sprintf("invalid chunk config: size=%d overlap=%d (need size > 0 and 0 <= overlap < size)", e.Size, e.Overlap)
}

// VectorWriteError wraps a failed chunk write. Replace semantics assume the
// delete+insert pair is atomic, so recovery is always a full re-upsert.
type VectorWriteError struct {
	DocID string
	Err   error
}

func (e *VectorWriteError) Error() string {
	return fmt.Sprintf("vector write for document %s: %v", e.DocID, e.Err)
}

func (e *VectorWriteError) Unwrap() error { return e.Err }

// ErrDocumentNotFound is returned by metadata lookups for unknown ids.
var ErrDocumentNotFound = errors.New("document not found")
