package service

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedContentKind = errors.New("unsupported content kind")
	ErrNoExtractableText      = errors.New("no extractable text")
	ErrEmbeddingMismatch      = errors.New("vector index is bound to a different embedding configuration")
	ErrFileTooLarge           = errors.New("file exceeds maximum upload size")
)

// ExtractionError reports an unsupported or unreadable source file.
type ExtractionError struct {
	Path        string
	ContentType string
	Err         error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s (%s): %v", e.Path, e.ContentType, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

type ChunkingError struct {
	Err error
}

func (e *ChunkingError) Error() string { return "chunk text: " + e.Err.Error() }

func (e *ChunkingError) Unwrap() error { return e.Err }

// EmbeddingProviderError covers transport, status and response-shape failures
// of the embedding backend. StatusCode is zero when no response was received.
type EmbeddingProviderError struct {
	Op         string
	StatusCode int
	Timeout    bool
	Err        error
}

func (e *EmbeddingProviderError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("embedding %s: timed out: %v", e.Op, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("embedding %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("embedding %s: %v", e.Op, e.Err)
	}
}

func (e *EmbeddingProviderError) Unwrap() error { return e.Err }

// IndexUnavailableError wraps a failed indexing batch. It is never fatal to
// document processing.
type IndexUnavailableError struct {
	Err error
}

func (e *IndexUnavailableError) Error() string { return "vector index unavailable: " + e.Err.Error() }

func (e *IndexUnavailableError) Unwrap() error { return e.Err }

type RetrievalError struct {
	Err error
}

func (e *RetrievalError) Error() string { return "retrieve chunks: " + e.Err.Error() }

func (e *RetrievalError) Unwrap() error { return e.Err }

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", r)
}
