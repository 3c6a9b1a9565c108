package core

import "errors"

// Error kinds surfaced by the pipeline. Components wrap these with %w so
// callers can classify failures with errors.Is regardless of the backend that
// produced them.
var (
	// ErrExtraction means the PDF backend could not read the source bytes.
	ErrExtraction = errors.New("extraction failed")

	// ErrInvalidConfiguration means a caller violated a contract such as a
	// non-positive chunk size or batch size.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrEmbeddingBackend means the embedding service kept failing after the
	// retry budget was exhausted.
	ErrEmbeddingBackend = errors.New("embedding backend failed")

	// ErrPersistence means a store write failed. The writer does not retry;
	// the idempotent chunk key makes a later re-run safe.
	ErrPersistence = errors.New("persistence failed")

	// ErrStorageFetch means the document blob is missing or unreadable.
	ErrStorageFetch = errors.New("storage fetch failed")
)
