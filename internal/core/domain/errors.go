package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input, such as a bad
	// chunker configuration. Never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDimensionMismatch indicates a stored or query vector whose length
	// differs from the store's configured embedding dimension. This is an
	// input-validation failure, not a retry condition.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrIntegrity indicates a referential violation: a chunk referencing a
	// nonexistent document, or a duplicate chunk index within a document.
	ErrIntegrity = errors.New("integrity violation")

	// ErrCapabilityUnavailable indicates the native vector-similarity
	// operator is not present. The search engine degrades to the
	// brute-force path; callers never see this as a failure.
	ErrCapabilityUnavailable = errors.New("vector capability unavailable")

	// ErrSearchTimeout indicates an externally imposed deadline expired
	// during a similarity scan. Retryable with a narrower filter.
	ErrSearchTimeout = errors.New("search timed out")

	// ErrEmbeddingFailed indicates the embedding provider could not produce
	// vectors. Retry policy belongs to the provider client, not here.
	ErrEmbeddingFailed = errors.New("embedding request failed")
)
