package domain

import "errors"

// Domain errors represent business logic failures.
// Adapters translate library errors into these at the boundary.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown backend or provider name.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrUnsupportedContent indicates uploaded bytes no normaliser can turn into text.
	ErrUnsupportedContent = errors.New("unsupported content")

	// Chunking Errors.

	// ErrInvalidChunkingConfig indicates max_tokens or overlap are out of range.
	// Requires max_tokens > 0 and 0 <= overlap < max_tokens. Never retried.
	ErrInvalidChunkingConfig = errors.New("invalid chunking config")

	// ErrUnsupportedScheme indicates an unknown tokenization scheme.
	ErrUnsupportedScheme = errors.New("unsupported tokenization scheme")

	// Embedding Errors.

	// ErrEmbeddingRequestInvalid indicates the embedding service rejected the
	// request (bad input, auth failure). Never retried.
	ErrEmbeddingRequestInvalid = errors.New("embedding request invalid")

	// ErrEmbeddingServiceUnavailable indicates transient failures persisted
	// past the retry limit.
	ErrEmbeddingServiceUnavailable = errors.New("embedding service unavailable")

	// ErrRateLimited indicates the external service rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrRecordCountMismatch indicates chunk and vector counts diverged.
	// Always an internal bug; never silently corrected.
	ErrRecordCountMismatch = errors.New("record count mismatch")

	// Storage Errors.

	// ErrStorageUnavailable indicates a blob, metadata or index collaborator failed.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrSearchUnavailable indicates the requested search mode has no backing index.
	ErrSearchUnavailable = errors.New("search unavailable")
)
