package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfig indicates a chunker or pipeline configuration that
	// fails validation before any work is attempted.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnknownChunker indicates a chunking strategy name that is not registered.
	ErrUnknownChunker = errors.New("unknown chunker")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Features requiring generation (rewrite, rerank, enrichment) are disabled.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Collection builds and semantic chunking are disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)
