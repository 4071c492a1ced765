package driven

import (
	"context"

	"github.com/custodia-labs/ragdex/internal/core/domain"
)

// LLMService provides text generation for answering, query rewriting,
// re-ranking and chunk enrichment.
//
// Implementations may include:
//   - OpenAI (GPT-4o family)
//   - Local inference servers exposing the OpenAI wire format (LM Studio, Ollama)
type LLMService interface {
	// Generate produces a complete text completion from a prompt.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// GenerateStream produces a completion as an incremental text stream.
	// The returned stream must be consumed from a single goroutine; the
	// caller cancels by stopping consumption and cancelling ctx.
	GenerateStream(ctx context.Context, prompt string, opts GenerateOptions) (TextStream, error)

	// Enrich produces a bounded summary and 2-3 topic tags for a chunk.
	// Non-conforming model output is returned as an error; callers degrade
	// to an empty enrichment rather than failing the build.
	Enrich(ctx context.Context, chunkText string, maxChars int) (domain.Enrichment, error)

	// ModelName returns the name of the generation model being used.
	ModelName() string
}

// GenerateOptions configures text generation behaviour.
type GenerateOptions struct {
	// Model overrides the service's default model when non-empty.
	Model string

	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64
}

// TextStream is a single-consumer sequence of text increments.
// Recv blocks until the next increment is available and returns io.EOF when
// the stream is complete. Close releases the underlying transport; it is
// safe to call after an error.
type TextStream interface {
	Recv() (string, error)
	Close() error
}
