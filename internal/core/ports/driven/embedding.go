package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// Implementations may include:
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Local inference servers exposing the OpenAI wire format (LM Studio, Ollama)
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in one call.
	// Results are ordered to match the input.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// ModelName returns the name of the embedding model being used.
	ModelName() string
}

// EmbeddingProvider constructs an EmbeddingService bound to a specific model.
// Collections record the model they were built with; searches must embed the
// query with that same model, so the provider resolves models at call time.
type EmbeddingProvider interface {
	// ForModel returns an embedding service for the named model.
	ForModel(model string) EmbeddingService
}
