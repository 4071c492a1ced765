package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/ragdex/internal/core/domain"
	"github.com/custodia-labs/ragdex/internal/core/ports/driven"
	"github.com/custodia-labs/ragdex/internal/core/ports/driving"
	"github.com/custodia-labs/ragdex/internal/logger"
)

// Ensure CollectionService implements the interface.
var _ driving.CollectionService = (*CollectionService)(nil)

// Enrichment and embedding limits for collection builds.
const (
	// enrichMaxChars bounds the per-chunk summary length.
	enrichMaxChars = 300

	// embedBatchSize bounds a single embedding request.
	embedBatchSize = 100
)

// CollectionService builds, searches and manages similarity collections.
type CollectionService struct {
	docStore   driven.DocumentStore
	store      driven.CollectionStore
	embeddings driven.EmbeddingProvider
	llm        driven.LLMService
}

// NewCollectionService creates a new collection service.
// The llm parameter is optional (can be nil); enrichment is then skipped.
func NewCollectionService(
	docStore driven.DocumentStore,
	store driven.CollectionStore,
	embeddings driven.EmbeddingProvider,
	llm driven.LLMService,
) *CollectionService {
	return &CollectionService{
		docStore:   docStore,
		store:      store,
		embeddings: embeddings,
		llm:        llm,
	}
}

// Create builds and persists a new collection from the given chunk runs.
// User-level failures (no chunks, embedding outage) are reported as
// (false, message) so callers can surface them without stack traces.
func (s *CollectionService) Create(
	ctx context.Context, category, name string, runs []domain.RunRef, model string, enrich bool,
) (bool, string) {
	logger.Section("Collection Build")
	logger.Debug("Collection: %s/%s, model: %s, runs: %d, enrich: %t", category, name, model, len(runs), enrich)

	chunks, err := s.collectChunks(ctx, category, runs)
	if err != nil {
		return false, fmt.Sprintf("Failed to read chunk runs: %v", err)
	}
	if len(chunks) == 0 {
		return false, "No chunks found in the selected chunk runs."
	}
	logger.Info("Collected %d chunks from %d runs", len(chunks), len(runs))

	if enrich && s.llm != nil {
		s.enrichChunks(ctx, chunks)
	}

	embedder := s.embeddings.ForModel(model)
	vectors, err := s.embedChunks(ctx, embedder, chunks)
	if err != nil {
		return false, fmt.Sprintf("Embedding failed: %v", err)
	}

	meta := domain.CollectionMeta{
		Name:      name,
		Category:  category,
		Model:     embedder.ModelName(),
		CreatedAt: time.Now().UTC(),
		NumChunks: len(chunks),
		Chunks:    chunks,
	}
	if err := s.store.Write(ctx, meta, vectors); err != nil {
		return false, fmt.Sprintf("Failed to persist collection: %v", err)
	}

	return true, fmt.Sprintf("Collection %q created with %d chunks.", name, len(chunks))
}

// Search returns the k nearest chunks for a query, embedded with the model
// the collection was built with. A missing collection yields an empty slice.
func (s *CollectionService) Search(
	ctx context.Context, category, name, query string, k int,
) ([]domain.RetrievedChunk, error) {
	if k <= 0 {
		k = 3
	}

	meta, err := s.store.LoadMeta(ctx, category, name)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return []domain.RetrievedChunk{}, nil
		}
		return nil, fmt.Errorf("load collection: %w", err)
	}

	qvec, err := s.embeddings.ForModel(meta.Model).Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := s.store.Search(ctx, category, name, qvec, k)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return []domain.RetrievedChunk{}, nil
		}
		return nil, fmt.Errorf("search collection: %w", err)
	}
	return results, nil
}

// List returns the collection names within a category.
func (s *CollectionService) List(ctx context.Context, category string) ([]string, error) {
	return s.store.List(ctx, category)
}

// Delete removes a collection irreversibly.
func (s *CollectionService) Delete(ctx context.Context, category, name string) error {
	return s.store.Delete(ctx, category, name)
}

// collectChunks extracts and annotates the chunks of every referenced run.
func (s *CollectionService) collectChunks(
	ctx context.Context, category string, runs []domain.RunRef,
) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	for _, ref := range runs {
		content, err := s.docStore.ReadChunkRun(ctx, category, ref.Document, ref.Filename)
		if err != nil {
			return nil, fmt.Errorf("run %s/%s: %w", ref.Document, ref.Filename, err)
		}
		extracted := domain.ExtractChunks(content, ref.Filename)
		for i := range extracted {
			extracted[i].SourceDocument = ref.Document
		}
		chunks = append(chunks, extracted...)
	}
	return chunks, nil
}

// enrichChunks attaches an LLM summary and tags to each chunk. Enrichment
// failures degrade to plain chunks; a build never fails on enrichment.
func (s *CollectionService) enrichChunks(ctx context.Context, chunks []domain.Chunk) {
	enriched := 0
	for i := range chunks {
		e, err := s.llm.Enrich(ctx, chunks[i].Content, enrichMaxChars)
		if err != nil {
			logger.Warn("Enrichment failed for chunk %s: %v", chunks[i].ID, err)
			continue
		}
		chunks[i].Summary = e.Summary
		chunks[i].Tags = e.Tags
		enriched++
	}
	logger.Info("Enriched %d/%d chunks", enriched, len(chunks))
}

// embedChunks embeds every chunk in bounded batches. Enriched chunks embed a
// composite of summary, tags and text so topical matches surface even when
// the literal wording differs.
func (s *CollectionService) embedChunks(
	ctx context.Context, embedder driven.EmbeddingService, chunks []domain.Chunk,
) ([][]float32, error) {
	inputs := make([]string, len(chunks))
	for i, c := range chunks {
		inputs[i] = embedInput(c)
	}

	vectors := make([][]float32, 0, len(inputs))
	for start := 0; start < len(inputs); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(inputs) {
			end = len(inputs)
		}
		batch, err := embedder.EmbedBatch(ctx, inputs[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// embedInput builds the text that actually gets embedded for a chunk.
func embedInput(c domain.Chunk) string {
	if c.Summary == "" && len(c.Tags) == 0 {
		return c.Content
	}
	return fmt.Sprintf("Summary: %s | Tags: %s | %s", c.Summary, strings.Join(c.Tags, ", "), c.Content)
}
