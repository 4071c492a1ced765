package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/ragdex/internal/chunkers"
	"github.com/custodia-labs/ragdex/internal/core/domain"
	"github.com/custodia-labs/ragdex/internal/core/ports/driven"
	"github.com/custodia-labs/ragdex/internal/core/ports/driving"
	"github.com/custodia-labs/ragdex/internal/logger"
)

// Ensure ChunkingService implements the interface.
var _ driving.ChunkingService = (*ChunkingService)(nil)

// ChunkingService executes chunking strategies over converted documents and
// maintains the per-document run descriptors.
type ChunkingService struct {
	docStore driven.DocumentStore
	registry *chunkers.Registry
}

// NewChunkingService creates a new chunking service.
func NewChunkingService(docStore driven.DocumentStore, registry *chunkers.Registry) *ChunkingService {
	return &ChunkingService{
		docStore: docStore,
		registry: registry,
	}
}

// Run executes the named strategy over one converted artifact, persists the
// run file and resynchronises the document's run descriptors.
func (s *ChunkingService) Run(
	ctx context.Context, category, doc, convertedFilename, chunkerName string, cfg chunkers.Config,
) (*domain.ChunkRun, error) {
	logger.Section("Chunking Run")
	logger.Debug("Document: %s/%s, artifact: %s, strategy: %s", category, doc, convertedFilename, chunkerName)

	chunker, err := s.registry.Get(chunkerName)
	if err != nil {
		return nil, fmt.Errorf("strategy %q: %w", chunkerName, err)
	}

	text, err := s.docStore.ReadConvertedText(ctx, category, doc, convertedFilename)
	if err != nil {
		return nil, fmt.Errorf("read converted text: %w", err)
	}

	meta, err := s.docStore.LoadMetadata(ctx, category, doc)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("load document metadata: %w", err)
		}
		// First run against a document the ingestion pipeline has not
		// registered yet: mint an identity so chunk IDs stay stable.
		meta = &domain.DocumentMetadata{
			DocumentID: uuid.NewString(),
			Name:       doc,
			CreatedAt:  time.Now().UTC(),
		}
	}

	result, err := chunker.Chunk(ctx, text, cfg)
	if err != nil {
		return nil, fmt.Errorf("chunk %s/%s with %s: %w", category, doc, chunkerName, err)
	}
	logger.Info("Produced %d chunks", result.Stats.NumChunks)

	// Chunk identity is assigned here so every strategy shares one format.
	for i := range result.Chunks {
		result.Chunks[i].ID = fmt.Sprintf("%s:%03d", meta.DocumentID, result.Chunks[i].Order)
		result.Chunks[i].SourceDocument = doc
	}

	filename := runFilename(doc, convertedFilename, chunker)
	if err := s.docStore.PersistChunkRun(ctx, category, doc, filename, domain.EncodeRunFile(result.Chunks)); err != nil {
		return nil, fmt.Errorf("persist chunk run: %w", err)
	}
	logger.Debug("Persisted run file %s", filename)

	run := domain.ChunkRun{
		Chunker:        chunker.Name(),
		ChunkerVersion: chunker.Version(),
		Config:         cfg,
		CreatedAt:      time.Now().UTC(),
		NumChunks:      result.Stats.NumChunks,
		Filename:       filename,
	}

	if err := s.resyncRuns(ctx, category, doc, meta, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// DeleteRun removes a persisted run file and resynchronises metadata.
func (s *ChunkingService) DeleteRun(ctx context.Context, category, doc, filename string) error {
	if err := s.docStore.DeleteChunkRun(ctx, category, doc, filename); err != nil {
		return fmt.Errorf("delete chunk run: %w", err)
	}

	meta, err := s.docStore.LoadMetadata(ctx, category, doc)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load document metadata: %w", err)
	}
	return s.resyncRuns(ctx, category, doc, meta, nil)
}

// ListChunkers returns the registered strategy names.
func (s *ChunkingService) ListChunkers() []string {
	return s.registry.Names()
}

// resyncRuns reconciles the metadata run list against the files actually on
// disk, appends newRun when given, and saves. Descriptors whose files were
// removed out of band are dropped.
func (s *ChunkingService) resyncRuns(
	ctx context.Context, category, doc string, meta *domain.DocumentMetadata, newRun *domain.ChunkRun,
) error {
	files, err := s.docStore.ListChunkRunFiles(ctx, category, doc)
	if err != nil {
		return fmt.Errorf("list chunk run files: %w", err)
	}
	existing := make(map[string]bool, len(files))
	for _, f := range files {
		existing[f] = true
	}

	kept := meta.Chunking[:0]
	for _, run := range meta.Chunking {
		if !existing[run.Filename] {
			logger.Debug("Dropping stale run descriptor %s", run.Filename)
			continue
		}
		if newRun != nil && run.Filename == newRun.Filename {
			// Re-running a strategy replaces its descriptor.
			continue
		}
		kept = append(kept, run)
	}
	if newRun != nil {
		kept = append(kept, *newRun)
	}
	meta.Chunking = kept

	if err := s.docStore.SaveMetadata(ctx, category, doc, meta); err != nil {
		return fmt.Errorf("save document metadata: %w", err)
	}
	return nil
}

// runFilename builds the chunk-run filename:
// <doc>__<converter>__<chunker>__v<version>.md with dots in the version
// replaced by underscores.
func runFilename(doc, convertedFilename string, chunker chunkers.Chunker) string {
	version := "v" + strings.ReplaceAll(chunker.Version(), ".", "_")
	return fmt.Sprintf("%s__%s__%s__%s.md", doc, domain.ConverterInfo(convertedFilename), chunker.Name(), version)
}
