package driving

import (
	"context"

	"github.com/custodia-labs/ragdex/internal/chunkers"
	"github.com/custodia-labs/ragdex/internal/core/domain"
)

// ChunkingService turns converted document text into persisted chunk runs.
type ChunkingService interface {
	// Run executes the named strategy over one converted artifact, persists
	// the run file and resynchronises the document's run descriptors.
	// Returns the created run descriptor.
	Run(ctx context.Context, category, doc, convertedFilename, chunkerName string, cfg chunkers.Config) (*domain.ChunkRun, error)

	// DeleteRun removes a persisted run file and resynchronises metadata.
	DeleteRun(ctx context.Context, category, doc, filename string) error

	// ListChunkers returns the registered strategy names.
	ListChunkers() []string
}
