package driving

import (
	"context"

	"github.com/custodia-labs/ragdex/internal/core/domain"
)

// CollectionService manages the lifecycle of similarity collections.
type CollectionService interface {
	// Create builds and persists a new collection from the given chunk
	// runs. Failures are reported as (false, message) rather than panics;
	// err is reserved for context cancellation.
	Create(ctx context.Context, category, name string, runs []domain.RunRef, model string, enrich bool) (bool, string)

	// Search returns the k nearest chunks for a query. A missing
	// collection yields an empty slice, not an error.
	Search(ctx context.Context, category, name, query string, k int) ([]domain.RetrievedChunk, error)

	// List returns the collection names within a category.
	List(ctx context.Context, category string) ([]string, error)

	// Delete removes a collection irreversibly.
	Delete(ctx context.Context, category, name string) error
}
