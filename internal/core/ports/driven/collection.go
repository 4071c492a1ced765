package driven

import (
	"context"

	"github.com/custodia-labs/ragdex/internal/core/domain"
)

// CollectionStore persists similarity collections. A collection directory
// holds a flat vector index artifact plus a metadata sidecar; Write must
// publish both atomically so a concurrent reader never observes one artifact
// without the other.
type CollectionStore interface {
	// Write persists a new collection: the row-major vector matrix and its
	// metadata sidecar. An existing collection with the same name is replaced.
	Write(ctx context.Context, meta domain.CollectionMeta, vectors [][]float32) error

	// Load returns a collection's metadata and vectors.
	// Returns domain.ErrNotFound when the collection does not exist.
	Load(ctx context.Context, category, name string) (*domain.CollectionMeta, [][]float32, error)

	// LoadMeta returns only the metadata sidecar.
	// Returns domain.ErrNotFound when the collection does not exist.
	LoadMeta(ctx context.Context, category, name string) (*domain.CollectionMeta, error)

	// Search returns the k chunks nearest to the query vector by squared L2
	// distance, ascending. Returns domain.ErrNotFound when the collection
	// does not exist.
	Search(ctx context.Context, category, name string, query []float32, k int) ([]domain.RetrievedChunk, error)

	// List returns the collection names within a category.
	List(ctx context.Context, category string) ([]string, error)

	// Delete removes a collection irreversibly.
	Delete(ctx context.Context, category, name string) error
}
