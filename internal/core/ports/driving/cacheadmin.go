package driving

import (
	"context"

	"github.com/custodia-labs/ragdex/internal/core/domain"
)

// CacheAdminService exposes inspection and maintenance of the answer cache.
type CacheAdminService interface {
	// List returns entries newest first, optionally filtered by category
	// and collection name (empty strings match everything).
	List(ctx context.Context, category, collection string) ([]domain.CacheEntry, error)

	// Delete removes a single entry by ID.
	Delete(ctx context.Context, id int64) error

	// PurgeAll removes every entry.
	PurgeAll(ctx context.Context) error

	// Feedback records a user verdict against the most recent entry for
	// the query under the given state hash.
	Feedback(ctx context.Context, query, stateHash string, fb domain.Feedback) error
}
