package driven

import (
	"context"

	"github.com/custodia-labs/ragdex/internal/core/domain"
)

// CacheCheckRequest parameterises a two-stage cache lookup.
type CacheCheckRequest struct {
	Query     string
	StateHash string
	Filter    domain.FilterMode

	// QueryEmbedding enables the approximate stage when non-nil.
	QueryEmbedding []float32

	// SimilarityThreshold is the minimum cosine similarity for an
	// approximate match. Values >= 1.0 disable the approximate stage.
	SimilarityThreshold float64
}

// ResponseCache is the persisted store of prior question/answer interactions,
// keyed by (state_hash, query) with an embedding-similarity fallback.
type ResponseCache interface {
	// Check performs the exact-then-approximate lookup. A miss returns
	// (nil, nil); misses are a normal outcome, not a fault. A hit
	// increments the entry's hit count.
	Check(ctx context.Context, req CacheCheckRequest) (*domain.CacheHit, error)

	// Save appends a new entry. Existing entries for the same query and
	// state are never overwritten.
	Save(ctx context.Context, entry domain.CacheEntry) error

	// UpdateFeedback increments the feedback counter on the most recent
	// entry matching query and state hash. No-op when nothing matches.
	UpdateFeedback(ctx context.Context, query, stateHash string, fb domain.Feedback) error

	// List returns entries newest first, optionally filtered by category
	// and collection name (empty strings match everything).
	List(ctx context.Context, category, collection string) ([]domain.CacheEntry, error)

	// Delete removes a single entry by ID.
	Delete(ctx context.Context, id int64) error

	// PurgeAll removes every entry.
	PurgeAll(ctx context.Context) error

	// Close releases the underlying database.
	Close() error
}
