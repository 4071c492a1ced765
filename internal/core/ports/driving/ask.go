package driving

import (
	"context"

	"github.com/custodia-labs/ragdex/internal/core/domain"
)

// AskService runs the retrieval pipeline for one query and streams the
// result. The returned channel is closed when the pipeline finishes or the
// context is cancelled; abandoning the channel abandons any in-flight
// generation.
type AskService interface {
	AnswerStream(ctx context.Context, req domain.AskRequest) <-chan domain.AskEvent

	// Feedback records a user verdict against the most recent cache entry
	// for the query under the given state hash.
	Feedback(ctx context.Context, query, stateHash string, fb domain.Feedback) error
}
