package domain

// AskEventType discriminates the events emitted by the ask pipeline.
type AskEventType string

const (
	// EventState carries the computed state hash, emitted first so callers
	// can correlate later feedback.
	EventState AskEventType = "state"

	// EventCachedAnswer carries a full answer served from the cache,
	// annotated with the match similarity.
	EventCachedAnswer AskEventType = "cached_answer"

	// EventRewrite carries the retrieval-optimised form of the query.
	EventRewrite AskEventType = "rewrite"

	// EventPlausibleSources carries the originally retrieved set before
	// re-ranking, emitted for transparency.
	EventPlausibleSources AskEventType = "plausible_sources"

	// EventAnswerDelta carries one increment of the streamed answer.
	EventAnswerDelta AskEventType = "answer"

	// EventSources carries the final source chunks, emitted last.
	EventSources AskEventType = "sources"
)

// AskEvent is one element of the streamed pipeline output. Exactly one of
// Content, Sources or Similarity is meaningful depending on Type.
type AskEvent struct {
	Type       AskEventType
	Content    string
	Sources    []RetrievedChunk
	Similarity float64
}

// AskRequest configures one pass through the retrieval pipeline.
type AskRequest struct {
	Category   string
	Collection string
	Query      string

	// TopK is the number of chunks to retrieve (default 3).
	TopK int

	// FilterMode gates cache hits by feedback quality.
	FilterMode FilterMode

	// SimilarityThreshold enables approximate cache matching when < 1.0.
	SimilarityThreshold float64

	// Rewrite enables LLM query rewriting before retrieval.
	Rewrite bool

	// Rerank enables LLM re-ranking of the retrieved set.
	Rerank bool

	// RerankTopN is the number of chunks to keep after re-ranking
	// (default 3, capped at TopK).
	RerankTopN int

	Temperature float64
	MaxTokens   int
}
