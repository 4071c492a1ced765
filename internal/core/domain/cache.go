package domain

import "time"

// FilterMode selects which cached answers are trusted enough to serve.
type FilterMode string

const (
	// FilterOnlyPositive requires thumbs_up > 0 and thumbs_down == 0.
	FilterOnlyPositive FilterMode = "only_positive"

	// FilterPosGtNeg requires thumbs_up > thumbs_down.
	FilterPosGtNeg FilterMode = "pos_gt_neg"

	// FilterAny accepts the most recent entry regardless of feedback.
	FilterAny FilterMode = "any"
)

// Feedback is a user verdict on a cached answer.
type Feedback string

const (
	FeedbackUp   Feedback = "up"
	FeedbackDown Feedback = "down"
)

// CacheEntry is one recorded question/answer interaction. Entries are
// append-only except for feedback and hit-count increments: prior answers for
// the same query/state are never overwritten, so feedback history and
// variants accumulate.
type CacheEntry struct {
	ID             int64            `json:"id"`
	Query          string           `json:"query"`
	Answer         string           `json:"answer"`
	Sources        []RetrievedChunk `json:"sources,omitempty"`
	StateHash      string           `json:"state_hash"`
	QueryEmbedding []float32        `json:"-"`
	ThumbsUp       int              `json:"thumbs_up"`
	ThumbsDown     int              `json:"thumbs_down"`
	HitCount       int              `json:"hit_count"`
	Category       string           `json:"category,omitempty"`
	CollectionName string           `json:"collection_name,omitempty"`
	PromptContent  string           `json:"-"`
	ModelName      string           `json:"model_name,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`

	// Rewrite/rerank provenance for auditability.
	RewrittenQuery   string           `json:"rewritten_query,omitempty"`
	RerankUsed       bool             `json:"rerank_used,omitempty"`
	PlausibleSources []RetrievedChunk `json:"plausible_sources,omitempty"`
	RerankPrompt     string           `json:"-"`
	RewritePrompt    string           `json:"-"`
}

// CacheHit is a successful lookup: the entry plus the similarity that
// matched it (1.0 for exact query matches).
type CacheHit struct {
	Entry      CacheEntry
	Similarity float64
}
