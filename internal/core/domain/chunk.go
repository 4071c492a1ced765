package domain

import "time"

// Chunk is the smallest retrievable unit of text produced by a chunking
// strategy. Once persisted as part of a run it is immutable; a new run mints
// new chunk identities rather than reusing old ones.
type Chunk struct {
	// ID is document-scoped with the format "<document_id>:<order %03d>".
	// It is assigned by the chunking service after the strategy returns,
	// so ID formatting is strategy-independent.
	ID string `json:"id"`

	// Order is the 1-based position within the run. Orders within one run
	// are contiguous starting at 1.
	Order int `json:"order"`

	// Content is the chunk text (plain text or markdown).
	Content string `json:"text"`

	// Summary is an optional LLM-produced enrichment.
	Summary string `json:"summary,omitempty"`

	// Tags are optional enrichment keywords (2-3 per chunk).
	Tags []string `json:"tags,omitempty"`

	// SourceDocument is the document the chunk was cut from.
	SourceDocument string `json:"doc_name,omitempty"`

	// SourceRunFile is the chunk-run file the chunk was extracted from.
	SourceRunFile string `json:"source_file,omitempty"`
}

// ChunkStats summarises one strategy invocation.
type ChunkStats struct {
	NumChunks int `json:"num_chunks"`
}

// ChunkResult is the output contract of a chunking strategy.
type ChunkResult struct {
	Chunks []Chunk    `json:"chunks"`
	Stats  ChunkStats `json:"stats"`
}

// ChunkRun describes one persisted invocation of one strategy over one
// converted-text artifact. A document's metadata holds the list of runs,
// resynchronised against the actual file set on every change.
type ChunkRun struct {
	Chunker        string         `json:"chunker"`
	ChunkerVersion string         `json:"chunker_version"`
	Config         map[string]any `json:"variant,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	NumChunks      int            `json:"num_chunks"`
	Filename       string         `json:"filename"`
}

// RunRef identifies a chunk-run file within a category for collection builds.
type RunRef struct {
	Document string
	Filename string
}
