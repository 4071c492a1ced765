package domain

import "time"

// CollectionMeta is the metadata sidecar of a similarity collection. The
// ordered Chunks slice backs the index positions: index row i holds the
// embedding of Chunks[i]. A collection is immutable after creation except
// for deletion.
type CollectionMeta struct {
	Name      string    `json:"collection_name"`
	Category  string    `json:"category"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
	NumChunks int       `json:"num_chunks"`
	Chunks    []Chunk   `json:"chunks"`
}

// RetrievedChunk is a search result: a chunk annotated with its raw
// squared-L2 distance. Lower is better.
type RetrievedChunk struct {
	Chunk
	Score float64 `json:"score"`
}
