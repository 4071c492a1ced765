package domain

// Enrichment is an LLM-derived summary and tag set attached to a chunk to
// improve embedding quality. A failed enrichment degrades to the zero value,
// never to an error that aborts a collection build.
type Enrichment struct {
	Summary string   `json:"summary"`
	Tags    []string `json:"tags"`
}
