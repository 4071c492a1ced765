package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files, embed them in the binary,
// or fetch them from a remote configuration service.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	// This is useful when prompts may have been edited on disk.
	Reload()
}

// Well-known prompt names used throughout the application.
const (
	// PromptAnswer is the answer-generation template. It expects
	// {{context}} and {{query}} placeholders.
	PromptAnswer = "rag_answer"

	// PromptEnrichChunk asks for a JSON summary/tags object. It expects
	// {{max_chars}} and {{chunk_text}} placeholders.
	PromptEnrichChunk = "enrich_chunk"

	// PromptQueryRewrite rewrites a user query for retrieval. It expects a
	// {{query}} placeholder.
	PromptQueryRewrite = "query_rewrite"

	// PromptRerank asks for a JSON list of the most relevant chunk indices.
	// It expects {{query}}, {{top_n}} and {{chunks}} placeholders.
	PromptRerank = "rerank"
)
