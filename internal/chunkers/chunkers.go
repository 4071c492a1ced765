// Package chunkers provides the text segmentation strategies and their
// registry. A chunker is pure with respect to its inputs: the same text and
// config always produce the same chunk boundaries, and no strategy performs
// I/O beyond an injected embedding service.
package chunkers

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/ragdex/internal/core/domain"
)

// Version is the shared strategy version. Bumping it re-mints run
// identities for every strategy.
const Version = "1.0"

// Chunker turns document text into an ordered sequence of chunks.
// Chunk IDs are assigned by the caller after the strategy returns, so
// strategies leave the ID field empty.
type Chunker interface {
	// Name returns the unique registry key, e.g. "sentence_v1".
	Name() string

	// Version returns the strategy version.
	Version() string

	// Chunk segments text. Returned orders are a contiguous 1..N sequence.
	// The context is only observed by strategies with an injected external
	// dependency (semantic embedding calls).
	Chunk(ctx context.Context, text string, cfg Config) (domain.ChunkResult, error)
}

// Config carries strategy parameters. Unknown keys are ignored; missing keys
// fall back to strategy defaults.
type Config map[string]any

// Int returns an integer parameter or def when absent or mistyped.
func (c Config) Int(key string, def int) int {
	switch v := c[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

// Float returns a float parameter or def when absent or mistyped.
func (c Config) Float(key string, def float64) float64 {
	switch v := c[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return def
	}
}

// Bool returns a boolean parameter or def when absent or mistyped.
func (c Config) Bool(key string, def bool) bool {
	if v, ok := c[key].(bool); ok {
		return v
	}
	return def
}

// Registry dispatches chunkers by name. Registering a duplicate name
// replaces the earlier entry.
type Registry struct {
	mu       sync.RWMutex
	chunkers map[string]Chunker
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{chunkers: make(map[string]Chunker)}
}

// Register adds a chunker under its name.
func (r *Registry) Register(c Chunker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunkers[c.Name()] = c
}

// Get returns the chunker registered under name.
// Returns domain.ErrUnknownChunker when no such strategy exists.
func (r *Registry) Get(name string) (Chunker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.chunkers[name]
	if !ok {
		return nil, domain.ErrUnknownChunker
	}
	return c, nil
}

// Names returns the registered strategy names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.chunkers))
	for name := range r.chunkers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// splitSentences splits text on sentence-ending punctuation followed by
// whitespace. The punctuation stays attached to the preceding sentence.
// Empty sentences are dropped.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '.', '!', '?':
			// Consume a run of terminators, then require whitespace.
			j := i
			for j+1 < len(runes) && (runes[j+1] == '.' || runes[j+1] == '!' || runes[j+1] == '?') {
				j++
			}
			if j+1 >= len(runes) || isSpace(runes[j+1]) {
				s := strings.TrimSpace(string(runes[start : j+1]))
				if s != "" {
					sentences = append(sentences, s)
				}
				start = j + 1
			}
			i = j
		}
	}
	if start < len(runes) {
		s := strings.TrimSpace(string(runes[start:]))
		if s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// result assembles a ChunkResult from ordered chunk contents.
func result(contents []string) domain.ChunkResult {
	chunks := make([]domain.Chunk, 0, len(contents))
	for i, content := range contents {
		chunks = append(chunks, domain.Chunk{
			Order:   i + 1,
			Content: content,
		})
	}
	return domain.ChunkResult{
		Chunks: chunks,
		Stats:  domain.ChunkStats{NumChunks: len(chunks)},
	}
}
