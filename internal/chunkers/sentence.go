package chunkers

import (
	"context"
	"strings"

	"github.com/custodia-labs/ragdex/internal/core/domain"
)

// DefaultSentencesPerChunk is the default group size for the sentence strategy.
const DefaultSentencesPerChunk = 8

// Sentence groups a fixed count of consecutive sentences per chunk.
// The last chunk may hold fewer sentences.
type Sentence struct{}

// NewSentence creates the sentence strategy.
func NewSentence() *Sentence { return &Sentence{} }

// Name returns the registry key.
func (s *Sentence) Name() string { return "sentence_v1" }

// Version returns the strategy version.
func (s *Sentence) Version() string { return Version }

// Chunk splits text into sentences and joins groups of
// "sentences_per_chunk" sentences with single spaces.
func (s *Sentence) Chunk(_ context.Context, text string, cfg Config) (domain.ChunkResult, error) {
	perChunk := cfg.Int("sentences_per_chunk", DefaultSentencesPerChunk)
	if perChunk < 1 {
		return domain.ChunkResult{}, domain.ErrInvalidConfig
	}

	sentences := splitSentences(text)

	var contents []string
	for i := 0; i < len(sentences); i += perChunk {
		end := i + perChunk
		if end > len(sentences) {
			end = len(sentences)
		}
		contents = append(contents, strings.Join(sentences[i:end], " "))
	}

	return result(contents), nil
}
