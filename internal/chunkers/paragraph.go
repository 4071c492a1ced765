package chunkers

import (
	"context"
	"strings"

	"github.com/custodia-labs/ragdex/internal/core/domain"
)

// DefaultMinChunkLength is the default accumulation threshold in characters.
const DefaultMinChunkLength = 400

// Paragraph greedily accumulates blank-line-delimited paragraphs until the
// accumulated length reaches a minimum threshold, then emits a chunk. The
// remainder is flushed as a final chunk even when under the threshold.
type Paragraph struct{}

// NewParagraph creates the paragraph strategy.
func NewParagraph() *Paragraph { return &Paragraph{} }

// Name returns the registry key.
func (p *Paragraph) Name() string { return "paragraph_v1" }

// Version returns the strategy version.
func (p *Paragraph) Version() string { return Version }

// Chunk splits on blank lines and merges short paragraphs forward.
func (p *Paragraph) Chunk(_ context.Context, text string, cfg Config) (domain.ChunkResult, error) {
	minLength := cfg.Int("min_length", DefaultMinChunkLength)
	if minLength < 1 {
		return domain.ChunkResult{}, domain.ErrInvalidConfig
	}

	var paragraphs []string
	for _, part := range strings.Split(text, "\n\n") {
		part = strings.TrimSpace(part)
		if part != "" {
			paragraphs = append(paragraphs, part)
		}
	}

	var contents []string
	var current []string
	currentLen := 0

	for _, para := range paragraphs {
		current = append(current, para)
		currentLen += len(para)

		if currentLen >= minLength {
			contents = append(contents, strings.Join(current, "\n\n"))
			current = nil
			currentLen = 0
		}
	}
	if len(current) > 0 {
		contents = append(contents, strings.Join(current, "\n\n"))
	}

	return result(contents), nil
}
