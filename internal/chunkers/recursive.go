package chunkers

import (
	"context"
	"strings"

	"github.com/custodia-labs/ragdex/internal/core/domain"
)

// Default sizes for the recursive strategy, in characters.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// defaultSeparators are tried in priority order; the empty string means a
// character-level split and always matches.
var defaultSeparators = []string{"\n\n", "\n", " ", ""}

// Recursive splits text by a separator priority list, recursing with the
// remaining separators on pieces that still exceed the target size, then
// greedily merges accepted pieces into chunks with a trailing overlap window.
type Recursive struct{}

// NewRecursive creates the recursive strategy.
func NewRecursive() *Recursive { return &Recursive{} }

// Name returns the registry key.
func (r *Recursive) Name() string { return "recursive_v1" }

// Version returns the strategy version.
func (r *Recursive) Version() string { return Version }

// Chunk validates the size/overlap pair, splits, then merges.
func (r *Recursive) Chunk(_ context.Context, text string, cfg Config) (domain.ChunkResult, error) {
	chunkSize := cfg.Int("chunk_size", DefaultChunkSize)
	overlap := cfg.Int("chunk_overlap", DefaultChunkOverlap)
	if chunkSize < 1 || overlap < 0 || overlap >= chunkSize {
		return domain.ChunkResult{}, domain.ErrInvalidConfig
	}

	splits := splitRecursive(text, defaultSeparators, chunkSize)
	contents := mergeSplits(splits, chunkSize, overlap)

	return result(contents), nil
}

// splitRecursive cuts text with the first separator that occurs in it; any
// piece still over chunkSize is re-split with the remaining separators.
// A piece that exceeds chunkSize after the separator list is exhausted is
// accepted as-is.
func splitRecursive(text string, separators []string, chunkSize int) []string {
	separator := separators[len(separators)-1]
	var remaining []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			remaining = separators[i+1:]
			break
		}
	}

	var splits []string
	if separator != "" {
		splits = strings.Split(text, separator)
	} else {
		splits = make([]string, 0, len(text))
		for _, r := range text {
			splits = append(splits, string(r))
		}
	}

	var accepted []string
	for _, split := range splits {
		if len(split) < chunkSize {
			accepted = append(accepted, split)
			continue
		}
		if len(remaining) > 0 {
			accepted = append(accepted, splitRecursive(split, remaining, chunkSize)...)
		} else {
			accepted = append(accepted, split)
		}
	}
	return accepted
}

// mergeSplits greedily packs accepted pieces into chunks of at most
// chunkSize. When a piece would overflow, the current chunk is closed and a
// trailing overlap window, computed by walking backward from its end until
// the overlap size is reached, seeds the next chunk.
func mergeSplits(splits []string, chunkSize, overlap int) []string {
	var chunks []string
	var current []string
	currentLen := 0

	for _, split := range splits {
		if currentLen+len(split) > chunkSize && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, ""))

			var window []string
			windowLen := 0
			for i := len(current) - 1; i >= 0; i-- {
				if windowLen+len(current[i]) >= overlap {
					break
				}
				window = append([]string{current[i]}, window...)
				windowLen += len(current[i])
			}
			current = window
			currentLen = windowLen
		}

		current = append(current, split)
		currentLen += len(split)
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, ""))
	}
	return chunks
}
