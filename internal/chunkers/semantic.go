package chunkers

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/custodia-labs/ragdex/internal/core/domain"
	"github.com/custodia-labs/ragdex/internal/core/ports/driven"
)

// Defaults for the semantic strategy.
const (
	// DefaultThresholdPercentile is the breakpoint percentile over the
	// consecutive-sentence cosine distances.
	DefaultThresholdPercentile = 95.0

	// embedBatchSize bounds a single embedding request.
	embedBatchSize = 100
)

// Semantic splits at topic shifts: sentences are embedded, consecutive
// pairs compared by cosine distance, and a new chunk starts wherever the
// distance exceeds the configured percentile of all pairwise distances.
//
// This is the only strategy with an external dependency; the embedding
// service is injected at construction and the strategy stays deterministic
// for a deterministic embedder.
type Semantic struct {
	embedder driven.EmbeddingService
}

// NewSemantic creates the semantic strategy around an embedding service.
func NewSemantic(embedder driven.EmbeddingService) *Semantic {
	return &Semantic{embedder: embedder}
}

// Name returns the registry key.
func (s *Semantic) Name() string { return "semantic_v1" }

// Version returns the strategy version.
func (s *Semantic) Version() string { return Version }

// Chunk embeds sentences in batches and groups them by breakpoint.
// An embedding failure degrades to a single diagnostic chunk describing the
// error; it never returns the error itself.
func (s *Semantic) Chunk(ctx context.Context, text string, cfg Config) (domain.ChunkResult, error) {
	percentile := cfg.Float("threshold_percentile", DefaultThresholdPercentile)
	if percentile < 0 || percentile > 100 {
		return domain.ChunkResult{}, domain.ErrInvalidConfig
	}
	if s.embedder == nil {
		return domain.ChunkResult{}, domain.ErrEmbeddingUnavailable
	}

	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return result(nil), nil
	}
	if len(sentences) == 1 {
		return result([]string{sentences[0]}), nil
	}

	vectors, err := s.embedAll(ctx, sentences)
	if err != nil {
		return result([]string{fmt.Sprintf("Embedding Error: %v", err)}), nil
	}

	for i := range vectors {
		normalise(vectors[i])
	}

	distances := make([]float64, len(vectors)-1)
	for i := 0; i < len(vectors)-1; i++ {
		distances[i] = 1 - dot(vectors[i], vectors[i+1])
	}
	threshold := percentileOf(distances, percentile)

	var contents []string
	current := []string{sentences[0]}
	for i, dist := range distances {
		if dist > threshold {
			contents = append(contents, strings.Join(current, " "))
			current = []string{sentences[i+1]}
		} else {
			current = append(current, sentences[i+1])
		}
	}
	contents = append(contents, strings.Join(current, " "))

	return result(contents), nil
}

// embedAll requests embeddings in sequential bounded batches.
func (s *Semantic) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := s.embedder.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// normalise scales a vector to unit length in place.
func normalise(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
}

// dot returns the inner product of two equal-length vectors.
func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// percentileOf computes the p-th percentile with linear interpolation
// between order statistics.
func percentileOf(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	rank := p / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	if lower >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := rank - float64(lower)
	return sorted[lower] + frac*(sorted[lower+1]-sorted[lower])
}
