package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/ragdex/internal/core/domain"
	"github.com/custodia-labs/ragdex/internal/core/ports/driven"
	"github.com/custodia-labs/ragdex/internal/core/ports/driving"
	"github.com/custodia-labs/ragdex/internal/logger"
)

// Ensure AskService implements the interface.
var _ driving.AskService = (*AskService)(nil)

// Pipeline defaults.
const (
	defaultTopK       = 3
	defaultRerankTopN = 3

	// contextSeparator joins source fragments in the generation context.
	contextSeparator = "\n\n---\n\n"
)

// AskService runs the retrieval pipeline: cache check, optional query
// rewrite, retrieval, optional re-rank, streamed generation, cache write.
// Auxiliary stages degrade on failure; only retrieval and generation
// failures surface to the caller, and even those arrive as answer text so a
// consumer renders something sensible.
type AskService struct {
	store      driven.CollectionStore
	embeddings driven.EmbeddingProvider
	llm        driven.LLMService
	cache      driven.ResponseCache
	prompts    driven.PromptStore
}

// NewAskService creates a new ask service.
// The cache parameter is optional (can be nil); lookups and writes are then
// skipped.
func NewAskService(
	store driven.CollectionStore,
	embeddings driven.EmbeddingProvider,
	llm driven.LLMService,
	cache driven.ResponseCache,
	prompts driven.PromptStore,
) *AskService {
	return &AskService{
		store:      store,
		embeddings: embeddings,
		llm:        llm,
		cache:      cache,
		prompts:    prompts,
	}
}

// AnswerStream runs the pipeline for one query. The channel is closed when
// the pipeline finishes or ctx is cancelled.
func (s *AskService) AnswerStream(ctx context.Context, req domain.AskRequest) <-chan domain.AskEvent {
	out := make(chan domain.AskEvent)
	go func() {
		defer close(out)
		s.run(ctx, req, out)
	}()
	return out
}

// Feedback records a user verdict against the most recent cache entry for
// the query under the given state hash.
func (s *AskService) Feedback(ctx context.Context, query, stateHash string, fb domain.Feedback) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.UpdateFeedback(ctx, query, stateHash, fb)
}

func (s *AskService) run(ctx context.Context, req domain.AskRequest, out chan<- domain.AskEvent) {
	emit := func(ev domain.AskEvent) bool {
		select {
		case out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	logger.Section("Ask Pipeline")
	logger.Debug("Query: %q against %s/%s", req.Query, req.Category, req.Collection)

	topK := req.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	// State: fingerprint the knowledge the answer will be produced under.
	meta, err := s.store.LoadMeta(ctx, req.Category, req.Collection)
	if err != nil {
		emit(domain.AskEvent{Type: domain.EventAnswerDelta,
			Content: fmt.Sprintf("Error: collection %q not available: %v", req.Collection, err)})
		emit(domain.AskEvent{Type: domain.EventSources})
		return
	}

	answerTemplate, err := s.prompts.Load(driven.PromptAnswer)
	if err != nil {
		logger.Warn("Answer prompt unavailable, using empty template: %v", err)
		answerTemplate = "{{context}}\n\n{{query}}"
	}

	stateHash := domain.StateHash(req.Category, req.Collection, meta.NumChunks, meta.CreatedAt, answerTemplate)
	if !emit(domain.AskEvent{Type: domain.EventState, Content: stateHash}) {
		return
	}

	// The query embedding serves both the approximate cache stage and the
	// eventual cache write; its failure disables both, nothing else.
	var queryEmbedding []float32
	if s.cache != nil {
		queryEmbedding, err = s.embeddings.ForModel(meta.Model).Embed(ctx, req.Query)
		if err != nil {
			logger.Warn("Query embedding failed, semantic cache disabled: %v", err)
			queryEmbedding = nil
		}
	}

	// Cache check: serve a prior answer when one qualifies.
	if s.cache != nil {
		hit, err := s.cache.Check(ctx, driven.CacheCheckRequest{
			Query:               req.Query,
			StateHash:           stateHash,
			Filter:              req.FilterMode,
			QueryEmbedding:      queryEmbedding,
			SimilarityThreshold: req.SimilarityThreshold,
		})
		if err != nil {
			logger.Warn("Cache check failed: %v", err)
		} else if hit != nil {
			logger.Info("Cache hit (similarity %.3f)", hit.Similarity)
			if !emit(domain.AskEvent{Type: domain.EventCachedAnswer, Content: hit.Entry.Answer, Similarity: hit.Similarity}) {
				return
			}
			emit(domain.AskEvent{Type: domain.EventSources, Sources: hit.Entry.Sources})
			return
		}
	}

	// Rewrite: optionally reshape the query for retrieval. The original
	// query remains the cache key.
	retrievalQuery := req.Query
	var rewrittenQuery, rewritePrompt string
	if req.Rewrite {
		rewrittenQuery, rewritePrompt = s.rewriteQuery(ctx, req.Query)
		if rewrittenQuery != "" {
			retrievalQuery = rewrittenQuery
			if !emit(domain.AskEvent{Type: domain.EventRewrite, Content: rewrittenQuery}) {
				return
			}
		}
	}

	// Retrieve: nearest chunks for the (possibly rewritten) query.
	retrievalVec, err := s.embeddings.ForModel(meta.Model).Embed(ctx, retrievalQuery)
	if err != nil {
		emit(domain.AskEvent{Type: domain.EventAnswerDelta,
			Content: fmt.Sprintf("Error: embedding service unavailable: %v", err)})
		emit(domain.AskEvent{Type: domain.EventSources})
		return
	}
	retrieved, err := s.store.Search(ctx, req.Category, req.Collection, retrievalVec, topK)
	if err != nil {
		emit(domain.AskEvent{Type: domain.EventAnswerDelta,
			Content: fmt.Sprintf("Error: retrieval failed: %v", err)})
		emit(domain.AskEvent{Type: domain.EventSources})
		return
	}
	logger.Info("Retrieved %d chunks", len(retrieved))
	if len(retrieved) == 0 {
		emit(domain.AskEvent{Type: domain.EventAnswerDelta,
			Content: "No relevant content found in this collection for your question."})
		emit(domain.AskEvent{Type: domain.EventSources})
		return
	}

	// Rerank: optionally let the model pick the best of the retrieved set.
	sources := retrieved
	var plausibleSources []domain.RetrievedChunk
	var rerankPrompt string
	rerankUsed := false
	if req.Rerank && len(retrieved) > 1 {
		topN := req.RerankTopN
		if topN <= 0 {
			topN = defaultRerankTopN
		}
		if topN > len(retrieved) {
			topN = len(retrieved)
		}

		plausibleSources = retrieved
		if !emit(domain.AskEvent{Type: domain.EventPlausibleSources, Sources: retrieved}) {
			return
		}

		var selected []domain.RetrievedChunk
		selected, rerankPrompt, rerankUsed = s.rerank(ctx, req.Query, retrieved, topN)
		sources = selected
	}

	// Generate: stream the answer over the assembled context.
	prompt := strings.NewReplacer(
		"{{context}}", buildContext(sources),
		"{{query}}", req.Query,
	).Replace(answerTemplate)

	answer, genErr := s.streamAnswer(ctx, prompt, req, emit)
	if genErr != nil {
		if errors.Is(genErr, context.Canceled) {
			return
		}
		emit(domain.AskEvent{Type: domain.EventAnswerDelta,
			Content: fmt.Sprintf("\n[Error: generation failed: %v]", genErr)})
		emit(domain.AskEvent{Type: domain.EventSources, Sources: sources})
		return
	}

	// Cache write: record the completed interaction. Failures only cost the
	// next lookup.
	if s.cache != nil && answer != "" {
		entry := domain.CacheEntry{
			Query:            req.Query,
			Answer:           answer,
			Sources:          sources,
			StateHash:        stateHash,
			QueryEmbedding:   queryEmbedding,
			Category:         req.Category,
			CollectionName:   req.Collection,
			PromptContent:    answerTemplate,
			ModelName:        s.llm.ModelName(),
			RewrittenQuery:   rewrittenQuery,
			RerankUsed:       rerankUsed,
			PlausibleSources: plausibleSources,
			RerankPrompt:     rerankPrompt,
			RewritePrompt:    rewritePrompt,
		}
		if err := s.cache.Save(ctx, entry); err != nil {
			logger.Warn("Cache write failed: %v", err)
		}
	}

	emit(domain.AskEvent{Type: domain.EventSources, Sources: sources})
}

// rewriteQuery asks the model for a retrieval-optimised form of the query.
// Failure keeps the original query.
func (s *AskService) rewriteQuery(ctx context.Context, query string) (rewritten, prompt string) {
	template, err := s.prompts.Load(driven.PromptQueryRewrite)
	if err != nil {
		logger.Warn("Rewrite prompt unavailable: %v", err)
		return "", ""
	}
	prompt = strings.ReplaceAll(template, "{{query}}", query)

	result, err := s.llm.Generate(ctx, prompt, driven.GenerateOptions{MaxTokens: 150, Temperature: 0.3})
	if err != nil {
		logger.Warn("Query rewrite failed, using original: %v", err)
		return "", prompt
	}
	result = strings.TrimSpace(result)
	if result == "" {
		return "", prompt
	}
	logger.Debug("Rewritten query: %q", result)
	return result, prompt
}

// rerank asks the model to select the topN most relevant chunks from the
// retrieved set. Any failure falls back to the first topN by distance.
func (s *AskService) rerank(
	ctx context.Context, query string, retrieved []domain.RetrievedChunk, topN int,
) (selected []domain.RetrievedChunk, prompt string, ok bool) {
	fallback := retrieved[:topN]

	template, err := s.prompts.Load(driven.PromptRerank)
	if err != nil {
		logger.Warn("Rerank prompt unavailable: %v", err)
		return fallback, "", false
	}

	var listing strings.Builder
	for i, rc := range retrieved {
		fmt.Fprintf(&listing, "%d. %s\n\n", i+1, rc.Content)
	}
	prompt = strings.NewReplacer(
		"{{query}}", query,
		"{{top_n}}", fmt.Sprintf("%d", topN),
		"{{chunks}}", strings.TrimSpace(listing.String()),
	).Replace(template)

	raw, err := s.llm.Generate(ctx, prompt, driven.GenerateOptions{MaxTokens: 100, Temperature: 0})
	if err != nil {
		logger.Warn("Rerank failed, keeping distance order: %v", err)
		return fallback, prompt, false
	}

	indices, err := parseRerankIndices(raw, len(retrieved))
	if err != nil {
		logger.Warn("Rerank output unusable, keeping distance order: %v", err)
		return fallback, prompt, false
	}

	selected = make([]domain.RetrievedChunk, 0, topN)
	for _, idx := range indices {
		selected = append(selected, retrieved[idx-1])
		if len(selected) == topN {
			break
		}
	}
	if len(selected) == 0 {
		return fallback, prompt, false
	}
	return selected, prompt, true
}

// parseRerankIndices extracts a JSON array of 1-based chunk numbers from
// model output, dropping duplicates and out-of-range values.
func parseRerankIndices(raw string, n int) ([]int, error) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array in output")
	}

	var indices []int
	if err := json.Unmarshal([]byte(raw[start:end+1]), &indices); err != nil {
		return nil, fmt.Errorf("decode indices: %w", err)
	}

	seen := make(map[int]bool, len(indices))
	valid := indices[:0]
	for _, idx := range indices {
		if idx < 1 || idx > n || seen[idx] {
			continue
		}
		seen[idx] = true
		valid = append(valid, idx)
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("no valid indices in output")
	}
	return valid, nil
}

// streamAnswer streams the generation and returns the accumulated answer.
func (s *AskService) streamAnswer(
	ctx context.Context, prompt string, req domain.AskRequest, emit func(domain.AskEvent) bool,
) (string, error) {
	stream, err := s.llm.GenerateStream(ctx, prompt, driven.GenerateOptions{
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var answer strings.Builder
	for {
		delta, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		answer.WriteString(delta)
		if !emit(domain.AskEvent{Type: domain.EventAnswerDelta, Content: delta}) {
			return "", context.Canceled
		}
	}
	return answer.String(), nil
}

// buildContext assembles the generation context: each source is prefixed
// with its provenance and any enrichment, then fragments are joined with a
// visible separator.
func buildContext(sources []domain.RetrievedChunk) string {
	if len(sources) == 0 {
		return "(no relevant content found)"
	}

	fragments := make([]string, 0, len(sources))
	for _, rc := range sources {
		var b strings.Builder
		fmt.Fprintf(&b, "[SOURCE: %s | ID: %s]\n", rc.SourceDocument, rc.ID)
		if rc.Summary != "" {
			fmt.Fprintf(&b, "Summary: %s\n", rc.Summary)
		}
		if len(rc.Tags) > 0 {
			fmt.Fprintf(&b, "Tags: %s\n", strings.Join(rc.Tags, ", "))
		}
		b.WriteString("\n")
		b.WriteString(rc.Content)
		fragments = append(fragments, b.String())
	}
	return strings.Join(fragments, contextSeparator)
}
