package services

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/custodia-labs/ragdex/internal/core/domain"
	"github.com/custodia-labs/ragdex/internal/core/ports/driven"
)

// fakeDocStore is an in-memory DocumentStore keyed by "category/doc".
type fakeDocStore struct {
	converted map[string]string // "category/doc/filename" -> text
	runs      map[string]string // "category/doc/filename" -> content
	metadata  map[string]*domain.DocumentMetadata

	persistErr error
	saveErr    error
}

func newFakeDocStore() *fakeDocStore {
	return &fakeDocStore{
		converted: map[string]string{},
		runs:      map[string]string{},
		metadata:  map[string]*domain.DocumentMetadata{},
	}
}

func key(parts ...string) string { return strings.Join(parts, "/") }

func (f *fakeDocStore) ReadConvertedText(_ context.Context, category, doc, filename string) (string, error) {
	text, ok := f.converted[key(category, doc, filename)]
	if !ok {
		return "", fmt.Errorf("converted %s: %w", filename, domain.ErrNotFound)
	}
	return text, nil
}

func (f *fakeDocStore) ListConvertedFiles(_ context.Context, category, doc string) ([]string, error) {
	return f.listUnder(f.converted, key(category, doc)+"/"), nil
}

func (f *fakeDocStore) PersistChunkRun(_ context.Context, category, doc, filename, content string) error {
	if f.persistErr != nil {
		return f.persistErr
	}
	f.runs[key(category, doc, filename)] = content
	return nil
}

func (f *fakeDocStore) ReadChunkRun(_ context.Context, category, doc, filename string) (string, error) {
	content, ok := f.runs[key(category, doc, filename)]
	if !ok {
		return "", fmt.Errorf("chunk run %s: %w", filename, domain.ErrNotFound)
	}
	return content, nil
}

func (f *fakeDocStore) ListChunkRunFiles(_ context.Context, category, doc string) ([]string, error) {
	return f.listUnder(f.runs, key(category, doc)+"/"), nil
}

func (f *fakeDocStore) DeleteChunkRun(_ context.Context, category, doc, filename string) error {
	delete(f.runs, key(category, doc, filename))
	return nil
}

func (f *fakeDocStore) LoadMetadata(_ context.Context, category, doc string) (*domain.DocumentMetadata, error) {
	meta, ok := f.metadata[key(category, doc)]
	if !ok {
		return nil, fmt.Errorf("metadata %s/%s: %w", category, doc, domain.ErrNotFound)
	}
	copied := *meta
	return &copied, nil
}

func (f *fakeDocStore) SaveMetadata(_ context.Context, category, doc string, meta *domain.DocumentMetadata) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	copied := *meta
	f.metadata[key(category, doc)] = &copied
	return nil
}

func (f *fakeDocStore) ListDocuments(_ context.Context, category string) ([]string, error) {
	seen := map[string]bool{}
	for k := range f.metadata {
		if strings.HasPrefix(k, category+"/") {
			seen[strings.TrimPrefix(k, category+"/")] = true
		}
	}
	var docs []string
	for d := range seen {
		docs = append(docs, d)
	}
	sort.Strings(docs)
	return docs, nil
}

func (f *fakeDocStore) ListCategories(context.Context) ([]string, error) { return nil, nil }

func (f *fakeDocStore) listUnder(m map[string]string, prefix string) []string {
	var names []string
	for k := range m {
		if strings.HasPrefix(k, prefix) {
			names = append(names, strings.TrimPrefix(k, prefix))
		}
	}
	sort.Strings(names)
	return names
}

// fakeCollectionStore is an in-memory CollectionStore that records writes and
// serves canned search results.
type fakeCollectionStore struct {
	metas   map[string]*domain.CollectionMeta
	vectors map[string][][]float32

	searchResults []domain.RetrievedChunk
	searchErr     error
	writeErr      error
	deleted       []string
}

func newFakeCollectionStore() *fakeCollectionStore {
	return &fakeCollectionStore{
		metas:   map[string]*domain.CollectionMeta{},
		vectors: map[string][][]float32{},
	}
}

func (f *fakeCollectionStore) Write(_ context.Context, meta domain.CollectionMeta, vectors [][]float32) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	k := key(meta.Category, meta.Name)
	f.metas[k] = &meta
	f.vectors[k] = vectors
	return nil
}

func (f *fakeCollectionStore) Load(_ context.Context, category, name string) (*domain.CollectionMeta, [][]float32, error) {
	meta, ok := f.metas[key(category, name)]
	if !ok {
		return nil, nil, domain.ErrNotFound
	}
	return meta, f.vectors[key(category, name)], nil
}

func (f *fakeCollectionStore) LoadMeta(_ context.Context, category, name string) (*domain.CollectionMeta, error) {
	meta, ok := f.metas[key(category, name)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return meta, nil
}

func (f *fakeCollectionStore) Search(_ context.Context, category, name string, _ []float32, k int) ([]domain.RetrievedChunk, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if _, ok := f.metas[key(category, name)]; !ok {
		return nil, domain.ErrNotFound
	}
	if k > len(f.searchResults) {
		k = len(f.searchResults)
	}
	return f.searchResults[:k], nil
}

func (f *fakeCollectionStore) List(_ context.Context, category string) ([]string, error) {
	var names []string
	for k := range f.metas {
		if strings.HasPrefix(k, category+"/") {
			names = append(names, strings.TrimPrefix(k, category+"/"))
		}
	}
	sort.Strings(names)
	return names, nil
}

func (f *fakeCollectionStore) Delete(_ context.Context, category, name string) error {
	f.deleted = append(f.deleted, key(category, name))
	delete(f.metas, key(category, name))
	return nil
}

// fakeEmbedder returns a fixed vector for every input and records what was
// embedded.
type fakeEmbedder struct {
	model  string
	vector []float32
	inputs []string
	err    error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, texts...)
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, nil
}

func (f *fakeEmbedder) ModelName() string { return f.model }

// fakeEmbedProvider hands out one embedder and records the requested model.
type fakeEmbedProvider struct {
	embedder *fakeEmbedder
	requests []string
}

func (f *fakeEmbedProvider) ForModel(model string) driven.EmbeddingService {
	f.requests = append(f.requests, model)
	return f.embedder
}

// fakeLLM serves scripted Generate responses in order and a fixed stream.
type fakeLLM struct {
	responses   []string // consumed front to back by Generate
	generateErr error
	prompts     []string // every prompt seen by Generate and GenerateStream

	streamDeltas []string
	streamErr    error

	enrichment domain.Enrichment
	enrichErr  error
	enriched   int
}

func (f *fakeLLM) Generate(_ context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.generateErr != nil {
		return "", f.generateErr
	}
	if len(f.responses) == 0 {
		return "", fmt.Errorf("no scripted response")
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func (f *fakeLLM) GenerateStream(_ context.Context, prompt string, _ driven.GenerateOptions) (driven.TextStream, error) {
	f.prompts = append(f.prompts, prompt)
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	return &fakeStream{deltas: f.streamDeltas}, nil
}

func (f *fakeLLM) Enrich(context.Context, string, int) (domain.Enrichment, error) {
	if f.enrichErr != nil {
		return domain.Enrichment{}, f.enrichErr
	}
	f.enriched++
	return f.enrichment, nil
}

func (f *fakeLLM) ModelName() string { return "fake-llm" }

// fakeStream yields its deltas then io.EOF, or fails mid-stream when failAt
// is set.
type fakeStream struct {
	deltas []string
	pos    int
	failAt int
	err    error
	closed bool
}

func (f *fakeStream) Recv() (string, error) {
	if f.err != nil && f.pos == f.failAt {
		return "", f.err
	}
	if f.pos >= len(f.deltas) {
		return "", io.EOF
	}
	delta := f.deltas[f.pos]
	f.pos++
	return delta, nil
}

func (f *fakeStream) Close() error {
	f.closed = true
	return nil
}

// fakeCache is an in-memory ResponseCache recording saves and feedback.
type fakeCache struct {
	hit      *domain.CacheHit
	checkErr error
	checks   []driven.CacheCheckRequest

	saved   []domain.CacheEntry
	saveErr error

	feedback []string // "query/stateHash/verdict"
}

func (f *fakeCache) Check(_ context.Context, req driven.CacheCheckRequest) (*domain.CacheHit, error) {
	f.checks = append(f.checks, req)
	if f.checkErr != nil {
		return nil, f.checkErr
	}
	return f.hit, nil
}

func (f *fakeCache) Save(_ context.Context, entry domain.CacheEntry) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, entry)
	return nil
}

func (f *fakeCache) UpdateFeedback(_ context.Context, query, stateHash string, fb domain.Feedback) error {
	f.feedback = append(f.feedback, key(query, stateHash, string(fb)))
	return nil
}

func (f *fakeCache) List(context.Context, string, string) ([]domain.CacheEntry, error) {
	return f.saved, nil
}

func (f *fakeCache) Delete(context.Context, int64) error { return nil }
func (f *fakeCache) PurgeAll(context.Context) error      { return nil }
func (f *fakeCache) Close() error                        { return nil }

// fakePrompts serves templates from a map, falling back to an error for
// unknown names.
type fakePrompts struct {
	templates map[string]string
}

func (f *fakePrompts) Load(name string) (string, error) {
	tpl, ok := f.templates[name]
	if !ok {
		return "", fmt.Errorf("prompt %q not found", name)
	}
	return tpl, nil
}

func (f *fakePrompts) Reload() {}
