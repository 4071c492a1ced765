package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdex/internal/core/domain"
)

type collectionFixture struct {
	svc      *CollectionService
	docStore *fakeDocStore
	store    *fakeCollectionStore
	provider *fakeEmbedProvider
	llm      *fakeLLM
}

func newCollectionFixture(t *testing.T) *collectionFixture {
	t.Helper()
	f := &collectionFixture{
		docStore: newFakeDocStore(),
		store:    newFakeCollectionStore(),
		provider: &fakeEmbedProvider{embedder: &fakeEmbedder{model: "embed-small", vector: []float32{1, 0}}},
		llm:      &fakeLLM{},
	}
	f.svc = NewCollectionService(f.docStore, f.store, f.provider, f.llm)
	return f
}

func (f *collectionFixture) seedRun(category, doc, filename string, chunks []domain.Chunk) {
	f.docStore.runs[key(category, doc, filename)] = domain.EncodeRunFile(chunks)
}

func TestCollectionService_Create(t *testing.T) {
	f := newCollectionFixture(t)
	ctx := context.Background()

	f.seedRun("docs", "handbook", "run.md", []domain.Chunk{
		{ID: "d:001", Order: 1, Content: "First chunk."},
		{ID: "d:002", Order: 2, Content: "Second chunk."},
	})

	ok, msg := f.svc.Create(ctx, "docs", "faq",
		[]domain.RunRef{{Document: "handbook", Filename: "run.md"}}, "embed-small", false)
	require.True(t, ok, msg)
	assert.Equal(t, `Collection "faq" created with 2 chunks.`, msg)

	meta := f.store.metas["docs/faq"]
	require.NotNil(t, meta)
	assert.Equal(t, "embed-small", meta.Model)
	assert.Equal(t, 2, meta.NumChunks)
	require.Len(t, meta.Chunks, 2)
	assert.Equal(t, "handbook", meta.Chunks[0].SourceDocument)
	assert.Equal(t, "run.md", meta.Chunks[0].SourceRunFile)
	assert.Len(t, f.store.vectors["docs/faq"], 2)

	// Plain chunks embed their raw content.
	assert.Equal(t, []string{"First chunk.", "Second chunk."}, f.provider.embedder.inputs)
}

func TestCollectionService_Create_NoChunks(t *testing.T) {
	f := newCollectionFixture(t)

	f.docStore.runs["docs/handbook/empty.md"] = "no markers in here"

	ok, msg := f.svc.Create(context.Background(), "docs", "faq",
		[]domain.RunRef{{Document: "handbook", Filename: "empty.md"}}, "embed-small", false)
	assert.False(t, ok)
	assert.Equal(t, "No chunks found in the selected chunk runs.", msg)
	assert.Empty(t, f.store.metas)
}

func TestCollectionService_Create_MissingRun(t *testing.T) {
	f := newCollectionFixture(t)

	ok, msg := f.svc.Create(context.Background(), "docs", "faq",
		[]domain.RunRef{{Document: "handbook", Filename: "absent.md"}}, "embed-small", false)
	assert.False(t, ok)
	assert.Contains(t, msg, "Failed to read chunk runs")
}

func TestCollectionService_Create_WithEnrichment(t *testing.T) {
	f := newCollectionFixture(t)
	f.llm.enrichment = domain.Enrichment{Summary: "A summary.", Tags: []string{"alpha", "beta"}}

	f.seedRun("docs", "handbook", "run.md", []domain.Chunk{
		{ID: "d:001", Order: 1, Content: "Chunk text."},
	})

	ok, msg := f.svc.Create(context.Background(), "docs", "faq",
		[]domain.RunRef{{Document: "handbook", Filename: "run.md"}}, "embed-small", true)
	require.True(t, ok, msg)

	meta := f.store.metas["docs/faq"]
	require.NotNil(t, meta)
	assert.Equal(t, "A summary.", meta.Chunks[0].Summary)
	assert.Equal(t, []string{"alpha", "beta"}, meta.Chunks[0].Tags)

	// Enriched chunks embed a composite of summary, tags and text.
	require.Len(t, f.provider.embedder.inputs, 1)
	assert.Equal(t, "Summary: A summary. | Tags: alpha, beta | Chunk text.", f.provider.embedder.inputs[0])
}

func TestCollectionService_Create_EnrichmentFailureDegrades(t *testing.T) {
	f := newCollectionFixture(t)
	f.llm.enrichErr = errors.New("model refused")

	f.seedRun("docs", "handbook", "run.md", []domain.Chunk{
		{ID: "d:001", Order: 1, Content: "Chunk text."},
	})

	ok, msg := f.svc.Create(context.Background(), "docs", "faq",
		[]domain.RunRef{{Document: "handbook", Filename: "run.md"}}, "embed-small", true)
	require.True(t, ok, msg)

	meta := f.store.metas["docs/faq"]
	assert.Empty(t, meta.Chunks[0].Summary, "failed enrichment must leave the chunk plain")
	assert.Equal(t, []string{"Chunk text."}, f.provider.embedder.inputs)
}

func TestCollectionService_Create_EmbeddingFailure(t *testing.T) {
	f := newCollectionFixture(t)
	f.provider.embedder.err = errors.New("backend down")

	f.seedRun("docs", "handbook", "run.md", []domain.Chunk{
		{ID: "d:001", Order: 1, Content: "Chunk text."},
	})

	ok, msg := f.svc.Create(context.Background(), "docs", "faq",
		[]domain.RunRef{{Document: "handbook", Filename: "run.md"}}, "embed-small", false)
	assert.False(t, ok)
	assert.Contains(t, msg, "Embedding failed")
	assert.Empty(t, f.store.metas)
}

func TestCollectionService_Search(t *testing.T) {
	f := newCollectionFixture(t)
	ctx := context.Background()

	f.store.metas["docs/faq"] = &domain.CollectionMeta{Name: "faq", Category: "docs", Model: "recorded-model"}
	f.store.searchResults = []domain.RetrievedChunk{
		{Chunk: domain.Chunk{ID: "d:001"}, Score: 0.1},
		{Chunk: domain.Chunk{ID: "d:002"}, Score: 0.4},
	}

	results, err := f.svc.Search(ctx, "docs", "faq", "how do I...", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	// The query must be embedded with the model the collection was built with.
	assert.Contains(t, f.provider.requests, "recorded-model")
}

func TestCollectionService_Search_MissingCollection(t *testing.T) {
	f := newCollectionFixture(t)

	results, err := f.svc.Search(context.Background(), "docs", "absent", "query", 3)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Empty(t, f.provider.requests, "missing collections must not trigger embedding calls")
}

func TestCollectionService_ListAndDelete(t *testing.T) {
	f := newCollectionFixture(t)
	ctx := context.Background()

	f.store.metas["docs/faq"] = &domain.CollectionMeta{Name: "faq"}
	f.store.metas["docs/guide"] = &domain.CollectionMeta{Name: "guide"}

	names, err := f.svc.List(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, []string{"faq", "guide"}, names)

	require.NoError(t, f.svc.Delete(ctx, "docs", "faq"))
	assert.Equal(t, []string{"docs/faq"}, f.store.deleted)
}
