package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdex/internal/chunkers"
	"github.com/custodia-labs/ragdex/internal/core/domain"
)

func newChunkingFixture(t *testing.T) (*ChunkingService, *fakeDocStore) {
	t.Helper()
	registry := chunkers.NewRegistry()
	registry.Register(chunkers.NewSentence())
	registry.Register(chunkers.NewParagraph())
	docStore := newFakeDocStore()
	return NewChunkingService(docStore, registry), docStore
}

func TestChunkingService_Run(t *testing.T) {
	svc, docStore := newChunkingFixture(t)
	ctx := context.Background()

	docStore.converted["docs/handbook/handbook__docling__v1.md"] = "One. Two. Three."

	run, err := svc.Run(ctx, "docs", "handbook", "handbook__docling__v1.md", "sentence_v1",
		chunkers.Config{"sentences_per_chunk": 1})
	require.NoError(t, err)

	assert.Equal(t, "sentence_v1", run.Chunker)
	assert.Equal(t, 3, run.NumChunks)
	assert.Equal(t, "handbook__docling__sentence_v1__v1_0.md", run.Filename)

	// The run file carries markers and the extracted chunks round-trip with
	// document-scoped IDs.
	content, err := docStore.ReadChunkRun(ctx, "docs", "handbook", run.Filename)
	require.NoError(t, err)
	assert.Contains(t, content, "<!-- chunk_id_start: ")

	chunks := domain.ExtractChunks(content, run.Filename)
	require.Len(t, chunks, 3)
	meta := docStore.metadata["docs/handbook"]
	require.NotNil(t, meta)
	assert.NotEmpty(t, meta.DocumentID, "unregistered documents get a minted identity")
	assert.Equal(t, meta.DocumentID+":001", chunks[0].ID)
	assert.Equal(t, meta.DocumentID+":003", chunks[2].ID)

	require.Len(t, meta.Chunking, 1)
	assert.Equal(t, run.Filename, meta.Chunking[0].Filename)
}

func TestChunkingService_Run_KeepsExistingIdentity(t *testing.T) {
	svc, docStore := newChunkingFixture(t)
	ctx := context.Background()

	docStore.converted["docs/handbook/handbook__docling__v1.md"] = "One. Two."
	docStore.metadata["docs/handbook"] = &domain.DocumentMetadata{
		DocumentID: "fixed-id",
		Name:       "handbook",
	}

	run, err := svc.Run(ctx, "docs", "handbook", "handbook__docling__v1.md", "sentence_v1", nil)
	require.NoError(t, err)

	content, err := docStore.ReadChunkRun(ctx, "docs", "handbook", run.Filename)
	require.NoError(t, err)
	chunks := domain.ExtractChunks(content, run.Filename)
	require.NotEmpty(t, chunks)
	assert.True(t, strings.HasPrefix(chunks[0].ID, "fixed-id:"), "chunk ID = %q", chunks[0].ID)
}

func TestChunkingService_Run_ReplacesDescriptorOnRerun(t *testing.T) {
	svc, docStore := newChunkingFixture(t)
	ctx := context.Background()

	docStore.converted["docs/handbook/handbook__docling__v1.md"] = "One. Two. Three. Four."

	first, err := svc.Run(ctx, "docs", "handbook", "handbook__docling__v1.md", "sentence_v1",
		chunkers.Config{"sentences_per_chunk": 1})
	require.NoError(t, err)
	require.Equal(t, 4, first.NumChunks)

	second, err := svc.Run(ctx, "docs", "handbook", "handbook__docling__v1.md", "sentence_v1",
		chunkers.Config{"sentences_per_chunk": 2})
	require.NoError(t, err)
	assert.Equal(t, first.Filename, second.Filename)

	meta := docStore.metadata["docs/handbook"]
	require.Len(t, meta.Chunking, 1, "re-running a strategy must replace its descriptor")
	assert.Equal(t, 2, meta.Chunking[0].NumChunks)
}

func TestChunkingService_Run_DropsStaleDescriptors(t *testing.T) {
	svc, docStore := newChunkingFixture(t)
	ctx := context.Background()

	docStore.converted["docs/handbook/handbook__docling__v1.md"] = "One."
	docStore.metadata["docs/handbook"] = &domain.DocumentMetadata{
		DocumentID: "fixed-id",
		Name:       "handbook",
		Chunking: []domain.ChunkRun{
			{Chunker: "paragraph_v1", Filename: "gone__from__disk__v1_0.md"},
		},
	}

	_, err := svc.Run(ctx, "docs", "handbook", "handbook__docling__v1.md", "sentence_v1", nil)
	require.NoError(t, err)

	meta := docStore.metadata["docs/handbook"]
	require.Len(t, meta.Chunking, 1)
	assert.Equal(t, "sentence_v1", meta.Chunking[0].Chunker)
}

func TestChunkingService_Run_UnknownStrategy(t *testing.T) {
	svc, _ := newChunkingFixture(t)

	_, err := svc.Run(context.Background(), "docs", "handbook", "f.md", "nope", nil)
	assert.ErrorIs(t, err, domain.ErrUnknownChunker)
}

func TestChunkingService_Run_MissingArtifact(t *testing.T) {
	svc, _ := newChunkingFixture(t)

	_, err := svc.Run(context.Background(), "docs", "handbook", "absent.md", "sentence_v1", nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestChunkingService_DeleteRun(t *testing.T) {
	svc, docStore := newChunkingFixture(t)
	ctx := context.Background()

	docStore.converted["docs/handbook/handbook__docling__v1.md"] = "One. Two."
	run, err := svc.Run(ctx, "docs", "handbook", "handbook__docling__v1.md", "sentence_v1", nil)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteRun(ctx, "docs", "handbook", run.Filename))

	_, err = docStore.ReadChunkRun(ctx, "docs", "handbook", run.Filename)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, docStore.metadata["docs/handbook"].Chunking)
}

func TestChunkingService_ListChunkers(t *testing.T) {
	svc, _ := newChunkingFixture(t)

	names := svc.ListChunkers()
	assert.Contains(t, names, "sentence_v1")
	assert.Contains(t, names, "paragraph_v1")
}
