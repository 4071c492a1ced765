package chunkers

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/custodia-labs/ragdex/internal/core/domain"
)

func TestSentence_Chunk(t *testing.T) {
	s := NewSentence()
	ctx := context.Background()

	t.Run("groups sentences", func(t *testing.T) {
		text := "One. Two. Three. Four. Five."
		res, err := s.Chunk(ctx, text, Config{"sentences_per_chunk": 2})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{"One. Two.", "Three. Four.", "Five."}
		if len(res.Chunks) != len(want) {
			t.Fatalf("expected %d chunks, got %d", len(want), len(res.Chunks))
		}
		for i, w := range want {
			if res.Chunks[i].Content != w {
				t.Errorf("chunk %d = %q, want %q", i, res.Chunks[i].Content, w)
			}
			if res.Chunks[i].Order != i+1 {
				t.Errorf("chunk %d order = %d, want %d", i, res.Chunks[i].Order, i+1)
			}
		}
		if res.Stats.NumChunks != 3 {
			t.Errorf("NumChunks = %d, want 3", res.Stats.NumChunks)
		}
	})

	t.Run("empty text", func(t *testing.T) {
		res, err := s.Chunk(ctx, "", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res.Chunks) != 0 {
			t.Errorf("expected 0 chunks, got %d", len(res.Chunks))
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		_, err := s.Chunk(ctx, "Some text.", Config{"sentences_per_chunk": 0})
		if !errors.Is(err, domain.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestParagraph_Chunk(t *testing.T) {
	p := NewParagraph()
	ctx := context.Background()

	t.Run("accumulates to threshold", func(t *testing.T) {
		text := "short one\n\nshort two\n\n" + strings.Repeat("x", 50)
		res, err := p.Chunk(ctx, text, Config{"min_length": 20})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// The two short paragraphs total 18 chars, so the chunk only closes
		// after the third paragraph pushes it past the threshold.
		if len(res.Chunks) != 1 {
			t.Fatalf("expected 1 chunk, got %d", len(res.Chunks))
		}
	})

	t.Run("remainder flushed below threshold", func(t *testing.T) {
		text := strings.Repeat("a", 30) + "\n\ntail"
		res, err := p.Chunk(ctx, text, Config{"min_length": 20})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res.Chunks) != 2 {
			t.Fatalf("expected 2 chunks, got %d", len(res.Chunks))
		}
		if res.Chunks[1].Content != "tail" {
			t.Errorf("final chunk = %q, want %q", res.Chunks[1].Content, "tail")
		}
	})

	t.Run("blank-heavy input", func(t *testing.T) {
		res, err := p.Chunk(ctx, "\n\n\n\n  \n\n", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res.Chunks) != 0 {
			t.Errorf("expected 0 chunks, got %d", len(res.Chunks))
		}
	})

	t.Run("paragraphs joined with blank line", func(t *testing.T) {
		res, err := p.Chunk(ctx, "alpha\n\nbeta", Config{"min_length": 100})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res.Chunks) != 1 || res.Chunks[0].Content != "alpha\n\nbeta" {
			t.Errorf("got %+v, want one chunk %q", res.Chunks, "alpha\n\nbeta")
		}
	})
}

func TestHierarchy_Chunk(t *testing.T) {
	h := NewHierarchy()
	ctx := context.Background()

	t.Run("heading paths", func(t *testing.T) {
		text := "# A\nintro text\n## B\nnested text\n# C\nfinal text"
		res, err := h.Chunk(ctx, text, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res.Chunks) != 3 {
			t.Fatalf("expected 3 chunks, got %d", len(res.Chunks))
		}
		want := []string{
			"Context: A\n\nintro text",
			"Context: A > B\n\nnested text",
			"Context: C\n\nfinal text",
		}
		for i, w := range want {
			if res.Chunks[i].Content != w {
				t.Errorf("chunk %d = %q, want %q", i, res.Chunks[i].Content, w)
			}
		}
	})

	t.Run("path prefix disabled", func(t *testing.T) {
		res, err := h.Chunk(ctx, "# A\nbody", Config{"include_path": false})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res.Chunks) != 1 || res.Chunks[0].Content != "body" {
			t.Errorf("got %+v, want one chunk %q", res.Chunks, "body")
		}
	})

	t.Run("preamble before first heading", func(t *testing.T) {
		res, err := h.Chunk(ctx, "preamble\n# A\nbody", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res.Chunks) != 2 {
			t.Fatalf("expected 2 chunks, got %d", len(res.Chunks))
		}
		if res.Chunks[0].Content != "preamble" {
			t.Errorf("first chunk = %q, want %q", res.Chunks[0].Content, "preamble")
		}
	})

	t.Run("oversize section splits at paragraphs", func(t *testing.T) {
		para := strings.Repeat("y", 40)
		text := "# Big\n" + para + "\n\n" + para + "\n\n" + para
		res, err := h.Chunk(ctx, text, Config{"max_chunk_size": 90})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res.Chunks) < 2 {
			t.Fatalf("expected section split, got %d chunks", len(res.Chunks))
		}
		for i, c := range res.Chunks {
			if !strings.HasPrefix(c.Content, "Context: Big\n\n") {
				t.Errorf("chunk %d missing path prefix: %q", i, c.Content)
			}
		}
	})

	t.Run("heading lines are not content", func(t *testing.T) {
		res, err := h.Chunk(ctx, "# Only Headings\n## Nothing Else", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res.Chunks) != 0 {
			t.Errorf("expected 0 chunks, got %d", len(res.Chunks))
		}
	})
}

func TestRecursive_Chunk(t *testing.T) {
	r := NewRecursive()
	ctx := context.Background()

	t.Run("small text is one chunk", func(t *testing.T) {
		res, err := r.Chunk(ctx, "tiny text", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// The split consumes the word separator and merging rejoins the
		// pieces without it.
		if len(res.Chunks) != 1 || res.Chunks[0].Content != "tinytext" {
			t.Errorf("got %+v, want one chunk %q", res.Chunks, "tinytext")
		}
	})

	t.Run("separator-free text is untouched", func(t *testing.T) {
		res, err := r.Chunk(ctx, "tinytext", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res.Chunks) != 1 || res.Chunks[0].Content != "tinytext" {
			t.Errorf("got %+v, want one chunk %q", res.Chunks, "tinytext")
		}
	})

	t.Run("respects size and overlap", func(t *testing.T) {
		text := strings.Repeat("abcde", 100) // 500 chars, no natural separators
		res, err := r.Chunk(ctx, text, Config{"chunk_size": 100, "chunk_overlap": 20})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res.Chunks) < 5 {
			t.Fatalf("expected at least 5 chunks, got %d", len(res.Chunks))
		}
		for i, c := range res.Chunks {
			if len(c.Content) > 100 {
				t.Errorf("chunk %d length %d exceeds chunk_size", i, len(c.Content))
			}
		}
		// Consecutive chunks share a trailing/leading window just under the
		// overlap size.
		for i := 1; i < len(res.Chunks); i++ {
			prev := res.Chunks[i-1].Content
			tail := prev[len(prev)-19:]
			if !strings.HasPrefix(res.Chunks[i].Content, tail) {
				t.Errorf("chunk %d does not start with overlap of chunk %d", i, i-1)
			}
		}
	})

	t.Run("prefers paragraph boundaries", func(t *testing.T) {
		text := strings.Repeat("p", 60) + "\n\n" + strings.Repeat("q", 60)
		res, err := r.Chunk(ctx, text, Config{"chunk_size": 80, "chunk_overlap": 0})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res.Chunks) != 2 {
			t.Fatalf("expected 2 chunks, got %d", len(res.Chunks))
		}
		if !strings.HasPrefix(res.Chunks[1].Content, "q") {
			t.Errorf("second chunk should start at paragraph boundary, got %q", res.Chunks[1].Content[:5])
		}
	})

	t.Run("invalid overlap", func(t *testing.T) {
		_, err := r.Chunk(ctx, "text", Config{"chunk_size": 10, "chunk_overlap": 10})
		if !errors.Is(err, domain.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("invalid chunk size", func(t *testing.T) {
		_, err := r.Chunk(ctx, "text", Config{"chunk_size": 0})
		if !errors.Is(err, domain.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}
