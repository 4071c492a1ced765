package domain

import (
	"strings"
	"testing"
)

func TestRunFile_RoundTrip(t *testing.T) {
	chunks := []Chunk{
		{ID: "doc-1:001", Order: 1, Content: "First chunk text."},
		{ID: "doc-1:002", Order: 2, Content: "Second chunk\nspanning two lines."},
		{ID: "doc-1:003", Order: 3, Content: "Third."},
	}

	encoded := EncodeRunFile(chunks)
	extracted := ExtractChunks(encoded, "run.md")

	if len(extracted) != len(chunks) {
		t.Fatalf("expected %d chunks, got %d", len(chunks), len(extracted))
	}
	for i, c := range extracted {
		if c.ID != chunks[i].ID {
			t.Errorf("chunk %d id = %q, want %q", i, c.ID, chunks[i].ID)
		}
		if c.Content != chunks[i].Content {
			t.Errorf("chunk %d content = %q, want %q", i, c.Content, chunks[i].Content)
		}
		if c.Order != i+1 {
			t.Errorf("chunk %d order = %d, want %d", i, c.Order, i+1)
		}
		if c.SourceRunFile != "run.md" {
			t.Errorf("chunk %d source file = %q", i, c.SourceRunFile)
		}
	}
}

func TestEncodeRunFile_Markers(t *testing.T) {
	encoded := EncodeRunFile([]Chunk{{ID: "d:001", Content: "body"}})

	if !strings.Contains(encoded, "<!-- chunk_id_start: d:001 -->") {
		t.Error("missing start marker")
	}
	if !strings.Contains(encoded, "<!-- chunk_id_end: d:001 -->") {
		t.Error("missing end marker")
	}
}

func TestExtractChunks_MismatchedMarkersSkipped(t *testing.T) {
	content := "<!-- chunk_id_start: a:001 -->\nvalid\n<!-- chunk_id_end: a:001 -->\n\n" +
		"<!-- chunk_id_start: a:002 -->\norphaned\n<!-- chunk_id_end: a:999 -->\n"

	chunks := ExtractChunks(content, "run.md")

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].ID != "a:001" {
		t.Errorf("id = %q, want a:001", chunks[0].ID)
	}
}

func TestExtractChunks_EmptyContent(t *testing.T) {
	if got := ExtractChunks("", "run.md"); len(got) != 0 {
		t.Errorf("expected no chunks, got %d", len(got))
	}
	if got := ExtractChunks("no markers here", "run.md"); len(got) != 0 {
		t.Errorf("expected no chunks, got %d", len(got))
	}
}
