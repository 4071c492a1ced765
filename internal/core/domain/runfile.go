package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// Chunk-run files embed every chunk between an id-carrying start marker and
// a matching end marker, so chunks can be re-extracted structurally long
// after the run was written. The format is part of the persisted artifact
// contract and must stay stable.
const (
	chunkStartMarker = "<!-- chunk_id_start: %s -->"
	chunkEndMarker   = "<!-- chunk_id_end: %s -->"
)

var chunkMarkerPattern = regexp.MustCompile(`(?s)<!-- chunk_id_start: (.*?) -->\n(.*?)\n<!-- chunk_id_end: `)

// EncodeRunFile serialises an ordered chunk sequence into run-file content.
func EncodeRunFile(chunks []Chunk) string {
	var b strings.Builder
	for _, c := range chunks {
		fmt.Fprintf(&b, chunkStartMarker+"\n", c.ID)
		b.WriteString(c.Content)
		b.WriteString("\n")
		fmt.Fprintf(&b, chunkEndMarker+"\n\n", c.ID)
	}
	return b.String()
}

// ExtractChunks parses run-file content back into chunks. Only blocks whose
// end marker repeats the start marker's id are accepted; content is trimmed.
// Order is assigned by encounter position.
func ExtractChunks(content, sourceFile string) []Chunk {
	var chunks []Chunk
	offset := 0
	for {
		loc := chunkMarkerPattern.FindStringSubmatchIndex(content[offset:])
		if loc == nil {
			break
		}
		id := content[offset+loc[2] : offset+loc[3]]
		body := content[offset+loc[4] : offset+loc[5]]

		// The end marker must carry the same id.
		rest := content[offset+loc[1]:]
		if !strings.HasPrefix(rest, id+" -->") {
			offset += loc[1]
			continue
		}

		chunks = append(chunks, Chunk{
			ID:            id,
			Order:         len(chunks) + 1,
			Content:       strings.TrimSpace(body),
			SourceRunFile: sourceFile,
		})
		offset += loc[1] + len(id) + len(" -->")
	}
	return chunks
}
