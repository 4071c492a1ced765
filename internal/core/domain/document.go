package domain

import (
	"strings"
	"time"
)

// DocumentMetadata is the per-document record maintained by the document
// store. Upload, conversion and archival are handled by external
// collaborators; this core only reads converted text and appends chunk runs.
type DocumentMetadata struct {
	// DocumentID is the stable identifier used as the chunk ID prefix.
	DocumentID string `json:"document_id"`

	// Name is the document directory name within its category.
	Name string `json:"name"`

	// FileSizeMB is recorded at ingestion time by the upload collaborator.
	FileSizeMB float64 `json:"file_size_mb,omitempty"`

	CreatedAt time.Time `json:"created_at"`

	// Chunking lists the persisted chunk runs for this document. Entries
	// whose files no longer exist are dropped on resync.
	Chunking []ChunkRun `json:"chunking,omitempty"`
}

// ConverterInfo extracts the converter segment from a converted filename.
// Filenames follow "<doc>__<converter>__v<version>.md"; when the pattern does
// not hold the converter is reported as unknown.
func ConverterInfo(convertedFilename string) string {
	name := strings.TrimSuffix(convertedFilename, ".md")
	parts := strings.Split(name, "__")
	if len(parts) > 1 {
		return parts[1]
	}
	return "unknown_conv"
}
