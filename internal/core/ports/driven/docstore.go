package driven

import (
	"context"

	"github.com/custodia-labs/ragdex/internal/core/domain"
)

// DocumentStore provides access to the on-disk document layout maintained by
// the ingestion/conversion collaborators. Layout per document:
//
//	<root>/<category>/<doc>/converted/   converted markdown artifacts
//	<root>/<category>/<doc>/chunked/     persisted chunk-run files
//	<root>/<category>/<doc>/metadata.json
//
// Upload, conversion and archival happen outside this core.
type DocumentStore interface {
	// ReadConvertedText returns the content of one converted artifact.
	// Returns domain.ErrNotFound when the artifact does not exist.
	ReadConvertedText(ctx context.Context, category, doc, filename string) (string, error)

	// ListConvertedFiles returns the converted artifacts available for a document.
	ListConvertedFiles(ctx context.Context, category, doc string) ([]string, error)

	// PersistChunkRun writes a chunk-run file under the document's chunked/ directory.
	PersistChunkRun(ctx context.Context, category, doc, filename, content string) error

	// ReadChunkRun returns the raw content of a persisted chunk-run file.
	ReadChunkRun(ctx context.Context, category, doc, filename string) (string, error)

	// ListChunkRunFiles returns the chunk-run filenames that actually exist
	// on disk, used to resynchronise metadata.
	ListChunkRunFiles(ctx context.Context, category, doc string) ([]string, error)

	// DeleteChunkRun removes a persisted chunk-run file.
	DeleteChunkRun(ctx context.Context, category, doc, filename string) error

	// LoadMetadata returns the document's metadata record, or
	// domain.ErrNotFound when the document has none.
	LoadMetadata(ctx context.Context, category, doc string) (*domain.DocumentMetadata, error)

	// SaveMetadata persists the document's metadata record.
	SaveMetadata(ctx context.Context, category, doc string, meta *domain.DocumentMetadata) error

	// ListDocuments returns the document names within a category.
	ListDocuments(ctx context.Context, category string) ([]string, error)

	// ListCategories returns all category names.
	ListCategories(ctx context.Context) ([]string, error)
}
