// Package file implements the document store over the on-disk layout
// maintained by the ingestion pipeline:
//
//	<root>/<category>/<doc>/converted/
//	<root>/<category>/<doc>/chunked/
//	<root>/<category>/<doc>/metadata.json
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/ragdex/internal/core/domain"
	"github.com/custodia-labs/ragdex/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// Directory and file names within a document directory.
const (
	convertedDir = "converted"
	chunkedDir   = "chunked"
	metadataFile = "metadata.json"

	// vectorStoresDir holds collections, not documents; category listings
	// must skip it.
	vectorStoresDir = "_vector_stores"
)

// DocumentStore reads and writes document artifacts under a root directory.
type DocumentStore struct {
	root string
}

// NewDocumentStore creates a document store rooted at dir.
func NewDocumentStore(dir string) (*DocumentStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("file: root directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create root directory: %w", err)
	}
	return &DocumentStore{root: dir}, nil
}

func (s *DocumentStore) docDir(category, doc string) string {
	return filepath.Join(s.root, category, doc)
}

// ReadConvertedText returns the content of one converted artifact.
func (s *DocumentStore) ReadConvertedText(_ context.Context, category, doc, filename string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.docDir(category, doc), convertedDir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("converted file %s/%s/%s: %w", category, doc, filename, domain.ErrNotFound)
		}
		return "", fmt.Errorf("read converted file: %w", err)
	}
	return string(data), nil
}

// ListConvertedFiles returns the converted markdown artifacts for a document.
func (s *DocumentStore) ListConvertedFiles(_ context.Context, category, doc string) ([]string, error) {
	return listFiles(filepath.Join(s.docDir(category, doc), convertedDir))
}

// PersistChunkRun writes a chunk-run file, creating the chunked directory on
// first use.
func (s *DocumentStore) PersistChunkRun(_ context.Context, category, doc, filename, content string) error {
	dir := filepath.Join(s.docDir(category, doc), chunkedDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create chunked directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, filename), []byte(content), 0o644); err != nil {
		return fmt.Errorf("write chunk run: %w", err)
	}
	return nil
}

// ReadChunkRun returns the raw content of a persisted chunk-run file.
func (s *DocumentStore) ReadChunkRun(_ context.Context, category, doc, filename string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.docDir(category, doc), chunkedDir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("chunk run %s/%s/%s: %w", category, doc, filename, domain.ErrNotFound)
		}
		return "", fmt.Errorf("read chunk run: %w", err)
	}
	return string(data), nil
}

// ListChunkRunFiles returns the chunk-run filenames present on disk.
func (s *DocumentStore) ListChunkRunFiles(_ context.Context, category, doc string) ([]string, error) {
	return listFiles(filepath.Join(s.docDir(category, doc), chunkedDir))
}

// DeleteChunkRun removes a persisted chunk-run file. Deleting a file that is
// already gone is not an error.
func (s *DocumentStore) DeleteChunkRun(_ context.Context, category, doc, filename string) error {
	err := os.Remove(filepath.Join(s.docDir(category, doc), chunkedDir, filename))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete chunk run: %w", err)
	}
	return nil
}

// LoadMetadata returns the document's metadata record.
func (s *DocumentStore) LoadMetadata(_ context.Context, category, doc string) (*domain.DocumentMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.docDir(category, doc), metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("metadata for %s/%s: %w", category, doc, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("read metadata: %w", err)
	}

	var meta domain.DocumentMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return &meta, nil
}

// SaveMetadata persists the document's metadata record.
func (s *DocumentStore) SaveMetadata(_ context.Context, category, doc string, meta *domain.DocumentMetadata) error {
	dir := s.docDir(category, doc)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create document directory: %w", err)
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, metadataFile), data, 0o644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// ListDocuments returns the document directory names within a category.
func (s *DocumentStore) ListDocuments(_ context.Context, category string) ([]string, error) {
	return listDirs(filepath.Join(s.root, category))
}

// ListCategories returns all category directory names under the root.
func (s *DocumentStore) ListCategories(_ context.Context) ([]string, error) {
	return listDirs(s.root)
}

// listFiles returns sorted regular-file names in dir; a missing dir is empty.
func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// listDirs returns sorted subdirectory names in dir, skipping hidden entries
// and the collection area.
func listDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, ".") || name == vectorStoresDir {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
