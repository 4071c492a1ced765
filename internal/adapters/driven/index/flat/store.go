// Package flat implements the collection store as a flat vector index: an
// exhaustively-scanned row-major float32 matrix persisted next to a JSON
// metadata sidecar.
//
// Layout: <root>/<category>/_vector_stores/<name>/{index.bin, metadata.json}
package flat

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/ragdex/internal/core/domain"
	"github.com/custodia-labs/ragdex/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.CollectionStore = (*Store)(nil)

const (
	vectorStoresDir = "_vector_stores"
	indexFile       = "index.bin"
	metadataFile    = "metadata.json"
)

// Store persists collections under a root directory shared with the
// document store.
type Store struct {
	root string
}

// NewStore creates a collection store rooted at dir.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("flat: root directory is required")
	}
	return &Store{root: dir}, nil
}

func (s *Store) collectionDir(category, name string) string {
	return filepath.Join(s.root, category, vectorStoresDir, name)
}

// Write persists a collection atomically: both artifacts are staged in a
// temp directory which is then renamed over the final path, so a concurrent
// reader never observes the index without its sidecar.
func (s *Store) Write(_ context.Context, meta domain.CollectionMeta, vectors [][]float32) error {
	if len(vectors) != meta.NumChunks {
		return fmt.Errorf("flat: %d vectors for %d chunks: %w", len(vectors), meta.NumChunks, domain.ErrInvalidInput)
	}

	parent := filepath.Join(s.root, meta.Category, vectorStoresDir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("create vector store directory: %w", err)
	}

	tmp := filepath.Join(parent, fmt.Sprintf(".tmp-%s-%d", meta.Name, os.Getpid()))
	if err := os.RemoveAll(tmp); err != nil {
		return fmt.Errorf("clear staging directory: %w", err)
	}
	if err := os.Mkdir(tmp, 0o755); err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}
	defer os.RemoveAll(tmp)

	if err := writeIndex(filepath.Join(tmp, indexFile), vectors); err != nil {
		return err
	}

	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode collection metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(tmp, metadataFile), metaJSON, 0o644); err != nil {
		return fmt.Errorf("write collection metadata: %w", err)
	}

	final := s.collectionDir(meta.Category, meta.Name)
	if err := os.RemoveAll(final); err != nil {
		return fmt.Errorf("remove previous collection: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("publish collection: %w", err)
	}
	return nil
}

// Load returns a collection's metadata and vectors.
func (s *Store) Load(ctx context.Context, category, name string) (*domain.CollectionMeta, [][]float32, error) {
	meta, err := s.LoadMeta(ctx, category, name)
	if err != nil {
		return nil, nil, err
	}

	vectors, err := readIndex(filepath.Join(s.collectionDir(category, name), indexFile))
	if err != nil {
		return nil, nil, err
	}
	if len(vectors) != meta.NumChunks {
		return nil, nil, fmt.Errorf("flat: collection %s/%s holds %d vectors for %d chunks", category, name, len(vectors), meta.NumChunks)
	}
	return meta, vectors, nil
}

// LoadMeta returns only the metadata sidecar.
func (s *Store) LoadMeta(_ context.Context, category, name string) (*domain.CollectionMeta, error) {
	data, err := os.ReadFile(filepath.Join(s.collectionDir(category, name), metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("collection %s/%s: %w", category, name, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("read collection metadata: %w", err)
	}

	var meta domain.CollectionMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode collection metadata: %w", err)
	}
	return &meta, nil
}

// Search loads the collection and exhaustively scans it for the k nearest
// chunks to the query vector.
func (s *Store) Search(ctx context.Context, category, name string, query []float32, k int) ([]domain.RetrievedChunk, error) {
	meta, vectors, err := s.Load(ctx, category, name)
	if err != nil {
		return nil, err
	}

	matches := Search(vectors, query, k)
	results := make([]domain.RetrievedChunk, 0, len(matches))
	for _, m := range matches {
		results = append(results, domain.RetrievedChunk{
			Chunk: meta.Chunks[m.Index],
			Score: m.Distance,
		})
	}
	return results, nil
}

// List returns the collection names within a category, skipping staging
// directories left behind by interrupted writes.
func (s *Store) List(_ context.Context, category string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, category, vectorStoresDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read vector store directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes a collection irreversibly.
func (s *Store) Delete(_ context.Context, category, name string) error {
	dir := s.collectionDir(category, name)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("collection %s/%s: %w", category, name, domain.ErrNotFound)
		}
		return fmt.Errorf("stat collection: %w", err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	return nil
}

// Index file format: uint32 row count, uint32 dimensions, then row-major
// float32 values, all little-endian.

func writeIndex(path string, vectors [][]float32) error {
	dims := 0
	if len(vectors) > 0 {
		dims = len(vectors[0])
	}
	for i, v := range vectors {
		if len(v) != dims {
			return fmt.Errorf("flat: vector %d has %d dimensions, want %d: %w", i, len(v), dims, domain.ErrInvalidInput)
		}
	}

	buf := make([]byte, 8+4*len(vectors)*dims)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(vectors)))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(dims))
	offset := 8
	for _, v := range vectors {
		for _, x := range v {
			binary.LittleEndian.PutUint32(buf[offset:offset+4], math.Float32bits(x))
			offset += 4
		}
	}

	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return nil
}

func readIndex(path string) ([][]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("index file: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("read index: %w", err)
	}
	if len(data) < 8 {
		return nil, fmt.Errorf("flat: index file truncated")
	}

	rows := int(binary.LittleEndian.Uint32(data[0:4]))
	dims := int(binary.LittleEndian.Uint32(data[4:8]))
	if len(data) != 8+4*rows*dims {
		return nil, fmt.Errorf("flat: index file holds %d bytes, want %d", len(data), 8+4*rows*dims)
	}

	vectors := make([][]float32, rows)
	offset := 8
	for i := range vectors {
		row := make([]float32, dims)
		for j := range row {
			row[j] = math.Float32frombits(binary.LittleEndian.Uint32(data[offset : offset+4]))
			offset += 4
		}
		vectors[i] = row
	}
	return vectors, nil
}
