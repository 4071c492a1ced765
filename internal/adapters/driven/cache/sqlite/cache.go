// Package sqlite implements the response cache on a single SQLite database
// with versioned migrations.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/ragdex/internal/adapters/driven/cache/sqlite/migrations"
	"github.com/custodia-labs/ragdex/internal/core/domain"
	"github.com/custodia-labs/ragdex/internal/core/ports/driven"
)

// Ensure Cache implements the interface.
var _ driven.ResponseCache = (*Cache)(nil)

// cacheColumns is the full column list shared by every SELECT, kept in one
// place so scanEntry stays aligned with it.
const cacheColumns = `id, query, answer, sources, state_hash, thumbs_up, thumbs_down,
	hit_count, category, collection_name, prompt_content, model_name, created_at,
	query_embedding, rewritten_query, rerank_used, plausible_sources, rerank_prompt, rewrite_prompt`

// Cache is the SQLite-backed response cache.
type Cache struct {
	db   *sql.DB
	path string
}

// NewCache opens (or creates) the cache database in the given data directory
// and applies pending migrations. If dataDir is empty, defaults to
// ~/.ragdex/data/rag_cache.db.
func NewCache(dataDir string) (*Cache, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".ragdex", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "rag_cache.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	c := &Cache{
		db:   db,
		path: dbPath,
	}

	if err := c.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return c, nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Path returns the database file path.
func (c *Cache) Path() string {
	return c.path
}

// migrate runs all pending migrations.
func (c *Cache) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := c.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := c.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// filterClause maps a filter mode to its feedback predicate.
func filterClause(mode domain.FilterMode) string {
	switch mode {
	case domain.FilterOnlyPositive:
		return "thumbs_up > 0 AND thumbs_down = 0"
	case domain.FilterPosGtNeg:
		return "thumbs_up > thumbs_down"
	default:
		return "1 = 1"
	}
}

// Check performs the exact-then-approximate lookup. A miss returns (nil, nil).
func (c *Cache) Check(ctx context.Context, req driven.CacheCheckRequest) (*domain.CacheHit, error) {
	// Stage 1: exact query match for this corpus state.
	row := c.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM rag_cache
		WHERE state_hash = ? AND query = ? AND %s
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, cacheColumns, filterClause(req.Filter)), req.StateHash, req.Query)

	entry, err := scanEntry(row)
	if err == nil {
		if err := c.recordHit(ctx, entry.ID); err != nil {
			return nil, err
		}
		entry.HitCount++
		return &domain.CacheHit{Entry: *entry, Similarity: 1.0}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	// Stage 2: embedding similarity over entries for the same state.
	if req.QueryEmbedding == nil || req.SimilarityThreshold >= 1.0 {
		return nil, nil
	}

	rows, err := c.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM rag_cache
		WHERE state_hash = ? AND query_embedding IS NOT NULL AND %s
		ORDER BY created_at DESC, id DESC
	`, cacheColumns, filterClause(req.Filter)), req.StateHash)
	if err != nil {
		return nil, fmt.Errorf("querying cache candidates: %w", err)
	}
	defer rows.Close()

	var best *domain.CacheEntry
	bestSim := req.SimilarityThreshold
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		sim := cosineSimilarity(req.QueryEmbedding, entry.QueryEmbedding)
		if sim < req.SimilarityThreshold {
			continue
		}
		// Strictly greater keeps the most recent candidate on ties, since
		// rows arrive newest first.
		if best == nil || sim > bestSim {
			best = entry
			bestSim = sim
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating cache candidates: %w", err)
	}
	if best == nil {
		return nil, nil
	}

	if err := c.recordHit(ctx, best.ID); err != nil {
		return nil, err
	}
	best.HitCount++
	return &domain.CacheHit{Entry: *best, Similarity: bestSim}, nil
}

// recordHit increments the hit counter on a served entry.
func (c *Cache) recordHit(ctx context.Context, id int64) error {
	if _, err := c.db.ExecContext(ctx, "UPDATE rag_cache SET hit_count = hit_count + 1 WHERE id = ?", id); err != nil {
		return fmt.Errorf("recording cache hit: %w", err)
	}
	return nil
}

// Save appends a new entry. Prior entries for the same query and state stay
// untouched.
func (c *Cache) Save(ctx context.Context, entry domain.CacheEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	sourcesJSON, err := marshalSources(entry.Sources)
	if err != nil {
		return fmt.Errorf("marshalling sources: %w", err)
	}
	plausibleJSON, err := marshalSources(entry.PlausibleSources)
	if err != nil {
		return fmt.Errorf("marshalling plausible sources: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO rag_cache (
			query, answer, sources, state_hash, thumbs_up, thumbs_down, hit_count,
			category, collection_name, prompt_content, model_name, created_at,
			query_embedding, rewritten_query, rerank_used, plausible_sources,
			rerank_prompt, rewrite_prompt
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.Query, entry.Answer, sourcesJSON, entry.StateHash,
		entry.ThumbsUp, entry.ThumbsDown, entry.HitCount,
		nullString(entry.Category), nullString(entry.CollectionName),
		nullString(entry.PromptContent), nullString(entry.ModelName),
		entry.CreatedAt,
		float32SliceToBytes(entry.QueryEmbedding),
		nullString(entry.RewrittenQuery), entry.RerankUsed, plausibleJSON,
		nullString(entry.RerankPrompt), nullString(entry.RewritePrompt))
	if err != nil {
		return fmt.Errorf("saving cache entry: %w", err)
	}
	return nil
}

// UpdateFeedback increments the feedback counter on the most recent entry
// matching query and state hash. No rows matching is not an error.
func (c *Cache) UpdateFeedback(ctx context.Context, query, stateHash string, fb domain.Feedback) error {
	column := "thumbs_up"
	if fb == domain.FeedbackDown {
		column = "thumbs_down"
	}

	_, err := c.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE rag_cache SET %s = %s + 1
		WHERE id = (
			SELECT id FROM rag_cache
			WHERE query = ? AND state_hash = ?
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		)
	`, column, column), query, stateHash)
	if err != nil {
		return fmt.Errorf("updating feedback: %w", err)
	}
	return nil
}

// List returns entries newest first, optionally filtered by category and
// collection name.
func (c *Cache) List(ctx context.Context, category, collection string) ([]domain.CacheEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM rag_cache", cacheColumns)
	var conds []string
	var args []any
	if category != "" {
		conds = append(conds, "category = ?")
		args = append(args, category)
	}
	if collection != "" {
		conds = append(conds, "collection_name = ?")
		args = append(args, collection)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing cache entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.CacheEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating cache entries: %w", err)
	}
	return entries, nil
}

// Delete removes a single entry by ID.
func (c *Cache) Delete(ctx context.Context, id int64) error {
	result, err := c.db.ExecContext(ctx, "DELETE FROM rag_cache WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting cache entry: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("cache entry %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// PurgeAll removes every entry.
func (c *Cache) PurgeAll(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, "DELETE FROM rag_cache"); err != nil {
		return fmt.Errorf("purging cache: %w", err)
	}
	return nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanEntry reads one row in cacheColumns order.
func scanEntry(row scanner) (*domain.CacheEntry, error) {
	var entry domain.CacheEntry
	var sourcesJSON, plausibleJSON sql.NullString
	var category, collection, prompt, model sql.NullString
	var rewritten, rerankPrompt, rewritePrompt sql.NullString
	var embedding []byte
	var createdAt time.Time

	err := row.Scan(&entry.ID, &entry.Query, &entry.Answer, &sourcesJSON, &entry.StateHash,
		&entry.ThumbsUp, &entry.ThumbsDown, &entry.HitCount,
		&category, &collection, &prompt, &model, &createdAt,
		&embedding, &rewritten, &entry.RerankUsed, &plausibleJSON,
		&rerankPrompt, &rewritePrompt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning cache entry: %w", err)
	}

	entry.Category = category.String
	entry.CollectionName = collection.String
	entry.PromptContent = prompt.String
	entry.ModelName = model.String
	entry.RewrittenQuery = rewritten.String
	entry.RerankPrompt = rerankPrompt.String
	entry.RewritePrompt = rewritePrompt.String
	entry.CreatedAt = createdAt.UTC()
	entry.QueryEmbedding = bytesToFloat32Slice(embedding)

	if entry.Sources, err = unmarshalSources(sourcesJSON); err != nil {
		return nil, fmt.Errorf("unmarshalling sources: %w", err)
	}
	if entry.PlausibleSources, err = unmarshalSources(plausibleJSON); err != nil {
		return nil, fmt.Errorf("unmarshalling plausible sources: %w", err)
	}
	return &entry, nil
}

func marshalSources(sources []domain.RetrievedChunk) (sql.NullString, error) {
	if len(sources) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(sources)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func unmarshalSources(s sql.NullString) ([]domain.RetrievedChunk, error) {
	if !s.Valid || s.String == "" || s.String == "null" {
		return nil, nil
	}
	var sources []domain.RetrievedChunk
	if err := json.Unmarshal([]byte(s.String), &sources); err != nil {
		return nil, err
	}
	return sources, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// float32SliceToBytes encodes a vector as little-endian float32 bytes.
// A nil vector maps to a NULL column.
func float32SliceToBytes(v []float32) []byte {
	if v == nil {
		return nil
	}
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(x))
	}
	return buf
}

// bytesToFloat32Slice decodes a little-endian float32 blob.
func bytesToFloat32Slice(b []byte) []float32 {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

// cosineSimilarity returns the cosine of the angle between two vectors, or 0
// when either is empty or lengths differ.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
