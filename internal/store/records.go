package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure Go SQLite driver, no CGO

	"github.com/localfinderx/localfinderx/internal/schema"
)

// RecordStore persists the full FileRecord and ChunkRecord rows that the
// vector and lexical stores deliberately don't keep: raw chunk text,
// per-chunk location metadata, and file-level bookkeeping like index
// stats. The Evidence Builder reads chunk text and metadata from here by
// chunk_id; the orchestrator and any status/diagnostics surface read file
// rows from here by file_id.
//
// Embeddings are not duplicated into this store — HNSWVectorStore already
// holds them keyed by chunk_id, and they're large enough that storing them
// twice would roughly double the on-disk footprint for no benefit.
//
// Connection handling follows a single-writer SQLite discipline:
// modernc.org/sqlite, WAL journaling,
// one connection, pragmas applied explicitly because the pure-Go driver
// doesn't always honor DSN query parameters.
type RecordStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

// validateRecordsIntegrity checks an existing records database: one that
// fails PRAGMA integrity_check or is missing its files table is deleted
// by NewRecordStore and recreated empty rather than opened. (The lexical
// and vector stores have no such check; they return an error instead.)
func validateRecordsIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}

	var count int
	err = db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='files'`).Scan(&count)
	if err != nil {
		return fmt.Errorf("cannot query schema: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("table 'files' missing")
	}
	return nil
}

// NewRecordStore opens (or creates) the records database at path. An empty
// path opens an in-memory database for tests.
func NewRecordStore(path string) (*RecordStore, error) {
	var dsn string
	if path == "" {
		dsn = ":memory:"
	} else {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}

		if validErr := validateRecordsIntegrity(path); validErr != nil {
			slog.Warn("records_db_corrupted",
				slog.String("path", path),
				slog.String("error", validErr.Error()))

			if removeErr := os.Remove(path); removeErr != nil && !os.IsNotExist(removeErr) {
				return nil, fmt.Errorf("records database corrupted at %s and cannot remove: %w (original error: %v)", path, removeErr, validErr)
			}
			_ = os.Remove(path + "-wal")
			_ = os.Remove(path + "-shm")

			slog.Info("records_db_cleared",
				slog.String("path", path),
				slog.String("reason", "corruption detected, reindex required"))
		}

		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open records database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -65536",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	rs := &RecordStore{db: db, path: path}
	if err := rs.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize records schema: %w", err)
	}
	return rs, nil
}

func (s *RecordStore) initSchema() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS files (
		file_id          TEXT PRIMARY KEY,
		schema_version   TEXT NOT NULL,
		source           TEXT NOT NULL,
		content_indexed  INTEGER NOT NULL,
		path             TEXT NOT NULL UNIQUE,
		filename         TEXT NOT NULL,
		extension        TEXT NOT NULL,
		size_bytes       INTEGER NOT NULL,
		created_at       REAL NOT NULL,
		modified_at      REAL NOT NULL,
		author           TEXT NOT NULL,
		fp_size_bytes    INTEGER NOT NULL,
		fp_modified_at   REAL NOT NULL,
		fp_hash          TEXT NOT NULL,
		chunk_count      INTEGER NOT NULL,
		last_indexed_at  REAL NOT NULL,
		index_error      TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chunks (
		chunk_id        TEXT PRIMARY KEY,
		file_id         TEXT NOT NULL REFERENCES files(file_id) ON DELETE CASCADE,
		chunk_index     INTEGER NOT NULL,
		schema_version  TEXT NOT NULL,
		text            TEXT NOT NULL,
		tokens          TEXT NOT NULL,
		extraction_type TEXT NOT NULL,
		metadata        TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_file_id ON chunks(file_id);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`
	_, err := s.db.Exec(ddl)
	return err
}

// SaveFile upserts a FileRecord, replacing any prior row for the same
// file_id.
func (s *RecordStore) SaveFile(ctx context.Context, rec schema.FileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("records store is closed")
	}

	const stmt = `
	INSERT INTO files (
		file_id, schema_version, source, content_indexed, path, filename, extension,
		size_bytes, created_at, modified_at, author,
		fp_size_bytes, fp_modified_at, fp_hash,
		chunk_count, last_indexed_at, index_error
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(file_id) DO UPDATE SET
		schema_version = excluded.schema_version,
		source = excluded.source,
		content_indexed = excluded.content_indexed,
		path = excluded.path,
		filename = excluded.filename,
		extension = excluded.extension,
		size_bytes = excluded.size_bytes,
		created_at = excluded.created_at,
		modified_at = excluded.modified_at,
		author = excluded.author,
		fp_size_bytes = excluded.fp_size_bytes,
		fp_modified_at = excluded.fp_modified_at,
		fp_hash = excluded.fp_hash,
		chunk_count = excluded.chunk_count,
		last_indexed_at = excluded.last_indexed_at,
		index_error = excluded.index_error
	`
	_, err := s.db.ExecContext(ctx, stmt,
		rec.FileID, rec.SchemaVersion, string(rec.Source), rec.ContentIndexed,
		rec.Path, rec.Filename, rec.Extension,
		rec.SizeBytes, rec.CreatedAt, rec.ModifiedAt, rec.Author,
		rec.Fingerprint.SizeBytes, rec.Fingerprint.ModifiedAt, rec.Fingerprint.Hash,
		rec.IndexStats.ChunkCount, rec.IndexStats.LastIndexedAt, rec.IndexStats.IndexError,
	)
	if err != nil {
		return fmt.Errorf("save file record %s: %w", rec.FileID, err)
	}
	return nil
}

// GetFile returns the FileRecord for fileID, or false if no row exists.
func (s *RecordStore) GetFile(ctx context.Context, fileID string) (schema.FileRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return schema.FileRecord{}, false, fmt.Errorf("records store is closed")
	}

	const q = `
	SELECT file_id, schema_version, source, content_indexed, path, filename, extension,
		size_bytes, created_at, modified_at, author,
		fp_size_bytes, fp_modified_at, fp_hash,
		chunk_count, last_indexed_at, index_error
	FROM files WHERE file_id = ?
	`
	row := s.db.QueryRowContext(ctx, q, fileID)
	rec, err := scanFileRow(row.Scan)
	if err == sql.ErrNoRows {
		return schema.FileRecord{}, false, nil
	}
	if err != nil {
		return schema.FileRecord{}, false, fmt.Errorf("get file record %s: %w", fileID, err)
	}
	return rec, true, nil
}

// GetFileByPath returns the FileRecord whose path matches, used by the
// watcher to resolve a filesystem event back to a known file_id.
func (s *RecordStore) GetFileByPath(ctx context.Context, path string) (schema.FileRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return schema.FileRecord{}, false, fmt.Errorf("records store is closed")
	}

	const q = `
	SELECT file_id, schema_version, source, content_indexed, path, filename, extension,
		size_bytes, created_at, modified_at, author,
		fp_size_bytes, fp_modified_at, fp_hash,
		chunk_count, last_indexed_at, index_error
	FROM files WHERE path = ?
	`
	row := s.db.QueryRowContext(ctx, q, path)
	rec, err := scanFileRow(row.Scan)
	if err == sql.ErrNoRows {
		return schema.FileRecord{}, false, nil
	}
	if err != nil {
		return schema.FileRecord{}, false, fmt.Errorf("get file record by path %s: %w", path, err)
	}
	return rec, true, nil
}

// DeleteFile removes the file row and every chunk row for fileID in one
// transaction, deleting the chunk rows explicitly rather than relying
// solely on the CASCADE. It reports only success or failure.
func (s *RecordStore) DeleteFile(ctx context.Context, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("records store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete file transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE file_id = ?`, fileID); err != nil {
		return fmt.Errorf("delete chunks for file %s: %w", fileID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE file_id = ?`, fileID); err != nil {
		return fmt.Errorf("delete file %s: %w", fileID, err)
	}
	return tx.Commit()
}

// SaveChunks replaces every chunk row for the chunks' file_id with the
// given set, in a single transaction. Callers pass the complete chunk list
// for a file each time; there is no partial-update path.
func (s *RecordStore) SaveChunks(ctx context.Context, fileID string, chunks []schema.ChunkRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("records store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save chunks transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE file_id = ?`, fileID); err != nil {
		return fmt.Errorf("clear existing chunks for file %s: %w", fileID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (chunk_id, file_id, chunk_index, schema_version, text, tokens, extraction_type, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		tokensJSON, err := json.Marshal(c.Tokens)
		if err != nil {
			return fmt.Errorf("marshal tokens for chunk %s: %w", c.ChunkID, err)
		}
		metaJSON, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata for chunk %s: %w", c.ChunkID, err)
		}
		if _, err := stmt.ExecContext(ctx, c.ChunkID, fileID, c.ChunkIndex, c.SchemaVersion,
			c.Text, string(tokensJSON), string(c.ExtractionType), string(metaJSON)); err != nil {
			return fmt.Errorf("insert chunk %s: %w", c.ChunkID, err)
		}
	}

	return tx.Commit()
}

// GetChunksByFile returns every chunk row for fileID, ordered by chunk
// index. The Embedding field is always left zero-valued: vectors live in
// HNSWVectorStore, not here.
func (s *RecordStore) GetChunksByFile(ctx context.Context, fileID string) ([]schema.ChunkRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("records store is closed")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_id, file_id, chunk_index, schema_version, text, tokens, extraction_type, metadata
		FROM chunks WHERE file_id = ? ORDER BY chunk_index ASC
	`, fileID)
	if err != nil {
		return nil, fmt.Errorf("query chunks for file %s: %w", fileID, err)
	}
	defer rows.Close()

	var out []schema.ChunkRecord
	for rows.Next() {
		c, err := scanChunkRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan chunk row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetChunksByID returns the chunk rows for the given chunk_ids, in no
// particular order, skipping any ID that no longer exists. The Evidence
// Builder calls this with the chunk_ids a retrieval pass surfaced.
func (s *RecordStore) GetChunksByID(ctx context.Context, chunkIDs []string) ([]schema.ChunkRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("records store is closed")
	}
	if len(chunkIDs) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(chunkIDs))
	args := make([]any, len(chunkIDs))
	for i, id := range chunkIDs {
		placeholders[i] = "?"
		args[i] = id
	}

	q := fmt.Sprintf(`
		SELECT chunk_id, file_id, chunk_index, schema_version, text, tokens, extraction_type, metadata
		FROM chunks WHERE chunk_id IN (%s)
	`, joinPlaceholders(placeholders))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query chunks by id: %w", err)
	}
	defer rows.Close()

	var out []schema.ChunkRecord
	for rows.Next() {
		c, err := scanChunkRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan chunk row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteChunksByFile removes only the chunk rows for fileID, leaving the
// file row in place. Used when a file is downgraded from content-indexed
// to metadata-only on re-extraction failure.
func (s *RecordStore) DeleteChunksByFile(ctx context.Context, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("records store is closed")
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE file_id = ?`, fileID); err != nil {
		return fmt.Errorf("delete chunks for file %s: %w", fileID, err)
	}
	return nil
}

// Stats summarizes the records store's contents for status/diagnostics
// surfaces.
type Stats struct {
	FileCount           int
	ContentIndexedCount int
	ChunkCount          int
}

// Stats computes summary counts over the whole store.
func (s *RecordStore) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return Stats{}, fmt.Errorf("records store is closed")
	}

	var st Stats
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files`).Scan(&st.FileCount); err != nil {
		return Stats{}, fmt.Errorf("count files: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files WHERE content_indexed = 1`).Scan(&st.ContentIndexedCount); err != nil {
		return Stats{}, fmt.Errorf("count content-indexed files: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&st.ChunkCount); err != nil {
		return Stats{}, fmt.Errorf("count chunks: %w", err)
	}
	return st, nil
}

// Close closes the underlying database connection. Safe to call more than
// once.
func (s *RecordStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func joinPlaceholders(parts []string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out += "," + p
	}
	return out
}

// scanFileRow scans a files row via the given Scan func, shared by GetFile
// and GetFileByPath.
func scanFileRow(scan func(dest ...any) error) (schema.FileRecord, error) {
	var (
		rec        schema.FileRecord
		source     string
		contentIdx int
	)
	err := scan(
		&rec.FileID, &rec.SchemaVersion, &source, &contentIdx,
		&rec.Path, &rec.Filename, &rec.Extension,
		&rec.SizeBytes, &rec.CreatedAt, &rec.ModifiedAt, &rec.Author,
		&rec.Fingerprint.SizeBytes, &rec.Fingerprint.ModifiedAt, &rec.Fingerprint.Hash,
		&rec.IndexStats.ChunkCount, &rec.IndexStats.LastIndexedAt, &rec.IndexStats.IndexError,
	)
	if err != nil {
		return schema.FileRecord{}, err
	}
	rec.Source = schema.Source(source)
	rec.ContentIndexed = contentIdx != 0
	return rec, nil
}

// scanChunkRow scans a chunks row via the given Scan func, shared by
// GetChunksByFile and GetChunksByID. The Embedding field is left nil.
func scanChunkRow(scan func(dest ...any) error) (schema.ChunkRecord, error) {
	var (
		c              schema.ChunkRecord
		tokensJSON     string
		extractionType string
		metaJSON       string
	)
	if err := scan(&c.ChunkID, &c.FileID, &c.ChunkIndex, &c.SchemaVersion,
		&c.Text, &tokensJSON, &extractionType, &metaJSON); err != nil {
		return schema.ChunkRecord{}, err
	}
	if err := json.Unmarshal([]byte(tokensJSON), &c.Tokens); err != nil {
		return schema.ChunkRecord{}, fmt.Errorf("unmarshal tokens: %w", err)
	}
	if err := json.Unmarshal([]byte(metaJSON), &c.Metadata); err != nil {
		return schema.ChunkRecord{}, fmt.Errorf("unmarshal metadata: %w", err)
	}
	c.ExtractionType = schema.ExtractionType(extractionType)
	return c, nil
}
