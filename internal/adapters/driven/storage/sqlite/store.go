package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/docpipe/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/docpipe/internal/core/domain"
	"github.com/custodia-labs/docpipe/internal/core/ports/driven"
)

// insertBatchSize is how many chunk rows go into one multi-row INSERT.
const insertBatchSize = 100

// Store is a unified SQLite-based storage that provides access to
// the index, checkpoint and briefing store interfaces.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.docpipe/data/index.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".docpipe", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "index.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// IndexStore returns an IndexStore interface backed by this store.
func (s *Store) IndexStore() driven.IndexStore {
	return &indexStore{store: s}
}

// CheckpointStore returns a CheckpointStore interface backed by this store.
func (s *Store) CheckpointStore() driven.CheckpointStore {
	return &checkpointStore{store: s}
}

// BriefingStore returns a BriefingStore interface backed by this store.
func (s *Store) BriefingStore() driven.BriefingStore {
	return &briefingStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
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
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
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

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Index Store ====================

// indexStore implements driven.IndexStore.
type indexStore struct {
	store *Store
}

var _ driven.IndexStore = (*indexStore)(nil)

// Replace atomically swaps the chunk set for a source identity. Delete
// and insert run in one transaction so a reader never sees a mix of old
// and new rows. Rows that fail insertion are retried individually and
// reported; the surviving rows still commit.
func (s *indexStore) Replace(ctx context.Context, sourceID string, chunks []domain.Chunk) error {
	if sourceID == "" {
		return fmt.Errorf("%w: empty source id", domain.ErrInvalidInput)
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE source_id = ?", sourceID); err != nil {
		return fmt.Errorf("deleting existing chunks: %w", err)
	}

	var failures []domain.RowFailure
	for start := 0; start < len(chunks); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		if err := insertBatch(ctx, tx, batch); err == nil {
			continue
		}

		// The multi-row insert failed; find the offending rows one by
		// one so one bad chunk does not lose its siblings.
		for i := range batch {
			if err := insertBatch(ctx, tx, batch[i:i+1]); err != nil {
				failures = append(failures, domain.RowFailure{
					SourceID: batch[i].SourceID,
					Index:    batch[i].Index,
					Err:      err,
				})
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	if len(failures) > 0 {
		return &domain.StorageWriteError{Failures: failures}
	}
	return nil
}

// insertBatch executes one multi-row INSERT for the given chunks.
func insertBatch(ctx context.Context, tx *sql.Tx, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`
		INSERT INTO chunks (
			source_type, source_id, chunk_index, content, embedding,
			created_date, updated_date,
			filename, folder_path, file_type,
			email_from, email_to, email_subject, email_date
		) VALUES `)

	args := make([]any, 0, len(chunks)*14)
	for i, c := range chunks {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			string(c.SourceType), c.SourceID, c.Index, c.Content,
			float32SliceToBytes(c.Embedding),
			c.CreatedDate.UTC(), c.UpdatedDate.UTC(),
			c.Meta.Filename, c.Meta.FolderPath, c.Meta.FileType,
			c.Meta.MailFrom, c.Meta.MailTo, c.Meta.MailSubject,
			nullTime(c.Meta.MailDate),
		)
	}

	if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("inserting chunks: %w", err)
	}
	return nil
}

// Delete removes all chunks for a source identity.
func (s *indexStore) Delete(ctx context.Context, sourceID string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM chunks WHERE source_id = ?", sourceID)
	if err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	return nil
}

// DeletePrefix removes chunks stored under the container itself and
// under every composite "{containerID}:{path}" identity derived from it.
func (s *indexStore) DeletePrefix(ctx context.Context, containerID string) error {
	_, err := s.store.db.ExecContext(ctx, `
		DELETE FROM chunks WHERE source_id = ? OR source_id LIKE ? || ':%'
	`, containerID, containerID)
	if err != nil {
		return fmt.Errorf("deleting chunks by prefix: %w", err)
	}
	return nil
}

// HasSource reports whether any chunk exists for the identity.
func (s *indexStore) HasSource(ctx context.Context, sourceID string) (bool, error) {
	var one int
	err := s.store.db.QueryRowContext(ctx,
		"SELECT 1 FROM chunks WHERE source_id = ? LIMIT 1", sourceID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking source: %w", err)
	}
	return true, nil
}

// Search scans all embedded chunks and returns the k most similar by
// cosine similarity. Ties are broken by smaller chunk id so results are
// stable across runs.
func (s *indexStore) Search(ctx context.Context, query []float32, k int, filter domain.SearchFilter) ([]domain.SearchHit, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", domain.ErrInvalidInput)
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive", domain.ErrInvalidInput)
	}

	sqlQuery := `
		SELECT id, source_type, source_id, chunk_index, content, embedding,
		       created_date, updated_date,
		       filename, folder_path, file_type,
		       email_from, email_to, email_subject, email_date
		FROM chunks WHERE embedding IS NOT NULL`
	var args []any
	if filter.SourceType != "" {
		sqlQuery += " AND source_type = ?"
		args = append(args, string(filter.SourceType))
	}
	if !filter.AfterDate.IsZero() {
		sqlQuery += " AND created_date >= ?"
		args = append(args, filter.AfterDate.UTC())
	}

	rows, err := s.store.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var hits []domain.SearchHit //nolint:prealloc // size unknown from query
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		if len(chunk.Embedding) != len(query) {
			continue
		}
		hits = append(hits, domain.SearchHit{
			Chunk:      *chunk,
			Similarity: cosineSimilarity(query, chunk.Embedding),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].Chunk.ID < hits[j].Chunk.ID
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Close releases the shared database handle.
func (s *indexStore) Close() error {
	return s.store.Close()
}

// ==================== Checkpoint Store ====================

// checkpointStore implements driven.CheckpointStore.
type checkpointStore struct {
	store *Store
}

var _ driven.CheckpointStore = (*checkpointStore)(nil)

// Save stores or updates a checkpoint.
func (s *checkpointStore) Save(ctx context.Context, cp domain.Checkpoint) error {
	if cp.SyncType == "" {
		return fmt.Errorf("%w: empty sync type", domain.ErrInvalidInput)
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO sync_checkpoints (sync_type, cursor, last_sync)
		VALUES (?, ?, ?)
		ON CONFLICT(sync_type) DO UPDATE SET
			cursor = excluded.cursor,
			last_sync = excluded.last_sync
	`, cp.SyncType, cp.Cursor, cp.LastSync.UTC())

	if err != nil {
		return fmt.Errorf("saving checkpoint: %w", err)
	}
	return nil
}

// Get retrieves the checkpoint for a sync type.
func (s *checkpointStore) Get(ctx context.Context, syncType string) (*domain.Checkpoint, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT sync_type, cursor, last_sync
		FROM sync_checkpoints WHERE sync_type = ?
	`, syncType)

	var cp domain.Checkpoint
	var lastSync sql.NullTime
	if err := row.Scan(&cp.SyncType, &cp.Cursor, &lastSync); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning checkpoint: %w", err)
	}

	if lastSync.Valid {
		cp.LastSync = lastSync.Time
	}
	return &cp, nil
}

// ==================== Briefing Store ====================

// briefingStore implements driven.BriefingStore.
type briefingStore struct {
	store *Store
}

var _ driven.BriefingStore = (*briefingStore)(nil)

// Append adds a briefing entry and returns its id.
func (s *briefingStore) Append(ctx context.Context, b driven.Briefing) (int64, error) {
	if b.GeneratedAt.IsZero() {
		b.GeneratedAt = time.Now().UTC()
	}

	res, err := s.store.db.ExecContext(ctx, `
		INSERT INTO briefings (type, content, generated_at, sent)
		VALUES (?, ?, ?, ?)
	`, b.Type, b.Content, b.GeneratedAt.UTC(), b.Sent)
	if err != nil {
		return 0, fmt.Errorf("appending briefing: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting briefing id: %w", err)
	}
	return id, nil
}

// List returns the most recent briefings, newest first.
func (s *briefingStore) List(ctx context.Context, limit int) ([]driven.Briefing, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, type, content, generated_at, sent
		FROM briefings ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying briefings: %w", err)
	}
	defer rows.Close()

	var briefings []driven.Briefing //nolint:prealloc // size unknown from query
	for rows.Next() {
		var b driven.Briefing
		if err := rows.Scan(&b.ID, &b.Type, &b.Content, &b.GeneratedAt, &b.Sent); err != nil {
			return nil, fmt.Errorf("scanning briefing: %w", err)
		}
		briefings = append(briefings, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating briefings: %w", err)
	}
	return briefings, nil
}

// MarkSent flags a briefing as delivered.
func (s *briefingStore) MarkSent(ctx context.Context, id int64) error {
	res, err := s.store.db.ExecContext(ctx,
		"UPDATE briefings SET sent = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("marking briefing sent: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking briefing update: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ==================== Helper Functions ====================

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// cosineSimilarity computes the cosine of the angle between two vectors
// of equal length. Vectors with zero magnitude score 0.
func cosineSimilarity(a, b []float32) float64 {
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

// scanChunk scans a chunk from *sql.Rows.
func scanChunk(rows *sql.Rows) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var sourceType string
	var embeddingBlob []byte
	var createdDate, updatedDate, mailDate sql.NullTime

	if err := rows.Scan(&chunk.ID, &sourceType, &chunk.SourceID, &chunk.Index,
		&chunk.Content, &embeddingBlob, &createdDate, &updatedDate,
		&chunk.Meta.Filename, &chunk.Meta.FolderPath, &chunk.Meta.FileType,
		&chunk.Meta.MailFrom, &chunk.Meta.MailTo, &chunk.Meta.MailSubject,
		&mailDate); err != nil {
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}

	chunk.SourceType = domain.SourceType(sourceType)
	chunk.Embedding = bytesToFloat32Slice(embeddingBlob)
	if createdDate.Valid {
		chunk.CreatedDate = createdDate.Time
	}
	if updatedDate.Valid {
		chunk.UpdatedDate = updatedDate.Time
	}
	if mailDate.Valid {
		chunk.Meta.MailDate = mailDate.Time
	}

	return &chunk, nil
}

// nullTime maps the zero time to SQL NULL.
func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}
