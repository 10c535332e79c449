// Package filestore implements the sync driver that reconciles the
// cloud file store against the index.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/custodia-labs/docpipe/internal/core/domain"
	"github.com/custodia-labs/docpipe/internal/core/ports/driven"
	"github.com/custodia-labs/docpipe/internal/core/ports/driving"
	"github.com/custodia-labs/docpipe/internal/core/services"
	"github.com/custodia-labs/docpipe/internal/logger"
)

// SyncType is the checkpoint identity of this driver.
const SyncType = "filestore"

// DefaultMaxFileBytes is the per-file download ceiling.
const DefaultMaxFileBytes = 10 << 20 // 10 MB

// DefaultWorkers is the item-level concurrency of one pass.
const DefaultWorkers = 4

// Ensure Driver implements the interface.
var _ driving.SyncDriver = (*Driver)(nil)

// Driver runs incremental reconciliation passes over the file store.
// Files are identified by their lower-cased display path: the change
// feed reports deletions by path only, so the path is the one identity
// that exists on both sides of the delta.
type Driver struct {
	client      driven.FileStoreClient
	engine      driven.ExtractionEngine
	indexer     *services.Indexer
	checkpoints driven.CheckpointStore

	maxFileBytes int64
	workers      int
}

// Option configures the driver.
type Option func(*Driver)

// WithMaxFileBytes sets the per-file size ceiling.
func WithMaxFileBytes(n int64) Option {
	return func(d *Driver) {
		if n > 0 {
			d.maxFileBytes = n
		}
	}
}

// WithWorkers sets the item-level concurrency.
func WithWorkers(n int) Option {
	return func(d *Driver) {
		if n > 0 {
			d.workers = n
		}
	}
}

// New creates a file store sync driver.
func New(
	client driven.FileStoreClient,
	engine driven.ExtractionEngine,
	indexer *services.Indexer,
	checkpoints driven.CheckpointStore,
	opts ...Option,
) *Driver {
	d := &Driver{
		client:       client,
		engine:       engine,
		indexer:      indexer,
		checkpoints:  checkpoints,
		maxFileBytes: DefaultMaxFileBytes,
		workers:      DefaultWorkers,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Type returns the sync type identifier.
func (d *Driver) Type() string {
	return SyncType
}

// Sync runs one reconciliation pass: enumerate the full delta since the
// stored cursor, process every item, then commit the new cursor. The
// cursor is written only after the whole delta has been attempted, so a
// crash mid-pass re-runs the same delta and the idempotent replace
// semantics absorb the repetition.
func (d *Driver) Sync(ctx context.Context) (domain.SyncStats, error) {
	var stats domain.SyncStats

	cursor := ""
	cp, err := d.checkpoints.Get(ctx, SyncType)
	switch {
	case err == nil:
		cursor = cp.Cursor
	case errors.Is(err, domain.ErrNotFound):
		// First run: full listing.
	default:
		return stats, fmt.Errorf("loading checkpoint: %w", err)
	}

	changes, deletions, newCursor, err := d.enumerate(ctx, cursor)
	if err != nil {
		return stats, err
	}
	logger.Info("filestore: delta has %d changes, %d deletions", len(changes), len(deletions))

	for _, p := range deletions {
		if err := d.indexer.DeleteContainer(ctx, sourceIDForPath(p)); err != nil {
			logger.Warn("filestore: deleting %s: %v", p, err)
			stats.Errors++
			continue
		}
		stats.Deleted++
	}

	if err := d.processChanges(ctx, changes, &stats); err != nil {
		return stats, err
	}

	if err := d.checkpoints.Save(ctx, domain.Checkpoint{
		SyncType: SyncType,
		Cursor:   newCursor,
		LastSync: time.Now().UTC(),
	}); err != nil {
		return stats, fmt.Errorf("saving checkpoint: %w", err)
	}
	return stats, nil
}

// enumerate drains the change feed into memory. Holding the pages
// locally keeps the cursor uncommitted until every item has been tried.
func (d *Driver) enumerate(ctx context.Context, cursor string) ([]driven.FileChange, []string, string, error) {
	var (
		changes   []driven.FileChange
		deletions []string
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, nil, "", err
		}

		page, err := d.client.ListChanges(ctx, cursor)
		if err != nil {
			return nil, nil, "", fmt.Errorf("enumerating changes: %w", err)
		}
		changes = append(changes, page.Changes...)
		deletions = append(deletions, page.Deletions...)
		cursor = page.Cursor

		if !page.HasMore {
			return changes, deletions, cursor, nil
		}
	}
}

// processChanges fans the changed files out over the worker pool.
func (d *Driver) processChanges(ctx context.Context, changes []driven.FileChange, stats *domain.SyncStats) error {
	pool, err := ants.NewPool(d.workers)
	if err != nil {
		return fmt.Errorf("creating worker pool: %w", err)
	}
	defer pool.Release()

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	record := func(fn func(*domain.SyncStats)) {
		mu.Lock()
		fn(stats)
		mu.Unlock()
	}

	for _, change := range changes {
		change := change
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			outcome := d.processFile(ctx, change)
			record(func(s *domain.SyncStats) { s.Merge(outcome) })
		}); err != nil {
			wg.Done()
			record(func(s *domain.SyncStats) { s.Errors++ })
			logger.Warn("filestore: submitting %s: %v", change.Path, err)
		}
	}
	wg.Wait()
	return ctx.Err()
}

// processFile reconciles one changed file and reports its counters.
func (d *Driver) processFile(ctx context.Context, change driven.FileChange) domain.SyncStats {
	var stats domain.SyncStats

	ext := strings.ToLower(path.Ext(change.Name))
	if !d.engine.Supported(ext) {
		stats.Skipped++
		return stats
	}
	if change.Size > d.maxFileBytes {
		logger.Info("filestore: skipping %s (%d bytes over limit)", change.Path, change.Size)
		stats.Skipped++
		return stats
	}

	content, err := d.client.Download(ctx, change.ID)
	if err != nil {
		logger.Warn("filestore: downloading %s: %v", change.Path, err)
		stats.Errors++
		return stats
	}

	result, err := d.engine.Extract(ctx, content, ext)
	if err != nil {
		logger.Warn("filestore: extracting %s: %v", change.Path, err)
		stats.Errors++
		return stats
	}

	sourceID := sourceIDForPath(change.Path)
	meta := domain.ChunkMeta{
		Filename:   change.Name,
		FolderPath: path.Dir(change.Path),
		FileType:   strings.TrimPrefix(ext, "."),
	}

	if result.IsContainer() {
		return d.indexContainer(ctx, sourceID, change, result.Entries)
	}

	if _, err := d.indexer.IndexDocument(ctx, domain.SourceFile, sourceID, result.Text, change.Modified, meta); err != nil {
		logger.Warn("filestore: indexing %s: %v", change.Path, err)
		stats.Errors++
		return stats
	}
	stats.Added++
	return stats
}

// indexContainer replaces every indexed entry of a container. The old
// composite rows are dropped first so entries that vanished from the
// archive do not linger.
func (d *Driver) indexContainer(ctx context.Context, containerID string, change driven.FileChange, entries []domain.ArchiveEntry) domain.SyncStats {
	var stats domain.SyncStats

	if err := d.indexer.DeleteContainer(ctx, containerID); err != nil {
		logger.Warn("filestore: clearing container %s: %v", change.Path, err)
		stats.Errors++
		return stats
	}

	for _, entry := range entries {
		result, err := d.engine.Extract(ctx, entry.Data, entry.Ext)
		if err != nil {
			logger.Warn("filestore: extracting %s in %s: %v", entry.Path, change.Path, err)
			stats.Errors++
			continue
		}

		entryID := containerID + ":" + entry.Path
		meta := domain.ChunkMeta{
			Filename:   path.Base(entry.Path),
			FolderPath: change.Path,
			FileType:   strings.TrimPrefix(entry.Ext, "."),
		}
		if _, err := d.indexer.IndexDocument(ctx, domain.SourceFile, entryID, result.Text, change.Modified, meta); err != nil {
			logger.Warn("filestore: indexing %s in %s: %v", entry.Path, change.Path, err)
			stats.Errors++
			continue
		}
		stats.Added++
	}
	return stats
}

// sourceIDForPath normalises a display path into the index identity.
// Lower-casing matches the provider's case-insensitive path semantics.
func sourceIDForPath(p string) string {
	return strings.ToLower(p)
}
