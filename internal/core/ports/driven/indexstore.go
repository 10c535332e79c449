package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/docpipe/internal/core/domain"
)

// IndexStore persists document chunks with their embeddings and serves
// similarity queries. Chunk identity is (SourceID, Index) unique.
type IndexStore interface {
	// Replace atomically removes every existing row for sourceID and
	// inserts the new chunk set. An empty set degenerates to a pure
	// delete. The store must never leave a partial mix of old and new
	// rows: delete-then-insert runs inside one transaction.
	//
	// Inserts are grouped in batches of at most 100 rows; a failed batch
	// is retried at single-row granularity and the rows that still fail
	// are reported via *domain.StorageWriteError.
	Replace(ctx context.Context, sourceID string, chunks []domain.Chunk) error

	// Delete removes all rows for the identity. No error if none exist.
	Delete(ctx context.Context, sourceID string) error

	// DeletePrefix removes all rows whose SourceID equals containerID or
	// is a composite "{containerID}:..." identity, covering every entry
	// that was extracted from the container.
	DeletePrefix(ctx context.Context, containerID string) error

	// HasSource reports whether any row exists for the identity.
	HasSource(ctx context.Context, sourceID string) (bool, error)

	// Search returns the k chunks nearest to the query vector by cosine
	// distance, optionally filtered, with ties broken by smaller chunk ID.
	Search(ctx context.Context, query []float32, k int, filter domain.SearchFilter) ([]domain.SearchHit, error)

	// Close releases resources.
	Close() error
}

// CheckpointStore persists sync checkpoints, one per sync type.
type CheckpointStore interface {
	// Save stores or updates a checkpoint.
	Save(ctx context.Context, cp domain.Checkpoint) error

	// Get retrieves the checkpoint for a sync type.
	// Returns domain.ErrNotFound on first run.
	Get(ctx context.Context, syncType string) (*domain.Checkpoint, error)
}

// Briefing is one entry of the append-only summary log shared with the
// external briefing consumer.
type Briefing struct {
	ID          int64
	Type        string
	Content     string
	GeneratedAt time.Time
	Sent        bool
}

// BriefingStore is the append-only log surface for generated summaries.
// Generation itself is an external concern; only the shared table is ours.
type BriefingStore interface {
	Append(ctx context.Context, b Briefing) (int64, error)
	List(ctx context.Context, limit int) ([]Briefing, error)
	MarkSent(ctx context.Context, id int64) error
}
