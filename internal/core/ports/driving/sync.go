package driving

import (
	"context"

	"github.com/custodia-labs/docpipe/internal/core/domain"
)

// SyncDriver reconciles one external source against the index store.
// A driver owns its checkpoint: it loads the cursor at the start of a
// pass and persists the new cursor only after the full enumerated delta
// has been attempted.
type SyncDriver interface {
	// Type returns the sync type identifier ("filestore", "mailbox").
	Type() string

	// Sync runs one reconciliation pass and returns its counters.
	// Item-level failures are contained and counted; only fatal errors
	// (enumeration failure, checkpoint commit failure) are returned.
	Sync(ctx context.Context) (domain.SyncStats, error)
}

// SyncStatus describes an in-flight or idle sync pass.
type SyncStatus struct {
	SyncType string
	RunID    string
	Running  bool
	Stats    domain.SyncStats
}

// SyncOrchestrator coordinates sync passes across sources, guaranteeing
// that at most one pass runs per source at a time.
type SyncOrchestrator interface {
	// Sync runs a pass for one source. Returns domain.ErrSyncInProgress
	// if a pass for that source is already active.
	Sync(ctx context.Context, syncType string) (domain.SyncStats, error)

	// SyncAll runs a pass for every registered source sequentially.
	SyncAll(ctx context.Context) (domain.SyncStats, error)

	// Status reports the current state of a source's sync.
	Status(ctx context.Context, syncType string) (*SyncStatus, error)
}

// Retriever serves similarity-filtered retrieval results. It is the sole
// interface exposed to the answer-generation layer.
type Retriever interface {
	// Search embeds the query text and returns up to topK attributed
	// passages ranked by descending similarity. Errors (embedding
	// failure, store unavailable) surface to the caller; there is no
	// fallback to stale or empty results.
	Search(ctx context.Context, query string, filter domain.SearchFilter, topK int) ([]domain.Passage, error)
}
