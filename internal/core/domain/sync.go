package domain

import "time"

// Checkpoint tracks the reconciliation progress for one sync source.
// There is exactly one row per SyncType. It is written only after a full
// pass over the enumerated delta completes without fatal error, so a crash
// mid-pass leaves it untouched and the next run retries the same delta.
type Checkpoint struct {
	// SyncType identifies the source ("filestore" or "mailbox").
	SyncType string

	// Cursor is an opaque token understood only by the source driver.
	Cursor string

	// LastSync is when the last successful pass completed.
	LastSync time.Time
}

// SyncStats counts the outcomes of one reconciliation pass.
type SyncStats struct {
	Added   int
	Deleted int
	Skipped int
	Errors  int
}

// Merge accumulates another pass's counters into s.
func (s *SyncStats) Merge(other SyncStats) {
	s.Added += other.Added
	s.Deleted += other.Deleted
	s.Skipped += other.Skipped
	s.Errors += other.Errors
}

// ExtractionResult is the transient output of the extraction engine:
// either plain text, or the internal entries of a container file. Exactly
// one of Text and Entries is populated. It is consumed immediately by the
// caller and never persisted.
type ExtractionResult struct {
	Text    string
	Entries []ArchiveEntry
}

// IsContainer reports whether the result holds container entries rather
// than plain text.
func (r *ExtractionResult) IsContainer() bool {
	return r.Entries != nil
}

// ArchiveEntry is one supported file found inside a container, identified
// by its path relative to the container root. Nested container paths are
// joined with "/".
type ArchiveEntry struct {
	Path string
	Ext  string
	Data []byte
}
