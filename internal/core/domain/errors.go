package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// Extraction errors.

	// ErrUnsupportedFormat indicates no extractor handles the file type.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrCorruptDocument indicates the file could not be parsed as its
	// declared type.
	ErrCorruptDocument = errors.New("corrupt document")

	// ErrResourceLimit indicates extraction was aborted because a resource
	// ceiling (decompressed size, nesting depth) would be exceeded.
	ErrResourceLimit = errors.New("resource limit exceeded")

	// Embedding errors.

	// ErrRateLimited indicates the embedding provider rejected the call due
	// to quota. Callers must back off and retry.
	ErrRateLimited = errors.New("rate limited")

	// ErrTransientService indicates a retryable embedding service failure.
	ErrTransientService = errors.New("transient service error")

	// Sync errors.

	// ErrSourceUnavailable indicates enumeration or download from an
	// external source failed.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrSyncInProgress indicates a sync pass is already running for the
	// source. A second pass must not race the first on the checkpoint.
	ErrSyncInProgress = errors.New("sync in progress")
)

// RowFailure records one chunk row that could not be written during a
// batched insert.
type RowFailure struct {
	SourceID string
	Index    int
	Err      error
}

// StorageWriteError reports a partially failed batch write with per-row
// detail, so individual rows can be reprocessed instead of retrying the
// whole document blindly.
type StorageWriteError struct {
	Failures []RowFailure
}

// Error implements the error interface.
func (e *StorageWriteError) Error() string {
	if len(e.Failures) == 0 {
		return "storage write failure"
	}
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s[%d]: %v", f.SourceID, f.Index, f.Err))
	}
	return fmt.Sprintf("storage write failure (%d rows): %s", len(e.Failures), strings.Join(parts, "; "))
}
