// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements multiple store interfaces
// through a single database connection:
//
//   - IndexStore: chunk and embedding persistence plus similarity search
//   - CheckpointStore: sync cursor and timestamp persistence
//   - BriefingStore: append-only briefing log shared with external consumers
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory.
//
// # Similarity Search
//
// Embeddings are stored as little-endian float32 blobs and scanned
// brute-force at query time. At the corpus sizes this pipeline targets a
// full scan stays well under interactive latency, and it keeps the store
// free of native vector extensions.
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
