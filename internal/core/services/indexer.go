package services

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/custodia-labs/docpipe/internal/core/domain"
	"github.com/custodia-labs/docpipe/internal/core/ports/driven"
	"github.com/custodia-labs/docpipe/internal/logger"
)

// embedMaxAttempts bounds the retry loop for rate-limited embedding calls.
const embedMaxAttempts = 3

// embedBackoffBase is the first retry delay; it doubles per attempt.
const embedBackoffBase = time.Second

// lockStripes is the size of the fixed per-identity lock table.
const lockStripes = 64

// Indexer turns the text of one document into embedded chunks and swaps
// them into the index store. It is the single write path to the index:
// sync drivers never touch the store directly for chunk content.
type Indexer struct {
	splitter driven.TextSplitter
	embedder driven.EmbeddingService
	store    driven.IndexStore

	backoff time.Duration

	// locks serialises Replace per source identity so two workers
	// indexing the same document cannot interleave their delete and
	// insert phases. Identities hash onto a fixed set of stripes, so the
	// table stays bounded however many documents a long-lived process
	// sees; two identities sharing a stripe merely serialise.
	locks [lockStripes]sync.Mutex
}

// NewIndexer creates an indexer.
func NewIndexer(
	splitter driven.TextSplitter,
	embedder driven.EmbeddingService,
	store driven.IndexStore,
) *Indexer {
	return &Indexer{
		splitter: splitter,
		embedder: embedder,
		store:    store,
		backoff:  embedBackoffBase,
	}
}

// IndexDocument chunks, embeds and stores the text of one document,
// replacing whatever the store held for the identity. Returns the number
// of chunks written. Empty text degenerates to a delete, keeping the
// index free of rows for documents that became empty.
func (s *Indexer) IndexDocument(
	ctx context.Context,
	sourceType domain.SourceType,
	sourceID string,
	text string,
	createdDate time.Time,
	meta domain.ChunkMeta,
) (int, error) {
	if sourceID == "" {
		return 0, fmt.Errorf("%w: empty source id", domain.ErrInvalidInput)
	}
	if !sourceType.Valid() {
		return 0, fmt.Errorf("%w: unknown source type %q", domain.ErrInvalidInput, sourceType)
	}

	pieces := s.splitter.Split(text)
	if len(pieces) == 0 {
		if err := s.replace(ctx, sourceID, nil); err != nil {
			return 0, err
		}
		return 0, nil
	}

	vectors, err := s.embedWithRetry(ctx, pieces)
	if err != nil {
		return 0, fmt.Errorf("embedding %s: %w", sourceID, err)
	}

	now := time.Now().UTC()
	chunks := make([]domain.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = domain.Chunk{
			SourceType:  sourceType,
			SourceID:    sourceID,
			Index:       i,
			Content:     piece,
			Embedding:   vectors[i],
			CreatedDate: createdDate,
			UpdatedDate: now,
			Meta:        meta,
		}
	}

	if err := s.replace(ctx, sourceID, chunks); err != nil {
		var writeErr *domain.StorageWriteError
		if errors.As(err, &writeErr) {
			// Partial write: the surviving rows are in place, report the
			// losses upward for counting.
			logger.Warn("indexer: %d rows failed for %s", len(writeErr.Failures), sourceID)
			return len(chunks) - len(writeErr.Failures), err
		}
		return 0, err
	}
	return len(chunks), nil
}

// DeleteDocument removes every chunk of one document identity.
func (s *Indexer) DeleteDocument(ctx context.Context, sourceID string) error {
	return s.store.Delete(ctx, sourceID)
}

// DeleteContainer removes a container document and every entry extracted
// from it.
func (s *Indexer) DeleteContainer(ctx context.Context, containerID string) error {
	return s.store.DeletePrefix(ctx, containerID)
}

// HasDocument reports whether the identity is already indexed.
func (s *Indexer) HasDocument(ctx context.Context, sourceID string) (bool, error) {
	return s.store.HasSource(ctx, sourceID)
}

// replace runs the store swap under the per-identity lock.
func (s *Indexer) replace(ctx context.Context, sourceID string, chunks []domain.Chunk) error {
	lock := s.lockFor(sourceID)
	lock.Lock()
	defer lock.Unlock()
	return s.store.Replace(ctx, sourceID, chunks)
}

// lockFor returns the stripe mutex guarding one source identity.
func (s *Indexer) lockFor(sourceID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(sourceID)) //nolint:errcheck
	return &s.locks[h.Sum32()%lockStripes]
}

// embedWithRetry calls the embedding service, backing off on quota and
// transient failures. After three attempts the item fails so a sync pass
// counts the error and moves on instead of stalling.
func (s *Indexer) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	delay := s.backoff

	for attempt := 1; attempt <= embedMaxAttempts; attempt++ {
		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err == nil {
			if len(vectors) != len(texts) {
				return nil, fmt.Errorf("%w: %d vectors for %d texts",
					domain.ErrTransientService, len(vectors), len(texts))
			}
			return vectors, nil
		}

		if !errors.Is(err, domain.ErrRateLimited) && !errors.Is(err, domain.ErrTransientService) {
			return nil, err
		}
		lastErr = err

		if attempt == embedMaxAttempts {
			break
		}
		logger.Debug("indexer: embedding attempt %d failed, retrying in %s: %v", attempt, delay, err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return nil, lastErr
}
