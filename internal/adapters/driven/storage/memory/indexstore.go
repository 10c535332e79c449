// Package memory provides in-memory implementations of the storage port
// interfaces, used by tests and as a zero-setup backend.
package memory

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/docpipe/internal/core/domain"
	"github.com/custodia-labs/docpipe/internal/core/ports/driven"
)

// Ensure IndexStore implements the interface.
var _ driven.IndexStore = (*IndexStore)(nil)

// IndexStore is an in-memory implementation of driven.IndexStore.
type IndexStore struct {
	mu     sync.RWMutex
	chunks map[string][]domain.Chunk
	nextID int64
}

// NewIndexStore creates a new in-memory index store.
func NewIndexStore() *IndexStore {
	return &IndexStore{
		chunks: make(map[string][]domain.Chunk),
		nextID: 1,
	}
}

// Replace swaps the chunk set for a source identity.
func (s *IndexStore) Replace(_ context.Context, sourceID string, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.chunks, sourceID)
	if len(chunks) == 0 {
		return nil
	}

	stored := make([]domain.Chunk, len(chunks))
	for i, c := range chunks {
		c.ID = s.nextID
		s.nextID++
		stored[i] = c
	}
	s.chunks[sourceID] = stored
	return nil
}

// Delete removes all chunks for a source identity.
func (s *IndexStore) Delete(_ context.Context, sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chunks, sourceID)
	return nil
}

// DeletePrefix removes the container and its composite entries.
func (s *IndexStore) DeletePrefix(_ context.Context, containerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range s.chunks {
		if id == containerID || strings.HasPrefix(id, containerID+":") {
			delete(s.chunks, id)
		}
	}
	return nil
}

// HasSource reports whether any chunk exists for the identity.
func (s *IndexStore) HasSource(_ context.Context, sourceID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.chunks[sourceID]
	return ok, nil
}

// Search brute-force scans every embedded chunk.
func (s *IndexStore) Search(_ context.Context, query []float32, k int, filter domain.SearchFilter) ([]domain.SearchHit, error) {
	if len(query) == 0 || k <= 0 {
		return nil, domain.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []domain.SearchHit
	for _, chunks := range s.chunks {
		for _, c := range chunks {
			if len(c.Embedding) != len(query) {
				continue
			}
			if filter.SourceType != "" && c.SourceType != filter.SourceType {
				continue
			}
			if !filter.AfterDate.IsZero() && c.CreatedDate.Before(filter.AfterDate) {
				continue
			}
			hits = append(hits, domain.SearchHit{
				Chunk:      c,
				Similarity: cosine(query, c.Embedding),
			})
		}
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

// Close is a no-op for the in-memory store.
func (s *IndexStore) Close() error {
	return nil
}

// Chunks returns a copy of the stored chunks for a source, for tests.
func (s *IndexStore) Chunks(sourceID string) []domain.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.chunks[sourceID]
	out := make([]domain.Chunk, len(stored))
	copy(out, stored)
	return out
}

// SourceIDs returns every stored identity, for tests.
func (s *IndexStore) SourceIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.chunks))
	for id := range s.chunks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func cosine(a, b []float32) float64 {
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
