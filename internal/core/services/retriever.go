package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/docpipe/internal/core/domain"
	"github.com/custodia-labs/docpipe/internal/core/ports/driven"
	"github.com/custodia-labs/docpipe/internal/core/ports/driving"
)

// DefaultTopK is the result count when the caller passes none.
const DefaultTopK = 5

// Ensure RetrievalService implements the interface.
var _ driving.Retriever = (*RetrievalService)(nil)

// RetrievalService answers similarity queries over the index. It embeds
// the query with the same service that embedded the chunks, so query and
// corpus share one vector space.
type RetrievalService struct {
	embedder driven.EmbeddingService
	store    driven.IndexStore
}

// NewRetrievalService creates a retrieval service.
func NewRetrievalService(embedder driven.EmbeddingService, store driven.IndexStore) *RetrievalService {
	return &RetrievalService{
		embedder: embedder,
		store:    store,
	}
}

// Search embeds the query and returns up to topK attributed passages
// ranked by descending similarity. Failures surface to the caller;
// serving stale or empty results would silently degrade answers built
// on top of them.
func (s *RetrievalService) Search(
	ctx context.Context,
	query string,
	filter domain.SearchFilter,
	topK int,
) ([]domain.Passage, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	if filter.SourceType != "" && !filter.SourceType.Valid() {
		return nil, fmt.Errorf("%w: unknown source type %q", domain.ErrInvalidInput, filter.SourceType)
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	hits, err := s.store.Search(ctx, vector, topK, filter)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	passages := make([]domain.Passage, len(hits))
	for i, hit := range hits {
		passages[i] = domain.Passage{
			Content:     hit.Chunk.Content,
			Similarity:  hit.Similarity,
			SourceType:  hit.Chunk.SourceType,
			SourceID:    hit.Chunk.SourceID,
			Attribution: hit.Chunk.Attribution(),
			CreatedDate: hit.Chunk.CreatedDate,
		}
	}
	return passages, nil
}
