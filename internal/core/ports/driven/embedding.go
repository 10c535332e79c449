package driven

import "context"

// EmbeddingService maps text to fixed-dimension vectors.
// The service is stateless and performs no caching; callers avoid
// redundant calls by only embedding chunks of changed documents.
//
// Failures are classified with the domain sentinels: ErrRateLimited
// (caller backs off and retries), ErrTransientService (retryable) and
// ErrInvalidInput (empty or oversized text, not retryable).
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, preserving
	// input order 1:1.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int

	// Close releases resources.
	Close() error
}
