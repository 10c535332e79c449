// Package gemini implements the embedding service against the Google
// Generative AI API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/custodia-labs/docpipe/internal/core/domain"
	"github.com/custodia-labs/docpipe/internal/core/ports/driven"
)

// Ensure Gateway implements the interface.
var _ driven.EmbeddingService = (*Gateway)(nil)

// DefaultModel is the embedding model used when none is configured.
const DefaultModel = "text-embedding-004"

// DefaultDimensions is the vector width of the default model.
const DefaultDimensions = 768

// maxBatchTexts is the API's per-request content ceiling.
const maxBatchTexts = 100

// Gateway calls the Generative AI embedding endpoint. All requests pass
// through one rate limiter, so concurrent callers share the quota
// instead of racing past it.
type Gateway struct {
	client     *genai.Client
	model      *genai.EmbeddingModel
	dimensions int
	limiter    *rate.Limiter
}

// Option configures the gateway.
type Option func(*Gateway)

// WithModel selects the embedding model by name.
func WithModel(name string) Option {
	return func(g *Gateway) {
		if name != "" {
			g.model = g.client.EmbeddingModel(name)
		}
	}
}

// WithDimensions sets the expected vector width.
func WithDimensions(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.dimensions = n
		}
	}
}

// WithRequestsPerMinute caps the request rate.
func WithRequestsPerMinute(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.limiter = rate.NewLimiter(rate.Limit(float64(n)/60.0), 1)
		}
	}
}

// New creates a gateway authenticated with the given API key.
func New(ctx context.Context, apiKey string, opts ...Option) (*Gateway, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: embedding api key is required", domain.ErrInvalidInput)
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create embedding client: %w", err)
	}

	g := &Gateway{
		client:     client,
		model:      client.EmbeddingModel(DefaultModel),
		dimensions: DefaultDimensions,
		limiter:    rate.NewLimiter(rate.Limit(25.0), 1),
	}

	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Dimensions returns the vector width this service produces.
func (g *Gateway) Dimensions() int {
	return g.dimensions
}

// Embed returns the embedding vector for one text.
func (g *Gateway) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: cannot embed empty text", domain.ErrInvalidInput)
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := g.model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, classifyError(err)
	}
	if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("%w: empty embedding response", domain.ErrTransientService)
	}
	return resp.Embedding.Values, nil
}

// EmbedBatch returns one vector per input text, in input order. Inputs
// beyond the API's per-request ceiling are sent in successive requests.
func (g *Gateway) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, fmt.Errorf("%w: empty text at index %d", domain.ErrInvalidInput, i)
		}
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatchTexts {
		end := start + maxBatchTexts
		if end > len(texts) {
			end = len(texts)
		}

		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		batch := g.model.NewBatch()
		for _, t := range texts[start:end] {
			batch.AddContent(genai.Text(t))
		}

		resp, err := g.model.BatchEmbedContents(ctx, batch)
		if err != nil {
			return nil, classifyError(err)
		}
		if len(resp.Embeddings) != end-start {
			return nil, fmt.Errorf("%w: got %d embeddings for %d texts",
				domain.ErrTransientService, len(resp.Embeddings), end-start)
		}
		for _, e := range resp.Embeddings {
			vectors = append(vectors, e.Values)
		}
	}
	return vectors, nil
}

// Close releases the underlying API client.
func (g *Gateway) Close() error {
	return g.client.Close()
}

// classifyError maps API failures onto the domain error taxonomy so
// callers can decide between backing off and giving up.
func classifyError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
		case apiErr.Code >= 500:
			return fmt.Errorf("%w: %v", domain.ErrTransientService, err)
		case apiErr.Code == http.StatusBadRequest:
			return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
		return err
	}

	// gRPC transport surfaces quota errors by status name.
	msg := err.Error()
	if strings.Contains(msg, "RESOURCE_EXHAUSTED") || strings.Contains(msg, "429") {
		return fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
	}
	if strings.Contains(msg, "UNAVAILABLE") || strings.Contains(msg, "DEADLINE_EXCEEDED") {
		return fmt.Errorf("%w: %v", domain.ErrTransientService, err)
	}
	return err
}
