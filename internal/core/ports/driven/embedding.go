// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// EmbeddingProvider converts text into fixed-length vectors.
//
// Implementations may include:
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Ollama (nomic-embed-text, all-minilm)
//
// Backends without a native batch API emulate batching with a bounded
// worker pool; either way the returned vectors are index-aligned with the
// input texts regardless of internal completion order.
type EmbeddingProvider interface {
	// Embed generates one vector per input text, preserving input order.
	// An empty batch is rejected with domain.ErrInvalidArgument.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector size (e.g. 384, 768, 1536).
	// The configured value is advisory until the first real response;
	// once a vector of a different length is observed, that length is
	// reported instead.
	Dimension() int

	// ProviderName identifies the backend, e.g. "ollama" or "openai".
	ProviderName() string

	// IsAvailable reports whether the backend is reachable.
	// It never returns an error; unreachable simply reads as false.
	IsAvailable(ctx context.Context) bool

	// ValidateConfig returns human-readable configuration problems.
	// An empty slice means the configuration looks healthy.
	ValidateConfig() []string

	// Close releases resources.
	Close() error
}
