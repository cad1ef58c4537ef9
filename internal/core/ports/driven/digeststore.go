package driven

import (
	"context"

	"github.com/custodia-labs/quill-cli/internal/core/domain"
)

// DigestStore persists digests and chunks on behalf of the ingestion
// pipeline. Backed by SQLite.
type DigestStore interface {
	// SaveDigest stores or updates a digest.
	SaveDigest(ctx context.Context, digest *domain.Digest) error

	// SaveChunks stores chunks for a digest in one transaction.
	SaveChunks(ctx context.Context, chunks []domain.Chunk) error

	// SetEmbedding records a chunk's embedding and marks it completed.
	SetEmbedding(ctx context.Context, chunkID string, embedding []float32) error

	// MarkEmbeddingFailed marks a chunk's embedding attempt as failed.
	MarkEmbeddingFailed(ctx context.Context, chunkID string) error

	// GetDigest retrieves a digest by ID.
	GetDigest(ctx context.Context, id string) (*domain.Digest, error)

	// GetChunks retrieves all chunks for a digest, ordered by chunk index.
	GetChunks(ctx context.Context, digestID string) ([]domain.Chunk, error)

	// DeleteDigest removes a digest and its chunks.
	DeleteDigest(ctx context.Context, id string) error

	// DeleteByFeed removes all digests (and their chunks) for a feed.
	DeleteByFeed(ctx context.Context, feedID string) error

	// DeleteBySource removes all digests (and their chunks) for a source.
	DeleteBySource(ctx context.Context, sourceID string) error
}
