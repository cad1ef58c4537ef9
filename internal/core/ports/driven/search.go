package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/quill-cli/internal/core/domain"
)

// MatchedField identifies which digest field a lexical hit matched,
// ordered by priority: lower values win score ties.
type MatchedField int

// Matched fields in tie-break priority order.
const (
	MatchedTitle MatchedField = iota
	MatchedSummary
	MatchedContent
)

// ChunkCandidate is a stored chunk with its encoded embedding, as returned
// by the vector candidate scan. Decoding and scoring belong to the search
// service, not the store.
type ChunkCandidate struct {
	// ChunkID is the chunk identifier.
	ChunkID string

	// DigestID is the parent digest.
	DigestID string

	// ChunkIndex is the chunk ordinal within the digest.
	ChunkIndex int

	// Text is the chunk content.
	Text string

	// Embedding is the stored little-endian float32 blob.
	Embedding []byte
}

// DigestRef is the digest metadata needed to assemble search results.
type DigestRef struct {
	ID          string
	Title       string
	URL         string
	PublishedAt time.Time
}

// TextHit is one digest matched by the weighted full-text query.
type TextHit struct {
	// DigestID is the matched digest.
	DigestID string

	// Title, URL and PublishedAt carry digest metadata for ranking
	// and display.
	Title       string
	URL         string
	PublishedAt time.Time

	// Score is the ranking-function score, normalised to (0,1].
	Score float64

	// Snippet is a bounded-width highlighted excerpt.
	Snippet string

	// Field is the highest-priority digest field the query matched.
	Field MatchedField
}

// ChunkTextHit is one chunk matched by the chunk-level lexical fallback.
// Scoring the hit is the FTS service's concern.
type ChunkTextHit struct {
	// DigestID is the parent digest.
	DigestID string

	// ChunkIndex is the chunk ordinal within the digest.
	ChunkIndex int

	// Text is the chunk content.
	Text string
}

// SearchStore exposes the retrieval queries over the chunks and digests
// relations. Schema ownership and migration live with the ingestion
// subsystem; this port only reads.
type SearchStore interface {
	// VectorCandidates returns chunks with completed embeddings that pass
	// the row filters, with their encoded vectors.
	VectorCandidates(ctx context.Context, filters domain.SearchFilters) ([]ChunkCandidate, error)

	// DigestRefs resolves digest metadata for the given IDs.
	DigestRefs(ctx context.Context, ids []string) (map[string]DigestRef, error)

	// SearchDigests runs the weighted full-text query
	// (title > summary > content) with snippet generation.
	SearchDigests(ctx context.Context, query string, limit int, filters domain.SearchFilters) ([]TextHit, error)

	// SearchChunkText returns chunks whose text contains at least one
	// query term, for the chunk-level lexical fallback.
	SearchChunkText(ctx context.Context, query string, limit int, filters domain.SearchFilters) ([]ChunkTextHit, error)

	// CountChunks returns the number of stored chunks.
	CountChunks(ctx context.Context) (int64, error)

	// CountDigestsWithChunks returns the number of digests owning at
	// least one chunk.
	CountDigestsWithChunks(ctx context.Context) (int64, error)
}
