package domain

import "time"

// EmbeddingStatus tracks the asynchronous embedding lifecycle of a chunk.
type EmbeddingStatus string

// Embedding lifecycle states.
const (
	// EmbeddingPending means the chunk text is stored but not yet embedded.
	EmbeddingPending EmbeddingStatus = "pending"

	// EmbeddingCompleted means the chunk carries a valid embedding vector.
	EmbeddingCompleted EmbeddingStatus = "completed"

	// EmbeddingFailed means embedding was attempted and gave up.
	EmbeddingFailed EmbeddingStatus = "failed"
)

// IsValid returns true if the status is recognised.
func (s EmbeddingStatus) IsValid() bool {
	switch s {
	case EmbeddingPending, EmbeddingCompleted, EmbeddingFailed:
		return true
	default:
		return false
	}
}

// Digest represents an ingested document: the canonical unit of content
// produced by the ingestion pipeline. Digests own chunks and are destroyed
// by cascading deletion from their parent feed or source.
type Digest struct {
	// ID is the unique identifier for the digest.
	ID string

	// FeedID links to the feed this digest was ingested from.
	FeedID string

	// SourceID links to the source that produced the feed.
	SourceID string

	// Title is the human-readable title.
	Title string

	// Summary is a short abstract of the content.
	Summary string

	// Content is the full text.
	Content string

	// URL is the original location of the content.
	URL string

	// PublishedAt is when the original content was published.
	PublishedAt time.Time

	// CreatedAt is when the digest was ingested.
	CreatedAt time.Time
}

// Chunk represents a bounded text span extracted from a digest: the atomic
// unit of retrieval and embedding.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DigestID links to the parent Digest.
	DigestID string

	// ChunkIndex is the 0-based ordinal position within the digest,
	// unique per parent.
	ChunkIndex int

	// Text is the chunk content.
	Text string

	// TokenCount is the approximate token length of Text.
	TokenCount int

	// StartOffset and EndOffset are character offsets into the digest content.
	StartOffset int
	EndOffset   int

	// Embedding is the vector representation for semantic search.
	// Its length must equal the active provider dimension when
	// EmbeddingStatus is EmbeddingCompleted.
	Embedding []float32

	// EmbeddingStatus tracks the embedding lifecycle.
	EmbeddingStatus EmbeddingStatus

	// Metadata contains chunk-specific key-value pairs.
	Metadata map[string]any
}
