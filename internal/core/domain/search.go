package domain

import "time"

const unknownDescription = "Unknown"

// SearchMode selects which retrieval signals a search uses.
type SearchMode string

// Available search modes.
const (
	// SearchModeHybrid fuses vector and lexical rankings (default).
	SearchModeHybrid SearchMode = "hybrid"

	// SearchModeVector uses only semantic (vector) search, skipping fusion.
	SearchModeVector SearchMode = "vector"

	// SearchModeFTS uses only lexical full-text search, skipping fusion.
	SearchModeFTS SearchMode = "fts"
)

// IsValid returns true if the search mode is recognised.
func (m SearchMode) IsValid() bool {
	switch m {
	case SearchModeHybrid, SearchModeVector, SearchModeFTS:
		return true
	default:
		return false
	}
}

// RequiresEmbedding returns true if this mode needs an embedding provider.
func (m SearchMode) RequiresEmbedding() bool {
	return m == SearchModeHybrid || m == SearchModeVector
}

// String returns the string representation.
func (m SearchMode) String() string {
	return string(m)
}

// Description returns a human-readable description of the mode.
func (m SearchMode) Description() string {
	switch m {
	case SearchModeHybrid:
		return "Hybrid (vector + full-text fusion)"
	case SearchModeVector:
		return "Vector (semantic search only)"
	case SearchModeFTS:
		return "FTS (full-text search only)"
	default:
		return unknownDescription
	}
}

// SearchMethod identifies which retrieval method produced a hit.
type SearchMethod string

// Retrieval methods contributing to a fused result.
const (
	MethodVector SearchMethod = "vector"
	MethodFTS    SearchMethod = "fts"
)

// SearchFilters narrows a search to a subset of the corpus.
// A nil pointer or zero value means the filter is not applied.
type SearchFilters struct {
	// FeedID restricts results to digests from one feed.
	FeedID *string

	// SourceID restricts results to digests from one source.
	SourceID *string

	// Days restricts results to digests published within the last N days.
	// Zero means no age limit.
	Days int

	// MinScore drops hits scoring below this threshold.
	MinScore float64
}

// MatchedChunk is one chunk hit inside a search result, annotated with the
// methods that found it.
type MatchedChunk struct {
	// Text is the chunk text (or a snippet for lexical-only hits).
	Text string `json:"text"`

	// Score is the chunk's own relevance score in [0,1].
	Score float64 `json:"score"`

	// ChunkIndex is the chunk's ordinal within its digest.
	ChunkIndex int `json:"chunk_index"`

	// Sources lists the retrieval methods that matched this chunk.
	Sources []SearchMethod `json:"sources"`
}

// SearchResult is one ranked digest in a search response.
// It is produced per request and never persisted.
type SearchResult struct {
	// DigestID identifies the matched digest.
	DigestID string `json:"digest_id"`

	// Title is the digest title.
	Title string `json:"title"`

	// URL is the digest's original location.
	URL string `json:"url,omitempty"`

	// MatchedChunks are the chunk hits for this digest, ordered by score.
	MatchedChunks []MatchedChunk `json:"matched_chunks"`

	// Score is the combined relevance score. For hybrid mode this is the
	// RRF-fused score; for single-method modes it is that method's score.
	Score float64 `json:"score"`

	// VectorRank is the 1-based rank in the vector result list.
	// Zero means the vector method did not find this digest.
	VectorRank int `json:"vector_rank,omitempty"`

	// FTSRank is the 1-based rank in the lexical result list.
	// Zero means the lexical method did not find this digest.
	FTSRank int `json:"fts_rank,omitempty"`

	// Sources lists the methods that found this digest.
	Sources []SearchMethod `json:"sources"`

	// PublishedAt orders ties by recency.
	PublishedAt time.Time `json:"published_at"`
}

// FoundBy returns true if the given method contributed to this result.
func (r *SearchResult) FoundBy(method SearchMethod) bool {
	for _, m := range r.Sources {
		if m == method {
			return true
		}
	}
	return false
}

// SearchResponse is the full payload of one search call.
type SearchResponse struct {
	// Results are the fused, ranked digests.
	Results []SearchResult `json:"results"`

	// QueryEmbedding is the query vector, included only on request.
	QueryEmbedding []float32 `json:"query_embedding,omitempty"`

	// TookMS is the wall-clock search duration in milliseconds.
	TookMS int64 `json:"took_ms"`

	// Mode is the retrieval mode that produced the results.
	Mode SearchMode `json:"mode"`

	// VectorCount is how many digests the vector method returned.
	// Zero with a non-zero FTSCount signals vector-side degradation.
	VectorCount int `json:"vector_results_count"`

	// FTSCount is how many digests the lexical method returned.
	FTSCount int `json:"fts_results_count"`

	// Total is the number of fused results.
	Total int `json:"total"`
}

// HybridStats reports fusion tuning and index size for operational
// visibility. It is never consulted on the search path.
type HybridStats struct {
	// K is the active RRF constant.
	K int `json:"k"`

	// VectorWeight and FTSWeight are the per-method RRF weights.
	VectorWeight float64 `json:"vector_weight"`
	FTSWeight    float64 `json:"fts_weight"`

	// EmbeddingProvider is the active provider name.
	EmbeddingProvider string `json:"embedding_provider"`

	// EmbeddingDimension is the active provider's vector dimension.
	EmbeddingDimension int `json:"embedding_dimension"`

	// TotalChunks is the number of stored chunks.
	TotalChunks int64 `json:"total_chunks"`

	// TotalDigestsWithChunks is the number of digests owning at least
	// one chunk.
	TotalDigestsWithChunks int64 `json:"total_digests_with_chunks"`
}
