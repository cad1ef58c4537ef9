package domain

import "time"

// Citation links part of a generated answer to a specific retrieved chunk.
// IDs are 1-based ordinals, stable for a single query, assigned in
// retrieval order to match the numbering the generation step is told to use.
type Citation struct {
	// ID is the 1-based citation ordinal.
	ID int `json:"id"`

	// DigestID identifies the digest the chunk belongs to.
	DigestID string `json:"digest_id"`

	// DigestTitle is the digest title.
	DigestTitle string `json:"digest_title"`

	// ChunkText is the cited chunk content.
	ChunkText string `json:"chunk_text"`

	// ChunkIndex is the chunk's ordinal within its digest.
	ChunkIndex int `json:"chunk_index"`

	// RelevanceScore is the chunk's retrieval score in [0,1].
	RelevanceScore float64 `json:"relevance_score"`

	// URL is the digest's original location.
	URL string `json:"url"`

	// PublishedAt is the digest's publish date.
	PublishedAt time.Time `json:"published_at,omitempty"`
}

// RAGResult is the outcome of one retrieval-augmented query.
// It is produced per request and never persisted.
type RAGResult struct {
	// Question is the original user question.
	Question string `json:"question"`

	// Answer is the generated text with inline numbered citation markers.
	// Empty for search-only queries.
	Answer string `json:"answer"`

	// Citations are the supporting chunks, ordered by citation ID.
	Citations []Citation `json:"citations"`

	// ChunksRetrieved is how many chunks retrieval produced.
	ChunksRetrieved int `json:"chunks_retrieved"`

	// Grounded is true only when retrieval produced at least one chunk,
	// an answer was requested, and generation succeeded. It is a coarse
	// "had material to work with" proxy, not a fact-check.
	Grounded bool `json:"grounded"`

	// ModelUsed is the generation model identifier, empty when
	// generation was skipped.
	ModelUsed string `json:"model_used"`

	// Stage timings in milliseconds. Total may exceed search + generation
	// because of prompt assembly overhead.
	SearchTookMS     int64 `json:"search_took_ms"`
	GenerationTookMS int64 `json:"generation_took_ms"`
	TotalTookMS      int64 `json:"total_took_ms"`
}

// ExportFormat selects the rendering of a citation export.
type ExportFormat string

// Available export formats.
const (
	ExportMarkdown ExportFormat = "markdown"
	ExportJSON     ExportFormat = "json"
)

// IsValid returns true if the export format is recognised.
func (f ExportFormat) IsValid() bool {
	return f == ExportMarkdown || f == ExportJSON
}

// ExportResult is a rendered citation list plus aggregate counts.
// It is a pure transformation of an already-computed retrieval; producing
// it performs no additional retrieval.
type ExportResult struct {
	// Content is the rendered export.
	Content string `json:"content"`

	// Citations is the underlying citation list, identical regardless
	// of format.
	Citations []Citation `json:"citations"`

	// SourcesCount is the number of unique digests cited.
	SourcesCount int `json:"sources_count"`

	// ChunksCount is the number of cited chunks.
	ChunksCount int `json:"chunks_count"`

	// SearchTookMS is the retrieval duration in milliseconds.
	SearchTookMS int64 `json:"search_took_ms"`
}
