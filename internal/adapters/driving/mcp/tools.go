package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/quill-cli/internal/core/domain"
	"github.com/custodia-labs/quill-cli/internal/core/ports/driving"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query            string  `json:"query" jsonschema:"the search query"`
	Limit            int     `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 10)"`
	Mode             string  `json:"mode,omitempty" jsonschema:"search mode: hybrid (default), vector or fts"`
	FeedID           string  `json:"feed_id,omitempty" jsonschema:"restrict to one feed"`
	SourceID         string  `json:"source_id,omitempty" jsonschema:"restrict to one source"`
	Days             int     `json:"days,omitempty" jsonschema:"restrict to digests published in the last N days"`
	MinScore         float64 `json:"min_score,omitempty" jsonschema:"drop results scoring below this threshold"`
	IncludeEmbedding bool    `json:"include_embedding,omitempty" jsonschema:"include the query embedding in the response"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results        []SearchResultOutput `json:"results"`
	QueryEmbedding []float32            `json:"query_embedding,omitempty"`
	TookMS         int64                `json:"took_ms"`
	Mode           string               `json:"mode"`
	VectorCount    int                  `json:"vector_results_count"`
	FTSCount       int                  `json:"fts_results_count"`
	Total          int                  `json:"total"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	DigestID      string               `json:"digest_id"`
	Title         string               `json:"title"`
	URL           string               `json:"url,omitempty"`
	MatchedChunks []MatchedChunkOutput `json:"matched_chunks"`
	Score         float64              `json:"score"`
	VectorRank    int                  `json:"vector_rank,omitempty"`
	FTSRank       int                  `json:"fts_rank,omitempty"`
	Sources       []string             `json:"sources"`
	PublishedAt   string               `json:"published_at,omitempty"`
}

// MatchedChunkOutput is one chunk hit inside a search result.
type MatchedChunkOutput struct {
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
	ChunkIndex int     `json:"chunk_index"`
}

// RAGQueryInput is the input schema for the rag_query tool.
type RAGQueryInput struct {
	Question      string `json:"question" jsonschema:"the question to answer from indexed digests"`
	MaxChunks     int    `json:"max_chunks,omitempty" jsonschema:"maximum supporting chunks to retrieve (default 5)"`
	CitationsOnly bool   `json:"citations_only,omitempty" jsonschema:"skip answer generation and return only citations"`
	FeedID        string `json:"feed_id,omitempty" jsonschema:"restrict to one feed"`
	SourceID      string `json:"source_id,omitempty" jsonschema:"restrict to one source"`
	Days          int    `json:"days,omitempty" jsonschema:"restrict to digests published in the last N days"`
}

// RAGQueryOutput is the output schema for the rag_query tool.
type RAGQueryOutput struct {
	Answer           string           `json:"answer,omitempty"`
	Citations        []CitationOutput `json:"citations"`
	ChunksRetrieved  int              `json:"chunks_retrieved"`
	Grounded         bool             `json:"grounded"`
	ModelUsed        string           `json:"model_used,omitempty"`
	SearchTookMS     int64            `json:"search_took_ms"`
	GenerationTookMS int64            `json:"generation_took_ms"`
	TotalTookMS      int64            `json:"total_took_ms"`
}

// CitationOutput represents one numbered citation.
type CitationOutput struct {
	ID             int     `json:"id"`
	DigestID       string  `json:"digest_id"`
	DigestTitle    string  `json:"digest_title"`
	ChunkText      string  `json:"chunk_text"`
	ChunkIndex     int     `json:"chunk_index"`
	RelevanceScore float64 `json:"relevance_score"`
	URL            string  `json:"url,omitempty"`
}

// ExportInput is the input schema for the export tool.
type ExportInput struct {
	Question  string `json:"question" jsonschema:"the question whose sources to export"`
	Format    string `json:"format,omitempty" jsonschema:"export format: markdown (default) or json"`
	MaxChunks int    `json:"max_chunks,omitempty" jsonschema:"maximum chunks to include (default 5)"`
	FeedID    string `json:"feed_id,omitempty" jsonschema:"restrict to one feed"`
	SourceID  string `json:"source_id,omitempty" jsonschema:"restrict to one source"`
	Days      int    `json:"days,omitempty" jsonschema:"restrict to digests published in the last N days"`
}

// ExportOutput is the output schema for the export tool.
type ExportOutput struct {
	Content      string           `json:"content"`
	Citations    []CitationOutput `json:"citations"`
	SourcesCount int              `json:"sources_count"`
	ChunksCount  int              `json:"chunks_count"`
	SearchTookMS int64            `json:"search_took_ms"`
}

// StatsInput is the (empty) input schema for the stats tool.
type StatsInput struct{}

// StatsOutput is the output schema for the stats tool.
type StatsOutput struct {
	K                      int     `json:"k"`
	VectorWeight           float64 `json:"vector_weight"`
	FTSWeight              float64 `json:"fts_weight"`
	EmbeddingProvider      string  `json:"embedding_provider,omitempty"`
	EmbeddingDimension     int     `json:"embedding_dimension,omitempty"`
	TotalChunks            int64   `json:"total_chunks"`
	TotalDigestsWithChunks int64   `json:"total_digests_with_chunks"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Search indexed digests with fused semantic and full-text retrieval",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "rag_query",
		Description: "Answer a question grounded in indexed digests, with numbered citations",
	}, s.handleRAGQuery)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "export",
		Description: "Export the supporting sources for a question as markdown or JSON",
	}, s.handleExport)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "stats",
		Description: "Report index size and fusion tuning",
	}, s.handleStats)
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	mode := domain.SearchMode(input.Mode)
	if input.Mode == "" {
		mode = domain.SearchModeHybrid
	}

	opts := driving.SearchOptions{
		Limit:            input.Limit,
		Mode:             mode,
		Filters:          toFilters(input.FeedID, input.SourceID, input.Days, input.MinScore),
		IncludeEmbedding: input.IncludeEmbedding,
	}

	resp, err := s.ports.Search.Search(ctx, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results:        make([]SearchResultOutput, len(resp.Results)),
		QueryEmbedding: resp.QueryEmbedding,
		TookMS:         resp.TookMS,
		Mode:           resp.Mode.String(),
		VectorCount:    resp.VectorCount,
		FTSCount:       resp.FTSCount,
		Total:          resp.Total,
	}

	for i := range resp.Results {
		r := &resp.Results[i]
		out := SearchResultOutput{
			DigestID:      r.DigestID,
			Title:         r.Title,
			URL:           r.URL,
			MatchedChunks: make([]MatchedChunkOutput, len(r.MatchedChunks)),
			Score:         r.Score,
			VectorRank:    r.VectorRank,
			FTSRank:       r.FTSRank,
			Sources:       methodNames(r.Sources),
		}
		for j, c := range r.MatchedChunks {
			out.MatchedChunks[j] = MatchedChunkOutput{
				Text:       c.Text,
				Score:      c.Score,
				ChunkIndex: c.ChunkIndex,
			}
		}
		if !r.PublishedAt.IsZero() {
			out.PublishedAt = r.PublishedAt.Format(time.RFC3339)
		}
		output.Results[i] = out
	}

	return nil, output, nil
}

// handleRAGQuery handles the rag_query tool invocation.
func (s *Server) handleRAGQuery(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RAGQueryInput,
) (*mcp.CallToolResult, RAGQueryOutput, error) {
	opts := driving.RAGOptions{
		MaxChunks:     input.MaxChunks,
		IncludeAnswer: !input.CitationsOnly,
		Filters:       toFilters(input.FeedID, input.SourceID, input.Days, 0),
	}

	result, err := s.ports.RAG.Query(ctx, input.Question, opts)
	if err != nil {
		return nil, RAGQueryOutput{}, err
	}

	return nil, RAGQueryOutput{
		Answer:           result.Answer,
		Citations:        citationOutputs(result.Citations),
		ChunksRetrieved:  result.ChunksRetrieved,
		Grounded:         result.Grounded,
		ModelUsed:        result.ModelUsed,
		SearchTookMS:     result.SearchTookMS,
		GenerationTookMS: result.GenerationTookMS,
		TotalTookMS:      result.TotalTookMS,
	}, nil
}

// handleExport handles the export tool invocation.
func (s *Server) handleExport(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ExportInput,
) (*mcp.CallToolResult, ExportOutput, error) {
	format := domain.ExportFormat(input.Format)
	if input.Format == "" {
		format = domain.ExportMarkdown
	}

	opts := driving.RAGOptions{
		MaxChunks: input.MaxChunks,
		Filters:   toFilters(input.FeedID, input.SourceID, input.Days, 0),
	}
	result, err := s.ports.RAG.Export(ctx, input.Question, format, opts)
	if err != nil {
		return nil, ExportOutput{}, err
	}

	return nil, ExportOutput{
		Content:      result.Content,
		Citations:    citationOutputs(result.Citations),
		SourcesCount: result.SourcesCount,
		ChunksCount:  result.ChunksCount,
		SearchTookMS: result.SearchTookMS,
	}, nil
}

// handleStats handles the stats tool invocation.
func (s *Server) handleStats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ StatsInput,
) (*mcp.CallToolResult, StatsOutput, error) {
	stats, err := s.ports.Search.Stats(ctx)
	if err != nil {
		return nil, StatsOutput{}, err
	}

	return nil, StatsOutput{
		K:                      stats.K,
		VectorWeight:           stats.VectorWeight,
		FTSWeight:              stats.FTSWeight,
		EmbeddingProvider:      stats.EmbeddingProvider,
		EmbeddingDimension:     stats.EmbeddingDimension,
		TotalChunks:            stats.TotalChunks,
		TotalDigestsWithChunks: stats.TotalDigestsWithChunks,
	}, nil
}

func toFilters(feedID, sourceID string, days int, minScore float64) domain.SearchFilters {
	filters := domain.SearchFilters{Days: days, MinScore: minScore}
	if feedID != "" {
		filters.FeedID = &feedID
	}
	if sourceID != "" {
		filters.SourceID = &sourceID
	}
	return filters
}

func citationOutputs(citations []domain.Citation) []CitationOutput {
	out := make([]CitationOutput, len(citations))
	for i, c := range citations {
		out[i] = CitationOutput{
			ID:             c.ID,
			DigestID:       c.DigestID,
			DigestTitle:    c.DigestTitle,
			ChunkText:      c.ChunkText,
			ChunkIndex:     c.ChunkIndex,
			RelevanceScore: c.RelevanceScore,
			URL:            c.URL,
		}
	}
	return out
}

func methodNames(methods []domain.SearchMethod) []string {
	names := make([]string, len(methods))
	for i, m := range methods {
		names[i] = string(m)
	}
	return names
}
