// Package driving provides interfaces for primary (inbound) adapters such
// as the CLI and the MCP server.
package driving

import (
	"context"

	"github.com/custodia-labs/quill-cli/internal/core/domain"
)

// SearchOptions configures one search call.
type SearchOptions struct {
	// Limit is the maximum number of results (default 10).
	Limit int

	// Mode selects hybrid, vector-only or fts-only retrieval.
	// Empty defaults to hybrid.
	Mode domain.SearchMode

	// Filters narrows the corpus.
	Filters domain.SearchFilters

	// IncludeEmbedding adds the query vector to the response.
	IncludeEmbedding bool
}

// SearchService provides hybrid search to external actors.
type SearchService interface {
	// Search retrieves and fuses ranked digests for a query.
	Search(ctx context.Context, query string, opts SearchOptions) (*domain.SearchResponse, error)

	// Stats reports fusion tuning and index counters for operational
	// visibility.
	Stats(ctx context.Context) (*domain.HybridStats, error)
}
