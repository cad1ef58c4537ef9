package driving

import (
	"context"

	"github.com/custodia-labs/quill-cli/internal/core/domain"
)

// RAGOptions configures one retrieval-augmented query.
type RAGOptions struct {
	// MaxChunks bounds retrieval (default 5).
	MaxChunks int

	// Filters narrows the corpus.
	Filters domain.SearchFilters

	// IncludeAnswer runs generation after retrieval. When false the
	// result carries citations but an empty answer.
	IncludeAnswer bool
}

// RAGService answers questions grounded in retrieved chunks.
type RAGService interface {
	// Query retrieves supporting chunks and, when requested, generates a
	// cited answer.
	Query(ctx context.Context, question string, opts RAGOptions) (*domain.RAGResult, error)

	// SearchOnly retrieves citations without generation, for previews
	// and exports.
	SearchOnly(ctx context.Context, question string, opts RAGOptions) (*domain.RAGResult, error)

	// Export renders an already-shaped citation list for a question in
	// the given format. It retrieves once and performs no generation.
	Export(ctx context.Context, question string, format domain.ExportFormat, opts RAGOptions) (*domain.ExportResult, error)
}
