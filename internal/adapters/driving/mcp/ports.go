package mcp

import (
	"github.com/custodia-labs/quill-cli/internal/core/ports/driving"
)

// Ports aggregates the driving port interfaces required by the MCP
// server. This provides a single injection point for dependency
// injection.
type Ports struct {
	// Search provides hybrid search.
	Search driving.SearchService

	// RAG provides grounded question answering and exports.
	RAG driving.RAGService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	if p.RAG == nil {
		return ErrMissingRAGService
	}
	return nil
}
