// Package mcp provides a Model Context Protocol server adapter for quill.
// It exposes hybrid search and retrieval-augmented answering to AI
// assistants over stdio or HTTP.
package mcp

import "errors"

// ErrMissingSearchService is returned when the search service is not provided.
var ErrMissingSearchService = errors.New("mcp: search service is required")

// ErrMissingRAGService is returned when the RAG service is not provided.
var ErrMissingRAGService = errors.New("mcp: RAG service is required")
