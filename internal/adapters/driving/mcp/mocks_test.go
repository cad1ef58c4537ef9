package mcp

import (
	"context"

	"github.com/custodia-labs/quill-cli/internal/core/domain"
	"github.com/custodia-labs/quill-cli/internal/core/ports/driving"
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	resp     *domain.SearchResponse
	stats    *domain.HybridStats
	err      error
	lastOpts driving.SearchOptions
}

func (m *mockSearchService) Search(
	_ context.Context,
	_ string,
	opts driving.SearchOptions,
) (*domain.SearchResponse, error) {
	m.lastOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	return m.resp, nil
}

func (m *mockSearchService) Stats(_ context.Context) (*domain.HybridStats, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.stats, nil
}

// mockRAGService is a mock implementation of driving.RAGService.
type mockRAGService struct {
	result     *domain.RAGResult
	export     *domain.ExportResult
	err        error
	lastOpts   driving.RAGOptions
	lastFormat domain.ExportFormat
}

func (m *mockRAGService) Query(
	_ context.Context,
	_ string,
	opts driving.RAGOptions,
) (*domain.RAGResult, error) {
	m.lastOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockRAGService) SearchOnly(
	ctx context.Context,
	question string,
	opts driving.RAGOptions,
) (*domain.RAGResult, error) {
	opts.IncludeAnswer = false
	return m.Query(ctx, question, opts)
}

func (m *mockRAGService) Export(
	_ context.Context,
	_ string,
	format domain.ExportFormat,
	opts driving.RAGOptions,
) (*domain.ExportResult, error) {
	m.lastOpts = opts
	m.lastFormat = format
	if m.err != nil {
		return nil, m.err
	}
	return m.export, nil
}
