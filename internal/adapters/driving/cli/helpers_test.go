package cli

import (
	"context"
	"time"

	"github.com/custodia-labs/quill-cli/internal/core/domain"
	"github.com/custodia-labs/quill-cli/internal/core/ports/driving"
)

// mockCLISearchService returns canned search responses.
type mockCLISearchService struct {
	resp     *domain.SearchResponse
	stats    *domain.HybridStats
	err      error
	lastOpts driving.SearchOptions
}

func (m *mockCLISearchService) Search(_ context.Context, _ string, opts driving.SearchOptions) (*domain.SearchResponse, error) {
	m.lastOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	return m.resp, nil
}

func (m *mockCLISearchService) Stats(_ context.Context) (*domain.HybridStats, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.stats, nil
}

// mockCLIRAGService returns canned RAG results.
type mockCLIRAGService struct {
	result     *domain.RAGResult
	export     *domain.ExportResult
	err        error
	lastOpts   driving.RAGOptions
	lastFormat domain.ExportFormat
}

func (m *mockCLIRAGService) Query(_ context.Context, _ string, opts driving.RAGOptions) (*domain.RAGResult, error) {
	m.lastOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockCLIRAGService) SearchOnly(ctx context.Context, question string, opts driving.RAGOptions) (*domain.RAGResult, error) {
	opts.IncludeAnswer = false
	return m.Query(ctx, question, opts)
}

func (m *mockCLIRAGService) Export(_ context.Context, _ string, format domain.ExportFormat, opts driving.RAGOptions) (*domain.ExportResult, error) {
	m.lastOpts = opts
	m.lastFormat = format
	if m.err != nil {
		return nil, m.err
	}
	return m.export, nil
}

// setupTestServices wires mock services and returns a cleanup func
// restoring the previous wiring.
func setupTestServices() func() {
	oldSearch, oldRAG := searchService, ragService

	searchService = &mockCLISearchService{
		resp: &domain.SearchResponse{
			Results: []domain.SearchResult{
				{
					DigestID: "dig-1",
					Title:    "Test Digest",
					URL:      "https://example.com/1",
					Score:    0.95,
					Sources:  []domain.SearchMethod{domain.MethodVector, domain.MethodFTS},
					MatchedChunks: []domain.MatchedChunk{
						{Text: "This is a matched chunk snippet", Score: 0.9, Sources: []domain.SearchMethod{domain.MethodVector}},
					},
					PublishedAt: time.Now(),
				},
			},
			Mode:   domain.SearchModeHybrid,
			Total:  1,
			TookMS: 12,
		},
		stats: &domain.HybridStats{
			K:                      60,
			VectorWeight:           1.0,
			FTSWeight:              1.0,
			EmbeddingProvider:      "ollama",
			EmbeddingDimension:     768,
			TotalChunks:            42,
			TotalDigestsWithChunks: 7,
		},
	}

	ragService = &mockCLIRAGService{
		result: &domain.RAGResult{
			Question: "test question",
			Answer:   "A grounded answer [1].",
			Grounded: true,
			Citations: []domain.Citation{
				{ID: 1, DigestID: "dig-1", DigestTitle: "Test Digest", ChunkText: "chunk", RelevanceScore: 0.9, URL: "https://example.com/1"},
			},
			ChunksRetrieved: 1,
			ModelUsed:       "test-model",
			SearchTookMS:    5,
			TotalTookMS:     20,
		},
		export: &domain.ExportResult{
			Content:      "# Sources: test question",
			Citations:    []domain.Citation{{ID: 1, DigestID: "dig-1"}},
			SourcesCount: 1,
			ChunksCount:  1,
		},
	}

	return func() {
		searchService = oldSearch
		ragService = oldRAG
	}
}
