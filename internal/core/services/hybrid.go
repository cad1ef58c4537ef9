package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/quill-cli/internal/core/domain"
	"github.com/custodia-labs/quill-cli/internal/core/ports/driven"
	"github.com/custodia-labs/quill-cli/internal/core/ports/driving"
	"github.com/custodia-labs/quill-cli/internal/logger"
)

// Ensure HybridSearchService implements the interface.
var _ driving.SearchService = (*HybridSearchService)(nil)

// SettingsFunc returns the current fusion tuning. The composition root
// supplies a snapshot-backed function so operators can retune k and the
// method weights without restarting.
type SettingsFunc func() domain.HybridSettings

// HybridSearchService runs vector and lexical search concurrently and
// fuses the two ranked lists with Reciprocal Rank Fusion.
type HybridSearchService struct {
	vector   *VectorSearchService
	fts      *FTSService
	store    driven.SearchStore
	embedder driven.EmbeddingProvider
	settings SettingsFunc
}

// NewHybridSearchService creates a new hybrid search service.
// The embedder may be nil; hybrid searches then degrade to FTS-only.
func NewHybridSearchService(
	vector *VectorSearchService,
	fts *FTSService,
	store driven.SearchStore,
	embedder driven.EmbeddingProvider,
	settings SettingsFunc,
) *HybridSearchService {
	if settings == nil {
		settings = domain.DefaultHybridSettings
	}
	return &HybridSearchService{
		vector:   vector,
		fts:      fts,
		store:    store,
		embedder: embedder,
		settings: settings,
	}
}

// Search retrieves ranked digests in the requested mode. In hybrid mode
// the two sub-searches run concurrently; if one fails the other's results
// are returned with the failed method's count at zero, and only when both
// fail does the call error.
func (s *HybridSearchService) Search(ctx context.Context, query string, opts driving.SearchOptions) (*domain.SearchResponse, error) {
	start := time.Now()

	mode := opts.Mode
	if mode == "" {
		mode = domain.SearchModeHybrid
	}
	if !mode.IsValid() {
		return nil, fmt.Errorf("%w: unknown search mode %q", domain.ErrInvalidArgument, opts.Mode)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	query = strings.TrimSpace(query)
	if query == "" {
		if mode == domain.SearchModeFTS || mode == domain.SearchModeHybrid {
			// No terms to match: an empty well-formed result set.
			return &domain.SearchResponse{
				Results: []domain.SearchResult{},
				Mode:    mode,
				TookMS:  time.Since(start).Milliseconds(),
			}, nil
		}
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidArgument)
	}

	logger.Section("Search Execution")
	logger.Debug("Query: %q, mode: %s, limit: %d", query, mode, limit)

	var resp *domain.SearchResponse
	var err error
	switch mode {
	case domain.SearchModeVector:
		resp, err = s.vectorOnly(ctx, query, limit, opts)
	case domain.SearchModeFTS:
		resp, err = s.ftsOnly(ctx, query, limit, opts)
	default:
		resp, err = s.fused(ctx, query, limit, opts)
	}
	if err != nil {
		return nil, err
	}

	resp.Mode = mode
	resp.Total = len(resp.Results)
	resp.TookMS = time.Since(start).Milliseconds()
	logger.Info("Search done: %d results in %dms", resp.Total, resp.TookMS)
	return resp, nil
}

// Stats reports the active fusion tuning and index size counters.
// It is for operational visibility only and is never consulted during a
// search.
func (s *HybridSearchService) Stats(ctx context.Context) (*domain.HybridStats, error) {
	tuning := s.settings().Normalised()

	stats := &domain.HybridStats{
		K:            tuning.K,
		VectorWeight: tuning.VectorWeight,
		FTSWeight:    tuning.FTSWeight,
	}
	if s.embedder != nil {
		stats.EmbeddingProvider = s.embedder.ProviderName()
		stats.EmbeddingDimension = s.embedder.Dimension()
	}

	chunks, err := s.store.CountChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("count chunks: %w", err)
	}
	digests, err := s.store.CountDigestsWithChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("count digests: %w", err)
	}
	stats.TotalChunks = chunks
	stats.TotalDigestsWithChunks = digests
	return stats, nil
}

// vectorOnly skips FTS and fusion entirely.
func (s *HybridSearchService) vectorOnly(ctx context.Context, query string, limit int, opts driving.SearchOptions) (*domain.SearchResponse, error) {
	results, embedding, err := s.vector.Search(ctx, query, limit, opts.Filters)
	if err != nil {
		return nil, err
	}
	for i := range results {
		results[i].VectorRank = i + 1
	}
	resp := &domain.SearchResponse{
		Results:     results,
		VectorCount: len(results),
	}
	if opts.IncludeEmbedding {
		resp.QueryEmbedding = embedding
	}
	return resp, nil
}

// ftsOnly skips vector search and fusion entirely.
func (s *HybridSearchService) ftsOnly(ctx context.Context, query string, limit int, opts driving.SearchOptions) (*domain.SearchResponse, error) {
	results, err := s.fts.Search(ctx, query, limit, opts.Filters)
	if err != nil {
		return nil, err
	}
	for i := range results {
		results[i].FTSRank = i + 1
	}
	return &domain.SearchResponse{
		Results:  results,
		FTSCount: len(results),
	}, nil
}

// fused runs both sub-searches concurrently and fuses the rankings.
func (s *HybridSearchService) fused(ctx context.Context, query string, limit int, opts driving.SearchOptions) (*domain.SearchResponse, error) {
	var (
		wg            sync.WaitGroup
		vectorResults []domain.SearchResult
		ftsResults    []domain.SearchResult
		embedding     []float32
		vectorErr     error
		ftsErr        error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		vectorResults, embedding, vectorErr = s.vector.Search(ctx, query, limit, opts.Filters)
	}()
	go func() {
		defer wg.Done()
		ftsResults, ftsErr = s.fts.Search(ctx, query, limit, opts.Filters)
	}()
	wg.Wait()

	if vectorErr != nil && ftsErr != nil {
		logger.Warn("Hybrid: both methods failed: vector=%v, fts=%v", vectorErr, ftsErr)
		return nil, fmt.Errorf("%w: vector: %v; fts: %v", domain.ErrSearchUnavailable, vectorErr, ftsErr)
	}
	if vectorErr != nil {
		// Partial degradation: surfaced as a zero vector count, not an error.
		logger.Warn("Hybrid: vector search failed, continuing with FTS only: %v", vectorErr)
		vectorResults = nil
	}
	if ftsErr != nil {
		logger.Warn("Hybrid: FTS failed, continuing with vector only: %v", ftsErr)
		ftsResults = nil
	}

	logger.Debug("Hybrid: fusing %d vector + %d fts results", len(vectorResults), len(ftsResults))
	fusedResults := fuseRRF(vectorResults, ftsResults, s.settings().Normalised())
	if len(fusedResults) > limit {
		fusedResults = fusedResults[:limit]
	}

	resp := &domain.SearchResponse{
		Results:     fusedResults,
		VectorCount: len(vectorResults),
		FTSCount:    len(ftsResults),
	}
	if opts.IncludeEmbedding && vectorErr == nil {
		resp.QueryEmbedding = embedding
	}
	return resp, nil
}

// fuseRRF merges two independently-ranked digest lists with Reciprocal
// Rank Fusion: a digest at 1-based rank r in a method's list contributes
// weight/(k+r). Absent methods contribute nothing. Ties are broken by
// "found by both beats found by one", then recency, then digest ID for
// deterministic ordering.
func fuseRRF(vectorList, ftsList []domain.SearchResult, tuning domain.HybridSettings) []domain.SearchResult {
	fused := make(map[string]*domain.SearchResult)
	order := make([]string, 0, len(vectorList)+len(ftsList))

	merge := func(r domain.SearchResult, rank int, weight float64, method domain.SearchMethod) {
		entry, ok := fused[r.DigestID]
		if !ok {
			entry = &domain.SearchResult{
				DigestID:    r.DigestID,
				Title:       r.Title,
				URL:         r.URL,
				PublishedAt: r.PublishedAt,
			}
			fused[r.DigestID] = entry
			order = append(order, r.DigestID)
		}

		entry.Score += weight / float64(tuning.K+rank)
		entry.Sources = append(entry.Sources, method)
		if method == domain.MethodVector {
			entry.VectorRank = rank
		} else {
			entry.FTSRank = rank
		}
		entry.MatchedChunks = mergeChunks(entry.MatchedChunks, r.MatchedChunks)
	}

	// Vector first: its chunk boundaries are canonical on collision.
	for i, r := range vectorList {
		merge(r, i+1, tuning.VectorWeight, domain.MethodVector)
	}
	for i, r := range ftsList {
		merge(r, i+1, tuning.FTSWeight, domain.MethodFTS)
	}

	results := make([]domain.SearchResult, 0, len(order))
	for _, id := range order {
		results = append(results, *fused[id])
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if bi, bj := len(results[i].Sources), len(results[j].Sources); bi != bj {
			return bi > bj
		}
		if !results[i].PublishedAt.Equal(results[j].PublishedAt) {
			return results[i].PublishedAt.After(results[j].PublishedAt)
		}
		return results[i].DigestID < results[j].DigestID
	})
	return results
}

// mergeChunks combines chunk hits from both methods, de-duplicated by
// chunk index. On collision the existing (vector) hit keeps its text and
// score and gains the new method's annotation.
func mergeChunks(existing, incoming []domain.MatchedChunk) []domain.MatchedChunk {
	byIndex := make(map[int]int, len(existing))
	for i, c := range existing {
		byIndex[c.ChunkIndex] = i
	}

	for _, c := range incoming {
		if i, ok := byIndex[c.ChunkIndex]; ok {
			existing[i].Sources = appendMethod(existing[i].Sources, c.Sources...)
			continue
		}
		byIndex[c.ChunkIndex] = len(existing)
		existing = append(existing, c)
	}

	sort.SliceStable(existing, func(i, j int) bool {
		return existing[i].Score > existing[j].Score
	})
	return existing
}

// appendMethod adds methods not already present, preserving order.
func appendMethod(methods []domain.SearchMethod, add ...domain.SearchMethod) []domain.SearchMethod {
	for _, m := range add {
		found := false
		for _, have := range methods {
			if have == m {
				found = true
				break
			}
		}
		if !found {
			methods = append(methods, m)
		}
	}
	return methods
}
