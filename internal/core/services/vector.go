package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/quill-cli/internal/core/domain"
	"github.com/custodia-labs/quill-cli/internal/core/ports/driven"
	"github.com/custodia-labs/quill-cli/internal/logger"
)

// candidateMultiplier widens the chunk-level top-k so that grouping by
// digest still fills the caller's document limit.
const candidateMultiplier = 4

// VectorSearchService retrieves digests by semantic similarity between the
// query embedding and stored chunk embeddings.
type VectorSearchService struct {
	store    driven.SearchStore
	embedder driven.EmbeddingProvider
}

// NewVectorSearchService creates a new vector search service.
// The embedder may be nil, in which case only SearchWithEmbedding works.
func NewVectorSearchService(store driven.SearchStore, embedder driven.EmbeddingProvider) *VectorSearchService {
	return &VectorSearchService{
		store:    store,
		embedder: embedder,
	}
}

// Search embeds the query and retrieves the nearest digests.
// It returns the query embedding alongside the results so callers that
// need the vector do not embed twice.
func (s *VectorSearchService) Search(ctx context.Context, query string, limit int, filters domain.SearchFilters) ([]domain.SearchResult, []float32, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil, fmt.Errorf("%w: empty query", domain.ErrInvalidArgument)
	}
	if s.embedder == nil {
		return nil, nil, domain.ErrEmbeddingUnavailable
	}

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, nil, fmt.Errorf("embed query: expected 1 vector, got %d", len(vectors))
	}

	results, err := s.SearchWithEmbedding(ctx, vectors[0], limit, filters)
	if err != nil {
		return nil, nil, err
	}
	return results, vectors[0], nil
}

// SearchWithEmbedding retrieves the nearest digests for a precomputed query
// embedding. The fusion stage uses this entry point to avoid a duplicate
// embedding call.
func (s *VectorSearchService) SearchWithEmbedding(ctx context.Context, embedding []float32, limit int, filters domain.SearchFilters) ([]domain.SearchResult, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("%w: empty query embedding", domain.ErrInvalidArgument)
	}
	if limit <= 0 {
		limit = 10
	}

	candidates, err := s.store.VectorCandidates(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("vector candidates: %w", err)
	}
	logger.Debug("Vector search: %d candidate chunks", len(candidates))

	// Score every candidate, keep the chunk-level top-k.
	hits := s.scoreCandidates(candidates, embedding, filters.MinScore)
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})
	if max := limit * candidateMultiplier; len(hits) > max {
		hits = hits[:max]
	}

	return s.groupByDigest(ctx, hits, limit)
}

// scoredChunk is one chunk hit before grouping.
type scoredChunk struct {
	digestID   string
	chunkIndex int
	text       string
	score      float64
}

// scoreCandidates decodes stored embeddings and computes normalised cosine
// scores, dropping dimension mismatches and hits below minScore.
func (s *VectorSearchService) scoreCandidates(candidates []driven.ChunkCandidate, query []float32, minScore float64) []scoredChunk {
	hits := make([]scoredChunk, 0, len(candidates))
	for _, c := range candidates {
		vector := domain.DecodeEmbedding(c.Embedding)
		if len(vector) != len(query) {
			// Stale embedding from a previous provider dimension.
			continue
		}

		score := domain.NormalizeSimilarity(domain.CosineSimilarity(query, vector))
		if minScore > 0 && score < minScore {
			continue
		}

		hits = append(hits, scoredChunk{
			digestID:   c.DigestID,
			chunkIndex: c.ChunkIndex,
			text:       c.Text,
			score:      score,
		})
	}
	return hits
}

// groupByDigest folds chunk hits into per-digest results ranked by each
// digest's best chunk score, ties broken by recency.
func (s *VectorSearchService) groupByDigest(ctx context.Context, hits []scoredChunk, limit int) ([]domain.SearchResult, error) {
	grouped := make(map[string][]domain.MatchedChunk)
	order := make([]string, 0)
	for _, h := range hits {
		if _, seen := grouped[h.digestID]; !seen {
			order = append(order, h.digestID)
		}
		grouped[h.digestID] = append(grouped[h.digestID], domain.MatchedChunk{
			Text:       h.text,
			Score:      h.score,
			ChunkIndex: h.chunkIndex,
			Sources:    []domain.SearchMethod{domain.MethodVector},
		})
	}

	refs, err := s.store.DigestRefs(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("resolve digests: %w", err)
	}

	results := make([]domain.SearchResult, 0, len(order))
	for _, id := range order {
		ref, ok := refs[id]
		if !ok {
			// Digest deleted between candidate scan and resolution.
			continue
		}
		chunks := grouped[id]
		results = append(results, domain.SearchResult{
			DigestID:      id,
			Title:         ref.Title,
			URL:           ref.URL,
			MatchedChunks: chunks,
			Score:         chunks[0].Score, // hits arrive score-ordered
			Sources:       []domain.SearchMethod{domain.MethodVector},
			PublishedAt:   ref.PublishedAt,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].PublishedAt.After(results[j].PublishedAt)
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
