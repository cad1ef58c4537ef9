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

// maxChunkHitsPerDigest caps the chunk-level matches attached to one
// lexical result.
const maxChunkHitsPerDigest = 3

// FTSService retrieves digests by lexical full-text search over a weighted
// union of fields (title > summary > content).
type FTSService struct {
	store driven.SearchStore
}

// NewFTSService creates a new full-text search service.
func NewFTSService(store driven.SearchStore) *FTSService {
	return &FTSService{store: store}
}

// Search runs the weighted full-text query and returns ranked digests.
// An empty or whitespace query returns an empty list, never an error.
func (s *FTSService) Search(ctx context.Context, query string, limit int, filters domain.SearchFilters) ([]domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		logger.Debug("FTS: empty query, returning no results")
		return []domain.SearchResult{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	fetchLimit := limit
	if filters.MinScore > 0 {
		// Over-fetch so a page stays full even when top hits fall below
		// the score threshold.
		fetchLimit = limit * candidateMultiplier
	}

	hits, err := s.store.SearchDigests(ctx, query, fetchLimit, filters)
	if err != nil {
		return nil, fmt.Errorf("fts search: %w", err)
	}
	logger.Debug("FTS: %d digest hits", len(hits))

	// Descending score; ties broken by matched-field priority
	// (title > summary > content).
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Field < hits[j].Field
	})
	if filters.MinScore > 0 {
		kept := hits[:0]
		for _, h := range hits {
			if h.Score >= filters.MinScore {
				kept = append(kept, h)
			}
		}
		hits = kept
	}
	if len(hits) > limit {
		hits = hits[:limit]
	}

	chunkHits, err := s.chunkMatches(ctx, query, limit, filters)
	if err != nil {
		// The fallback is best-effort granularity, not a ranking signal.
		logger.Warn("FTS: chunk-level fallback failed: %v", err)
		chunkHits = nil
	}

	results := make([]domain.SearchResult, 0, len(hits))
	for _, h := range hits {
		matched := chunkHits[h.DigestID]
		if len(matched) == 0 {
			// No chunk matched directly; carry the digest snippet so the
			// result still shows why it ranked.
			matched = []domain.MatchedChunk{{
				Text:       h.Snippet,
				Score:      h.Score,
				ChunkIndex: 0,
				Sources:    []domain.SearchMethod{domain.MethodFTS},
			}}
		}
		results = append(results, domain.SearchResult{
			DigestID:      h.DigestID,
			Title:         h.Title,
			URL:           h.URL,
			MatchedChunks: matched,
			Score:         h.Score,
			Sources:       []domain.SearchMethod{domain.MethodFTS},
			PublishedAt:   h.PublishedAt,
		})
	}
	return results, nil
}

// SearchChunks is the chunk-level lexical fallback: it matches query terms
// directly against chunk text for granularity parity with vector search.
// Its score is an uncalibrated match-count heuristic capped at 1.0.
func (s *FTSService) SearchChunks(ctx context.Context, query string, limit int, filters domain.SearchFilters) ([]domain.MatchedChunk, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.MatchedChunk{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	hits, err := s.store.SearchChunkText(ctx, query, limit, filters)
	if err != nil {
		return nil, fmt.Errorf("chunk text search: %w", err)
	}

	terms := queryTerms(query)
	chunks := make([]domain.MatchedChunk, 0, len(hits))
	for _, h := range hits {
		score := matchCountScore(h.Text, terms)
		if score == 0 {
			continue
		}
		chunks = append(chunks, domain.MatchedChunk{
			Text:       h.Text,
			Score:      score,
			ChunkIndex: h.ChunkIndex,
			Sources:    []domain.SearchMethod{domain.MethodFTS},
		})
	}
	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].Score > chunks[j].Score
	})
	if len(chunks) > limit {
		chunks = chunks[:limit]
	}
	return chunks, nil
}

// chunkMatches gathers fallback chunk hits grouped by digest.
func (s *FTSService) chunkMatches(ctx context.Context, query string, limit int, filters domain.SearchFilters) (map[string][]domain.MatchedChunk, error) {
	hits, err := s.store.SearchChunkText(ctx, query, limit*candidateMultiplier, filters)
	if err != nil {
		return nil, err
	}

	terms := queryTerms(query)
	grouped := make(map[string][]domain.MatchedChunk)
	for _, h := range hits {
		if len(grouped[h.DigestID]) >= maxChunkHitsPerDigest {
			continue
		}
		score := matchCountScore(h.Text, terms)
		if score == 0 {
			continue
		}
		grouped[h.DigestID] = append(grouped[h.DigestID], domain.MatchedChunk{
			Text:       h.Text,
			Score:      score,
			ChunkIndex: h.ChunkIndex,
			Sources:    []domain.SearchMethod{domain.MethodFTS},
		})
	}
	for _, chunks := range grouped {
		sort.SliceStable(chunks, func(i, j int) bool {
			return chunks[i].Score > chunks[j].Score
		})
	}
	return grouped, nil
}

// queryTerms splits a query into lowercase terms.
func queryTerms(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// matchCountScore counts query term occurrences in text and normalises by
// term count, capped at 1.0. A fallback heuristic, not a calibrated rank.
func matchCountScore(text string, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	lower := strings.ToLower(text)
	matches := 0
	for _, term := range terms {
		matches += strings.Count(lower, term)
	}
	score := float64(matches) / float64(len(terms)*2)
	if score > 1.0 {
		return 1.0
	}
	return score
}
