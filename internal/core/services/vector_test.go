package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quill-cli/internal/core/domain"
	"github.com/custodia-labs/quill-cli/internal/core/ports/driven"
)

func TestVectorSearch_EmptyQuery(t *testing.T) {
	store, embedder := setupHybridFixture()
	service := NewVectorSearchService(store, embedder)

	_, _, err := service.Search(context.Background(), "  \t ", 10, domain.SearchFilters{})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestVectorSearch_NilEmbedder(t *testing.T) {
	store, _ := setupHybridFixture()
	service := NewVectorSearchService(store, nil)

	_, _, err := service.Search(context.Background(), "query", 10, domain.SearchFilters{})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestVectorSearch_RanksByBestChunk(t *testing.T) {
	store, embedder := setupHybridFixture()
	service := NewVectorSearchService(store, embedder)

	results, embedding, err := service.Search(context.Background(), "machine learning", 10, domain.SearchFilters{})

	require.NoError(t, err)
	assert.Equal(t, axisX, embedding)
	require.Len(t, results, 2)

	// The query vector is axisX; dig-vec's chunk is axisX itself and
	// must outrank dig-both's partially-aligned chunk.
	assert.Equal(t, "dig-vec", results[0].DigestID)
	assert.Equal(t, "dig-both", results[1].DigestID)
	assert.Greater(t, results[0].Score, results[1].Score)
	for _, r := range results {
		require.NotEmpty(t, r.MatchedChunks)
		assert.Equal(t, r.MatchedChunks[0].Score, r.Score)
	}
}

func TestVectorSearch_RoundTripSelfSimilarity(t *testing.T) {
	stored := []float32{0.3, -0.7, 0.64}
	store := &mockSearchStore{
		candidates: []driven.ChunkCandidate{
			{ChunkID: "c1", DigestID: "d1", ChunkIndex: 0, Text: "text", Embedding: domain.EncodeEmbedding(stored)},
		},
		refs: map[string]driven.DigestRef{
			"d1": {ID: "d1", Title: "Digest", PublishedAt: daysAgo(1)},
		},
	}
	service := NewVectorSearchService(store, nil)

	results, err := service.SearchWithEmbedding(context.Background(), stored, 10, domain.SearchFilters{})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
}

func TestVectorSearch_EmptyEmbedding(t *testing.T) {
	store, _ := setupHybridFixture()
	service := NewVectorSearchService(store, nil)

	_, err := service.SearchWithEmbedding(context.Background(), nil, 10, domain.SearchFilters{})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestVectorSearch_SkipsDimensionMismatch(t *testing.T) {
	store := &mockSearchStore{
		candidates: []driven.ChunkCandidate{
			{ChunkID: "stale", DigestID: "d1", ChunkIndex: 0, Text: "old provider", Embedding: domain.EncodeEmbedding([]float32{1, 0})},
			{ChunkID: "fresh", DigestID: "d2", ChunkIndex: 0, Text: "current provider", Embedding: domain.EncodeEmbedding(axisX)},
		},
		refs: map[string]driven.DigestRef{
			"d1": {ID: "d1", Title: "Stale", PublishedAt: daysAgo(1)},
			"d2": {ID: "d2", Title: "Fresh", PublishedAt: daysAgo(1)},
		},
	}
	service := NewVectorSearchService(store, nil)

	results, err := service.SearchWithEmbedding(context.Background(), axisX, 10, domain.SearchFilters{})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "d2", results[0].DigestID)
}

func TestVectorSearch_MinScoreFilter(t *testing.T) {
	store := &mockSearchStore{
		candidates: []driven.ChunkCandidate{
			{ChunkID: "aligned", DigestID: "d1", ChunkIndex: 0, Text: "aligned", Embedding: domain.EncodeEmbedding(axisX)},
			{ChunkID: "orthogonal", DigestID: "d2", ChunkIndex: 0, Text: "orthogonal", Embedding: domain.EncodeEmbedding(axisY)},
		},
		refs: map[string]driven.DigestRef{
			"d1": {ID: "d1", Title: "Aligned", PublishedAt: daysAgo(1)},
			"d2": {ID: "d2", Title: "Orthogonal", PublishedAt: daysAgo(1)},
		},
	}
	service := NewVectorSearchService(store, nil)

	// An orthogonal vector normalises to 0.5; only the aligned chunk
	// clears 0.9.
	results, err := service.SearchWithEmbedding(context.Background(), axisX, 10, domain.SearchFilters{MinScore: 0.9})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "d1", results[0].DigestID)
}

func TestVectorSearch_DaysFilter(t *testing.T) {
	store := &mockSearchStore{
		candidates: []driven.ChunkCandidate{
			{ChunkID: "recent", DigestID: "d-recent", ChunkIndex: 0, Text: "recent", Embedding: domain.EncodeEmbedding(axisX)},
			{ChunkID: "old", DigestID: "d-old", ChunkIndex: 0, Text: "old", Embedding: domain.EncodeEmbedding(axisX)},
		},
		refs: map[string]driven.DigestRef{
			"d-recent": {ID: "d-recent", Title: "Six Days Old", PublishedAt: daysAgo(6)},
			"d-old":    {ID: "d-old", Title: "Eight Days Old", PublishedAt: daysAgo(8)},
		},
	}
	service := NewVectorSearchService(store, nil)

	results, err := service.SearchWithEmbedding(context.Background(), axisX, 10, domain.SearchFilters{Days: 7})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "d-recent", results[0].DigestID)
}

func TestVectorSearch_SkipsDeletedDigest(t *testing.T) {
	store := &mockSearchStore{
		candidates: []driven.ChunkCandidate{
			{ChunkID: "orphan", DigestID: "gone", ChunkIndex: 0, Text: "orphan", Embedding: domain.EncodeEmbedding(axisX)},
			{ChunkID: "kept", DigestID: "d1", ChunkIndex: 0, Text: "kept", Embedding: domain.EncodeEmbedding(axisX)},
		},
		refs: map[string]driven.DigestRef{
			"d1": {ID: "d1", Title: "Kept", PublishedAt: daysAgo(1)},
		},
	}
	service := NewVectorSearchService(store, nil)

	results, err := service.SearchWithEmbedding(context.Background(), axisX, 10, domain.SearchFilters{})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "d1", results[0].DigestID)
}

func TestVectorSearch_GroupsChunksPerDigest(t *testing.T) {
	store := &mockSearchStore{
		candidates: []driven.ChunkCandidate{
			{ChunkID: "c0", DigestID: "d1", ChunkIndex: 0, Text: "first", Embedding: domain.EncodeEmbedding(axisX)},
			{ChunkID: "c1", DigestID: "d1", ChunkIndex: 1, Text: "second", Embedding: domain.EncodeEmbedding([]float32{0.9, 0.1, 0})},
		},
		refs: map[string]driven.DigestRef{
			"d1": {ID: "d1", Title: "Multi-chunk", PublishedAt: daysAgo(1)},
		},
	}
	service := NewVectorSearchService(store, nil)

	results, err := service.SearchWithEmbedding(context.Background(), axisX, 10, domain.SearchFilters{})

	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Len(t, results[0].MatchedChunks, 2)
	assert.Equal(t, 0, results[0].MatchedChunks[0].ChunkIndex)
	assert.GreaterOrEqual(t, results[0].MatchedChunks[0].Score, results[0].MatchedChunks[1].Score)
}
