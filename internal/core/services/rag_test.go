package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quill-cli/internal/core/domain"
	"github.com/custodia-labs/quill-cli/internal/core/ports/driving"
)

func newRAGFixture(generator *mockGenerator) *RAGAnswerService {
	store, embedder := setupHybridFixture()
	search := newHybridService(store, embedder)
	if generator == nil {
		return NewRAGAnswerService(search, nil)
	}
	return NewRAGAnswerService(search, generator)
}

func TestRAGQuery_EmptyQuestion(t *testing.T) {
	service := newRAGFixture(&mockGenerator{answer: "answer"})

	_, err := service.Query(context.Background(), "  ", driving.RAGOptions{IncludeAnswer: true})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestRAGQuery_GeneratesGroundedAnswer(t *testing.T) {
	generator := &mockGenerator{answer: "ML pipelines matter [1][2]."}
	service := newRAGFixture(generator)

	result, err := service.Query(context.Background(), "machine learning", driving.RAGOptions{IncludeAnswer: true})

	require.NoError(t, err)
	assert.Equal(t, "machine learning", result.Question)
	assert.Equal(t, "ML pipelines matter [1][2].", result.Answer)
	assert.True(t, result.Grounded)
	assert.Equal(t, "mock-llm", result.ModelUsed)
	assert.Equal(t, 1, generator.calls)
	assert.Greater(t, result.ChunksRetrieved, 0)

	// Citation IDs are 1..N in retrieval order.
	for i, c := range result.Citations {
		assert.Equal(t, i+1, c.ID)
		assert.NotEmpty(t, c.DigestID)
		assert.NotEmpty(t, c.ChunkText)
	}
}

func TestRAGQuery_PromptEmbedsNumberedSources(t *testing.T) {
	generator := &mockGenerator{answer: "answer"}
	service := newRAGFixture(generator)

	result, err := service.Query(context.Background(), "machine learning", driving.RAGOptions{IncludeAnswer: true})

	require.NoError(t, err)
	require.NotEmpty(t, result.Citations)
	assert.Contains(t, generator.lastPrompt, "[1] ")
	assert.Contains(t, generator.lastPrompt, result.Citations[0].ChunkText)
	assert.Contains(t, generator.lastPrompt, "Question: machine learning")
}

func TestRAGQuery_CustomInstructions(t *testing.T) {
	generator := &mockGenerator{answer: "answer"}
	service := newRAGFixture(generator)
	service.SetInstructions("Answer in haiku form.")

	_, err := service.Query(context.Background(), "machine learning", driving.RAGOptions{IncludeAnswer: true})

	require.NoError(t, err)
	assert.Contains(t, generator.lastPrompt, "Answer in haiku form.")
	assert.NotContains(t, generator.lastPrompt, "numbered sources below")

	// Blank input keeps the previous instructions.
	service.SetInstructions("   ")
	assert.Equal(t, "Answer in haiku form.", service.instructions)
}

func TestRAGQuery_ZeroChunksShortCircuits(t *testing.T) {
	generator := &mockGenerator{answer: "should not be called"}
	empty := &mockSearchStore{}
	search := newHybridService(empty, &mockEmbedder{fallback: axisX})
	service := NewRAGAnswerService(search, generator)

	result, err := service.Query(context.Background(), "anything", driving.RAGOptions{IncludeAnswer: true})

	require.NoError(t, err)
	assert.False(t, result.Grounded)
	assert.Zero(t, result.ChunksRetrieved)
	assert.Contains(t, result.Answer, "No relevant information")
	assert.Zero(t, generator.calls)
}

func TestRAGQuery_SearchOnlySkipsGeneration(t *testing.T) {
	generator := &mockGenerator{answer: "should not be called"}
	service := newRAGFixture(generator)

	result, err := service.SearchOnly(context.Background(), "machine learning", driving.RAGOptions{IncludeAnswer: true})

	require.NoError(t, err)
	assert.Empty(t, result.Answer)
	assert.False(t, result.Grounded)
	assert.Empty(t, result.ModelUsed)
	assert.Greater(t, result.ChunksRetrieved, 0)
	assert.Zero(t, generator.calls)
}

func TestRAGQuery_GenerationFailureDegrades(t *testing.T) {
	generator := &mockGenerator{genErr: errors.New("model overloaded")}
	service := newRAGFixture(generator)

	result, err := service.Query(context.Background(), "machine learning", driving.RAGOptions{IncludeAnswer: true})

	require.NoError(t, err)
	assert.False(t, result.Grounded)
	assert.Empty(t, result.Answer)
	assert.NotEmpty(t, result.Citations)
}

func TestRAGQuery_NilGenerator(t *testing.T) {
	service := newRAGFixture(nil)

	result, err := service.Query(context.Background(), "machine learning", driving.RAGOptions{IncludeAnswer: true})

	require.NoError(t, err)
	assert.False(t, result.Grounded)
	assert.Empty(t, result.Answer)
	assert.NotEmpty(t, result.Citations)
}

func TestRAGQuery_MaxChunksBoundary(t *testing.T) {
	service := newRAGFixture(&mockGenerator{answer: "answer [1]"})

	result, err := service.Query(context.Background(), "machine learning", driving.RAGOptions{MaxChunks: 1, IncludeAnswer: true})

	require.NoError(t, err)
	assert.Equal(t, 1, result.ChunksRetrieved)
	require.Len(t, result.Citations, 1)
	assert.Equal(t, 1, result.Citations[0].ID)
}

func TestRAGExport_FormatsShareCitations(t *testing.T) {
	service := newRAGFixture(nil)
	ctx := context.Background()

	md, err := service.Export(ctx, "machine learning", domain.ExportMarkdown, driving.RAGOptions{})
	require.NoError(t, err)
	js, err := service.Export(ctx, "machine learning", domain.ExportJSON, driving.RAGOptions{})
	require.NoError(t, err)

	assert.Equal(t, md.Citations, js.Citations)
	assert.Equal(t, md.SourcesCount, js.SourcesCount)
	assert.Equal(t, md.ChunksCount, js.ChunksCount)
	assert.NotEqual(t, md.Content, js.Content)

	assert.True(t, strings.HasPrefix(md.Content, "# Sources: machine learning"))
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(js.Content), &payload))
	assert.Equal(t, "machine learning", payload["question"])
}

func TestRAGExport_InvalidFormat(t *testing.T) {
	service := newRAGFixture(nil)

	_, err := service.Export(context.Background(), "question", "yaml", driving.RAGOptions{})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestRAGExport_CountsUniqueSources(t *testing.T) {
	service := newRAGFixture(nil)

	result, err := service.Export(context.Background(), "machine learning", domain.ExportMarkdown, driving.RAGOptions{MaxChunks: 10})

	require.NoError(t, err)
	assert.Equal(t, len(result.Citations), result.ChunksCount)
	assert.LessOrEqual(t, result.SourcesCount, result.ChunksCount)
	assert.Greater(t, result.SourcesCount, 0)
}
