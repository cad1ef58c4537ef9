package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/quill-cli/internal/core/domain"
	"github.com/custodia-labs/quill-cli/internal/core/ports/driven"
	"github.com/custodia-labs/quill-cli/internal/core/ports/driving"
	"github.com/custodia-labs/quill-cli/internal/logger"
)

// Ensure RAGAnswerService implements the interface.
var _ driving.RAGService = (*RAGAnswerService)(nil)

const (
	// DefaultMaxChunks bounds retrieval when the caller does not.
	DefaultMaxChunks = 5

	// noInformationAnswer is returned when retrieval finds nothing.
	noInformationAnswer = "No relevant information was found in the indexed digests for this question."

	defaultGenerationMaxTokens   = 1024
	defaultGenerationTemperature = 0.2
)

// DefaultRAGInstructions heads the grounded prompt when no custom prompt
// template is configured. The prompt store seeds its editable template
// file from this text.
const DefaultRAGInstructions = `You are answering a question using only the numbered sources below.
Cite sources inline with their number in square brackets, like [1] or [2].
If the sources do not contain the answer, say so instead of guessing.`

// RAGAnswerService answers questions grounded in retrieved chunks. It
// retrieves through the hybrid search pipeline, assembles a prompt that
// embeds each chunk as a numbered source, and asks the generation
// provider for a cited answer.
type RAGAnswerService struct {
	search       driving.SearchService
	generator    driven.GenerationProvider
	instructions string
}

// NewRAGAnswerService creates a new RAG service. The generator may be
// nil; queries then always degrade to retrieval-only results.
func NewRAGAnswerService(search driving.SearchService, generator driven.GenerationProvider) *RAGAnswerService {
	return &RAGAnswerService{
		search:       search,
		generator:    generator,
		instructions: DefaultRAGInstructions,
	}
}

// SetInstructions replaces the instruction header of the grounded
// prompt, for operator-customised prompt templates. Empty input keeps
// the default. Not safe to call after the service is in use.
func (s *RAGAnswerService) SetInstructions(text string) {
	text = strings.TrimSpace(text)
	if text != "" {
		s.instructions = text
	}
}

// Query retrieves supporting chunks and, when requested, generates a
// cited answer. Generation failure degrades to a citations-only result
// rather than failing the query; retrieval failure is an error.
func (s *RAGAnswerService) Query(ctx context.Context, question string, opts driving.RAGOptions) (*domain.RAGResult, error) {
	total := time.Now()

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: empty question", domain.ErrInvalidArgument)
	}

	maxChunks := opts.MaxChunks
	if maxChunks <= 0 {
		maxChunks = DefaultMaxChunks
	}

	logger.Section("RAG Query")
	logger.Debug("Question: %q, max chunks: %d, answer: %t", question, maxChunks, opts.IncludeAnswer)

	searchStart := time.Now()
	citations, err := s.retrieve(ctx, question, maxChunks, opts.Filters)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	searchTook := time.Since(searchStart).Milliseconds()
	logger.Info("Retrieved %d chunks in %dms", len(citations), searchTook)

	result := &domain.RAGResult{
		Question:        question,
		Citations:       citations,
		ChunksRetrieved: len(citations),
		SearchTookMS:    searchTook,
	}

	if len(citations) == 0 {
		result.Answer = noInformationAnswer
		result.TotalTookMS = time.Since(total).Milliseconds()
		return result, nil
	}

	if !opts.IncludeAnswer {
		result.TotalTookMS = time.Since(total).Milliseconds()
		return result, nil
	}

	if s.generator == nil {
		logger.Warn("RAG: no generation provider configured, returning citations only")
		result.TotalTookMS = time.Since(total).Milliseconds()
		return result, nil
	}

	prompt := buildGroundedPrompt(s.instructions, question, citations)
	genStart := time.Now()
	answer, genErr := s.generator.Generate(ctx, prompt, driven.GenerateOptions{
		MaxTokens:   defaultGenerationMaxTokens,
		Temperature: defaultGenerationTemperature,
	})
	result.GenerationTookMS = time.Since(genStart).Milliseconds()

	if genErr != nil {
		// Degrade: the caller still gets the sources that would have
		// backed the answer.
		logger.Warn("RAG: generation failed, returning citations only: %v", genErr)
		result.TotalTookMS = time.Since(total).Milliseconds()
		return result, nil
	}

	result.Answer = strings.TrimSpace(answer)
	result.Grounded = true
	result.ModelUsed = s.generator.ModelName()
	result.TotalTookMS = time.Since(total).Milliseconds()
	logger.Info("Generated answer in %dms using %s", result.GenerationTookMS, result.ModelUsed)
	return result, nil
}

// SearchOnly retrieves citations without generation.
func (s *RAGAnswerService) SearchOnly(ctx context.Context, question string, opts driving.RAGOptions) (*domain.RAGResult, error) {
	opts.IncludeAnswer = false
	return s.Query(ctx, question, opts)
}

// Export retrieves once and renders the citation list in the requested
// format. Both formats are transformations of the same citation slice.
func (s *RAGAnswerService) Export(ctx context.Context, question string, format domain.ExportFormat, opts driving.RAGOptions) (*domain.ExportResult, error) {
	if !format.IsValid() {
		return nil, fmt.Errorf("%w: unknown export format %q", domain.ErrInvalidArgument, format)
	}

	result, err := s.SearchOnly(ctx, question, opts)
	if err != nil {
		return nil, err
	}

	var content string
	switch format {
	case domain.ExportJSON:
		content, err = renderCitationsJSON(question, result.Citations)
	default:
		content = renderCitationsMarkdown(question, result.Citations)
	}
	if err != nil {
		return nil, fmt.Errorf("render %s export: %w", format, err)
	}

	return &domain.ExportResult{
		Content:      content,
		Citations:    result.Citations,
		SourcesCount: countUniqueDigests(result.Citations),
		ChunksCount:  len(result.Citations),
		SearchTookMS: result.SearchTookMS,
	}, nil
}

// retrieve runs a hybrid search and flattens the ranked results into a
// citation list bounded to maxChunks, numbered 1..N in retrieval order.
func (s *RAGAnswerService) retrieve(ctx context.Context, question string, maxChunks int, filters domain.SearchFilters) ([]domain.Citation, error) {
	resp, err := s.search.Search(ctx, question, driving.SearchOptions{
		Limit:   maxChunks,
		Mode:    domain.SearchModeHybrid,
		Filters: filters,
	})
	if err != nil {
		return nil, err
	}

	citations := make([]domain.Citation, 0, maxChunks)
	for _, result := range resp.Results {
		for _, chunk := range result.MatchedChunks {
			if len(citations) >= maxChunks {
				return citations, nil
			}
			citations = append(citations, domain.Citation{
				ID:             len(citations) + 1,
				DigestID:       result.DigestID,
				DigestTitle:    result.Title,
				ChunkText:      chunk.Text,
				ChunkIndex:     chunk.ChunkIndex,
				RelevanceScore: chunk.Score,
				URL:            result.URL,
				PublishedAt:    result.PublishedAt,
			})
		}
	}
	return citations, nil
}

// buildGroundedPrompt embeds each retrieved chunk as a numbered source
// and instructs the model to cite them by number. The numbering matches
// the citation IDs returned alongside the answer.
func buildGroundedPrompt(instructions, question string, citations []domain.Citation) string {
	var b strings.Builder

	b.WriteString(instructions)
	b.WriteString("\n\nSources:\n\n")

	for _, c := range citations {
		fmt.Fprintf(&b, "[%d] %s\n", c.ID, c.DigestTitle)
		b.WriteString(c.ChunkText)
		b.WriteString("\n\n")
	}

	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\n\nAnswer:")
	return b.String()
}

// countUniqueDigests counts distinct digests across a citation list.
func countUniqueDigests(citations []domain.Citation) int {
	seen := make(map[string]struct{}, len(citations))
	for _, c := range citations {
		seen[c.DigestID] = struct{}{}
	}
	return len(seen)
}
