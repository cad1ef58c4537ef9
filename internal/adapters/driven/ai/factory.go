// Package ai provides factory functions for creating embedding and
// generation provider adapters from typed settings.
package ai

import (
	"context"
	"fmt"
	"time"

	ollamaembed "github.com/custodia-labs/quill-cli/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/quill-cli/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/quill-cli/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/quill-cli/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/quill-cli/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/quill-cli/internal/core/domain"
	"github.com/custodia-labs/quill-cli/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for connectivity validation.
const pingTimeout = 5 * time.Second

// CreateEmbeddingProvider creates the embedding provider selected by the
// settings. Returns nil without error when no provider is configured;
// search then degrades to FTS-only.
func CreateEmbeddingProvider(settings *domain.EmbeddingSettings) (driven.EmbeddingProvider, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.NewProvider(ollamaembed.Config{
			BaseURL:     settings.BaseURL,
			Model:       settings.Model,
			Concurrency: settings.BatchConcurrency,
		}), nil

	case domain.AIProviderOpenAI:
		return openaiembed.NewProvider(openaiembed.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderAnthropic:
		return nil, fmt.Errorf("%w: anthropic does not offer embeddings, use ollama or openai", domain.ErrProviderConfig)

	default:
		return nil, fmt.Errorf("%w: unsupported embedding provider %q", domain.ErrProviderConfig, settings.Provider)
	}
}

// CreateAndValidateEmbeddingProvider creates an embedding provider and
// checks its configuration and reachability. Returns nil without error
// when no provider is configured.
func CreateAndValidateEmbeddingProvider(settings *domain.EmbeddingSettings) (driven.EmbeddingProvider, error) {
	provider, err := CreateEmbeddingProvider(settings)
	if err != nil || provider == nil {
		return nil, err
	}

	if problems := provider.ValidateConfig(); len(problems) > 0 {
		_ = provider.Close()
		return nil, fmt.Errorf("%w: %s", domain.ErrProviderConfig, problems[0])
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if !provider.IsAvailable(ctx) {
		_ = provider.Close()
		return nil, fmt.Errorf("%w: %s backend is unreachable. Run 'quill config check' for details",
			domain.ErrEmbeddingUnavailable, provider.ProviderName())
	}
	return provider, nil
}

// CreateGenerationProvider creates the generation provider selected by
// the settings. Returns nil without error when no provider is
// configured; RAG queries then degrade to search-only results.
func CreateGenerationProvider(settings *domain.GenerationSettings) (driven.GenerationProvider, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewProvider(ollamallm.Config{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.NewProvider(openaillm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.NewProvider(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	default:
		return nil, fmt.Errorf("%w: unsupported generation provider %q", domain.ErrProviderConfig, settings.Provider)
	}
}

// CreateAndValidateGenerationProvider creates a generation provider and
// checks its reachability. Returns nil without error when no provider is
// configured.
func CreateAndValidateGenerationProvider(settings *domain.GenerationSettings) (driven.GenerationProvider, error) {
	provider, err := CreateGenerationProvider(settings)
	if err != nil || provider == nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := provider.Ping(ctx); err != nil {
		_ = provider.Close()
		return nil, fmt.Errorf("%w: %v", domain.ErrGenerationUnavailable, err)
	}
	return provider, nil
}
