package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quill-cli/internal/core/domain"
)

func TestCreateEmbeddingProvider_Unconfigured(t *testing.T) {
	provider, err := CreateEmbeddingProvider(nil)
	require.NoError(t, err)
	assert.Nil(t, provider)

	provider, err = CreateEmbeddingProvider(&domain.EmbeddingSettings{})
	require.NoError(t, err)
	assert.Nil(t, provider)

	// OpenAI without a key is unconfigured, not an error.
	provider, err = CreateEmbeddingProvider(&domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI})
	require.NoError(t, err)
	assert.Nil(t, provider)
}

func TestCreateEmbeddingProvider_Ollama(t *testing.T) {
	provider, err := CreateEmbeddingProvider(&domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		Model:    "nomic-embed-text",
	})

	require.NoError(t, err)
	require.NotNil(t, provider)
	assert.Equal(t, "ollama", provider.ProviderName())
	assert.Equal(t, 768, provider.Dimension())
}

func TestCreateEmbeddingProvider_OpenAI(t *testing.T) {
	provider, err := CreateEmbeddingProvider(&domain.EmbeddingSettings{
		Provider: domain.AIProviderOpenAI,
		Model:    "text-embedding-3-small",
		APIKey:   "test-key",
	})

	require.NoError(t, err)
	require.NotNil(t, provider)
	assert.Equal(t, "openai", provider.ProviderName())
	assert.Equal(t, 1536, provider.Dimension())
}

func TestCreateEmbeddingProvider_AnthropicRejected(t *testing.T) {
	_, err := CreateEmbeddingProvider(&domain.EmbeddingSettings{
		Provider: domain.AIProviderAnthropic,
		APIKey:   "test-key",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProviderConfig)
}

func TestCreateGenerationProvider_AllProviders(t *testing.T) {
	tests := []struct {
		name     string
		settings domain.GenerationSettings
		model    string
	}{
		{"ollama", domain.GenerationSettings{Provider: domain.AIProviderOllama, Model: "llama3.2"}, "llama3.2"},
		{"openai", domain.GenerationSettings{Provider: domain.AIProviderOpenAI, Model: "gpt-4o-mini", APIKey: "k"}, "gpt-4o-mini"},
		{"anthropic", domain.GenerationSettings{Provider: domain.AIProviderAnthropic, Model: "claude-3-5-sonnet-latest", APIKey: "k"}, "claude-3-5-sonnet-latest"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := CreateGenerationProvider(&tt.settings)
			require.NoError(t, err)
			require.NotNil(t, provider)
			assert.Equal(t, tt.model, provider.ModelName())
		})
	}
}

func TestCreateGenerationProvider_Unconfigured(t *testing.T) {
	provider, err := CreateGenerationProvider(nil)
	require.NoError(t, err)
	assert.Nil(t, provider)
}
