package domain

// AIProvider identifies an AI service provider for embeddings or generation.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is the Anthropic cloud API (generation only).
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding backend.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or compatible APIs).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// BatchConcurrency bounds the worker pool used to emulate batching
	// on providers without a native batch API. Zero selects the default.
	BatchConcurrency int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// GenerationSettings holds generation (LLM) provider configuration.
type GenerationSettings struct {
	// Provider is the generation backend.
	Provider AIProvider

	// Model is the generation model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or compatible APIs).
	BaseURL string

	// APIKey is the API key (for OpenAI and Anthropic).
	APIKey string
}

// IsConfigured returns true if the generation provider is set up.
func (g GenerationSettings) IsConfigured() bool {
	if !g.Provider.IsValid() {
		return false
	}
	if g.Provider.RequiresAPIKey() && g.APIKey == "" {
		return false
	}
	return true
}

// Default fusion tuning.
const (
	// DefaultRRFK is the standard reciprocal rank fusion constant.
	DefaultRRFK = 60

	// DefaultMethodWeight is the default per-method RRF weight.
	DefaultMethodWeight = 1.0
)

// HybridSettings holds the operator-tunable fusion parameters.
type HybridSettings struct {
	// K is the RRF constant; larger values flatten rank contributions.
	K int

	// VectorWeight scales the vector method's RRF contribution.
	VectorWeight float64

	// FTSWeight scales the lexical method's RRF contribution.
	FTSWeight float64
}

// DefaultHybridSettings returns the standard fusion tuning.
func DefaultHybridSettings() HybridSettings {
	return HybridSettings{
		K:            DefaultRRFK,
		VectorWeight: DefaultMethodWeight,
		FTSWeight:    DefaultMethodWeight,
	}
}

// Normalised returns a copy with zero or negative fields replaced by
// defaults, so a partially-filled config never disables a method silently.
func (h HybridSettings) Normalised() HybridSettings {
	out := h
	if out.K <= 0 {
		out.K = DefaultRRFK
	}
	if out.VectorWeight <= 0 {
		out.VectorWeight = DefaultMethodWeight
	}
	if out.FTSWeight <= 0 {
		out.FTSWeight = DefaultMethodWeight
	}
	return out
}
