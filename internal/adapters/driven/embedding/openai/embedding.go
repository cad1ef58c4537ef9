// Package openai provides an embedding provider adapter using the OpenAI API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/quill-cli/internal/core/domain"
	"github.com/custodia-labs/quill-cli/internal/core/ports/driven"
	"github.com/custodia-labs/quill-cli/internal/retry"
)

// Ensure Provider implements the interface.
var _ driven.EmbeddingProvider = (*Provider)(nil)

// Default configuration values.
const (
	DefaultBaseURL   = "https://api.openai.com/v1"
	DefaultModel     = "text-embedding-3-small"
	DefaultTimeout   = 60 * time.Second
	DefaultRateLimit = 10 // requests per second
)

// Model dimensions for OpenAI embedding models.
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// Config holds configuration for the OpenAI embedding provider.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the embedding model to use (default: text-embedding-3-small).
	Model string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration

	// Dimension overrides the default dimension for the model.
	// Only applicable to text-embedding-3-* models.
	Dimension int

	// RequestsPerSecond throttles outbound calls (default: 10).
	RequestsPerSecond float64

	// Retry overrides the shared backoff policy. Zero value selects
	// retry.DefaultPolicy.
	Retry retry.Policy
}

// Provider generates embeddings using the OpenAI API. The API accepts
// whole batches natively; responses are reassembled by the per-item
// index field, which the API does not guarantee to return in order.
type Provider struct {
	client  *http.Client
	limiter *rate.Limiter
	baseURL string
	apiKey  string
	model   string
	policy  retry.Policy

	mu       sync.RWMutex
	dim      int
	observed bool
}

// embeddingRequest is the OpenAI API request format.
type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

// embeddingResponse is the OpenAI API response format.
type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewProvider creates a new OpenAI embedding provider.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai API key is required", domain.ErrProviderConfig)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRateLimit
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultPolicy()
	}

	dim := cfg.Dimension
	if dim == 0 {
		var ok bool
		dim, ok = modelDimensions[cfg.Model]
		if !ok {
			dim = 1536
		}
	}

	return &Provider{
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		policy:  cfg.Retry,
		dim:     dim,
	}, nil
}

// Embed generates one vector per input text, preserving input order.
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: empty embed batch", domain.ErrInvalidArgument)
	}

	classify := retry.Classifier{
		Transient:   domain.IsTransient,
		RateLimited: domain.IsRateLimited,
	}
	vectors, err := retry.Do(ctx, p.policy, classify, func() ([][]float32, error) {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return p.request(ctx, texts)
	})
	if err != nil {
		return nil, err
	}

	p.recordDimension(len(vectors[0]))
	return vectors, nil
}

// Dimension returns the embedding vector size. The configured value is
// reported until a real response is observed.
func (p *Provider) Dimension() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.dim
}

// ProviderName identifies the backend.
func (p *Provider) ProviderName() string {
	return string(domain.AIProviderOpenAI)
}

// ModelName returns the name of the embedding model being used.
func (p *Provider) ModelName() string {
	return p.model
}

// IsAvailable reports whether the API is reachable with the configured key.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/models", http.NoBody)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// ValidateConfig returns human-readable configuration problems.
func (p *Provider) ValidateConfig() []string {
	var problems []string
	if p.apiKey == "" {
		problems = append(problems, "openai API key is not set")
	}
	if p.model == "" {
		problems = append(problems, "embedding model is not set")
	}
	if _, known := modelDimensions[p.model]; p.model != "" && !known {
		problems = append(problems, fmt.Sprintf("model %q is not a known embedding model", p.model))
	}
	return problems
}

// Close releases resources.
func (p *Provider) Close() error {
	return nil
}

// request performs one batch embedding call, translating HTTP failures
// into the domain error taxonomy and restoring input order by index.
func (p *Provider) request(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := embeddingRequest{
		Model: p.model,
		Input: texts,
	}
	// Only text-embedding-3-* models accept a dimensions override.
	if strings.HasPrefix(p.model, "text-embedding-3-") {
		p.mu.RLock()
		if !p.observed && p.dim > 0 {
			reqBody.Dimensions = p.dim
		}
		p.mu.RUnlock()
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, p.statusError(resp.StatusCode, raw)
	}

	var embedResp embeddingResponse
	if err := json.Unmarshal(raw, &embedResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if embedResp.Error != nil {
		return nil, fmt.Errorf("openai error: %s", embedResp.Error.Message)
	}
	if len(embedResp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", domain.ErrBackendUnavailable, len(texts), len(embedResp.Data))
	}

	vectors := make([][]float32, len(texts))
	for _, data := range embedResp.Data {
		if data.Index < 0 || data.Index >= len(texts) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", domain.ErrBackendUnavailable, data.Index)
		}
		vector := make([]float32, len(data.Embedding))
		for i, v := range data.Embedding {
			vector[i] = float32(v)
		}
		vectors[data.Index] = vector
	}
	return vectors, nil
}

// statusError maps an error response onto the domain taxonomy.
func (p *Provider) statusError(status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: openai rejected the API key (status %d)", domain.ErrProviderConfig, status)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, msg)
	case status >= 500:
		return fmt.Errorf("%w: openai returned status %d: %s", domain.ErrBackendUnavailable, status, msg)
	default:
		return fmt.Errorf("openai returned status %d: %s", status, msg)
	}
}

// recordDimension makes the first observed vector length authoritative.
func (p *Provider) recordDimension(observed int) {
	if observed == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.observed || p.dim != observed {
		p.dim = observed
		p.observed = true
	}
}
