// Package ollama provides an embedding provider adapter using Ollama.
package ollama

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

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/quill-cli/internal/core/domain"
	"github.com/custodia-labs/quill-cli/internal/core/ports/driven"
	"github.com/custodia-labs/quill-cli/internal/retry"
)

// Ensure Provider implements the interface.
var _ driven.EmbeddingProvider = (*Provider)(nil)

// Default configuration values.
const (
	DefaultBaseURL     = "http://localhost:11434"
	DefaultModel       = "nomic-embed-text"
	DefaultTimeout     = 30 * time.Second
	DefaultDimension   = 768 // nomic-embed-text default
	DefaultConcurrency = 4
	DefaultRateLimit   = 20 // requests per second
)

// Config holds configuration for the Ollama embedding provider.
type Config struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the embedding model to use (default: nomic-embed-text).
	Model string

	// Timeout is the per-request timeout (default: 30s).
	Timeout time.Duration

	// Dimension is the advertised embedding vector size. Advisory only:
	// the first observed vector length becomes authoritative.
	Dimension int

	// Concurrency bounds the worker pool that emulates batching
	// (default: 4). Ollama has no native batch embedding API.
	Concurrency int

	// RequestsPerSecond throttles outbound calls (default: 20).
	RequestsPerSecond float64

	// Retry overrides the shared backoff policy. Zero value selects
	// retry.DefaultPolicy.
	Retry retry.Policy
}

// Provider generates embeddings using a local Ollama instance. Batches
// are fanned out over a bounded worker pool and reassembled by input
// index, so output order never depends on completion order.
type Provider struct {
	client      *http.Client
	limiter     *rate.Limiter
	baseURL     string
	model       string
	concurrency int
	policy      retry.Policy

	mu       sync.RWMutex
	dim      int
	observed bool
}

// embedRequest is the Ollama API request format.
type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// embedResponse is the Ollama API response format.
type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// NewProvider creates a new Ollama embedding provider.
func NewProvider(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Dimension == 0 {
		cfg.Dimension = DefaultDimension
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRateLimit
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultPolicy()
	}

	return &Provider{
		client:      &http.Client{Timeout: cfg.Timeout},
		limiter:     rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		concurrency: cfg.Concurrency,
		policy:      cfg.Retry,
		dim:         cfg.Dimension,
	}
}

// Embed generates one vector per input text, preserving input order.
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: empty embed batch", domain.ErrInvalidArgument)
	}

	vectors := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i, text := range texts {
		g.Go(func() error {
			vector, err := p.embedOne(gctx, text)
			if err != nil {
				return fmt.Errorf("embed text %d: %w", i, err)
			}
			vectors[i] = vector
			return nil
		})
	}
	if err := g.Wait(); err != nil {
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
	return string(domain.AIProviderOllama)
}

// ModelName returns the name of the embedding model being used.
func (p *Provider) ModelName() string {
	return p.model
}

// IsAvailable reports whether the Ollama instance is reachable.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return false
	}
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
	if p.model == "" {
		problems = append(problems, "embedding model is not set")
	}
	if !strings.HasPrefix(p.baseURL, "http://") && !strings.HasPrefix(p.baseURL, "https://") {
		problems = append(problems, fmt.Sprintf("base URL %q is not a valid HTTP endpoint", p.baseURL))
	}
	return problems
}

// Close releases resources.
func (p *Provider) Close() error {
	return nil
}

// embedOne requests a single embedding with rate limiting and retry.
func (p *Provider) embedOne(ctx context.Context, text string) ([]float32, error) {
	classify := retry.Classifier{
		Transient:   domain.IsTransient,
		RateLimited: domain.IsRateLimited,
	}
	return retry.Do(ctx, p.policy, classify, func() ([]float32, error) {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return p.request(ctx, text)
	})
}

// request performs one embedding call, translating HTTP failures into
// the domain error taxonomy.
func (p *Provider) request(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: p.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, p.statusError(resp)
	}

	var embedResp embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(embedResp.Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding in response", domain.ErrBackendUnavailable)
	}

	vector := make([]float32, len(embedResp.Embedding))
	for i, v := range embedResp.Embedding {
		vector[i] = float32(v)
	}
	return vector, nil
}

// statusError maps an error response onto the domain taxonomy.
func (p *Provider) statusError(resp *http.Response) error {
	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if readErr != nil {
		raw = nil
	}
	msg := strings.TrimSpace(string(raw))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: model %q not found (is it pulled?): %s", domain.ErrProviderConfig, p.model, msg)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, msg)
	case resp.StatusCode == http.StatusServiceUnavailable && strings.Contains(strings.ToLower(msg), "loading"):
		return fmt.Errorf("%w: %s", domain.ErrModelLoading, msg)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: ollama returned status %d: %s", domain.ErrBackendUnavailable, resp.StatusCode, msg)
	default:
		return fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, msg)
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
