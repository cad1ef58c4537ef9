package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/custodia-labs/quill-cli/internal/core/ports/driven"
	"github.com/custodia-labs/quill-cli/internal/logger"
)

// Ensure CachedProvider implements the interface.
var _ driven.EmbeddingProvider = (*CachedProvider)(nil)

// DefaultCacheSize is the number of embeddings held by the cache.
const DefaultCacheSize = 2048

// CachedProvider wraps an embedding provider with an LRU cache keyed by
// content hash. The cache is owned by the composition root and shared
// deliberately, never through package-level state; Purge gives the owner
// an explicit invalidation point for provider or model changes.
type CachedProvider struct {
	inner     driven.EmbeddingProvider
	cache     *lru.Cache[string, []float32]
	namespace string
}

// NewCachedProvider wraps a provider with a cache of the given size.
// size <= 0 selects DefaultCacheSize.
func NewCachedProvider(inner driven.EmbeddingProvider, size int) (*CachedProvider, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, err
	}
	namespace := inner.ProviderName()
	if m, ok := inner.(interface{ ModelName() string }); ok {
		namespace += "/" + m.ModelName()
	}
	return &CachedProvider{inner: inner, cache: cache, namespace: namespace}, nil
}

// Embed serves cached vectors where possible and forwards only the
// misses, preserving input order in the combined result.
func (c *CachedProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	missTexts := make([]string, 0, len(texts))
	missIndexes := make([]int, 0, len(texts))

	for i, text := range texts {
		if v, ok := c.cache.Get(c.cacheKey(text)); ok {
			vectors[i] = cloneVector(v)
			continue
		}
		missTexts = append(missTexts, text)
		missIndexes = append(missIndexes, i)
	}

	if len(missTexts) == 0 && len(texts) > 0 {
		logger.Debug("Embedding cache: served %d texts entirely from cache", len(texts))
		return vectors, nil
	}

	// An all-miss empty batch still reaches the provider so its
	// InvalidArgument contract applies.
	fresh, err := c.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}

	for j, v := range fresh {
		vectors[missIndexes[j]] = v
		c.cache.Add(c.cacheKey(missTexts[j]), cloneVector(v))
	}
	logger.Debug("Embedding cache: %d hits, %d misses", len(texts)-len(missTexts), len(missTexts))
	return vectors, nil
}

// Dimension returns the wrapped provider's vector size.
func (c *CachedProvider) Dimension() int {
	return c.inner.Dimension()
}

// ProviderName identifies the wrapped backend.
func (c *CachedProvider) ProviderName() string {
	return c.inner.ProviderName()
}

// IsAvailable reports whether the wrapped backend is reachable.
func (c *CachedProvider) IsAvailable(ctx context.Context) bool {
	return c.inner.IsAvailable(ctx)
}

// ValidateConfig returns the wrapped provider's configuration problems.
func (c *CachedProvider) ValidateConfig() []string {
	return c.inner.ValidateConfig()
}

// Purge discards every cached embedding. Call after switching provider
// or model, since cached vectors from the old model are meaningless to
// the new one.
func (c *CachedProvider) Purge() {
	c.cache.Purge()
}

// Len returns the number of cached embeddings.
func (c *CachedProvider) Len() int {
	return c.cache.Len()
}

// Close releases the wrapped provider's resources.
func (c *CachedProvider) Close() error {
	c.cache.Purge()
	return c.inner.Close()
}

// cacheKey hashes the provider/model namespace together with the text so
// arbitrarily long chunks key compactly and vectors from one model never
// answer for another.
func (c *CachedProvider) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(c.namespace + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

// cloneVector copies a cached vector so callers never alias cache-owned
// memory.
func cloneVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
