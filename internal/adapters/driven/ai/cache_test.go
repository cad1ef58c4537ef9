package ai

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quill-cli/internal/core/domain"
)

// countingEmbedder records which texts reach the backend.
type countingEmbedder struct {
	embedded []string
}

func (c *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: empty embed batch", domain.ErrInvalidArgument)
	}
	c.embedded = append(c.embedded, texts...)
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text)), 0}
	}
	return out, nil
}

func (c *countingEmbedder) Dimension() int                     { return 2 }
func (c *countingEmbedder) ProviderName() string               { return "counting" }
func (c *countingEmbedder) ModelName() string                  { return "test-model" }
func (c *countingEmbedder) IsAvailable(_ context.Context) bool { return true }
func (c *countingEmbedder) ValidateConfig() []string           { return nil }
func (c *countingEmbedder) Close() error                       { return nil }

func TestCachedProvider_ServesRepeatsFromCache(t *testing.T) {
	inner := &countingEmbedder{}
	cached, err := NewCachedProvider(inner, 16)
	require.NoError(t, err)
	ctx := context.Background()

	first, err := cached.Embed(ctx, []string{"alpha", "beta"})
	require.NoError(t, err)
	second, err := cached.Embed(ctx, []string{"alpha", "beta"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"alpha", "beta"}, inner.embedded, "repeat batch must not reach the backend")
	assert.Equal(t, 2, cached.Len())
}

func TestCachedProvider_MixedHitMissPreservesOrder(t *testing.T) {
	inner := &countingEmbedder{}
	cached, err := NewCachedProvider(inner, 16)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = cached.Embed(ctx, []string{"cached"})
	require.NoError(t, err)

	vectors, err := cached.Embed(ctx, []string{"new-one", "cached", "new-two"})
	require.NoError(t, err)

	require.Len(t, vectors, 3)
	assert.Equal(t, float32(len("new-one")), vectors[0][0])
	assert.Equal(t, float32(len("cached")), vectors[1][0])
	assert.Equal(t, float32(len("new-two")), vectors[2][0])
	assert.Equal(t, []string{"cached", "new-one", "new-two"}, inner.embedded)
}

func TestCachedProvider_EmptyBatch(t *testing.T) {
	cached, err := NewCachedProvider(&countingEmbedder{}, 16)
	require.NoError(t, err)

	_, err = cached.Embed(context.Background(), nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestCachedProvider_KeyIncludesProviderAndModel(t *testing.T) {
	cached, err := NewCachedProvider(&countingEmbedder{}, 16)
	require.NoError(t, err)

	assert.Equal(t, "counting/test-model", cached.namespace)
	assert.NotEqual(t, cached.cacheKey("alpha"), (&CachedProvider{namespace: "other/model"}).cacheKey("alpha"))
}

func TestCachedProvider_ReadsDoNotAliasCache(t *testing.T) {
	inner := &countingEmbedder{}
	cached, err := NewCachedProvider(inner, 16)
	require.NoError(t, err)
	ctx := context.Background()

	first, err := cached.Embed(ctx, []string{"alpha"})
	require.NoError(t, err)
	first[0][0] = -1

	second, err := cached.Embed(ctx, []string{"alpha"})
	require.NoError(t, err)
	second[0][1] = -1

	third, err := cached.Embed(ctx, []string{"alpha"})
	require.NoError(t, err)

	assert.Equal(t, []float32{float32(len("alpha")), 0}, third[0], "caller writes must not reach the cached vector")
	assert.Equal(t, []string{"alpha"}, inner.embedded)
}

func TestCachedProvider_Purge(t *testing.T) {
	inner := &countingEmbedder{}
	cached, err := NewCachedProvider(inner, 16)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = cached.Embed(ctx, []string{"alpha"})
	require.NoError(t, err)
	cached.Purge()
	_, err = cached.Embed(ctx, []string{"alpha"})
	require.NoError(t, err)

	assert.Equal(t, []string{"alpha", "alpha"}, inner.embedded)
	assert.Equal(t, 1, cached.Len())
}
