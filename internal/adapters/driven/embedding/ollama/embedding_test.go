package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quill-cli/internal/core/domain"
	"github.com/custodia-labs/quill-cli/internal/retry"
)

// fakeOllama returns a distinguishable vector per prompt so order
// preservation is observable: prompt "text-N" maps to [N, 0, 0].
func fakeOllama(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		var n float64
		_, err := fmt.Sscanf(req.Prompt, "text-%f", &n)
		require.NoError(t, err)

		// Later prompts respond faster, so completion order inverts
		// submission order.
		time.Sleep(time.Duration(10-int(n)) * time.Millisecond)

		resp := embedResponse{Embedding: []float64{n, 0, 0}}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestEmbed_PreservesInputOrder(t *testing.T) {
	server := fakeOllama(t)
	defer server.Close()

	provider := NewProvider(Config{BaseURL: server.URL, Concurrency: 4})
	texts := []string{"text-1", "text-2", "text-3", "text-4", "text-5"}

	vectors, err := provider.Embed(context.Background(), texts)

	require.NoError(t, err)
	require.Len(t, vectors, len(texts))
	for i, v := range vectors {
		require.Len(t, v, 3)
		assert.Equal(t, float32(i+1), v[0], "vector %d not aligned with its input", i)
	}
}

func TestEmbed_EmptyBatch(t *testing.T) {
	provider := NewProvider(Config{})

	_, err := provider.Embed(context.Background(), nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestEmbed_ObservedDimensionWins(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := embedResponse{Embedding: []float64{0.1, 0.2, 0.3, 0.4}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider := NewProvider(Config{BaseURL: server.URL, Dimension: 768})
	assert.Equal(t, 768, provider.Dimension())

	_, err := provider.Embed(context.Background(), []string{"anything"})

	require.NoError(t, err)
	assert.Equal(t, 4, provider.Dimension())
}

func TestEmbed_RetriesModelLoading(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":"model is loading"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(embedResponse{Embedding: []float64{1, 0}})
	}))
	defer server.Close()

	provider := NewProvider(Config{
		BaseURL: server.URL,
		Retry: retry.Policy{
			MaxAttempts:    3,
			BaseDelay:      time.Millisecond,
			RateLimitFloor: time.Millisecond,
		},
	})

	vectors, err := provider.Embed(context.Background(), []string{"anything"})

	require.NoError(t, err)
	require.Len(t, vectors, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestEmbed_MissingModelIsFatal(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model not found"}`))
	}))
	defer server.Close()

	provider := NewProvider(Config{BaseURL: server.URL})

	_, err := provider.Embed(context.Background(), []string{"anything"})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProviderConfig)
	assert.Equal(t, int32(1), calls.Load(), "configuration errors must not be retried")
}

func TestIsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	up := NewProvider(Config{BaseURL: server.URL})
	assert.True(t, up.IsAvailable(context.Background()))

	down := NewProvider(Config{BaseURL: "http://127.0.0.1:1"})
	assert.False(t, down.IsAvailable(context.Background()))
}

func TestValidateConfig(t *testing.T) {
	healthy := NewProvider(Config{})
	assert.Empty(t, healthy.ValidateConfig())

	broken := NewProvider(Config{BaseURL: "localhost:11434"})
	assert.NotEmpty(t, broken.ValidateConfig())
}
