package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quill-cli/internal/core/domain"
	"github.com/custodia-labs/quill-cli/internal/core/ports/driven"
	"github.com/custodia-labs/quill-cli/internal/retry"
)

func TestGenerate_ReturnsResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "what is RRF?", req.Prompt)
		assert.False(t, req.Stream, "streaming must be disabled")
		assert.Equal(t, 128, req.Options.NumPredict)
		_, _ = w.Write([]byte(`{"response":"a local answer","done":true}`))
	}))
	defer server.Close()

	provider := NewProvider(Config{BaseURL: server.URL})

	answer, err := provider.Generate(context.Background(), "what is RRF?", driven.GenerateOptions{MaxTokens: 128})

	require.NoError(t, err)
	assert.Equal(t, "a local answer", answer)
}

func TestGenerate_MissingModelIsFatal(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model 'llama3.2' not found"}`))
	}))
	defer server.Close()

	provider := NewProvider(Config{BaseURL: server.URL})

	_, err := provider.Generate(context.Background(), "q", driven.GenerateOptions{})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProviderConfig)
	assert.Equal(t, int32(1), calls.Load(), "missing models must not be retried")
}

func TestGenerate_RetriesWhileModelLoads(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":"model is loading"}`))
			return
		}
		_, _ = w.Write([]byte(`{"response":"warmed up","done":true}`))
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

	answer, err := provider.Generate(context.Background(), "q", driven.GenerateOptions{})

	require.NoError(t, err)
	assert.Equal(t, "warmed up", answer)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGenerate_ServerErrorIsTransient(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	provider := NewProvider(Config{
		BaseURL: server.URL,
		Retry: retry.Policy{
			MaxAttempts:    2,
			BaseDelay:      time.Millisecond,
			RateLimitFloor: time.Millisecond,
		},
	})

	_, err := provider.Generate(context.Background(), "q", driven.GenerateOptions{})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
	assert.Equal(t, int32(2), calls.Load())
}

func TestPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer server.Close()

	provider := NewProvider(Config{BaseURL: server.URL})
	assert.NoError(t, provider.Ping(context.Background()))

	server.Close()
	assert.Error(t, provider.Ping(context.Background()))
}

func TestDefaults(t *testing.T) {
	provider := NewProvider(Config{})

	assert.Equal(t, DefaultModel, provider.ModelName())
	assert.Equal(t, DefaultBaseURL, provider.baseURL)
}
