package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func embeddingServer(t *testing.T, handler func(req EmbeddingRequest) (int, any)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		var req EmbeddingRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		status, body := handler(req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// reversed answers with data in reverse order to exercise index handling.
func reversed(req EmbeddingRequest) (int, any) {
	data := make([]map[string]any, 0, len(req.Input))
	for i := len(req.Input) - 1; i >= 0; i-- {
		data = append(data, map[string]any{
			"object":    "embedding",
			"index":     i,
			"embedding": []float32{float32(len(req.Input[i])), 1},
		})
	}
	return http.StatusOK, map[string]any{"object": "list", "data": data, "model": req.Model}
}

func TestEmbed_BatchesAndKeepsOrder(t *testing.T) {
	var calls atomic.Int32
	srv := embeddingServer(t, func(req EmbeddingRequest) (int, any) {
		calls.Add(1)
		assert.LessOrEqual(t, len(req.Input), 2)
		assert.Equal(t, "test-model", req.Model)
		return reversed(req)
	})

	svc := NewEmbeddingService(EmbeddingConfig{BaseURL: srv.URL, Model: "test-model", Dimensions: 2, BatchSize: 2})
	vectors, err := svc.Embed(context.Background(), []string{"a", "bb", "ccc", "dddd", "eeeee"})
	require.NoError(t, err)

	require.Len(t, vectors, 5)
	for i, v := range vectors {
		assert.Equal(t, float32(i+1), v[0])
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestEmbed_EmptyInput(t *testing.T) {
	svc := NewEmbeddingService(EmbeddingConfig{BaseURL: "http://127.0.0.1:1"})
	vectors, err := svc.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
}

func TestEmbed_StatusError(t *testing.T) {
	srv := embeddingServer(t, func(req EmbeddingRequest) (int, any) {
		return http.StatusTooManyRequests, map[string]any{"error": map[string]string{"message": "quota exceeded"}}
	})

	_, err := NewEmbeddingService(EmbeddingConfig{BaseURL: srv.URL}).Embed(context.Background(), []string{"x"})

	var providerErr *EmbeddingProviderError
	require.True(t, errors.As(err, &providerErr))
	assert.Equal(t, http.StatusTooManyRequests, providerErr.StatusCode)
	assert.Contains(t, providerErr.Error(), "quota exceeded")
}

func TestEmbed_CountMismatchIsAnError(t *testing.T) {
	srv := embeddingServer(t, func(req EmbeddingRequest) (int, any) {
		return http.StatusOK, map[string]any{"data": []map[string]any{{"index": 0, "embedding": []float32{1}}}}
	})

	_, err := NewEmbeddingService(EmbeddingConfig{BaseURL: srv.URL}).Embed(context.Background(), []string{"x", "y"})

	var providerErr *EmbeddingProviderError
	assert.True(t, errors.As(err, &providerErr))
}

func TestEmbed_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	svc := NewEmbeddingService(EmbeddingConfig{BaseURL: srv.URL, Timeout: 20 * time.Millisecond})
	_, err := svc.Embed(context.Background(), []string{"x"})

	var providerErr *EmbeddingProviderError
	require.True(t, errors.As(err, &providerErr))
	assert.True(t, providerErr.Timeout)
}

func TestEmbed_SendsAuthorization(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var req EmbeddingRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		_, body := reversed(req)
		_ = json.NewEncoder(w).Encode(body)
	}))
	defer srv.Close()

	_, err := NewEmbeddingService(EmbeddingConfig{APIKey: "sk-test", BaseURL: srv.URL}).Embed(context.Background(), []string{"x"})
	assert.NoError(t, err)
}
