package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/poiesic/clausemark/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbeddingServer answers /v1/embeddings with dim-length vectors.
func fakeEmbeddingServer(t *testing.T, dim int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		type item struct {
			Object    string    `json:"object"`
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		resp := struct {
			Object string `json:"object"`
			Data   []item `json:"data"`
			Model  string `json:"model"`
		}{Object: "list", Model: "test"}
		for i := range req.Input {
			vec := make([]float32, dim)
			vec[i%dim] = 1
			resp.Data = append(resp.Data, item{Object: "embedding", Embedding: vec, Index: i})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestProbeEncoder_LearnsDimension(t *testing.T) {
	srv := fakeEmbeddingServer(t, 6)
	defer srv.Close()

	cfg := ai.NewConfig(ai.WithEmbeddingHost(srv.URL), ai.WithEmbeddingModel("test"))
	enc, err := ProbeEncoder(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 6, enc.Dimension())
	assert.Equal(t, "test", enc.Model())

	vecs, err := enc.EncodeTexts(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Len(t, vecs[1], 6)
}

func TestProbeEncoder_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg := ai.NewConfig(ai.WithEmbeddingHost(srv.URL))
	_, err := ProbeEncoder(ctx, cfg)
	assert.Error(t, err)
}

func TestProbeEncoder_InvalidConfig(t *testing.T) {
	cfg := ai.NewConfig(ai.WithEmbeddingModel(""))
	_, err := ProbeEncoder(context.Background(), cfg)
	assert.Error(t, err)
}
