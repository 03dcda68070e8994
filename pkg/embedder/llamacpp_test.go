package embedder_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/soundprediction/skls/pkg/embedder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLlamaServer answers /embedding with a vector derived from the text
// length, nested the way current llama.cpp servers do.
func fakeLlamaServer(t *testing.T, failBatchContaining string) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32

	mux := http.NewServeMux()
	mux.HandleFunc("/embedding", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req struct {
			Content json.RawMessage `json:"content"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		var texts []string
		if err := json.Unmarshal(req.Content, &texts); err != nil {
			var single string
			require.NoError(t, json.Unmarshal(req.Content, &single))
			texts = []string{single}
		}

		resp := make([]map[string]any, 0, len(texts))
		for i, text := range texts {
			if text == failBatchContaining {
				http.Error(w, "boom", http.StatusInternalServerError)
				return
			}
			resp = append(resp, map[string]any{
				"index":     i,
				"embedding": [][]float32{{float32(len(text)), 1}},
			})
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/models", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"id":"C:\\models\\nomic-embed.gguf"}]}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestEmbedText(t *testing.T) {
	srv, _ := fakeLlamaServer(t, "")
	client := embedder.NewLlamaCppClient(embedder.Config{BaseURL: srv.URL})

	vec, err := client.EmbedText(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{5, 1}, vec)
}

func TestEmbedTextFlatResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embedding":[0.5,0.25]}`))
	}))
	defer srv.Close()

	client := embedder.NewLlamaCppClient(embedder.Config{BaseURL: srv.URL})
	vec, err := client.EmbedText(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.25}, vec)
}

func TestEmbedTextErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "server error", status: http.StatusInternalServerError, body: "boom"},
		{name: "empty list", status: http.StatusOK, body: `[]`, wantErr: embedder.ErrMalformedResponse},
		{name: "empty embedding", status: http.StatusOK, body: `[{"embedding":[]}]`, wantErr: embedder.ErrMalformedResponse},
		{name: "garbage", status: http.StatusOK, body: `not json`, wantErr: embedder.ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := embedder.NewLlamaCppClient(embedder.Config{BaseURL: srv.URL})
			vec, err := client.EmbedText(context.Background(), "x")
			require.Error(t, err)
			assert.Empty(t, vec)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestEmbedTextsBatches(t *testing.T) {
	srv, calls := fakeLlamaServer(t, "")
	client := embedder.NewLlamaCppClient(embedder.Config{BaseURL: srv.URL})

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vecs, err := client.EmbedTexts(context.Background(), texts, 2)
	require.NoError(t, err)
	require.Len(t, vecs, len(texts))
	for i, v := range vecs {
		assert.Equal(t, float32(len(texts[i])), v[0])
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
}

func TestEmbedTextsPadsFailedBatch(t *testing.T) {
	srv, _ := fakeLlamaServer(t, "bad")
	client := embedder.NewLlamaCppClient(embedder.Config{BaseURL: srv.URL})

	vecs, err := client.EmbedTexts(context.Background(), []string{"ok", "bad", "fine", "good"}, 2)
	require.Error(t, err)
	require.Len(t, vecs, 4)
	assert.Nil(t, vecs[0])
	assert.Nil(t, vecs[1])
	assert.Equal(t, []float32{4, 1}, vecs[2])
	assert.Equal(t, []float32{4, 1}, vecs[3])
}

func TestModel(t *testing.T) {
	srv, _ := fakeLlamaServer(t, "")
	client := embedder.NewLlamaCppClient(embedder.Config{BaseURL: srv.URL})

	model, err := client.Model(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "nomic-embed.gguf", model)
}

func TestModelEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	client := embedder.NewLlamaCppClient(embedder.Config{BaseURL: srv.URL})
	_, err := client.Model(context.Background())
	assert.ErrorIs(t, err, embedder.ErrNoModels)
}

func TestClientInterface(t *testing.T) {
	var _ embedder.Client = (*embedder.LlamaCppClient)(nil)
	var _ embedder.Client = (*embedder.CachedClient)(nil)
}
