package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"docqa-go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string, dims int) config.EmbeddingConfig {
	return config.EmbeddingConfig{
		APIKey:     "test-key",
		BaseURL:    baseURL,
		Model:      "test-embed",
		Dimensions: dims,
	}
}

func embeddingServer(t *testing.T, vector []float32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-embed", req.Model)
		require.Len(t, req.Input, 1)

		resp := map[string]interface{}{
			"data": []map[string]interface{}{{"embedding": vector}},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestCreateEmbedding(t *testing.T) {
	t.Parallel()

	t.Run("成功返回配置维度的向量", func(t *testing.T) {
		t.Parallel()
		srv := embeddingServer(t, []float32{0.1, 0.2, 0.3})
		defer srv.Close()

		client := NewClient(testConfig(srv.URL, 3))
		vector, err := client.CreateEmbedding(context.Background(), "你好")
		require.NoError(t, err)
		assert.Equal(t, []float32{0.1, 0.2, 0.3}, vector)
	})

	t.Run("缺少 API Key 返回 ErrMissingCredentials", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig("http://unused", 3)
		cfg.APIKey = ""
		client := NewClient(cfg)

		_, err := client.CreateEmbedding(context.Background(), "你好")
		assert.ErrorIs(t, err, ErrMissingCredentials)
	})

	t.Run("维度与配置不一致时报错", func(t *testing.T) {
		t.Parallel()
		srv := embeddingServer(t, []float32{0.1, 0.2})
		defer srv.Close()

		client := NewClient(testConfig(srv.URL, 3))
		_, err := client.CreateEmbedding(context.Background(), "你好")
		assert.ErrorContains(t, err, "dimension mismatch")
	})

	t.Run("非 200 状态码报错", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		client := NewClient(testConfig(srv.URL, 3))
		_, err := client.CreateEmbedding(context.Background(), "你好")
		assert.Error(t, err)
	})

	t.Run("空响应数据报错", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"data":[]}`))
		}))
		defer srv.Close()

		client := NewClient(testConfig(srv.URL, 3))
		_, err := client.CreateEmbedding(context.Background(), "你好")
		assert.Error(t, err)
	})
}
