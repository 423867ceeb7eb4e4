package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func embeddingHandler(t *testing.T, failures int32, calls *int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(calls, 1)
		require.Equal(t, "/embeddings", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		if n <= failures {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
			return
		}
		var req struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		data := make([]map[string]any, len(req.Input))
		// reversed so ordering by index is exercised
		for i := range req.Input {
			j := len(req.Input) - 1 - i
			data[i] = map[string]any{"object": "embedding", "index": j, "embedding": []float32{float32(j), 1}}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data, "model": "m"})
	}
}

func TestEmbedOrdersByIndex(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(embeddingHandler(t, 0, &calls))
	defer srv.Close()

	c := newClient(Config{BaseURL: srv.URL, Model: "m"}, "test-key")
	vecs, err := c.Embed(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Equal(t, [][]float64{{0, 1}, {1, 1}, {2, 1}}, vecs)
}

func TestEmbedRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(embeddingHandler(t, 2, &calls))
	defer srv.Close()

	c := newClient(Config{BaseURL: srv.URL, Model: "m"}, "test-key")
	var slept []time.Duration
	c.sleep = func(d time.Duration) { slept = append(slept, d) }

	vecs, err := c.Embed(context.Background(), []string{"a"})
	require.NoError(t, err)
	require.Len(t, vecs, 1)
	require.Equal(t, int32(3), atomic.LoadInt32(&calls))
	require.Equal(t, []time.Duration{200 * time.Millisecond, 400 * time.Millisecond}, slept)
}

func TestEmbedGivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(embeddingHandler(t, 100, &calls))
	defer srv.Close()

	c := newClient(Config{BaseURL: srv.URL, Model: "m"}, "test-key")
	c.maxRetries = 2
	c.sleep = func(time.Duration) {}

	_, err := c.Embed(context.Background(), []string{"a"})
	require.Error(t, err)
	require.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestNewClientRequiresKey(t *testing.T) {
	t.Setenv("SALESCOACH_TEST_EMPTY_KEY", "")
	_, err := NewClient(Config{APIKeyEnv: "SALESCOACH_TEST_EMPTY_KEY"})
	require.Error(t, err)
}
