package embedding

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

	"github.com/doeshing/promptmate/internal/domain"
)

type countingEmbedder struct {
	calls atomic.Int32
}

func (c *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	c.calls.Add(1)
	return []float32{float32(len(text)), 1}, nil
}

func (c *countingEmbedder) Dimension() int { return 2 }

func TestCachedEmbedder_HitsCacheForSameText(t *testing.T) {
	next := &countingEmbedder{}
	c, err := NewCachedEmbedder(next, CacheConfig{TTL: time.Hour, MaxEntries: 100})
	require.NoError(t, err)
	defer c.Close()

	first, err := c.Embed(context.Background(), "hello")
	require.NoError(t, err)
	second, err := c.Embed(context.Background(), "hello")
	require.NoError(t, err)
	_, err = c.Embed(context.Background(), "other")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(2), next.calls.Load())
	assert.Equal(t, 2, c.Dimension())
}

func TestOpenAIEmbedder_Embed(t *testing.T) {
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotModel, _ = body["model"].(string)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","model":"text-embedding-3-small",
"data":[{"object":"embedding","index":0,"embedding":[0.5,0.25,1]}],
"usage":{"prompt_tokens":1,"total_tokens":1}}`))
	}))
	defer srv.Close()

	e, err := NewOpenAIEmbedder(OpenAIConfig{APIKey: "k", BaseURL: srv.URL + "/", Dimension: 3})
	require.NoError(t, err)

	vec, err := e.Embed(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.25, 1}, vec)
	assert.Equal(t, domain.DefaultEmbeddingModel, gotModel)
}

func TestOpenAIEmbedder_DimensionMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","model":"m","data":[{"object":"embedding","index":0,"embedding":[1,2]}],"usage":{"prompt_tokens":1,"total_tokens":1}}`))
	}))
	defer srv.Close()

	e, err := NewOpenAIEmbedder(OpenAIConfig{APIKey: "k", BaseURL: srv.URL + "/", Dimension: 3})
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), "hi")
	assert.ErrorIs(t, err, domain.ErrInvalidResponse)
}
