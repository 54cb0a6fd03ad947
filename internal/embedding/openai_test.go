package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIProvider_Embed(t *testing.T) {
	var gotModel string
	var gotInput []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		var body struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotModel, gotInput = body.Model, body.Input
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","model":"text-embedding-3-small","data":[
			{"object":"embedding","index":0,"embedding":[0.1,0.2,0.3]},
			{"object":"embedding","index":1,"embedding":[0.4,0.5,0.6]}],
			"usage":{"prompt_tokens":4,"total_tokens":4}}`))
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider(OpenAIConfig{
		APIKey:     "test-key",
		Model:      "text-embedding-3-small",
		BaseURL:    srv.URL,
		Dimensions: 3,
	})
	require.NoError(t, err)
	vectors, err := p.Embed(context.Background(), []string{"Recipe: Tomato Soup", "Ingredients: - tomato"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.InDelta(t, 0.4, vectors[1][0], 1e-6)
	assert.Equal(t, "text-embedding-3-small", gotModel)
	assert.Len(t, gotInput, 2)
}

func TestOpenAIProvider_RequiresModel(t *testing.T) {
	_, err := NewOpenAIProvider(OpenAIConfig{APIKey: "k", Dimensions: 3})
	assert.Error(t, err)
}
