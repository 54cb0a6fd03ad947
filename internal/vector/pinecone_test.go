package vector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPineconeStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Should send records with the api key header", func(t *testing.T) {
		var got struct {
			Vectors   []pineconeVector `json:"vectors"`
			Namespace string           `json:"namespace"`
		}
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/vectors/upsert", r.URL.Path)
			assert.Equal(t, "secret", r.Header.Get("Api-Key"))
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			_, _ = w.Write([]byte(`{"upsertedCount":3}`))
		}))
		defer srv.Close()
		store, err := NewPineconeStore(srv.URL, "secret", "recipes", 3, time.Second)
		require.NoError(t, err)
		require.NoError(t, store.Upsert(ctx, testRecords()))
		require.Len(t, got.Vectors, 3)
		assert.Equal(t, "recipes", got.Namespace)
		assert.Equal(t, "r1_instruction_0", got.Vectors[2].ID)
	})

	t.Run("Should translate the filter and decode matches", func(t *testing.T) {
		var got pineconeQueryRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/query", r.URL.Path)
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			_, _ = w.Write([]byte(`{"matches":[
				{"id":"b_title","score":0.5,"metadata":{"type":"title"}},
				{"id":"a_title","score":0.9,"metadata":{"type":"title","recipe_id":"a"}}]}`))
		}))
		defer srv.Close()
		store, err := NewPineconeStore(srv.URL, "secret", "", 3, time.Second)
		require.NoError(t, err)
		matches, err := store.Query(ctx, []float32{1, 0, 0}, QueryOptions{TopK: 5, Filter: map[string]string{"type": "title"}})
		require.NoError(t, err)
		assert.Equal(t, 5, got.TopK)
		assert.True(t, got.IncludeMetadata)
		assert.Equal(t, map[string]interface{}{"$eq": "title"}, got.Filter["type"])
		require.Len(t, matches, 2)
		assert.Equal(t, "a_title", matches[0].ID)
		assert.Equal(t, "a", matches[0].Metadata["recipe_id"])
	})

	t.Run("Should report API errors", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"message":"rate limited"}`))
		}))
		defer srv.Close()
		store, _ := NewPineconeStore(srv.URL, "secret", "", 3, time.Second)
		err := store.Upsert(ctx, testRecords())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rate limited")
	})

	t.Run("Should count vectors in the namespace", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"dimension":3,"totalVectorCount":10,"namespaces":{"recipes":{"vectorCount":7}}}`))
		}))
		defer srv.Close()
		store, _ := NewPineconeStore(srv.URL, "secret", "recipes", 3, time.Second)
		n, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 7, n)
	})

	t.Run("Should fail on an undecodable response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte(`upstream proxy says hello`))
		}))
		defer srv.Close()
		store, _ := NewPineconeStore(srv.URL, "secret", "recipes", 3, time.Second)
		_, err := store.Query(ctx, []float32{1, 0, 0}, QueryOptions{TopK: 3})
		assert.Error(t, err)
		_, err = store.Count(ctx)
		assert.Error(t, err)
	})

	t.Run("Should require host and key", func(t *testing.T) {
		_, err := NewPineconeStore("", "k", "", 3, 0)
		assert.Error(t, err)
		_, err = NewPineconeStore("idx.pinecone.io", "", "", 3, 0)
		assert.Error(t, err)
	})
}
