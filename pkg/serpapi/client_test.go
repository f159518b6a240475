package serpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-api-key", WithBaseURL(srv.URL))
}

func TestSearch(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/search.json", r.URL.Path)

		q := r.URL.Query()
		assert.Equal(t, "plumbers in austin", q.Get("q"))
		assert.Equal(t, "test-api-key", q.Get("api_key"))
		assert.Equal(t, "google", q.Get("engine"))
		assert.Equal(t, "10", q.Get("num"))

		json.NewEncoder(w).Encode(SearchResponse{
			OrganicResults: []OrganicResult{
				{Title: "Austin Plumbing Co", Link: "https://austinplumbing.com", Snippet: "Local plumbers"},
			},
			KnowledgeGraph: &KnowledgeGraph{
				Title:   "Austin Plumbing Co",
				Website: "https://austinplumbing.com",
			},
		})
	})

	resp, err := c.Search(context.Background(), SearchRequest{Query: "plumbers in austin", Num: 10})
	require.NoError(t, err)
	require.Len(t, resp.OrganicResults, 1)
	assert.Equal(t, "https://austinplumbing.com", resp.OrganicResults[0].Link)
	require.NotNil(t, resp.KnowledgeGraph)
	assert.Equal(t, "Austin Plumbing Co", resp.KnowledgeGraph.Title)
}

func TestSearch_DefaultEngine(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "google", r.URL.Query().Get("engine"))
		json.NewEncoder(w).Encode(SearchResponse{})
	})

	_, err := c.Search(context.Background(), SearchRequest{Query: "x"})
	require.NoError(t, err)
}

func TestSearch_APIError(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid key"}`))
	})

	_, err := c.Search(context.Background(), SearchRequest{Query: "x"})
	require.Error(t, err)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}
