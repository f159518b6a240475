package tavily

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
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/search", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-api-key", body["api_key"])
		assert.Equal(t, "coffee roasters portland", body["query"])
		assert.Equal(t, "basic", body["search_depth"])

		json.NewEncoder(w).Encode(SearchResponse{
			Results: []SearchResult{
				{Title: "Stumptown", URL: "https://stumptowncoffee.com", Content: "Roasters", Score: 0.97},
			},
		})
	})

	resp, err := c.Search(context.Background(), SearchRequest{Query: "coffee roasters portland"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "https://stumptowncoffee.com", resp.Results[0].URL)
	assert.InDelta(t, 0.97, resp.Results[0].Score, 0.001)
}

func TestSearch_APIError(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	})

	_, err := c.Search(context.Background(), SearchRequest{Query: "x"})
	require.Error(t, err)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
}
