package search

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/prospectline/leadgen/internal/model"
	"github.com/prospectline/leadgen/pkg/tavily"
)

// TavilyProvider queries the Tavily search API. Secondary provider.
type TavilyProvider struct {
	client tavily.Client
}

// NewTavilyProvider creates a TavilyProvider. A nil client marks the
// provider unavailable.
func NewTavilyProvider(client tavily.Client) *TavilyProvider {
	return &TavilyProvider{client: client}
}

func (p *TavilyProvider) Name() string    { return "tavily" }
func (p *TavilyProvider) Available() bool { return p.client != nil }

func (p *TavilyProvider) Search(ctx context.Context, query string, maxResults int) ([]model.DiscoveryResult, error) {
	resp, err := p.client.Search(ctx, tavily.SearchRequest{
		Query:      query,
		MaxResults: maxResults,
	})
	if err != nil {
		return nil, eris.Wrap(err, "search: tavily")
	}

	results := make([]model.DiscoveryResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, model.DiscoveryResult{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Content,
			Score:   r.Score,
		})
	}
	return results, nil
}
