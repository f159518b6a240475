package search

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/prospectline/leadgen/internal/model"
	"github.com/prospectline/leadgen/pkg/serpapi"
)

// SerpProvider queries SerpAPI (Google organic results). Primary provider.
type SerpProvider struct {
	client serpapi.Client
	engine string
}

// NewSerpProvider creates a SerpProvider. A nil client marks the provider
// unavailable.
func NewSerpProvider(client serpapi.Client, engine string) *SerpProvider {
	return &SerpProvider{client: client, engine: engine}
}

func (p *SerpProvider) Name() string    { return "serpapi" }
func (p *SerpProvider) Available() bool { return p.client != nil }

func (p *SerpProvider) Search(ctx context.Context, query string, maxResults int) ([]model.DiscoveryResult, error) {
	resp, err := p.client.Search(ctx, serpapi.SearchRequest{
		Query:  query,
		Num:    maxResults,
		Engine: p.engine,
	})
	if err != nil {
		return nil, eris.Wrap(err, "search: serpapi")
	}

	var results []model.DiscoveryResult

	// The knowledge graph card, when present, is the most direct hit for a
	// company query. Put it first.
	if kg := resp.KnowledgeGraph; kg != nil && kg.Website != "" {
		results = append(results, model.DiscoveryResult{
			Title:   kg.Title,
			URL:     kg.Website,
			Snippet: kg.Description,
			Score:   1.0,
		})
	}

	for _, r := range resp.OrganicResults {
		if len(results) >= maxResults {
			break
		}
		results = append(results, model.DiscoveryResult{
			Title:   r.Title,
			URL:     r.Link,
			Snippet: r.Snippet,
			Score:   1.0, // SerpAPI provides no score
		})
	}

	return results, nil
}
