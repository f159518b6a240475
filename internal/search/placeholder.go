package search

import (
	"context"
	"fmt"

	"github.com/prospectline/leadgen/internal/model"
)

// placeholderCount caps the synthetic result set.
const placeholderCount = 5

// PlaceholderProvider returns a deterministic synthetic result set. It is
// the last link of the chain so discovery always produces some output even
// with no backend configured.
type PlaceholderProvider struct{}

func (PlaceholderProvider) Name() string    { return "placeholder" }
func (PlaceholderProvider) Available() bool { return true }

func (PlaceholderProvider) Search(_ context.Context, query string, maxResults int) ([]model.DiscoveryResult, error) {
	n := maxResults
	if n > placeholderCount {
		n = placeholderCount
	}
	results := make([]model.DiscoveryResult, 0, n)
	for i := 0; i < n; i++ {
		results = append(results, model.DiscoveryResult{
			Title:   fmt.Sprintf("Company %d matching: %s", i+1, query),
			URL:     fmt.Sprintf("https://example-company-%d.com", i+1),
			Snippet: fmt.Sprintf("This is a company that matches the search criteria: %s", query),
			Score:   0.8 - float64(i)*0.1,
		})
	}
	return results, nil
}
