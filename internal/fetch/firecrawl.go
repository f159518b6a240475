package fetch

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/rotisserie/eris"

	"github.com/prospectline/leadgen/internal/model"
	"github.com/prospectline/leadgen/internal/resilience"
	"github.com/prospectline/leadgen/pkg/firecrawl"
)

// FirecrawlProvider fetches rendered page content via the Firecrawl API.
// Primary provider: handles JS-heavy sites the direct fetch cannot.
type FirecrawlProvider struct {
	client firecrawl.Client
}

// NewFirecrawlProvider creates a FirecrawlProvider. A nil client marks the
// provider unavailable.
func NewFirecrawlProvider(client firecrawl.Client) *FirecrawlProvider {
	return &FirecrawlProvider{client: client}
}

func (p *FirecrawlProvider) Name() string    { return "firecrawl" }
func (p *FirecrawlProvider) Available() bool { return p.client != nil }

// FetchPage scrapes one URL. Errors are classified so the retry layer can
// distinguish rate limiting and transient failures from fatal ones.
func (p *FirecrawlProvider) FetchPage(ctx context.Context, url string) (*model.PageContent, error) {
	resp, err := p.client.Scrape(ctx, firecrawl.ScrapeRequest{
		URL:     url,
		Formats: []string{"markdown"},
	})
	if err != nil {
		return nil, classifyScrapeError(err)
	}
	if resp.Data.Markdown == "" {
		return nil, eris.Errorf("firecrawl: empty content for %s", url)
	}
	return &model.PageContent{URL: url, Text: resp.Data.Markdown}, nil
}

// classifyScrapeError maps Firecrawl failures onto the retry taxonomy:
// 429 → rate limited, timeouts and 5xx → transient, anything else fatal.
func classifyScrapeError(err error) error {
	var apiErr *firecrawl.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests {
			return resilience.NewRateLimitError(apiErr)
		}
		if resilience.IsTransientHTTPStatus(apiErr.StatusCode) {
			return resilience.NewTransientError(apiErr, apiErr.StatusCode)
		}
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return resilience.NewTransientError(err, 0)
	}
	return err
}
