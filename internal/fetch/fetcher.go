package fetch

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/prospectline/leadgen/internal/config"
	"github.com/prospectline/leadgen/internal/model"
	"github.com/prospectline/leadgen/internal/resilience"
)

// pageBreakMarker separates aggregated pages in the combined text.
const pageBreakMarker = "---PAGE BREAK---"

// Fetcher collects a capped number of pages from a seed URL, trying the
// primary provider first and falling back to the local fetcher for pages
// the primary could not retrieve.
type Fetcher struct {
	primary  PageProvider
	fallback PageProvider
	cfg      config.FetchConfig
	retry    resilience.RetryConfig
}

// NewFetcher creates a Fetcher. primary may be unavailable; fallback should
// always be available.
func NewFetcher(primary, fallback PageProvider, cfg config.FetchConfig) *Fetcher {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 3
	}
	if cfg.PageCap <= 0 {
		cfg.PageCap = 3000
	}
	if cfg.OverallCap <= 0 {
		cfg.OverallCap = 6000
	}
	return &Fetcher{
		primary:  primary,
		fallback: fallback,
		cfg:      cfg,
		retry:    resilience.DefaultRetryConfig(),
	}
}

// Fetch retrieves up to MaxPages pages for the seed URL. hints (discovery
// title, snippet) steer page-set selection. It fails only when no page at
// all could be retrieved.
func (f *Fetcher) Fetch(ctx context.Context, seedURL string, hints ...string) (*model.FetchResult, error) {
	baseURL := NormalizeBaseURL(seedURL)
	if baseURL == "" {
		return nil, eris.Errorf("fetch: unusable seed url %q", seedURL)
	}

	pageSet := BuildPageSet(baseURL, LooksLikeDining(seedURL, hints...))
	// The cap bounds attempts, not successes: a failing page still spends
	// its slot, so a seed never costs more than MaxPages provider calls
	// per pass.
	if len(pageSet) > f.cfg.MaxPages {
		pageSet = pageSet[:f.cfg.MaxPages]
	}

	pages := f.fetchPass(ctx, f.primary, pageSet, nil)
	if len(pages) == 0 && f.fallback != nil && f.fallback != f.primary {
		zap.L().Info("primary fetch yielded nothing, trying fallback",
			zap.String("base_url", baseURL),
		)
		pages = f.fetchPass(ctx, f.fallback, pageSet, nil)
	}

	if len(pages) == 0 {
		return nil, eris.Errorf("fetch: no pages retrieved for %s", baseURL)
	}

	zap.L().Info("fetch complete",
		zap.String("base_url", baseURL),
		zap.Int("pages", len(pages)),
	)
	return &model.FetchResult{BaseURL: baseURL, Pages: pages}, nil
}

// fetchPass attempts every entry of the (already capped) page set in
// priority order with one provider. Pages listed in skip are not attempted
// again.
func (f *Fetcher) fetchPass(ctx context.Context, p PageProvider, pageSet []string, skip map[string]bool) []model.PageContent {
	if p == nil || !p.Available() {
		return nil
	}

	retry := f.retry
	retry.OnRetry = resilience.RetryLogger(p.Name(), "fetch_page")

	var pages []model.PageContent
	for _, pageURL := range pageSet {
		if skip[pageURL] {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		page, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*model.PageContent, error) {
			return p.FetchPage(ctx, pageURL)
		})
		if err != nil {
			zap.L().Debug("page fetch failed",
				zap.String("provider", p.Name()),
				zap.String("url", pageURL),
				zap.Error(err),
			)
			continue
		}
		page.Text = truncate(page.Text, f.cfg.PageCap)
		pages = append(pages, *page)
	}
	return pages
}

// Aggregate joins fetched pages into a single text block for extraction,
// prefixing each page with its URL and capping the combined length.
func (f *Fetcher) Aggregate(result *model.FetchResult) string {
	sections := make([]string, 0, len(result.Pages))
	for _, page := range result.Pages {
		sections = append(sections, "Page: "+page.URL+"\n"+page.Text)
	}
	combined := strings.Join(sections, "\n\n"+pageBreakMarker+"\n\n")
	return truncate(combined, f.cfg.OverallCap)
}

func truncate(s string, n int) string {
	if n > 0 && len(s) > n {
		return s[:n]
	}
	return s
}
