// Package pipeline runs the lead acquisition flow: search, fetch, extract,
// validate, persist. Items are processed serially and one bad item never
// aborts the batch.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prospectline/leadgen/internal/extract"
	"github.com/prospectline/leadgen/internal/fetch"
	"github.com/prospectline/leadgen/internal/model"
	"github.com/prospectline/leadgen/internal/search"
	"github.com/prospectline/leadgen/internal/store"
	"github.com/prospectline/leadgen/internal/validate"
)

// Searcher is the discovery surface the pipeline needs.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) []model.DiscoveryResult
}

// Fetcher is the content-acquisition surface the pipeline needs.
type Fetcher interface {
	Fetch(ctx context.Context, seedURL string, hints ...string) (*model.FetchResult, error)
	Aggregate(result *model.FetchResult) string
}

// Extractor is the profile-building surface the pipeline needs.
type Extractor interface {
	Extract(ctx context.Context, baseURL, text string, dining bool) *model.CompanyProfile
}

// Validator is the relevance-screening surface the pipeline needs.
type Validator interface {
	Validate(ctx context.Context, profile *model.CompanyProfile, query string) validate.Result
	Strict() bool
}

// Pipeline wires the acquisition stages over a store.
type Pipeline struct {
	searcher  Searcher
	fetcher   Fetcher
	extractor Extractor
	validator Validator
	store     store.Store
}

// New creates a Pipeline.
func New(searcher Searcher, fetcher Fetcher, extractor Extractor, validator Validator, st store.Store) *Pipeline {
	return &Pipeline{
		searcher:  searcher,
		fetcher:   fetcher,
		extractor: extractor,
		validator: validator,
		store:     st,
	}
}

// Run executes one acquisition batch: discover up to maxResults companies
// for query, process each serially, and persist the survivors under a fresh
// campaign. The report records one item per discovery result.
func (p *Pipeline) Run(ctx context.Context, query string, maxResults int) (*model.BatchReport, error) {
	campaign, err := p.createCampaign(ctx, query)
	if err != nil {
		return nil, err
	}

	results := p.searcher.Search(ctx, query, maxResults)

	report := &model.BatchReport{
		CampaignID:   campaign.ID,
		CampaignName: campaign.Name,
		Attempted:    len(results),
	}

	for _, r := range results {
		item, preview := p.processItem(ctx, r, query, campaign.ID)
		report.Items = append(report.Items, item)
		if item.Outcome == model.OutcomePersisted {
			report.Persisted++
			report.Leads = append(report.Leads, *preview)
		}
	}

	zap.L().Info("batch complete",
		zap.String("campaign_id", campaign.ID),
		zap.Int("attempted", report.Attempted),
		zap.Int("persisted", report.Persisted),
	)
	return report, nil
}

func (p *Pipeline) createCampaign(ctx context.Context, query string) (*model.Campaign, error) {
	campaign := &model.Campaign{
		ID:          uuid.New().String()[:8],
		Name:        fmt.Sprintf("%s - %s", query, time.Now().UTC().Format("2006-01-02")),
		SearchQuery: query,
		CreatedAt:   time.Now().UTC(),
	}
	return p.store.CreateCampaign(ctx, campaign)
}

// processItem runs one discovery result through fetch, extract, validate,
// persist. A panic anywhere inside is contained to this item.
func (p *Pipeline) processItem(ctx context.Context, r model.DiscoveryResult, query, campaignID string) (item model.BatchItem, preview *model.LeadPreview) {
	item = model.BatchItem{Title: r.Title, URL: r.URL}

	defer func() {
		if rec := recover(); rec != nil {
			zap.L().Error("item processing panicked",
				zap.String("url", r.URL),
				zap.Any("panic", rec),
			)
			item.Outcome = model.OutcomeSkippedError
			item.Reason = fmt.Sprintf("internal error: %v", rec)
			preview = nil
		}
	}()

	if r.URL == "" {
		item.Outcome = model.OutcomeSkippedNoURL
		return item, nil
	}

	fetched, err := p.fetcher.Fetch(ctx, r.URL, r.Title, r.Snippet)
	if err != nil {
		zap.L().Debug("fetch produced no content",
			zap.String("url", r.URL),
			zap.Error(err),
		)
		item.Outcome = model.OutcomeSkippedNoContent
		item.Reason = "no page content retrieved"
		return item, nil
	}

	text := p.fetcher.Aggregate(fetched)
	dining := fetch.LooksLikeDining(r.URL, r.Title, r.Snippet)
	profile := p.extractor.Extract(ctx, fetched.BaseURL, text, dining)
	profile.ScrapedPages = pageURLs(fetched)

	if profile.Email == "" {
		item.Outcome = model.OutcomeSkippedNoEmail
		item.Reason = "no contact address found or guessable"
		return item, nil
	}

	verdict := p.validator.Validate(ctx, profile, query)
	if !verdict.Accepted {
		if p.validator.Strict() {
			item.Outcome = model.OutcomeSkippedRejected
			item.Reason = verdict.Reason
			return item, nil
		}
		zap.L().Warn("lead failed validation, persisting anyway",
			zap.String("company", profile.CompanyName),
			zap.String("reason", verdict.Reason),
		)
	}

	lead := &model.Lead{
		Email:       profile.Email,
		Name:        profile.CompanyName,
		CompanyName: profile.CompanyName,
		Profile:     *profile,
		CampaignID:  campaignID,
		Status:      model.LeadStatusFound,
	}

	created, err := p.store.CreateLead(ctx, lead)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			item.Outcome = model.OutcomeSkippedDuplicate
			item.Reason = "email already known"
			return item, nil
		}
		zap.L().Error("lead persistence failed",
			zap.String("email", lead.Email),
			zap.Error(err),
		)
		item.Outcome = model.OutcomeSkippedError
		item.Reason = err.Error()
		return item, nil
	}

	item.Outcome = model.OutcomePersisted
	preview = &model.LeadPreview{
		ID:          created.ID,
		Email:       created.Email,
		Name:        created.Name,
		CompanyName: created.CompanyName,
		Description: created.Profile.Description,
		PainPoints:  strings.Join(created.Profile.PainPoints, "; "),
		WebsiteURL:  created.Profile.WebsiteURL,
	}
	return item, preview
}

func pageURLs(result *model.FetchResult) []string {
	urls := make([]string, 0, len(result.Pages))
	for _, page := range result.Pages {
		urls = append(urls, page.URL)
	}
	return urls
}

// compile-time checks that the concrete stages satisfy the pipeline
// surfaces.
var (
	_ Searcher  = (*search.Adapter)(nil)
	_ Fetcher   = (*fetch.Fetcher)(nil)
	_ Extractor = (*extract.Extractor)(nil)
	_ Validator = (*validate.Validator)(nil)
)
