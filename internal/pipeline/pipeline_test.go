package pipeline

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prospectline/leadgen/internal/model"
	"github.com/prospectline/leadgen/internal/store"
	"github.com/prospectline/leadgen/internal/validate"
)

type fakeSearcher struct {
	results []model.DiscoveryResult
}

func (f *fakeSearcher) Search(_ context.Context, _ string, _ int) []model.DiscoveryResult {
	return f.results
}

type fakeFetcher struct {
	pages map[string]string // base URL -> text; missing means fetch error
	panic bool
}

func (f *fakeFetcher) Fetch(_ context.Context, seedURL string, _ ...string) (*model.FetchResult, error) {
	if f.panic {
		panic("fetcher blew up")
	}
	text, ok := f.pages[seedURL]
	if !ok {
		return nil, eris.Errorf("fetch: nothing retrieved for %s", seedURL)
	}
	return &model.FetchResult{
		BaseURL: seedURL,
		Pages:   []model.PageContent{{URL: seedURL, Text: text}},
	}, nil
}

func (f *fakeFetcher) Aggregate(result *model.FetchResult) string {
	return result.Pages[0].Text
}

type fakeExtractor struct {
	profiles map[string]*model.CompanyProfile // base URL -> profile
}

func (f *fakeExtractor) Extract(_ context.Context, baseURL, _ string, _ bool) *model.CompanyProfile {
	if p, ok := f.profiles[baseURL]; ok {
		cp := *p
		return &cp
	}
	return &model.CompanyProfile{CompanyName: "Unknown", WebsiteURL: baseURL}
}

type fakeValidator struct {
	accept bool
	strict bool
}

func (f *fakeValidator) Validate(_ context.Context, _ *model.CompanyProfile, _ string) validate.Result {
	if f.accept {
		return validate.Result{Accepted: true, Reason: "ok"}
	}
	return validate.Result{Accepted: false, Reason: "judged not a relevant single business"}
}

func (f *fakeValidator) Strict() bool { return f.strict }

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })
	return st
}

func acmeProfile() *model.CompanyProfile {
	return &model.CompanyProfile{
		CompanyName:       "Acme Plumbing",
		Description:       "Plumbing in Austin.",
		WebsiteURL:        "https://acme.com",
		Email:             "info@acme.com",
		ContactConfidence: model.ContactObserved,
	}
}

func TestRun_PersistsLeads(t *testing.T) {
	st := newTestStore(t)
	p := New(
		&fakeSearcher{results: []model.DiscoveryResult{
			{Title: "Acme Plumbing", URL: "https://acme.com", Snippet: "pipes"},
		}},
		&fakeFetcher{pages: map[string]string{"https://acme.com": "We fix pipes. info@acme.com"}},
		&fakeExtractor{profiles: map[string]*model.CompanyProfile{"https://acme.com": acmeProfile()}},
		&fakeValidator{accept: true},
		st,
	)

	report, err := p.Run(context.Background(), "plumbers in austin", 5)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Attempted)
	assert.Equal(t, 1, report.Persisted)
	require.Len(t, report.Items, 1)
	assert.Equal(t, model.OutcomePersisted, report.Items[0].Outcome)
	require.Len(t, report.Leads, 1)
	assert.Equal(t, "info@acme.com", report.Leads[0].Email)
	assert.Len(t, report.CampaignID, 8)

	// Campaign exists and owns the lead.
	campaign, err := st.GetCampaign(context.Background(), report.CampaignID)
	require.NoError(t, err)
	assert.Equal(t, 1, campaign.LeadCount)
	assert.Equal(t, "plumbers in austin", campaign.SearchQuery)

	lead, err := st.GetLeadByEmail(context.Background(), "info@acme.com")
	require.NoError(t, err)
	assert.Equal(t, report.CampaignID, lead.CampaignID)
	assert.Equal(t, model.LeadStatusFound, lead.Status)
	assert.Equal(t, []string{"https://acme.com"}, lead.Profile.ScrapedPages)
}

func TestRun_SkipOutcomes(t *testing.T) {
	st := newTestStore(t)
	p := New(
		&fakeSearcher{results: []model.DiscoveryResult{
			{Title: "no url"},
			{Title: "dead site", URL: "https://dead.com"},
			{Title: "no email", URL: "https://quiet.com"},
		}},
		&fakeFetcher{pages: map[string]string{"https://quiet.com": "nothing useful"}},
		&fakeExtractor{profiles: map[string]*model.CompanyProfile{
			"https://quiet.com": {CompanyName: "Quiet Co", WebsiteURL: "https://quiet.com"},
		}},
		&fakeValidator{accept: true},
		st,
	)

	report, err := p.Run(context.Background(), "query", 5)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Attempted)
	assert.Zero(t, report.Persisted)
	require.Len(t, report.Items, 3)
	assert.Equal(t, model.OutcomeSkippedNoURL, report.Items[0].Outcome)
	assert.Equal(t, model.OutcomeSkippedNoContent, report.Items[1].Outcome)
	assert.Equal(t, model.OutcomeSkippedNoEmail, report.Items[2].Outcome)
}

func TestRun_DuplicateEmail(t *testing.T) {
	st := newTestStore(t)
	p := New(
		&fakeSearcher{results: []model.DiscoveryResult{
			{Title: "Acme", URL: "https://acme.com"},
			{Title: "Acme again", URL: "https://acme.com"},
		}},
		&fakeFetcher{pages: map[string]string{"https://acme.com": "text"}},
		&fakeExtractor{profiles: map[string]*model.CompanyProfile{"https://acme.com": acmeProfile()}},
		&fakeValidator{accept: true},
		st,
	)

	report, err := p.Run(context.Background(), "query", 5)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Persisted)
	assert.Equal(t, model.OutcomePersisted, report.Items[0].Outcome)
	assert.Equal(t, model.OutcomeSkippedDuplicate, report.Items[1].Outcome)
}

func TestRun_StrictValidationRejects(t *testing.T) {
	st := newTestStore(t)
	p := New(
		&fakeSearcher{results: []model.DiscoveryResult{{Title: "Acme", URL: "https://acme.com"}}},
		&fakeFetcher{pages: map[string]string{"https://acme.com": "text"}},
		&fakeExtractor{profiles: map[string]*model.CompanyProfile{"https://acme.com": acmeProfile()}},
		&fakeValidator{accept: false, strict: true},
		st,
	)

	report, err := p.Run(context.Background(), "query", 5)
	require.NoError(t, err)
	assert.Zero(t, report.Persisted)
	assert.Equal(t, model.OutcomeSkippedRejected, report.Items[0].Outcome)

	_, err = st.GetLeadByEmail(context.Background(), "info@acme.com")
	assert.Error(t, err)
}

func TestRun_LenientValidationPersists(t *testing.T) {
	st := newTestStore(t)
	p := New(
		&fakeSearcher{results: []model.DiscoveryResult{{Title: "Acme", URL: "https://acme.com"}}},
		&fakeFetcher{pages: map[string]string{"https://acme.com": "text"}},
		&fakeExtractor{profiles: map[string]*model.CompanyProfile{"https://acme.com": acmeProfile()}},
		&fakeValidator{accept: false, strict: false},
		st,
	)

	report, err := p.Run(context.Background(), "query", 5)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Persisted)
}

func TestRun_PanicContained(t *testing.T) {
	st := newTestStore(t)
	p := New(
		&fakeSearcher{results: []model.DiscoveryResult{{Title: "Acme", URL: "https://acme.com"}}},
		&fakeFetcher{panic: true},
		&fakeExtractor{},
		&fakeValidator{accept: true},
		st,
	)

	report, err := p.Run(context.Background(), "query", 5)
	require.NoError(t, err)
	require.Len(t, report.Items, 1)
	assert.Equal(t, model.OutcomeSkippedError, report.Items[0].Outcome)
	assert.Contains(t, report.Items[0].Reason, "internal error")
}

func TestRun_EmptySearch(t *testing.T) {
	st := newTestStore(t)
	p := New(&fakeSearcher{}, &fakeFetcher{}, &fakeExtractor{}, &fakeValidator{accept: true}, st)

	report, err := p.Run(context.Background(), "query", 5)
	require.NoError(t, err)
	assert.Zero(t, report.Attempted)
	assert.Empty(t, report.Items)

	// The campaign is still created so the run is traceable.
	campaign, err := st.GetCampaign(context.Background(), report.CampaignID)
	require.NoError(t, err)
	assert.Zero(t, campaign.LeadCount)
}
