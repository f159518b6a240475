package search

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/prospectline/leadgen/internal/model"
)

// overFetchFactor requests extra raw hits to leave room for exclusion
// filtering before truncating to maxResults.
const overFetchFactor = 2

// landingPageDepth is the deepest path still treated as a section landing
// page ("/blog" is a landing page, "/blog/ten-best-widgets" is an article).
const landingPageDepth = 1

// Adapter walks an ordered provider chain, rewrites the query toward
// single-business primary sites, filters noise, and scores relevance.
// Search never returns an error: when every configured provider fails, the
// placeholder provider guarantees a deterministic result set.
type Adapter struct {
	providers []Provider
	rules     Rules
	limiter   *rate.Limiter
}

// NewAdapter creates an Adapter over providers, tried in order. The
// placeholder provider is appended automatically.
func NewAdapter(rules Rules, rateLimit float64, providers ...Provider) *Adapter {
	if rateLimit <= 0 {
		rateLimit = 2
	}
	return &Adapter{
		providers: append(providers, PlaceholderProvider{}),
		rules:     rules,
		limiter:   rate.NewLimiter(rate.Limit(rateLimit), 1),
	}
}

// Search returns at most maxResults filtered, scored discovery results in
// provider order.
func (a *Adapter) Search(ctx context.Context, query string, maxResults int) []model.DiscoveryResult {
	if maxResults <= 0 {
		maxResults = 10
	}
	rewritten := a.rewriteQuery(query)

	for _, p := range a.providers {
		if !p.Available() {
			continue
		}
		if err := a.limiter.Wait(ctx); err != nil {
			break
		}

		// The placeholder gets the raw query; exclusion syntax would only
		// pollute the synthetic titles.
		q := rewritten
		if _, ok := p.(PlaceholderProvider); ok {
			q = query
		}

		raw, err := p.Search(ctx, q, maxResults*overFetchFactor)
		if err != nil {
			zap.L().Warn("search provider failed, trying next",
				zap.String("provider", p.Name()),
				zap.Error(err),
			)
			continue
		}
		if len(raw) == 0 {
			zap.L().Debug("search provider returned no results",
				zap.String("provider", p.Name()),
			)
			continue
		}

		filtered := a.filterAndScore(raw, query)
		if len(filtered) == 0 {
			continue
		}
		if len(filtered) > maxResults {
			filtered = filtered[:maxResults]
		}
		zap.L().Info("search complete",
			zap.String("provider", p.Name()),
			zap.Int("raw", len(raw)),
			zap.Int("returned", len(filtered)),
		)
		return filtered
	}

	// Unreachable in practice: the placeholder never errors and its results
	// survive filtering. Kept for safety.
	return nil
}

// rewriteQuery biases the query toward single-business primary websites by
// excluding known noise domains and appending official/contact terms.
func (a *Adapter) rewriteQuery(query string) string {
	var b strings.Builder
	b.WriteString(query)
	for _, term := range a.rules.BiasTerms {
		b.WriteString(" ")
		b.WriteString(term)
	}
	for _, domain := range a.rules.ExcludedDomains {
		b.WriteString(" -site:")
		b.WriteString(domain)
	}
	return b.String()
}

// filterAndScore drops excluded results and attaches heuristic relevance
// scores, preserving provider order.
func (a *Adapter) filterAndScore(results []model.DiscoveryResult, query string) []model.DiscoveryResult {
	out := make([]model.DiscoveryResult, 0, len(results))
	for _, r := range results {
		if r.URL == "" || a.isExcluded(r.URL) {
			continue
		}
		r.Score = a.score(r, query)
		out = append(out, r)
	}
	return out
}

// isExcluded rejects URLs on excluded domains and article/listing paths.
func (a *Adapter) isExcluded(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	host := strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))
	for _, domain := range a.rules.ExcludedDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}

	segments := splitPath(u.Path)
	if len(segments) <= landingPageDepth {
		// Shallow enough to be a section landing page.
		return false
	}
	for _, seg := range segments {
		for _, excluded := range a.rules.ExcludedPathSegments {
			if seg == excluded {
				return true
			}
		}
	}
	return false
}

// score seeds relevance at 1.0 and adjusts by term heuristics, clamped to
// [0.1, 1.0].
func (a *Adapter) score(r model.DiscoveryResult, query string) float64 {
	title := strings.ToLower(r.Title)
	lowURL := strings.ToLower(r.URL)

	score := 1.0
	for _, term := range a.rules.BusinessTerms {
		if strings.Contains(lowURL, term) || containsWord(title, term) {
			score += 0.2
		}
	}
	for _, term := range strings.Fields(strings.ToLower(query)) {
		if strings.Contains(title, term) {
			score += 0.1
		}
	}
	for _, term := range a.rules.GenericTerms {
		if containsWord(title, term) || strings.Contains(lowURL, "/"+term) {
			score -= 0.1
		}
	}

	if score > 1.0 {
		score = 1.0
	}
	if score < 0.1 {
		score = 0.1
	}
	return score
}

func splitPath(p string) []string {
	var segments []string
	for _, seg := range strings.Split(strings.ToLower(p), "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	return segments
}

// containsWord checks for a whole-word, case-insensitive match.
func containsWord(text, word string) bool {
	for _, f := range strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}) {
		if f == word {
			return true
		}
	}
	return false
}
