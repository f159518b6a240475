// Package extract turns aggregated page text into a structured company
// profile via LLM completion, with a deterministic fallback so a lead
// record is always produced.
package extract

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/prospectline/leadgen/internal/model"
	"github.com/prospectline/leadgen/pkg/anthropic"
)

// fallbackExcerptLen is how much raw text seeds the description when
// extraction falls back to heuristics.
const fallbackExcerptLen = 300

const extractSystem = `You extract structured company information from website text. Respond with a single JSON object and nothing else. Use null for unknown fields. Fields: company_name, description, email, phone, location, industry, company_size, founded_year, pain_points (array of strings), recent_news, social_media (object with linkedin, twitter, facebook), key_features (array of strings), target_audience.`

// Extractor builds company profiles from fetched content.
type Extractor struct {
	llm   anthropic.Client
	model string
	title cases.Caser
}

// NewExtractor creates an Extractor. A nil client skips the LLM pass and
// always uses the heuristic fallback.
func NewExtractor(llm anthropic.Client, modelName string) *Extractor {
	return &Extractor{
		llm:   llm,
		model: modelName,
		title: cases.Title(language.English),
	}
}

// Extract produces a company profile from aggregated page text. It never
// returns an error: when the LLM is unavailable or its output unusable,
// a minimal heuristic profile is built instead. The returned profile
// always has a company name, and an email whenever one can be found or
// plausibly guessed.
func (e *Extractor) Extract(ctx context.Context, baseURL, text string, dining bool) *model.CompanyProfile {
	var profile *model.CompanyProfile

	if e.llm != nil {
		p, err := e.extractLLM(ctx, text)
		if err != nil {
			zap.L().Warn("llm extraction failed, using fallback",
				zap.String("base_url", baseURL),
				zap.Error(err),
			)
		} else {
			profile = p
		}
	}
	if profile == nil {
		profile = e.fallbackProfile(baseURL, text)
	}

	profile.WebsiteURL = baseURL
	profile.SourceURL = baseURL
	if profile.CompanyName == "" {
		profile.CompanyName = e.domainLabel(baseURL)
	}

	e.resolveEmail(profile, baseURL, text, dining)

	return profile
}

func (e *Extractor) extractLLM(ctx context.Context, text string) (*model.CompanyProfile, error) {
	raw, err := e.llm.Complete(ctx, anthropic.CompletionRequest{
		Model:     e.model,
		System:    extractSystem,
		Prompt:    "Website text:\n\n" + text,
		MaxTokens: 1024,
	})
	if err != nil {
		return nil, err
	}

	var profile model.CompanyProfile
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// fallbackProfile builds a minimal profile from the domain name and a text
// excerpt.
func (e *Extractor) fallbackProfile(baseURL, text string) *model.CompanyProfile {
	excerpt := strings.TrimSpace(text)
	if len(excerpt) > fallbackExcerptLen {
		excerpt = excerpt[:fallbackExcerptLen]
	}
	return &model.CompanyProfile{
		CompanyName: e.domainLabel(baseURL),
		Description: excerpt,
	}
}

// domainLabel title-cases the leftmost domain label: acme-widgets.com
// becomes "Acme-Widgets".
func (e *Extractor) domainLabel(baseURL string) string {
	domain := siteDomain(baseURL)
	if domain == "" {
		return "Unknown Company"
	}
	label := domain
	if i := strings.Index(domain, "."); i > 0 {
		label = domain[:i]
	}
	return e.title.String(label)
}

// resolveEmail fills profile.Email, preferring the LLM's answer, then a
// text scan, then a synthesized guess. ContactConfidence records which.
func (e *Extractor) resolveEmail(profile *model.CompanyProfile, baseURL, text string, dining bool) {
	if profile.Email != "" && !isJunk(profile.Email) {
		profile.Email = strings.ToLower(profile.Email)
		profile.ContactConfidence = model.ContactObserved
		return
	}

	if found := FindEmail(text, baseURL); found != "" {
		profile.Email = found
		profile.ContactConfidence = model.ContactObserved
		return
	}

	if guess := GuessEmail(baseURL, dining); guess != "" {
		profile.Email = guess
		profile.ContactConfidence = model.ContactGuessed
		return
	}

	profile.Email = ""
	profile.ContactConfidence = ""
}

// stripCodeFence removes a surrounding markdown code fence, tolerating a
// language tag.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 && !strings.HasPrefix(s, "{") {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
