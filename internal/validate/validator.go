// Package validate decides whether an extracted profile is a plausible
// single-business lead for the query that found it.
package validate

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/prospectline/leadgen/internal/model"
	"github.com/prospectline/leadgen/pkg/anthropic"
)

const validateSystem = `You judge whether an extracted company profile represents a single real business relevant to a search query. Directories, listicles, news sites, and aggregator pages are not valid leads. Answer with exactly one word: yes or no.`

// Result is a validation verdict with the reason it was reached.
type Result struct {
	Accepted bool
	Reason   string
}

// Validator screens profiles before persistence. It is deliberately
// permissive: any uncertainty resolves to accept, so a flaky LLM never
// blocks the pipeline.
type Validator struct {
	llm    anthropic.Client
	model  string
	strict bool
}

// NewValidator creates a Validator. A nil client accepts everything.
// strict controls whether rejections block persistence downstream.
func NewValidator(llm anthropic.Client, modelName string, strict bool) *Validator {
	return &Validator{llm: llm, model: modelName, strict: strict}
}

// Strict reports whether rejected profiles should be skipped rather than
// persisted with a warning.
func (v *Validator) Strict() bool { return v.strict }

// Validate returns the verdict for profile against query. Profiles with
// neither a name nor a description short-circuit to accept: there is
// nothing for the model to judge, and the fallback extractor already
// produced the minimal record on purpose.
func (v *Validator) Validate(ctx context.Context, profile *model.CompanyProfile, query string) Result {
	if profile.CompanyName == "" && profile.Description == "" {
		return Result{Accepted: true, Reason: "nothing to judge"}
	}
	if v.llm == nil {
		return Result{Accepted: true, Reason: "validator not configured"}
	}

	prompt := "Search query: " + query +
		"\nCompany name: " + profile.CompanyName +
		"\nWebsite: " + profile.WebsiteURL +
		"\nDescription: " + profile.Description +
		"\n\nIs this a single real business relevant to the query?"

	raw, err := v.llm.Complete(ctx, anthropic.CompletionRequest{
		Model:     v.model,
		System:    validateSystem,
		Prompt:    prompt,
		MaxTokens: 8,
	})
	if err != nil {
		zap.L().Warn("validation call failed, accepting lead",
			zap.String("company", profile.CompanyName),
			zap.Error(err),
		)
		return Result{Accepted: true, Reason: "validator error"}
	}

	answer := strings.ToLower(strings.TrimSpace(raw))
	if strings.HasPrefix(answer, "no") {
		return Result{Accepted: false, Reason: "judged not a relevant single business"}
	}
	return Result{Accepted: true, Reason: "judged relevant"}
}
