package extract

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prospectline/leadgen/internal/model"
	"github.com/prospectline/leadgen/pkg/anthropic"
)

// fakeLLM returns a canned completion.
type fakeLLM struct {
	response string
	err      error
	lastReq  anthropic.CompletionRequest
}

func (f *fakeLLM) Complete(_ context.Context, req anthropic.CompletionRequest) (string, error) {
	f.lastReq = req
	return f.response, f.err
}

func TestExtract_LLMProfile(t *testing.T) {
	llm := &fakeLLM{response: "```json\n" + `{
		"company_name": "Acme Widgets",
		"description": "Industrial widget manufacturer.",
		"email": "Sales@Acme-Widgets.com",
		"industry": "Manufacturing"
	}` + "\n```"}

	e := NewExtractor(llm, "claude-sonnet-4-20250514")
	profile := e.Extract(context.Background(), "https://acme-widgets.com", "Acme Widgets makes widgets.", false)

	require.NotNil(t, profile)
	assert.Equal(t, "Acme Widgets", profile.CompanyName)
	assert.Equal(t, "Industrial widget manufacturer.", profile.Description)
	assert.Equal(t, "sales@acme-widgets.com", profile.Email)
	assert.Equal(t, model.ContactObserved, profile.ContactConfidence)
	assert.Equal(t, "https://acme-widgets.com", profile.WebsiteURL)
	assert.Equal(t, "claude-sonnet-4-20250514", llm.lastReq.Model)
}

func TestExtract_PromptRequestsOnlyStoredSocialLinks(t *testing.T) {
	// Every social network the prompt asks for must have a home in the
	// profile, or the answer is silently dropped.
	llm := &fakeLLM{response: `{"company_name": "Acme"}`}
	e := NewExtractor(llm, "model")
	e.Extract(context.Background(), "https://acme.com", "widgets", false)

	assert.Contains(t, llm.lastReq.System, "linkedin")
	assert.Contains(t, llm.lastReq.System, "twitter")
	assert.Contains(t, llm.lastReq.System, "facebook")
	assert.NotContains(t, llm.lastReq.System, "instagram")
}

func TestExtract_NilClientFallback(t *testing.T) {
	e := NewExtractor(nil, "")
	profile := e.Extract(context.Background(), "https://acme-widgets.com", "We build widgets in Ohio.", false)

	assert.Equal(t, "Acme-Widgets", profile.CompanyName)
	assert.Equal(t, "We build widgets in Ohio.", profile.Description)
	assert.Equal(t, "contact@acme-widgets.com", profile.Email)
	assert.Equal(t, model.ContactGuessed, profile.ContactConfidence)
}

func TestExtract_LLMErrorFallsBack(t *testing.T) {
	llm := &fakeLLM{err: eris.New("api down")}
	e := NewExtractor(llm, "model")
	profile := e.Extract(context.Background(), "https://acme.com", "Plumbing since 1980. Email info@acme.com.", false)

	assert.Equal(t, "Acme", profile.CompanyName)
	assert.Equal(t, "info@acme.com", profile.Email)
	assert.Equal(t, model.ContactObserved, profile.ContactConfidence)
}

func TestExtract_BadJSONFallsBack(t *testing.T) {
	llm := &fakeLLM{response: "I could not find any company information."}
	e := NewExtractor(llm, "model")
	profile := e.Extract(context.Background(), "https://marios.com", "Fresh pasta daily.", true)

	assert.Equal(t, "Marios", profile.CompanyName)
	assert.Equal(t, "reservations@marios.com", profile.Email)
	assert.Equal(t, model.ContactGuessed, profile.ContactConfidence)
}

func TestExtract_JunkLLMEmailReplaced(t *testing.T) {
	llm := &fakeLLM{response: `{"company_name": "Acme", "email": "noreply@acme.com"}`}
	e := NewExtractor(llm, "model")
	profile := e.Extract(context.Background(), "https://acme.com", "Write to hello@acme.com.", false)

	assert.Equal(t, "hello@acme.com", profile.Email)
	assert.Equal(t, model.ContactObserved, profile.ContactConfidence)
}

func TestExtract_TruncatesFallbackExcerpt(t *testing.T) {
	long := ""
	for len(long) < 1000 {
		long += "widgets and more widgets "
	}
	e := NewExtractor(nil, "")
	profile := e.Extract(context.Background(), "https://acme.com", long, false)
	assert.Len(t, profile.Description, fallbackExcerptLen)
}

func TestDomainLabel(t *testing.T) {
	e := NewExtractor(nil, "")
	assert.Equal(t, "Acme-Widgets", e.domainLabel("https://acme-widgets.com"))
	assert.Equal(t, "Marios", e.domainLabel("https://www.marios.co.uk"))
	assert.Equal(t, "Unknown Company", e.domainLabel(""))
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fence", `{"a":1}`, `{"a":1}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"json tag", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  ```json\n{\"a\":1}\n```  ", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripCodeFence(tt.in))
		})
	}
}
