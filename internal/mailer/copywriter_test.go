package mailer

import (
	"context"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"

	"github.com/prospectline/leadgen/internal/model"
	"github.com/prospectline/leadgen/pkg/anthropic"
)

type fakeLLM struct {
	response string
	err      error
	lastReq  anthropic.CompletionRequest
}

func (f *fakeLLM) Complete(_ context.Context, req anthropic.CompletionRequest) (string, error) {
	f.lastReq = req
	return f.response, f.err
}

func copyTestLead() *model.Lead {
	return &model.Lead{
		ID:          1,
		Email:       "info@acme.com",
		CompanyName: "Acme Plumbing",
		Profile: model.CompanyProfile{
			CompanyName: "Acme Plumbing",
			Description: "Residential plumbing in Austin.",
			Industry:    "Home services",
			PainPoints:  []string{"seasonal demand"},
		},
	}
}

func TestSubject(t *testing.T) {
	c := NewCopywriter(nil, "", "me@example.com")
	assert.Equal(t, "Quick question about Acme Plumbing", c.Subject(copyTestLead()))
	assert.Equal(t, "Quick question about your business", c.Subject(&model.Lead{}))
	assert.Equal(t, "Re: Quick question about Acme Plumbing", c.FollowUpSubject(copyTestLead()))
}

func TestDraft_LLM(t *testing.T) {
	llm := &fakeLLM{response: "  Hi Acme, loved your site.  "}
	c := NewCopywriter(llm, "model", "me@example.com")

	body := c.Draft(context.Background(), copyTestLead())
	assert.Equal(t, "Hi Acme, loved your site.", body)
	assert.Contains(t, llm.lastReq.Prompt, "Acme Plumbing")
	assert.Contains(t, llm.lastReq.Prompt, "seasonal demand")
}

func TestDraft_TemplateFallback(t *testing.T) {
	t.Run("nil client", func(t *testing.T) {
		c := NewCopywriter(nil, "", "")
		body := c.Draft(context.Background(), copyTestLead())
		assert.Contains(t, body, "Hi Acme Plumbing team")
	})

	t.Run("llm error", func(t *testing.T) {
		c := NewCopywriter(&fakeLLM{err: eris.New("down")}, "model", "")
		body := c.Draft(context.Background(), copyTestLead())
		assert.Contains(t, body, "Hi Acme Plumbing team")
	})

	t.Run("blank llm output", func(t *testing.T) {
		c := NewCopywriter(&fakeLLM{response: "   "}, "model", "")
		body := c.Draft(context.Background(), copyTestLead())
		assert.Contains(t, body, "Hi Acme Plumbing team")
	})
}

func TestFollowUp_ReferencesEarlierEmail(t *testing.T) {
	llm := &fakeLLM{response: "Just circling back."}
	c := NewCopywriter(llm, "model", "")

	lead := copyTestLead()
	lead.EmailContent = "my original pitch"
	body := c.FollowUp(context.Background(), lead)

	assert.Equal(t, "Just circling back.", body)
	assert.Contains(t, llm.lastReq.Prompt, "my original pitch")
}

func TestFollowUp_TemplateFallback(t *testing.T) {
	c := NewCopywriter(nil, "", "")
	body := c.FollowUp(context.Background(), &model.Lead{})
	assert.True(t, strings.Contains(body, "following up"))
	assert.Contains(t, body, "your team")
}
