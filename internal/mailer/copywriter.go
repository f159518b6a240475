package mailer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/prospectline/leadgen/internal/model"
	"github.com/prospectline/leadgen/pkg/anthropic"
)

const copySystem = `You write short, personalized B2B outreach emails. Plain text, 3-5 sentences, professional but warm, one clear call to action. Never invent facts not present in the company profile. Respond with the email body only, no subject line.`

// Copywriter drafts outreach and follow-up email for a lead. Every method
// has a deterministic template fallback so drafting never fails.
type Copywriter struct {
	llm       anthropic.Client
	modelName string
	from      string
}

// NewCopywriter creates a Copywriter. A nil client always uses templates.
func NewCopywriter(llm anthropic.Client, modelName, from string) *Copywriter {
	return &Copywriter{llm: llm, modelName: modelName, from: from}
}

// Subject builds the outreach subject line.
func (c *Copywriter) Subject(lead *model.Lead) string {
	name := lead.CompanyName
	if name == "" {
		name = "your business"
	}
	return "Quick question about " + name
}

// FollowUpSubject builds the follow-up subject line.
func (c *Copywriter) FollowUpSubject(lead *model.Lead) string {
	return "Re: " + c.Subject(lead)
}

// Draft writes the initial outreach body for a lead.
func (c *Copywriter) Draft(ctx context.Context, lead *model.Lead) string {
	if c.llm != nil {
		prompt := c.leadContext(lead) + "\n\nWrite the first outreach email to this company."
		body, err := c.llm.Complete(ctx, anthropic.CompletionRequest{
			Model:     c.modelName,
			System:    copySystem,
			Prompt:    prompt,
			MaxTokens: 512,
		})
		if err == nil && strings.TrimSpace(body) != "" {
			return strings.TrimSpace(body)
		}
		if err != nil {
			zap.L().Warn("copywriter call failed, using template",
				zap.String("company", lead.CompanyName),
				zap.Error(err),
			)
		}
	}
	return c.templateDraft(lead)
}

// FollowUp writes the follow-up body referencing the earlier outreach.
func (c *Copywriter) FollowUp(ctx context.Context, lead *model.Lead) string {
	if c.llm != nil {
		prompt := c.leadContext(lead) +
			"\n\nEarlier email:\n" + lead.EmailContent +
			"\n\nWrite a brief, friendly follow-up to this company. Reference the earlier email without repeating it."
		body, err := c.llm.Complete(ctx, anthropic.CompletionRequest{
			Model:     c.modelName,
			System:    copySystem,
			Prompt:    prompt,
			MaxTokens: 512,
		})
		if err == nil && strings.TrimSpace(body) != "" {
			return strings.TrimSpace(body)
		}
		if err != nil {
			zap.L().Warn("copywriter call failed, using template",
				zap.String("company", lead.CompanyName),
				zap.Error(err),
			)
		}
	}
	return c.templateFollowUp(lead)
}

func (c *Copywriter) leadContext(lead *model.Lead) string {
	p := lead.Profile
	var b strings.Builder
	fmt.Fprintf(&b, "Company: %s\n", lead.CompanyName)
	if p.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", p.Description)
	}
	if p.Industry != "" {
		fmt.Fprintf(&b, "Industry: %s\n", p.Industry)
	}
	if p.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n", p.Location)
	}
	if len(p.PainPoints) > 0 {
		fmt.Fprintf(&b, "Pain points: %s\n", strings.Join(p.PainPoints, "; "))
	}
	if p.TargetAudience != "" {
		fmt.Fprintf(&b, "Target audience: %s\n", p.TargetAudience)
	}
	return b.String()
}

func (c *Copywriter) templateDraft(lead *model.Lead) string {
	name := lead.CompanyName
	if name == "" {
		name = "your team"
	}
	return fmt.Sprintf(
		"Hi %s team,\n\nI came across your website and was impressed by what you're building. "+
			"We help businesses like yours reach more of the right customers with less manual effort.\n\n"+
			"Would you be open to a quick call this week to see if there's a fit?\n\nBest regards",
		name,
	)
}

func (c *Copywriter) templateFollowUp(lead *model.Lead) string {
	name := lead.CompanyName
	if name == "" {
		name = "your team"
	}
	return fmt.Sprintf(
		"Hi %s team,\n\nJust following up on my earlier note in case it got buried. "+
			"Happy to share a couple of concrete examples of what this could look like for you.\n\n"+
			"Worth a quick chat?\n\nBest regards",
		name,
	)
}
