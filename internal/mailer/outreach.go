package mailer

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/prospectline/leadgen/internal/model"
	"github.com/prospectline/leadgen/internal/store"
)

// bulkSendConcurrency bounds parallel SMTP connections during bulk sends.
const bulkSendConcurrency = 3

// Outreach coordinates drafting, sending, and status transitions for
// outreach email. All status changes go through the store's guarded
// updates, so a concurrent reply always wins.
type Outreach struct {
	store        store.Store
	sender       Sender
	writer       *Copywriter
	followUpDays int
}

// NewOutreach creates an Outreach service. followUpDays is how long after a
// send the follow-up becomes due.
func NewOutreach(st store.Store, sender Sender, writer *Copywriter, followUpDays int) *Outreach {
	if followUpDays <= 0 {
		followUpDays = 7
	}
	return &Outreach{store: st, sender: sender, writer: writer, followUpDays: followUpDays}
}

// Draft generates (or regenerates) the outreach body for a lead and stores
// it without sending.
func (o *Outreach) Draft(ctx context.Context, leadID int64) (string, error) {
	lead, err := o.store.GetLead(ctx, leadID)
	if err != nil {
		return "", err
	}
	body := o.writer.Draft(ctx, lead)
	if err := o.store.UpdateEmailContent(ctx, leadID, body); err != nil {
		return "", err
	}
	return body, nil
}

// SendInitial delivers the first outreach email to a lead. body overrides
// the stored draft when non-empty; with neither, a fresh draft is written.
// On success the lead moves to emailed and its follow-up is scheduled.
func (o *Outreach) SendInitial(ctx context.Context, leadID int64, body string) (SendResult, error) {
	lead, err := o.store.GetLead(ctx, leadID)
	if err != nil {
		return SendResult{}, err
	}
	if lead.HasReplied {
		return SendResult{}, eris.Errorf("mailer: lead %d already replied", leadID)
	}

	if body == "" {
		body = lead.EmailContent
	}
	if body == "" {
		body = o.writer.Draft(ctx, lead)
	}

	result := o.sender.Send(ctx, Message{
		To:      lead.Email,
		Subject: o.writer.Subject(lead),
		Body:    body,
	})
	if !result.Sent {
		return result, nil
	}

	now := time.Now().UTC()
	followUp := now.AddDate(0, 0, o.followUpDays)
	if err := o.store.MarkEmailed(ctx, leadID, body, now, followUp); err != nil {
		// Delivered but not recorded. Surface loudly: the scheduler will
		// not know about this send.
		zap.L().Error("sent but failed to record send",
			zap.Int64("lead_id", leadID),
			zap.Error(err),
		)
		return result, err
	}

	zap.L().Info("outreach sent",
		zap.Int64("lead_id", leadID),
		zap.String("email", lead.Email),
		zap.Time("follow_up_at", followUp),
	)
	return result, nil
}

// SendFollowUp delivers the follow-up email for an emailed lead. The
// guarded transition means a lead that replied in the meantime is silently
// skipped; the bool reports whether the transition applied.
func (o *Outreach) SendFollowUp(ctx context.Context, lead *model.Lead) (bool, SendResult) {
	body := o.writer.FollowUp(ctx, lead)

	result := o.sender.Send(ctx, Message{
		To:      lead.Email,
		Subject: o.writer.FollowUpSubject(lead),
		Body:    body,
	})
	if !result.Sent {
		return false, result
	}

	applied, err := o.store.MarkFollowedUp(ctx, lead.ID, time.Now().UTC())
	if err != nil {
		zap.L().Error("follow-up sent but failed to record",
			zap.Int64("lead_id", lead.ID),
			zap.Error(err),
		)
		return false, result
	}
	if !applied {
		zap.L().Info("follow-up transition lost to concurrent update",
			zap.Int64("lead_id", lead.ID),
		)
	}
	return applied, result
}

// BulkFilter selects the leads for a bulk send. IDs, when set, names the
// leads directly; otherwise Status and CampaignID filter the store.
// ExcludeReplied drops leads that already replied in either mode.
type BulkFilter struct {
	IDs            []int64          `json:"lead_ids"`
	Status         model.LeadStatus `json:"status"`
	CampaignID     string           `json:"campaign_id"`
	ExcludeReplied bool             `json:"exclude_replied"`
}

// ResolveBulk expands a bulk filter into the lead ids to send to.
func (o *Outreach) ResolveBulk(ctx context.Context, f BulkFilter) ([]int64, error) {
	if len(f.IDs) > 0 {
		if !f.ExcludeReplied {
			return f.IDs, nil
		}
		ids := make([]int64, 0, len(f.IDs))
		for _, id := range f.IDs {
			lead, err := o.store.GetLead(ctx, id)
			if err != nil {
				return nil, err
			}
			if !lead.HasReplied {
				ids = append(ids, id)
			}
		}
		return ids, nil
	}

	leads, err := o.store.ListLeads(ctx, store.LeadFilter{
		CampaignID: f.CampaignID,
		Status:     f.Status,
	})
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(leads))
	for _, lead := range leads {
		if f.ExcludeReplied && lead.HasReplied {
			continue
		}
		ids = append(ids, lead.ID)
	}
	return ids, nil
}

// BulkResult is the outcome of one lead in a bulk send.
type BulkResult struct {
	LeadID int64      `json:"lead_id"`
	Result SendResult `json:"result"`
	Err    string     `json:"error,omitempty"`
}

// SendBulk delivers initial outreach to many leads with bounded
// concurrency. Individual failures never abort the batch.
func (o *Outreach) SendBulk(ctx context.Context, leadIDs []int64) []BulkResult {
	results := make([]BulkResult, len(leadIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bulkSendConcurrency)
	for i, id := range leadIDs {
		g.Go(func() error {
			res, err := o.SendInitial(gctx, id, "")
			br := BulkResult{LeadID: id, Result: res}
			if err != nil {
				br.Err = err.Error()
			}
			results[i] = br
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// SendTest delivers a fixed test message to verify SMTP settings.
func (o *Outreach) SendTest(ctx context.Context, to string) SendResult {
	return o.sender.Send(ctx, Message{
		To:      to,
		Subject: "Leadgen SMTP test",
		Body:    "This is a test message confirming your SMTP settings work.",
	})
}
