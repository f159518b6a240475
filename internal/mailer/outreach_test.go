package mailer

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prospectline/leadgen/internal/model"
	"github.com/prospectline/leadgen/internal/store"
)

// fakeSender records sends and returns a scripted result.
type fakeSender struct {
	mu     sync.Mutex
	sent   []Message
	result SendResult
}

func (f *fakeSender) Configured() bool { return true }

func (f *fakeSender) Send(_ context.Context, msg Message) SendResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return f.result
}

func newOutreachTest(t *testing.T) (*Outreach, store.Store, *fakeSender) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })

	sender := &fakeSender{result: SendResult{Sent: true}}
	writer := NewCopywriter(nil, "", "me@example.com")
	return NewOutreach(st, sender, writer, 7), st, sender
}

func seedLead(t *testing.T, st store.Store, email string) *model.Lead {
	t.Helper()
	lead, err := st.CreateLead(context.Background(), &model.Lead{
		Email:       email,
		CompanyName: "Acme Plumbing",
		Profile: model.CompanyProfile{
			CompanyName: "Acme Plumbing",
			Description: "Plumbing in Austin.",
			WebsiteURL:  "https://acme-plumbing.com",
		},
	})
	require.NoError(t, err)
	return lead
}

func TestDraftStoresBody(t *testing.T) {
	o, st, _ := newOutreachTest(t)
	lead := seedLead(t, st, "info@acme.com")

	body, err := o.Draft(context.Background(), lead.ID)
	require.NoError(t, err)
	assert.Contains(t, body, "Acme Plumbing")

	got, err := st.GetLead(context.Background(), lead.ID)
	require.NoError(t, err)
	assert.Equal(t, body, got.EmailContent)
	assert.Equal(t, model.LeadStatusFound, got.Status, "drafting does not send")
}

func TestSendInitial_SchedulesFollowUp(t *testing.T) {
	o, st, sender := newOutreachTest(t)
	lead := seedLead(t, st, "info@acme.com")

	res, err := o.SendInitial(context.Background(), lead.ID, "custom body")
	require.NoError(t, err)
	assert.True(t, res.Sent)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "info@acme.com", sender.sent[0].To)
	assert.Equal(t, "custom body", sender.sent[0].Body)

	got, err := st.GetLead(context.Background(), lead.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LeadStatusEmailed, got.Status)
	require.NotNil(t, got.FollowUpAt)
	wantFollowUp := time.Now().UTC().AddDate(0, 0, 7)
	assert.WithinDuration(t, wantFollowUp, *got.FollowUpAt, time.Minute)
}

func TestSendInitial_UsesStoredDraft(t *testing.T) {
	o, st, sender := newOutreachTest(t)
	lead := seedLead(t, st, "info@acme.com")
	require.NoError(t, st.UpdateEmailContent(context.Background(), lead.ID, "stored draft"))

	_, err := o.SendInitial(context.Background(), lead.ID, "")
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "stored draft", sender.sent[0].Body)
}

func TestSendInitial_RepliedLeadRefused(t *testing.T) {
	o, st, sender := newOutreachTest(t)
	seedLead(t, st, "info@acme.com")
	_, err := st.MarkReplied(context.Background(), "info@acme.com")
	require.NoError(t, err)

	lead, err := st.GetLeadByEmail(context.Background(), "info@acme.com")
	require.NoError(t, err)

	_, err = o.SendInitial(context.Background(), lead.ID, "")
	assert.Error(t, err)
	assert.Empty(t, sender.sent)
}

func TestSendInitial_DeliveryFailureKeepsStatus(t *testing.T) {
	o, st, sender := newOutreachTest(t)
	sender.result = SendResult{Sent: false, Reason: FailureConnect}
	lead := seedLead(t, st, "info@acme.com")

	res, err := o.SendInitial(context.Background(), lead.ID, "body")
	require.NoError(t, err)
	assert.False(t, res.Sent)

	got, err := st.GetLead(context.Background(), lead.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LeadStatusFound, got.Status)
}

func TestSendFollowUp(t *testing.T) {
	o, st, sender := newOutreachTest(t)
	lead := seedLead(t, st, "info@acme.com")
	_, err := o.SendInitial(context.Background(), lead.ID, "body")
	require.NoError(t, err)

	got, err := st.GetLead(context.Background(), lead.ID)
	require.NoError(t, err)

	applied, res := o.SendFollowUp(context.Background(), got)
	assert.True(t, applied)
	assert.True(t, res.Sent)
	require.Len(t, sender.sent, 2)
	assert.Equal(t, "Re: Quick question about Acme Plumbing", sender.sent[1].Subject)

	final, err := st.GetLead(context.Background(), lead.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LeadStatusFollowedUp, final.Status)
	assert.Nil(t, final.FollowUpAt)
}

func TestSendFollowUp_ReplyWinsRace(t *testing.T) {
	o, st, _ := newOutreachTest(t)
	lead := seedLead(t, st, "info@acme.com")
	_, err := o.SendInitial(context.Background(), lead.ID, "body")
	require.NoError(t, err)

	// Snapshot the lead as the scheduler would, then a reply lands.
	snapshot, err := st.GetLead(context.Background(), lead.ID)
	require.NoError(t, err)
	_, err = st.MarkReplied(context.Background(), "info@acme.com")
	require.NoError(t, err)

	applied, res := o.SendFollowUp(context.Background(), snapshot)
	assert.False(t, applied, "guarded transition lost to the reply")
	assert.True(t, res.Sent)

	final, err := st.GetLead(context.Background(), lead.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LeadStatusReplied, final.Status)
}

func TestSendBulk(t *testing.T) {
	o, st, sender := newOutreachTest(t)
	a := seedLead(t, st, "a@one.com")
	b := seedLead(t, st, "b@two.com")

	results := o.SendBulk(context.Background(), []int64{a.ID, b.ID, 999})
	require.Len(t, results, 3)

	byID := map[int64]BulkResult{}
	for _, r := range results {
		byID[r.LeadID] = r
	}
	assert.True(t, byID[a.ID].Result.Sent)
	assert.True(t, byID[b.ID].Result.Sent)
	assert.NotEmpty(t, byID[999].Err, "missing lead reports an error")
	assert.Len(t, sender.sent, 2)
}

func TestResolveBulk(t *testing.T) {
	o, st, _ := newOutreachTest(t)
	a := seedLead(t, st, "a@one.com")
	b := seedLead(t, st, "b@two.com")
	c := seedLead(t, st, "c@three.com")
	_, err := st.MarkReplied(context.Background(), c.Email)
	require.NoError(t, err)

	ids, err := o.ResolveBulk(context.Background(), BulkFilter{IDs: []int64{a.ID, c.ID}})
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID, c.ID}, ids, "explicit ids pass through")

	ids, err = o.ResolveBulk(context.Background(), BulkFilter{
		IDs: []int64{a.ID, c.ID}, ExcludeReplied: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID}, ids, "explicit ids drop replied leads")

	ids, err = o.ResolveBulk(context.Background(), BulkFilter{Status: model.LeadStatusFound})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{a.ID, b.ID}, ids)

	ids, err = o.ResolveBulk(context.Background(), BulkFilter{ExcludeReplied: true})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{a.ID, b.ID}, ids)
}

func TestSendTest(t *testing.T) {
	o, _, sender := newOutreachTest(t)
	res := o.SendTest(context.Background(), "me@example.com")
	assert.True(t, res.Sent)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "me@example.com", sender.sent[0].To)
}
