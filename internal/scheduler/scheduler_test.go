package scheduler

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prospectline/leadgen/internal/mailer"
	"github.com/prospectline/leadgen/internal/model"
	"github.com/prospectline/leadgen/internal/store"
)

type fakeSender struct {
	mu     sync.Mutex
	sent   []mailer.Message
	result mailer.SendResult
}

func (f *fakeSender) Configured() bool { return true }

func (f *fakeSender) Send(_ context.Context, msg mailer.Message) mailer.SendResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return f.result
}

func newSchedulerTest(t *testing.T) (*Scheduler, store.Store, *fakeSender) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })

	sender := &fakeSender{result: mailer.SendResult{Sent: true}}
	outreach := mailer.NewOutreach(st, sender, mailer.NewCopywriter(nil, "", ""), 7)
	return New(st, outreach, time.Minute), st, sender
}

func seedEmailedLead(t *testing.T, st store.Store, email string, followUpAt time.Time) *model.Lead {
	t.Helper()
	lead, err := st.CreateLead(context.Background(), &model.Lead{
		Email:       email,
		CompanyName: "Acme",
		Profile:     model.CompanyProfile{CompanyName: "Acme", WebsiteURL: "https://acme.com"},
	})
	require.NoError(t, err)
	require.NoError(t, st.MarkEmailed(context.Background(), lead.ID, "original pitch",
		followUpAt.AddDate(0, 0, -7), followUpAt))
	return lead
}

func TestCheckNow_SendsDueFollowUps(t *testing.T) {
	s, st, sender := newSchedulerTest(t)
	now := time.Now().UTC()

	due := seedEmailedLead(t, st, "due@acme.com", now.Add(-time.Hour))
	seedEmailedLead(t, st, "future@other.com", now.AddDate(0, 0, 5))

	report, err := s.CheckNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Due)
	assert.Equal(t, 1, report.Sent)
	assert.Zero(t, report.Skipped)
	assert.Zero(t, report.Failed)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "due@acme.com", sender.sent[0].To)

	got, err := st.GetLead(context.Background(), due.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LeadStatusFollowedUp, got.Status)

	assert.Equal(t, report, s.LastScan())
}

func TestCheckNow_EmptyScan(t *testing.T) {
	s, _, sender := newSchedulerTest(t)

	report, err := s.CheckNow(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Due)
	assert.Empty(t, sender.sent)
}

func TestCheckNow_FailedSendCounted(t *testing.T) {
	s, st, sender := newSchedulerTest(t)
	sender.result = mailer.SendResult{Sent: false, Reason: mailer.FailureConnect}
	lead := seedEmailedLead(t, st, "due@acme.com", time.Now().UTC().Add(-time.Hour))

	report, err := s.CheckNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Due)
	assert.Equal(t, 1, report.Failed)

	got, err := st.GetLead(context.Background(), lead.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LeadStatusEmailed, got.Status, "failed send leaves lead eligible")
	assert.NotNil(t, got.FollowUpAt)
}

func TestStart_ScansImmediately(t *testing.T) {
	s, st, sender := newSchedulerTest(t)
	lead := seedEmailedLead(t, st, "due@acme.com", time.Now().UTC().Add(-time.Hour))

	// Interval is a minute; the send must come from the startup scan, not
	// a tick.
	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool { return s.LastScan() != nil },
		2*time.Second, 10*time.Millisecond)

	got, err := st.GetLead(context.Background(), lead.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LeadStatusFollowedUp, got.Status)

	sender.mu.Lock()
	defer sender.mu.Unlock()
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "due@acme.com", sender.sent[0].To)
}

func TestStartStop(t *testing.T) {
	s, _, _ := newSchedulerTest(t)

	assert.False(t, s.Running())
	s.Start()
	assert.True(t, s.Running())

	// Second start is a no-op.
	s.Start()
	assert.True(t, s.Running())

	s.Stop()
	assert.False(t, s.Running())

	// Stop on a stopped scheduler is safe.
	s.Stop()
}

func TestStartAfterStop(t *testing.T) {
	s, _, _ := newSchedulerTest(t)
	s.Start()
	s.Stop()
	s.Start()
	assert.True(t, s.Running())
	s.Stop()
}
