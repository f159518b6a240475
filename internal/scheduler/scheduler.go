// Package scheduler drives time-based follow-up sends. A single background
// goroutine scans for due leads on a fixed interval; every transition it
// makes goes through the store's guarded updates.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/prospectline/leadgen/internal/mailer"
	"github.com/prospectline/leadgen/internal/store"
)

// stopJoinTimeout bounds how long Stop waits for an in-flight scan.
const stopJoinTimeout = 10 * time.Second

// ScanReport summarizes one follow-up scan.
type ScanReport struct {
	Due     int       `json:"due"`
	Sent    int       `json:"sent"`
	Skipped int       `json:"skipped"`
	Failed  int       `json:"failed"`
	At      time.Time `json:"at"`
}

// Scheduler periodically sends due follow-ups.
type Scheduler struct {
	store    store.Store
	outreach *mailer.Outreach
	interval time.Duration

	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	lastScan *ScanReport
}

// New creates a Scheduler scanning every interval.
func New(st store.Store, outreach *mailer.Outreach, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Scheduler{store: st, outreach: outreach, interval: interval}
}

// Start launches the background loop. Calling Start on a running scheduler
// is a no-op with a warning.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		zap.L().Warn("scheduler already running, ignoring start")
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	go s.loop(s.stopCh, s.doneCh)
	zap.L().Info("follow-up scheduler started",
		zap.Duration("interval", s.interval),
	)
}

// Stop signals the loop to exit and waits for the in-flight scan, up to a
// bound. Safe to call on a stopped scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	done := s.doneCh
	s.mu.Unlock()

	select {
	case <-done:
		zap.L().Info("follow-up scheduler stopped")
	case <-time.After(stopJoinTimeout):
		zap.L().Warn("scheduler stop timed out waiting for scan")
	}
}

// Running reports whether the background loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// LastScan returns the most recent scan report, nil before the first scan.
func (s *Scheduler) LastScan() *ScanReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastScan
}

func (s *Scheduler) loop(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	// Scan once up front so follow-ups already due at startup are not
	// delayed by a full interval.
	s.safeScan(context.Background())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			s.safeScan(context.Background())
		}
	}
}

// safeScan runs one scan, containing panics so a bad lead never kills the
// loop.
func (s *Scheduler) safeScan(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			zap.L().Error("follow-up scan panicked", zap.Any("panic", rec))
		}
	}()
	if _, err := s.CheckNow(ctx); err != nil {
		zap.L().Error("follow-up scan failed", zap.Error(err))
	}
}

// CheckNow runs one follow-up scan immediately and reports what happened.
// Also used by the manual trigger endpoint.
func (s *Scheduler) CheckNow(ctx context.Context) (*ScanReport, error) {
	now := time.Now().UTC()
	due, err := s.store.DueFollowUps(ctx, now)
	if err != nil {
		return nil, err
	}

	report := &ScanReport{Due: len(due), At: now}
	for i := range due {
		lead := &due[i]
		applied, result := s.outreach.SendFollowUp(ctx, lead)
		switch {
		case applied:
			report.Sent++
		case result.Sent:
			// Delivered but the transition lost to a concurrent update.
			report.Skipped++
		default:
			report.Failed++
			zap.L().Warn("follow-up send failed",
				zap.Int64("lead_id", lead.ID),
				zap.String("reason", string(result.Reason)),
			)
		}
	}

	if report.Due > 0 {
		zap.L().Info("follow-up scan complete",
			zap.Int("due", report.Due),
			zap.Int("sent", report.Sent),
			zap.Int("skipped", report.Skipped),
			zap.Int("failed", report.Failed),
		)
	}

	s.mu.Lock()
	s.lastScan = report
	s.mu.Unlock()
	return report, nil
}
