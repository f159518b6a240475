// Package store persists leads and campaigns behind a driver-neutral
// interface with SQLite and Postgres implementations.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/prospectline/leadgen/internal/model"
)

// ErrNotFound is returned when a lead or campaign does not exist.
var ErrNotFound = eris.New("store: not found")

// ErrDuplicateEmail is returned when creating a lead whose email already
// exists. Email comparison is case-insensitive.
var ErrDuplicateEmail = eris.New("store: duplicate email")

// LeadFilter specifies criteria for listing leads.
type LeadFilter struct {
	CampaignID string           `json:"campaign_id,omitempty"`
	Status     model.LeadStatus `json:"status,omitempty"`
	Limit      int              `json:"limit,omitempty"`
	Offset     int              `json:"offset,omitempty"`
}

// Stats summarizes the lead store for the dashboard.
type Stats struct {
	Total      int `json:"total_leads"`
	Found      int `json:"found"`
	Emailed    int `json:"emailed"`
	FollowedUp int `json:"followed_up"`
	Replied    int `json:"replied"`
	Campaigns  int `json:"campaigns"`
}

// TimeseriesPoint is one day's lead acquisition count.
type TimeseriesPoint struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// SourceCount is the number of leads acquired from one website domain.
type SourceCount struct {
	Domain string `json:"domain"`
	Count  int    `json:"count"`
}

// CampaignStats is per-campaign outreach performance.
type CampaignStats struct {
	CampaignID   string `json:"campaign_id"`
	CampaignName string `json:"campaign_name"`
	Leads        int    `json:"leads"`
	Emailed      int    `json:"emailed"`
	Replied      int    `json:"replied"`
}

// Store defines the persistence interface for the acquisition pipeline and
// follow-up scheduler. Transition methods encode their guards in the WHERE
// clause so concurrent writers cannot regress a lead's status.
type Store interface {
	// Leads
	CreateLead(ctx context.Context, lead *model.Lead) (*model.Lead, error)
	GetLead(ctx context.Context, id int64) (*model.Lead, error)
	GetLeadByEmail(ctx context.Context, email string) (*model.Lead, error)
	ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error)
	UpdateEmailContent(ctx context.Context, id int64, content string) error
	MarkEmailed(ctx context.Context, id int64, content string, sentAt, followUpAt time.Time) error
	MarkFollowedUp(ctx context.Context, id int64, sentAt time.Time) (bool, error)
	MarkReplied(ctx context.Context, email string) (*model.Lead, error)
	DeleteLead(ctx context.Context, id int64) error
	DeleteAllLeads(ctx context.Context) (int, error)
	DueFollowUps(ctx context.Context, now time.Time) ([]model.Lead, error)

	// Campaigns
	CreateCampaign(ctx context.Context, c *model.Campaign) (*model.Campaign, error)
	GetCampaign(ctx context.Context, id string) (*model.Campaign, error)
	ListCampaigns(ctx context.Context) ([]model.Campaign, error)
	DeleteCampaign(ctx context.Context, id string, deleteLeads bool) error

	// Reporting
	Stats(ctx context.Context) (*Stats, error)
	Timeseries(ctx context.Context, days int) ([]TimeseriesPoint, error)
	SourceBreakdown(ctx context.Context) ([]SourceCount, error)
	CampaignPerformance(ctx context.Context) ([]CampaignStats, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
