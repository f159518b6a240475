package model

import "time"

// LeadStatus represents where a lead sits in the outreach lifecycle.
type LeadStatus string

const (
	LeadStatusFound      LeadStatus = "found"
	LeadStatusEmailed    LeadStatus = "emailed"
	LeadStatusFollowedUp LeadStatus = "followed_up"
	LeadStatusReplied    LeadStatus = "replied"
)

// statusRank orders statuses for monotonicity checks. Replied is terminal
// and reachable from any prior state.
var statusRank = map[LeadStatus]int{
	LeadStatusFound:      0,
	LeadStatusEmailed:    1,
	LeadStatusFollowedUp: 2,
	LeadStatusReplied:    3,
}

// CanTransitionTo reports whether moving from s to next is a legal forward
// transition. A lead never regresses to an earlier status.
func (s LeadStatus) CanTransitionTo(next LeadStatus) bool {
	cur, ok := statusRank[s]
	if !ok {
		return false
	}
	nxt, ok := statusRank[next]
	if !ok {
		return false
	}
	if s == LeadStatusReplied {
		return false // absorbing
	}
	return nxt > cur
}

// ContactConfidence tags how a lead's contact address was obtained.
type ContactConfidence string

const (
	// ContactObserved means the address was found in scraped content.
	ContactObserved ContactConfidence = "observed"
	// ContactGuessed means the address was synthesized from the domain and
	// never verified. Downstream send policy may treat these differently.
	ContactGuessed ContactConfidence = "guessed"
)

// SocialLinks holds social profile URLs found during extraction.
type SocialLinks struct {
	LinkedIn string `json:"linkedin,omitempty"`
	Twitter  string `json:"twitter,omitempty"`
	Facebook string `json:"facebook,omitempty"`
}

// CompanyProfile is the structured record extracted from a company's web
// presence. Fields not found are left empty rather than omitted, so the
// stored JSON blob has a stable shape.
type CompanyProfile struct {
	CompanyName       string            `json:"company_name"`
	Description       string            `json:"description"`
	WebsiteURL        string            `json:"website_url"`
	Email             string            `json:"email"`
	Phone             string            `json:"phone,omitempty"`
	Location          string            `json:"location,omitempty"`
	Industry          string            `json:"industry,omitempty"`
	CompanySize       string            `json:"company_size,omitempty"`
	FoundedYear       string            `json:"founded_year,omitempty"`
	PainPoints        []string          `json:"pain_points,omitempty"`
	RecentNews        string            `json:"recent_news,omitempty"`
	SocialMedia       SocialLinks       `json:"social_media"`
	KeyFeatures       []string          `json:"key_features,omitempty"`
	TargetAudience    string            `json:"target_audience,omitempty"`
	SourceURL         string            `json:"source_url"`
	ScrapedPages      []string          `json:"scraped_pages"`
	ContactConfidence ContactConfidence `json:"contact_confidence,omitempty"`
}

// Lead is a discovered company/contact with outreach state. The email
// address is the natural key: unique across the store, case-insensitive.
type Lead struct {
	ID              int64          `json:"id"`
	Email           string         `json:"email"`
	Name            string         `json:"name"`
	CompanyName     string         `json:"company_name"`
	Profile         CompanyProfile `json:"company_data"`
	CampaignID      string         `json:"campaign_id"`
	Status          LeadStatus     `json:"status"`
	EmailContent    string         `json:"email_content,omitempty"`
	FollowUpAt      *time.Time     `json:"follow_up_date,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	LastContactedAt *time.Time     `json:"last_contacted_at,omitempty"`
	SentAt          *time.Time     `json:"sent_email_at,omitempty"`
	HasReplied      bool           `json:"has_replied"`
}

// Campaign groups the leads of one discovery run.
type Campaign struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	SearchQuery string    `json:"search_query"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	// LeadCount is a derived cache, recomputed on demand. The store is the
	// source of truth.
	LeadCount int `json:"lead_count"`
}
