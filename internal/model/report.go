package model

// ItemOutcome is the terminal state of one discovery result in a batch.
type ItemOutcome string

const (
	OutcomePersisted        ItemOutcome = "persisted"
	OutcomeSkippedNoURL     ItemOutcome = "skipped-no-url"
	OutcomeSkippedNoContent ItemOutcome = "skipped-no-content"
	OutcomeSkippedNoEmail   ItemOutcome = "skipped-no-email"
	OutcomeSkippedDuplicate ItemOutcome = "skipped-duplicate"
	OutcomeSkippedRejected  ItemOutcome = "skipped-rejected"
	OutcomeSkippedError     ItemOutcome = "skipped-error"
)

// LeadPreview is the per-lead summary returned in a batch report.
type LeadPreview struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	CompanyName string `json:"company_name"`
	Description string `json:"description"`
	PainPoints  string `json:"pain_points"`
	WebsiteURL  string `json:"website_url"`
}

// BatchItem records the outcome of one discovery result.
type BatchItem struct {
	Title   string      `json:"title,omitempty"`
	URL     string      `json:"url"`
	Outcome ItemOutcome `json:"outcome"`
	Reason  string      `json:"reason,omitempty"`
}

// BatchReport summarizes an enrichment batch. One item's failure never
// aborts the batch, so the report always covers every attempted item.
type BatchReport struct {
	CampaignID   string        `json:"campaign_id"`
	CampaignName string        `json:"campaign_name"`
	Attempted    int           `json:"attempted"`
	Persisted    int           `json:"persisted"`
	Items        []BatchItem   `json:"items"`
	Leads        []LeadPreview `json:"leads"`
}
