package model

// DiscoveryResult is a transient candidate hit from a search provider.
// It is never persisted; only the Lead derived from it is.
type DiscoveryResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Snippet string  `json:"content"`
	Score   float64 `json:"score"`
}

// PageContent is one fetched page's extracted text.
type PageContent struct {
	URL  string `json:"url"`
	Text string `json:"content"`
}

// FetchResult aggregates the pages successfully read for one seed URL.
type FetchResult struct {
	BaseURL string        `json:"base_url"`
	Pages   []PageContent `json:"pages"`
}
