package fetch

import (
	"net/url"
	"strings"
)

// generalPaths are the likely informational pages for a general business.
var generalPaths = []string{"/about", "/contact", "/company", "/team"}

// diningPaths replace generalPaths when the seed looks like a food-service
// business.
var diningPaths = []string{"/menu", "/reservations", "/contact", "/about", "/hours"}

// diningIndicators suggest a food-service business when found in the seed
// URL or the discovery hints (title, snippet).
var diningIndicators = []string{
	"restaurant", "menu", "cafe", "bistro", "pizzeria", "pizza", "sushi",
	"dining", "eatery", "bakery", "grill", "kitchen", "tavern", "brunch",
}

// NormalizeBaseURL reduces a URL to scheme://host, defaulting to https
// when no scheme is present. Returns "" for unparseable input.
func NormalizeBaseURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// LooksLikeDining reports whether the seed URL or hint text suggests a
// food-service business.
func LooksLikeDining(seedURL string, hints ...string) bool {
	haystack := strings.ToLower(seedURL + " " + strings.Join(hints, " "))
	for _, ind := range diningIndicators {
		if strings.Contains(haystack, ind) {
			return true
		}
	}
	return false
}

// BuildPageSet returns the candidate pages for a seed in priority order:
// homepage first, then the context-appropriate informational paths.
func BuildPageSet(baseURL string, dining bool) []string {
	paths := generalPaths
	if dining {
		paths = diningPaths
	}
	pages := make([]string, 0, len(paths)+1)
	pages = append(pages, baseURL)
	for _, p := range paths {
		pages = append(pages, baseURL+p)
	}
	return pages
}
