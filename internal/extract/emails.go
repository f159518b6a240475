package extract

import (
	"net/url"
	"regexp"
	"strings"
)

var emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

// businessLocalParts are local parts that indicate a business inbox rather
// than a personal or automated one, in preference order.
var businessLocalParts = []string{"contact", "info", "hello", "sales", "inquiry", "enquiry"}

// generalGuessOrder is the guess sequence for a general business when no
// address was observed on the site.
var generalGuessOrder = []string{"contact", "info", "hello", "sales"}

// diningGuessOrder replaces generalGuessOrder for food-service businesses.
var diningGuessOrder = []string{"reservations", "bookings", "info", "contact"}

// junkLocalParts never belong to a reachable human inbox.
var junkLocalParts = []string{"noreply", "no-reply", "donotreply", "mailer-daemon", "postmaster", "webmaster", "abuse"}

// junkDomains are image/asset false positives the email regex picks up.
var junkDomains = []string{"example.com", "sentry.io", "wixpress.com", "2x.png", "domain.com", "email.com", "yourdomain.com"}

// siteDomain extracts the bare host (without www) from a URL.
func siteDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// FindEmail scans page text for the best contact address. Preference:
// same-domain business local part, same-domain anything, any non-junk
// business local part, first surviving candidate. Returns "" when nothing
// usable appears.
func FindEmail(text, baseURL string) string {
	domain := siteDomain(baseURL)
	candidates := dedupe(emailRe.FindAllString(text, -1))

	var clean []string
	for _, c := range candidates {
		if isJunk(c) {
			continue
		}
		clean = append(clean, strings.ToLower(c))
	}
	if len(clean) == 0 {
		return ""
	}

	if domain != "" {
		for _, part := range businessLocalParts {
			for _, c := range clean {
				if c == part+"@"+domain {
					return c
				}
			}
		}
		for _, c := range clean {
			if strings.HasSuffix(c, "@"+domain) {
				return c
			}
		}
	}
	for _, part := range businessLocalParts {
		for _, c := range clean {
			if strings.HasPrefix(c, part+"@") {
				return c
			}
		}
	}
	return clean[0]
}

// GuessEmail synthesizes a likely contact address from the site domain when
// none was observed. dining selects the food-service guess order.
func GuessEmail(baseURL string, dining bool) string {
	domain := siteDomain(baseURL)
	if domain == "" {
		return ""
	}
	order := generalGuessOrder
	if dining {
		order = diningGuessOrder
	}
	return order[0] + "@" + domain
}

func isJunk(email string) bool {
	lower := strings.ToLower(email)
	at := strings.Index(lower, "@")
	if at <= 0 {
		return true
	}
	local, domain := lower[:at], lower[at+1:]
	for _, junk := range junkLocalParts {
		if local == junk {
			return true
		}
	}
	for _, junk := range junkDomains {
		if domain == junk || strings.HasSuffix(domain, "."+junk) {
			return true
		}
	}
	return false
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		key := strings.ToLower(s)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}
