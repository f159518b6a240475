package search

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Rules holds the vocabularies the adapter uses to rewrite queries, filter
// results, and score relevance. Defaults cover the common noise classes;
// operators can override any list via a YAML rules file.
type Rules struct {
	// ExcludedDomains are non-business domain classes filtered out of
	// results and appended to the query as -site: exclusions.
	ExcludedDomains []string `yaml:"excluded_domains"`

	// ExcludedPathSegments mark article/listing pages. A result whose URL
	// contains one of these path components is rejected unless the path is
	// shallow enough to be a section landing page.
	ExcludedPathSegments []string `yaml:"excluded_path_segments"`

	// BiasTerms are appended to the query to bias toward official sites.
	BiasTerms []string `yaml:"bias_terms"`

	// BusinessTerms boost the relevance score when found in URL or title.
	BusinessTerms []string `yaml:"business_terms"`

	// GenericTerms penalize listicle/aggregator pages.
	GenericTerms []string `yaml:"generic_terms"`
}

// DefaultRules returns the built-in rule set.
func DefaultRules() Rules {
	return Rules{
		ExcludedDomains: []string{
			"facebook.com", "instagram.com", "twitter.com", "x.com",
			"linkedin.com", "youtube.com", "pinterest.com", "tiktok.com",
			"reddit.com", "quora.com", "stackexchange.com", "stackoverflow.com",
			"medium.com", "wordpress.com", "blogspot.com", "substack.com",
			"yelp.com", "tripadvisor.com", "trustpilot.com", "glassdoor.com",
			"wikipedia.org", "yellowpages.com", "crunchbase.com", "bbb.org",
		},
		ExcludedPathSegments: []string{
			"blog", "news", "article", "articles", "press", "directory",
			"listings", "reviews", "best", "top", "guide", "category", "tag",
		},
		BiasTerms: []string{
			`"official website"`, "contact",
		},
		BusinessTerms: []string{
			"inc", "llc", "ltd", "corp", "company", "official", "solutions",
			"services", "group", "agency", "studio",
		},
		GenericTerms: []string{
			"top", "best", "list", "guide", "review", "reviews", "compare",
			"vs", "ranking", "directory",
		},
	}
}

// LoadRules reads rules from a YAML file, falling back to a field's default
// when the file leaves that list empty. An empty path returns the defaults.
func LoadRules(path string) (Rules, error) {
	defaults := DefaultRules()
	if path == "" {
		return defaults, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return defaults, eris.Wrapf(err, "search: read rules file %s", path)
	}

	var loaded Rules
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return defaults, eris.Wrap(err, "search: parse rules file")
	}

	if len(loaded.ExcludedDomains) == 0 {
		loaded.ExcludedDomains = defaults.ExcludedDomains
	}
	if len(loaded.ExcludedPathSegments) == 0 {
		loaded.ExcludedPathSegments = defaults.ExcludedPathSegments
	}
	if len(loaded.BiasTerms) == 0 {
		loaded.BiasTerms = defaults.BiasTerms
	}
	if len(loaded.BusinessTerms) == 0 {
		loaded.BusinessTerms = defaults.BusinessTerms
	}
	if len(loaded.GenericTerms) == 0 {
		loaded.GenericTerms = defaults.GenericTerms
	}
	return loaded, nil
}
