package search

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRules_EmptyPathReturnsDefaults(t *testing.T) {
	rules, err := LoadRules("")
	require.NoError(t, err)
	assert.Equal(t, DefaultRules(), rules)
}

func TestLoadRules_OverridesAndFallbacks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	yaml := `
excluded_domains:
  - spamsite.example
bias_terms:
  - "near me"
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	rules, err := LoadRules(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"spamsite.example"}, rules.ExcludedDomains)
	assert.Equal(t, []string{"near me"}, rules.BiasTerms)
	// Lists the file omits keep their defaults.
	assert.Equal(t, DefaultRules().BusinessTerms, rules.BusinessTerms)
	assert.Equal(t, DefaultRules().ExcludedPathSegments, rules.ExcludedPathSegments)
}

func TestLoadRules_MissingFile(t *testing.T) {
	_, err := LoadRules(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadRules_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("excluded_domains: {not a list"), 0o644))

	_, err := LoadRules(path)
	assert.Error(t, err)
}
