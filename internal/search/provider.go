// Package search discovers candidate business websites via chained search
// providers and filters the results down to likely primary sites.
package search

import (
	"context"

	"github.com/prospectline/leadgen/internal/model"
)

// Provider is a single search backend. Providers signal misconfiguration
// via Available rather than erroring at call time, so the adapter can walk
// the chain without special-casing missing credentials.
type Provider interface {
	Name() string
	Available() bool
	Search(ctx context.Context, query string, maxResults int) ([]model.DiscoveryResult, error)
}
