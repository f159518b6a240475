// Package fetch retrieves and aggregates page content for a seed URL,
// trying a high-fidelity rendering provider first and falling back to a
// direct HTTP fetch with HTML stripping.
package fetch

import (
	"context"

	"github.com/prospectline/leadgen/internal/model"
)

// PageProvider fetches a single page's text content.
type PageProvider interface {
	Name() string
	Available() bool
	FetchPage(ctx context.Context, url string) (*model.PageContent, error)
}
