package adapter

import "context"

// SearchResult is one raw hit from the web-search provider, before
// validation and ranking.
type SearchResult struct {
	Title   string
	URL     string
	Snippet string
}

// WebSearchAdapter is the port for external link discovery.
type WebSearchAdapter interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}
