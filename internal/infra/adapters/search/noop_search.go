package search

import (
	"context"

	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain/ports/adapter"
)

var _ adapter.WebSearchAdapter = (*NoopSearchAdapter)(nil)

// NoopSearchAdapter returns no results; generation proceeds without
// augmentation, which is the product's soft-degrade path anyway.
type NoopSearchAdapter struct{}

func NewNoopSearchAdapter() *NoopSearchAdapter { return &NoopSearchAdapter{} }

func (a *NoopSearchAdapter) Search(ctx context.Context, query string) ([]adapter.SearchResult, error) {
	return nil, nil
}
