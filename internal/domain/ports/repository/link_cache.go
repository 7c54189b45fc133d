package repository

import (
	"context"

	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain/model"
)

// LinkCacheRepository stores link discovery results keyed by normalized
// query. Implementations may enforce the TTL themselves (redis); the
// use case re-checks FetchedAt either way.
type LinkCacheRepository interface {
	Get(ctx context.Context, key string) (*model.LinkCacheEntry, error)
	Put(ctx context.Context, entry *model.LinkCacheEntry) error
}
