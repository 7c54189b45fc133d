package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain"
	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain/model"
	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain/ports/repository"
)

// Compile-time check
var _ repository.LinkCacheRepository = (*LinkCache)(nil)

// LinkCache stores ranked link discovery results in redis with the
// augmentation TTL; redis expiry and FetchedAt staleness agree because
// both start from the same Put.
type LinkCache struct {
	client RedisClient
	ttl    time.Duration
}

func NewLinkCache(client RedisClient, ttl time.Duration) *LinkCache {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &LinkCache{client: client, ttl: ttl}
}

func cacheKey(key string) string { return "link_cache:" + key }

func (c *LinkCache) Get(ctx context.Context, key string) (*model.LinkCacheEntry, error) {
	data, err := c.client.Get(ctx, cacheKey(key))
	if err != nil {
		if IsNil(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	var entry model.LinkCacheEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (c *LinkCache) Put(ctx context.Context, entry *model.LinkCacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKey(entry.Key), data, c.ttl)
}
