package model

import (
	"strings"
	"time"
)

// ReferenceLink is one externally discovered link used to enrich an article.
type ReferenceLink struct {
	URL            string `json:"url"`
	Title          string `json:"title"`
	Snippet        string `json:"snippet"`
	RelevanceScore int    `json:"relevance_score"`
	AuthorityScore int    `json:"authority_score"`
}

// LinkCacheEntry is the cached outcome of one link discovery query.
type LinkCacheEntry struct {
	Key       string          `json:"key"`
	Results   []ReferenceLink `json:"results"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Stale reports whether the entry is past the cache TTL. A stale entry
// must be treated as absent, never served.
func (e *LinkCacheEntry) Stale(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.FetchedAt) >= ttl
}

// NormalizeQuery canonicalizes a search topic into a cache key:
// lowercased with whitespace runs collapsed to single spaces.
func NormalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}
