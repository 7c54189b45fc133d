package usecase

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain"
	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain/model"
	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain/ports/adapter"
	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain/ports/repository"
	"github.com/mattbell19/wordgen-v2-production-sub002/internal/infra/metrics"
)

// Compile-time check
var _ AugmentUseCase = (*augmentUC)(nil)

// AugmentUseCase mediates quota-gated, cached access to the web-search
// provider. Every failure path degrades to "no links": absence of
// augmentation must never block generation.
type AugmentUseCase interface {
	DiscoverLinks(ctx context.Context, ownerID, topic string, forceRefresh bool) ([]model.ReferenceLink, error)
}

type augmentUC struct {
	cache  repository.LinkCacheRepository
	search adapter.WebSearchAdapter
	quota  QuotaTracker
	ttl    time.Duration
	topN   int
	now    func() time.Time
	log    *zerolog.Logger
}

func NewAugmentUseCase(
	cache repository.LinkCacheRepository,
	search adapter.WebSearchAdapter,
	quota QuotaTracker,
	ttl time.Duration,
	topN int,
	log *zerolog.Logger,
) *augmentUC {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	if topN <= 0 {
		topN = 5
	}
	return &augmentUC{
		cache:  cache,
		search: search,
		quota:  quota,
		ttl:    ttl,
		topN:   topN,
		now:    time.Now,
		log:    log,
	}
}

func (a *augmentUC) DiscoverLinks(ctx context.Context, ownerID, topic string, forceRefresh bool) ([]model.ReferenceLink, error) {
	ok, err := a.quota.TryConsume(ctx, ownerID)
	if err != nil {
		a.log.Warn().Err(err).Str("owner_id", ownerID).Msg("quota check failed; skipping augmentation")
		return nil, nil
	}
	if !ok {
		a.log.Debug().Str("owner_id", ownerID).Msg("search quota exhausted; skipping augmentation")
		return nil, nil
	}

	key := model.NormalizeQuery(topic)
	if !forceRefresh {
		if entry, err := a.cache.Get(ctx, key); err == nil && !entry.Stale(a.now(), a.ttl) {
			metrics.IncLinkCache("hit")
			return entry.Results, nil
		}
	}
	metrics.IncLinkCache("miss")

	raw, err := a.search.Search(ctx, topic)
	if err != nil {
		// AugmentationUnavailable is logged, never surfaced to the job.
		a.log.Warn().Err(err).Str("topic", topic).
			Msg(domain.ErrAugmentationUnavailable.Error())
		metrics.IncLinkCache("search_error")
		return nil, nil
	}

	links := RankLinks(topic, raw, a.topN)
	if len(links) > 0 {
		// a force-refreshed hit is only overwritten on success
		entry := &model.LinkCacheEntry{Key: key, Results: links, FetchedAt: a.now()}
		if err := a.cache.Put(ctx, entry); err != nil {
			a.log.Warn().Err(err).Str("key", key).Msg("link cache write failed")
		}
	}
	return links, nil
}

// excludedDomains are never used as references regardless of rank.
var excludedDomains = []string{
	"facebook.com", "twitter.com", "x.com", "instagram.com",
	"tiktok.com", "pinterest.com", "reddit.com", "linkedin.com",
}

// authority domains trusted above the default, matched by suffix.
var authorityDomains = map[string]int{
	"wikipedia.org":     85,
	"reuters.com":       82,
	"bbc.com":           80,
	"nytimes.com":       80,
	"forbes.com":        78,
	"hbr.org":           80,
	"nature.com":        90,
	"sciencedirect.com": 88,
	"statista.com":      82,
	"mckinsey.com":      80,
	"gartner.com":       80,
}

// RankLinks validates raw search hits and ranks the survivors:
// insecure and excluded-domain URLs are dropped, authority-domain
// match is weighted above raw relevance, and the top n are returned.
func RankLinks(topic string, raw []adapter.SearchResult, n int) []model.ReferenceLink {
	links := make([]model.ReferenceLink, 0, len(raw))
	for _, r := range raw {
		host, ok := validateLinkURL(r.URL)
		if !ok {
			continue
		}
		links = append(links, model.ReferenceLink{
			URL:            r.URL,
			Title:          r.Title,
			Snippet:        r.Snippet,
			RelevanceScore: relevanceScore(topic, r.Title, r.Snippet),
			AuthorityScore: authorityScore(host),
		})
	}
	sort.SliceStable(links, func(i, j int) bool {
		return links[i].AuthorityScore*2+links[i].RelevanceScore >
			links[j].AuthorityScore*2+links[j].RelevanceScore
	})
	if len(links) > n {
		links = links[:n]
	}
	return links
}

func validateLinkURL(raw string) (host string, ok bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return "", false
	}
	host = strings.ToLower(strings.TrimPrefix(u.Host, "www."))
	for _, d := range excludedDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return "", false
		}
	}
	return host, true
}

func authorityScore(host string) int {
	for d, score := range authorityDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return score
		}
	}
	if strings.HasSuffix(host, ".gov") || strings.HasSuffix(host, ".edu") {
		return 95
	}
	if strings.HasSuffix(host, ".org") {
		return 65
	}
	return 50
}

// relevanceScore measures topic term coverage: title matches weigh
// twice as much as snippet matches.
func relevanceScore(topic, title, snippet string) int {
	terms := strings.Fields(model.NormalizeQuery(topic))
	if len(terms) == 0 {
		return 0
	}
	title = strings.ToLower(title)
	snippet = strings.ToLower(snippet)
	score := 0
	for _, t := range terms {
		if len(t) < 3 {
			continue
		}
		if strings.Contains(title, t) {
			score += 2
		}
		if strings.Contains(snippet, t) {
			score++
		}
	}
	maxScore := 3 * len(terms)
	return clampScore(score * 100 / maxScore)
}

func clampScore(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
