package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.WebSearchAdapter = (*SerperAdapter)(nil)

// SerperAdapter implements adapter.WebSearchAdapter against the Serper
// JSON API (https://serper.dev). POST /search with X-API-KEY.
type SerperAdapter struct {
	apiKey string
	base   string
	client *http.Client
}

func NewSerperAdapter(apiKey, base string) (*SerperAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("serper api key empty")
	}
	if base == "" {
		base = "https://google.serper.dev"
	}
	return &SerperAdapter{
		apiKey: apiKey,
		base:   strings.TrimRight(base, "/"),
		client: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (s *SerperAdapter) Search(ctx context.Context, query string) ([]adapter.SearchResult, error) {
	body, _ := json.Marshal(struct {
		Q string `json:"q"`
	}{Q: query})

	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, s.base+"/search", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("serper http %d", resp.StatusCode)
	}

	var payload struct {
		Organic []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"organic"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	out := make([]adapter.SearchResult, 0, len(payload.Organic))
	for _, o := range payload.Organic {
		out = append(out, adapter.SearchResult{
			Title:   o.Title,
			URL:     o.Link,
			Snippet: o.Snippet,
		})
	}
	return out, nil
}
