// Package websearch augments ambiguous queries with alias and keyword terms
// pulled from a web search provider.
package websearch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// ProviderBrave is the only supported provider.
	ProviderBrave = "brave"

	// Timeout bounds a single augmentation call.
	Timeout = 5 * time.Second

	maxTerms = 12
)

// Client fetches extra query terms from a web search provider.
type Client struct {
	provider string
	apiKey   string
}

// NewClient creates an augmentation client. An empty provider defaults to brave.
func NewClient(provider, apiKey string) *Client {
	provider = strings.TrimSpace(strings.ToLower(provider))
	if provider == "" {
		provider = ProviderBrave
	}
	return &Client{provider: provider, apiKey: apiKey}
}

// Augment returns alias/keyword terms related to the query, derived from the
// titles of the top web results. The caller owns the timeout.
func (c *Client) Augment(ctx context.Context, query string) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("missing query")
	}
	if strings.TrimSpace(c.apiKey) == "" {
		return nil, errors.New("missing web search api key")
	}

	var titles []string
	var err error
	switch c.provider {
	case ProviderBrave:
		titles, err = braveTitles(ctx, c.apiKey, query, 5)
	default:
		return nil, fmt.Errorf("unsupported web search provider %q", c.provider)
	}
	if err != nil {
		return nil, err
	}

	return extractTerms(query, titles), nil
}

// extractTerms tokenizes result titles and keeps terms not already present in
// the query, deduplicated, bounded by maxTerms.
func extractTerms(query string, titles []string) []string {
	queryLower := strings.ToLower(query)
	seen := make(map[string]bool)
	var terms []string
	for _, title := range titles {
		for _, tok := range strings.Fields(strings.ToLower(title)) {
			tok = strings.Trim(tok, ".,;:!?\"'()[]{}|-")
			if len(tok) < 3 || seen[tok] || strings.Contains(queryLower, tok) {
				continue
			}
			seen[tok] = true
			terms = append(terms, tok)
			if len(terms) >= maxTerms {
				return terms
			}
		}
	}
	return terms
}
