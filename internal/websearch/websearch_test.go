package websearch

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTerms(t *testing.T) {
	cases := []struct {
		name   string
		query  string
		titles []string
		want   []string
	}{
		{
			name:   "keeps novel terms",
			query:  "ai",
			titles: []string{"Best AI Newsletters and Tools"},
			want:   []string{"best", "newsletters", "and", "tools"},
		},
		{
			name:   "skips terms already in the query",
			query:  "kubernetes operators",
			titles: []string{"Kubernetes Operators explained"},
			want:   []string{"explained"},
		},
		{
			name:   "skips short tokens",
			query:  "db",
			titles: []string{"Go vs DB: an overview"},
			want:   []string{"overview"},
		},
		{
			name:   "dedupes across titles",
			query:  "grafana",
			titles: []string{"Grafana dashboards guide", "Another dashboards guide"},
			want:   []string{"dashboards", "guide", "another"},
		},
		{
			name:   "strips punctuation",
			query:  "rust",
			titles: []string{"Rust (the language), explained!"},
			want:   []string{"the", "language", "explained"},
		},
		{
			name:  "no titles",
			query: "anything",
			want:  nil,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, extractTerms(tc.query, tc.titles))
		})
	}
}

func TestExtractTermsBounded(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&sb, "term%02d ", i)
	}
	terms := extractTerms("query", []string{sb.String()})
	assert.Len(t, terms, maxTerms)
}

func TestAugmentValidation(t *testing.T) {
	ctx := context.Background()

	_, err := NewClient("", "key").Augment(ctx, "   ")
	assert.Error(t, err)

	_, err = NewClient("", "").Augment(ctx, "ai tools")
	assert.Error(t, err)

	_, err = NewClient("bing", "key").Augment(ctx, "ai tools")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported")
}

func TestNewClientDefaultsProvider(t *testing.T) {
	assert.Equal(t, ProviderBrave, NewClient("", "key").provider)
	assert.Equal(t, ProviderBrave, NewClient(" Brave ", "key").provider)
}
