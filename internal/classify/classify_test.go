package classify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkhoard/linkhoard/internal/model"
)

func ruleSet() []*model.CategoryRule {
	return []*model.CategoryRule{
		{Name: "dev tools", Keywords: []string{"github", "git", "terminal"}},
		{Name: "reading", Keywords: []string{"article", "essay"}},
		{Name: "aa broad", Keywords: []string{"git"}},
	}
}

func TestRuleClassifier(t *testing.T) {
	cases := []struct {
		name     string
		bookmark model.Bookmark
		want     Result
	}{
		{
			name:     "most hits wins",
			bookmark: model.Bookmark{Title: "GitHub git workflows", URL: "https://github.com/x"},
			want:     Result{Category: "dev tools", Tags: []string{"git", "github"}},
		},
		{
			name:     "tie breaks by name",
			bookmark: model.Bookmark{Title: "Plain git notes", URL: "https://example.com/git"},
			want:     Result{Category: "aa broad", Tags: []string{"git"}},
		},
		{
			name:     "no hits yields empty result",
			bookmark: model.Bookmark{Title: "Cooking blog", URL: "https://food.example.com"},
			want:     Result{},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := tc.bookmark
			b.RebuildSearchText()
			got, err := RuleClassifier{}.Classify(context.Background(), &b, ruleSet())
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRuleClassifierNoRules(t *testing.T) {
	b := &model.Bookmark{Title: "Anything", URL: "https://example.com"}
	b.RebuildSearchText()
	got, err := RuleClassifier{}.Classify(context.Background(), b, nil)
	require.NoError(t, err)
	assert.Equal(t, Result{}, got)
}

func TestParseResult(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    Result
		wantErr bool
	}{
		{
			name:    "bare object",
			content: `{"category": "dev tools", "tags": ["git", "ci"]}`,
			want:    Result{Category: "dev tools", Tags: []string{"git", "ci"}},
		},
		{
			name:    "code fenced",
			content: "```json\n{\"category\": \"reading\", \"tags\": []}\n```",
			want:    Result{Category: "reading", Tags: []string{}},
		},
		{
			name:    "surrounding prose",
			content: `Sure! Here is the classification: {"category": "news"} Hope that helps.`,
			want:    Result{Category: "news", Tags: []string{}},
		},
		{
			name:    "tags normalized",
			content: `{"category": " Dev Tools ", "tags": ["Git", "git", " CI "]}`,
			want:    Result{Category: "Dev Tools", Tags: []string{"git", "ci"}},
		},
		{
			name:    "no object",
			content: "I cannot classify this.",
			wantErr: true,
		},
		{
			name:    "malformed object",
			content: `{"category": `,
			wantErr: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseResult(tc.content)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestChatClassifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Contains(t, req.Messages[1].Content, "dev tools")
		assert.Contains(t, req.Messages[1].Content, "My Project")

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{
					"content": `{"category": "dev tools", "tags": ["github"]}`,
				}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewChatClassifier(srv.URL, "test-key", "test-model")
	b := &model.Bookmark{Title: "My Project", URL: "https://github.com/me/project"}
	got, err := c.Classify(context.Background(), b, ruleSet())
	require.NoError(t, err)
	assert.Equal(t, Result{Category: "dev tools", Tags: []string{"github"}}, got)
}

func TestChatClassifierErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewChatClassifier(srv.URL, "", "test-model")
	_, err := c.Classify(context.Background(), &model.Bookmark{Title: "x", URL: "https://example.com"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
