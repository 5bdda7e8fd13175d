// Package classify assigns a category and tags to a bookmark, either via an
// OpenAI-compatible chat provider or via keyword rules when no provider is
// configured.
package classify

import (
	"context"
	"sort"
	"strings"

	"github.com/linkhoard/linkhoard/internal/model"
)

// Result is a structured classification outcome.
type Result struct {
	Category string   `json:"category"`
	Tags     []string `json:"tags,omitempty"`
}

// Classifier assigns a category and tags to a bookmark given the known
// category rules.
type Classifier interface {
	Classify(ctx context.Context, b *model.Bookmark, rules []*model.CategoryRule) (Result, error)
}

// RuleClassifier classifies by keyword containment against the category
// rules. It is the offline fallback when no chat provider is configured.
type RuleClassifier struct{}

var _ Classifier = (*RuleClassifier)(nil)

// Classify picks the rule with the most keyword hits in the bookmark's
// search text. Ties break by rule name so the outcome is deterministic.
func (RuleClassifier) Classify(_ context.Context, b *model.Bookmark, rules []*model.CategoryRule) (Result, error) {
	text := b.SearchText
	if text == "" {
		text = strings.ToLower(b.Title + " " + b.URL)
	}

	type scored struct {
		name string
		hits int
		tags []string
	}
	var best scored
	for _, rule := range rules {
		var hits int
		var matched []string
		for _, kw := range rule.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			if strings.Contains(text, kw) {
				hits++
				matched = append(matched, kw)
			}
		}
		if hits > best.hits || (hits == best.hits && hits > 0 && rule.Name < best.name) {
			best = scored{name: rule.Name, hits: hits, tags: matched}
		}
	}
	if best.hits == 0 {
		return Result{}, nil
	}
	sort.Strings(best.tags)
	return Result{Category: best.name, Tags: best.tags}, nil
}
