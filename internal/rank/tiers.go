package rank

import (
	"strings"

	"github.com/linkhoard/linkhoard/internal/model"
)

// Exact-match tiers override continuous scoring when a query matches a title
// or URL precisely.
const (
	TierNone        = 0
	TierTitleSubstr = 1
	TierURLMatch    = 2
	TierTitleExact  = 3
)

// exactTier computes the discrete exact-match tier for an item.
func exactTier(b *model.Bookmark, query string) int {
	q := normalizeText(query)
	if q == "" {
		return TierNone
	}

	title := normalizeText(b.Title)
	if title != "" && title == q {
		return TierTitleExact
	}

	if looksLikeURL(query) {
		key := model.NormalizeURLKey(query)
		target := model.DedupeKey(b)
		if key != "" && target != "" && (target == key || strings.HasPrefix(target, key)) {
			return TierURLMatch
		}
	}

	if title != "" && strings.Contains(title, q) {
		return TierTitleSubstr
	}
	return TierNone
}

// looksLikeURL reports whether the query is plausibly a URL rather than text.
func looksLikeURL(s string) bool {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || strings.ContainsAny(s, " \t") {
		return false
	}
	if strings.Contains(s, "://") || strings.HasPrefix(s, "www.") {
		return true
	}
	// bare domains like example.com/path
	dot := strings.IndexByte(s, '.')
	return dot > 0 && dot < len(s)-1
}

// normalizeText lowercases and collapses whitespace for exact comparison.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
