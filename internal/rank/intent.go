package rank

import "strings"

// Intent is the heuristic classification of a query.
type Intent string

const (
	IntentEmpty     Intent = "empty"
	IntentExplicit  Intent = "explicit"
	IntentAmbiguous Intent = "ambiguous"
)

// temporalTokens mark "what's hot right now" style queries.
var temporalTokens = map[string]bool{
	"latest": true, "recent": true, "new": true, "newest": true,
	"trending": true, "hot": true, "popular": true,
	"today": true, "yesterday": true, "week": true, "now": true,
}

// deicticTokens are pronoun-like references to something outside the query.
var deicticTokens = map[string]bool{
	"that": true, "this": true, "it": true, "those": true,
	"these": true, "one": true, "thing": true, "stuff": true,
}

// genericEntityTokens name a broad class of items rather than a specific one.
var genericEntityTokens = map[string]bool{
	"tool": true, "tools": true, "app": true, "apps": true,
	"site": true, "sites": true, "page": true, "pages": true,
	"link": true, "links": true, "ai": true, "library": true,
	"libraries": true, "framework": true, "service": true,
}

// classifyIntent classifies a query as empty, explicit, or ambiguous.
// Supplying a clarification answer always forces explicit.
func classifyIntent(query, clarificationAnswer string) Intent {
	tokens := tokenize(query)
	if len(tokens) == 0 {
		return IntentEmpty
	}
	if strings.TrimSpace(clarificationAnswer) != "" {
		return IntentExplicit
	}

	hasGeneric := false
	hasSpecific := false
	for _, tok := range tokens {
		if temporalTokens[tok] || deicticTokens[tok] {
			return IntentAmbiguous
		}
		if genericEntityTokens[tok] {
			hasGeneric = true
			continue
		}
		// A specific token is any alphanumeric token of length >= 4 that
		// is not one of the vague classes above.
		if len(tok) >= 4 {
			hasSpecific = true
		}
	}
	if hasGeneric && !hasSpecific {
		return IntentAmbiguous
	}
	return IntentExplicit
}

// tokenize splits a query into lowercase terms, trimming punctuation and
// filtering single-character fragments.
func tokenize(s string) []string {
	words := strings.Fields(strings.ToLower(s))
	terms := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.Trim(w, ".,;:!?\"'()[]{}")
		if len(w) >= 2 {
			terms = append(terms, w)
		}
	}
	return terms
}
