package rank

// synonyms is a small fixed table of domain-specific aliases used to expand
// very short queries. Longer queries skip expansion to avoid over-recall.
var synonyms = map[string][]string{
	"ai":      {"agent", "llm", "gpt", "ml", "model"},
	"llm":     {"ai", "gpt", "model"},
	"js":      {"javascript", "node", "typescript"},
	"db":      {"database", "sql", "postgres"},
	"doc":     {"docs", "documentation", "reference"},
	"docs":    {"documentation", "reference", "manual"},
	"repo":    {"github", "git", "source"},
	"video":   {"youtube", "watch", "talk"},
	"paper":   {"arxiv", "research", "pdf"},
	"news":    {"article", "blog", "post"},
	"k8s":     {"kubernetes", "cluster", "helm"},
	"design":  {"figma", "ui", "ux"},
	"crypto":  {"bitcoin", "ethereum", "blockchain"},
	"article": {"blog", "post", "essay"},
}

// maxExpansionTokens is the query length above which expansion is skipped.
const maxExpansionTokens = 2

// expandTerms returns synonym terms for short queries. The returned slice
// excludes terms already present in the query.
func expandTerms(tokens []string) []string {
	if len(tokens) == 0 || len(tokens) > maxExpansionTokens {
		return nil
	}
	present := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		present[t] = true
	}
	var out []string
	for _, t := range tokens {
		for _, syn := range synonyms[t] {
			if present[syn] {
				continue
			}
			present[syn] = true
			out = append(out, syn)
		}
	}
	return out
}
