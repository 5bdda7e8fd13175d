package rank

import (
	"math"
	"strings"
	"time"

	"github.com/linkhoard/linkhoard/internal/embeddings"
	"github.com/linkhoard/linkhoard/internal/model"
)

// RecencyHalfLife is the exponential-decay half-life for the recency signal.
const RecencyHalfLife = 45 * 24 * time.Hour

// Post-filter thresholds: a row clears the filter if it has an exact-match
// tier or any continuous signal above its threshold.
const (
	minLexical  = 0.12
	minSemantic = 0.16
	minTaxonomy = 0.20
)

// queryTerms is the tokenized query plus expansion terms, precomputed once
// per request and shared by the scorers.
type queryTerms struct {
	raw      string   // effective query, trimmed
	phrase   string   // lowercased full query
	tokens   []string // query tokens only
	expanded []string // query tokens + synonym/web terms
}

func newQueryTerms(query string, extra []string) queryTerms {
	tokens := tokenize(query)
	expanded := make([]string, 0, len(tokens)+len(extra))
	expanded = append(expanded, tokens...)
	expanded = append(expanded, extra...)
	return queryTerms{
		raw:      strings.TrimSpace(query),
		phrase:   strings.ToLower(strings.TrimSpace(query)),
		tokens:   tokens,
		expanded: expanded,
	}
}

// lexicalScore measures weighted substring containment in search text, title,
// and domain, plus token hits. Pure; range [0,1].
func lexicalScore(b *model.Bookmark, q queryTerms) float64 {
	if q.phrase == "" {
		return 0
	}
	title := strings.ToLower(b.Title)
	score := 0.0
	if strings.Contains(title, q.phrase) {
		score += 0.45
	}
	if strings.Contains(b.SearchText, q.phrase) {
		score += 0.25
	}
	if b.Domain != "" && strings.Contains(strings.ToLower(b.Domain), q.phrase) {
		score += 0.20
	}
	score += 0.35 * tokenHitRatio(b.SearchText, q.expanded)
	return clamp01(score)
}

// taxonomyScore measures token containment in the category and tags.
// Pure; range [0,1].
func taxonomyScore(b *model.Bookmark, q queryTerms) float64 {
	if len(q.expanded) == 0 {
		return 0
	}
	category := strings.ToLower(b.Category)
	taxText := category
	for _, t := range b.Tags {
		taxText += " " + strings.ToLower(t)
	}
	if strings.TrimSpace(taxText) == "" {
		return 0
	}

	score := 0.8 * tokenHitRatio(taxText, q.expanded)
	for _, tok := range q.tokens {
		if tok == category {
			score += 0.3
			break
		}
	}
	return clamp01(score)
}

// recencyScore decays exponentially with the item's age. Pure; range (0,1].
func recencyScore(b *model.Bookmark, now time.Time) float64 {
	age := now.Sub(b.UpdatedAt)
	if age <= 0 {
		return 1
	}
	return math.Exp2(-float64(age) / float64(RecencyHalfLife))
}

// semanticScore compares the query embedding against the item embedding when
// both exist and dimensions match; otherwise it falls back to a local
// lexical-overlap proxy (token hit ratio with a phrase-match bonus).
func semanticScore(b *model.Bookmark, q queryTerms, queryEmbedding []float32) float64 {
	if len(queryEmbedding) > 0 && len(b.Embedding) == len(queryEmbedding) {
		return clamp01(embeddings.Cosine(queryEmbedding, b.Embedding))
	}
	return semanticProxy(b, q)
}

// semanticProxy is the embedding-free stand-in for semantic similarity.
func semanticProxy(b *model.Bookmark, q queryTerms) float64 {
	if len(q.tokens) == 0 {
		return 0
	}
	score := tokenHitRatio(b.SearchText, q.tokens)
	if q.phrase != "" && strings.Contains(b.SearchText, q.phrase) {
		score += 0.25
	}
	return clamp01(score)
}

// tokenHitRatio is the fraction of terms present in text.
func tokenHitRatio(text string, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	matched := 0
	for _, term := range terms {
		if strings.Contains(text, term) {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}

// recallScore is the cheap first-pass score used to cut the candidate set.
func recallScore(b *model.Bookmark, q queryTerms, tier int) float64 {
	score := float64(tier)
	if q.phrase != "" && strings.Contains(b.SearchText, q.phrase) {
		score += 1
	}
	score += tokenHitRatio(b.SearchText, q.expanded)
	return score
}

// resolveWeights normalizes the configured weights to sum to 1. When the
// semantic signal is unavailable its weight is zeroed and the remaining three
// renormalized; if they are all zero the fallback split is lexical 0.5,
// taxonomy 0.3, recency 0.2.
func resolveWeights(w model.Weights, semanticAvailable bool) model.Weights {
	if !semanticAvailable {
		w.Semantic = 0
	}
	if w.Lexical < 0 {
		w.Lexical = 0
	}
	if w.Semantic < 0 {
		w.Semantic = 0
	}
	if w.Taxonomy < 0 {
		w.Taxonomy = 0
	}
	if w.Recency < 0 {
		w.Recency = 0
	}

	total := w.Lexical + w.Semantic + w.Taxonomy + w.Recency
	if total == 0 {
		if semanticAvailable {
			d := model.DefaultSettings().Weights
			w, total = d, d.Lexical+d.Semantic+d.Taxonomy+d.Recency
		} else {
			w = model.Weights{Lexical: 0.5, Taxonomy: 0.3, Recency: 0.2}
			total = 1
		}
	}

	w.Lexical /= total
	w.Semantic /= total
	w.Taxonomy /= total
	w.Recency /= total
	return w
}

// passesPostFilter drops rows that clear no signal threshold at all.
func passesPostFilter(r RankedItem) bool {
	return r.Tier > TierNone ||
		r.Lexical >= minLexical ||
		r.Semantic >= minSemantic ||
		r.Taxonomy >= minTaxonomy
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
