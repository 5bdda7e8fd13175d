package rank

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/linkhoard/linkhoard/internal/embeddings"
	"github.com/linkhoard/linkhoard/internal/model"
	"github.com/linkhoard/linkhoard/internal/store"
	"github.com/linkhoard/linkhoard/internal/websearch"
)

// Augmenter fetches extra alias/keyword terms for ambiguous queries.
// Implemented by websearch.Client.
type Augmenter interface {
	Augment(ctx context.Context, query string) ([]string, error)
}

// Engine turns a free-text query plus the bookmark collection into an
// ordered, explainable result set. All mutable state (clarify sessions, the
// embedding in-flight set) is carried by the Engine value, not by globals.
type Engine struct {
	store     store.Store
	embedder  embeddings.Embedder // nil disables semantic scoring
	augmenter Augmenter           // nil disables web augmentation
	refresher *Refresher
	sessions  *Sessions
	log       *slog.Logger
	now       func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithEmbedder enables semantic scoring.
func WithEmbedder(e embeddings.Embedder) Option {
	return func(eng *Engine) { eng.embedder = e }
}

// WithAugmenter enables web augmentation for ambiguous queries.
func WithAugmenter(a Augmenter) Option {
	return func(eng *Engine) { eng.augmenter = a }
}

// WithClock overrides the engine clock (tests).
func WithClock(now func() time.Time) Option {
	return func(eng *Engine) { eng.now = now }
}

// New creates a ranking engine over the given store.
func New(st store.Store, log *slog.Logger, opts ...Option) *Engine {
	if log == nil {
		log = slog.Default()
	}
	e := &Engine{
		store: st,
		log:   log,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.sessions = NewSessions(e.now)
	e.refresher = NewRefresher(st, e.embedder, log)
	return e
}

// Sessions exposes the clarify session table (tests and diagnostics).
func (e *Engine) Sessions() *Sessions { return e.sessions }

// Refresher exposes the embedding refresh scheduler.
func (e *Engine) Refresher() *Refresher { return e.refresher }

// Search runs the full ranking pipeline. Provider failures degrade to local
// scoring and never surface as errors; only malformed input and store
// failures are returned.
func (e *Engine) Search(ctx context.Context, req Request) (*Response, error) {
	limit := req.Limit
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 1 || limit > MaxLimit {
		return nil, ErrInvalidLimit
	}

	scope := req.Scope
	if scope == "" {
		scope = ScopeAll
	}

	settings, err := e.store.GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	threshold := settings.ConfidenceThreshold
	if threshold <= 0 {
		threshold = model.DefaultSettings().ConfidenceThreshold
	}

	all, err := e.store.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan items: %w", err)
	}

	var scoped, hiddenTrash []*model.Bookmark
	for _, b := range all {
		if inScope(b, scope) {
			scoped = append(scoped, b)
		} else if b.Status == model.StatusTrashed {
			hiddenTrash = append(hiddenTrash, b)
		}
	}

	resp := &Response{
		Mode: "direct",
		Trace: Trace{
			Query: req.Query,
		},
	}

	// A continuation carries the original query in its session.
	var sess *Session
	if req.SessionID != "" {
		sess = e.sessions.Get(req.SessionID)
	}
	effectiveQuery := strings.TrimSpace(req.Query)
	if effectiveQuery == "" && sess != nil {
		effectiveQuery = sess.Query
	}
	resp.Trace.EffectiveQuery = effectiveQuery

	// Empty-query fast path: most recently updated items, zero scores.
	if effectiveQuery == "" {
		resp.Trace.IntentType = string(IntentEmpty)
		resp.Trace.DecisionReason = "empty query: most recently updated items"
		resp.Items = recentItems(scoped, limit)
		resp.Explain = "no query given; returning recent items"
		// With no terms to match, every excluded trashed item counts.
		if scope != ScopeTrash && len(hiddenTrash) > 0 {
			resp.Hints = append(resp.Hints, fmt.Sprintf("%d item(s) in trash (excluded; search trash to include)", len(hiddenTrash)))
		}
		return resp, nil
	}

	answer := strings.TrimSpace(req.ClarificationAnswer)
	intent := classifyIntent(effectiveQuery, answer)
	resp.Trace.IntentType = string(intent)

	combined := effectiveQuery
	if answer != "" {
		combined += " " + answer
	}

	// Optional web augmentation, only for unanswered ambiguous queries.
	var webTerms []string
	if intent == IntentAmbiguous && answer == "" && settings.WebAugmentEnabled && e.augmenter != nil {
		wctx, cancel := context.WithTimeout(ctx, websearch.Timeout)
		terms, werr := e.augmenter.Augment(wctx, combined)
		cancel()
		if werr != nil {
			resp.Fallback = true
			resp.Trace.WebReason = fmt.Sprintf("web augmentation failed: %v", werr)
			resp.Hints = append(resp.Hints, "web augmentation unavailable; using local signals only")
		} else {
			webTerms = terms
			resp.Trace.WebUsed = true
		}
	}

	tokens := tokenize(combined)
	extra := append(expandTerms(tokens), webTerms...)
	resp.Trace.ExpandedTerms = extra
	q := newQueryTerms(combined, extra)

	// Query embedding; timeout or provider failure degrades to the proxy.
	var queryEmbedding []float32
	semanticAvailable := false
	if settings.SemanticEnabled && e.embedder != nil {
		ectx, cancel := context.WithTimeout(ctx, embeddings.DefaultTimeout)
		vec, eerr := e.embedder.Embed(ectx, combined)
		cancel()
		if eerr != nil {
			resp.Fallback = true
			resp.Hints = append(resp.Hints, "semantic search degraded: embedding provider unavailable")
			e.log.Warn("query embedding failed", "error", eerr)
		} else {
			queryEmbedding = vec
			semanticAvailable = true
		}
	}

	// Recall stage: cheap scores, keep the top max(6*limit, RecallFloor).
	type candidate struct {
		b     *model.Bookmark
		tier  int
		cheap float64
	}
	candidates := make([]candidate, 0, len(scoped))
	for _, b := range scoped {
		tier := exactTier(b, effectiveQuery)
		candidates = append(candidates, candidate{b: b, tier: tier, cheap: recallScore(b, q, tier)})
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.tier != b.tier {
			return a.tier > b.tier
		}
		if a.cheap != b.cheap {
			return a.cheap > b.cheap
		}
		if !a.b.UpdatedAt.Equal(b.b.UpdatedAt) {
			return a.b.UpdatedAt.After(b.b.UpdatedAt)
		}
		return a.b.ID < b.b.ID
	})
	recallCap := 6 * limit
	if recallCap < RecallFloor {
		recallCap = RecallFloor
	}
	if len(candidates) > recallCap {
		candidates = candidates[:recallCap]
	}

	// Full scoring over the recall set.
	weights := resolveWeights(settings.Weights, semanticAvailable)
	now := e.now()
	pendingEmbeds := 0
	rows := make([]RankedItem, 0, len(candidates))
	for _, c := range candidates {
		b := c.b
		row := RankedItem{
			Item:     b,
			Tier:     c.tier,
			Lexical:  lexicalScore(b, q),
			Taxonomy: taxonomyScore(b, q),
			Recency:  recencyScore(b, now),
			Semantic: semanticScore(b, q, queryEmbedding),
		}
		if settings.SemanticEnabled && needsEmbedding(b, e.embedder) && !model.PrivacyExcluded(b.URL) {
			pendingEmbeds++
			e.refresher.Request(b.ID)
		}
		row.Score = weights.Lexical*row.Lexical +
			weights.Semantic*row.Semantic +
			weights.Taxonomy*row.Taxonomy +
			weights.Recency*row.Recency
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Tier != b.Tier {
			return a.Tier > b.Tier
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.Item.UpdatedAt.Equal(b.Item.UpdatedAt) {
			return a.Item.UpdatedAt.After(b.Item.UpdatedAt)
		}
		return a.Item.ID < b.Item.ID
	})

	// Post-filter weak rows, unless that would empty the result set.
	filtered := rows[:0:0]
	for _, row := range rows {
		if passesPostFilter(row) {
			filtered = append(filtered, row)
		}
	}
	if len(filtered) == 0 && len(rows) > 0 {
		resp.Fallback = true
		resp.Trace.DecisionReason = "post-filter emptied results; using unfiltered ranking"
	} else {
		rows = filtered
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}

	conf := confidence(rows)
	resp.Confidence = conf

	// Clarification decision.
	clarified := false
	if settings.ClarifyOnLowConfidence && intent == IntentAmbiguous && answer == "" &&
		len(rows) > 1 && conf < threshold {
		options := clarifyOptions(rows)
		if len(options) > 1 {
			if sess == nil || sess.Query != effectiveQuery {
				sess = e.sessions.Open(effectiveQuery, scope, options)
			}
			resp.Mode = "clarify"
			resp.SessionID = sess.ID
			resp.ClarifyOptions = options
			resp.ClarifyingQuestion = fmt.Sprintf("Which of these are you looking for: %s?", strings.Join(options, ", "))
			resp.Trace.DecisionReason = fmt.Sprintf("ambiguous intent with confidence %.2f below threshold %.2f", conf, threshold)
			clarified = true
		}
	}
	if !clarified {
		// Any stale session for this query is discarded.
		e.sessions.DiscardByQuery(effectiveQuery)
		if sess != nil && answer != "" {
			e.sessions.Discard(sess.ID)
		}
		if resp.Trace.DecisionReason == "" {
			resp.Trace.DecisionReason = fmt.Sprintf("direct ranking with confidence %.2f", conf)
		}
	}

	for i := range rows {
		rows[i].Why = whyMatched(rows[i])
	}
	resp.Items = rows
	resp.Trace.ScoreBreakdown = breakdown(rows)
	resp.Explain = explain(rows, semanticAvailable)

	if scope != ScopeTrash {
		if n := countMatchingTrash(hiddenTrash, q); n > 0 {
			resp.Hints = append(resp.Hints, fmt.Sprintf("%d matching item(s) in trash (excluded; search trash to include)", n))
		}
	}
	if pendingEmbeds > 0 {
		resp.Hints = append(resp.Hints, fmt.Sprintf("%d item(s) awaiting embeddings; semantic scores are approximate", pendingEmbeds))
	}

	return resp, nil
}

// needsEmbedding reports whether an item's vector is missing or stale for the
// active embedder.
func needsEmbedding(b *model.Bookmark, embedder embeddings.Embedder) bool {
	if embedder == nil {
		return false
	}
	if len(b.Embedding) == 0 {
		return true
	}
	return b.EmbeddingModel != embedder.Model()
}

// recentItems is the empty-query fast path: newest first, zero scores.
func recentItems(items []*model.Bookmark, limit int) []RankedItem {
	sorted := append([]*model.Bookmark(nil), items...)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].UpdatedAt.Equal(sorted[j].UpdatedAt) {
			return sorted[i].UpdatedAt.After(sorted[j].UpdatedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	rows := make([]RankedItem, len(sorted))
	for i, b := range sorted {
		rows[i] = RankedItem{Item: b, Why: "recently updated"}
	}
	return rows
}

// whyMatched derives the human-readable reasoning from which signals cleared
// their thresholds.
func whyMatched(r RankedItem) string {
	var reasons []string
	switch r.Tier {
	case TierTitleExact:
		reasons = append(reasons, "exact title match")
	case TierURLMatch:
		reasons = append(reasons, "URL match")
	case TierTitleSubstr:
		reasons = append(reasons, "title contains query")
	}
	if r.Lexical >= minLexical {
		reasons = append(reasons, "keyword match")
	}
	if r.Semantic >= minSemantic {
		reasons = append(reasons, "semantic similarity")
	}
	if r.Taxonomy >= minTaxonomy {
		reasons = append(reasons, "category/tag match")
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "weak overall match")
	}
	return strings.Join(reasons, ", ")
}

func breakdown(rows []RankedItem) []BreakdownRow {
	n := len(rows)
	if n > 8 {
		n = 8
	}
	out := make([]BreakdownRow, n)
	for i := 0; i < n; i++ {
		r := rows[i]
		out[i] = BreakdownRow{
			ID:       r.Item.ID,
			Title:    r.Item.Title,
			Tier:     r.Tier,
			Lexical:  r.Lexical,
			Semantic: r.Semantic,
			Taxonomy: r.Taxonomy,
			Recency:  r.Recency,
			Final:    r.Score,
		}
	}
	return out
}

func explain(rows []RankedItem, semanticAvailable bool) string {
	if len(rows) == 0 {
		return "no items matched the query"
	}
	base := fmt.Sprintf("ranked %d item(s); top result: %s", len(rows), whyMatched(rows[0]))
	if !semanticAvailable {
		base += " (semantic scoring via local proxy)"
	}
	return base
}

func countMatchingTrash(trash []*model.Bookmark, q queryTerms) int {
	n := 0
	for _, b := range trash {
		if recallScore(b, q, TierNone) > 0 {
			n++
		}
	}
	return n
}
