// Package rank implements the hybrid ranking and clarification engine.
//
// A query is run through a fixed pipeline: scope filtering, intent
// classification, optional web augmentation, synonym expansion, a cheap
// recall stage, full scoring by an ordered list of pure scorers, a weighted
// combination step, and a confidence model that may open a clarification
// session instead of committing to the ranking.
package rank

import (
	"errors"

	"github.com/linkhoard/linkhoard/internal/model"
)

// Scope restricts which bookmarks a query considers.
type Scope string

const (
	ScopeAll     Scope = "all"     // everything except trash
	ScopeInbox   Scope = "inbox"   // inbox, analyzing, error
	ScopeLibrary Scope = "library" // classified
	ScopeTrash   Scope = "trash"   // trash is opt-in only
)

const (
	// DefaultLimit is used when the request does not set one.
	DefaultLimit = 80
	// MaxLimit bounds a single request.
	MaxLimit = 200
	// MaxClarifyOptions bounds the disambiguation options offered.
	MaxClarifyOptions = 4
	// RecallFloor is the minimum recall set size.
	RecallFloor = 120
)

// ErrInvalidLimit rejects a request whose limit is out of range.
var ErrInvalidLimit = errors.New("limit must be between 1 and 200")

// Request is a ranking query.
type Request struct {
	Query               string `json:"query"`
	Scope               Scope  `json:"scope"`
	Limit               int    `json:"limit,omitempty"`
	ClarificationAnswer string `json:"clarificationAnswer,omitempty"`
	SessionID           string `json:"sessionId,omitempty"`
}

// RankedItem is one scored result row.
type RankedItem struct {
	Item     *model.Bookmark `json:"item"`
	Score    float64         `json:"score"`
	Tier     int             `json:"tier"`
	Lexical  float64         `json:"lexical"`
	Semantic float64         `json:"semantic"`
	Taxonomy float64         `json:"taxonomy"`
	Recency  float64         `json:"recency"`
	Why      string          `json:"why"`
}

// BreakdownRow is one entry of the trace's score breakdown.
type BreakdownRow struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Tier     int     `json:"tier"`
	Lexical  float64 `json:"lexical"`
	Semantic float64 `json:"semantic"`
	Taxonomy float64 `json:"taxonomy"`
	Recency  float64 `json:"recency"`
	Final    float64 `json:"final"`
}

// Trace explains how the response was produced.
type Trace struct {
	Query          string         `json:"query"`
	EffectiveQuery string         `json:"effectiveQuery"`
	IntentType     string         `json:"intentType"`
	WebUsed        bool           `json:"webUsed"`
	WebReason      string         `json:"webReason,omitempty"`
	ExpandedTerms  []string       `json:"expandedTerms,omitempty"`
	DecisionReason string         `json:"decisionReason"`
	ScoreBreakdown []BreakdownRow `json:"scoreBreakdown,omitempty"`
}

// Response is the ranking result.
type Response struct {
	Items              []RankedItem `json:"items"`
	Mode               string       `json:"mode"` // "direct" or "clarify"
	Confidence         float64      `json:"confidence"`
	ClarifyingQuestion string       `json:"clarifyingQuestion,omitempty"`
	ClarifyOptions     []string     `json:"clarifyOptions,omitempty"`
	SessionID          string       `json:"sessionId,omitempty"`
	Trace              Trace        `json:"trace"`
	Fallback           bool         `json:"fallback"`
	Explain            string       `json:"explain,omitempty"`
	Hints              []string     `json:"hints,omitempty"`
}

// inScope reports whether a bookmark belongs to the requested scope.
// Trash is opt-in: any other scope excludes trashed records.
func inScope(b *model.Bookmark, scope Scope) bool {
	switch scope {
	case ScopeTrash:
		return b.Status == model.StatusTrashed
	case ScopeInbox:
		return b.Status == model.StatusInbox || b.Status == model.StatusAnalyzing || b.Status == model.StatusError
	case ScopeLibrary:
		return b.Status == model.StatusClassified
	default:
		return b.Status != model.StatusTrashed
	}
}
