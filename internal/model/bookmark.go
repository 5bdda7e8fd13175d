// Package model defines the core bookmark data types.
package model

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a bookmark.
type Status string

const (
	StatusInbox      Status = "inbox"
	StatusAnalyzing  Status = "analyzing"
	StatusClassified Status = "classified"
	StatusError      Status = "error"
	StatusTrashed    Status = "trashed"
)

// SyncState tracks a bookmark's replication state against the remote backend.
type SyncState string

const (
	SyncDirty    SyncState = "dirty"
	SyncSynced   SyncState = "synced"
	SyncConflict SyncState = "conflict"
)

const (
	// MaxTagLength caps a single tag.
	MaxTagLength = 40
	// MaxTags caps the tag set per bookmark.
	MaxTags = 24
	// MaxCategoryLength caps the normalized category string.
	MaxCategoryLength = 80
)

// Bookmark represents a saved bookmark record.
type Bookmark struct {
	ID           string `json:"id"`
	URL          string `json:"url"`
	CanonicalURL string `json:"canonical_url,omitempty"`
	Title        string `json:"title"`
	Domain       string `json:"domain,omitempty"`
	Favicon      string `json:"favicon,omitempty"`
	Summary      string `json:"summary,omitempty"`
	Note         string `json:"note,omitempty"`

	Status   Status   `json:"status"`
	Category string   `json:"category,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Pinned   bool     `json:"pinned,omitempty"`
	Locked   bool     `json:"locked,omitempty"`

	SaveCount   int        `json:"save_count,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	LastSavedAt time.Time  `json:"last_saved_at,omitempty"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"` // set iff Status == trashed

	// SearchText is a denormalized lowercase concatenation of the searchable
	// fields. It must be recomputed on every mutation.
	SearchText string `json:"search_text,omitempty"`

	Embedding      []float32  `json:"-"`
	EmbeddingModel string     `json:"embedding_model,omitempty"`
	EmbeddedAt     *time.Time `json:"embedded_at,omitempty"`

	SyncState       SyncState  `json:"sync_state"`
	RemoteID        string     `json:"remote_id,omitempty"`
	RemoteUpdatedAt *time.Time `json:"remote_updated_at,omitempty"`
}

// RebuildSearchText recomputes the denormalized search text from the other
// fields. Callers must invoke this after any mutation of a searchable field.
func (b *Bookmark) RebuildSearchText() {
	parts := []string{b.Title, b.URL, b.Domain, b.Summary, b.Note, b.Category}
	parts = append(parts, b.Tags...)
	var sb strings.Builder
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strings.ToLower(p))
	}
	b.SearchText = sb.String()
}

// Touch bumps UpdatedAt, marks the record dirty for sync, and recomputes
// the search text.
func (b *Bookmark) Touch(now time.Time) {
	b.UpdatedAt = now
	b.SyncState = SyncDirty
	b.RebuildSearchText()
}

// Trash transitions the bookmark to trashed. Locked bookmarks never
// transition to trashed.
func (b *Bookmark) Trash(now time.Time) bool {
	if b.Locked {
		return false
	}
	b.Status = StatusTrashed
	t := now
	b.DeletedAt = &t
	b.Touch(now)
	return true
}

// Restore moves a trashed bookmark back to the inbox and clears DeletedAt,
// preserving the invariant that DeletedAt is set iff the status is trashed.
func (b *Bookmark) Restore(now time.Time) {
	if b.Status != StatusTrashed {
		return
	}
	b.Status = StatusInbox
	b.DeletedAt = nil
	b.Touch(now)
}

// NormalizeCategory trims and truncates a free-text category.
func NormalizeCategory(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > MaxCategoryLength {
		s = s[:MaxCategoryLength]
	}
	return s
}

// NormalizeTags lowercases, trims, dedupes, and bounds a tag set.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if len(t) > MaxTagLength {
			t = t[:MaxTagLength]
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
		if len(out) >= MaxTags {
			break
		}
	}
	return out
}

// UnionTags merges two tag sets, deduplicated, preserving the order of a
// then the unseen members of b.
func UnionTags(a, b []string) []string {
	merged := make([]string, 0, len(a)+len(b))
	merged = append(merged, a...)
	merged = append(merged, b...)
	return NormalizeTags(merged)
}
