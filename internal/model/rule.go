package model

import (
	"strings"
	"time"
)

// CategoryRule maps keywords to a category, maintained by the user or the
// classifier and replicated to the remote backend. The canonical name is the
// cross-replica identity of a rule.
type CategoryRule struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"` // canonical, lowercased
	Description string    `json:"description,omitempty"`
	Keywords    []string  `json:"keywords,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	SyncState   SyncState `json:"sync_state"`
}

// CanonicalRuleName normalizes a rule name for cross-replica matching.
func CanonicalRuleName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
