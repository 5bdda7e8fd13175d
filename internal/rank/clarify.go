package rank

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionTTL is how long a clarification session stays answerable.
const SessionTTL = 10 * time.Minute

// Session links a low-confidence query to its disambiguation options while
// the follow-up answer is pending. Sessions live only in process memory.
type Session struct {
	ID        string
	Query     string
	Scope     Scope
	Options   []string
	CreatedAt time.Time
}

// Sessions is the process-scoped clarification session table. Expired
// sessions are garbage-collected lazily on lookup.
type Sessions struct {
	mu  sync.Mutex
	m   map[string]*Session
	ttl time.Duration
	now func() time.Time
}

// NewSessions creates an empty session table.
func NewSessions(now func() time.Time) *Sessions {
	if now == nil {
		now = time.Now
	}
	return &Sessions{m: make(map[string]*Session), ttl: SessionTTL, now: now}
}

// Open creates a session and returns its id.
func (s *Sessions) Open(query string, scope Scope, options []string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	sess := &Session{
		ID:        uuid.NewString(),
		Query:     query,
		Scope:     scope,
		Options:   append([]string(nil), options...),
		CreatedAt: s.now(),
	}
	s.m[sess.ID] = sess
	return sess
}

// Get returns a live session by id, or nil if missing or expired.
func (s *Sessions) Get(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	return s.m[id]
}

// Discard removes a session by id.
func (s *Sessions) Discard(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, id)
}

// DiscardByQuery removes any session opened for the given query.
func (s *Sessions) DiscardByQuery(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.m {
		if sess.Query == query {
			delete(s.m, id)
		}
	}
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	return len(s.m)
}

func (s *Sessions) pruneLocked() {
	cutoff := s.now().Add(-s.ttl)
	for id, sess := range s.m {
		if sess.CreatedAt.Before(cutoff) {
			delete(s.m, id)
		}
	}
}

// clarifyOptions synthesizes up to MaxClarifyOptions distinct disambiguation
// options from the top-ranked items: truncated titles, categories, domains,
// and first tags.
func clarifyOptions(rows []RankedItem) []string {
	const maxTitleLen = 48

	top := rows
	if len(top) > 5 {
		top = top[:5]
	}

	seen := make(map[string]bool)
	var options []string
	add := func(opt string) {
		opt = strings.TrimSpace(opt)
		if opt == "" {
			return
		}
		key := strings.ToLower(opt)
		if seen[key] || len(options) >= MaxClarifyOptions {
			return
		}
		seen[key] = true
		options = append(options, opt)
	}

	for _, row := range top {
		title := row.Item.Title
		if len(title) > maxTitleLen {
			title = title[:maxTitleLen] + "…"
		}
		add(title)
	}
	for _, row := range top {
		add(row.Item.Category)
	}
	for _, row := range top {
		add(row.Item.Domain)
	}
	for _, row := range top {
		if len(row.Item.Tags) > 0 {
			add(row.Item.Tags[0])
		}
	}
	return options
}
