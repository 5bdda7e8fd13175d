package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/linkhoard/linkhoard/internal/model"
)

// Memory is an in-memory Store used by tests and as a scratch backend.
// All returned records are copies; mutations only take effect through Put.
type Memory struct {
	mu        sync.RWMutex
	bookmarks map[string]*model.Bookmark
	leases    map[string]*model.JobLease
	rules     map[string]*model.CategoryRule
	settings  *model.Settings
	watermark time.Time
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		bookmarks: make(map[string]*model.Bookmark),
		leases:    make(map[string]*model.JobLease),
		rules:     make(map[string]*model.CategoryRule),
	}
}

func copyBookmark(b *model.Bookmark) *model.Bookmark {
	c := *b
	c.Tags = append([]string(nil), b.Tags...)
	c.Embedding = append([]float32(nil), b.Embedding...)
	if b.DeletedAt != nil {
		t := *b.DeletedAt
		c.DeletedAt = &t
	}
	if b.EmbeddedAt != nil {
		t := *b.EmbeddedAt
		c.EmbeddedAt = &t
	}
	if b.RemoteUpdatedAt != nil {
		t := *b.RemoteUpdatedAt
		c.RemoteUpdatedAt = &t
	}
	return &c
}

func (m *Memory) Get(_ context.Context, id string) (*model.Bookmark, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bookmarks[id]
	if !ok {
		return nil, nil
	}
	return copyBookmark(b), nil
}

func (m *Memory) Put(_ context.Context, b *model.Bookmark) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookmarks[b.ID] = copyBookmark(b)
	return nil
}

func (m *Memory) BulkGet(ctx context.Context, ids []string) ([]*model.Bookmark, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.Bookmark, 0, len(ids))
	for _, id := range ids {
		if b, ok := m.bookmarks[id]; ok {
			out = append(out, copyBookmark(b))
		}
	}
	return out, nil
}

func (m *Memory) BulkDelete(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.bookmarks, id)
	}
	return nil
}

func (m *Memory) ListByStatus(_ context.Context, status model.Status, limit int) ([]*model.Bookmark, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Bookmark
	for _, b := range m.bookmarks {
		if b.Status == status {
			out = append(out, copyBookmark(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) ListBySyncState(_ context.Context, state model.SyncState, limit int) ([]*model.Bookmark, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Bookmark
	for _, b := range m.bookmarks {
		if b.SyncState == state {
			out = append(out, copyBookmark(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.Before(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) FindByDedupeKey(_ context.Context, key string) (*model.Bookmark, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, b := range m.bookmarks {
		if model.DedupeKey(b) == key {
			return copyBookmark(b), nil
		}
	}
	return nil, nil
}

func (m *Memory) Scan(_ context.Context) ([]*model.Bookmark, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.Bookmark, 0, len(m.bookmarks))
	for _, b := range m.bookmarks {
		out = append(out, copyBookmark(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, b := range m.bookmarks {
		if b.Status != model.StatusTrashed {
			count++
		}
	}
	return count, nil
}

func (m *Memory) GetLease(_ context.Context, job string) (*model.JobLease, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.leases[job]
	if !ok {
		return nil, nil
	}
	c := *l
	return &c, nil
}

func (m *Memory) PutLease(_ context.Context, l *model.JobLease) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *l
	m.leases[l.Job] = &c
	return nil
}

func (m *Memory) ListRules(_ context.Context) ([]*model.CategoryRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.CategoryRule, 0, len(m.rules))
	for _, r := range m.rules {
		c := *r
		c.Keywords = append([]string(nil), r.Keywords...)
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) PutRule(_ context.Context, r *model.CategoryRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *r
	c.Name = model.CanonicalRuleName(r.Name)
	c.Keywords = append([]string(nil), r.Keywords...)
	m.rules[c.Name] = &c
	return nil
}

func (m *Memory) DeleteRule(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rules, model.CanonicalRuleName(name))
	return nil
}

func (m *Memory) GetSettings(_ context.Context) (*model.Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.settings == nil {
		return model.DefaultSettings(), nil
	}
	c := *m.settings
	return &c, nil
}

func (m *Memory) PutSettings(_ context.Context, s *model.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *s
	m.settings = &c
	return nil
}

func (m *Memory) GetSyncWatermark(_ context.Context) (time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.watermark, nil
}

func (m *Memory) PutSyncWatermark(_ context.Context, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watermark = t
	return nil
}

func (m *Memory) Close() error { return nil }
