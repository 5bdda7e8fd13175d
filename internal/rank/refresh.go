package rank

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/linkhoard/linkhoard/internal/embeddings"
	"github.com/linkhoard/linkhoard/internal/model"
	"github.com/linkhoard/linkhoard/internal/store"
)

// Refresher recomputes item embeddings asynchronously. Requests are
// de-duplicated per item id: a second request while one is in flight is a
// no-op, not queued.
type Refresher struct {
	store    store.Store
	embedder embeddings.Embedder
	log      *slog.Logger
	timeout  time.Duration

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewRefresher creates a refresh scheduler. embedder may be nil, in which
// case every request is a no-op.
func NewRefresher(st store.Store, embedder embeddings.Embedder, log *slog.Logger) *Refresher {
	if log == nil {
		log = slog.Default()
	}
	return &Refresher{
		store:    st,
		embedder: embedder,
		log:      log,
		timeout:  embeddings.DefaultTimeout,
		inflight: make(map[string]struct{}),
	}
}

// Request schedules an embedding recompute for an item. Returns false when
// the request was dropped (disabled, privacy-excluded, or already in flight).
func (r *Refresher) Request(id string) bool {
	if r.embedder == nil || id == "" {
		return false
	}

	r.mu.Lock()
	if _, busy := r.inflight[id]; busy {
		r.mu.Unlock()
		return false
	}
	r.inflight[id] = struct{}{}
	r.mu.Unlock()

	go r.run(id)
	return true
}

// Pending returns the number of in-flight recomputes.
func (r *Refresher) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inflight)
}

func (r *Refresher) run(id string) {
	defer func() {
		r.mu.Lock()
		delete(r.inflight, id)
		r.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	b, err := r.store.Get(ctx, id)
	if err != nil || b == nil {
		if err != nil {
			r.log.Warn("embedding refresh: load failed", "id", id, "error", err)
		}
		return
	}
	if b.Status == model.StatusTrashed || model.PrivacyExcluded(b.URL) || b.SearchText == "" {
		return
	}

	vec, err := r.embedder.Embed(ctx, b.SearchText)
	if err != nil {
		// Degrade silently: search keeps using the local proxy.
		r.log.Warn("embedding refresh failed", "id", id, "error", err)
		return
	}

	now := time.Now()
	b.Embedding = vec
	b.EmbeddingModel = r.embedder.Model()
	b.EmbeddedAt = &now
	// Embedding bookkeeping does not dirty the record for sync and does
	// not bump UpdatedAt.
	if err := r.store.Put(ctx, b); err != nil {
		r.log.Warn("embedding refresh: save failed", "id", id, "error", err)
	}
}
