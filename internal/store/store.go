// Package store provides the bookmark storage interface and its SQLite and
// in-memory implementations.
package store

import (
	"context"
	"time"

	"github.com/linkhoard/linkhoard/internal/model"
)

// Store is the abstract item store all core logic is written against.
// Implementations return (nil, nil) for lookups that find nothing.
type Store interface {
	// Get retrieves a bookmark by id.
	Get(ctx context.Context, id string) (*model.Bookmark, error)

	// Put inserts or updates a bookmark.
	Put(ctx context.Context, b *model.Bookmark) error

	// BulkGet retrieves bookmarks by id, skipping missing ids.
	BulkGet(ctx context.Context, ids []string) ([]*model.Bookmark, error)

	// BulkDelete permanently removes bookmarks by id.
	BulkDelete(ctx context.Context, ids []string) error

	// ListByStatus returns bookmarks with the given status ordered by
	// update time descending. limit <= 0 means no limit.
	ListByStatus(ctx context.Context, status model.Status, limit int) ([]*model.Bookmark, error)

	// ListBySyncState returns bookmarks in the given sync state ordered by
	// update time ascending. limit <= 0 means no limit.
	ListBySyncState(ctx context.Context, state model.SyncState, limit int) ([]*model.Bookmark, error)

	// FindByDedupeKey returns the bookmark whose dedupe key matches.
	FindByDedupeKey(ctx context.Context, key string) (*model.Bookmark, error)

	// Scan returns every bookmark.
	Scan(ctx context.Context) ([]*model.Bookmark, error)

	// Count returns the number of non-trashed bookmarks.
	Count(ctx context.Context) (int, error)

	// GetLease retrieves the lease record for a job.
	GetLease(ctx context.Context, job string) (*model.JobLease, error)

	// PutLease overwrites the lease record for a job.
	PutLease(ctx context.Context, l *model.JobLease) error

	// ListRules returns all category rules.
	ListRules(ctx context.Context) ([]*model.CategoryRule, error)

	// PutRule inserts or updates a category rule keyed by canonical name.
	PutRule(ctx context.Context, r *model.CategoryRule) error

	// DeleteRule removes a category rule by canonical name.
	DeleteRule(ctx context.Context, name string) error

	// GetSettings returns the settings row, or defaults if none stored.
	GetSettings(ctx context.Context) (*model.Settings, error)

	// PutSettings overwrites the settings row.
	PutSettings(ctx context.Context, s *model.Settings) error

	// GetSyncWatermark returns the high-water mark of remote updated_at
	// values already pulled.
	GetSyncWatermark(ctx context.Context) (time.Time, error)

	// PutSyncWatermark advances the pull watermark.
	PutSyncWatermark(ctx context.Context, t time.Time) error

	// Close releases the store.
	Close() error
}
