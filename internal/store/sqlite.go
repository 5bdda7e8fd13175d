package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/linkhoard/linkhoard/internal/embeddings"
	"github.com/linkhoard/linkhoard/internal/model"
)

// DB wraps SQLite database operations.
type DB struct {
	db *sql.DB
}

var _ Store = (*DB)(nil)

// Open opens or creates a SQLite database.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL mode for better concurrency between the server and background jobs.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	storage := &DB{db: db}

	if err := storage.initSchema(); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return storage, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// initSchema creates tables if they don't exist.
func (d *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS bookmarks (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		canonical_url TEXT,
		dedupe_key TEXT NOT NULL,
		title TEXT,
		domain TEXT,
		favicon TEXT,
		summary TEXT,
		note TEXT,
		status TEXT NOT NULL,
		category TEXT,
		tags TEXT,
		pinned INTEGER NOT NULL DEFAULT 0,
		locked INTEGER NOT NULL DEFAULT 0,
		save_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		last_saved_at TIMESTAMP,
		deleted_at TIMESTAMP,
		search_text TEXT,
		embedding BLOB,
		embedding_model TEXT,
		embedded_at TIMESTAMP,
		sync_state TEXT NOT NULL,
		remote_id TEXT,
		remote_updated_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_bookmarks_status_updated ON bookmarks(status, updated_at);
	CREATE INDEX IF NOT EXISTS idx_bookmarks_sync_state ON bookmarks(sync_state);
	CREATE INDEX IF NOT EXISTS idx_bookmarks_dedupe ON bookmarks(dedupe_key);

	CREATE TABLE IF NOT EXISTS job_leases (
		job TEXT PRIMARY KEY,
		running INTEGER NOT NULL DEFAULT 0,
		lease_expires_at TIMESTAMP,
		last_run_at TIMESTAMP,
		last_error TEXT,
		cursor_updated_at TIMESTAMP,
		cursor_id TEXT
	);

	CREATE TABLE IF NOT EXISTS category_rules (
		name TEXT PRIMARY KEY,
		id TEXT NOT NULL,
		description TEXT,
		keywords TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		sync_state TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS app_state (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`

	_, err := d.db.Exec(schema)
	return err
}

const bookmarkColumns = `id, url, canonical_url, title, domain, favicon, summary, note,
	status, category, tags, pinned, locked, save_count,
	created_at, updated_at, last_saved_at, deleted_at,
	search_text, embedding, embedding_model, embedded_at,
	sync_state, remote_id, remote_updated_at`

// Put inserts or updates a bookmark.
func (d *DB) Put(ctx context.Context, b *model.Bookmark) error {
	tags, err := json.Marshal(b.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	query := `
	INSERT INTO bookmarks (
		id, url, canonical_url, dedupe_key, title, domain, favicon, summary, note,
		status, category, tags, pinned, locked, save_count,
		created_at, updated_at, last_saved_at, deleted_at,
		search_text, embedding, embedding_model, embedded_at,
		sync_state, remote_id, remote_updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		url = excluded.url,
		canonical_url = excluded.canonical_url,
		dedupe_key = excluded.dedupe_key,
		title = excluded.title,
		domain = excluded.domain,
		favicon = excluded.favicon,
		summary = excluded.summary,
		note = excluded.note,
		status = excluded.status,
		category = excluded.category,
		tags = excluded.tags,
		pinned = excluded.pinned,
		locked = excluded.locked,
		save_count = excluded.save_count,
		created_at = excluded.created_at,
		updated_at = excluded.updated_at,
		last_saved_at = excluded.last_saved_at,
		deleted_at = excluded.deleted_at,
		search_text = excluded.search_text,
		embedding = excluded.embedding,
		embedding_model = excluded.embedding_model,
		embedded_at = excluded.embedded_at,
		sync_state = excluded.sync_state,
		remote_id = excluded.remote_id,
		remote_updated_at = excluded.remote_updated_at
	`

	_, err = d.db.ExecContext(ctx, query,
		b.ID, b.URL, b.CanonicalURL, model.DedupeKey(b), b.Title, b.Domain, b.Favicon, b.Summary, b.Note,
		string(b.Status), b.Category, string(tags), b.Pinned, b.Locked, b.SaveCount,
		b.CreatedAt, b.UpdatedAt, nullTime(b.LastSavedAt), b.DeletedAt,
		b.SearchText, embeddings.Serialize(b.Embedding), b.EmbeddingModel, b.EmbeddedAt,
		string(b.SyncState), b.RemoteID, b.RemoteUpdatedAt,
	)
	return err
}

// Get retrieves a bookmark by id.
func (d *DB) Get(ctx context.Context, id string) (*model.Bookmark, error) {
	row := d.db.QueryRowContext(ctx,
		"SELECT "+bookmarkColumns+" FROM bookmarks WHERE id = ?", id)
	b, err := scanBookmark(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return b, err
}

// FindByDedupeKey returns the bookmark whose dedupe key matches.
func (d *DB) FindByDedupeKey(ctx context.Context, key string) (*model.Bookmark, error) {
	row := d.db.QueryRowContext(ctx,
		"SELECT "+bookmarkColumns+" FROM bookmarks WHERE dedupe_key = ? LIMIT 1", key)
	b, err := scanBookmark(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return b, err
}

// BulkGet retrieves bookmarks by id, skipping missing ids.
func (d *DB) BulkGet(ctx context.Context, ids []string) ([]*model.Bookmark, error) {
	out := make([]*model.Bookmark, 0, len(ids))
	for _, id := range ids {
		b, err := d.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if b != nil {
			out = append(out, b)
		}
	}
	return out, nil
}

// BulkDelete permanently removes bookmarks by id.
func (d *DB) BulkDelete(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if _, err := d.db.ExecContext(ctx, "DELETE FROM bookmarks WHERE id = ?", id); err != nil {
			return fmt.Errorf("delete %s: %w", id, err)
		}
	}
	return nil
}

// ListByStatus returns bookmarks with the given status, newest first.
func (d *DB) ListByStatus(ctx context.Context, status model.Status, limit int) ([]*model.Bookmark, error) {
	query := "SELECT " + bookmarkColumns + " FROM bookmarks WHERE status = ? ORDER BY updated_at DESC, id DESC"
	args := []any{string(status)}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return d.queryBookmarks(ctx, query, args...)
}

// ListBySyncState returns bookmarks in the given sync state, oldest first.
func (d *DB) ListBySyncState(ctx context.Context, state model.SyncState, limit int) ([]*model.Bookmark, error) {
	query := "SELECT " + bookmarkColumns + " FROM bookmarks WHERE sync_state = ? ORDER BY updated_at ASC, id ASC"
	args := []any{string(state)}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return d.queryBookmarks(ctx, query, args...)
}

// Scan returns every bookmark.
func (d *DB) Scan(ctx context.Context) ([]*model.Bookmark, error) {
	return d.queryBookmarks(ctx, "SELECT "+bookmarkColumns+" FROM bookmarks")
}

// Count returns the number of non-trashed bookmarks.
func (d *DB) Count(ctx context.Context) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM bookmarks WHERE status != ?", string(model.StatusTrashed)).Scan(&count)
	return count, err
}

func (d *DB) queryBookmarks(ctx context.Context, query string, args ...any) ([]*model.Bookmark, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Bookmark
	for rows.Next() {
		b, err := scanBookmark(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBookmark(row rowScanner) (*model.Bookmark, error) {
	b := &model.Bookmark{}
	var (
		canonical, domain, favicon, summary, note       sql.NullString
		category, tags, searchText, embModel, remoteID  sql.NullString
		status, syncState                               string
		lastSaved, deletedAt, embeddedAt, remoteUpdated sql.NullTime
		embedding                                       []byte
	)

	err := row.Scan(
		&b.ID, &b.URL, &canonical, &b.Title, &domain, &favicon, &summary, &note,
		&status, &category, &tags, &b.Pinned, &b.Locked, &b.SaveCount,
		&b.CreatedAt, &b.UpdatedAt, &lastSaved, &deletedAt,
		&searchText, &embedding, &embModel, &embeddedAt,
		&syncState, &remoteID, &remoteUpdated,
	)
	if err != nil {
		return nil, err
	}

	b.CanonicalURL = canonical.String
	b.Domain = domain.String
	b.Favicon = favicon.String
	b.Summary = summary.String
	b.Note = note.String
	b.Status = model.Status(status)
	b.Category = category.String
	b.SearchText = searchText.String
	b.EmbeddingModel = embModel.String
	b.SyncState = model.SyncState(syncState)
	b.RemoteID = remoteID.String

	if tags.Valid && tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &b.Tags); err != nil {
			return nil, fmt.Errorf("unmarshal tags for %s: %w", b.ID, err)
		}
	}
	if lastSaved.Valid {
		b.LastSavedAt = lastSaved.Time
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		b.DeletedAt = &t
	}
	if embeddedAt.Valid {
		t := embeddedAt.Time
		b.EmbeddedAt = &t
	}
	if remoteUpdated.Valid {
		t := remoteUpdated.Time
		b.RemoteUpdatedAt = &t
	}
	b.Embedding = embeddings.Deserialize(embedding)

	return b, nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
