package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/linkhoard/linkhoard/internal/model"
)

// GetLease retrieves the lease record for a job, or nil if never created.
func (d *DB) GetLease(ctx context.Context, job string) (*model.JobLease, error) {
	l := &model.JobLease{}
	var (
		expires, lastRun, cursorAt sql.NullTime
		lastErr, cursorID          sql.NullString
	)
	err := d.db.QueryRowContext(ctx,
		`SELECT job, running, lease_expires_at, last_run_at, last_error, cursor_updated_at, cursor_id
		 FROM job_leases WHERE job = ?`, job).
		Scan(&l.Job, &l.Running, &expires, &lastRun, &lastErr, &cursorAt, &cursorID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if expires.Valid {
		l.LeaseExpiresAt = expires.Time
	}
	if lastRun.Valid {
		t := lastRun.Time
		l.LastRunAt = &t
	}
	l.LastError = lastErr.String
	if cursorAt.Valid {
		l.CursorUpdatedAt = cursorAt.Time
	}
	l.CursorID = cursorID.String
	return l, nil
}

// PutLease overwrites the lease record for a job.
func (d *DB) PutLease(ctx context.Context, l *model.JobLease) error {
	_, err := d.db.ExecContext(ctx, `
	INSERT INTO job_leases (job, running, lease_expires_at, last_run_at, last_error, cursor_updated_at, cursor_id)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(job) DO UPDATE SET
		running = excluded.running,
		lease_expires_at = excluded.lease_expires_at,
		last_run_at = excluded.last_run_at,
		last_error = excluded.last_error,
		cursor_updated_at = excluded.cursor_updated_at,
		cursor_id = excluded.cursor_id
	`, l.Job, l.Running, nullTime(l.LeaseExpiresAt), l.LastRunAt, l.LastError,
		nullTime(l.CursorUpdatedAt), l.CursorID)
	return err
}

// ListRules returns all category rules.
func (d *DB) ListRules(ctx context.Context) ([]*model.CategoryRule, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT name, id, description, keywords, created_at, updated_at, sync_state
		 FROM category_rules ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.CategoryRule
	for rows.Next() {
		r := &model.CategoryRule{}
		var desc, keywords sql.NullString
		var syncState string
		if err := rows.Scan(&r.Name, &r.ID, &desc, &keywords, &r.CreatedAt, &r.UpdatedAt, &syncState); err != nil {
			return nil, err
		}
		r.Description = desc.String
		r.SyncState = model.SyncState(syncState)
		if keywords.Valid && keywords.String != "" {
			if err := json.Unmarshal([]byte(keywords.String), &r.Keywords); err != nil {
				return nil, fmt.Errorf("unmarshal keywords for %s: %w", r.Name, err)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// PutRule inserts or updates a category rule keyed by canonical name.
func (d *DB) PutRule(ctx context.Context, r *model.CategoryRule) error {
	keywords, err := json.Marshal(r.Keywords)
	if err != nil {
		return fmt.Errorf("marshal keywords: %w", err)
	}
	_, err = d.db.ExecContext(ctx, `
	INSERT INTO category_rules (name, id, description, keywords, created_at, updated_at, sync_state)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(name) DO UPDATE SET
		id = excluded.id,
		description = excluded.description,
		keywords = excluded.keywords,
		created_at = excluded.created_at,
		updated_at = excluded.updated_at,
		sync_state = excluded.sync_state
	`, model.CanonicalRuleName(r.Name), r.ID, r.Description, string(keywords),
		r.CreatedAt, r.UpdatedAt, string(r.SyncState))
	return err
}

// DeleteRule removes a category rule by canonical name.
func (d *DB) DeleteRule(ctx context.Context, name string) error {
	_, err := d.db.ExecContext(ctx,
		"DELETE FROM category_rules WHERE name = ?", model.CanonicalRuleName(name))
	return err
}

// GetSettings returns the settings row, or defaults if none stored.
func (d *DB) GetSettings(ctx context.Context) (*model.Settings, error) {
	var raw string
	err := d.db.QueryRowContext(ctx,
		"SELECT value FROM app_state WHERE key = 'settings'").Scan(&raw)
	if err == sql.ErrNoRows {
		return model.DefaultSettings(), nil
	}
	if err != nil {
		return nil, err
	}
	s := &model.Settings{}
	if err := json.Unmarshal([]byte(raw), s); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}
	return s, nil
}

// PutSettings overwrites the settings row.
func (d *DB) PutSettings(ctx context.Context, s *model.Settings) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	return d.putState(ctx, "settings", string(raw))
}

// GetSyncWatermark returns the pull watermark, or zero time if none stored.
func (d *DB) GetSyncWatermark(ctx context.Context) (time.Time, error) {
	var raw string
	err := d.db.QueryRowContext(ctx,
		"SELECT value FROM app_state WHERE key = 'sync_watermark'").Scan(&raw)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse sync watermark: %w", err)
	}
	return t, nil
}

// PutSyncWatermark advances the pull watermark.
func (d *DB) PutSyncWatermark(ctx context.Context, t time.Time) error {
	return d.putState(ctx, "sync_watermark", t.UTC().Format(time.RFC3339Nano))
}

func (d *DB) putState(ctx context.Context, key, value string) error {
	_, err := d.db.ExecContext(ctx, `
	INSERT INTO app_state (key, value) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}
