package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/linkhoard/linkhoard/internal/model"
	"github.com/linkhoard/linkhoard/internal/store"
)

// PushBatchSize bounds how many dirty records one sync run pushes or pulls.
const PushBatchSize = 500

// Stats summarizes one reconciliation run.
type Stats struct {
	Pushed       int `json:"pushed"`
	Pulled       int `json:"pulled"`
	Merged       int `json:"merged"`
	Adopted      int `json:"adopted"`
	Conflicts    int `json:"conflicts"`
	RulesPushed  int `json:"rules_pushed"`
	RulesPulled  int `json:"rules_pulled"`
	RulesDeleted int `json:"rules_deleted"`
}

// Reconciler merges the local and remote replicas of the bookmark set.
type Reconciler struct {
	store  store.Store
	remote Remote
	log    *slog.Logger
	now    func() time.Time
}

// NewReconciler creates a reconciler.
func NewReconciler(st store.Store, remote Remote, log *slog.Logger) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{store: st, remote: remote, log: log, now: time.Now}
}

// Sync pushes locally dirty records, then pulls and merges remote changes
// since the stored watermark.
func (r *Reconciler) Sync(ctx context.Context) (Stats, error) {
	var stats Stats

	if err := r.pushBookmarks(ctx, &stats); err != nil {
		return stats, err
	}
	if err := r.pushRules(ctx, &stats); err != nil {
		return stats, err
	}
	if err := r.pushSettings(ctx); err != nil {
		return stats, err
	}

	if err := r.pullBookmarks(ctx, &stats); err != nil {
		return stats, err
	}
	if err := r.pullRules(ctx, &stats); err != nil {
		return stats, err
	}
	if err := r.pullSettings(ctx); err != nil {
		return stats, err
	}

	return stats, nil
}

func (r *Reconciler) pushBookmarks(ctx context.Context, stats *Stats) error {
	dirty, err := r.store.ListBySyncState(ctx, model.SyncDirty, PushBatchSize)
	if err != nil {
		return fmt.Errorf("list dirty: %w", err)
	}
	if len(dirty) == 0 {
		return nil
	}

	rows := make([]RemoteBookmark, len(dirty))
	byKey := make(map[string]*model.Bookmark, len(dirty))
	for i, b := range dirty {
		rows[i] = toRemote(b)
		byKey[rows[i].DedupeKey] = b
	}

	stored, err := r.remote.UpsertBookmarks(ctx, rows)
	if err != nil {
		return fmt.Errorf("push bookmarks: %w", err)
	}

	for _, row := range stored {
		b, ok := byKey[row.DedupeKey]
		if !ok {
			continue
		}
		b.SyncState = model.SyncSynced
		b.RemoteID = row.ID
		t := row.UpdatedAt
		b.RemoteUpdatedAt = &t
		if err := r.store.Put(ctx, b); err != nil {
			return fmt.Errorf("mark synced %s: %w", b.ID, err)
		}
		stats.Pushed++
	}
	return nil
}

func (r *Reconciler) pushRules(ctx context.Context, stats *Stats) error {
	local, err := r.store.ListRules(ctx)
	if err != nil {
		return fmt.Errorf("list local rules: %w", err)
	}
	remote, err := r.remote.ListRules(ctx)
	if err != nil {
		return fmt.Errorf("list remote rules: %w", err)
	}

	localNames := make(map[string]bool, len(local))
	var toPush []RemoteRule
	for _, rule := range local {
		localNames[rule.Name] = true
		if rule.SyncState == model.SyncDirty {
			toPush = append(toPush, RemoteRule{
				ID:          rule.ID,
				Name:        rule.Name,
				Description: rule.Description,
				Keywords:    rule.Keywords,
				CreatedAt:   rule.CreatedAt,
				UpdatedAt:   rule.UpdatedAt,
			})
		}
	}
	if len(toPush) > 0 {
		if err := r.remote.UpsertRules(ctx, toPush); err != nil {
			return fmt.Errorf("push rules: %w", err)
		}
		for _, rule := range local {
			if rule.SyncState != model.SyncDirty {
				continue
			}
			rule.SyncState = model.SyncSynced
			if err := r.store.PutRule(ctx, rule); err != nil {
				return fmt.Errorf("mark rule synced %s: %w", rule.Name, err)
			}
			stats.RulesPushed++
		}
	}

	// Reverse-tombstone: rules present remotely but absent locally were
	// deleted here and must be deleted there.
	for _, row := range remote {
		name := model.CanonicalRuleName(row.Name)
		if localNames[name] {
			continue
		}
		if err := r.remote.DeleteRule(ctx, name); err != nil {
			return fmt.Errorf("delete remote rule %s: %w", name, err)
		}
		stats.RulesDeleted++
	}
	return nil
}

func (r *Reconciler) pushSettings(ctx context.Context) error {
	local, err := r.store.GetSettings(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	// Secrets never leave the device.
	scrubbed := *local
	scrubbed.EmbeddingAPIKey = ""
	scrubbed.EmbeddingURL = ""
	scrubbed.RemoteAPIKey = ""
	scrubbed.RemoteURL = ""
	if err := r.remote.PutSettings(ctx, &scrubbed); err != nil {
		return fmt.Errorf("push settings: %w", err)
	}
	return nil
}

func (r *Reconciler) pullBookmarks(ctx context.Context, stats *Stats) error {
	watermark, err := r.store.GetSyncWatermark(ctx)
	if err != nil {
		return fmt.Errorf("load watermark: %w", err)
	}

	rows, err := r.remote.BookmarksSince(ctx, watermark, PushBatchSize)
	if err != nil {
		return fmt.Errorf("pull bookmarks: %w", err)
	}

	newWatermark := watermark
	for _, row := range rows {
		stats.Pulled++
		newWatermark = maxTime(newWatermark, row.UpdatedAt)

		local, err := r.store.FindByDedupeKey(ctx, row.DedupeKey)
		if err != nil {
			return fmt.Errorf("lookup %s: %w", row.DedupeKey, err)
		}

		merged := MergeByRecency(local, fromRemote(row))
		if merged.ID == "" {
			merged.ID = ulid.Make().String()
			stats.Adopted++
		} else {
			stats.Merged++
		}
		if merged.SyncState == model.SyncConflict {
			stats.Conflicts++
		}
		if err := r.store.Put(ctx, merged); err != nil {
			return fmt.Errorf("store merged %s: %w", merged.ID, err)
		}
	}

	if newWatermark.After(watermark) {
		if err := r.store.PutSyncWatermark(ctx, newWatermark); err != nil {
			return fmt.Errorf("advance watermark: %w", err)
		}
	}
	return nil
}

func (r *Reconciler) pullRules(ctx context.Context, stats *Stats) error {
	remote, err := r.remote.ListRules(ctx)
	if err != nil {
		return fmt.Errorf("list remote rules: %w", err)
	}
	if len(remote) == 0 {
		return nil
	}

	local, err := r.store.ListRules(ctx)
	if err != nil {
		return fmt.Errorf("list local rules: %w", err)
	}
	byName := make(map[string]*model.CategoryRule, len(local))
	for _, rule := range local {
		byName[rule.Name] = rule
	}

	for _, row := range remote {
		name := model.CanonicalRuleName(row.Name)
		existing := byName[name]
		// Newer updated_at wins per canonical name.
		if existing != nil && !row.UpdatedAt.After(existing.UpdatedAt) {
			continue
		}
		rule := &model.CategoryRule{
			ID:          row.ID,
			Name:        name,
			Description: row.Description,
			Keywords:    row.Keywords,
			CreatedAt:   row.CreatedAt,
			UpdatedAt:   row.UpdatedAt,
			SyncState:   model.SyncSynced,
		}
		if rule.ID == "" {
			rule.ID = ulid.Make().String()
		}
		if err := r.store.PutRule(ctx, rule); err != nil {
			return fmt.Errorf("store rule %s: %w", name, err)
		}
		stats.RulesPulled++
	}
	return nil
}

func (r *Reconciler) pullSettings(ctx context.Context) error {
	remote, err := r.remote.GetSettings(ctx)
	if err != nil {
		return fmt.Errorf("get remote settings: %w", err)
	}
	if remote == nil {
		return nil
	}
	local, err := r.store.GetSettings(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if !remote.UpdatedAt.After(local.UpdatedAt) {
		return nil
	}
	local.MergeRemote(remote)
	if err := r.store.PutSettings(ctx, local); err != nil {
		return fmt.Errorf("store settings: %w", err)
	}
	return nil
}

// DeleteRemote issues a best-effort remote delete for a permanently deleted
// local record. Failures are swallowed: local deletion must remain reliable
// even when the remote call fails.
func (r *Reconciler) DeleteRemote(ctx context.Context, dedupeKey string) {
	if dedupeKey == "" {
		return
	}
	if err := r.remote.DeleteBookmark(ctx, dedupeKey); err != nil {
		r.log.Warn("remote delete failed", "dedupe_key", dedupeKey, "error", err)
	}
}
