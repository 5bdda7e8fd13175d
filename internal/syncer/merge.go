package syncer

import (
	"time"

	"github.com/linkhoard/linkhoard/internal/model"
)

// MergeByRecency merges a remote record into the local replica using
// last-writer-wins-by-timestamp semantics. It is a pure function; the caller
// persists the result.
//
//   - No local match: the remote record is adopted verbatim as synced.
//   - Remote is newer-or-equal and local has no unpushed edits: remote wins
//     wholesale, except tags are unioned and sync bookkeeping is refreshed.
//   - Otherwise local content is kept and tags are unioned; if local was
//     dirty while remote is newer, the record is flagged conflict rather
//     than silently dropping the remote edit.
func MergeByRecency(local *model.Bookmark, remote *model.Bookmark) *model.Bookmark {
	if local == nil {
		adopted := *remote
		adopted.Tags = model.NormalizeTags(remote.Tags)
		adopted.SyncState = model.SyncSynced
		adopted.RebuildSearchText()
		return &adopted
	}

	tags := model.UnionTags(local.Tags, remote.Tags)

	// A conflict flag counts as an unpushed local edit: it must survive
	// re-applying the same remote row (merge is idempotent).
	if !remote.UpdatedAt.Before(local.UpdatedAt) && local.SyncState == model.SyncSynced {
		merged := *remote
		merged.ID = local.ID // local id is the stable local identity
		merged.Tags = tags
		merged.Embedding = local.Embedding
		merged.EmbeddingModel = local.EmbeddingModel
		merged.EmbeddedAt = local.EmbeddedAt
		merged.SyncState = model.SyncSynced
		merged.RemoteID = remote.RemoteID
		merged.RemoteUpdatedAt = remote.RemoteUpdatedAt
		merged.RebuildSearchText()
		return &merged
	}

	merged := *local
	merged.Tags = tags
	merged.RemoteID = remote.RemoteID
	merged.RemoteUpdatedAt = remote.RemoteUpdatedAt
	if local.SyncState == model.SyncDirty && remote.UpdatedAt.After(local.UpdatedAt) {
		merged.SyncState = model.SyncConflict
	}
	merged.RebuildSearchText()
	return &merged
}

// fromRemote maps a remote row into the local model.
func fromRemote(row RemoteBookmark) *model.Bookmark {
	b := &model.Bookmark{
		URL:          row.URL,
		CanonicalURL: row.CanonicalURL,
		Title:        row.Title,
		Domain:       row.Domain,
		Favicon:      row.Favicon,
		Summary:      row.Summary,
		Note:         row.Note,
		Status:       model.Status(row.Status),
		Category:     row.Category,
		Tags:         row.Tags,
		Pinned:       row.Pinned,
		Locked:       row.Locked,
		SaveCount:    row.SaveCount,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
		DeletedAt:    row.DeletedAt,
		RemoteID:     row.ID,
	}
	t := row.UpdatedAt
	b.RemoteUpdatedAt = &t
	b.RebuildSearchText()
	return b
}

// toRemote maps a local bookmark into the remote schema.
func toRemote(b *model.Bookmark) RemoteBookmark {
	return RemoteBookmark{
		ID:           b.RemoteID,
		DedupeKey:    model.DedupeKey(b),
		URL:          b.URL,
		CanonicalURL: b.CanonicalURL,
		Title:        b.Title,
		Domain:       b.Domain,
		Favicon:      b.Favicon,
		Summary:      b.Summary,
		Note:         b.Note,
		Status:       string(b.Status),
		Category:     b.Category,
		Tags:         b.Tags,
		Pinned:       b.Pinned,
		Locked:       b.Locked,
		SaveCount:    b.SaveCount,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
		DeletedAt:    b.DeletedAt,
	}
}

// maxTime returns the later of a and b.
func maxTime(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
