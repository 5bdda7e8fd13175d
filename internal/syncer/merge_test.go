package syncer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkhoard/linkhoard/internal/model"
)

func remoteFixture(updatedAt time.Time) *model.Bookmark {
	b := &model.Bookmark{
		URL:       "https://example.com/post",
		Title:     "Remote Title",
		Status:    model.StatusClassified,
		Category:  "reading",
		Tags:      []string{"remote-tag"},
		CreatedAt: updatedAt.Add(-time.Hour),
		UpdatedAt: updatedAt,
		RemoteID:  "remote-1",
	}
	t := updatedAt
	b.RemoteUpdatedAt = &t
	return b
}

func TestMergeAdoptsWhenNoLocal(t *testing.T) {
	now := time.Now()
	merged := MergeByRecency(nil, remoteFixture(now))

	assert.Equal(t, model.SyncSynced, merged.SyncState)
	assert.Equal(t, "Remote Title", merged.Title)
	assert.Equal(t, []string{"remote-tag"}, merged.Tags)
	assert.NotEmpty(t, merged.SearchText)
}

func TestMergeRemoteWinsWhenNewerAndLocalClean(t *testing.T) {
	now := time.Now()
	local := &model.Bookmark{
		ID:        "local-1",
		URL:       "https://example.com/post",
		Title:     "Local Title",
		Tags:      []string{"local-tag"},
		SyncState: model.SyncSynced,
		UpdatedAt: now.Add(-time.Hour),
		Embedding: []float32{1, 2, 3},
	}
	merged := MergeByRecency(local, remoteFixture(now))

	assert.Equal(t, "local-1", merged.ID)
	assert.Equal(t, "Remote Title", merged.Title)
	assert.Equal(t, model.SyncSynced, merged.SyncState)
	// Tags are unioned, never overwritten.
	assert.Contains(t, merged.Tags, "local-tag")
	assert.Contains(t, merged.Tags, "remote-tag")
	// The local embedding survives a remote win.
	assert.Equal(t, []float32{1, 2, 3}, merged.Embedding)
}

func TestMergeConflictScenario(t *testing.T) {
	t2 := time.Now().Add(-time.Hour)
	t3 := t2.Add(30 * time.Minute)
	local := &model.Bookmark{
		ID:        "local-1",
		URL:       "https://example.com/post",
		Title:     "Local Edit",
		Note:      "my note",
		Tags:      []string{"local-tag"},
		SyncState: model.SyncDirty,
		UpdatedAt: t2,
	}
	merged := MergeByRecency(local, remoteFixture(t3))

	assert.Equal(t, model.SyncConflict, merged.SyncState)
	// Local content is preserved.
	assert.Equal(t, "Local Edit", merged.Title)
	assert.Equal(t, "my note", merged.Note)
	assert.Contains(t, merged.Tags, "local-tag")
	assert.Contains(t, merged.Tags, "remote-tag")
}

func TestMergeLocalNewerKeepsLocal(t *testing.T) {
	now := time.Now()
	local := &model.Bookmark{
		ID:        "local-1",
		URL:       "https://example.com/post",
		Title:     "Local Title",
		SyncState: model.SyncSynced,
		UpdatedAt: now,
	}
	merged := MergeByRecency(local, remoteFixture(now.Add(-time.Hour)))

	assert.Equal(t, "Local Title", merged.Title)
	assert.Equal(t, model.SyncSynced, merged.SyncState)
}

func TestMergeDirtyLocalNotConflictWhenLocalNewer(t *testing.T) {
	now := time.Now()
	local := &model.Bookmark{
		ID:        "local-1",
		URL:       "https://example.com/post",
		Title:     "Local Title",
		SyncState: model.SyncDirty,
		UpdatedAt: now,
	}
	merged := MergeByRecency(local, remoteFixture(now.Add(-time.Hour)))

	assert.Equal(t, "Local Title", merged.Title)
	assert.Equal(t, model.SyncDirty, merged.SyncState)
}

func TestMergeIdempotent(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name  string
		local *model.Bookmark
	}{
		{"no local", nil},
		{"clean older local", &model.Bookmark{
			ID: "l", URL: "https://example.com/post", Title: "Old",
			SyncState: model.SyncSynced, UpdatedAt: now.Add(-time.Hour),
		}},
		{"dirty older local", &model.Bookmark{
			ID: "l", URL: "https://example.com/post", Title: "Edited",
			SyncState: model.SyncDirty, UpdatedAt: now.Add(-time.Hour),
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			remote := remoteFixture(now)
			once := MergeByRecency(tc.local, remote)
			twice := MergeByRecency(once, remote)
			require.Equal(t, once, twice)
		})
	}
}

func TestMergeTagUnionSuperset(t *testing.T) {
	now := time.Now()
	local := &model.Bookmark{
		ID: "l", URL: "https://example.com/post",
		Tags:      []string{"a", "b"},
		SyncState: model.SyncSynced,
		UpdatedAt: now.Add(-time.Minute),
	}
	remote := remoteFixture(now)
	remote.Tags = []string{"b", "c"}

	merged := MergeByRecency(local, remote)
	for _, tag := range []string{"a", "b", "c"} {
		assert.Contains(t, merged.Tags, tag)
	}
	assert.Equal(t, []string{"a", "b", "c"}, merged.Tags)
}
