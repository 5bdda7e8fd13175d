package model

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebuildSearchText(t *testing.T) {
	b := &Bookmark{
		Title:    "OpenAI API Reference",
		URL:      "https://platform.openai.com/docs",
		Domain:   "platform.openai.com",
		Category: "Dev Docs",
		Tags:     []string{"api", "reference"},
	}
	b.RebuildSearchText()

	assert.Contains(t, b.SearchText, "openai api reference")
	assert.Contains(t, b.SearchText, "dev docs")
	assert.Contains(t, b.SearchText, "reference")
	assert.Equal(t, strings.ToLower(b.SearchText), b.SearchText)
}

func TestTouchMarksDirty(t *testing.T) {
	now := time.Now()
	b := &Bookmark{Title: "Some Page", SyncState: SyncSynced}
	b.Touch(now)

	assert.Equal(t, SyncDirty, b.SyncState)
	assert.Equal(t, now, b.UpdatedAt)
	assert.Contains(t, b.SearchText, "some page")
}

func TestTrashAndRestore(t *testing.T) {
	now := time.Now()
	b := &Bookmark{Status: StatusClassified}

	require.True(t, b.Trash(now))
	assert.Equal(t, StatusTrashed, b.Status)
	require.NotNil(t, b.DeletedAt)

	b.Restore(now.Add(time.Minute))
	assert.Equal(t, StatusInbox, b.Status)
	assert.Nil(t, b.DeletedAt)
}

func TestTrashRefusesLocked(t *testing.T) {
	b := &Bookmark{Status: StatusClassified, Locked: true}
	assert.False(t, b.Trash(time.Now()))
	assert.Equal(t, StatusClassified, b.Status)
	assert.Nil(t, b.DeletedAt)
}

func TestRestoreIgnoresNonTrashed(t *testing.T) {
	b := &Bookmark{Status: StatusClassified}
	b.Restore(time.Now())
	assert.Equal(t, StatusClassified, b.Status)
}

func TestNormalizeTags(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"lowercases and trims", []string{" Go ", "SQLite"}, []string{"go", "sqlite"}},
		{"dedupes", []string{"go", "GO", "go"}, []string{"go"}},
		{"drops empty", []string{"", "  ", "go"}, []string{"go"}},
		{"truncates long tags", []string{strings.Repeat("x", 60)}, []string{strings.Repeat("x", MaxTagLength)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeTags(tt.in))
		})
	}
}

func TestNormalizeTagsCapsCount(t *testing.T) {
	in := make([]string, MaxTags+10)
	for i := range in {
		in[i] = strings.Repeat("a", i/26+1) + string(rune('a'+i%26))
	}
	assert.Len(t, NormalizeTags(in), MaxTags)
}

func TestUnionTagsSuperset(t *testing.T) {
	a := []string{"go", "sqlite"}
	b := []string{"SQLITE", "search"}

	got := UnionTags(a, b)
	assert.Equal(t, []string{"go", "sqlite", "search"}, got)
	for _, tag := range []string{"go", "sqlite", "search"} {
		assert.Contains(t, got, tag)
	}
}

func TestNormalizeCategory(t *testing.T) {
	assert.Equal(t, "Dev Tools", NormalizeCategory("  Dev Tools  "))
	long := strings.Repeat("c", 200)
	assert.Len(t, NormalizeCategory(long), MaxCategoryLength)
}
