package jobs

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkhoard/linkhoard/internal/model"
	"github.com/linkhoard/linkhoard/internal/store"
)

func TestReclassifyAllRunsToCompletion(t *testing.T) {
	st := store.NewMemory()
	runner := NewRunner(NewCoordinator(st, nil), st, nil)
	ctx := context.Background()

	require.NoError(t, st.PutRule(ctx, &model.CategoryRule{
		ID: "r1", Name: "reading", Keywords: []string{"article"},
	}))
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		b := &model.Bookmark{
			ID:        fmt.Sprintf("b%02d", i),
			Title:     fmt.Sprintf("Article %d", i),
			URL:       fmt.Sprintf("https://example.com/%d", i),
			Status:    model.StatusInbox,
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		b.RebuildSearchText()
		require.NoError(t, st.Put(ctx, b))
	}

	res, err := runner.ReclassifyAll(ctx, Options{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Processed)
	assert.Equal(t, 5, res.Updated)
	assert.True(t, res.Completed)

	settings, err := st.GetSettings(ctx)
	require.NoError(t, err)
	assert.True(t, settings.ReclassifyDone)

	for i := 0; i < 5; i++ {
		b, err := st.Get(ctx, fmt.Sprintf("b%02d", i))
		require.NoError(t, err)
		assert.Equal(t, model.StatusClassified, b.Status)
		assert.Equal(t, "reading", b.Category)
	}
}

func TestReclassifyAllNoopWhenDone(t *testing.T) {
	st := store.NewMemory()
	runner := NewRunner(NewCoordinator(st, nil), st, nil)
	ctx := context.Background()

	settings := model.DefaultSettings()
	settings.ReclassifyDone = true
	require.NoError(t, st.PutSettings(ctx, settings))

	b := &model.Bookmark{ID: "b", Title: "Article", URL: "https://example.com", Status: model.StatusInbox, UpdatedAt: time.Now()}
	b.RebuildSearchText()
	require.NoError(t, st.Put(ctx, b))

	res, err := runner.ReclassifyAll(ctx, Options{})
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Zero(t, res.Processed)

	got, err := st.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, model.StatusInbox, got.Status)
}
