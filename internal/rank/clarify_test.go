package rank

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkhoard/linkhoard/internal/model"
)

func TestSessionsLifecycle(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	sessions := NewSessions(clock)

	sess := sessions.Open("ai", ScopeAll, []string{"a", "b"})
	require.NotEmpty(t, sess.ID)
	assert.Equal(t, 1, sessions.Len())

	got := sessions.Get(sess.ID)
	require.NotNil(t, got)
	assert.Equal(t, "ai", got.Query)
	assert.Equal(t, []string{"a", "b"}, got.Options)

	sessions.Discard(sess.ID)
	assert.Nil(t, sessions.Get(sess.ID))
	assert.Zero(t, sessions.Len())
}

func TestSessionsExpireLazily(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	sessions := NewSessions(func() time.Time { return clock() })

	sess := sessions.Open("ai", ScopeAll, []string{"a", "b"})

	clock = func() time.Time { return now.Add(SessionTTL - time.Second) }
	require.NotNil(t, sessions.Get(sess.ID))

	clock = func() time.Time { return now.Add(SessionTTL + time.Second) }
	assert.Nil(t, sessions.Get(sess.ID))
	assert.Zero(t, sessions.Len())
}

func TestSessionsDiscardByQuery(t *testing.T) {
	sessions := NewSessions(nil)
	a := sessions.Open("ai", ScopeAll, []string{"x"})
	b := sessions.Open("db", ScopeAll, []string{"y"})

	sessions.DiscardByQuery("ai")
	assert.Nil(t, sessions.Get(a.ID))
	assert.NotNil(t, sessions.Get(b.ID))
}

func TestClarifyOptions(t *testing.T) {
	rows := []RankedItem{
		{Item: &model.Bookmark{Title: "Deep Model Hub", Category: "research", Domain: "hub.example.com", Tags: []string{"models"}}},
		{Item: &model.Bookmark{Title: "Prompt Engineering Guide", Category: "guides", Domain: "guide.example.com"}},
		{Item: &model.Bookmark{Title: "Deep Model Hub", Category: "research"}},
		{Item: &model.Bookmark{Title: "Vector Search Notes", Category: "notes"}},
		{Item: &model.Bookmark{Title: "Transformers Course", Category: "courses"}},
		{Item: &model.Bookmark{Title: "Should Not Appear", Category: "sixth"}},
	}

	options := clarifyOptions(rows)

	assert.LessOrEqual(t, len(options), MaxClarifyOptions)
	assert.NotContains(t, options, "Should Not Appear")
	// Duplicate titles collapse.
	count := 0
	for _, opt := range options {
		if opt == "Deep Model Hub" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestClarifyOptionsTruncatesTitles(t *testing.T) {
	long := "An Extremely Long Bookmark Title That Goes On And On Well Past The Cutoff"
	rows := []RankedItem{{Item: &model.Bookmark{Title: long}}, {Item: &model.Bookmark{Title: "Short"}}}

	options := clarifyOptions(rows)
	require.NotEmpty(t, options)
	assert.Less(t, len(options[0]), len(long))
}
