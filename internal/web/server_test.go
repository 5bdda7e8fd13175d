package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkhoard/linkhoard/internal/jobs"
	"github.com/linkhoard/linkhoard/internal/model"
	"github.com/linkhoard/linkhoard/internal/rank"
	"github.com/linkhoard/linkhoard/internal/store"
)

func newTestServer(t *testing.T) (*Server, store.Store) {
	t.Helper()
	st := store.NewMemory()
	engine := rank.New(st, nil)
	runner := jobs.NewRunner(jobs.NewCoordinator(st, nil), st, nil)
	return NewServer(st, engine, runner, nil), st
}

func seed(t *testing.T, st store.Store, id, title, url string) {
	t.Helper()
	b := &model.Bookmark{
		ID: id, Title: title, URL: url,
		Status: model.StatusClassified, SyncState: model.SyncSynced,
		UpdatedAt: time.Now(),
	}
	b.RebuildSearchText()
	require.NoError(t, st.Put(context.Background(), b))
}

func TestHandleSearch(t *testing.T) {
	srv, st := newTestServer(t)
	seed(t, st, "b1", "Grafana Dashboards", "https://grafana.example.com")

	req := httptest.NewRequest("POST", "/api/search", strings.NewReader(`{"query": "grafana dashboards"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp rank.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "direct", resp.Mode)
	require.NotEmpty(t, resp.Items)
	assert.Equal(t, "b1", resp.Items[0].Item.ID)
}

func TestHandleSearchBadRequest(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("POST", "/api/search", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest("POST", "/api/search", strings.NewReader(`{"query": "x", "limit": 9999}`))
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleJob(t *testing.T) {
	srv, st := newTestServer(t)
	seed(t, st, "b1", "My Project", "https://github.com/me/project")
	require.NoError(t, st.PutRule(context.Background(), &model.CategoryRule{
		ID: "r1", Name: "dev tools", Keywords: []string{"github"},
	}))

	// Seeded record is already classified; move it back to inbox.
	b, err := st.Get(context.Background(), "b1")
	require.NoError(t, err)
	b.Status = model.StatusInbox
	require.NoError(t, st.Put(context.Background(), b))

	req := httptest.NewRequest("POST", "/api/jobs/reclassify", strings.NewReader(`{"limit": 10}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp jobResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Outcome)
	assert.Equal(t, 1, resp.Result.Processed)
	assert.Equal(t, 1, resp.Result.Updated)
}

func TestJobRequestDelayMilliseconds(t *testing.T) {
	var req jobRequest
	require.NoError(t, json.Unmarshal([]byte(`{"limit": 5, "delayMs": 50, "resetCursor": true}`), &req))

	opts := req.options()
	assert.Equal(t, 5, opts.Limit)
	assert.Equal(t, 50*time.Millisecond, opts.Delay)
	assert.True(t, opts.ResetCursor)
}

func TestHandleJobUnknown(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("POST", "/api/jobs/vacuum", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleJobSkippedWhenLeaseHeld(t *testing.T) {
	srv, st := newTestServer(t)

	// Simulate a concurrent holder of the cleanup lease.
	coord := jobs.NewCoordinator(st, nil)
	_, err := coord.Acquire(context.Background(), jobs.Cleanup)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/jobs/cleanup", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp jobResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "skipped", resp.Outcome)
}

func TestHandleGetBookmark(t *testing.T) {
	srv, st := newTestServer(t)
	seed(t, st, "b1", "Example", "https://example.com")

	req := httptest.NewRequest("GET", "/api/bookmarks?id=b1", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var got model.Bookmark
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "Example", got.Title)

	req = httptest.NewRequest("GET", "/api/bookmarks?id=missing", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req = httptest.NewRequest("GET", "/api/bookmarks", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleHealth(t *testing.T) {
	srv, st := newTestServer(t)
	seed(t, st, "b1", "Example", "https://example.com")

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ok", resp["status"])
	assert.EqualValues(t, 1, resp["bookmarks"])
}
