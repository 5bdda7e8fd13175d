// Package syncer reconciles the local bookmark replica with a remote backend
// using last-writer-wins-by-timestamp semantics.
package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/linkhoard/linkhoard/internal/model"
)

// RemoteBookmark is the remote schema for a bookmark row, keyed by dedupe key.
type RemoteBookmark struct {
	ID           string     `json:"id,omitempty"`
	DedupeKey    string     `json:"dedupe_key"`
	URL          string     `json:"url"`
	CanonicalURL string     `json:"canonical_url,omitempty"`
	Title        string     `json:"title"`
	Domain       string     `json:"domain,omitempty"`
	Favicon      string     `json:"favicon,omitempty"`
	Summary      string     `json:"summary,omitempty"`
	Note         string     `json:"note,omitempty"`
	Status       string     `json:"status"`
	Category     string     `json:"category,omitempty"`
	Tags         []string   `json:"tags,omitempty"`
	Pinned       bool       `json:"pinned,omitempty"`
	Locked       bool       `json:"locked,omitempty"`
	SaveCount    int        `json:"save_count,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// RemoteRule is the remote schema for a category rule, keyed by name.
type RemoteRule struct {
	ID          string    `json:"id,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Keywords    []string  `json:"keywords,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Remote is the backend contract the reconciler is written against:
// upsert-with-merge, filtered select ordered by updated_at, and filtered
// delete, over three logical tables keyed by user id.
type Remote interface {
	UpsertBookmarks(ctx context.Context, rows []RemoteBookmark) ([]RemoteBookmark, error)
	BookmarksSince(ctx context.Context, since time.Time, limit int) ([]RemoteBookmark, error)
	DeleteBookmark(ctx context.Context, dedupeKey string) error

	ListRules(ctx context.Context) ([]RemoteRule, error)
	UpsertRules(ctx context.Context, rows []RemoteRule) error
	DeleteRule(ctx context.Context, name string) error

	GetSettings(ctx context.Context) (*model.Settings, error)
	PutSettings(ctx context.Context, s *model.Settings) error
}

// Client is an HTTP implementation of Remote.
type Client struct {
	baseURL    string
	apiKey     string
	userID     string
	httpClient *http.Client
}

var _ Remote = (*Client)(nil)

// NewClient creates a remote backend client.
func NewClient(baseURL, apiKey, userID string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		userID:  userID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// do performs a JSON request against a table endpoint and decodes the
// response into result (which may be nil).
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	u := c.baseURL + path
	if query == nil {
		query = url.Values{}
	}
	query.Set("user_id", c.userID)
	u += "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("remote error (status %d): %s", resp.StatusCode, string(data))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// UpsertBookmarks upserts rows with merge-on-conflict by dedupe key and
// returns the stored rows including remote ids and timestamps.
func (c *Client) UpsertBookmarks(ctx context.Context, rows []RemoteBookmark) ([]RemoteBookmark, error) {
	var out []RemoteBookmark
	q := url.Values{"on_conflict": {"dedupe_key"}}
	if err := c.do(ctx, http.MethodPost, "/v1/bookmarks", q, rows, &out); err != nil {
		return nil, fmt.Errorf("upsert bookmarks: %w", err)
	}
	return out, nil
}

// BookmarksSince fetches rows updated strictly after since, ascending.
func (c *Client) BookmarksSince(ctx context.Context, since time.Time, limit int) ([]RemoteBookmark, error) {
	q := url.Values{
		"updated_after": {since.UTC().Format(time.RFC3339Nano)},
		"order":         {"updated_at.asc"},
		"limit":         {fmt.Sprint(limit)},
	}
	var out []RemoteBookmark
	if err := c.do(ctx, http.MethodGet, "/v1/bookmarks", q, nil, &out); err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	return out, nil
}

// DeleteBookmark deletes the remote row matching the dedupe key.
func (c *Client) DeleteBookmark(ctx context.Context, dedupeKey string) error {
	q := url.Values{"dedupe_key": {dedupeKey}}
	if err := c.do(ctx, http.MethodDelete, "/v1/bookmarks", q, nil, nil); err != nil {
		return fmt.Errorf("delete bookmark: %w", err)
	}
	return nil
}

// ListRules fetches all remote category rules for the user.
func (c *Client) ListRules(ctx context.Context) ([]RemoteRule, error) {
	var out []RemoteRule
	if err := c.do(ctx, http.MethodGet, "/v1/category_rules", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	return out, nil
}

// UpsertRules upserts rules with merge-on-conflict by canonical name.
func (c *Client) UpsertRules(ctx context.Context, rows []RemoteRule) error {
	q := url.Values{"on_conflict": {"name"}}
	if err := c.do(ctx, http.MethodPost, "/v1/category_rules", q, rows, nil); err != nil {
		return fmt.Errorf("upsert rules: %w", err)
	}
	return nil
}

// DeleteRule deletes a remote rule by canonical name (reverse-tombstone).
func (c *Client) DeleteRule(ctx context.Context, name string) error {
	q := url.Values{"name": {name}}
	if err := c.do(ctx, http.MethodDelete, "/v1/category_rules", q, nil, nil); err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	return nil
}

// GetSettings fetches the user's settings row, or nil if none.
func (c *Client) GetSettings(ctx context.Context) (*model.Settings, error) {
	var out []model.Settings
	if err := c.do(ctx, http.MethodGet, "/v1/user_settings", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return &out[0], nil
}

// PutSettings upserts the user's settings as a single row.
func (c *Client) PutSettings(ctx context.Context, s *model.Settings) error {
	q := url.Values{"on_conflict": {"user_id"}}
	if err := c.do(ctx, http.MethodPost, "/v1/user_settings", q, s, nil); err != nil {
		return fmt.Errorf("put settings: %w", err)
	}
	return nil
}
