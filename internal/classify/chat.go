package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/linkhoard/linkhoard/internal/model"
)

// DefaultTimeout bounds one classification provider call.
const DefaultTimeout = 10 * time.Second

// ChatClassifier classifies via an OpenAI-compatible chat completions API.
type ChatClassifier struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

var _ Classifier = (*ChatClassifier)(nil)

// NewChatClassifier creates a classifier backed by an OpenAI-compatible
// chat completions endpoint.
func NewChatClassifier(baseURL, apiKey, model string) *ChatClassifier {
	return &ChatClassifier{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

const systemPrompt = `You categorize bookmarks. Respond with a single JSON object:
{"category": "<one category name>", "tags": ["<up to 5 short lowercase tags>"]}
Pick the category from the provided list when one fits; otherwise propose a short new one.`

// Classify asks the chat provider for a category and tags.
func (c *ChatClassifier) Classify(ctx context.Context, b *model.Bookmark, rules []*model.CategoryRule) (Result, error) {
	var prompt strings.Builder
	prompt.WriteString("Known categories:\n")
	for _, rule := range rules {
		prompt.WriteString("- ")
		prompt.WriteString(rule.Name)
		if rule.Description != "" {
			prompt.WriteString(": ")
			prompt.WriteString(rule.Description)
		}
		prompt.WriteByte('\n')
	}
	fmt.Fprintf(&prompt, "\nBookmark:\ntitle: %s\nurl: %s\n", b.Title, b.URL)
	if b.Summary != "" {
		fmt.Fprintf(&prompt, "summary: %s\n", b.Summary)
	}
	if b.Note != "" {
		fmt.Fprintf(&prompt, "note: %s\n", b.Note)
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt.String()},
		},
	})
	if err != nil {
		return Result{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return Result{}, fmt.Errorf("classifier error (status %d): %s", resp.StatusCode, string(bodyBytes))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return Result{}, fmt.Errorf("decode response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return Result{}, fmt.Errorf("no completion returned")
	}

	return parseResult(chatResp.Choices[0].Message.Content)
}

// parseResult extracts the JSON object from the model's reply, tolerating
// surrounding prose or code fences.
func parseResult(content string) (Result, error) {
	start := strings.IndexByte(content, '{')
	end := strings.LastIndexByte(content, '}')
	if start < 0 || end <= start {
		return Result{}, fmt.Errorf("no JSON object in reply: %q", content)
	}
	var res Result
	if err := json.Unmarshal([]byte(content[start:end+1]), &res); err != nil {
		return Result{}, fmt.Errorf("parse reply: %w", err)
	}
	res.Category = model.NormalizeCategory(res.Category)
	res.Tags = model.NormalizeTags(res.Tags)
	return res, nil
}
