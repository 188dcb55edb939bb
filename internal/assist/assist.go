// Package assist is the client for the AI text service: flat list
// generation, categorized reorganization and theme suggestions. The
// service is an external collaborator; nothing here touches engine
// state.
package assist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ticklist/internal/item"
)

// SyntheticPrefix marks ids the service invented for rows that do not
// exist yet. They are placeholders for parent references only and never
// reach the store; the engine's two-pass insert swaps them for real ids.
const SyntheticPrefix = "new_"

// IsSynthetic reports whether an id belongs to the service's synthetic
// id space.
func IsSynthetic(id string) bool {
	return strings.HasPrefix(id, SyntheticPrefix)
}

// Item is one row of a categorized result. ID is either a real item id
// (reorganize that row) or a synthetic one (create it); ParentID may
// point into either id space.
type Item struct {
	ID       string  `json:"id"`
	Content  string  `json:"content"`
	ParentID *string `json:"parentId"`
	Position int     `json:"position"`
}

// Client talks HTTP+JSON to the assist service.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for the service at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Generate asks for a flat list of item contents for a prompt.
func (c *Client) Generate(ctx context.Context, prompt string) ([]string, error) {
	var out struct {
		Items []string `json:"items"`
	}
	err := c.post(ctx, "/v1/generate", map[string]any{"prompt": prompt}, &out)
	if err != nil {
		return nil, err
	}
	return out.Items, nil
}

// Categorize asks the service to arrange the given items under
// generated headers. The result uses synthetic ids for new rows.
func (c *Client) Categorize(ctx context.Context, instruction string, items []item.Item) ([]Item, error) {
	rows := make([]map[string]any, 0, len(items))
	for _, it := range items {
		rows = append(rows, map[string]any{
			"id":       it.ID,
			"content":  it.Content,
			"parentId": it.ParentID,
			"position": it.Position,
		})
	}
	var out struct {
		Items []Item `json:"items"`
	}
	err := c.post(ctx, "/v1/categorize", map[string]any{"instruction": instruction, "items": rows}, &out)
	if err != nil {
		return nil, err
	}
	return out.Items, nil
}

// Theme asks for a theme color matching a description. Returns a hex
// color string.
func (c *Client) Theme(ctx context.Context, description string) (string, error) {
	var out struct {
		Color string `json:"color"`
	}
	err := c.post(ctx, "/v1/theme", map[string]any{"description": description}, &out)
	if err != nil {
		return "", err
	}
	return out.Color, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call assist service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("assist service returned %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
