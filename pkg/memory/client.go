// Package memory talks to the remote Supermemory store. Every operation
// degrades to a zero value on any non-success response; user-facing
// messaging is the caller's concern.
package memory

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the hosted Supermemory endpoint.
	DefaultBaseURL = "https://api.supermemory.ai"

	listPageSize = 200
)

// Record is one stored memory or document.
type Record struct {
	ID       string `json:"id"`
	CustomID string `json:"customId"`
	Title    string `json:"title"`
}

// Chunk is a fragment of matched content inside a search result.
type Chunk struct {
	Content string `json:"content"`
}

// SearchResult is one ranked hit; matched content arrives as chunks.
type SearchResult struct {
	Chunks []Chunk `json:"chunks"`
}

// Client issues requests against one memory store. The key is resolved per
// call so per-request credential overrides take effect without rebuilding
// the client.
type Client struct {
	baseURL string
	key     func() string
	httpc   *http.Client
}

// NewClient builds a client for baseURL; an empty baseURL targets the hosted
// store. key must return the bearer token to use for the next request.
func NewClient(baseURL string, key func() string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if key == nil {
		key = func() string { return "" }
	}
	return &Client{
		baseURL: baseURL,
		key:     key,
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
}

// ListPage fetches one page of records. ok is false on any failure.
func (c *Client) ListPage(limit, page int) (records []Record, ok bool) {
	var out struct {
		Memories  []Record `json:"memories"`
		Documents []Record `json:"documents"`
	}
	if !c.postJSON("/v3/documents/list", map[string]any{"limit": limit, "page": page}, &out) {
		return nil, false
	}
	if out.Memories != nil {
		return out.Memories, true
	}
	return out.Documents, true
}

// ListAll paginates until an empty page, accumulating every record.
func (c *Client) ListAll() []Record {
	var all []Record
	for page := 1; ; page++ {
		records, ok := c.ListPage(listPageSize, page)
		if !ok || len(records) == 0 {
			break
		}
		all = append(all, records...)
	}
	return all
}

// Search returns up to limit ranked results using hybrid search.
func (c *Client) Search(query string, limit int) []SearchResult {
	var out struct {
		Results []SearchResult `json:"results"`
	}
	if !c.postJSON("/v4/search", map[string]any{"q": query, "limit": limit, "searchMode": "hybrid"}, &out) {
		return nil
	}
	return out.Results
}

// Add creates a text record. customID and title are optional.
func (c *Client) Add(content, customID, title string) bool {
	payload := map[string]any{"content": content}
	if customID != "" {
		payload["customId"] = customID
	}
	if title != "" {
		payload["title"] = title
	}
	return c.postJSON("/v3/memories", payload, nil)
}

// UploadFile transmits a file as a multipart payload.
func (c *Client) UploadFile(path, customID string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return false
	}
	if _, err := io.Copy(part, f); err != nil {
		return false
	}
	if customID != "" {
		if err := mw.WriteField("customId", customID); err != nil {
			return false
		}
	}
	if err := mw.Close(); err != nil {
		return false
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/v3/documents/file", &body)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+c.key())
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req, nil)
}

// Delete removes a record by id.
func (c *Client) Delete(id string) bool {
	req, err := http.NewRequest(http.MethodDelete, c.baseURL+"/v3/documents/"+id, nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+c.key())
	return c.do(req, nil)
}

func (c *Client) postJSON(path string, payload any, out any) bool {
	data, err := json.Marshal(payload)
	if err != nil {
		return false
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+c.key())
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) bool {
	resp, err := c.httpc.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return false
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return true
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false
	}
	return true
}

// FlattenResults concatenates the chunk contents of ranked results for
// presentation, separated by rules.
func FlattenResults(results []SearchResult) string {
	var parts []string
	for _, r := range results {
		for _, ch := range r.Chunks {
			if ch.Content != "" {
				parts = append(parts, ch.Content)
			}
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "\n\n---\n\n")
}
