package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// lookupResponse is the external catalog service's JSON reply shape.
type lookupResponse struct {
	Title   string `json:"title"`
	Year    int    `json:"year"`
	Show    string `json:"show"`
	Season  int    `json:"season"`
	Episode int    `json:"episode"`
}

// HTTPLookup implements Lookup against a catalog HTTP service at
// BaseURL, the external metadata collaborator spec.md §1 carves out
// of scope. JSON-GET shape grounded the same way as
// resolver.HTTPResolver, on the teacher's json.Unmarshal-response
// scraper idiom.
type HTTPLookup struct {
	Client  *http.Client
	BaseURL string
}

// NewHTTPLookup constructs an HTTPLookup. A nil client falls back to
// http.DefaultClient.
func NewHTTPLookup(client *http.Client, baseURL string) *HTTPLookup {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPLookup{Client: client, BaseURL: baseURL}
}

// Lookup implements Lookup.
func (h *HTTPLookup) Lookup(ctx context.Context, contentID string) (Info, error) {
	q := url.Values{}
	q.Set("contentId", contentID)
	reqURL := h.BaseURL + "/lookup?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Info{}, fmt.Errorf("catalog: build request: %w", err)
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		return Info{}, fmt.Errorf("catalog: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Info{}, fmt.Errorf("catalog: unexpected status %d for %q", resp.StatusCode, contentID)
	}

	var parsed lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Info{}, fmt.Errorf("catalog: decode response: %w", err)
	}

	return Info{
		Title:   parsed.Title,
		Year:    parsed.Year,
		Show:    parsed.Show,
		Season:  parsed.Season,
		Episode: parsed.Episode,
	}, nil
}
