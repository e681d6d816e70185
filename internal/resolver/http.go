package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/alvarorichard/vixstream/internal/domain"
	"github.com/pkg/errors"
)

// resolveResponse is the extractor service's JSON reply shape, mirroring
// the {referer, master} pair the interface contract in spec.md §6
// names (refererUrl, masterPlaylistUrl).
type resolveResponse struct {
	RefererURL string `json:"refererUrl"`
	MasterURL  string `json:"masterPlaylistUrl"`
	Available  bool   `json:"available"`
}

// HTTPResolver implements Resolver against an extractor HTTP service
// at BaseURL, the external collaborator spec.md §1/§6 carves out of
// scope. Request shape follows the teacher's JSON-API scrapers
// (internal/scraper/allanime.go's json.Unmarshal-a-GraphQL-response
// idiom), generalized to a plain REST GET since the extractor's own
// protocol is unspecified.
type HTTPResolver struct {
	Client  *http.Client
	BaseURL string
}

// NewHTTPResolver constructs an HTTPResolver. A nil client falls back
// to http.DefaultClient.
func NewHTTPResolver(client *http.Client, baseURL string) *HTTPResolver {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPResolver{Client: client, BaseURL: baseURL}
}

// Resolve implements Resolver.
func (h *HTTPResolver) Resolve(ctx context.Context, kind domain.ContentKind, contentID string, season, episode *int, language string) (string, string, error) {
	q := url.Values{}
	q.Set("kind", string(kind))
	q.Set("contentId", contentID)
	q.Set("language", language)
	if season != nil {
		q.Set("season", strconv.Itoa(*season))
	}
	if episode != nil {
		q.Set("episode", strconv.Itoa(*episode))
	}

	reqURL := h.BaseURL + "/resolve?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", "", fmt.Errorf("resolver: build request: %w", err)
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("resolver: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return "", "", errors.Wrapf(ErrNotAvailable, "content %q language %q", contentID, language)
	}
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("resolver: unexpected status %d for %q", resp.StatusCode, contentID)
	}

	var parsed resolveResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", "", fmt.Errorf("resolver: decode response: %w", err)
	}
	if !parsed.Available {
		return "", "", errors.Wrapf(ErrNotAvailable, "content %q language %q", contentID, language)
	}

	return parsed.RefererURL, parsed.MasterURL, nil
}
