package resolver

import (
	"context"
	"net/http"
	"sync"

	"github.com/alvarorichard/vixstream/internal/domain"
)

// AvailabilityProbe issues concurrent HEAD requests to check whether
// content exists for each requested language, short-circuiting on the
// first hit per language and retrying a single 503 once — grounded on
// the teacher's goquery/surf-based HTTP probing idiom in
// internal/scraper/flixhq.go.
type AvailabilityProbe struct {
	Client   *http.Client
	Resolver Resolver
}

// NewAvailabilityProbe constructs a probe using client (a nil client
// falls back to http.DefaultClient) and resolver to turn each
// (content, language) pair into a URL to HEAD.
func NewAvailabilityProbe(client *http.Client, resolver Resolver) *AvailabilityProbe {
	if client == nil {
		client = http.DefaultClient
	}
	return &AvailabilityProbe{Client: client, Resolver: resolver}
}

// Probe checks availability for each of langs concurrently.
func (p *AvailabilityProbe) Probe(ctx context.Context, kind domain.ContentKind, contentID string, langs []string) (map[string]bool, error) {
	available := make(map[string]bool, len(langs))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, lang := range langs {
		wg.Add(1)
		go func(lang string) {
			defer wg.Done()
			ok := p.probeOne(ctx, kind, contentID, lang)
			mu.Lock()
			available[lang] = ok
			mu.Unlock()
		}(lang)
	}

	wg.Wait()
	return available, nil
}

func (p *AvailabilityProbe) probeOne(ctx context.Context, kind domain.ContentKind, contentID, lang string) bool {
	_, masterURL, err := p.Resolver.Resolve(ctx, kind, contentID, nil, nil, lang)
	if err != nil {
		return false
	}

	ok, retried := p.head(ctx, masterURL), false
	for !ok && !retried {
		ok = p.head(ctx, masterURL)
		retried = true
	}
	return ok
}

func (p *AvailabilityProbe) head(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusServiceUnavailable {
		return false
	}
	return resp.StatusCode >= 200 && resp.StatusCode < 400
}
