// Package catalog specifies the external metadata lookup collaborator
// (spec.md §1: "out of scope, specified only at its interface") plus a
// fixture-backed test double, grounded on the teacher's
// internal/api/anime.go AniList/animefire HTML-scrape shape (external
// metadata lookup behind a narrow function) using
// PuerkitoBio/goquery for the fixture parser, mirroring how the
// teacher's scrapers parse catalog/episode pages.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Info is the metadata a catalog Lookup yields for a content ID.
type Info struct {
	Title   string
	Year    int
	Show    string // episode only
	Season  int    // episode only
	Episode int    // episode only
}

// Lookup resolves a content ID to display/path metadata. The real
// implementation (an external catalog service client) is out of
// scope; this interface is the boundary SPEC_FULL.md's output-path
// builder (internal/output) consumes.
type Lookup interface {
	Lookup(ctx context.Context, contentID string) (Info, error)
}

// FixtureLookup is an HTML-fixture-backed Lookup for tests, parsing a
// minimal catalog page format with goquery the way the teacher's
// scrapers parse anime listing/episode pages.
type FixtureLookup struct {
	// Pages maps a contentID to the raw HTML fixture describing it.
	Pages map[string]string
}

// NewFixtureLookup constructs an empty FixtureLookup.
func NewFixtureLookup() *FixtureLookup {
	return &FixtureLookup{Pages: make(map[string]string)}
}

// AddPage registers the HTML fixture for contentID.
func (f *FixtureLookup) AddPage(contentID, html string) *FixtureLookup {
	f.Pages[contentID] = html
	return f
}

// Lookup parses the registered fixture for contentID. Expected shape:
//
//	<div class="title">Show Name</div>
//	<div class="year">2024</div>
//	<div class="season">1</div>
//	<div class="episode">3</div>
func (f *FixtureLookup) Lookup(_ context.Context, contentID string) (Info, error) {
	html, ok := f.Pages[contentID]
	if !ok {
		return Info{}, fmt.Errorf("catalog: no fixture registered for %q", contentID)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Info{}, fmt.Errorf("catalog: parse fixture: %w", err)
	}

	info := Info{
		Title: strings.TrimSpace(doc.Find(".title").First().Text()),
		Show:  strings.TrimSpace(doc.Find(".title").First().Text()),
	}
	info.Year = parseIntOrZero(doc.Find(".year").First().Text())
	info.Season = parseIntOrZero(doc.Find(".season").First().Text())
	info.Episode = parseIntOrZero(doc.Find(".episode").First().Text())

	if info.Title == "" {
		return Info{}, fmt.Errorf("catalog: fixture for %q has no title", contentID)
	}

	return info, nil
}

func parseIntOrZero(s string) int {
	s = strings.TrimSpace(s)
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return n
		}
		n = n*10 + int(r-'0')
	}
	return n
}
