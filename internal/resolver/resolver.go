// Package resolver specifies the PlaylistResolver and
// AvailabilityProbe collaborator interfaces (spec.md §1, §6): the
// embed-page scrape and URL construction that yields a master
// playlist URL is explicitly out of scope, so this package only
// defines the narrow boundary and a test double, grounded on the
// teacher's adapter-style scrapers (internal/scraper/*.go) which
// already wrap an external site behind a narrow interface.
package resolver

import (
	"context"
	"fmt"

	"github.com/alvarorichard/vixstream/internal/domain"
	"github.com/pkg/errors"
)

// ErrNotAvailable is returned when the requested content/language
// combination does not exist upstream (spec.md §7: "fatal to Task at
// admit").
var ErrNotAvailable = errors.New("resolver: content not available")

// Resolver maps a (content, language) request to the referer and
// master playlist URLs a PlaylistResolver collaborator produces.
type Resolver interface {
	Resolve(ctx context.Context, kind domain.ContentKind, contentID string, season, episode *int, language string) (refererURL, masterURL string, err error)
}

// StaticResolver is a fixture-backed Resolver for tests: it look up a
// fixed table of (contentID, language) -> (referer, master) pairs,
// modeled on how the teacher's scrapers wrap a single external source
// behind SearchAnime/GetStreamURL.
type StaticResolver struct {
	Entries map[string]map[string]StaticEntry
}

// StaticEntry is one resolvable (content, language) pair.
type StaticEntry struct {
	RefererURL string
	MasterURL  string
}

// NewStaticResolver constructs an empty StaticResolver; use Add to
// populate it.
func NewStaticResolver() *StaticResolver {
	return &StaticResolver{Entries: make(map[string]map[string]StaticEntry)}
}

// Add registers a resolvable entry for contentID/language.
func (s *StaticResolver) Add(contentID, language string, entry StaticEntry) *StaticResolver {
	if s.Entries[contentID] == nil {
		s.Entries[contentID] = make(map[string]StaticEntry)
	}
	s.Entries[contentID][language] = entry
	return s
}

// Resolve implements Resolver.
func (s *StaticResolver) Resolve(_ context.Context, _ domain.ContentKind, contentID string, _, _ *int, language string) (string, string, error) {
	byLang, ok := s.Entries[contentID]
	if !ok {
		return "", "", errors.Wrapf(ErrNotAvailable, "content %q", contentID)
	}
	entry, ok := byLang[language]
	if !ok {
		return "", "", errors.Wrapf(ErrNotAvailable, "content %q language %q", contentID, language)
	}
	return entry.RefererURL, entry.MasterURL, nil
}

// ErrProbe wraps an underlying transport error encountered while
// probing availability.
type ErrProbe struct {
	Language string
	Err      error
}

func (e *ErrProbe) Error() string {
	return fmt.Sprintf("probe %s: %v", e.Language, e.Err)
}

func (e *ErrProbe) Unwrap() error { return e.Err }
