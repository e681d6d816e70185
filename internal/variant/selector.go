// Package variant implements VariantSelector (spec.md §4.2): video
// quality selection and audio/subtitle language matching.
package variant

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/alvarorichard/vixstream/internal/domain"
)

var qualityHintRe = regexp.MustCompile(`^(\d+)p?$`)

// SelectVideo chooses a video variant according to quality, a string
// of the form "<integer>[p]" (match height exactly) or "best"/"worst"/
// anything else (max bandwidth). Ties break by first occurrence.
func SelectVideo(variants []domain.VideoVariant, quality string) (domain.VideoVariant, bool) {
	if len(variants) == 0 {
		return domain.VideoVariant{}, false
	}

	switch strings.ToLower(strings.TrimSpace(quality)) {
	case "worst":
		worst := variants[0]
		for _, v := range variants[1:] {
			if v.Bandwidth < worst.Bandwidth {
				worst = v
			}
		}
		return worst, true
	}

	if m := qualityHintRe.FindStringSubmatch(strings.TrimSpace(quality)); len(m) == 2 {
		height, _ := strconv.Atoi(m[1])
		for _, v := range variants {
			if v.Height == height {
				return v, true
			}
		}
		// No exact height match: fall through to max-bandwidth choice,
		// matching the teacher's selectBestStream fallback behavior.
	}

	best := variants[0]
	for _, v := range variants[1:] {
		if v.Bandwidth > best.Bandwidth {
			best = v
		}
	}
	return best, true
}

// SelectAudio finds the audio track matching language, per spec.md
// §4.2: case-insensitive exact match, else ISO 639-1/639-2 two-way
// prefix match.
func SelectAudio(tracks []domain.AudioTrack, language string) (domain.AudioTrack, bool) {
	for _, t := range tracks {
		if strings.EqualFold(t.Language, language) {
			return t, true
		}
	}
	for _, t := range tracks {
		if languagePrefixMatch(t.Language, language) {
			return t, true
		}
	}
	return domain.AudioTrack{}, false
}

// SelectSubtitle finds the subtitle track matching language, using
// the same match rule as SelectAudio.
func SelectSubtitle(tracks []domain.SubtitleTrack, language string) (domain.SubtitleTrack, bool) {
	for _, t := range tracks {
		if strings.EqualFold(t.Language, language) {
			return t, true
		}
	}
	for _, t := range tracks {
		if languagePrefixMatch(t.Language, language) {
			return t, true
		}
	}
	return domain.SubtitleTrack{}, false
}

// languagePrefixMatch implements the two-way ISO 639-1 ("en") / ISO
// 639-2 ("eng") prefix match: the shorter code must be a
// case-insensitive prefix of the longer one.
func languagePrefixMatch(a, b string) bool {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a == "" || b == "" {
		return false
	}
	if len(a) <= len(b) {
		return strings.HasPrefix(b, a)
	}
	return strings.HasPrefix(a, b)
}
