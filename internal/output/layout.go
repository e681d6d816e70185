// Package output computes the bit-exact artifact layout described by
// spec.md §6, grounded on the teacher's sanitizeFileName helper
// (internal/downloader/movie_downloader.go) and its aspirational Plex
// path layout (internal/util/naming_test.go).
package output

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	invalidChars  = regexp.MustCompile(`[<>:"/\\|?*]`)
	whitespaceRun = regexp.MustCompile(`\s+`)
)

// Sanitize removes characters illegal in filenames, collapses
// whitespace runs to a single '.', and trims the result.
func Sanitize(name string) string {
	cleaned := invalidChars.ReplaceAllString(name, "")
	cleaned = whitespaceRun.ReplaceAllString(cleaned, ".")
	return strings.Trim(cleaned, ". ")
}

// MoviePath returns "<basePath>/<Sanitized.Title>.<year>.mp4".
func MoviePath(basePath, title, year string) string {
	name := fmt.Sprintf("%s.%s.mp4", Sanitize(title), year)
	return filepath.Join(basePath, name)
}

// EpisodePath returns
// "<basePath>/<Sanitized.Show>/Season <NN>/<Sanitized.Show>.S<NN>E<NN>[ - <Episode.Name>].mp4".
// episodeName may be empty, in which case the trailing " - <name>"
// segment is omitted.
func EpisodePath(basePath, show string, season, episode int, episodeName string) string {
	safeShow := Sanitize(show)
	seasonDir := fmt.Sprintf("Season %02d", season)

	fileName := fmt.Sprintf("%s.S%02dE%02d", safeShow, season, episode)
	if episodeName != "" {
		fileName += " - " + Sanitize(episodeName)
	}
	fileName += ".mp4"

	return filepath.Join(basePath, safeShow, seasonDir, fileName)
}

// SanitizeAbs cleans and absolutizes path, rejecting any result that
// still contains ".." after cleaning (directory traversal guard,
// grounded on internal/downloader/hls/hls.go's sanitizeOutputPath).
func SanitizeAbs(path string) (string, error) {
	cleanPath := filepath.Clean(path)
	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path: %w", err)
	}
	if strings.Contains(absPath, "..") {
		return "", fmt.Errorf("path contains directory traversal: %s", path)
	}
	return absPath, nil
}
