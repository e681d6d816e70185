package pipeline

import (
	"bufio"
	"os"
	"strings"
)

// normalizeWebVTT rewrites path in place, keeping only the first
// "WEBVTT" header line and its immediately following blank line; any
// repeated header (each concatenated media-playlist segment of a
// WebVTT subtitle track carries its own) and its trailing blank line
// are dropped, per spec.md §9's precise rule. All other lines pass
// through verbatim.
func normalizeWebVTT(path string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}

	var out []string
	seenHeader := false
	skipNextBlank := false

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(strings.TrimSpace(line), "WEBVTT") {
			if seenHeader {
				skipNextBlank = true
				continue
			}
			seenHeader = true
			out = append(out, line)
			continue
		}

		if skipNextBlank && strings.TrimSpace(line) == "" {
			skipNextBlank = false
			continue
		}
		skipNextBlank = false

		out = append(out, line)
	}
	scanErr := scanner.Err()
	_ = in.Close()
	if scanErr != nil {
		return scanErr
	}

	return os.WriteFile(path, []byte(strings.Join(out, "\n")+"\n"), 0o600)
}
