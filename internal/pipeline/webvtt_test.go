package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeWebVTTDropsRepeatedHeaders(t *testing.T) {
	input := "WEBVTT\n\n00:00:00.000 --> 00:00:01.000\nHello\n\nWEBVTT\n\n00:00:01.000 --> 00:00:02.000\nWorld\n"
	dir := t.TempDir()
	path := filepath.Join(dir, "subs.vtt")
	require.NoError(t, os.WriteFile(path, []byte(input), 0o600))

	require.NoError(t, normalizeWebVTT(path))

	out, err := os.ReadFile(path)
	require.NoError(t, err)

	content := string(out)
	assert.Equal(t, 1, countOccurrences(content, "WEBVTT"))
	assert.Contains(t, content, "Hello")
	assert.Contains(t, content, "World")
}

func TestNormalizeWebVTTSingleHeaderUnchanged(t *testing.T) {
	input := "WEBVTT\n\n00:00:00.000 --> 00:00:01.000\nOnly cue\n"
	dir := t.TempDir()
	path := filepath.Join(dir, "subs.vtt")
	require.NoError(t, os.WriteFile(path, []byte(input), 0o600))

	require.NoError(t, normalizeWebVTT(path))

	out, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, countOccurrences(string(out), "WEBVTT"))
}

func countOccurrences(s, substr string) int {
	count := 0
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			count++
		}
	}
	return count
}
