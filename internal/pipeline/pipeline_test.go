package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/alvarorichard/vixstream/internal/domain"
	"github.com/alvarorichard/vixstream/internal/playlist"
	"github.com/alvarorichard/vixstream/internal/process"
	"github.com/alvarorichard/vixstream/internal/segment"
	"github.com/alvarorichard/vixstream/internal/transcoder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/media.m3u8", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "#EXTM3U\n#EXTINF:4.0,\nseg0.ts\n#EXTINF:4.0,\nseg1.ts\n")
	})
	mux.HandleFunc("/seg0.ts", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("AAAA"))
	})
	mux.HandleFunc("/seg1.ts", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("BBBB"))
	})
	return httptest.NewServer(mux)
}

// fakeCopyRunner stands in for ffmpeg: it copies the file following
// the first "-i" flag onto the last argument, standing in for a
// copy-codec conversion without requiring a real ffmpeg on the test
// host.
func fakeCopyRunner(t *testing.T) *transcoder.Runner {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake binary harness is POSIX-shell only")
	}
	path := filepath.Join(t.TempDir(), "fake-ffmpeg.sh")
	script := `#!/bin/sh
input=""
prev=""
for a in "$@"; do
  if [ "$prev" = "-i" ] && [ -z "$input" ]; then
    input="$a"
  fi
  prev="$a"
done
shift $(($# - 1))
out="$1"
cp "$input" "$out"
`
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return transcoder.NewRunner(path, process.NewManager())
}

func TestPipelineRunVideoSucceeds(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	master := &domain.Playlist{
		Kind: domain.PlaylistMaster,
		Variants: []domain.VideoVariant{
			{Bandwidth: 1000, Height: 720, URL: srv.URL + "/media.m3u8"},
		},
	}
	sub := &domain.SubTask{Kind: domain.TrackVideo}

	p := NewPipeline(domain.TrackVideo, playlist.NewParser(srv.Client()), segment.NewFetcher(srv.Client()), fakeCopyRunner(t), "720", segment.Options{Concurrency: 2})

	dir := t.TempDir()
	outcome := p.Run(context.Background(), master, sub, dir, "", nil)
	require.NoError(t, outcome.Err)
	assert.Equal(t, domain.StatusCompleted, outcome.Status)
	assert.Equal(t, ".mp4", filepath.Ext(outcome.OutputPath))
	assert.Equal(t, domain.StatusMerging, sub.Status, "sub should be left in the conversion phase's terminal marker until the caller overwrites it with the outcome")

	data, err := os.ReadFile(outcome.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, "AAAABBBB", string(data))
	assert.Equal(t, int64(len("AAAABBBB")), outcome.Bytes)

	_, err = os.Stat(filepath.Join(dir, "VIDEO_default.ts"))
	assert.True(t, os.IsNotExist(err), "intermediate .ts must be deleted after conversion")
}

func TestPipelineRunAudioNotFoundWhenLanguageMissing(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	master := &domain.Playlist{Kind: domain.PlaylistMaster}
	sub := &domain.SubTask{Kind: domain.TrackAudio, Language: "fr"}

	p := NewPipeline(domain.TrackAudio, playlist.NewParser(srv.Client()), segment.NewFetcher(srv.Client()), nil, "", segment.Options{})
	outcome := p.Run(context.Background(), master, sub, t.TempDir(), "", nil)

	assert.Equal(t, domain.StatusNotFound, outcome.Status)
	assert.NoError(t, outcome.Err)
}

func TestPipelineRunAudioConvertsToM4AAndSetsTitle(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/audio.m3u8", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "#EXTM3U\n#EXTINF:4.0,\na0.ts\n")
	})
	mux.HandleFunc("/a0.ts", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("AUDIO"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	master := &domain.Playlist{
		Kind: domain.PlaylistMaster,
		Audios: []domain.AudioTrack{
			{Language: "en", Name: "English", URL: srv.URL + "/audio.m3u8"},
		},
	}
	sub := &domain.SubTask{Kind: domain.TrackAudio, Language: "en"}

	p := NewPipeline(domain.TrackAudio, playlist.NewParser(srv.Client()), segment.NewFetcher(srv.Client()), fakeCopyRunner(t), "", segment.Options{})
	outcome := p.Run(context.Background(), master, sub, t.TempDir(), "", nil)

	require.NoError(t, outcome.Err)
	assert.Equal(t, domain.StatusCompleted, outcome.Status)
	assert.Equal(t, ".m4a", filepath.Ext(outcome.OutputPath))
	assert.Equal(t, "English", sub.Title, "selector's resolved Name must be copied onto the SubTask")

	data, err := os.ReadFile(outcome.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, "AUDIO", string(data))
}

func TestPipelineRunSubtitleWritesNormalizedVTT(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/subs.m3u8", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "#EXTM3U\n#EXTINF:4.0,\nsubs0.vtt\n#EXTINF:4.0,\nsubs1.vtt\n")
	})
	mux.HandleFunc("/subs0.vtt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "WEBVTT\n\n00:00:00.000 --> 00:00:01.000\nHello\n")
	})
	mux.HandleFunc("/subs1.vtt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "WEBVTT\n\n00:00:01.000 --> 00:00:02.000\nWorld\n")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	master := &domain.Playlist{
		Kind: domain.PlaylistMaster,
		Subtitles: []domain.SubtitleTrack{
			{Language: "en", Name: "English", URL: srv.URL + "/subs.m3u8"},
		},
	}
	sub := &domain.SubTask{Kind: domain.TrackSubtitle, Language: "en"}

	// No Runner: subtitle post-processing never shells out to the
	// external binary, unlike video/audio.
	p := NewPipeline(domain.TrackSubtitle, playlist.NewParser(srv.Client()), segment.NewFetcher(srv.Client()), nil, "", segment.Options{})
	outcome := p.Run(context.Background(), master, sub, t.TempDir(), "", nil)

	require.NoError(t, outcome.Err)
	assert.Equal(t, domain.StatusCompleted, outcome.Status)
	assert.Equal(t, ".vtt", filepath.Ext(outcome.OutputPath))
	assert.Equal(t, "English", sub.Title)

	data, err := os.ReadFile(outcome.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, 1, countOccurrences(string(data), "WEBVTT"))
}
