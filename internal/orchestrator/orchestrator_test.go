package orchestrator

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
	"github.com/alvarorichard/vixstream/internal/progress"
	"github.com/alvarorichard/vixstream/internal/segment"
	"github.com/alvarorichard/vixstream/internal/transcoder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVideoOnlyServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/video.m3u8", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "#EXTM3U\n#EXTINF:4.0,\nv0.ts\n")
	})
	mux.HandleFunc("/v0.ts", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("VIDEO-DATA"))
	})
	return httptest.NewServer(mux)
}

// fakeMuxBinary stands in for ffmpeg: it copies the file following the
// first "-i" flag onto the last argument, standing in for a
// copy-codec conversion/mux without requiring a real ffmpeg on the
// test host.
func fakeMuxBinary(t *testing.T) string {
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
if [ -n "$input" ]; then
  cp "$input" "$out"
else
  : > "$out"
fi
`
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestOrchestratorVideoOnlyShortCircuitsMux(t *testing.T) {
	srv := newVideoOnlyServer(t)
	defer srv.Close()

	master := &domain.Playlist{
		Kind:     domain.PlaylistMaster,
		Variants: []domain.VideoVariant{{Bandwidth: 1000, URL: srv.URL + "/video.m3u8"}},
	}

	tempRoot := t.TempDir()
	bus := progress.NewBus()
	o := New(
		tempRoot,
		playlist.NewParser(srv.Client()),
		segment.NewFetcher(srv.Client()),
		transcoder.NewRunner(fakeMuxBinary(t), process.NewManager()),
		segment.Options{Concurrency: 1},
		bus,
		4,
	)

	task := &domain.Task{ID: domain.NewTaskID(), Status: domain.StatusDownloading}
	task.OutputPath = filepath.Join(tempRoot, "final.mp4")

	err := o.Run(context.Background(), task, master, "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, task.Status)

	data, err := os.ReadFile(task.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, "VIDEO-DATA", string(data))

	_, statErr := os.Stat(filepath.Join(tempRoot, task.ID))
	assert.True(t, os.IsNotExist(statErr), "scratch dir should be cleaned up")
}

func TestOrchestratorFailsWhenVideoFails(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/video.m3u8", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	master := &domain.Playlist{
		Kind:     domain.PlaylistMaster,
		Variants: []domain.VideoVariant{{Bandwidth: 1000, URL: srv.URL + "/video.m3u8"}},
	}

	tempRoot := t.TempDir()
	o := New(
		tempRoot,
		playlist.NewParser(srv.Client()),
		segment.NewFetcher(srv.Client()),
		transcoder.NewRunner(fakeMuxBinary(t), process.NewManager()),
		segment.Options{Concurrency: 1},
		progress.NewBus(),
		4,
	)

	task := &domain.Task{ID: domain.NewTaskID(), Status: domain.StatusDownloading}
	err := o.Run(context.Background(), task, master, "")
	require.Error(t, err)
	assert.Equal(t, domain.StatusFailed, task.Status)
}

func TestOrchestratorAudioNotFoundProceedsWithEmbeddedAudio(t *testing.T) {
	srv := newVideoOnlyServer(t)
	defer srv.Close()

	master := &domain.Playlist{
		Kind:     domain.PlaylistMaster,
		Variants: []domain.VideoVariant{{Bandwidth: 1000, URL: srv.URL + "/video.m3u8"}},
		// no Audios entries: every requested language is NOT_FOUND
	}

	tempRoot := t.TempDir()
	o := New(
		tempRoot,
		playlist.NewParser(srv.Client()),
		segment.NewFetcher(srv.Client()),
		transcoder.NewRunner(fakeMuxBinary(t), process.NewManager()),
		segment.Options{Concurrency: 1},
		progress.NewBus(),
		4,
	)

	task := &domain.Task{ID: domain.NewTaskID(), Status: domain.StatusDownloading, Languages: []string{"en"}}
	task.OutputPath = filepath.Join(tempRoot, "final.mp4")

	err := o.Run(context.Background(), task, master, "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, task.Status)
}
