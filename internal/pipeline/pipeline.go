// Package pipeline implements TrackPipeline (spec.md §4.6): the
// per-track parse→select→fetch→convert flow, dispatched by
// domain.TrackKind. Shape is the teacher's adapter-map pattern in
// internal/scraper/unified.go (UnifiedScraper behind ScraperManager),
// shrunk from a map-of-adapters to a switch-selected strategy since
// there are exactly three track kinds.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alvarorichard/vixstream/internal/domain"
	"github.com/alvarorichard/vixstream/internal/playlist"
	"github.com/alvarorichard/vixstream/internal/progress"
	"github.com/alvarorichard/vixstream/internal/segment"
	"github.com/alvarorichard/vixstream/internal/transcoder"
	"github.com/alvarorichard/vixstream/internal/variant"
	"github.com/alvarorichard/vixstream/internal/vixlog"
)

// TrackOutcome is the result of running one SubTask through its
// pipeline.
type TrackOutcome struct {
	Status     domain.Status
	OutputPath string
	Language   string
	Bytes      int64
	Err        error
}

// trackStrategy is implemented per domain.TrackKind.
type trackStrategy interface {
	// resolveURL picks this track's media playlist URL out of master,
	// per the SubTask's requested language (ignored for video), and
	// the track's resolved display name if the playlist carries one
	// (empty for video, which has no #EXT-X-MEDIA NAME attribute).
	resolveURL(master *domain.Playlist, sub *domain.SubTask, quality string) (url, name string, ok bool)
}

type videoStrategy struct{}

func (videoStrategy) resolveURL(master *domain.Playlist, sub *domain.SubTask, quality string) (string, string, bool) {
	v, ok := variant.SelectVideo(master.Variants, quality)
	if !ok {
		return "", "", false
	}
	return v.URL, "", true
}

type audioStrategy struct{}

func (audioStrategy) resolveURL(master *domain.Playlist, sub *domain.SubTask, _ string) (string, string, bool) {
	a, ok := variant.SelectAudio(master.Audios, sub.Language)
	if !ok {
		return "", "", false
	}
	return a.URL, a.Name, true
}

type subtitleStrategy struct{}

func (subtitleStrategy) resolveURL(master *domain.Playlist, sub *domain.SubTask, _ string) (string, string, bool) {
	s, ok := variant.SelectSubtitle(master.Subtitles, sub.Language)
	if !ok {
		return "", "", false
	}
	return s.URL, s.Name, true
}

func strategyFor(kind domain.TrackKind) trackStrategy {
	switch kind {
	case domain.TrackVideo:
		return videoStrategy{}
	case domain.TrackAudio:
		return audioStrategy{}
	case domain.TrackSubtitle:
		return subtitleStrategy{}
	default:
		return nil
	}
}

// Pipeline runs one SubTask end to end: resolve its media URL out of
// the master playlist, fetch its own media playlist, download its
// segments, decrypt/concatenate, convert the result into its final
// container (video/audio) or normalize it (subtitle), and report the
// produced artifact.
type Pipeline struct {
	Kind    domain.TrackKind
	Parser  *playlist.Parser
	Fetcher *segment.Fetcher
	Runner  *transcoder.Runner // drives the per-track conversion step (spec.md §4.6 step 6)
	Quality string             // only consulted for TrackVideo
	Options segment.Options

	// Bus and TaskID, when set, let Run publish the conversion-starting
	// progress event spec.md §4.6 step 5 requires. Both are optional:
	// a nil Bus silently skips the publish (used by tests that only
	// care about the produced file).
	Bus    *progress.Bus
	TaskID string
}

// NewPipeline constructs a Pipeline for kind.
func NewPipeline(kind domain.TrackKind, parser *playlist.Parser, fetcher *segment.Fetcher, runner *transcoder.Runner, quality string, opts segment.Options) *Pipeline {
	return &Pipeline{Kind: kind, Parser: parser, Fetcher: fetcher, Runner: runner, Quality: quality, Options: opts}
}

// Run executes the pipeline for sub, writing its output under
// scratchDir, reporting byte-level progress via onProgress.
func (p *Pipeline) Run(ctx context.Context, master *domain.Playlist, sub *domain.SubTask, scratchDir, referer string, onProgress segment.ProgressFunc) TrackOutcome {
	strategy := strategyFor(p.Kind)
	if strategy == nil {
		return TrackOutcome{Status: domain.StatusFailed, Err: fmt.Errorf("unknown track kind %q", p.Kind)}
	}

	mediaURL, name, ok := strategy.resolveURL(master, sub, p.Quality)
	if !ok {
		if p.Kind != domain.TrackVideo {
			return TrackOutcome{Status: domain.StatusNotFound, Language: sub.Language}
		}
		return TrackOutcome{Status: domain.StatusFailed, Err: fmt.Errorf("no video variant available")}
	}
	if name != "" {
		sub.Title = name
	}

	media, err := p.Parser.Fetch(ctx, mediaURL, referer)
	if err != nil {
		return TrackOutcome{Status: domain.StatusFailed, Err: fmt.Errorf("fetch media playlist: %w", err)}
	}
	if media.Kind != domain.PlaylistMedia {
		return TrackOutcome{Status: domain.StatusFailed, Err: fmt.Errorf("expected media playlist, got master")}
	}

	opts := p.Options
	opts.Encryption = media.Encryption
	if media.Encryption != nil && media.Encryption.Method == domain.EncryptionAES128 {
		keyBytes, err := p.Parser.FetchKey(ctx, media.Encryption.KeyURL, referer)
		if err != nil {
			return TrackOutcome{Status: domain.StatusFailed, Err: fmt.Errorf("fetch decryption key: %w", err)}
		}
		opts.KeyBytes = keyBytes
	}

	if p.Kind == domain.TrackSubtitle {
		rawPath := filepath.Join(scratchDir, fmt.Sprintf("%s_%s.vtt", p.Kind, safeLang(sub.Language)))
		if err := p.Fetcher.Fetch(ctx, media.Segments, rawPath, opts, onProgress); err != nil {
			return TrackOutcome{Status: domain.StatusFailed, Err: err}
		}
		if err := normalizeWebVTT(rawPath); err != nil {
			return TrackOutcome{Status: domain.StatusFailed, Err: fmt.Errorf("normalize webvtt: %w", err)}
		}
		return TrackOutcome{Status: domain.StatusCompleted, OutputPath: rawPath, Language: sub.Language, Bytes: fileSize(rawPath)}
	}

	tsPath := filepath.Join(scratchDir, fmt.Sprintf("%s_%s.ts", p.Kind, safeLang(sub.Language)))
	if err := p.Fetcher.Fetch(ctx, media.Segments, tsPath, opts, onProgress); err != nil {
		return TrackOutcome{Status: domain.StatusFailed, Err: err}
	}

	container := "mp4"
	var args []string
	if p.Kind == domain.TrackAudio {
		container = "m4a"
	}
	finalPath := filepath.Join(scratchDir, fmt.Sprintf("%s_%s.%s", p.Kind, safeLang(sub.Language), container))
	if p.Kind == domain.TrackAudio {
		args = transcoder.BuildAudioConvertArgs(tsPath, finalPath)
	} else {
		args = transcoder.BuildVideoConvertArgs(tsPath, finalPath)
	}

	p.publishConverting(sub, container)

	if p.Runner == nil {
		return TrackOutcome{Status: domain.StatusFailed, Err: fmt.Errorf("no transcoder runner configured")}
	}
	if err := p.Runner.Run(ctx, subTaskKey(p.TaskID, sub.ID), args, nil); err != nil {
		_ = os.Remove(tsPath)
		return TrackOutcome{Status: domain.StatusFailed, Err: fmt.Errorf("convert to %s: %w", container, err)}
	}

	if err := os.Remove(tsPath); err != nil && !os.IsNotExist(err) {
		vixlog.Warnf("pipeline: failed to remove intermediate segment file %s: %v", tsPath, err)
	}

	return TrackOutcome{Status: domain.StatusCompleted, OutputPath: finalPath, Language: sub.Language, Bytes: fileSize(finalPath)}
}

// publishConverting emits the spec.md §4.6 step 5 conversion-starting
// event and marks the SubTask MERGING: the segments phase is complete
// and the per-track conversion, itself a small mux invocation, is
// starting.
func (p *Pipeline) publishConverting(sub *domain.SubTask, container string) {
	sub.Status = domain.StatusMerging
	sub.Progress = 100
	if p.Bus == nil {
		return
	}
	p.Bus.Publish(domain.ProgressEvent{
		TaskID:    p.TaskID,
		SubTaskID: sub.ID,
		Status:    domain.StatusMerging,
		Progress:  domain.Float64Ptr(100),
		Message:   fmt.Sprintf("Converting to %s", container),
	})
}

func subTaskKey(taskID, subTaskID string) string {
	return taskID + ":" + subTaskID
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

func safeLang(lang string) string {
	if lang == "" {
		return "default"
	}
	return lang
}
