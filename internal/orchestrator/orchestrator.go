// Package orchestrator implements TrackOrchestrator (spec.md §4.7):
// scratch directory lifecycle, SubTask fan-out, bounded parallel
// pipeline execution, the track failure policy, mux argv
// construction, and guaranteed cleanup on every exit path — grounded
// on the defer-chain cleanup structure of the teacher's
// internal/downloader/movie_downloader.go.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/alvarorichard/vixstream/internal/domain"
	"github.com/alvarorichard/vixstream/internal/pipeline"
	"github.com/alvarorichard/vixstream/internal/playlist"
	"github.com/alvarorichard/vixstream/internal/progress"
	"github.com/alvarorichard/vixstream/internal/segment"
	"github.com/alvarorichard/vixstream/internal/transcoder"
	"github.com/alvarorichard/vixstream/internal/vixlog"
)

// wallClockCap bounds the parallel-download phase (spec.md §4.7 step
// 3 default).
const wallClockCap = 2 * time.Hour

// trackExecutor is a process-wide semaphore bounding the number of
// concurrently running track pipelines across ALL tasks, preventing
// runaway fan-out under a batch admit (spec.md §5 pool 2).
type trackExecutor struct {
	sem chan struct{}
}

func newTrackExecutor(capacity int) *trackExecutor {
	return &trackExecutor{sem: make(chan struct{}, capacity)}
}

func (t *trackExecutor) acquire(ctx context.Context) error {
	select {
	case t.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *trackExecutor) release() { <-t.sem }

// Orchestrator runs TrackOrchestrator over admitted Tasks.
type Orchestrator struct {
	TempRoot    string
	Parser      *playlist.Parser
	Fetcher     *segment.Fetcher
	MuxRunner   *transcoder.Runner
	SegmentOpts segment.Options
	Bus         *progress.Bus
	trackExec   *trackExecutor
}

// New constructs an Orchestrator. executorCapacity bounds
// process-wide concurrent track pipelines (spec.md §5 pool 2).
func New(tempRoot string, parser *playlist.Parser, fetcher *segment.Fetcher, muxRunner *transcoder.Runner, segOpts segment.Options, bus *progress.Bus, executorCapacity int) *Orchestrator {
	if executorCapacity <= 0 {
		executorCapacity = 16
	}
	return &Orchestrator{
		TempRoot:    tempRoot,
		Parser:      parser,
		Fetcher:     fetcher,
		MuxRunner:   muxRunner,
		SegmentOpts: segOpts,
		Bus:         bus,
		trackExec:   newTrackExecutor(executorCapacity),
	}
}

type trackResult struct {
	sub     *domain.SubTask
	outcome pipeline.TrackOutcome
}

// Run executes the full lifecycle for task against master, per
// spec.md §4.7. Cleanup of the scratch directory is guaranteed on
// every exit path, including ctx cancellation.
func (o *Orchestrator) Run(ctx context.Context, task *domain.Task, master *domain.Playlist, referer string) error {
	scratchDir := filepath.Join(o.TempRoot, task.ID)
	if err := os.MkdirAll(scratchDir, 0o750); err != nil {
		return fmt.Errorf("create scratch dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(scratchDir); err != nil {
			vixlog.Warnf("orchestrator: failed to remove scratch dir %s: %v", scratchDir, err)
		}
	}()

	runCtx, cancel := context.WithTimeout(ctx, wallClockCap)
	defer cancel()

	subs := o.fanOut(task)
	task.SubTasks = subs
	o.publish(task, "")

	results := o.runAll(runCtx, task.ID, task.Quality, subs, master, scratchDir, referer)

	if runCtx.Err() != nil {
		task.SetStatus(domain.StatusCancelled)
		o.publish(task, "cancelled")
		return runCtx.Err()
	}

	failMsg, fatal, audio := o.evaluateFailurePolicy(results)
	if fatal {
		task.SetStatus(domain.StatusFailed)
		task.Error = failMsg
		o.publish(task, failMsg)
		return fmt.Errorf("%s", failMsg)
	}

	task.SetStatus(domain.StatusMerging)
	task.Progress = 0
	o.publish(task, "")

	outputPath, err := o.mux(runCtx, task, results, scratchDir)
	if err != nil {
		task.SetStatus(domain.StatusFailed)
		task.Error = err.Error()
		o.publish(task, err.Error())
		return err
	}

	now := time.Now()
	task.SetStatus(domain.StatusCompleted)
	task.Progress = 100
	task.CompletedAt = &now
	task.OutputPath = outputPath
	task.Speed = ""
	task.ETASeconds = nil

	completionMsg := ""
	if audio.failed > 0 && audio.completed < audio.total {
		completionMsg = fmt.Sprintf("completed with %d/%d audio tracks", audio.completed, audio.total)
	}
	o.publish(task, completionMsg)

	return nil
}

// fanOut builds one VIDEO SubTask and one AUDIO/SUBTITLE SubTask per
// requested language, per spec.md §4.7 step 2.
func (o *Orchestrator) fanOut(task *domain.Task) []*domain.SubTask {
	subs := []*domain.SubTask{
		{ID: domain.NewSubTaskID(), ParentID: task.ID, Kind: domain.TrackVideo, Status: domain.StatusQueued},
	}
	for _, lang := range task.Languages {
		subs = append(subs, &domain.SubTask{ID: domain.NewSubTaskID(), ParentID: task.ID, Kind: domain.TrackAudio, Language: lang, Status: domain.StatusQueued})
	}
	for _, lang := range task.Languages {
		subs = append(subs, &domain.SubTask{ID: domain.NewSubTaskID(), ParentID: task.ID, Kind: domain.TrackSubtitle, Language: lang, Status: domain.StatusQueued})
	}
	return subs
}

// runAll starts all SubTask pipelines concurrently, bounded through
// the shared trackExecutor semaphore.
func (o *Orchestrator) runAll(ctx context.Context, taskID, quality string, subs []*domain.SubTask, master *domain.Playlist, scratchDir, referer string) []trackResult {
	results := make([]trackResult, len(subs))
	var wg sync.WaitGroup

	for i, sub := range subs {
		wg.Add(1)
		go func(i int, sub *domain.SubTask) {
			defer wg.Done()

			if err := o.trackExec.acquire(ctx); err != nil {
				results[i] = trackResult{sub: sub, outcome: pipeline.TrackOutcome{Status: domain.StatusCancelled}}
				return
			}
			defer o.trackExec.release()

			sub.Status = domain.StatusDownloading
			p := pipeline.NewPipeline(sub.Kind, o.Parser, o.Fetcher, o.MuxRunner, quality, o.SegmentOpts)
			p.Bus = o.Bus
			p.TaskID = taskID
			outcome := p.Run(ctx, master, sub, scratchDir, referer, func(done, total int, bytes int64, bps float64, eta int, pct float64) {
				sub.Progress = pct
				sub.DownloadedB = bytes
				sub.Speed = progress.FormatSpeed(bps)
				sub.ETASeconds = &eta
			})

			sub.Status = outcome.Status
			if outcome.Err != nil {
				sub.Error = outcome.Err.Error()
			}
			if outcome.Status == domain.StatusCompleted {
				sub.TempPath = outcome.OutputPath
				sub.Progress = 100
				if outcome.Bytes > 0 {
					sub.DownloadedB = outcome.Bytes
					sub.TotalB = outcome.Bytes
				}
			}

			results[i] = trackResult{sub: sub, outcome: outcome}
		}(i, sub)
	}

	wg.Wait()
	return results
}

// audioOutcome tallies AUDIO SubTask terminal statuses, used both by
// the fatal failure check and by the COMPLETED message decided in
// DESIGN.md's Open Question 1.
type audioOutcome struct {
	completed, failed, total int
}

// evaluateFailurePolicy implements spec.md §4.7 step 4.
func (o *Orchestrator) evaluateFailurePolicy(results []trackResult) (message string, fatal bool, audio audioOutcome) {
	for _, r := range results {
		switch r.sub.Kind {
		case domain.TrackVideo:
			if r.outcome.Status == domain.StatusFailed {
				return fmt.Sprintf("video track failed: %v", r.outcome.Err), true, audioOutcome{}
			}
		case domain.TrackAudio:
			audio.total++
			switch r.outcome.Status {
			case domain.StatusCompleted:
				audio.completed++
			case domain.StatusFailed:
				audio.failed++
			}
		}
	}

	if audio.total > 0 && audio.failed > 0 && audio.completed == 0 {
		return "no audio tracks downloaded successfully", true, audio
	}

	return "", false, audio
}

// mux invokes TranscoderRunner on the codec-copy mux command, or
// short-circuits to a direct copy when no separate audio/subtitle
// track completed (spec.md §4.7 step 5).
func (o *Orchestrator) mux(ctx context.Context, task *domain.Task, results []trackResult, scratchDir string) (string, error) {
	var videoPath string
	var audios []transcoder.AudioInput
	var subtitles []transcoder.SubtitleInput

	for _, r := range results {
		switch r.sub.Kind {
		case domain.TrackVideo:
			if r.outcome.Status == domain.StatusCompleted {
				videoPath = r.outcome.OutputPath
			}
		case domain.TrackAudio:
			if r.outcome.Status == domain.StatusCompleted {
				audios = append(audios, transcoder.AudioInput{
					Path:     r.outcome.OutputPath,
					Language: r.sub.Language,
					Title:    r.sub.Title,
					Default:  len(audios) == 0,
				})
			}
		case domain.TrackSubtitle:
			if r.outcome.Status == domain.StatusCompleted {
				subtitles = append(subtitles, transcoder.SubtitleInput{
					Path:     r.outcome.OutputPath,
					Language: r.sub.Language,
					Title:    r.sub.Title,
					Default:  len(subtitles) == 0,
				})
			}
		}
	}

	if videoPath == "" {
		return "", fmt.Errorf("no completed video track to mux")
	}

	outputPath := task.OutputPath
	if outputPath == "" {
		outputPath = filepath.Join(scratchDir, "output.mp4")
	}

	if len(audios) == 0 && len(subtitles) == 0 {
		if err := copyFile(videoPath, outputPath); err != nil {
			return "", fmt.Errorf("copy video to output: %w", err)
		}
		return outputPath, nil
	}

	args := transcoder.BuildMuxArgs(transcoder.MuxParams{
		VideoPath:  videoPath,
		Audios:     audios,
		Subtitles:  subtitles,
		OutputPath: outputPath,
	})

	if err := o.MuxRunner.Run(ctx, task.ID+":mux", args, func(p transcoder.Progress) {
		if p.PercentKnown {
			task.Progress = p.PercentIfKnown
			o.publish(task, "")
		}
	}); err != nil {
		return "", fmt.Errorf("mux: %w", err)
	}

	return outputPath, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

func (o *Orchestrator) publish(task *domain.Task, message string) {
	if o.Bus == nil {
		return
	}
	ev := domain.ProgressEvent{
		TaskID:   task.ID,
		Status:   task.Status,
		Progress: domain.Float64Ptr(task.Progress),
		Message:  message,
	}
	if task.Error != "" {
		ev.ErrorMessage = task.Error
	}
	o.Bus.Publish(ev)
}
