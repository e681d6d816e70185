package main

import (
	"github.com/alvarorichard/vixstream/internal/catalog"
	"github.com/alvarorichard/vixstream/internal/config"
	"github.com/alvarorichard/vixstream/internal/orchestrator"
	"github.com/alvarorichard/vixstream/internal/playlist"
	"github.com/alvarorichard/vixstream/internal/process"
	"github.com/alvarorichard/vixstream/internal/progress"
	"github.com/alvarorichard/vixstream/internal/resolver"
	"github.com/alvarorichard/vixstream/internal/scheduler"
	"github.com/alvarorichard/vixstream/internal/segment"
	"github.com/alvarorichard/vixstream/internal/transcoder"
)

// app bundles the wired engine the cobra command tree drives. Built
// once in main() and threaded through the command tree the way the
// teacher's cmd/goanime/main.go threads its *core.App.
type app struct {
	cfg       config.Config
	scheduler *scheduler.Scheduler
	bus       *progress.Bus
	stopJanitor func()
}

// newApp wires every SPEC_FULL.md component into a runnable engine:
// a Parser/Fetcher/Runner feeding a single Orchestrator, behind one
// Scheduler bounding parallel Tasks at cfg.ParallelDownloads.
func newApp(cfg config.Config, lookup catalog.Lookup, res resolver.Resolver, muxBinary string) *app {
	bus := progress.NewBus()
	parser := playlist.NewParser(nil)
	fetcher := segment.NewFetcher(nil)
	procManager := process.NewManager()
	muxRunner := transcoder.NewRunner(muxBinary, procManager)

	segOpts := segment.Options{
		Concurrency:      cfg.SegmentConcurrency,
		RetryMaxAttempts: cfg.RetryMaxAttempts,
		RetryBaseDelay:   cfg.RetryBaseDelay(),
		RetryMaxDelay:    cfg.RetryMaxDelay(),
	}

	orch := orchestrator.New(cfg.TempPath, parser, fetcher, muxRunner, segOpts, bus, 0)
	sched := scheduler.New(cfg.ParallelDownloads, lookup, res, parser, orch, bus)

	return &app{cfg: cfg, scheduler: sched, bus: bus, stopJanitor: sched.StartJanitor()}
}

func (a *app) close() {
	if a.stopJanitor != nil {
		a.stopJanitor()
	}
}
