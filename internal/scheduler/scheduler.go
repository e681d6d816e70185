// Package scheduler implements DownloadScheduler (spec.md §4.8): a
// single-writer task map/queue with bounded-parallel admission,
// cancellation routing, and a periodic completed-task sweep. The
// map-guard shape is modeled on the teacher's ScraperManager
// (internal/scraper/unified.go), generalized from a map of adapters
// to a mutex-protected map of Tasks plus a FIFO queue, per spec.md
// §9's "hide the global mutable queue behind a Scheduler with a
// single-writer lane" design note.
package scheduler

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/alvarorichard/vixstream/internal/catalog"
	"github.com/alvarorichard/vixstream/internal/domain"
	"github.com/alvarorichard/vixstream/internal/output"
	"github.com/alvarorichard/vixstream/internal/playlist"
	"github.com/alvarorichard/vixstream/internal/progress"
	"github.com/alvarorichard/vixstream/internal/resolver"
	"github.com/alvarorichard/vixstream/internal/vixlog"
	"github.com/robfig/cron/v3"
)

// janitorSchedule runs the completed-task sweep once a minute. Kept
// separate from ClearCompleted so callers that want explicit control
// over retention (e.g. a CLI "clear" subcommand) can still call
// ClearCompleted directly without the janitor racing them.
const janitorSchedule = "@every 1m"

// broadcastEvery throttles the QUEUED broadcast during a batch admit
// (spec.md §4.8: "every 5 or 10 tasks").
const broadcastEvery = 10

// Request is the admit() input: what to download. Title/Year/Show are
// ignored by Admit (which resolves them from the catalog itself) and
// consulted only by AdmitBatch, whose whole point per spec.md §4.8 is
// to build N Tasks without a per-task catalog fetch — the caller
// supplies the metadata it already has (typically from one season- or
// series-level lookup it made itself) directly on each Request.
type Request struct {
	Kind      domain.ContentKind
	ContentID string
	Title     string // movie title; AdmitBatch only
	Year      int    // movie year; AdmitBatch only
	Show      string // episode show name; AdmitBatch only
	Season    *int
	Episode   *int
	Languages []string
	Quality   string
	BasePath  string
}

// Orchestrator runs a single admitted Task to completion. The
// Scheduler never blocks admission on it; it is invoked on its own
// goroutine per started Task.
type Orchestrator interface {
	Run(ctx context.Context, task *domain.Task, master *domain.Playlist, referer string) error
}

// Scheduler owns the Task map and FIFO queue behind a single mutex
// (spec.md §9: single-writer lane).
type Scheduler struct {
	mu    sync.Mutex
	tasks map[string]*domain.Task
	queue []string

	maxParallel  int
	catalog      catalog.Lookup
	resolver     resolver.Resolver
	parser       *playlist.Parser
	orchestrator Orchestrator
	bus          *progress.Bus

	runningCtx map[string]context.CancelFunc
	janitor    *cron.Cron
}

// New constructs a Scheduler. maxParallel bounds the number of Tasks
// concurrently in {EXTRACTING, DOWNLOADING, MERGING} (spec.md §4.8's
// "M").
func New(maxParallel int, lookup catalog.Lookup, res resolver.Resolver, parser *playlist.Parser, orch Orchestrator, bus *progress.Bus) *Scheduler {
	if maxParallel <= 0 {
		maxParallel = 1
	}
	return &Scheduler{
		tasks:        make(map[string]*domain.Task),
		maxParallel:  maxParallel,
		catalog:      lookup,
		resolver:     res,
		parser:       parser,
		orchestrator: orch,
		bus:          bus,
		runningCtx:   make(map[string]context.CancelFunc),
	}
}

// StartJanitor launches a background sweep that calls ClearCompleted
// on janitorSchedule, logging how many Tasks it removed. It returns a
// stop function; callers not running long-lived processes (tests,
// one-shot CLI invocations) can skip calling this entirely.
func (s *Scheduler) StartJanitor() func() {
	s.mu.Lock()
	if s.janitor != nil {
		s.mu.Unlock()
		return func() { s.StopJanitor() }
	}
	c := cron.New()
	s.janitor = c
	s.mu.Unlock()

	_, err := c.AddFunc(janitorSchedule, func() {
		if n := s.ClearCompleted(); n > 0 {
			vixlog.Infof("scheduler: janitor removed %d completed task(s)", n)
		}
	})
	if err != nil {
		vixlog.Warnf("scheduler: failed to schedule janitor: %v", err)
		return func() {}
	}
	c.Start()
	return func() { s.StopJanitor() }
}

// StopJanitor halts the periodic sweep started by StartJanitor, if
// any is running.
func (s *Scheduler) StopJanitor() {
	s.mu.Lock()
	c := s.janitor
	s.janitor = nil
	s.mu.Unlock()
	if c != nil {
		c.Stop()
	}
}

// Admit resolves catalog metadata, builds the output path, and — per
// SPEC_FULL.md §7's existing-file skip — returns an already-COMPLETED
// Task immediately if that path is already present on disk instead of
// re-downloading (grounded on the teacher's fileExists check in
// DownloadSingleEpisode). Otherwise it creates the Task in QUEUED,
// appends it to the queue, then attempts admission (spec.md §4.8
// admit contract).
func (s *Scheduler) Admit(ctx context.Context, req Request) (*domain.Task, error) {
	info, err := s.catalog.Lookup(ctx, req.ContentID)
	if err != nil {
		return nil, fmt.Errorf("catalog lookup: %w", err)
	}

	task := newAdmittedTask(req, info)

	s.mu.Lock()
	s.tasks[task.ID] = task
	if task.Status == domain.StatusQueued {
		s.queue = append(s.queue, task.ID)
	}
	s.mu.Unlock()

	if task.Status == domain.StatusCompleted {
		s.publish(task, "output already exists")
		return task, nil
	}

	s.publishQueued(task)
	s.admit()

	return task, nil
}

// AdmitBatch creates N Tasks without per-task metadata fetches
// (spec.md §4.8: batch admit for a whole season/series), applying the
// same existing-file skip as Admit to each, broadcasting QUEUED events
// at throttled cadence over the tasks that actually queue, then
// triggers admission once.
func (s *Scheduler) AdmitBatch(reqs []Request) []*domain.Task {
	tasks := make([]*domain.Task, 0, len(reqs))

	s.mu.Lock()
	for _, req := range reqs {
		task := newAdmittedTask(req, catalog.Info{Title: req.Title, Year: req.Year, Show: req.Show})
		s.tasks[task.ID] = task
		if task.Status == domain.StatusQueued {
			s.queue = append(s.queue, task.ID)
		}
		tasks = append(tasks, task)
	}
	s.mu.Unlock()

	var queuedTasks []*domain.Task
	for _, task := range tasks {
		if task.Status == domain.StatusCompleted {
			s.publish(task, "output already exists")
			continue
		}
		queuedTasks = append(queuedTasks, task)
	}
	for i, task := range queuedTasks {
		if (i+1)%broadcastEvery == 0 || i == len(queuedTasks)-1 {
			s.publishQueued(task)
		}
	}

	s.admit()
	return tasks
}

// newAdmittedTask builds a Task from req/info and, per the
// existing-file skip, marks it COMPLETED immediately when its output
// path is already present instead of leaving it QUEUED.
func newAdmittedTask(req Request, info catalog.Info) *domain.Task {
	outputPath := buildOutputPath(req, info)
	task := domain.NewTask(req.Kind, req.ContentID, req.Season, req.Episode, req.Languages, req.Quality, outputPath)
	if fileExists(outputPath) {
		now := time.Now()
		task.Status = domain.StatusCompleted
		task.Progress = 100
		task.CompletedAt = &now
	}
	return task
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func buildOutputPath(req Request, info catalog.Info) string {
	if req.Kind == domain.ContentMovie {
		return output.MoviePath(req.BasePath, info.Title, fmt.Sprintf("%d", info.Year))
	}
	season, episode := 0, 0
	if req.Season != nil {
		season = *req.Season
	}
	if req.Episode != nil {
		episode = *req.Episode
	}
	return output.EpisodePath(req.BasePath, info.Show, season, episode, info.Title)
}

// admit starts up to M-A queued Tasks in FIFO order (spec.md §4.8
// admission rule). Safe to call repeatedly; it is a no-op when no
// slots are free or the queue is empty.
func (s *Scheduler) admit() {
	s.mu.Lock()
	active := 0
	for _, t := range s.tasks {
		if t.Status.Active() {
			active++
		}
	}
	slots := s.maxParallel - active
	if slots <= 0 || len(s.queue) == 0 {
		s.mu.Unlock()
		return
	}

	starting := make([]*domain.Task, 0, slots)
	for slots > 0 && len(s.queue) > 0 {
		id := s.queue[0]
		s.queue = s.queue[1:]
		task, ok := s.tasks[id]
		if !ok || task.Status != domain.StatusQueued {
			continue
		}
		// Mark it active under the lock so a concurrent admit() counts
		// it before its goroutine has started.
		task.SetStatus(domain.StatusExtracting)
		starting = append(starting, task)
		slots--
	}
	s.mu.Unlock()

	for _, task := range starting {
		s.start(task)
	}
}

// start runs one Task's extraction+download+mux lifecycle on its own
// goroutine, re-invoking admission when it reaches a terminal state
// (spec.md §4.8: "MUST re-invoke admission").
func (s *Scheduler) start(task *domain.Task) {
	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.runningCtx[task.ID] = cancel
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.runningCtx, task.ID)
			s.mu.Unlock()
			s.admit()
		}()

		task.SetStatus(domain.StatusExtracting)
		s.publish(task, "")

		season, episode := task.Season, task.Episode
		primaryLang := task.PrimaryLanguage()
		referer, masterURL, err := s.resolver.Resolve(ctx, task.Kind, task.ContentID, season, episode, primaryLang)
		if err != nil {
			task.SetStatus(domain.StatusFailed)
			task.Error = err.Error()
			s.publish(task, err.Error())
			return
		}

		master, err := s.parser.Fetch(ctx, masterURL, referer)
		if err != nil {
			task.SetStatus(domain.StatusFailed)
			task.Error = err.Error()
			s.publish(task, err.Error())
			return
		}

		task.SetStatus(domain.StatusDownloading)
		s.publish(task, "")

		if err := s.orchestrator.Run(ctx, task, master, referer); err != nil {
			vixlog.Warnf("scheduler: task %s finished with error: %v", task.ID, err)
		}
	}()
}

// Cancel marks id CANCELLED from any non-terminal state, removes it
// from the queue if still pending, and cancels the task's context
// (spec.md §4.8). That ends an in-flight resolve, segment fetch or
// transcoder run; exec.CommandContext kills only the transcoder
// process itself, not children it spawned, since Cancel does not call
// process.Manager's tree kill.
func (s *Scheduler) Cancel(id string) error {
	s.mu.Lock()
	task, ok := s.tasks[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("unknown task %q", id)
	}
	if task.Status.Terminal() {
		s.mu.Unlock()
		return nil
	}

	for i, qid := range s.queue {
		if qid == id {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			break
		}
	}
	cancel := s.runningCtx[id]
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	task.SetStatus(domain.StatusCancelled)
	s.publish(task, "cancelled")
	s.admit()
	return nil
}

// List returns a snapshot of all Tasks.
func (s *Scheduler) List() []*domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t)
	}
	return out
}

// Get returns the Task registered under id, if any.
func (s *Scheduler) Get(id string) (*domain.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	return t, ok
}

// ClearCompleted removes every terminal Task from the map.
func (s *Scheduler) ClearCompleted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, t := range s.tasks {
		if t.Status.Terminal() {
			delete(s.tasks, id)
			removed++
		}
	}
	return removed
}

func (s *Scheduler) publishQueued(task *domain.Task) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(domain.ProgressEvent{TaskID: task.ID, Status: domain.StatusQueued})
}

func (s *Scheduler) publish(task *domain.Task, message string) {
	if s.bus == nil {
		return
	}
	ev := domain.ProgressEvent{TaskID: task.ID, Status: task.Status, Progress: domain.Float64Ptr(task.Progress), Message: message}
	if task.Error != "" {
		ev.ErrorMessage = task.Error
	}
	s.bus.Publish(ev)
}
