// Package domain holds the core entities of the acquisition engine:
// Task, SubTask, their statuses, playlist descriptors and progress
// events. Nothing in this package performs I/O.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// ContentKind distinguishes a standalone movie from a single episode
// of a series.
type ContentKind string

const (
	ContentMovie   ContentKind = "movie"
	ContentEpisode ContentKind = "episode"
)

// TrackKind tags a SubTask's media lane.
type TrackKind string

const (
	TrackVideo    TrackKind = "VIDEO"
	TrackAudio    TrackKind = "AUDIO"
	TrackSubtitle TrackKind = "SUBTITLE"
)

// Status is the lifecycle state of a Task or SubTask.
type Status string

const (
	StatusQueued      Status = "QUEUED"
	StatusExtracting  Status = "EXTRACTING"
	StatusDownloading Status = "DOWNLOADING"
	StatusMerging     Status = "MERGING"
	StatusCompleted   Status = "COMPLETED"
	StatusFailed      Status = "FAILED"
	StatusCancelled   Status = "CANCELLED"
	StatusNotFound    Status = "NOT_FOUND"
)

// Terminal reports whether s is one of the terminal statuses.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusNotFound:
		return true
	default:
		return false
	}
}

// Active reports whether s counts against the scheduler's admission
// budget (spec.md §4.8: EXTRACTING, DOWNLOADING, MERGING).
func (s Status) Active() bool {
	switch s {
	case StatusExtracting, StatusDownloading, StatusMerging:
		return true
	default:
		return false
	}
}

// taskTransitions enumerates every valid Task state transition.
// Transitions not listed here are rejected by Task.SetStatus.
var taskTransitions = map[Status]map[Status]bool{
	StatusQueued: {
		StatusExtracting: true,
		StatusCancelled:  true,
		StatusFailed:     true,
	},
	StatusExtracting: {
		StatusDownloading: true,
		StatusFailed:      true,
		StatusCancelled:   true,
	},
	StatusDownloading: {
		StatusMerging:   true,
		StatusFailed:    true,
		StatusCancelled: true,
	},
	StatusMerging: {
		StatusCompleted: true,
		StatusFailed:    true,
		StatusCancelled: true,
	},
}

// CanTransition reports whether moving from "from" to "to" is a
// legal Task state transition.
func CanTransition(from, to Status) bool {
	if from.Terminal() {
		return false
	}
	return taskTransitions[from][to]
}

// Task is a user-visible download unit.
type Task struct {
	ID          string
	Kind        ContentKind
	ContentID   string
	Season      *int
	Episode     *int
	Languages   []string // first = primary
	Quality     string
	OutputPath  string
	Status      Status
	Progress    float64
	DownloadedB int64
	TotalB      int64
	Speed       string
	ETASeconds  *int
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	Error       string
	Message     string
	SubTasks    []*SubTask
}

// SubTask is a single track lane within a Task.
type SubTask struct {
	ID           string
	ParentID     string
	Kind         TrackKind
	Language     string // empty for VIDEO
	Title        string
	Resolution   string // VIDEO only
	Status       Status
	Progress     float64
	DownloadedB  int64
	TotalB       int64
	Speed        string
	ETASeconds   *int
	TempPath     string
	Error        string
}

// NewTaskID returns a fresh opaque Task identifier.
func NewTaskID() string { return uuid.NewString() }

// NewSubTaskID returns a fresh opaque SubTask identifier.
func NewSubTaskID() string { return uuid.NewString() }

// NewTask builds a Task in the QUEUED state. languages must be
// non-empty; callers are expected to validate before calling.
func NewTask(kind ContentKind, contentID string, season, episode *int, languages []string, quality, outputPath string) *Task {
	return &Task{
		ID:         NewTaskID(),
		Kind:       kind,
		ContentID:  contentID,
		Season:     season,
		Episode:    episode,
		Languages:  languages,
		Quality:    quality,
		OutputPath: outputPath,
		Status:     StatusQueued,
		CreatedAt:  time.Now(),
	}
}

// SetStatus transitions the Task to "to", rejecting (no-op, returns
// false) any transition not present in the state machine.
func (t *Task) SetStatus(to Status) bool {
	if t.Status == to {
		return true
	}
	if !CanTransition(t.Status, to) {
		return false
	}
	t.Status = to
	return true
}

// PrimaryLanguage returns the first configured language.
func (t *Task) PrimaryLanguage() string {
	if len(t.Languages) == 0 {
		return ""
	}
	return t.Languages[0]
}
