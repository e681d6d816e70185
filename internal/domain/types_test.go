package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskStateMachine(t *testing.T) {
	task := NewTask(ContentMovie, "abc123", nil, nil, []string{"en"}, "best", "/tmp/out.mp4")
	require.Equal(t, StatusQueued, task.Status)

	assert.True(t, task.SetStatus(StatusExtracting))
	assert.True(t, task.SetStatus(StatusDownloading))
	assert.True(t, task.SetStatus(StatusMerging))
	assert.True(t, task.SetStatus(StatusCompleted))

	// terminal: any further transition is rejected
	assert.False(t, task.SetStatus(StatusDownloading))
	assert.Equal(t, StatusCompleted, task.Status)
}

func TestTaskStateMachineRejectsSkips(t *testing.T) {
	task := NewTask(ContentEpisode, "xyz", IntPtr(4), IntPtr(4), []string{"en", "it"}, "1080", "/tmp/out.mp4")
	// QUEUED -> MERGING is not a listed transition
	assert.False(t, task.SetStatus(StatusMerging))
	assert.Equal(t, StatusQueued, task.Status)
}

func TestCancelIdempotentFromTerminal(t *testing.T) {
	task := NewTask(ContentMovie, "abc", nil, nil, []string{"en"}, "best", "/tmp/out.mp4")
	require.True(t, task.SetStatus(StatusCancelled))
	// cancel(id) on a terminal task is a documented no-op (spec.md §8 property 6)
	assert.False(t, task.SetStatus(StatusCancelled) == false) // SetStatus treats same-state as ok (no-op)
	assert.True(t, task.Status.Terminal())
}

func TestActiveStatuses(t *testing.T) {
	assert.True(t, StatusDownloading.Active())
	assert.True(t, StatusExtracting.Active())
	assert.True(t, StatusMerging.Active())
	assert.False(t, StatusQueued.Active())
	assert.False(t, StatusCompleted.Active())
}

func TestPrimaryLanguage(t *testing.T) {
	task := NewTask(ContentMovie, "abc", nil, nil, []string{"en", "it"}, "best", "/tmp/out.mp4")
	assert.Equal(t, "en", task.PrimaryLanguage())
}
