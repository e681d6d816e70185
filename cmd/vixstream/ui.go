package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/alvarorichard/vixstream/internal/domain"
	"github.com/alvarorichard/vixstream/internal/progress"
	bubblesprogress "github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
)

// progressUIModel is the Bubble Tea progress display, adapted from the
// teacher's progressModel (internal/downloader/downloader.go) to
// subscribe to the engine's ProgressBus instead of owning the
// download's byte counters directly.
type progressUIModel struct {
	bar      bubblesprogress.Model
	status   string
	pct      float64
	done     bool
	failed   bool
	errMsg   string
	mu       sync.Mutex
}

type tickMsg time.Time
type eventMsg domain.ProgressEvent

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *progressUIModel) Init() tea.Cmd {
	return tickCmd()
}

func (m *progressUIModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.mu.Lock()
			m.done = true
			m.mu.Unlock()
			return m, tea.Quit
		}
	case tickMsg:
		m.mu.Lock()
		done := m.done
		m.mu.Unlock()
		if done {
			return m, tea.Quit
		}
		return m, tickCmd()
	case eventMsg:
		m.mu.Lock()
		ev := domain.ProgressEvent(msg)
		m.status = string(ev.Status)
		if ev.Message != "" {
			m.status = fmt.Sprintf("%s: %s", ev.Status, ev.Message)
		}
		if ev.Progress != nil {
			m.pct = *ev.Progress / 100
		}
		if ev.Status.Terminal() {
			m.done = true
			if ev.Status == domain.StatusFailed {
				m.failed = true
				m.errMsg = ev.ErrorMessage
			}
		}
		cmd := m.bar.SetPercent(m.pct)
		m.mu.Unlock()
		if m.done {
			return m, tea.Batch(cmd, tea.Quit)
		}
		return m, cmd
	case bubblesprogress.FrameMsg:
		newModel, cmd := m.bar.Update(msg)
		m.bar = newModel.(bubblesprogress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressUIModel) View() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fmt.Sprintf("%s\n%s\n\nPress Ctrl+C to cancel\n", m.status, m.bar.View())
}

// runProgressUI drives a Bubble Tea program for taskID's events until
// it reaches a terminal status.
func runProgressUI(bus *progress.Bus, taskID string) error {
	model := &progressUIModel{bar: bubblesprogress.New(bubblesprogress.WithDefaultGradient())}
	program := tea.NewProgram(model)

	var handle progress.Handle
	handle = bus.Subscribe(func(ev domain.ProgressEvent) {
		if ev.TaskID != taskID || ev.SubTaskID != "" {
			return
		}
		program.Send(eventMsg(ev))
		if ev.Status.Terminal() {
			bus.Unsubscribe(handle)
		}
	})

	finalModel, err := program.Run()
	if err != nil {
		return err
	}

	final := finalModel.(*progressUIModel)
	if final.failed {
		return fmt.Errorf("task failed: %s", final.errMsg)
	}
	return nil
}
