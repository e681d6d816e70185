package main

import (
	"fmt"

	"github.com/alvarorichard/vixstream/internal/domain"
	"github.com/alvarorichard/vixstream/internal/progress"
)

// watchPlain prints one log line per ProgressEvent for taskID until it
// reaches a terminal status, the non-UI equivalent of runProgressUI.
func watchPlain(bus *progress.Bus, taskID string) error {
	done := make(chan error, 1)

	var handle progress.Handle
	handle = bus.Subscribe(func(ev domain.ProgressEvent) {
		if ev.TaskID != taskID || ev.SubTaskID != "" {
			return
		}
		pct := 0.0
		if ev.Progress != nil {
			pct = *ev.Progress
		}
		fmt.Printf("[%s] %5.1f%% %s\n", ev.Status, pct, ev.Message)

		if ev.Status.Terminal() {
			bus.Unsubscribe(handle)
			if ev.Status == domain.StatusFailed {
				done <- fmt.Errorf("task failed: %s", ev.ErrorMessage)
				return
			}
			done <- nil
		}
	})

	return <-done
}
