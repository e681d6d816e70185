package progress

import (
	"sync"

	"github.com/alvarorichard/vixstream/internal/domain"
	"github.com/alvarorichard/vixstream/internal/vixlog"
)

// listenerQueueSize bounds the per-listener backlog (spec.md §4.9:
// "backpressure-tolerant"; a blocked or slow listener must not stall
// the publisher).
const listenerQueueSize = 64

// Handle identifies a registered listener for Unsubscribe.
type Handle uint64

type listener struct {
	handle Handle
	ch     chan domain.ProgressEvent
}

// Bus is a concurrent-safe publish/subscribe hub for ProgressEvents,
// grounded on eleven-am/goshl's NotifyingStorage wrap-and-notify
// pattern (internal/segment/notifying_storage.go), generalized from a
// single coordinator callback to a registered listener set.
type Bus struct {
	mu        sync.RWMutex
	listeners []listener
	nextID    Handle
}

// NewBus constructs an empty ProgressBus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn to receive every published event on its own
// goroutine, returning a Handle for Unsubscribe. fn is invoked on a
// dedicated per-listener goroutine reading off a bounded channel, so a
// slow fn only drops its own backlog, never blocking Publish or other
// listeners.
func (b *Bus) Subscribe(fn func(domain.ProgressEvent)) Handle {
	b.mu.Lock()
	b.nextID++
	h := b.nextID
	ch := make(chan domain.ProgressEvent, listenerQueueSize)
	b.listeners = append(b.listeners, listener{handle: h, ch: ch})
	b.mu.Unlock()

	go func() {
		for ev := range ch {
			fn(ev)
		}
	}()

	return h
}

// Unsubscribe removes the listener registered under h, if any.
func (b *Bus) Unsubscribe(h Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, l := range b.listeners {
		if l.handle == h {
			close(l.ch)
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			return
		}
	}
}

// Publish fans ev out to every registered listener without blocking.
// A listener whose queue is full misses a non-terminal event; a
// terminal-status event instead evicts that listener's oldest pending
// event to make room — the documented consumer contract is "always
// pass terminal-status events through" (spec.md §4.9).
func (b *Bus) Publish(ev domain.ProgressEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, l := range b.listeners {
		select {
		case l.ch <- ev:
		default:
			if ev.Status.Terminal() {
				// Make room for a terminal event rather than drop it.
				select {
				case <-l.ch:
				default:
				}
				select {
				case l.ch <- ev:
				default:
					vixlog.Warnf("progress bus: listener queue full, dropped terminal event for task %s", ev.TaskID)
				}
				continue
			}
			// Non-terminal event: drop rather than block the publisher.
		}
	}
}

// ListenerCount reports the number of currently registered listeners;
// used by tests and diagnostics.
func (b *Bus) ListenerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}
