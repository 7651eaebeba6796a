package tui

import (
	"sync"

	"github.com/kingrea/cartographer/internal/mission"
)

// Feed carries mission events from the mission goroutine to the monitor.
type Feed struct {
	ch       chan mission.Event
	stop     chan struct{}
	stopOnce sync.Once
	doneOnce sync.Once
}

// NewFeed returns a feed with the given buffer size.
func NewFeed(buffer int) *Feed {
	if buffer < 0 {
		buffer = 0
	}
	return &Feed{ch: make(chan mission.Event, buffer), stop: make(chan struct{})}
}

// Observe implements mission.Observer. Once the monitor detaches, events are
// dropped so the mission never blocks on a closed screen.
func (f *Feed) Observe(evt mission.Event) {
	select {
	case <-f.stop:
		return
	default:
	}
	select {
	case f.ch <- evt:
	case <-f.stop:
	}
}

// Close tells the monitor no more events are coming. Call it from the
// producer once the mission returns.
func (f *Feed) Close() {
	f.doneOnce.Do(func() { close(f.ch) })
}

// Detach stops delivery; pending and future events are dropped.
func (f *Feed) Detach() {
	f.stopOnce.Do(func() { close(f.stop) })
}

func (f *Feed) events() <-chan mission.Event {
	return f.ch
}
