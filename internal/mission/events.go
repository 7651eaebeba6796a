package mission

import (
	"time"

	"github.com/kingrea/cartographer/internal/navigation"
	"github.com/kingrea/cartographer/internal/strategy"
)

// EventKind enumerates mission notifications.
type EventKind string

const (
	EventStateChanged   EventKind = "state-changed"
	EventPhaseStarted   EventKind = "phase-started"
	EventTargetSelected EventKind = "target-selected"
	EventLeg            EventKind = "leg"
	EventInspected      EventKind = "inspected"
	EventMarkerRead     EventKind = "marker-read"
	EventPhasingStopped EventKind = "phasing-stopped"
	EventCompleted      EventKind = "completed"
	EventError          EventKind = "error"
)

// Event is emitted synchronously on the mission goroutine.
type Event struct {
	RunID     string              `json:"run_id"`
	Kind      EventKind           `json:"kind"`
	Time      time.Time           `json:"time"`
	State     State               `json:"state"`
	Phase     int                 `json:"phase"`
	Remaining int64               `json:"remaining_ms"`
	Target    int                 `json:"target,omitempty"`
	Region    int                 `json:"region,omitempty"`
	Visited   []int               `json:"visited,omitempty"`
	Marker    string              `json:"marker,omitempty"`
	Message   string              `json:"message,omitempty"`
	Leg       *navigation.Leg     `json:"leg,omitempty"`
	Selection *strategy.Selection `json:"selection,omitempty"`
}

// Observer receives mission events.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// Observe calls f(e).
func (f ObserverFunc) Observe(e Event) {
	f(e)
}
