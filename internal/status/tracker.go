package status

import (
	"sync"
	"time"

	"github.com/kingrea/cartographer/internal/mission"
	"github.com/kingrea/cartographer/internal/navigation"
)

const recentLegs = 8

// Snapshot is the latest known mission progress.
type Snapshot struct {
	RunID       string           `json:"run_id,omitempty"`
	State       mission.State    `json:"state"`
	Phase       int              `json:"phase"`
	RemainingMS int64            `json:"remaining_ms"`
	Region      int              `json:"region"`
	Target      int              `json:"target,omitempty"`
	Visited     []int            `json:"visited"`
	Marker      string           `json:"marker,omitempty"`
	StopReason  string           `json:"stop_reason,omitempty"`
	Legs        []navigation.Leg `json:"legs,omitempty"`
	Error       string           `json:"error,omitempty"`
	Completed   bool             `json:"completed"`
	Events      int              `json:"events"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Tracker folds mission events into a Snapshot that can be read from other
// goroutines.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker returns a tracker for a mission that has not started yet.
func NewTracker() *Tracker {
	return &Tracker{snap: Snapshot{State: mission.StateNotStarted}}
}

// Observe implements mission.Observer.
func (t *Tracker) Observe(evt mission.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := &t.snap
	s.Events++
	s.RunID = evt.RunID
	s.State = evt.State
	s.Phase = evt.Phase
	s.RemainingMS = evt.Remaining
	s.Region = evt.Region
	s.UpdatedAt = evt.Time
	switch evt.Kind {
	case mission.EventTargetSelected:
		s.Target = evt.Target
	case mission.EventLeg:
		if evt.Leg != nil {
			s.Legs = append(s.Legs, *evt.Leg)
			if len(s.Legs) > recentLegs {
				s.Legs = s.Legs[len(s.Legs)-recentLegs:]
			}
		}
	case mission.EventInspected:
		s.Visited = append([]int(nil), evt.Visited...)
	case mission.EventMarkerRead:
		if evt.Marker != "" && s.Marker == "" {
			s.Marker = evt.Marker
		}
	case mission.EventPhasingStopped:
		s.StopReason = evt.Message
	case mission.EventError:
		s.Error = evt.Message
	case mission.EventCompleted:
		s.Completed = true
		s.Visited = append([]int(nil), evt.Visited...)
		s.Marker = evt.Marker
	}
}

// Snapshot returns a copy of the current progress.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := t.snap
	out.Visited = append([]int(nil), t.snap.Visited...)
	out.Legs = append([]navigation.Leg(nil), t.snap.Legs...)
	return out
}
