package mission

import (
	"time"

	"github.com/kingrea/cartographer/internal/navigation"
	"github.com/kingrea/cartographer/internal/strategy"
)

// StopReason explains why the phase loop ended.
type StopReason string

const (
	StopPhaseLimit StopReason = "phase-limit"
	StopDeadline   StopReason = "deadline"
	StopExhausted  StopReason = "exhausted"
	StopError      StopReason = "error"
)

// StateChange records one state machine transition.
type StateChange struct {
	From State     `json:"from"`
	To   State     `json:"to"`
	At   time.Time `json:"at"`
}

// Report summarizes a finished mission.
type Report struct {
	RunID           string               `json:"run_id"`
	StartedAt       time.Time            `json:"started_at"`
	FinishedAt      time.Time            `json:"finished_at"`
	Phases          int                  `json:"phases"`
	StopReason      StopReason           `json:"stop_reason"`
	Visited         []int                `json:"visited"`
	MarkerContent   string               `json:"marker_content"`
	MarkerDecoded   bool                 `json:"marker_decoded"`
	MarkerRelocated bool                 `json:"marker_relocated"`
	Selections      []strategy.Selection `json:"selections,omitempty"`
	Travels         []navigation.Travel  `json:"travels,omitempty"`
	States          []StateChange        `json:"states"`
	PoseCommands    int                  `json:"pose_commands"`
	Unconfirmed     int                  `json:"unconfirmed"`
	RemainingAtEnd  int64                `json:"remaining_at_end_ms"`
	Reported        bool                 `json:"reported"`
	Error           string               `json:"error,omitempty"`
}

// Duration is the wall-clock time the mission took.
func (r Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

func (r *Report) addTravel(t navigation.Travel) {
	r.Travels = append(r.Travels, t)
	for _, leg := range t.Legs {
		r.PoseCommands += leg.Arrival.Attempts
	}
	r.Unconfirmed += t.Unconfirmed()
}
