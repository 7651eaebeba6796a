package mission

import (
	"context"

	"github.com/looplab/fsm"
)

// State is a coarse mission phase.
type State string

const (
	StateNotStarted     State = "not-started"
	StatePhasing        State = "phasing"
	StateMarkerDecision State = "marker-decision"
	StateFinalizing     State = "finalizing"
	StateComplete       State = "complete"
)

const (
	eventStart           = "start"
	eventConcludePhasing = "conclude-phasing"
	eventProceedToGoal   = "proceed-to-goal"
	eventComplete        = "complete"
)

func newMachine(onEnter func(ctx context.Context, from, to State)) *fsm.FSM {
	return fsm.NewFSM(
		string(StateNotStarted),
		fsm.Events{
			{Name: eventStart, Src: []string{string(StateNotStarted)}, Dst: string(StatePhasing)},
			{Name: eventConcludePhasing, Src: []string{string(StatePhasing)}, Dst: string(StateMarkerDecision)},
			{Name: eventProceedToGoal, Src: []string{string(StateMarkerDecision)}, Dst: string(StateFinalizing)},
			{Name: eventComplete, Src: []string{string(StateFinalizing)}, Dst: string(StateComplete)},
		},
		fsm.Callbacks{
			"enter_state": func(ctx context.Context, e *fsm.Event) {
				if onEnter != nil {
					onEnter(ctx, State(e.Src), State(e.Dst))
				}
			},
		},
	)
}
