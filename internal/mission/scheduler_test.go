package mission

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kingrea/cartographer/internal/navigation"
	"github.com/kingrea/cartographer/internal/platform/platformtest"
	"github.com/kingrea/cartographer/internal/strategy"
	"github.com/kingrea/cartographer/internal/waypoint"
)

const (
	markerTarget   = 4
	markerWaypoint = 7
	goal           = 8
)

type zeroRand struct{}

func (zeroRand) Intn(int) int { return 0 }

func at(id int) waypoint.Pose {
	return waypoint.Pose{Position: waypoint.Point{X: float64(id)}, Orientation: waypoint.Quaternion{W: 1}}
}

func missionGraph(t *testing.T) *waypoint.Graph {
	t.Helper()
	g, err := waypoint.NewGraph([]waypoint.Record{
		{ID: 0, Pose: at(0)},
		{ID: 1, Pose: at(1)},
		{ID: 2, Pose: at(2), ParentID: 1},
		{ID: 3, Pose: at(3), ParentID: 1},
		{ID: 6, Pose: at(6), ParentID: 1},
		{ID: 5, Pose: at(5)},
		{ID: markerTarget, Pose: at(markerTarget), ParentID: 5},
		{ID: markerWaypoint, Pose: at(markerWaypoint), ParentID: 5},
		{ID: goal, Pose: at(goal), ParentID: 5},
	})
	if err != nil {
		t.Fatalf("graph: %v", err)
	}
	return g
}

func newTestScheduler(t *testing.T, fake *platformtest.Fake, opts ...Option) *Scheduler {
	t.Helper()
	strat, err := strategy.New(
		strategy.Scores{1: 10, 2: 10, 3: 10, 5: 8, 6: 8, 4: 15, 8: 5},
		strategy.Regions{1: {3, 6, 8}, 5: {4, 7, 8}},
		markerTarget,
		strategy.WithRand(zeroRand{}),
	)
	if err != nil {
		t.Fatalf("strategy: %v", err)
	}
	fixed := time.Unix(1730000000, 0).UTC()
	opts = append([]Option{WithClock(func() time.Time { return fixed }), WithRunID("run-test")}, opts...)
	sched, err := New(missionGraph(t), fake, strat, Plan{
		MarkerTarget:   markerTarget,
		MarkerWaypoint: markerWaypoint,
		Goal:           goal,
	}, opts...)
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	return sched
}

func poseIDs(fake *platformtest.Fake) []int {
	out := make([]int, 0, len(fake.Poses))
	for _, p := range fake.Poses {
		out = append(out, int(p.Position.X))
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRunCapsPhasesAndDetoursForMarker(t *testing.T) {
	fake := &platformtest.Fake{Remaining: 300000, ActiveSets: [][]int{{2}, {3}, {6}, {2}}, Marker: "KIBO"}
	sched := newTestScheduler(t, fake)
	report, err := sched.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Phases != DefaultPhaseLimit || report.StopReason != StopPhaseLimit {
		t.Fatalf("expected %d phases stopped by phase limit, got %d (%s)", DefaultPhaseLimit, report.Phases, report.StopReason)
	}
	if !equalInts(fake.Snapshots, []int{2, 3, 6}) {
		t.Fatalf("expected snapshots [2 3 6], got %v", fake.Snapshots)
	}
	want := []int{1, 2, 1, 1, 3, 1, 1, 6, 1, 5, markerWaypoint, 5, goal}
	if got := poseIDs(fake); !equalInts(got, want) {
		t.Fatalf("expected poses %v, got %v", want, got)
	}
	if !report.MarkerRelocated || report.MarkerContent != "KIBO" {
		t.Fatalf("expected marker detour with content, got %+v", report)
	}
	if len(fake.Reports) != 1 || fake.Reports[0] != "KIBO" {
		t.Fatalf("expected a single completion report, got %v", fake.Reports)
	}
	if fake.Notified != 1 || fake.Started != 1 {
		t.Fatalf("expected start and goal notification once, got start=%d notify=%d", fake.Started, fake.Notified)
	}
	if sched.State() != StateComplete {
		t.Fatalf("expected complete state, got %s", sched.State())
	}
}

func TestRunThresholdBoundaryIsInclusive(t *testing.T) {
	fake := &platformtest.Fake{Remaining: DefaultThresholdMillis, ActiveSets: [][]int{{2}}}
	sched := newTestScheduler(t, fake)
	report, err := sched.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(fake.Snapshots) != 0 || report.Phases != 0 {
		t.Fatalf("no phase may run at exactly the threshold, got %v", fake.Snapshots)
	}
	if report.MarkerRelocated {
		t.Fatalf("marker detour must be skipped at the threshold")
	}
	if got := poseIDs(fake); !equalInts(got, []int{5, goal}) {
		t.Fatalf("expected only the goal route, got %v", got)
	}
	if len(fake.Reports) != 1 || fake.Reports[0] != navigation.NoMarkerContent {
		t.Fatalf("expected sentinel report, got %v", fake.Reports)
	}
}

func TestRunProceedsJustAboveThreshold(t *testing.T) {
	fake := &platformtest.Fake{Remaining: DefaultThresholdMillis + 1, ActiveSets: [][]int{{2}}}
	sched := newTestScheduler(t, fake)
	report, err := sched.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Phases != 3 || len(fake.Snapshots) != 3 {
		t.Fatalf("expected 3 phases above the threshold, got %d", report.Phases)
	}
	if !report.MarkerRelocated {
		t.Fatalf("expected marker detour above the threshold")
	}
}

func TestRunAbortsPhaseWhenDeadlinePassesAfterSelection(t *testing.T) {
	fake := &platformtest.Fake{
		RemainingFn: func(n int) int64 {
			if n <= 2 {
				return 90000
			}
			return 80000
		},
		ActiveSets: [][]int{{2}},
	}
	sched := newTestScheduler(t, fake)
	report, err := sched.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.StopReason != StopDeadline {
		t.Fatalf("expected deadline stop, got %s", report.StopReason)
	}
	if len(report.Selections) != 1 || len(fake.Snapshots) != 0 {
		t.Fatalf("expected one selection and no travel, got %d selections, %v snapshots", len(report.Selections), fake.Snapshots)
	}
}

func TestRunReadsMarkerInPlaceAfterMarkerTarget(t *testing.T) {
	fake := &platformtest.Fake{Remaining: 300000, ActiveSets: [][]int{{markerTarget}}, Marker: "HERE"}
	sched := newTestScheduler(t, fake)
	report, err := sched.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.MarkerRelocated {
		t.Fatalf("must not relocate after visiting the marker target")
	}
	for _, id := range poseIDs(fake) {
		if id == markerWaypoint {
			t.Fatalf("marker waypoint must not be commanded")
		}
	}
	decodes := 0
	for _, call := range fake.Calls {
		if call == "decode" {
			decodes++
		}
	}
	if decodes != 1 {
		t.Fatalf("expected one in-place decode, got %d", decodes)
	}
	if fake.Reports[0] != "HERE" {
		t.Fatalf("expected decoded content reported, got %q", fake.Reports[0])
	}
}

func TestRunStopsWhenTargetsAreExhausted(t *testing.T) {
	fake := &platformtest.Fake{Remaining: 300000, ActiveSets: [][]int{{}}}
	sched := newTestScheduler(t, fake)
	report, err := sched.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.StopReason != StopExhausted || report.Phases != 0 {
		t.Fatalf("expected exhausted stop with no phases, got %s/%d", report.StopReason, report.Phases)
	}
	if len(fake.Reports) != 1 {
		t.Fatalf("expected completion report")
	}
}

func TestRunFallsBackToBaseWhenNoReplacement(t *testing.T) {
	// Region 5 starts with the marker target, so the swap yields 0.
	fake := &platformtest.Fake{Remaining: 300000, ActiveSets: [][]int{{markerTarget}, {1, 2}}}
	sched := newTestScheduler(t, fake)
	report, err := sched.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(report.Selections) < 2 {
		t.Fatalf("expected at least two selections, got %+v", report.Selections)
	}
	second := report.Selections[1]
	if !second.Restrategized || second.Target != 0 || second.Base != 1 {
		t.Fatalf("expected a zero replacement over base 1, got %+v", second)
	}
	if fake.Snapshots[1] != 1 {
		t.Fatalf("expected fallback to base target 1, got %v", fake.Snapshots)
	}
}

func TestRunReportsCompletionOnUnknownWaypoint(t *testing.T) {
	strat, err := strategy.New(strategy.Scores{42: 1}, nil, markerTarget)
	if err != nil {
		t.Fatalf("strategy: %v", err)
	}
	fake := &platformtest.Fake{Remaining: 300000, ActiveSets: [][]int{{42}}}
	sched, err := New(missionGraph(t), fake, strat, Plan{MarkerTarget: markerTarget, MarkerWaypoint: markerWaypoint, Goal: goal})
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	report, err := sched.Run(context.Background())
	if !errors.Is(err, waypoint.ErrUnknownWaypoint) {
		t.Fatalf("expected ErrUnknownWaypoint, got %v", err)
	}
	if report.StopReason != StopError || report.Error == "" {
		t.Fatalf("expected error stop recorded, got %+v", report)
	}
	if len(fake.Reports) != 1 || fake.Reports[0] != navigation.NoMarkerContent {
		t.Fatalf("completion must still be reported once, got %v", fake.Reports)
	}
}

func TestRunSurvivesFailingActuation(t *testing.T) {
	fake := &platformtest.Fake{
		Remaining:  300000,
		ActiveSets: [][]int{{2}},
		MoveFn:     func(int, waypoint.Pose) bool { return false },
	}
	sched := newTestScheduler(t, fake)
	report, err := sched.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Unconfirmed == 0 || report.PoseCommands != len(fake.Poses) {
		t.Fatalf("expected unconfirmed legs to be counted, got %+v", report)
	}
	if len(fake.Reports) != 1 || fake.Reports[0] != navigation.NoMarkerContent {
		t.Fatalf("expected sentinel completion, got %v", fake.Reports)
	}
}

func TestRunEmitsStateTransitions(t *testing.T) {
	fake := &platformtest.Fake{Remaining: DefaultThresholdMillis}
	var states []State
	var completed int
	sched := newTestScheduler(t, fake, WithObserver(ObserverFunc(func(e Event) {
		switch e.Kind {
		case EventStateChanged:
			states = append(states, e.State)
		case EventCompleted:
			completed++
			if e.RunID != "run-test" {
				t.Errorf("expected run id on events, got %q", e.RunID)
			}
		}
	})))
	report, err := sched.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := []State{StatePhasing, StateMarkerDecision, StateFinalizing, StateComplete}
	if len(states) != len(want) {
		t.Fatalf("expected states %v, got %v", want, states)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("state %d: expected %s, got %s", i, want[i], states[i])
		}
	}
	if len(report.States) != 4 || completed != 1 {
		t.Fatalf("expected 4 recorded transitions and one completion, got %d/%d", len(report.States), completed)
	}
	if _, err := sched.Run(context.Background()); !errors.Is(err, ErrAlreadyRun) {
		t.Fatalf("expected ErrAlreadyRun, got %v", err)
	}
}

func TestNewValidatesDesignatedWaypoints(t *testing.T) {
	strat, err := strategy.New(strategy.Scores{1: 1}, nil, markerTarget)
	if err != nil {
		t.Fatalf("strategy: %v", err)
	}
	_, err = New(missionGraph(t), &platformtest.Fake{}, strat, Plan{MarkerTarget: markerTarget, MarkerWaypoint: markerWaypoint, Goal: 99})
	if !errors.Is(err, waypoint.ErrUnknownWaypoint) {
		t.Fatalf("expected ErrUnknownWaypoint for missing goal, got %v", err)
	}
}
