package mission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/kingrea/cartographer/internal/navigation"
	"github.com/kingrea/cartographer/internal/platform"
	"github.com/kingrea/cartographer/internal/strategy"
	"github.com/kingrea/cartographer/internal/waypoint"
)

const (
	// DefaultThresholdMillis is the remaining time at or below which the
	// scheduler stops hunting targets and heads for the goal.
	DefaultThresholdMillis int64 = 80000
	// DefaultPhaseLimit caps target-acquisition iterations.
	DefaultPhaseLimit = 3
)

// ErrAlreadyRun is returned when Run is called on a used scheduler.
var ErrAlreadyRun = errors.New("mission: scheduler already ran")

// Plan names the designated waypoints and limits of a mission.
type Plan struct {
	MarkerTarget    int
	MarkerWaypoint  int
	Goal            int
	ThresholdMillis int64
	PhaseLimit      int
}

func (p Plan) normalized() Plan {
	if p.ThresholdMillis <= 0 {
		p.ThresholdMillis = DefaultThresholdMillis
	}
	if p.PhaseLimit <= 0 {
		p.PhaseLimit = DefaultPhaseLimit
	}
	return p
}

// Scheduler runs one mission. It is single-use.
type Scheduler struct {
	plat      platform.Platform
	strat     *strategy.Strategy
	exec      *navigation.Executor
	plan      Plan
	logger    *zap.SugaredLogger
	observers []Observer
	clock     func() time.Time
	newRunID  func() string
	execOpts  []navigation.Option

	machine   *fsm.FSM
	phase     int
	remaining int64
	report    Report
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithObserver registers an event observer.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock injects a deterministic clock (primarily for tests).
func WithClock(clock func() time.Time) Option {
	return func(s *Scheduler) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithRunID fixes the run id instead of generating a UUID.
func WithRunID(id string) Option {
	return func(s *Scheduler) {
		if id != "" {
			s.newRunID = func() string { return id }
		}
	}
}

// WithExecutorOptions forwards options to the navigation executor.
func WithExecutorOptions(opts ...navigation.Option) Option {
	return func(s *Scheduler) {
		s.execOpts = append(s.execOpts, opts...)
	}
}

// New wires a scheduler. The plan's designated waypoints must exist in graph.
func New(graph *waypoint.Graph, plat platform.Platform, strat *strategy.Strategy, plan Plan, opts ...Option) (*Scheduler, error) {
	if graph == nil {
		return nil, fmt.Errorf("mission: waypoint graph is required")
	}
	if plat == nil {
		return nil, fmt.Errorf("mission: platform is required")
	}
	if strat == nil {
		return nil, fmt.Errorf("mission: strategy is required")
	}
	plan = plan.normalized()
	for name, id := range map[string]int{
		"marker target":   plan.MarkerTarget,
		"marker waypoint": plan.MarkerWaypoint,
		"goal":            plan.Goal,
	} {
		if _, err := graph.Get(id); err != nil {
			return nil, fmt.Errorf("mission: %s: %w", name, err)
		}
	}
	s := &Scheduler{
		plat:     plat,
		strat:    strat,
		plan:     plan,
		logger:   zap.NewNop().Sugar(),
		clock:    time.Now,
		newRunID: uuid.NewString,
		phase:    1,
	}
	for _, opt := range opts {
		opt(s)
	}
	execOpts := []navigation.Option{
		navigation.WithTerminals(plan.MarkerTarget, plan.MarkerWaypoint, plan.Goal),
		navigation.WithLogger(s.logger),
		navigation.WithLegHook(s.onLeg),
	}
	exec, err := navigation.New(graph, plat, append(execOpts, s.execOpts...)...)
	if err != nil {
		return nil, err
	}
	s.exec = exec
	s.machine = newMachine(s.onEnter)
	return s, nil
}

// State returns the current mission state.
func (s *Scheduler) State() State {
	return State(s.machine.Current())
}

// Run executes the mission. Completion is always reported exactly once; the
// returned error joins any hard failures (unknown waypoints) met on the way.
func (s *Scheduler) Run(ctx context.Context) (Report, error) {
	if s.State() != StateNotStarted {
		return Report{}, ErrAlreadyRun
	}
	s.report = Report{RunID: s.newRunID(), StartedAt: s.clock()}
	s.logger = s.logger.With("run_id", s.report.RunID)
	var errs []error

	if !s.plat.StartMission(ctx) {
		s.logger.Warnw("platform did not acknowledge mission start")
	}
	errs = appendErr(errs, s.transition(ctx, eventStart))
	errs = appendErr(errs, s.runPhases(ctx))

	errs = appendErr(errs, s.transition(ctx, eventConcludePhasing))
	errs = appendErr(errs, s.decideMarker(ctx))

	errs = appendErr(errs, s.transition(ctx, eventProceedToGoal))
	s.plat.NotifyGoingToGoal(ctx)
	_, err := s.travel(ctx, s.plan.Goal, navigation.ActionNone)
	errs = appendErr(errs, err)

	log := s.exec.Log()
	s.report.Reported = s.plat.ReportMissionCompletion(ctx, log.MarkerContent)
	errs = appendErr(errs, s.transition(ctx, eventComplete))

	s.report.FinishedAt = s.clock()
	s.report.Phases = s.phase - 1
	s.report.Visited = log.Visited
	s.report.MarkerContent = log.MarkerContent
	s.report.MarkerDecoded = log.MarkerDecoded
	s.report.RemainingAtEnd = s.readRemaining(ctx)
	joined := errors.Join(errs...)
	if joined != nil {
		s.report.Error = joined.Error()
		s.emit(Event{Kind: EventError, Message: joined.Error()})
	}
	s.emit(Event{Kind: EventCompleted, Visited: log.Visited, Marker: log.MarkerContent})
	s.logger.Infow("mission complete",
		"visited", log.Visited,
		"marker", log.MarkerContent,
		"stop_reason", s.report.StopReason,
		"duration", s.report.Duration().String())
	return s.report, joined
}

func (s *Scheduler) runPhases(ctx context.Context) error {
	threshold := s.plan.ThresholdMillis
	for s.readRemaining(ctx) > threshold && s.phase <= s.plan.PhaseLimit {
		s.emit(Event{Kind: EventPhaseStarted})
		if s.readRemaining(ctx) <= threshold {
			s.stop(StopDeadline)
			return nil
		}
		active := s.plat.ActiveTargets(ctx)
		sel := s.strat.Select(active, s.exec.Log().CurrentRegion)
		s.report.Selections = append(s.report.Selections, sel)
		target := sel.Target
		if target == 0 {
			target = sel.Base
		}
		if target == 0 {
			s.stop(StopExhausted)
			return nil
		}
		s.emit(Event{Kind: EventTargetSelected, Target: target, Selection: &sel})
		if s.readRemaining(ctx) <= threshold {
			s.stop(StopDeadline)
			return nil
		}
		if _, err := s.travel(ctx, target, navigation.ActionInspect); err != nil {
			s.stop(StopError)
			return err
		}
		s.phase++
	}
	if s.phase > s.plan.PhaseLimit {
		s.stop(StopPhaseLimit)
	} else {
		s.stop(StopDeadline)
	}
	return nil
}

func (s *Scheduler) decideMarker(ctx context.Context) error {
	last, ok := s.exec.Log().LastVisited()
	nearMarker := ok && last == s.plan.MarkerTarget
	if !nearMarker && s.readRemaining(ctx) > s.plan.ThresholdMillis {
		s.logger.Infow("heading to marker", "waypoint", s.plan.MarkerWaypoint)
		s.report.MarkerRelocated = true
		travel, err := s.travel(ctx, s.plan.MarkerWaypoint, navigation.ActionReadMarker)
		if err != nil {
			return err
		}
		s.emit(Event{Kind: EventMarkerRead, Target: s.plan.MarkerWaypoint, Marker: travel.Marker})
		return nil
	}
	s.logger.Infow("reading marker in place to save time")
	content := s.exec.ReadMarker(ctx)
	s.emit(Event{Kind: EventMarkerRead, Marker: content})
	return nil
}

func (s *Scheduler) travel(ctx context.Context, target int, action navigation.Action) (navigation.Travel, error) {
	s.logger.Infow("traveling", "target", target, "action", action.String(), "phase", s.phase)
	travel, err := s.exec.TravelTo(ctx, target, action)
	if err != nil {
		s.logger.Errorw("travel failed", "target", target, "error", err)
		return travel, fmt.Errorf("mission: travel to %d: %w", target, err)
	}
	s.report.addTravel(travel)
	if travel.Inspected {
		s.emit(Event{Kind: EventInspected, Target: target, Visited: s.exec.Log().Visited})
	}
	return travel, nil
}

func (s *Scheduler) stop(reason StopReason) {
	s.report.StopReason = reason
	s.logger.Infow("phasing stopped", "reason", string(reason), "remaining_ms", s.remaining, "phase", s.phase)
	s.emit(Event{Kind: EventPhasingStopped, Message: string(reason)})
}

func (s *Scheduler) readRemaining(ctx context.Context) int64 {
	s.remaining = s.plat.RemainingMillis(ctx)
	return s.remaining
}

func (s *Scheduler) transition(ctx context.Context, event string) error {
	if err := s.machine.Event(ctx, event); err != nil {
		return fmt.Errorf("mission: %s: %w", event, err)
	}
	return nil
}

func (s *Scheduler) onEnter(_ context.Context, from, to State) {
	s.report.States = append(s.report.States, StateChange{From: from, To: to, At: s.clock()})
	s.logger.Infow("state changed", "from", string(from), "to", string(to))
	s.emitIn(to, Event{Kind: EventStateChanged, Message: fmt.Sprintf("%s -> %s", from, to)})
}

func (s *Scheduler) onLeg(leg navigation.Leg) {
	s.emit(Event{Kind: EventLeg, Target: leg.Target, Leg: &leg})
}

func (s *Scheduler) emit(evt Event) {
	s.emitIn(s.State(), evt)
}

func (s *Scheduler) emitIn(state State, evt Event) {
	evt.RunID = s.report.RunID
	evt.Time = s.clock()
	evt.State = state
	evt.Phase = s.phase
	evt.Remaining = s.remaining
	evt.Region = s.exec.Log().CurrentRegion
	for _, o := range s.observers {
		o.Observe(evt)
	}
}

func appendErr(errs []error, err error) []error {
	if err == nil {
		return errs
	}
	return append(errs, err)
}
