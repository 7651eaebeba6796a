package navigation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"

	"github.com/kingrea/cartographer/internal/platform"
	"github.com/kingrea/cartographer/internal/waypoint"
)

// DefaultMaxAttempts bounds pose commands: one initial try plus nine retries.
const DefaultMaxAttempts = 10

// ErrActuation marks a pose command the platform reported as failed.
var ErrActuation = errors.New("navigation: actuation failure")

// Action selects what happens once the robot reaches the target pose.
type Action int

const (
	ActionNone Action = iota
	ActionInspect
	ActionReadMarker
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionInspect:
		return "inspect"
	case ActionReadMarker:
		return "read-marker"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// LegKind says why a pose command was issued during a travel.
type LegKind string

const (
	LegApproach LegKind = "approach"
	LegTarget   LegKind = "target"
	LegReturn   LegKind = "return"
)

// Arrival is the result of MoveToPose. Confirmed is false when every attempt
// was reported as failed; the robot may or may not be at the pose.
type Arrival struct {
	Pose      waypoint.Pose `json:"pose"`
	Attempts  int           `json:"attempts"`
	Confirmed bool          `json:"confirmed"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Leg is one pose command issued on the way to, at, or back from a target.
type Leg struct {
	Waypoint int     `json:"waypoint"`
	Target   int     `json:"target"`
	Kind     LegKind `json:"kind"`
	Arrival  Arrival `json:"arrival"`
}

// Travel summarizes a TravelTo call.
type Travel struct {
	Target    int    `json:"target"`
	Action    Action `json:"action"`
	Legs      []Leg  `json:"legs"`
	Inspected bool   `json:"inspected,omitempty"`
	// TagSeen is only set when a tag detector is configured.
	TagSeen *bool  `json:"tag_seen,omitempty"`
	Marker  string `json:"marker,omitempty"`
}

// Unconfirmed counts legs whose arrival was never confirmed.
func (t Travel) Unconfirmed() int {
	n := 0
	for _, leg := range t.Legs {
		if !leg.Arrival.Confirmed {
			n++
		}
	}
	return n
}

// Executor travels between waypoints of a graph.
type Executor struct {
	graph       *waypoint.Graph
	plat        platform.Platform
	detector    platform.TagDetector
	terminal    map[int]struct{}
	maxAttempts int
	logger      *zap.SugaredLogger
	onLeg       func(Leg)
	clock       func() time.Time
	log         Log
}

// Option customizes an Executor.
type Option func(*Executor)

// WithMaxAttempts overrides the total number of attempts per pose command.
func WithMaxAttempts(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.maxAttempts = n
		}
	}
}

// WithTerminals lists waypoints that are not followed by a return hop to
// their parent.
func WithTerminals(ids ...int) Option {
	return func(e *Executor) {
		for _, id := range ids {
			e.terminal[id] = struct{}{}
		}
	}
}

// WithTagDetector enables tag verification after each inspection.
func WithTagDetector(d platform.TagDetector) Option {
	return func(e *Executor) {
		e.detector = d
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithLegHook registers a callback invoked after every pose command.
func WithLegHook(fn func(Leg)) Option {
	return func(e *Executor) {
		e.onLeg = fn
	}
}

// WithClock injects a deterministic clock (primarily for tests).
func WithClock(clock func() time.Time) Option {
	return func(e *Executor) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// New wires an executor to a graph and platform.
func New(graph *waypoint.Graph, plat platform.Platform, opts ...Option) (*Executor, error) {
	if graph == nil {
		return nil, fmt.Errorf("navigation: waypoint graph is required")
	}
	if plat == nil {
		return nil, fmt.Errorf("navigation: platform is required")
	}
	e := &Executor{
		graph:       graph,
		plat:        plat,
		terminal:    map[int]struct{}{},
		maxAttempts: DefaultMaxAttempts,
		logger:      zap.NewNop().Sugar(),
		clock:       time.Now,
		log:         newLog(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Log returns a copy of the executor's mission state.
func (e *Executor) Log() Log {
	return e.log.clone()
}

// TravelTo moves to targetID through its parent chain, performs action at the
// target, and returns to the immediate parent unless the target is terminal.
func (e *Executor) TravelTo(ctx context.Context, targetID int, action Action) (Travel, error) {
	target, err := e.graph.Get(targetID)
	if err != nil {
		return Travel{}, err
	}
	chain, err := e.graph.ParentChain(targetID)
	if err != nil {
		return Travel{}, err
	}
	travel := Travel{Target: targetID, Action: action}
	for i := len(chain) - 1; i >= 0; i-- {
		hop := chain[i]
		travel.Legs = append(travel.Legs, e.visit(ctx, hop, targetID, LegApproach))
		e.log.CurrentRegion = hop.ID
	}
	travel.Legs = append(travel.Legs, e.visit(ctx, target, targetID, LegTarget))

	switch action {
	case ActionInspect:
		e.inspect(ctx, targetID, &travel)
	case ActionReadMarker:
		travel.Marker = e.ReadMarker(ctx)
	}

	if target.HasParent() && !e.isTerminal(targetID) {
		parent := chain[0]
		travel.Legs = append(travel.Legs, e.visit(ctx, parent, targetID, LegReturn))
		e.log.CurrentRegion = parent.ID
	}
	return travel, nil
}

// MoveToPose issues the pose command, retrying the identical request with no
// delay until it succeeds or the attempt budget is spent. It never fails.
func (e *Executor) MoveToPose(ctx context.Context, pose waypoint.Pose) Arrival {
	arrival := Arrival{Pose: pose}
	start := e.clock()
	op := func() error {
		arrival.Attempts++
		res := e.plat.MoveTo(ctx, pose)
		if !res.Succeeded {
			return fmt.Errorf("%w: attempt %d: %s", ErrActuation, arrival.Attempts, res.Status)
		}
		return nil
	}
	var err error
	if e.maxAttempts <= 1 {
		// WithMaxRetries treats zero as unlimited.
		err = op()
	} else {
		policy := backoff.WithMaxRetries(&backoff.ZeroBackOff{}, uint64(e.maxAttempts-1))
		err = backoff.RetryNotify(op, policy, func(err error, _ time.Duration) {
			e.logger.Debugw("pose command failed, retrying", "pose", pose.String(), "error", err)
		})
	}
	arrival.Elapsed = e.clock().Sub(start)
	arrival.Confirmed = err == nil
	if err != nil {
		e.logger.Warnw("pose not confirmed, continuing", "pose", pose.String(), "attempts", arrival.Attempts)
	}
	return arrival
}

// ReadMarker captures a frame and decodes the marker. The first non-empty
// decode is kept; later reads never replace it.
func (e *Executor) ReadMarker(ctx context.Context) string {
	img := e.plat.CaptureImage(ctx)
	content := e.plat.DecodeMarker(img)
	if content == "" {
		e.logger.Infow("marker not found in frame")
		return ""
	}
	if !e.log.MarkerDecoded {
		e.log.MarkerContent = content
		e.log.MarkerDecoded = true
	}
	e.logger.Infow("marker decoded", "content", content)
	return content
}

func (e *Executor) visit(ctx context.Context, wp waypoint.Waypoint, target int, kind LegKind) Leg {
	e.logger.Infow("moving", "waypoint", wp.ID, "kind", string(kind), "pose", wp.Pose.String())
	leg := Leg{Waypoint: wp.ID, Target: target, Kind: kind, Arrival: e.MoveToPose(ctx, wp.Pose)}
	if e.onLeg != nil {
		e.onLeg(leg)
	}
	return leg
}

func (e *Executor) inspect(ctx context.Context, targetID int, travel *Travel) {
	e.plat.SetEmitter(ctx, true)
	e.plat.TakeTargetSnapshot(ctx, targetID)
	e.log.Visited = append(e.log.Visited, targetID)
	e.plat.SetEmitter(ctx, false)
	travel.Inspected = true
	if e.detector == nil {
		return
	}
	seen := false
	for _, id := range e.detector.DetectTags(e.plat.CaptureImage(ctx)) {
		if id == targetID {
			seen = true
			break
		}
	}
	if !seen {
		e.logger.Warnw("target tag not detected after snapshot", "target", targetID)
	}
	travel.TagSeen = &seen
}

func (e *Executor) isTerminal(id int) bool {
	_, ok := e.terminal[id]
	return ok
}
