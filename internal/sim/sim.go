// Package sim is an in-process platform that lets missions run without a
// robot. Mission time is simulated: every command charges the budget instead
// of sleeping, so a full mission finishes in milliseconds.
package sim

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/kingrea/cartographer/internal/platform"
	"github.com/kingrea/cartographer/internal/waypoint"
)

var (
	_ platform.Platform    = (*Platform)(nil)
	_ platform.TagDetector = (*Platform)(nil)
)

// Platform simulates the robot, its clock, the target board and the camera.
type Platform struct {
	settings   Settings
	graph      *waypoint.Graph
	candidates []int
	scene      *Scene
	logger     *zap.SugaredLogger

	mu        sync.Mutex
	rng       *rand.Rand
	position  waypoint.Pose
	elapsed   int64
	emitter   bool
	started   bool
	goal      bool
	commands  int
	failures  int
	snapshots []int
	reports   []string
}

// Option customizes a Platform.
type Option func(*Platform)

// WithLogger sets the diagnostic logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(p *Platform) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithStart places the robot at pose instead of the first waypoint of the
// graph.
func WithStart(pose waypoint.Pose) Option {
	return func(p *Platform) {
		p.position = pose
	}
}

// New builds a simulated platform. candidates are the targets the board may
// activate; the marker is mounted at markerWaypoint.
func New(graph *waypoint.Graph, candidates []int, markerWaypoint int, settings Settings, opts ...Option) (*Platform, error) {
	if graph == nil || graph.Len() == 0 {
		return nil, fmt.Errorf("sim: waypoint graph is required")
	}
	if settings.BudgetMillis <= 0 || settings.SpeedMPS <= 0 {
		return nil, fmt.Errorf("sim: budget and speed must be positive")
	}
	for _, id := range candidates {
		if !graph.Has(id) {
			return nil, fmt.Errorf("sim: candidate %d: %w", id, waypoint.ErrUnknownWaypoint)
		}
	}
	markerWP, err := graph.Get(markerWaypoint)
	if err != nil {
		return nil, fmt.Errorf("sim: marker waypoint: %w", err)
	}
	scene, err := NewScene(settings.MarkerContent, markerWP.Pose)
	if err != nil {
		return nil, err
	}
	start, _ := graph.Get(graph.IDs()[0])
	p := &Platform{
		settings:   settings,
		graph:      graph,
		candidates: append([]int(nil), candidates...),
		scene:      scene,
		logger:     zap.NewNop().Sugar(),
		rng:        rand.New(rand.NewSource(settings.Seed)),
		position:   start.Pose,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Scene returns the marker scene.
func (p *Platform) Scene() *Scene {
	return p.scene
}

// MoveTo charges travel time and moves the robot unless the draw fails.
func (p *Platform) MoveTo(_ context.Context, pose waypoint.Pose) platform.MoveResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.commands++
	p.elapsed += p.settings.MoveOverheadMillis
	if p.rng.Float64() < p.settings.FailureRate {
		p.failures++
		return platform.MoveResult{Succeeded: false, Status: "planner rejected pose"}
	}
	dist := p.position.Position.DistanceTo(pose.Position)
	p.elapsed += int64(dist / p.settings.SpeedMPS * 1000)
	p.position = pose
	return platform.MoveResult{Succeeded: true, Status: "ok"}
}

// StartMission returns false if the mission was already started.
func (p *Platform) StartMission(context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return false
	}
	p.started = true
	return true
}

func (p *Platform) NotifyGoingToGoal(context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.goal = true
}

// ReportMissionCompletion records payload; it acknowledges every report.
func (p *Platform) ReportMissionCompletion(_ context.Context, payload string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reports = append(p.reports, payload)
	p.logger.Infow("mission completion reported", "payload", payload, "elapsed_ms", p.elapsed)
	return true
}

// RemainingMillis never goes below zero.
func (p *Platform) RemainingMillis(context.Context) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if left := p.settings.BudgetMillis - p.elapsed; left > 0 {
		return left
	}
	return 0
}

// ActiveTargets draws a random subset of the candidates.
func (p *Platform) ActiveTargets(context.Context) []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.candidates)
	if n == 0 {
		return nil
	}
	lo, hi := p.settings.ActiveMin, p.settings.ActiveMax
	if hi > n {
		hi = n
	}
	if lo > hi {
		lo = hi
	}
	k := lo
	if hi > lo {
		k += p.rng.Intn(hi - lo + 1)
	}
	perm := p.rng.Perm(n)
	out := make([]int, 0, k)
	for _, i := range perm[:k] {
		out = append(out, p.candidates[i])
	}
	return out
}

func (p *Platform) SetEmitter(_ context.Context, on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.emitter = on
}

// TakeTargetSnapshot charges the snapshot time and records the target.
func (p *Platform) TakeTargetSnapshot(_ context.Context, targetID int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.elapsed += p.settings.SnapshotMillis
	p.snapshots = append(p.snapshots, targetID)
	if !p.emitter {
		p.logger.Warnw("snapshot taken with emitter off", "target", targetID)
	}
}

// CaptureImage returns the marker bitmap when the robot is within view of
// it and an empty frame otherwise.
func (p *Platform) CaptureImage(context.Context) platform.Image {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.elapsed += p.settings.CaptureMillis
	img := platform.Image{Pose: p.position}
	if p.position.Position.DistanceTo(p.scene.Pose.Position) <= p.settings.ViewMeters {
		img.Bitmap = p.scene.Bitmap()
		img.Height = len(img.Bitmap)
		if img.Height > 0 {
			img.Width = len(img.Bitmap[0])
		}
	}
	return img
}

// DecodeMarker recognizes only the scene's own marker.
func (p *Platform) DecodeMarker(img platform.Image) string {
	if img.Empty() || !p.scene.Matches(img.Bitmap) {
		return ""
	}
	return p.scene.Content
}

// DetectTags reports the candidate targets within view of the frame's pose.
func (p *Platform) DetectTags(img platform.Image) []int {
	var out []int
	for _, id := range p.candidates {
		wp, err := p.graph.Get(id)
		if err != nil {
			continue
		}
		if img.Pose.Position.DistanceTo(wp.Pose.Position) <= p.settings.ViewMeters {
			out = append(out, id)
		}
	}
	sort.Ints(out)
	return out
}

// Stats summarizes what the simulator saw.
type Stats struct {
	ElapsedMillis  int64    `json:"elapsed_ms"`
	Commands       int      `json:"commands"`
	Failures       int      `json:"failures"`
	Snapshots      []int    `json:"snapshots"`
	Reports        []string `json:"reports"`
	NotifiedToGoal bool     `json:"notified_to_goal"`
}

// Stats returns a copy of the simulator counters.
func (p *Platform) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		ElapsedMillis:  p.elapsed,
		Commands:       p.commands,
		Failures:       p.failures,
		Snapshots:      append([]int(nil), p.snapshots...),
		Reports:        append([]string(nil), p.reports...),
		NotifiedToGoal: p.goal,
	}
}
