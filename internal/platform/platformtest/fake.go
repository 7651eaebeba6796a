// Package platformtest provides a scripted platform for mission tests.
package platformtest

import (
	"context"
	"fmt"

	"github.com/kingrea/cartographer/internal/platform"
	"github.com/kingrea/cartographer/internal/waypoint"
)

// Fake records every call and answers from scripted fields.
type Fake struct {
	// Remaining is returned by RemainingMillis unless RemainingFn is set.
	Remaining int64
	// RemainingFn receives the 1-based query count.
	RemainingFn func(n int) int64
	// ActiveSets are returned by successive ActiveTargets calls; the last one repeats.
	ActiveSets [][]int
	// MoveFn decides each pose command; nil means every command succeeds.
	MoveFn func(n int, pose waypoint.Pose) bool
	// Marker is decoded from every frame unless DecodeFn is set.
	Marker   string
	DecodeFn func(n int) string
	Tags     []int

	Calls         []string
	Poses         []waypoint.Pose
	Snapshots     []int
	Reports       []string
	Notified      int
	Started       int
	timeQueries   int
	activeQueries int
	decodes       int
}

func (f *Fake) record(format string, args ...any) {
	f.Calls = append(f.Calls, fmt.Sprintf(format, args...))
}

func (f *Fake) MoveTo(_ context.Context, pose waypoint.Pose) platform.MoveResult {
	f.Poses = append(f.Poses, pose)
	f.record("move %s", pose)
	if f.MoveFn != nil && !f.MoveFn(len(f.Poses), pose) {
		return platform.MoveResult{Succeeded: false, Status: "failed"}
	}
	return platform.MoveResult{Succeeded: true, Status: "ok"}
}

func (f *Fake) StartMission(context.Context) bool {
	f.Started++
	f.record("start")
	return true
}

func (f *Fake) NotifyGoingToGoal(context.Context) {
	f.Notified++
	f.record("notify-goal")
}

func (f *Fake) ReportMissionCompletion(_ context.Context, payload string) bool {
	f.Reports = append(f.Reports, payload)
	f.record("report %s", payload)
	return true
}

func (f *Fake) RemainingMillis(context.Context) int64 {
	f.timeQueries++
	if f.RemainingFn != nil {
		return f.RemainingFn(f.timeQueries)
	}
	return f.Remaining
}

// TimeQueries returns how often the remaining time was read.
func (f *Fake) TimeQueries() int {
	return f.timeQueries
}

func (f *Fake) ActiveTargets(context.Context) []int {
	f.activeQueries++
	if len(f.ActiveSets) == 0 {
		return nil
	}
	idx := f.activeQueries - 1
	if idx >= len(f.ActiveSets) {
		idx = len(f.ActiveSets) - 1
	}
	return append([]int(nil), f.ActiveSets[idx]...)
}

func (f *Fake) SetEmitter(_ context.Context, on bool) {
	if on {
		f.record("emitter on")
	} else {
		f.record("emitter off")
	}
}

func (f *Fake) TakeTargetSnapshot(_ context.Context, targetID int) {
	f.Snapshots = append(f.Snapshots, targetID)
	f.record("snapshot %d", targetID)
}

func (f *Fake) CaptureImage(context.Context) platform.Image {
	f.record("capture")
	var pose waypoint.Pose
	if len(f.Poses) > 0 {
		pose = f.Poses[len(f.Poses)-1]
	}
	return platform.Image{Width: 1, Height: 1, Bitmap: [][]bool{{true}}, Pose: pose}
}

func (f *Fake) DecodeMarker(platform.Image) string {
	f.decodes++
	f.record("decode")
	if f.DecodeFn != nil {
		return f.DecodeFn(f.decodes)
	}
	return f.Marker
}

func (f *Fake) DetectTags(platform.Image) []int {
	f.record("detect")
	return append([]int(nil), f.Tags...)
}

var (
	_ platform.Platform    = (*Fake)(nil)
	_ platform.TagDetector = (*Fake)(nil)
)
