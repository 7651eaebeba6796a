// Package platform describes the robot-side services a mission talks to. The
// mission core only depends on these interfaces; transports and simulators
// live elsewhere.
package platform

import (
	"context"

	"github.com/kingrea/cartographer/internal/waypoint"
)

// MoveResult is the outcome of a single pose command.
type MoveResult struct {
	Succeeded bool
	Status    string
}

// Image is a single still frame from the navigation camera. Bitmap rows are
// indexed [y][x]; true is a dark pixel.
type Image struct {
	Width  int
	Height int
	Bitmap [][]bool
	// Pose is where the robot believed it was when the frame was taken.
	Pose waypoint.Pose
}

// Empty reports whether the frame carries no pixels.
func (img Image) Empty() bool {
	return len(img.Bitmap) == 0
}

// Actuator commands the robot to a pose. Re-issuing the same pose must be safe.
type Actuator interface {
	MoveTo(ctx context.Context, pose waypoint.Pose) MoveResult
}

// Lifecycle brackets a mission.
type Lifecycle interface {
	StartMission(ctx context.Context) bool
	NotifyGoingToGoal(ctx context.Context)
	ReportMissionCompletion(ctx context.Context, payload string) bool
}

// Clock reports the mission's remaining wall-clock budget.
type Clock interface {
	RemainingMillis(ctx context.Context) int64
}

// TargetBoard lists the targets currently eligible for inspection.
type TargetBoard interface {
	ActiveTargets(ctx context.Context) []int
}

// Inspector drives the inspection sensor and its auxiliary emitter.
type Inspector interface {
	SetEmitter(ctx context.Context, on bool)
	TakeTargetSnapshot(ctx context.Context, targetID int)
}

// Camera captures still frames.
type Camera interface {
	CaptureImage(ctx context.Context) Image
}

// MarkerDecoder decodes the environmental text marker. An empty string means
// nothing was found.
type MarkerDecoder interface {
	DecodeMarker(img Image) string
}

// TagDetector reports the fiducial tag ids visible in a frame.
type TagDetector interface {
	DetectTags(img Image) []int
}

// Platform bundles every service a mission needs.
type Platform interface {
	Actuator
	Lifecycle
	Clock
	TargetBoard
	Inspector
	Camera
	MarkerDecoder
}
