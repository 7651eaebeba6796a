// Package mission drives a timed inspection mission end to end. The scheduler
// walks the phase loop under the remaining-time threshold, decides whether the
// marker is worth a detour, sends the robot to the goal and always reports
// completion, even when earlier steps degraded.
package mission
