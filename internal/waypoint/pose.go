package waypoint

import (
	"fmt"
	"math"
)

// Point is a position in the structure frame, in meters.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// DistanceTo is the straight-line distance to q.
func (p Point) DistanceTo(q Point) float64 {
	return math.Sqrt((p.X-q.X)*(p.X-q.X) + (p.Y-q.Y)*(p.Y-q.Y) + (p.Z-q.Z)*(p.Z-q.Z))
}

// Quaternion is a unit orientation quaternion.
type Quaternion struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
	W float64 `json:"w" yaml:"w"`
}

// Pose is a 6-DOF target the robot can be commanded to.
type Pose struct {
	Position    Point      `json:"position"`
	Orientation Quaternion `json:"orientation"`
}

// String renders the position only; orientations are rarely useful in logs.
func (p Pose) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f)", p.Position.X, p.Position.Y, p.Position.Z)
}
