package sim

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/kingrea/cartographer/internal/waypoint"
)

// Scene is the marker mounted at a waypoint: its content rendered as a QR
// code bitmap.
type Scene struct {
	Content string
	Pose    waypoint.Pose
	bitmap  [][]bool
}

// NewScene renders content at pose.
func NewScene(content string, pose waypoint.Pose) (*Scene, error) {
	if content == "" {
		return nil, fmt.Errorf("sim: marker content is empty")
	}
	code, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("sim: encode marker: %w", err)
	}
	return &Scene{Content: content, Pose: pose, bitmap: code.Bitmap()}, nil
}

// Bitmap returns a copy of the rendered marker.
func (s *Scene) Bitmap() [][]bool {
	out := make([][]bool, len(s.bitmap))
	for i, row := range s.bitmap {
		out[i] = append([]bool(nil), row...)
	}
	return out
}

// Matches reports whether bitmap is exactly the rendered marker.
func (s *Scene) Matches(bitmap [][]bool) bool {
	if len(bitmap) != len(s.bitmap) {
		return false
	}
	for y, row := range s.bitmap {
		if len(bitmap[y]) != len(row) {
			return false
		}
		for x, dark := range row {
			if bitmap[y][x] != dark {
				return false
			}
		}
	}
	return true
}
