package sim

import "github.com/kingrea/cartographer/internal/config"

// Settings tunes the simulated platform.
type Settings struct {
	Seed int64
	// BudgetMillis is the total mission time.
	BudgetMillis int64
	// SpeedMPS converts travel distance into mission time.
	SpeedMPS float64
	// MoveOverheadMillis is charged for every pose command, failed or not.
	MoveOverheadMillis int64
	SnapshotMillis     int64
	CaptureMillis      int64
	// FailureRate is the probability that a single pose command fails.
	FailureRate float64
	// ActiveMin and ActiveMax bound the size of each active target draw.
	ActiveMin int
	ActiveMax int
	// MarkerContent is encoded into the marker scene.
	MarkerContent string
	// ViewMeters is how close the camera must be to see the marker or a tag.
	ViewMeters float64
}

// SettingsFromConfig copies the simulator section of the project config.
func SettingsFromConfig(cfg *config.Config) Settings {
	s := cfg.Project.Simulator
	return Settings{
		Seed:               s.Seed,
		BudgetMillis:       s.BudgetMS,
		SpeedMPS:           s.SpeedMPS,
		MoveOverheadMillis: s.MoveOverheadMS,
		SnapshotMillis:     s.SnapshotMS,
		CaptureMillis:      s.CaptureMS,
		FailureRate:        s.FailureRate,
		ActiveMin:          s.ActiveMin,
		ActiveMax:          s.ActiveMax,
		MarkerContent:      s.MarkerContent,
		ViewMeters:         s.MarkerViewM,
	}
}
