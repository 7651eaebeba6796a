// internal/config/config.go
//
// This package handles configuration and the .cartographer directory layout.
// Every project that runs missions gets a .cartographer/ folder holding the
// mission table (config.yaml), diagnostic logs, the journal and run reports.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/kingrea/cartographer/internal/mission"
	"github.com/kingrea/cartographer/internal/strategy"
	"github.com/kingrea/cartographer/internal/waypoint"
)

const (
	// CartographerDir is the name of the directory we create in each project
	CartographerDir = ".cartographer"

	configFileName  = "config.yaml"
	journalFileName = "journal.log"
)

// defaultProjectConfigYAML carries the stock mission: two staging regions
// (waypoints 1 and 5), the marker target 4 read from waypoint 7, and the goal 8.
const defaultProjectConfigYAML = `# cartographer mission configuration
version: 1

mission:
  marker_target: 4
  marker_waypoint: 7
  goal: 8
  threshold_ms: 80000
  phase_limit: 3
  retry_limit: 10
  verify_tags: false

# Poses use the structure frame: position [x, y, z] in meters and
# orientation as a unit quaternion [x, y, z, w].
waypoints:
  - {id: 0, position: [10.71, -7.7, 4.48], orientation: [0, 0, -0.707, 0.707]}
  - {id: 1, position: [10.71, -9.8, 4.48], orientation: [0, 0, -0.707, 0.707]}
  - {id: 2, position: [10.71, -11.3, 4.48], orientation: [0, 0, -0.707, 0.707], parent: 1}
  - {id: 3, position: [10.71, -12.8, 4.48], orientation: [0, 0, -0.707, 0.707], parent: 1}
  - {id: 4, position: [11.21, -10.9, 4.48], orientation: [0, 0, -0.707, 0.707], parent: 5}
  - {id: 5, position: [10.41, -8.9, 4.48], orientation: [0, 0, -0.707, 0.707]}
  - {id: 6, position: [10.41, -10.4, 4.48], orientation: [0, 0, -0.707, 0.707], parent: 1}
  - {id: 7, position: [11.21, -10.4, 4.48], orientation: [0, 0, -0.707, 0.707], parent: 5}
  - {id: 8, position: [11.21, -8.4, 4.48], orientation: [0, 0, -0.707, 0.707], parent: 5}

# Targets associated with each staging region, in scan order.
regions:
  1: [3, 6, 8]
  5: [4, 7, 8]

scores:
  1: 10
  2: 10
  3: 10
  4: 15
  5: 8
  6: 8
  8: 5

simulator:
  seed: 0
  budget_ms: 300000
  speed_mps: 0.1
  move_overhead_ms: 6000
  snapshot_ms: 2000
  capture_ms: 500
  failure_rate: 0.1
  active_min: 1
  active_max: 2
  marker_content: "ASTROBEE-KIBO-SIM"
  marker_view_m: 0.6

status:
  enabled: false
  host: 127.0.0.1
  port: 8766
`

// MissionSettings names the designated waypoints and limits.
type MissionSettings struct {
	MarkerTarget   int   `yaml:"marker_target"`
	MarkerWaypoint int   `yaml:"marker_waypoint"`
	Goal           int   `yaml:"goal"`
	ThresholdMS    int64 `yaml:"threshold_ms"`
	PhaseLimit     int   `yaml:"phase_limit"`
	RetryLimit     int   `yaml:"retry_limit"`
	VerifyTags     bool  `yaml:"verify_tags"`
}

// WaypointEntry is one row of the waypoint table.
type WaypointEntry struct {
	ID          int       `yaml:"id"`
	Position    []float64 `yaml:"position,flow"`
	Orientation []float64 `yaml:"orientation,flow"`
	Parent      int       `yaml:"parent,omitempty"`
}

// SimulatorSettings configures the in-process simulated platform.
type SimulatorSettings struct {
	Seed           int64   `yaml:"seed"`
	BudgetMS       int64   `yaml:"budget_ms"`
	SpeedMPS       float64 `yaml:"speed_mps"`
	MoveOverheadMS int64   `yaml:"move_overhead_ms"`
	SnapshotMS     int64   `yaml:"snapshot_ms"`
	CaptureMS      int64   `yaml:"capture_ms"`
	FailureRate    float64 `yaml:"failure_rate"`
	ActiveMin      int     `yaml:"active_min"`
	ActiveMax      int     `yaml:"active_max"`
	MarkerContent  string  `yaml:"marker_content"`
	MarkerViewM    float64 `yaml:"marker_view_m"`
}

// StatusSettings is the raw status server section; see internal/status.
type StatusSettings struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Host    string `yaml:"host,omitempty"`
	Port    int    `yaml:"port,omitempty"`
}

// ProjectConfig models .cartographer/config.yaml.
type ProjectConfig struct {
	Version   int               `yaml:"version"`
	Mission   MissionSettings   `yaml:"mission"`
	Waypoints []WaypointEntry   `yaml:"waypoints"`
	Regions   map[int][]int     `yaml:"regions"`
	Scores    map[int]int       `yaml:"scores"`
	Simulator SimulatorSettings `yaml:"simulator"`
	Status    StatusSettings    `yaml:"status"`
}

// Config holds the runtime configuration for a project.
type Config struct {
	// ProjectDir is the directory cartographer was run from
	ProjectDir string

	// CartographerProjectDir is ProjectDir/.cartographer
	CartographerProjectDir string

	Project ProjectConfig
}

// InitCartographerDir creates the .cartographer directory structure in the
// given project directory and seeds config.yaml when it is missing.
//
// Structure created:
// .cartographer/
// ├── config.yaml
// ├── journal.log  <- mission event journal (created on first run)
// ├── logs/        <- structured diagnostic logs
// └── reports/     <- one JSON report per mission run
func InitCartographerDir(projectDir string) error {
	root := filepath.Join(projectDir, CartographerDir)
	for _, dir := range []string{
		filepath.Join(root, "logs"),
		filepath.Join(root, "reports"),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return ensureProjectConfig(filepath.Join(root, configFileName))
}

// NewConfig loads the project configuration, falling back to the stock
// mission when config.yaml does not exist.
func NewConfig(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir:             projectDir,
		CartographerProjectDir: filepath.Join(projectDir, CartographerDir),
		Project:                defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	cfg.Project.Simulator.applyEnvOverrides()
	return cfg, nil
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.CartographerProjectDir, "logs")
}

// ReportsDir returns the path to the reports directory
func (c *Config) ReportsDir() string {
	return filepath.Join(c.CartographerProjectDir, "reports")
}

// JournalPath returns the mission journal file
func (c *Config) JournalPath() string {
	return filepath.Join(c.CartographerProjectDir, journalFileName)
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.CartographerProjectDir, configFileName)
}

// Graph builds the waypoint graph from the table.
func (c *Config) Graph() (*waypoint.Graph, error) {
	return c.Project.graph()
}

// Scores returns a copy of the score table.
func (c *Config) Scores() strategy.Scores {
	out := make(strategy.Scores, len(c.Project.Scores))
	for id, score := range c.Project.Scores {
		out[id] = score
	}
	return out
}

// Regions returns a copy of the region adjacency table.
func (c *Config) Regions() strategy.Regions {
	out := make(strategy.Regions, len(c.Project.Regions))
	for id, targets := range c.Project.Regions {
		out[id] = append([]int(nil), targets...)
	}
	return out
}

// ActiveCandidates lists the scored targets the simulator may activate: every
// scored waypoint except the goal, in ascending order.
func (c *Config) ActiveCandidates() []int {
	out := make([]int, 0, len(c.Project.Scores))
	for id := range c.Project.Scores {
		if id != c.Project.Mission.Goal {
			out = append(out, id)
		}
	}
	sort.Ints(out)
	return out
}

// Plan returns the mission plan derived from the mission section.
func (c *Config) Plan() mission.Plan {
	m := c.Project.Mission
	return mission.Plan{
		MarkerTarget:    m.MarkerTarget,
		MarkerWaypoint:  m.MarkerWaypoint,
		Goal:            m.Goal,
		ThresholdMillis: m.ThresholdMS,
		PhaseLimit:      m.PhaseLimit,
	}
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	parsed, err := parseProjectConfig(data)
	if err != nil {
		return fmt.Errorf("config: %s: %w", path, err)
	}
	c.Project = parsed
	return nil
}

func parseProjectConfig(data []byte) (ProjectConfig, error) {
	var parsed ProjectConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return ProjectConfig{}, fmt.Errorf("parse: %w", err)
	}
	parsed.applyDefaults()
	if err := parsed.validate(); err != nil {
		return ProjectConfig{}, err
	}
	return parsed, nil
}

func defaultProjectConfig() ProjectConfig {
	parsed, err := parseProjectConfig([]byte(defaultProjectConfigYAML))
	if err != nil {
		panic(fmt.Sprintf("config: embedded default is invalid: %v", err))
	}
	return parsed
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if pc.Mission.ThresholdMS == 0 {
		pc.Mission.ThresholdMS = mission.DefaultThresholdMillis
	}
	if pc.Mission.PhaseLimit == 0 {
		pc.Mission.PhaseLimit = mission.DefaultPhaseLimit
	}
	if pc.Mission.RetryLimit == 0 {
		pc.Mission.RetryLimit = 10
	}
	sim := &pc.Simulator
	if sim.BudgetMS == 0 {
		sim.BudgetMS = 300000
	}
	if sim.SpeedMPS == 0 {
		sim.SpeedMPS = 0.1
	}
	if sim.ActiveMin == 0 {
		sim.ActiveMin = 1
	}
	if sim.ActiveMax == 0 {
		sim.ActiveMax = 2
	}
	if sim.MarkerViewM == 0 {
		sim.MarkerViewM = 0.6
	}
}

func (pc ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if len(pc.Waypoints) == 0 {
		return fmt.Errorf("waypoints must not be empty")
	}
	for i, wp := range pc.Waypoints {
		if err := wp.validate(); err != nil {
			return fmt.Errorf("waypoints[%d]: %w", i, err)
		}
	}
	graph, err := pc.graph()
	if err != nil {
		return err
	}
	m := pc.Mission
	for name, id := range map[string]int{
		"mission.marker_target":   m.MarkerTarget,
		"mission.marker_waypoint": m.MarkerWaypoint,
		"mission.goal":            m.Goal,
	} {
		if id == 0 {
			return fmt.Errorf("%s is required", name)
		}
		if !graph.Has(id) {
			return fmt.Errorf("%s: waypoint %d not declared", name, id)
		}
	}
	if m.ThresholdMS < 0 || m.PhaseLimit < 0 || m.RetryLimit < 0 {
		return fmt.Errorf("mission limits must be positive")
	}
	for region, targets := range pc.Regions {
		if !graph.Has(region) {
			return fmt.Errorf("regions[%d]: region waypoint not declared", region)
		}
		for _, id := range targets {
			if !graph.Has(id) {
				return fmt.Errorf("regions[%d]: target %d not declared", region, id)
			}
		}
	}
	if len(pc.Scores) == 0 {
		return fmt.Errorf("scores must not be empty")
	}
	for id, score := range pc.Scores {
		if !graph.Has(id) {
			return fmt.Errorf("scores[%d]: target not declared", id)
		}
		if score < 0 {
			return fmt.Errorf("scores[%d]: must be >= 0", id)
		}
	}
	if err := pc.Simulator.validate(); err != nil {
		return fmt.Errorf("simulator: %w", err)
	}
	return nil
}

func (wp WaypointEntry) validate() error {
	if len(wp.Position) != 3 {
		return fmt.Errorf("waypoint %d: position needs 3 values", wp.ID)
	}
	if len(wp.Orientation) != 4 {
		return fmt.Errorf("waypoint %d: orientation needs 4 values", wp.ID)
	}
	var norm float64
	for _, v := range wp.Orientation {
		norm += v * v
	}
	if math.Abs(math.Sqrt(norm)-1) > 0.01 {
		return fmt.Errorf("waypoint %d: orientation is not a unit quaternion", wp.ID)
	}
	return nil
}

func (wp WaypointEntry) record() waypoint.Record {
	return waypoint.Record{
		ID: wp.ID,
		Pose: waypoint.Pose{
			Position: waypoint.Point{X: wp.Position[0], Y: wp.Position[1], Z: wp.Position[2]},
			Orientation: waypoint.Quaternion{
				X: wp.Orientation[0], Y: wp.Orientation[1], Z: wp.Orientation[2], W: wp.Orientation[3],
			},
		},
		ParentID: wp.Parent,
	}
}

func (pc ProjectConfig) graph() (*waypoint.Graph, error) {
	records := make([]waypoint.Record, 0, len(pc.Waypoints))
	for _, wp := range pc.Waypoints {
		records = append(records, wp.record())
	}
	return waypoint.NewGraph(records)
}

func (s SimulatorSettings) validate() error {
	if s.BudgetMS <= 0 {
		return fmt.Errorf("budget_ms must be > 0")
	}
	if s.SpeedMPS <= 0 {
		return fmt.Errorf("speed_mps must be > 0")
	}
	if s.FailureRate < 0 || s.FailureRate >= 1 {
		return fmt.Errorf("failure_rate must be in [0, 1)")
	}
	if s.ActiveMin < 0 || s.ActiveMax < s.ActiveMin {
		return fmt.Errorf("active_min/active_max out of order")
	}
	return nil
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0o644)
}
