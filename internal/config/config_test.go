package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadProjectConfigDefaultsWhenMissing(t *testing.T) {
	projectDir := t.TempDir()
	cfg, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	if cfg.Project.Version != 1 {
		t.Fatalf("expected default version == 1, got %d", cfg.Project.Version)
	}
	plan := cfg.Plan()
	if plan.MarkerTarget != 4 || plan.MarkerWaypoint != 7 || plan.Goal != 8 {
		t.Fatalf("unexpected default plan %+v", plan)
	}
	if plan.ThresholdMillis != 80000 || plan.PhaseLimit != 3 {
		t.Fatalf("unexpected default limits %+v", plan)
	}
	if cfg.Project.Mission.RetryLimit != 10 {
		t.Fatalf("expected retry limit 10, got %d", cfg.Project.Mission.RetryLimit)
	}
	graph, err := cfg.Graph()
	if err != nil {
		t.Fatalf("graph: %v", err)
	}
	if graph.Len() != 9 {
		t.Fatalf("expected 9 waypoints, got %d", graph.Len())
	}
	parent, ok, err := graph.ParentOf(2)
	if err != nil || !ok || parent.ID != 1 {
		t.Fatalf("expected waypoint 2 parented to 1, got %+v ok=%v err=%v", parent, ok, err)
	}
	if got := cfg.Scores().Of(4); got != 15 {
		t.Fatalf("expected marker target score 15, got %d", got)
	}
	if adj, ok := cfg.Regions().Targets(5); !ok || len(adj) != 3 || adj[0] != 4 {
		t.Fatalf("unexpected region 5 targets %v", adj)
	}
	candidates := cfg.ActiveCandidates()
	want := []int{1, 2, 3, 4, 5, 6}
	if len(candidates) != len(want) {
		t.Fatalf("expected candidates %v, got %v", want, candidates)
	}
	for i := range want {
		if candidates[i] != want[i] {
			t.Fatalf("expected candidates %v, got %v", want, candidates)
		}
	}
}

func TestInitCartographerDirSeedsConfig(t *testing.T) {
	projectDir := t.TempDir()
	if err := InitCartographerDir(projectDir); err != nil {
		t.Fatalf("init: %v", err)
	}
	for _, dir := range []string{"logs", "reports"} {
		if info, err := os.Stat(filepath.Join(projectDir, CartographerDir, dir)); err != nil || !info.IsDir() {
			t.Fatalf("expected %s directory, err=%v", dir, err)
		}
	}
	path := filepath.Join(projectDir, CartographerDir, "config.yaml")
	if err := os.WriteFile(path, []byte("version: 1\n# edited\n"+defaultProjectConfigYAML[strings.Index(defaultProjectConfigYAML, "mission:"):]), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := InitCartographerDir(projectDir); err != nil {
		t.Fatalf("second init: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "# edited") {
		t.Fatalf("init must not overwrite an existing config")
	}
}

func TestLoadProjectConfigParsesYaml(t *testing.T) {
	projectDir := t.TempDir()
	dir := filepath.Join(projectDir, CartographerDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	configYAML := strings.TrimSpace(`
version: 1
mission:
  marker_target: 20
  marker_waypoint: 21
  goal: 30
  phase_limit: 2
waypoints:
  - {id: 10, position: [0, 0, 0], orientation: [0, 0, 0, 1]}
  - {id: 11, position: [1, 0, 0], orientation: [0, 0, 0, 1], parent: 10}
  - {id: 20, position: [2, 0, 0], orientation: [0, 0, 0, 1], parent: 10}
  - {id: 21, position: [3, 0, 0], orientation: [0, 0, 0, 1], parent: 10}
  - {id: 30, position: [4, 0, 0], orientation: [0, 0, 0, 1]}
regions:
  10: [11, 20]
scores:
  11: 3
  20: 9
simulator:
  seed: 7
`)
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(configYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	plan := cfg.Plan()
	if plan.Goal != 30 || plan.PhaseLimit != 2 || plan.ThresholdMillis != 80000 {
		t.Fatalf("unexpected plan %+v", plan)
	}
	if cfg.Project.Simulator.Seed != 7 || cfg.Project.Simulator.BudgetMS != 300000 {
		t.Fatalf("expected simulator defaults merged with seed, got %+v", cfg.Project.Simulator)
	}
	graph, err := cfg.Graph()
	if err != nil {
		t.Fatalf("graph: %v", err)
	}
	wp, err := graph.Get(21)
	if err != nil || wp.Pose.Position.X != 3 || wp.Pose.Orientation.W != 1 {
		t.Fatalf("unexpected waypoint 21: %+v err=%v", wp, err)
	}
}

func TestSeedEnvOverride(t *testing.T) {
	t.Setenv("CARTOGRAPHER_SEED", "1234")
	cfg, err := NewConfig(t.TempDir())
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	if cfg.Project.Simulator.Seed != 1234 {
		t.Fatalf("expected seed override, got %d", cfg.Project.Simulator.Seed)
	}
}

func TestLoadProjectConfigValidation(t *testing.T) {
	base := `
version: 1
mission: {marker_target: 2, marker_waypoint: 2, goal: 3}
scores: {2: 1}
`
	cases := map[string]string{
		"missing parent": base + `waypoints:
  - {id: 2, position: [0, 0, 0], orientation: [0, 0, 0, 1], parent: 9}
  - {id: 3, position: [0, 0, 0], orientation: [0, 0, 0, 1]}
`,
		"bad quaternion": base + `waypoints:
  - {id: 2, position: [0, 0, 0], orientation: [0, 0, 0, 2]}
  - {id: 3, position: [0, 0, 0], orientation: [0, 0, 0, 1]}
`,
		"short position": base + `waypoints:
  - {id: 2, position: [0, 0], orientation: [0, 0, 0, 1]}
  - {id: 3, position: [0, 0, 0], orientation: [0, 0, 0, 1]}
`,
		"unknown goal": `
version: 1
mission: {marker_target: 2, marker_waypoint: 2, goal: 99}
scores: {2: 1}
waypoints:
  - {id: 2, position: [0, 0, 0], orientation: [0, 0, 0, 1]}
`,
		"unknown region target": base + `regions: {2: [42]}
waypoints:
  - {id: 2, position: [0, 0, 0], orientation: [0, 0, 0, 1]}
  - {id: 3, position: [0, 0, 0], orientation: [0, 0, 0, 1]}
`,
		"failure rate": base + `simulator: {failure_rate: 1.5}
waypoints:
  - {id: 2, position: [0, 0, 0], orientation: [0, 0, 0, 1]}
  - {id: 3, position: [0, 0, 0], orientation: [0, 0, 0, 1]}
`,
	}
	for name, body := range cases {
		if _, err := parseProjectConfig([]byte(body)); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}
