package config

import (
	"os"
	"strconv"
	"strings"
)

// applyEnvOverrides lets CARTOGRAPHER_SEED pin the simulator's random source.
func (s *SimulatorSettings) applyEnvOverrides() {
	if s == nil {
		return
	}
	if value := strings.TrimSpace(os.Getenv("CARTOGRAPHER_SEED")); value != "" {
		if seed, err := strconv.ParseInt(value, 10, 64); err == nil {
			s.Seed = seed
		}
	}
}
