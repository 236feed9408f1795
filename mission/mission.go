// Package mission holds the data model shared by the scenario generator
// and the execution backends: the mission definition loaded from a case
// study file, rectangular obstacles, and flown trajectories.
package mission

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Mission is the case study definition a scenario is executed against. It
// references the flight plan and simulation world understood by the
// simulator backend; the generator itself only ever threads it through.
type Mission struct {
	Name    string         `yaml:"name"`
	Plan    string         `yaml:"plan"`
	World   string         `yaml:"world"`
	Params  map[string]any `yaml:"params,omitempty"`
	SpeedUp float64        `yaml:"speedup,omitempty"`

	// File is the path the mission was loaded from, kept so backends can
	// hand the original definition to the simulator.
	File string `yaml:"-"`
}

// Load reads a mission definition from a YAML case study file.
func Load(path string) (*Mission, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mission file: %w", err)
	}

	var m Mission
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse mission file %s: %w", path, err)
	}
	m.File = path
	return &m, nil
}
