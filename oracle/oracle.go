// Package oracle abstracts the flight simulation backend that executes a
// scenario and reports the flown trajectory. The generator treats it as a
// black box: one capability interface, one implementation per backend,
// selected once at startup by configuration.
package oracle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"palm/mission"
)

// Run holds the artifacts of one simulated scenario execution.
type Run struct {
	Trajectory *mission.Trajectory
	// LogFile points at the raw trajectory log produced by the backend.
	LogFile string
}

// Oracle executes scenarios against a simulation backend and measures the
// resulting trajectories. Execute is the expensive call: it may spawn a
// subprocess, a container, or a remote job, and blocks until the flight
// completes or ctx is done.
type Oracle interface {
	Execute(ctx context.Context, m *mission.Mission, obstacles []mission.Obstacle) (*Run, error)
	MinDistance(t *mission.Trajectory, obstacles []mission.Obstacle) float64
	Plot(m *mission.Mission, run *Run, obstacles []mission.Obstacle) (string, error)
}

// Config selects and configures a backend.
type Config struct {
	// Backend is one of "local", "docker" or "http".
	Backend string `mapstructure:"backend"`
	// Command is the simulator binary for the local backend.
	Command string `mapstructure:"command"`
	// Args are extra arguments passed to the simulator on every run.
	Args []string `mapstructure:"args"`
	// Image is the container image for the docker backend.
	Image string `mapstructure:"image"`
	// URL is the base endpoint of the remote execution service.
	URL string `mapstructure:"url"`
	// WorkDir is where scenario inputs and trajectory logs are written.
	WorkDir string `mapstructure:"workdir"`
	// Timeout bounds a single execution; zero means no limit.
	Timeout time.Duration `mapstructure:"timeout"`
}

// New builds the oracle selected by the config.
func New(cfg Config) (Oracle, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "local":
		return NewLocal(cfg), nil
	case "docker":
		return NewDocker(cfg), nil
	case "http":
		return NewRemote(cfg), nil
	default:
		return nil, fmt.Errorf("unknown oracle backend %q", cfg.Backend)
	}
}

// measurer provides the clearance computation shared by all backends.
type measurer struct{}

func (measurer) MinDistance(t *mission.Trajectory, obstacles []mission.Obstacle) float64 {
	return t.MinDistanceTo(obstacles)
}
