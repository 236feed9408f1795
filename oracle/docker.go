package oracle

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"palm/mission"
)

// Docker runs the simulator inside a container. The run directory is bind
// mounted into the container so the scenario input and trajectory log
// cross the boundary as plain files, same contract as the local backend.
type Docker struct {
	measurer
	image   string
	args    []string
	workDir string
	timeout time.Duration
}

// NewDocker builds a container-backed oracle.
func NewDocker(cfg Config) *Docker {
	return &Docker{
		image:   cfg.Image,
		args:    cfg.Args,
		workDir: cfg.WorkDir,
		timeout: cfg.Timeout,
	}
}

func (d *Docker) Execute(ctx context.Context, m *mission.Mission, obstacles []mission.Obstacle) (*Run, error) {
	runDir, _, err := prepareRun(d.workDir, m, obstacles)
	if err != nil {
		return nil, err
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	absRunDir, err := filepath.Abs(runDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve run directory: %w", err)
	}
	absMission, err := filepath.Abs(m.File)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve mission file: %w", err)
	}

	args := []string{
		"run", "--rm",
		"-v", absRunDir + ":/io",
		"-v", absMission + ":/io/mission.yaml:ro",
		d.image,
	}
	args = append(args, d.args...)
	args = append(args,
		"--mission", "/io/mission.yaml",
		"--scenario", "/io/scenario.yaml",
		"--output", "/io",
	)
	log.Info().Str("image", d.image).Str("run", runDir).Msg("executing scenario in container")

	cmd := exec.CommandContext(ctx, "docker", args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("containerized run failed: %w: %s", err, output)
	}

	logFile := filepath.Join(runDir, "trajectory.csv")
	trajectory, err := ParseTrajectoryLog(logFile)
	if err != nil {
		return nil, err
	}
	return &Run{Trajectory: trajectory, LogFile: logFile}, nil
}

func (d *Docker) Plot(m *mission.Mission, run *Run, obstacles []mission.Obstacle) (string, error) {
	runDir, err := filepath.Abs(filepath.Dir(run.LogFile))
	if err != nil {
		return "", fmt.Errorf("failed to resolve run directory: %w", err)
	}

	cmd := exec.Command("docker", "run", "--rm",
		"-v", runDir+":/io",
		d.image, "plot",
		"--scenario", "/io/scenario.yaml",
		"--log", "/io/trajectory.csv",
		"--output", "/io/plot.png",
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("plot generation failed: %w: %s", err, output)
	}
	return filepath.Join(runDir, "plot.png"), nil
}
