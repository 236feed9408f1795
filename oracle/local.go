package oracle

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"palm/mission"
)

// Local runs the simulator binary as a subprocess. Each execution gets its
// own run directory: the scenario input is written there and the simulator
// is expected to leave a trajectory.csv behind.
type Local struct {
	measurer
	command string
	args    []string
	workDir string
	timeout time.Duration
}

// NewLocal builds a subprocess-backed oracle.
func NewLocal(cfg Config) *Local {
	return &Local{
		command: cfg.Command,
		args:    cfg.Args,
		workDir: cfg.WorkDir,
		timeout: cfg.Timeout,
	}
}

func (l *Local) Execute(ctx context.Context, m *mission.Mission, obstacles []mission.Obstacle) (*Run, error) {
	runDir, scenarioPath, err := prepareRun(l.workDir, m, obstacles)
	if err != nil {
		return nil, err
	}

	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	args := append(append([]string{}, l.args...),
		"--mission", m.File,
		"--scenario", scenarioPath,
		"--output", runDir,
	)
	log.Info().Str("command", l.command).Str("run", runDir).Msg("executing scenario")

	cmd := exec.CommandContext(ctx, l.command, args...)
	cmd.Dir = l.workDir
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("simulator run failed: %w: %s", err, output)
	}

	logFile := filepath.Join(runDir, "trajectory.csv")
	trajectory, err := ParseTrajectoryLog(logFile)
	if err != nil {
		return nil, err
	}
	return &Run{Trajectory: trajectory, LogFile: logFile}, nil
}

func (l *Local) Plot(m *mission.Mission, run *Run, obstacles []mission.Obstacle) (string, error) {
	runDir := filepath.Dir(run.LogFile)
	scenarioPath := filepath.Join(runDir, "scenario.yaml")
	plotFile := filepath.Join(runDir, "plot.png")

	cmd := exec.Command(l.command, "plot",
		"--scenario", scenarioPath,
		"--log", run.LogFile,
		"--output", plotFile,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("plot generation failed: %w: %s", err, output)
	}
	return plotFile, nil
}

// scenarioFile is the execution input handed to the simulator: the mission
// definition plus the obstacles placed by the generator.
type scenarioFile struct {
	Mission   *mission.Mission   `yaml:"mission"`
	Obstacles []mission.Obstacle `yaml:"obstacles"`
}

// prepareRun creates a fresh run directory under workDir and writes the
// scenario input into it.
func prepareRun(workDir string, m *mission.Mission, obstacles []mission.Obstacle) (string, string, error) {
	runDir := filepath.Join(workDir, "runs", uuid.NewString())
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create run directory: %w", err)
	}

	scenarioPath := filepath.Join(runDir, "scenario.yaml")
	if err := WriteScenario(scenarioPath, m, obstacles); err != nil {
		return "", "", err
	}
	return runDir, scenarioPath, nil
}

// WriteScenario serializes a mission plus obstacle list to a YAML file in
// the format the simulator consumes.
func WriteScenario(path string, m *mission.Mission, obstacles []mission.Obstacle) error {
	data, err := yaml.Marshal(scenarioFile{Mission: m, Obstacles: obstacles})
	if err != nil {
		return fmt.Errorf("failed to serialize scenario: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write scenario file: %w", err)
	}
	return nil
}

// ReadScenario loads a scenario file written by WriteScenario.
func ReadScenario(path string) (*mission.Mission, []mission.Obstacle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	var sf scenarioFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, nil, fmt.Errorf("failed to parse scenario file %s: %w", path, err)
	}
	return sf.Mission, sf.Obstacles, nil
}

// ParseTrajectoryLog reads a trajectory from a CSV log with one x,y,z row
// per sampled position. A header row is skipped if present.
func ParseTrajectoryLog(path string) (*mission.Trajectory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trajectory log: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse trajectory log %s: %w", path, err)
	}

	trajectory := &mission.Trajectory{}
	for i, row := range rows {
		if len(row) < 3 {
			return nil, fmt.Errorf("trajectory log %s: row %d has %d columns, want 3", path, i, len(row))
		}
		x, errX := strconv.ParseFloat(row[0], 64)
		y, errY := strconv.ParseFloat(row[1], 64)
		z, errZ := strconv.ParseFloat(row[2], 64)
		if errX != nil || errY != nil || errZ != nil {
			if i == 0 { // header
				continue
			}
			return nil, fmt.Errorf("trajectory log %s: malformed row %d", path, i)
		}
		trajectory.Positions = append(trajectory.Positions, mission.Vec3{X: x, Y: y, Z: z})
	}

	if len(trajectory.Positions) == 0 {
		return nil, fmt.Errorf("trajectory log %s contains no positions", path)
	}
	return trajectory, nil
}
