package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"palm/mission"
)

// Remote delegates execution to an HTTP service fronting a simulation
// cluster. The service receives the mission and obstacle list as JSON and
// replies with the flown positions; the trajectory is mirrored into a
// local CSV log so downstream artifact handling is backend-agnostic.
type Remote struct {
	measurer
	baseURL string
	workDir string
	client  *http.Client
}

// NewRemote builds an oracle backed by a remote execution service.
func NewRemote(cfg Config) *Remote {
	return &Remote{
		baseURL: cfg.URL,
		workDir: cfg.WorkDir,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

type executeRequest struct {
	Mission   *mission.Mission   `json:"mission"`
	Obstacles []mission.Obstacle `json:"obstacles"`
}

type executeResponse struct {
	Positions [][3]float64 `json:"positions"`
}

func (r *Remote) Execute(ctx context.Context, m *mission.Mission, obstacles []mission.Obstacle) (*Run, error) {
	body, err := json.Marshal(executeRequest{Mission: m, Obstacles: obstacles})
	if err != nil {
		return nil, fmt.Errorf("failed to encode execution request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/execute", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build execution request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execution request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("execution service returned %d: %s", resp.StatusCode, payload)
	}

	var result executeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode execution response: %w", err)
	}
	if len(result.Positions) == 0 {
		return nil, fmt.Errorf("execution service returned an empty trajectory")
	}

	trajectory := &mission.Trajectory{}
	for _, p := range result.Positions {
		trajectory.Positions = append(trajectory.Positions, mission.Vec3{X: p[0], Y: p[1], Z: p[2]})
	}

	logFile, err := r.writeLog(trajectory)
	if err != nil {
		return nil, err
	}
	return &Run{Trajectory: trajectory, LogFile: logFile}, nil
}

// writeLog mirrors a remote trajectory into a local CSV log.
func (r *Remote) writeLog(t *mission.Trajectory) (string, error) {
	runDir := filepath.Join(r.workDir, "runs", uuid.NewString())
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create run directory: %w", err)
	}

	var buf bytes.Buffer
	for _, p := range t.Positions {
		fmt.Fprintf(&buf, "%g,%g,%g\n", p.X, p.Y, p.Z)
	}
	logFile := filepath.Join(runDir, "trajectory.csv")
	if err := os.WriteFile(logFile, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("failed to write trajectory log: %w", err)
	}
	return logFile, nil
}

type plotRequest struct {
	Mission   *mission.Mission   `json:"mission"`
	Obstacles []mission.Obstacle `json:"obstacles"`
	Positions [][3]float64       `json:"positions"`
}

func (r *Remote) Plot(m *mission.Mission, run *Run, obstacles []mission.Obstacle) (string, error) {
	req := plotRequest{Mission: m, Obstacles: obstacles}
	for _, p := range run.Trajectory.Positions {
		req.Positions = append(req.Positions, [3]float64{p.X, p.Y, p.Z})
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to encode plot request: %w", err)
	}

	resp, err := r.client.Post(r.baseURL+"/plot", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("plot request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("plot service returned %d: %s", resp.StatusCode, payload)
	}

	plotFile := filepath.Join(filepath.Dir(run.LogFile), "plot.png")
	f, err := os.Create(plotFile)
	if err != nil {
		return "", fmt.Errorf("failed to create plot file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		return "", fmt.Errorf("failed to save plot: %w", err)
	}
	return plotFile, nil
}
