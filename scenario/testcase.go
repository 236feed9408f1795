package scenario

import (
	"github.com/google/uuid"

	"palm/mission"
	"palm/oracle"
)

// TestCase is a realized scenario together with its simulation artifacts.
// One is created per simulated state; the search keeps only those whose
// clearance satisfies the acceptance criterion.
type TestCase struct {
	ID        string
	Mission   *mission.Mission
	Obstacles []mission.Obstacle

	// MinDistance is the minimum clearance measured during execution;
	// MaxDistance when the scenario was empty or could not be executed.
	MinDistance float64
	LogFile     string
	PlotFile    string
}

func newTestCase(m *mission.Mission, obstacles []mission.Obstacle) *TestCase {
	return &TestCase{
		ID:          uuid.NewString(),
		Mission:     m,
		Obstacles:   append([]mission.Obstacle(nil), obstacles...),
		MinDistance: MaxDistance,
	}
}

// SaveYAML persists the test case's scenario description.
func (tc *TestCase) SaveYAML(path string) error {
	return oracle.WriteScenario(path, tc.Mission, tc.Obstacles)
}
