package scenario

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"palm/geometry"
	"palm/mission"
	"palm/oracle"
)

// fakeOracle scripts trajectories without touching a simulator.
type fakeOracle struct {
	trajectory *mission.Trajectory
	execErr    error
	plotErr    error
	executions int
}

func (f *fakeOracle) Execute(ctx context.Context, m *mission.Mission, obstacles []mission.Obstacle) (*oracle.Run, error) {
	f.executions++
	if f.execErr != nil {
		return nil, f.execErr
	}
	return &oracle.Run{Trajectory: f.trajectory, LogFile: "trajectory.csv"}, nil
}

func (f *fakeOracle) MinDistance(t *mission.Trajectory, obstacles []mission.Obstacle) float64 {
	return t.MinDistanceTo(obstacles)
}

func (f *fakeOracle) Plot(m *mission.Mission, run *oracle.Run, obstacles []mission.Obstacle) (string, error) {
	if f.plotErr != nil {
		return "", f.plotErr
	}
	return "plot.png", nil
}

// straightTrajectory climbs through the placement area along x = 0.
func straightTrajectory() *mission.Trajectory {
	t := &mission.Trajectory{}
	for y := 0.0; y <= 45; y += 0.5 {
		t.Positions = append(t.Positions, mission.Vec3{X: 0, Y: y, Z: 5})
	}
	return t
}

func testParams(seed uint64) Params {
	params := DefaultParams()
	params.Rand = rand.New(rand.NewSource(seed))
	return params
}

func simulatedState(t *testing.T, orc oracle.Oracle, params Params, obstacles ...mission.Obstacle) *State {
	t.Helper()
	state := NewState(&mission.Mission{Name: "case-study"}, orc, params, obstacles...)
	state.Reward(context.Background())
	return state
}

func TestStateEquality(t *testing.T) {
	a := mission.NewObstacle(geometry.Rect{X: 0, Y: 20, L: 4, W: 2, R: 10}, 25)
	b := mission.NewObstacle(geometry.Rect{X: 10, Y: 30, L: 6, W: 3, R: 45}, 25)
	c := mission.NewObstacle(geometry.Rect{X: -5, Y: 15, L: 2, W: 2, R: 0}, 25)
	m := &mission.Mission{}
	orc := &fakeOracle{trajectory: straightTrajectory()}

	t.Run("permutation invariant", func(t *testing.T) {
		ab := NewState(m, orc, testParams(1), a, b)
		ba := NewState(m, orc, testParams(1), b, a)
		require.True(t, ab.Equal(ba), "States with the same obstacle set should be equal regardless of order")
	})

	t.Run("different obstacle counts differ", func(t *testing.T) {
		ab := NewState(m, orc, testParams(1), a, b)
		abc := NewState(m, orc, testParams(1), a, b, c)
		require.False(t, ab.Equal(abc))
		require.False(t, abc.Equal(ab))
	})

	t.Run("different obstacles differ", func(t *testing.T) {
		ab := NewState(m, orc, testParams(1), a, b)
		ac := NewState(m, orc, testParams(1), a, c)
		require.False(t, ab.Equal(ac))
	})
}

func TestStateTerminal(t *testing.T) {
	params := testParams(1)
	params.MaxObstacles = 2
	orc := &fakeOracle{trajectory: straightTrajectory()}
	a := mission.NewObstacle(geometry.Rect{X: 0, Y: 20, L: 4, W: 2}, 25)
	b := mission.NewObstacle(geometry.Rect{X: 10, Y: 30, L: 6, W: 3}, 25)

	require.False(t, NewState(&mission.Mission{}, orc, params, a).IsTerminal(),
		"One obstacle below the maximum should not be terminal")
	require.True(t, NewState(&mission.Mission{}, orc, params, a, b).IsTerminal(),
		"Reaching the maximum should be terminal")
}

func TestNextState(t *testing.T) {
	orc := &fakeOracle{trajectory: straightTrajectory()}

	t.Run("first obstacle lands in the early flight segment", func(t *testing.T) {
		state := simulatedState(t, orc, testParams(3))
		for i := 0; i < 50; i++ {
			next := state.NextState()
			require.Equal(t, 1, next.Len(), "A new obstacle should be appended")
			require.Equal(t, 0, state.Len(), "The original state should stay untouched")

			placed := next.Obstacles()[0]
			require.LessOrEqual(t, placed.Position.Y, 15.0,
				"The first obstacle should be biased toward the first sixth of the vertical span")
			require.Equal(t, 25.0, placed.Size.H, "Generated obstacles should use the maximum height")
		}
	})

	t.Run("later obstacles avoid existing ones", func(t *testing.T) {
		state := simulatedState(t, orc, testParams(4))
		withOne := state.NextState()
		withOne.Reward(context.Background())

		next := withOne.NextState()
		if next.Len() == withOne.Len() {
			t.Skip("no feasible placement for this seed")
		}
		obstacles := next.Obstacles()
		placed := obstacles[len(obstacles)-1]
		first := obstacles[0]
		for _, c := range geometry.CircleCoverage(first.Rect(), 4) {
			center := geometry.Point{X: placed.Position.X, Y: placed.Position.Y}
			_, d, _ := geometry.ClosestPoint([]geometry.Point{{X: c.X, Y: c.Y}}, center)
			require.Greater(t, d, c.Radius, "New obstacle center should stay clear of the existing covering")
		}
	})

	t.Run("no trajectory means no growth", func(t *testing.T) {
		state := NewState(&mission.Mission{}, orc, testParams(5))
		next := state.NextState()
		require.Equal(t, 0, next.Len(), "Without a cached trajectory no obstacle can be placed")
	})
}

func TestReward(t *testing.T) {
	ctx := context.Background()

	t.Run("reward is the negative minimum clearance", func(t *testing.T) {
		orc := &fakeOracle{trajectory: straightTrajectory()}
		near := mission.NewObstacle(geometry.Rect{X: 3, Y: 20, L: 2, W: 2, R: 0}, 25)
		far := mission.NewObstacle(geometry.Rect{X: 10, Y: 30, L: 2, W: 2, R: 0}, 25)
		state := NewState(&mission.Mission{}, orc, testParams(1), near, far)

		reward, minDistance, tc := state.Reward(ctx)
		require.InDelta(t, 2.0, minDistance, 1e-9, "Clearance should come from the nearest obstacle")
		require.Equal(t, -minDistance, reward, "Reward should be the negated clearance")
		require.Equal(t, minDistance, tc.MinDistance)
		require.Equal(t, "trajectory.csv", tc.LogFile)
		require.Equal(t, "plot.png", tc.PlotFile)
		require.Len(t, tc.Obstacles, 2)
	})

	t.Run("closer scenarios earn strictly greater reward", func(t *testing.T) {
		orc := &fakeOracle{trajectory: straightTrajectory()}
		nearer := NewState(&mission.Mission{}, orc, testParams(1),
			mission.NewObstacle(geometry.Rect{X: 2, Y: 20, L: 2, W: 2}, 25))
		farther := NewState(&mission.Mission{}, orc, testParams(1),
			mission.NewObstacle(geometry.Rect{X: 8, Y: 20, L: 2, W: 2}, 25))

		rewardNear, _, _ := nearer.Reward(ctx)
		rewardFar, _, _ := farther.Reward(ctx)
		require.Greater(t, rewardNear, rewardFar)
	})

	t.Run("oracle failure scores as safe", func(t *testing.T) {
		orc := &fakeOracle{execErr: errors.New("simulator crashed")}
		state := NewState(&mission.Mission{}, orc, testParams(1),
			mission.NewObstacle(geometry.Rect{X: 0, Y: 20, L: 2, W: 2}, 25))

		reward, minDistance, tc := state.Reward(ctx)
		require.Equal(t, MinReward, reward)
		require.Equal(t, MaxDistance, minDistance)
		require.NotNil(t, tc, "A test case is still produced for the unexecuted scenario")
	})

	t.Run("empty scenario scores as safe but caches the trajectory", func(t *testing.T) {
		orc := &fakeOracle{trajectory: straightTrajectory()}
		state := NewState(&mission.Mission{}, orc, testParams(1))

		reward, minDistance, _ := state.Reward(ctx)
		require.Equal(t, MinReward, reward)
		require.Equal(t, MaxDistance, minDistance)
		require.Equal(t, 1, orc.executions, "The empty scenario is still flown to obtain the trajectory")
		require.Equal(t, 1, state.NextState().Len(), "The cached trajectory should enable generation")
	})

	t.Run("plot failure does not change the score", func(t *testing.T) {
		orc := &fakeOracle{trajectory: straightTrajectory(), plotErr: errors.New("no display")}
		state := NewState(&mission.Mission{}, orc, testParams(1),
			mission.NewObstacle(geometry.Rect{X: 3, Y: 20, L: 2, W: 2}, 25))

		reward, _, tc := state.Reward(ctx)
		require.Negative(t, reward)
		require.Empty(t, tc.PlotFile)
	})
}

func TestLastObstacleIsBottleneck(t *testing.T) {
	orc := &fakeOracle{trajectory: straightTrajectory()}
	near := mission.NewObstacle(geometry.Rect{X: 3, Y: 20, L: 2, W: 2}, 25)
	far := mission.NewObstacle(geometry.Rect{X: 10, Y: 30, L: 2, W: 2}, 25)

	t.Run("true when the last obstacle is closest", func(t *testing.T) {
		state := simulatedState(t, orc, testParams(1), far, near)
		require.True(t, state.LastObstacleIsBottleneck())
	})

	t.Run("false when an earlier obstacle is closest", func(t *testing.T) {
		state := simulatedState(t, orc, testParams(1), near, far)
		require.False(t, state.LastObstacleIsBottleneck())
	})

	t.Run("false before simulation", func(t *testing.T) {
		state := NewState(&mission.Mission{}, orc, testParams(1), near)
		require.False(t, state.LastObstacleIsBottleneck())
	})
}

func TestModifyState(t *testing.T) {
	orc := &fakeOracle{trajectory: straightTrajectory()}

	t.Run("projection pulls the last obstacle toward the path", func(t *testing.T) {
		start := mission.NewObstacle(geometry.Rect{X: 20, Y: 25, L: 4, W: 2, R: 0}, 25)
		state := simulatedState(t, orc, testParams(2), start)

		modified := state.ModifyState()
		require.Equal(t, 1, modified.Len(), "Modification replaces, never adds")
		require.Equal(t, 1, state.Len(), "The original state should stay untouched")

		moved := modified.Obstacles()[0]
		// The nearest trajectory point is (0, 25); the new center is
		// sampled at the midpoint (10, 25).
		require.InDelta(t, 10.0, moved.Position.X, 1e-9)
		require.InDelta(t, 25.0, moved.Position.Y, 1e-9)
	})

	t.Run("long side aligns across the flight direction", func(t *testing.T) {
		start := mission.NewObstacle(geometry.Rect{X: 20, Y: 25, L: 4, W: 2, R: 0}, 25)
		state := simulatedState(t, orc, testParams(6), start)

		for i := 0; i < 20; i++ {
			moved := state.ModifyState().Obstacles()[0]
			// The projection toward (0, 25) points along negative x: the
			// angle is 180 degrees, so the length becomes the short side.
			require.LessOrEqual(t, moved.Size.L, moved.Size.W)
			require.InDelta(t, 90.0, moved.Position.R, 1e-9)
		}
	})
}

func TestRandomReplaceLast(t *testing.T) {
	orc := &fakeOracle{trajectory: straightTrajectory()}
	start := mission.NewObstacle(geometry.Rect{X: 20, Y: 25, L: 4, W: 2, R: 0}, 25)
	state := simulatedState(t, orc, testParams(9), start)

	modified := state.RandomReplaceLast()
	require.Equal(t, 1, modified.Len(), "Replacement keeps the obstacle count")
	require.Equal(t, start, state.Obstacles()[0], "The original state should stay untouched")
}
