// Package scenario models a test scenario under construction: an ordered
// obstacle list plus the trajectory cached from its last simulation. States
// are immutable per branch; every producing operation deep-copies, so
// sibling branches in the search tree never alias each other.
package scenario

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"

	"palm/geometry"
	"palm/mission"
	"palm/oracle"
)

const (
	// MinReward is returned for unevaluable or empty scenarios.
	MinReward = 0.0
	// MaxDistance is the clearance reported alongside MinReward.
	MaxDistance = 5.0

	// coverageSubdivisions controls the circle-covering resolution used
	// for obstacle intersection tests.
	coverageSubdivisions = 4
)

// Params configures obstacle placement for a scenario.
type Params struct {
	// MaxObstacles bounds the scenario; a state is terminal once reached.
	MaxObstacles int
	// Bounds is the area obstacles may be placed in.
	Bounds geometry.Bounds
	// MinSize documents the smallest obstacle the simulator accepts; the
	// sampling itself is radius-driven and does not enforce it.
	MinSize mission.Size
	// MaxSize caps obstacle dimensions; generated obstacles use its height.
	MaxSize mission.Size
	// Rand is the random source for all placement sampling. Seeded from
	// the clock when nil.
	Rand *rand.Rand
}

// DefaultParams returns the placement envelope of the PX4 avoidance case
// studies: a fixed area -40 < x < 30, 10 < y < 40 and obstacles up to
// 20x20x25 meters.
func DefaultParams() Params {
	return Params{
		MaxObstacles: 3,
		Bounds:       geometry.Bounds{MinX: -40, MaxX: 30, MinY: 10, MaxY: 40},
		MinSize:      mission.Size{L: 2, W: 2, H: 10},
		MaxSize:      mission.Size{L: 20, W: 20, H: 25},
	}
}

// State is one scenario snapshot owned by a search tree node.
type State struct {
	mission *mission.Mission
	oracle  oracle.Oracle
	params  Params
	rng     *rand.Rand

	scenario     []mission.Obstacle
	trajectory   *mission.Trajectory
	trajectory2D []geometry.Point
}

// NewState builds the initial scenario state for a mission, optionally
// pre-populated with obstacles (used by replay).
func NewState(m *mission.Mission, orc oracle.Oracle, params Params, obstacles ...mission.Obstacle) *State {
	rng := params.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(uint64(time.Now().UnixNano())))
	}
	return &State{
		mission:  m,
		oracle:   orc,
		params:   params,
		rng:      rng,
		scenario: append([]mission.Obstacle(nil), obstacles...),
	}
}

// Len returns the number of obstacles placed so far.
func (s *State) Len() int {
	return len(s.scenario)
}

// Obstacles returns a copy of the obstacle list in placement order.
func (s *State) Obstacles() []mission.Obstacle {
	return append([]mission.Obstacle(nil), s.scenario...)
}

// MaxObstacles returns the scenario's terminal obstacle bound.
func (s *State) MaxObstacles() int {
	return s.params.MaxObstacles
}

// IsTerminal reports whether the scenario holds its maximum obstacle count.
func (s *State) IsTerminal() bool {
	return len(s.scenario) >= s.params.MaxObstacles
}

// Equal compares two states by their obstacle sets; placement order does
// not matter.
func (s *State) Equal(other *State) bool {
	if len(s.scenario) != len(other.scenario) {
		return false
	}
	keys := make(map[string]int, len(s.scenario))
	for _, o := range s.scenario {
		keys[o.Key()]++
	}
	for _, o := range other.scenario {
		if keys[o.Key()] == 0 {
			return false
		}
		keys[o.Key()]--
	}
	return true
}

// clone deep-copies the state: obstacle list and trajectory cache are
// duplicated so branches never share mutable containers.
func (s *State) clone() *State {
	next := &State{
		mission:      s.mission,
		oracle:       s.oracle,
		params:       s.params,
		rng:          s.rng,
		scenario:     append([]mission.Obstacle(nil), s.scenario...),
		trajectory2D: append([]geometry.Point(nil), s.trajectory2D...),
	}
	if s.trajectory != nil {
		next.trajectory = &mission.Trajectory{
			Positions: append([]mission.Vec3(nil), s.trajectory.Positions...),
		}
	}
	return next
}

// footprints returns the horizontal footprint of every placed obstacle.
func (s *State) footprints() []geometry.Rect {
	rects := make([]geometry.Rect, len(s.scenario))
	for i, o := range s.scenario {
		rects[i] = o.Rect()
	}
	return rects
}

// NextState returns a copy of the state with one newly generated obstacle
// appended, or an unmodified copy when no feasible placement exists.
func (s *State) NextState() *State {
	obstacle, ok := s.generate()
	next := s.clone()
	if ok {
		next.scenario = append(next.scenario, obstacle)
	}
	return next
}

// generate samples a new obstacle near a random trajectory point inside
// the placement bounds. The first obstacle is biased toward the early
// flight segment: only trajectory points in the first sixth of the
// bounds' vertical span are considered.
func (s *State) generate() (mission.Obstacle, bool) {
	if len(s.trajectory2D) == 0 {
		return mission.Obstacle{}, false
	}

	earlyCutoff := s.params.Bounds.MinY + (s.params.Bounds.MaxY-s.params.Bounds.MinY)/6
	var candidates []geometry.Point
	for _, p := range s.trajectory2D {
		if len(s.scenario) == 0 && p.Y > earlyCutoff {
			break
		}
		if s.params.Bounds.Contains(p) {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return mission.Obstacle{}, false
	}
	candidate := candidates[s.rng.Intn(len(candidates))]

	var footprint geometry.Rect
	if len(s.scenario) == 0 {
		// No obstacles yet: the whole distance to the boundary is free.
		radius := geometry.BoundaryDistance(candidate, s.params.Bounds)
		footprint = geometry.RandomRectangle(s.rng, candidate.X, candidate.Y, radius)
	} else {
		var ok bool
		footprint, ok = geometry.RandomNonintersectingRect(
			s.rng, candidate, s.params.Bounds, s.footprints(), coverageSubdivisions)
		if !ok {
			return mission.Obstacle{}, false
		}
	}
	return mission.NewObstacle(footprint, s.params.MaxSize.H), true
}

// ModifyState returns a copy of the state with its last obstacle pulled
// toward the flight path via the projection modification.
func (s *State) ModifyState() *State {
	return s.projectionModification(s.clone())
}

// projectionModification moves the last obstacle to the midpoint between
// its center and the nearest trajectory point, re-samples its footprint
// inside the maximal feasible circle there (capped at half the distance to
// the path so the path itself stays clear), and aligns the long side
// across the flight direction. Falls back to randomizing the rotation in
// place when no feasible region exists.
func (s *State) projectionModification(modified *State) *State {
	last := modified.scenario[len(modified.scenario)-1]
	center := geometry.Point{X: last.Position.X, Y: last.Position.Y}
	closest, pathDistance, angle := geometry.ClosestPoint(modified.trajectory2D, center)

	newCenter := geometry.Point{
		X: (closest.X + center.X) / 2,
		Y: (closest.Y + center.Y) / 2,
	}

	modified.scenario = modified.scenario[:len(modified.scenario)-1]
	var covering []geometry.Circle
	for _, rect := range modified.footprints() {
		covering = append(covering, geometry.CircleCoverage(rect, coverageSubdivisions)...)
	}

	circle, ok := geometry.RandomNonintersectingCircle(s.rng, newCenter, s.params.Bounds, covering)
	if !ok {
		modified.scenario = append(modified.scenario, last)
		return s.randomRotationModification(modified)
	}

	radius := math.Min(circle.Radius, pathDistance/2)
	sampled := geometry.RandomRectangle(s.rng, circle.X, circle.Y, radius)

	long := math.Max(sampled.L, sampled.W)
	short := math.Min(sampled.L, sampled.W)
	footprint := geometry.Rect{X: sampled.X, Y: sampled.Y}
	if angle > 90 {
		footprint.L, footprint.W, footprint.R = short, long, angle-90
	} else {
		footprint.L, footprint.W, footprint.R = long, short, angle
	}

	modified.scenario = append(modified.scenario, mission.NewObstacle(footprint, s.params.MaxSize.H))
	return modified
}

// randomRotationModification replaces the last obstacle with a copy at a
// fresh random rotation, keeping its position and footprint size.
func (s *State) randomRotationModification(modified *State) *State {
	last := modified.scenario[len(modified.scenario)-1]
	footprint := geometry.Rect{
		X: last.Position.X,
		Y: last.Position.Y,
		L: last.Size.L,
		W: last.Size.W,
		R: s.rng.Float64() * 90,
	}
	modified.scenario[len(modified.scenario)-1] = mission.NewObstacle(footprint, s.params.MaxSize.H)
	return modified
}

// RandomReplaceLast returns a copy of the state whose last obstacle is
// replaced by a fresh non-intersecting rectangle at a random trajectory
// point. It is an alternative refinement strategy to ModifyState; the
// copy is returned unchanged when no feasible placement exists.
func (s *State) RandomReplaceLast() *State {
	modified := s.clone()

	var candidates []geometry.Point
	for _, p := range s.trajectory2D {
		if s.params.Bounds.Contains(p) {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return modified
	}
	candidate := candidates[s.rng.Intn(len(candidates))]

	footprint, ok := geometry.RandomNonintersectingRect(
		s.rng, candidate, s.params.Bounds, s.footprints(), coverageSubdivisions)
	if !ok {
		return modified
	}
	modified.scenario[len(modified.scenario)-1] = mission.NewObstacle(footprint, s.params.MaxSize.H)
	return modified
}

// Reward executes the scenario against the oracle and scores it. The
// returned reward is the negative minimum clearance over all obstacles, so
// greater reward means closer to collision. Oracle failures and empty
// scenarios yield the degenerate (MinReward, MaxDistance) pair instead of
// an error: an unevaluable scenario is treated as safe, never as fatal.
func (s *State) Reward(ctx context.Context) (float64, float64, *TestCase) {
	tc := newTestCase(s.mission, s.scenario)

	run, err := s.oracle.Execute(ctx, s.mission, s.scenario)
	if err != nil {
		log.Warn().Err(err).Int("obstacles", len(s.scenario)).
			Msg("scenario execution failed, scoring as safe")
		return MinReward, MaxDistance, tc
	}
	s.trajectory = run.Trajectory
	s.trajectory2D = run.Trajectory.Projection2D()
	tc.LogFile = run.LogFile

	if len(s.scenario) == 0 {
		return MinReward, MaxDistance, tc
	}

	minDistance := math.Inf(1)
	for _, o := range s.scenario {
		d := s.oracle.MinDistance(run.Trajectory, []mission.Obstacle{o})
		minDistance = math.Min(minDistance, d)
	}
	tc.MinDistance = minDistance

	if plotFile, err := s.oracle.Plot(s.mission, run, s.scenario); err != nil {
		log.Warn().Err(err).Msg("plot generation failed")
	} else {
		tc.PlotFile = plotFile
	}

	return -minDistance, minDistance, tc
}

// LastObstacleIsBottleneck reports whether the overall minimum clearance
// is attained by the most recently placed obstacle. Refining any other
// obstacle would not move the bottleneck, so this gates sibling
// refinement during expansion.
func (s *State) LastObstacleIsBottleneck() bool {
	if len(s.scenario) == 0 || s.trajectory == nil {
		return false
	}

	minDistance := math.Inf(1)
	for _, o := range s.scenario {
		d := s.oracle.MinDistance(s.trajectory, []mission.Obstacle{o})
		minDistance = math.Min(minDistance, d)
	}
	lastDistance := s.oracle.MinDistance(s.trajectory, s.scenario[len(s.scenario)-1:])
	return minDistance == lastDistance
}

func (s *State) String() string {
	var b strings.Builder
	for _, o := range s.scenario {
		b.WriteString(o.String())
		b.WriteString("\n")
	}
	return b.String()
}

// Replay re-executes a saved obstacle list against the oracle and returns
// its measured clearance.
func Replay(ctx context.Context, m *mission.Mission, orc oracle.Oracle, params Params, obstacles []mission.Obstacle) (float64, *TestCase) {
	state := NewState(m, orc, params, obstacles...)
	_, minDistance, tc := state.Reward(ctx)
	return minDistance, tc
}
