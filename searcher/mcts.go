// Package searcher drives the Monte Carlo Tree Search over scenario
// states. Selection follows progressive widening with per-depth widening
// constants; expansion either refines a near-miss sibling or grows a new
// obstacle; rewards flow back to the root after every simulation. Nodes
// that turn out invalid or outright hazardous are detached from the tree,
// though collisions are still recorded as findings.
package searcher

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"

	"palm/scenario"
)

// Hazard thresholds on the measured minimum clearance, in meters.
const (
	// HardFailureDistance marks an actual collision.
	HardFailureDistance = 0.25
	// NearMissDistance marks the severe near-miss tier.
	NearMissDistance = 1.0
	// AcceptDistance is the widest clearance still kept as a finding.
	AcceptDistance = 1.5
)

// DefaultExplorationRate is the UCB1 constant 1/sqrt(2).
var DefaultExplorationRate = 1 / math.Sqrt2

// DefaultCList holds the per-depth progressive widening multipliers.
var DefaultCList = []float64{0.4, 0.5, 0.6, 0.7}

type Option func(m *MCTS)

// WithExplorationRate overrides the UCB1 exploration constant.
func WithExplorationRate(rate float64) Option {
	return func(m *MCTS) {
		if rate > 0 {
			m.explorationRate = rate
		}
	}
}

// WithAlpha overrides the progressive widening exponent.
func WithAlpha(alpha float64) Option {
	return func(m *MCTS) {
		if alpha > 0 {
			m.alpha = alpha
		}
	}
}

// WithCList overrides the per-depth widening multipliers. The list is
// indexed by obstacle count, so it needs one entry per non-terminal depth.
func WithCList(cList []float64) Option {
	return func(m *MCTS) {
		if len(cList) > 0 {
			m.cList = cList
		}
	}
}

// WithRand sets the random source used for sibling refinement choices.
func WithRand(rng *rand.Rand) Option {
	return func(m *MCTS) {
		if rng != nil {
			m.rng = rng
		}
	}
}

// MCTS owns the search tree rooted at the empty scenario and accumulates
// the accepted test cases.
type MCTS struct {
	root  *Node
	count int

	explorationRate float64
	alpha           float64
	cList           []float64
	rng             *rand.Rand

	testCases []*scenario.TestCase
}

// New builds a search tree over the given initial state. Panics when the
// widening list is shorter than the number of non-terminal depths, since
// selection would run off its end mid-search.
func New(initial *scenario.State, options ...Option) *MCTS {
	m := &MCTS{
		root:            &Node{state: initial},
		explorationRate: DefaultExplorationRate,
		alpha:           0.5,
		cList:           DefaultCList,
		rng:             rand.New(rand.NewSource(uint64(time.Now().UnixNano()))),
	}
	for _, option := range options {
		option(m)
	}
	if len(m.cList) < initial.MaxObstacles() {
		panic("widening C list must have at least one entry per obstacle depth")
	}
	return m
}

// Generate runs the search for budget iterations and returns the accepted
// test cases. The root's empty scenario is simulated once up front so its
// trajectory is cached before any expansion.
func (m *MCTS) Generate(ctx context.Context, budget int) []*scenario.TestCase {
	reward, _, _ := m.root.state.Reward(ctx)
	backpropagate(m.root, reward)

	for i := 0; i < budget; i++ {
		if ctx.Err() != nil {
			log.Warn().Int("iteration", i).Msg("search interrupted")
			break
		}
		m.search(ctx)
	}
	return m.testCases
}

// TestCases returns the findings accepted so far.
func (m *MCTS) TestCases() []*scenario.TestCase {
	return m.testCases
}

// search performs one iteration: select a node, simulate its scenario,
// classify and possibly detach it, record the finding, and backpropagate.
func (m *MCTS) search(ctx context.Context) {
	node := m.selectNode(m.root)
	if node == nil {
		return
	}

	reward, minDistance, testCase := node.state.Reward(ctx)
	m.count++

	clearance := math.Abs(minDistance)
	switch {
	case clearance < HardFailureDistance:
		node.score = 5
	case clearance <= NearMissDistance:
		node.score = 2
	case clearance <= AcceptDistance:
		node.score = 1
	}

	// Drop invalid branches (no reward despite obstacles) and collisions:
	// a colliding scenario is too hazardous to keep exploring from, even
	// though it is still recorded as a finding below.
	if (reward == scenario.MinReward && node.state.Len() != 0) || clearance < HardFailureDistance {
		node.detach()
	}

	if clearance <= AcceptDistance {
		log.Info().Int("node", node.id).Float64("min_distance", minDistance).
			Int("obstacles", node.state.Len()).Msg("accepted test case")
		m.testCases = append(m.testCases, testCase)
	}

	backpropagate(node, reward)
}

// selectNode descends from node while its state is non-terminal. At each
// depth the widening threshold C_list[depth] * visits^alpha decides
// between expanding here and descending to the best child: a young node
// is widened before the search deepens through it.
func (m *MCTS) selectNode(node *Node) *Node {
	for !node.state.IsTerminal() {
		depth := node.state.Len()
		threshold := m.cList[depth] * math.Pow(float64(node.visits), m.alpha)
		if float64(len(node.children)) <= threshold {
			return m.expand(node)
		}
		node = m.bestChild(node)
	}
	return node
}

// expand adds a child to node, preferring to refine a near-miss sibling
// whose last obstacle is the clearance bottleneck; otherwise it grows a
// new obstacle, retrying while the result duplicates an existing sibling.
// Returns nil when neither strategy produces a longer scenario.
func (m *MCTS) expand(node *Node) *Node {
	var tried []*scenario.State
	var candidates []*Node
	for _, child := range node.children {
		tried = append(tried, child.state)
		if (child.score == 1 || child.score == 2) && child.state.LastObstacleIsBottleneck() {
			candidates = append(candidates, child)
		}
	}

	var newState *scenario.State
	if len(candidates) > 0 {
		sibling := candidates[m.rng.Intn(len(candidates))]
		newState = sibling.state.ModifyState()
	} else {
		newState = node.state.NextState()
		for alreadyTried(tried, newState) && !newState.IsTerminal() {
			newState = node.state.NextState()
		}
	}

	if newState == nil || node.state.Len() == newState.Len() {
		return nil
	}

	m.count++
	child := &Node{state: newState, parent: node, id: m.count}
	node.children = append(node.children, child)
	return child
}

func alreadyTried(tried []*scenario.State, state *scenario.State) bool {
	for _, t := range tried {
		if state.Equal(t) {
			return true
		}
	}
	return false
}

// bestChild returns the child maximizing the UCB1 policy; ties go to the
// first maximizer. Panics on a childless node: selection only reaches
// here once the widening threshold guarantees children exist.
func (m *MCTS) bestChild(node *Node) *Node {
	if len(node.children) == 0 {
		panic("best child of a childless node")
	}

	best := node.children[0]
	bestScore := ucb1(best, node.visits, m.explorationRate)
	for _, child := range node.children[1:] {
		if score := ucb1(child, node.visits, m.explorationRate); score > bestScore {
			best = child
			bestScore = score
		}
	}
	return best
}

// backpropagate adds the reward and a visit to every node from node up to
// the root. A node detached during pruning has no parent anymore, so the
// walk ends right after updating the node itself.
func backpropagate(node *Node, reward float64) {
	for node != nil {
		node.visits++
		node.reward += reward
		node = node.parent
	}
}
