package searcher

import (
	"math"

	"palm/scenario"
)

// Node wraps one scenario state in the search tree. Visits and reward are
// mutated by backpropagation only; children grow during expansion and
// shrink only when a child is detached.
type Node struct {
	state    *scenario.State
	parent   *Node
	children []*Node
	visits   int
	reward   float64
	// score is the hazard tier assigned after simulation: 0 default,
	// 1 and 2 for near-miss severities, 5 for a recorded collision.
	score int
	id    int
}

// State returns the scenario state held by the node.
func (n *Node) State() *scenario.State {
	return n.state
}

// detach removes the node from its parent's children and clears the
// parent reference. A detached node keeps its subtree but is no longer
// reachable from the root, and backpropagation starting at it stops
// immediately after the node itself.
func (n *Node) detach() {
	if n.parent == nil {
		return
	}
	siblings := n.parent.children
	for i, sibling := range siblings {
		if sibling == n {
			n.parent.children = append(siblings[:i], siblings[i+1:]...)
			break
		}
	}
	n.parent = nil
}

// ucb1 scores a child for selection: mean reward plus an exploration
// bonus that shrinks with the child's visit count.
func ucb1(child *Node, parentVisits int, explorationRate float64) float64 {
	if child.visits == 0 {
		panic("cannot compute UCB1: child has 0 visits")
	}
	exploitation := child.reward / float64(child.visits)
	exploration := explorationRate * math.Sqrt(2*math.Log(float64(parentVisits))/float64(child.visits))
	return exploitation + exploration
}
