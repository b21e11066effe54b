package mcts

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/ulysseB/Telamon/space"
)

// BoundFunc computes a candidate's performance-model lower bound, wired in
// from the model package by the caller (mcts stays decoupled from model,
// mirroring model's own decoupling from space — see model/bound.go).
type BoundFunc func(c *space.Candidate) (float64, error)

// Tree is the single-threaded logical search tree: a
// shared structure many rollout goroutines select paths through
// concurrently, synchronised by per-node/per-edge locks rather than one
// global lock.
type Tree struct {
	root        *Node
	order       space.ChoiceOrder
	bound       BoundFunc
	policy      TreePolicy
	leaf        LeafOrder // frontier policy, nil falls back to the tree policy
	topK        int       // TAG's configured k, 0 disables top-k bookkeeping
	bestMu      sync.Mutex
	best        *float64
	bestUpdated func(score float64)
}

// NewTree builds a search tree rooted at an already-bounded root
// candidate.
func NewTree(root *space.Candidate, order space.ChoiceOrder, bound BoundFunc, policy TreePolicy, topK int) (*Tree, error) {
	if root.Bound == nil {
		b, err := bound(root)
		if err != nil {
			return nil, fmt.Errorf("mcts: root bound: %w", err)
		}
		root.Bound = &b
	}
	return &Tree{
		root:   NewNode(root),
		order:  order,
		bound:  bound,
		policy: policy,
		topK:   topK,
	}, nil
}

// Root returns the tree's root node.
func (t *Tree) Root() *Node { return t.root }

// SetLeafOrder installs the policy applied at the frontier: a node none
// of whose edges has been visited yet is descended through leaf instead
// of the tree policy. Call before the first
// Rollout.
func (t *Tree) SetLeafOrder(leaf LeafOrder) { t.leaf = leaf }

// selectFrontier picks among a frontier node's edges via the leaf order.
func (t *Tree) selectFrontier(live []*Edge) (*Edge, error) {
	actions := make([]space.Action, len(live))
	bounds := make([]*float64, len(live))
	for i, e := range live {
		actions[i] = e.Action
		if c := e.Child(); c != nil {
			bounds[i] = c.Candidate.Bound
		}
	}
	i, err := t.leaf.Pick(actions, bounds)
	if err != nil {
		return nil, err
	}
	return live[i], nil
}

// ErrDead is returned by Rollout when the path it would have taken is
// fully pruned (every edge from some ancestor to the frontier is dead).
var ErrDead = errors.New("mcts: subtree is dead")

// Rollout performs one selection-expansion-evaluation path from the root:
// descend via the tree policy (or the leaf order at unvisited frontier
// nodes), expanding nodes and materializing stub children on the way,
// until a fully constrained candidate is reached; then apply virtual loss
// along the path and return that candidate for the caller to hand to the
// evaluator. The caller must later call
// Backpropagate with the measured score.
func (t *Tree) Rollout() (*space.Candidate, []*Edge, error) {
	var path []*Edge
	node := t.root

	for {
		if node.Candidate.Space.IsConstrained() {
			for _, e := range path {
				e.AddVirtualLoss()
			}
			return node.Candidate, path, nil
		}

		edges, err := t.expand(node)
		if err != nil {
			return nil, nil, err
		}
		if len(edges) == 0 {
			// No candidate action survived expansion (e.g. every split
			// value was already infeasible): kill this node and report.
			node.killIfAllChildrenDead()
			t.propagateDeath(path)
			return nil, nil, ErrDead
		}

		live := liveEdges(edges)
		if len(live) == 0 {
			node.killIfAllChildrenDead()
			t.propagateDeath(path)
			return nil, nil, ErrDead
		}

		var edge *Edge
		if t.leaf != nil && totalVisits(live) == 0 {
			edge, err = t.selectFrontier(live)
		} else {
			edge, err = t.policy.SelectChild(node, live)
		}
		if err != nil {
			if errors.Is(err, errNoLiveEdges) {
				node.killIfAllChildrenDead()
				t.propagateDeath(path)
				return nil, nil, ErrDead
			}
			return nil, nil, err
		}

		child := edge.Child()
		if child == nil {
			child, err = t.materialize(node, edge)
			if err != nil {
				if dead, _ := edge.IsDead(); !dead {
					edge.Kill(CauseInfeasible)
				}
				t.propagateDeath(path)
				return nil, nil, fmt.Errorf("mcts: %w: %v", ErrDead, err)
			}
		}

		path = append(path, edge)
		node = child
	}
}

// expand generates (and caches) a node's outgoing edges from the next
// undetermined choice, one edge per candidate action.
func (t *Tree) expand(node *Node) ([]*Edge, error) {
	if node.Expanded() {
		return node.Edges(), nil
	}
	_, actions, ok, err := space.Enumerate(node.Candidate.Space.Store(), t.order)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Already fully constrained; Rollout's caller checked this, but a
		// concurrent expansion could race here harmlessly.
		node.setEdges(nil)
		return nil, nil
	}
	edges := make([]*Edge, len(actions))
	for i, a := range actions {
		edges[i] = &Edge{Action: a, stats: newEdgeStats()}
	}
	node.setEdges(edges)
	return node.Edges(), nil
}

// materialize applies an edge's action, computes the resulting
// candidate's bound, prunes it dead if the bound already exceeds the
// current best, and installs it as the edge's child.
func (t *Tree) materialize(parent *Node, edge *Edge) (*Node, error) {
	child, err := parent.Candidate.Apply(edge.Action)
	if err != nil {
		return nil, err
	}
	b, err := t.bound(child)
	if err != nil {
		return nil, err
	}
	child.Bound = &b
	if best, ok := t.currentBest(); ok && b > best {
		edge.Kill(CausePerfModel)
		return nil, fmt.Errorf("mcts: bound %v exceeds best %v", b, best)
	}
	n := NewNode(child)
	edge.setChild(n)
	return n, nil
}

// propagateDeath walks a rollout path backwards, re-checking each
// ancestor node for the all-children-dead condition once one of its
// descendants has just died.
func (t *Tree) propagateDeath(path []*Edge) {
	for _, e := range path {
		e.ClearVirtualLoss()
	}
	for i := len(path) - 1; i >= 0; i-- {
		c := path[i].Child()
		if c == nil || !c.killIfAllChildrenDead() {
			break
		}
	}
}

// Backpropagate folds an evaluation result back along the rollout path:
// updates every edge's statistics, clears virtual loss,
// and updates the tree-wide best score if this one improves on it.
func (t *Tree) Backpropagate(path []*Edge, score float64) {
	for _, e := range path {
		e.recordScore(score, t.topK)
		e.ClearVirtualLoss()
	}
	t.updateBest(score)
}

func (t *Tree) updateBest(score float64) {
	t.bestMu.Lock()
	defer t.bestMu.Unlock()
	if t.best == nil || score < *t.best {
		v := score
		t.best = &v
		if t.bestUpdated != nil {
			t.bestUpdated(score)
		}
	}
}

// currentBest returns the best score backpropagated so far, or ok=false
// if no evaluation has completed yet.
func (t *Tree) currentBest() (float64, bool) {
	t.bestMu.Lock()
	defer t.bestMu.Unlock()
	if t.best == nil {
		return 0, false
	}
	return *t.best, true
}

// CurrentBest exposes currentBest for tree policies constructed outside
// the package (WeightedRandom.CurrentBest, WeightedRandomLeafOrder).
func (t *Tree) CurrentBest() (float64, bool) { return t.currentBest() }

// SetBestUpdated installs a callback invoked (under the best-score lock)
// whenever Backpropagate records a new best score.
func (t *Tree) SetBestUpdated(f func(score float64)) { t.bestUpdated = f }

// FailScore is the score backpropagated for a candidate the evaluator
// could not measure.
var FailScore = math.Inf(1)
