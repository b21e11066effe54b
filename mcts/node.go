// Package mcts implements the single-threaded logical search tree driving
// candidate exploration: tree nodes with per-edge
// statistics, virtual loss for parallel rollouts, pluggable tree policies
// (UCT/TAG/RoundRobin/Bound/WeightedRandom) and node death tracking.
package mcts

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/ulysseB/Telamon/space"
)

// CauseOfDeath records why a node or edge was pruned from further search
type CauseOfDeath string

const (
	CauseNone       CauseOfDeath = ""
	CauseInfeasible CauseOfDeath = "infeasible"
	CausePerfModel  CauseOfDeath = "perf_model"
	CauseAllDead    CauseOfDeath = "all_children_dead"
)

// EdgeStats holds the evaluation statistics a tree policy scores an edge
// by. Every field is policy-agnostic; individual policies read only the
// ones they need.
type EdgeStats struct {
	Visits uint64
	Sum    float64
	Min    float64 // best (lowest) score observed; +Inf until first visit
	// TopK holds up to TAG's configured k lowest scores observed under
	// this edge, ascending, used to compute the global threshold.
	TopK []float64
}

func newEdgeStats() EdgeStats { return EdgeStats{Min: math.Inf(1)} }

// recordScore folds one evaluation result into the statistics.
func (s *EdgeStats) recordScore(score float64, topK int) {
	s.Visits++
	s.Sum += score
	if score < s.Min {
		s.Min = score
	}
	if topK <= 0 {
		return
	}
	i := sort.SearchFloat64s(s.TopK, score)
	s.TopK = append(s.TopK, 0)
	copy(s.TopK[i+1:], s.TopK[i:])
	s.TopK[i] = score
	if len(s.TopK) > topK {
		s.TopK = s.TopK[:topK]
	}
}

// Mean returns the average score observed, or +Inf if never visited.
func (s EdgeStats) Mean() float64 {
	if s.Visits == 0 {
		return math.Inf(1)
	}
	return s.Sum / float64(s.Visits)
}

// Edge is one outgoing transition from a Node: applying Action reaches
// Child, which is nil (a stub) until expanded.
type Edge struct {
	Action Action

	mu           sync.Mutex
	child        *Node
	stats        EdgeStats
	virtualLoss  int64
	dead         bool
	causeOfDeath CauseOfDeath
}

// Action is the decision an edge applies to its parent's candidate to
// reach its child.
type Action = space.Action

// Child returns the edge's expanded node, or nil if it is still a stub.
func (e *Edge) Child() *Node {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.child
}

// Stats returns a snapshot of the edge's statistics, safe to read
// lock-free by policies that only need an approximate view.
func (e *Edge) Stats() EdgeStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.stats
	s.TopK = append([]float64(nil), e.stats.TopK...)
	return s
}

// VirtualLoss returns the edge's current virtual-loss count, added to a
// child's apparent visit count while a rollout is in flight so concurrent
// selections spread across different edges.
func (e *Edge) VirtualLoss() int64 { return atomic.LoadInt64(&e.virtualLoss) }

// AddVirtualLoss increments the in-flight rollout count.
func (e *Edge) AddVirtualLoss() { atomic.AddInt64(&e.virtualLoss, 1) }

// ClearVirtualLoss decrements the in-flight rollout count after a rollout
// completes and its score has been backpropagated.
func (e *Edge) ClearVirtualLoss() { atomic.AddInt64(&e.virtualLoss, -1) }

// IsDead reports whether this edge has been pruned from further search.
func (e *Edge) IsDead() (bool, CauseOfDeath) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dead, e.causeOfDeath
}

// Kill marks the edge dead with the given cause, idempotently.
func (e *Edge) Kill(cause CauseOfDeath) {
	e.mu.Lock()
	e.dead = true
	e.causeOfDeath = cause
	e.mu.Unlock()
}

func (e *Edge) setChild(n *Node) {
	e.mu.Lock()
	e.child = n
	e.mu.Unlock()
}

func (e *Edge) recordScore(score float64, topK int) {
	e.mu.Lock()
	e.stats.recordScore(score, topK)
	e.mu.Unlock()
}

// Node is one point in the logical search tree, holding the Candidate it
// represents and its outgoing edges. The root is immutable
// after creation; every other node is created once and
// mutated only through its edges' statistics.
type Node struct {
	Candidate *space.Candidate

	mu       sync.Mutex
	edges    []*Edge
	expanded bool
	dead     bool
	cause    CauseOfDeath
}

// NewNode wraps a Candidate as an unexpanded tree node.
func NewNode(c *space.Candidate) *Node { return &Node{Candidate: c} }

// Edges returns the node's outgoing edges, or nil if not yet expanded.
func (n *Node) Edges() []*Edge {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*Edge(nil), n.edges...)
}

// Expanded reports whether this node's children have been generated.
func (n *Node) Expanded() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.expanded
}

// setEdges installs the node's children the first time it is expanded.
// Idempotent: a concurrent duplicate expansion is silently dropped, since
// only the first one's edges matter.
func (n *Node) setEdges(edges []*Edge) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.expanded {
		return false
	}
	n.edges = edges
	n.expanded = true
	return true
}

// IsDead reports whether the subtree rooted here has been fully pruned.
func (n *Node) IsDead() (bool, CauseOfDeath) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.dead, n.cause
}

// killIfAllChildrenDead marks the node dead (cause CauseAllDead) once
// every outgoing edge is dead; a leaf node (no edges, fully constrained)
// is never auto-killed this way.
func (n *Node) killIfAllChildrenDead() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.dead || !n.expanded || len(n.edges) == 0 {
		return n.dead
	}
	for _, e := range n.edges {
		if dead, _ := e.IsDead(); !dead {
			return false
		}
	}
	n.dead = true
	n.cause = CauseAllDead
	return true
}
