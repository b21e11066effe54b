package mcts

import "math"

// TreePolicy selects which live edge to descend during tree selection;
// scores are folded back into the path's statistics by
// Tree.Backpropagate, not by the policy. Policies
// are stateless; all mutable state lives on the Edge/Node they score.
type TreePolicy interface {
	// SelectChild picks one live (not dead) edge among parent's children.
	// Policies that need the parent's visit count derive it from the
	// edges' statistics (see totalVisits).
	SelectChild(parent *Node, live []*Edge) (*Edge, error)
}

// ValueReduction is the monotone transform UCT applies to an edge's
// observed runtimes before combining it with the exploration term.
// Higher Q must always mean better, matching the UCT score
// being maximised while scores themselves are runtimes (lower is better).
type ValueReduction int

const (
	// Raw uses the value directly (negated, since UCT maximises and a
	// smaller runtime is better).
	Raw ValueReduction = iota
	// Reciprocal uses 1/value, so smaller runtimes score higher directly.
	Reciprocal
	// NegLog uses -log(value), compressing the dynamic range of very
	// large candidate runtimes.
	NegLog
)

// Reduce applies the transform to a runtime value (nanoseconds, > 0).
func (r ValueReduction) Reduce(value float64) float64 {
	switch r {
	case Reciprocal:
		if value <= 0 {
			return math.Inf(1)
		}
		return 1 / value
	case NegLog:
		if value <= 0 {
			return math.Inf(1)
		}
		return -math.Log(value)
	default: // Raw
		return -value
	}
}

// liveEdges filters out edges already known dead, the candidate pool any
// TreePolicy selects among.
func liveEdges(edges []*Edge) []*Edge {
	out := make([]*Edge, 0, len(edges))
	for _, e := range edges {
		if dead, _ := e.IsDead(); !dead {
			out = append(out, e)
		}
	}
	return out
}

// totalVisits sums visits plus in-flight virtual loss across edges, used
// as the parent visit count N in exploration terms.
func totalVisits(edges []*Edge) float64 {
	var n float64
	for _, e := range edges {
		s := e.Stats()
		n += float64(s.Visits) + float64(e.VirtualLoss())
	}
	return n
}
