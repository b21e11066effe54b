package mcts

import "math"

// UCT is the Upper Confidence bound for Trees policy: edge
// score Q + c*sqrt(ln(N)/n), ties broken by the child's performance-model
// bound (smaller bound wins, since it is more likely to contain the
// optimum).
type UCT struct {
	C         float64
	Reduction ValueReduction
	UseMean   bool // true: reduce the mean observed score; false: reduce the best (Min)
}

// SelectChild implements TreePolicy.
func (p UCT) SelectChild(parent *Node, live []*Edge) (*Edge, error) {
	if len(live) == 0 {
		return nil, errNoLiveEdges
	}
	n := totalVisits(live)
	logN := math.Log(math.Max(n, 1))

	var best *Edge
	var bestScore float64
	for _, e := range live {
		s := e.Stats()
		visits := float64(s.Visits) + float64(e.VirtualLoss())
		if visits == 0 {
			// Unvisited edges are explored first, in registration order.
			return e, nil
		}
		value := s.Min
		if p.UseMean {
			value = s.Mean()
		}
		q := p.Reduction.Reduce(value)
		score := q + p.C*math.Sqrt(logN/visits)
		if best == nil || score > bestScore || (score == bestScore && betterBound(e, best)) {
			best, bestScore = e, score
		}
	}
	return best, nil
}

// betterBound breaks a score tie by preferring the edge whose child (once
// expanded) carries the smaller performance-model bound; an unexpanded
// edge has no bound yet and loses ties to an expanded sibling.
func betterBound(a, b *Edge) bool {
	ac := a.Child()
	bc := b.Child()
	if ac == nil || ac.Candidate.Bound == nil {
		return false
	}
	if bc == nil || bc.Candidate.Bound == nil {
		return true
	}
	return *ac.Candidate.Bound < *bc.Candidate.Bound
}
