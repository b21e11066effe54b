package mcts

import (
	"math"
	"sort"
)

// TAG implements Threshold Ascent on Graphs: a global
// threshold tau equal to the boundary of the pooled top-k lowest scores
// observed across a node's live children, scored by (evaluations below
// tau)/visits plus an exploration term. This pools per-edge TopK buffers
// rather than maintaining a single subtree-wide buffer, an approximation
// noted in DESIGN.md; it never diverges from the policy's intent of
// favouring edges that keep producing top-tier scores.
type TAG struct {
	TopK      int
	Threshold float64 // quantile position within the pooled top-k buffer
	Delta     float64
}

// SelectChild implements TreePolicy.
func (p TAG) SelectChild(parent *Node, live []*Edge) (*Edge, error) {
	if len(live) == 0 {
		return nil, errNoLiveEdges
	}
	for _, e := range live {
		if e.Stats().Visits == 0 {
			return e, nil
		}
	}

	tau := p.threshold(live)
	n := totalVisits(live)
	logN := math.Log(math.Max(n, 1))

	var best *Edge
	var bestScore float64
	for _, e := range live {
		s := e.Stats()
		visits := float64(s.Visits) + float64(e.VirtualLoss())
		below := countBelow(s.TopK, tau)
		score := float64(below)/visits + p.Delta*math.Sqrt(logN/visits)
		if best == nil || score > bestScore {
			best, bestScore = e, score
		}
	}
	return best, nil
}

// threshold pools every live edge's top-k buffer and returns the value at
// the configured quantile position, the boundary tau.
func (p TAG) threshold(live []*Edge) float64 {
	var pooled []float64
	for _, e := range live {
		pooled = append(pooled, e.Stats().TopK...)
	}
	if len(pooled) == 0 {
		return math.Inf(1)
	}
	// pooled is the concatenation of already-sorted per-edge buffers;
	// a full sort keeps this simple since k is small in practice.
	sort.Float64s(pooled)
	idx := int(p.Threshold * float64(len(pooled)-1))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(pooled) {
		idx = len(pooled) - 1
	}
	return pooled[idx]
}

func countBelow(sorted []float64, tau float64) int {
	n := 0
	for _, v := range sorted {
		if v <= tau {
			n++
		}
	}
	return n
}
