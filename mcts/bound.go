package mcts

import "math/rand"

// Bound always descends into the live child with the smallest
// performance-model bound. An edge whose child is not yet
// expanded has no bound to compare; it is treated as the most promising
// (unexplored) and picked first, matching the UCT "visit every child
// once" behaviour.
type Bound struct{}

// SelectChild implements TreePolicy.
func (Bound) SelectChild(parent *Node, live []*Edge) (*Edge, error) {
	if len(live) == 0 {
		return nil, errNoLiveEdges
	}
	var best *Edge
	var bestBound float64
	for _, e := range live {
		c := e.Child()
		if c == nil || c.Candidate.Bound == nil {
			return e, nil
		}
		if best == nil || *c.Candidate.Bound < bestBound {
			best, bestBound = e, *c.Candidate.Bound
		}
	}
	return best, nil
}

// WeightedRandom draws a live child at random, weighted inversely to its
// performance-model bound, with a hard cutoff excluding any child whose
// bound exceeds 2x the current best known score.
type WeightedRandom struct {
	Rng *rand.Rand
	// CurrentBest is the best evaluated score seen anywhere in the tree
	// so far; a nil func, or ok=false (not yet known), disables the cutoff.
	CurrentBest func() (float64, bool)
}

// SelectChild implements TreePolicy.
func (p WeightedRandom) SelectChild(parent *Node, live []*Edge) (*Edge, error) {
	if len(live) == 0 {
		return nil, errNoLiveEdges
	}
	var cutoff float64
	hasCutoff := false
	if p.CurrentBest != nil {
		if best, ok := p.CurrentBest(); ok {
			cutoff, hasCutoff = 2*best, true
		}
	}

	type candidate struct {
		edge   *Edge
		weight float64
	}
	var pool []candidate
	var unexpanded []*Edge
	for _, e := range live {
		c := e.Child()
		if c == nil || c.Candidate.Bound == nil {
			unexpanded = append(unexpanded, e)
			continue
		}
		b := *c.Candidate.Bound
		if hasCutoff && b > cutoff {
			continue
		}
		w := 1.0
		if b > 0 {
			w = 1 / b
		}
		pool = append(pool, candidate{edge: e, weight: w})
	}
	if len(unexpanded) > 0 {
		return unexpanded[p.rng().Intn(len(unexpanded))], nil
	}
	if len(pool) == 0 {
		// Every live child was cut off; fall back to the full live set
		// rather than stalling the search.
		return live[p.rng().Intn(len(live))], nil
	}

	var total float64
	for _, c := range pool {
		total += c.weight
	}
	r := p.rng().Float64() * total
	for _, c := range pool {
		if r < c.weight {
			return c.edge, nil
		}
		r -= c.weight
	}
	return pool[len(pool)-1].edge, nil
}

func (p WeightedRandom) rng() *rand.Rand {
	if p.Rng != nil {
		return p.Rng
	}
	return defaultRng
}

// defaultRng backs WeightedRandom/LeafOrder when the caller doesn't supply
// a seeded generator; package-level so repeated fallback calls still
// advance a single sequence instead of restarting it.
var defaultRng = rand.New(rand.NewSource(1))
