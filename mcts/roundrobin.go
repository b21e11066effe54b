package mcts

import "sync"

// RoundRobin rotates uniformly through a node's live edges. It keeps one counter per node (by pointer identity) so
// concurrent rollouts through different nodes don't interfere.
type RoundRobin struct {
	mu       sync.Mutex
	counters map[*Node]int
}

// NewRoundRobin builds a RoundRobin policy with its own per-node state.
func NewRoundRobin() *RoundRobin { return &RoundRobin{counters: make(map[*Node]int)} }

// SelectChild implements TreePolicy.
func (p *RoundRobin) SelectChild(parent *Node, live []*Edge) (*Edge, error) {
	if len(live) == 0 {
		return nil, errNoLiveEdges
	}
	p.mu.Lock()
	i := p.counters[parent] % len(live)
	p.counters[parent]++
	p.mu.Unlock()
	return live[i], nil
}
