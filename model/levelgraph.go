package model

import (
	"fmt"

	"github.com/katalvlaran/lvlath/core"
	"github.com/katalvlaran/lvlath/dfs"
)

// LevelDag orders Levels by their nesting/sequencing dependency: an edge source -> target means target can only begin
// once source has fully retired (sequential levels, or a parent level
// that must drain its children first). The lower bound is the longest
// weighted path from any source to any sink, since that is the critical
// chain nothing can shortcut.
type LevelDag struct {
	g      *core.Graph
	levels map[string]Level
}

// NewLevelDag builds an empty level DAG.
func NewLevelDag() *LevelDag {
	return &LevelDag{
		g:      core.NewGraph(core.WithWeighted(), core.WithDirected(true)),
		levels: make(map[string]Level),
	}
}

// AddLevel registers a level as a vertex of the DAG.
func (d *LevelDag) AddLevel(l Level) error {
	if err := d.g.AddVertex(l.ID); err != nil {
		return fmt.Errorf("model: add level %s: %w", l.ID, err)
	}
	d.levels[l.ID] = l
	return nil
}

// AddEdge records that to cannot begin before from retires. The edge
// weight is from's own duration, so a longest-path search accumulates
// the critical chain's total duration.
func (d *LevelDag) AddEdge(from, to string) error {
	fl, ok := d.levels[from]
	if !ok {
		return fmt.Errorf("model: unknown level %s", from)
	}
	_, weight := fl.Duration()
	if _, err := d.g.AddEdge(from, to, int64(weight)); err != nil {
		return fmt.Errorf("model: add edge %s->%s: %w", from, to, err)
	}
	return nil
}

// FastBound computes the lower bound in nanosecond-equivalent abstract
// units: the longest path, where every edge charges its source level's
// duration and the path's last level adds its own, so each level on the
// path is charged once.
func (d *LevelDag) FastBound() (float64, error) {
	order, err := dfs.TopologicalSort(d.g)
	if err != nil {
		return 0, fmt.Errorf("model: level dag must be acyclic: %w", err)
	}

	// best[id] is the longest chain of durations retired before id begins.
	best := make(map[string]uint64, len(order))

	outgoing := make(map[string][]*core.Edge)
	for _, e := range d.g.Edges() {
		outgoing[e.From] = append(outgoing[e.From], e)
	}
	for _, id := range order {
		for _, e := range outgoing[id] {
			cand := best[id] + uint64(e.Weight)
			if cand > best[e.To] {
				best[e.To] = cand
			}
		}
	}

	var max uint64
	for _, id := range order {
		v := best[id]
		if lvl, ok := d.levels[id]; ok {
			_, w := lvl.Duration()
			v += w
		}
		if v > max {
			max = v
		}
	}
	return float64(max), nil
}
