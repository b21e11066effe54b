package model

import (
	"fmt"

	"github.com/ulysseB/Telamon/ir"
)

// DeviceModel supplies the hardware-dependent numbers the bound estimator
// cannot know on its own: how much
// pressure one instruction imposes, and which dimensions are vectorized
// so their trip count can be excluded from thread-level repetition
// (a vectorized dimension runs its iterations simultaneously across
// lanes, not sequentially).
type DeviceModel interface {
	InstructionPressure(fn *ir.Function, inst ir.InstID) (HwPressure, error)
	IsVectorDim(fn *ir.Function, dim ir.DimID) bool
}

// Predicate reports whether an instruction is certainly skipped given the
// current search-space decisions (a predicated/guarded instruction whose
// guard has been decided false). Implementations come from the space
// package's propagated domains; model stays decoupled from space to keep
// the dependency direction one-way (model has no import of space).
type Predicate func(inst ir.InstID) (skipped bool, err error)

// Estimator computes FastBound, the monotone runtime lower bound.
// It builds one Level per distinct set of enclosing iteration dimensions
// and chains them into a LevelDag whose longest path is the bound.
type Estimator struct {
	device DeviceModel
}

// NewEstimator builds an Estimator against a device's pressure model.
func NewEstimator(device DeviceModel) *Estimator {
	return &Estimator{device: device}
}

// FastBound computes the candidate's performance lower bound, in
// abstract nanosecond-equivalent units. It never
// overestimates the runtime and only grows as decisions narrow further, the
// monotonicity property the search driver's pruning relies on.
func (e *Estimator) FastBound(fn *ir.Function, skipped Predicate) (float64, error) {
	byDims := make(map[string][]LocalInfo)
	dimsOf := make(map[string][]ir.DimID)

	for _, id := range fn.Instructions() {
		inst, ok := fn.Instruction(id)
		if !ok {
			continue
		}
		skip := false
		if skipped != nil {
			var err error
			skip, err = skipped(id)
			if err != nil {
				return 0, fmt.Errorf("model: predicate for %s: %w", id, err)
			}
		}
		pressure := HwPressure{}
		if !skip {
			p, err := e.device.InstructionPressure(fn, id)
			if err != nil {
				return 0, fmt.Errorf("model: pressure for %s: %w", id, err)
			}
			pressure = p
		}
		key := levelKey(inst.IterDims, fn, e.device)
		byDims[key] = append(byDims[key], LocalInfo{Inst: id, Pressure: pressure, Skipped: skip})
		dimsOf[key] = nonVectorDims(inst.IterDims, fn, e.device)
	}

	dag := NewLevelDag()
	var ids []string
	for key, infos := range byDims {
		lvl := NewLevel(key, dimsOf[key], fn, infos)
		if err := dag.AddLevel(lvl); err != nil {
			return 0, err
		}
		ids = append(ids, key)
	}

	// Sequence levels by nesting depth: a level with fewer dims is an
	// ancestor (outer loop) of one with a strict superset of dims, so it
	// must retire its tail before the nested level's contribution could
	// possibly start (a conservative, always-acyclic approximation of
	// true instruction-level sequencing).
	for _, a := range ids {
		for _, b := range ids {
			if a == b {
				continue
			}
			if isNestedUnder(dimsOf[a], dimsOf[b]) {
				if err := dag.AddEdge(a, b); err != nil {
					return 0, err
				}
			}
		}
	}

	return dag.FastBound()
}

func levelKey(dims []ir.DimID, fn *ir.Function, device DeviceModel) string {
	filtered := nonVectorDims(dims, fn, device)
	return fmt.Sprintf("%v", filtered)
}

func nonVectorDims(dims []ir.DimID, fn *ir.Function, device DeviceModel) []ir.DimID {
	out := make([]ir.DimID, 0, len(dims))
	for _, d := range dims {
		if device.IsVectorDim(fn, d) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// isNestedUnder reports whether inner is a strict superset of outer,
// meaning a level iterating over inner's dims is nested within one
// iterating over outer's.
func isNestedUnder(outer, inner []ir.DimID) bool {
	if len(inner) <= len(outer) {
		return false
	}
	set := make(map[ir.DimID]bool, len(inner))
	for _, d := range inner {
		set[d] = true
	}
	for _, d := range outer {
		if !set[d] {
			return false
		}
	}
	return true
}
