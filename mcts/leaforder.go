package mcts

import (
	"fmt"
	"math/rand"

	"github.com/ulysseB/Telamon/space"
)

// LeafOrder is the policy applied once tree selection reaches the
// frontier, to pick among the freshly generated candidate actions for a
// choice before continuing the single-step lookahead rollout.
type LeafOrder interface {
	// Pick selects one action out of the candidates generated for the
	// next undetermined choice, given each candidate's model bound
	// (nil if not yet computed for that candidate).
	Pick(actions []space.Action, bounds []*float64) (int, error)
}

// BoundLeafOrder always picks the candidate with the smallest bound.
type BoundLeafOrder struct{}

func (BoundLeafOrder) Pick(actions []space.Action, bounds []*float64) (int, error) {
	if len(actions) == 0 {
		return 0, fmt.Errorf("mcts: no actions to pick from")
	}
	best := 0
	for i := 1; i < len(actions); i++ {
		if bounds[i] == nil {
			continue
		}
		if bounds[best] == nil || *bounds[i] < *bounds[best] {
			best = i
		}
	}
	return best, nil
}

// WeightedRandomLeafOrder draws inversely proportional to bound, with the
// same 2x-current-best cutoff as the tree-level WeightedRandom policy.
type WeightedRandomLeafOrder struct {
	Rng         *rand.Rand
	CurrentBest func() (float64, bool)
}

func (p WeightedRandomLeafOrder) Pick(actions []space.Action, bounds []*float64) (int, error) {
	if len(actions) == 0 {
		return 0, fmt.Errorf("mcts: no actions to pick from")
	}
	rng := p.Rng
	if rng == nil {
		rng = defaultRng
	}
	var cutoff float64
	hasCutoff := false
	if p.CurrentBest != nil {
		if best, ok := p.CurrentBest(); ok {
			cutoff, hasCutoff = 2*best, true
		}
	}
	weights := make([]float64, len(actions))
	var total float64
	for i, b := range bounds {
		if b == nil {
			weights[i] = 1
		} else if !hasCutoff || *b <= cutoff {
			if *b > 0 {
				weights[i] = 1 / *b
			} else {
				weights[i] = 1
			}
		}
		total += weights[i]
	}
	if total == 0 {
		return rng.Intn(len(actions)), nil
	}
	r := rng.Float64() * total
	for i, w := range weights {
		if r < w {
			return i, nil
		}
		r -= w
	}
	return len(actions) - 1, nil
}

// RandomLeafOrder picks uniformly at random.
type RandomLeafOrder struct {
	Rng *rand.Rand
}

func (p RandomLeafOrder) Pick(actions []space.Action, _ []*float64) (int, error) {
	if len(actions) == 0 {
		return 0, fmt.Errorf("mcts: no actions to pick from")
	}
	rng := p.Rng
	if rng == nil {
		rng = defaultRng
	}
	return rng.Intn(len(actions)), nil
}

// ApiLeafOrder defers the choice to an externally supplied callback:
// the device/kernel
// collaborator picks among candidates by its own criteria.
type ApiLeafOrder struct {
	Callback func(actions []space.Action, bounds []*float64) (int, error)
}

func (p ApiLeafOrder) Pick(actions []space.Action, bounds []*float64) (int, error) {
	if p.Callback == nil {
		return 0, fmt.Errorf("mcts: ApiLeafOrder has no callback configured")
	}
	return p.Callback(actions, bounds)
}
