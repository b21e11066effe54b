// Package explorer is the top-level search driver: it wires the decision
// space, the performance model, the MCTS
// store (or the simpler bound-order variant), the async evaluator, the
// monitor and the event log into one Search call, and persists the best
// candidate's artifacts. The CLI/config-file loader in front of it is an
// external collaborator; Config is the programmatic surface
// such a loader would populate.
package explorer

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/ulysseB/Telamon/mcts"
	"github.com/ulysseB/Telamon/space"
)

// Algorithm selects the search driver.
type Algorithm string

const (
	AlgorithmMCTS       Algorithm = "mcts"
	AlgorithmBoundOrder Algorithm = "bound_order"
)

// TreePolicyConfig describes the tree policy to instantiate.
type TreePolicyConfig struct {
	// Kind is one of "uct", "tag", "bound", "weighted_random",
	// "round_robin".
	Kind string

	// UCT parameters.
	C              float64
	ValueReduction string // "raw", "reciprocal", "neg_log"

	// TAG parameters.
	TopK      int
	Threshold float64
	Delta     float64
}

// Config enumerates the options the search driver recognizes, plus the
// Strict reference-check flag and a Seed for the randomized policies.
type Config struct {
	Algorithm      Algorithm
	NumWorkers     int
	Timeout        time.Duration
	MaxEvaluations uint64
	ChoiceOrdering []string
	TreePolicy     TreePolicyConfig
	NewNodesOrder  string // "bound", "weighted_random", "random", "api"
	SkipThreshold  float64
	NumEvals       int
	NumOutliers    int
	EvalBufferSize int
	OutputDir      string
	EventlogPath   string
	StopBound      float64
	Strict         bool
	Seed           int64
}

// DefaultConfig returns the standard driver defaults.
func DefaultConfig() Config {
	return Config{
		Algorithm:      AlgorithmMCTS,
		NumWorkers:     1,
		TreePolicy:     TreePolicyConfig{Kind: "uct", C: 1.0},
		NewNodesOrder:  "bound",
		SkipThreshold:  3.0,
		NumEvals:       20,
		NumOutliers:    4,
		EvalBufferSize: 100,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Algorithm != "" {
		d.Algorithm = c.Algorithm
	}
	if c.NumWorkers > 0 {
		d.NumWorkers = c.NumWorkers
	}
	d.Timeout = c.Timeout
	d.MaxEvaluations = c.MaxEvaluations
	d.ChoiceOrdering = c.ChoiceOrdering
	if c.TreePolicy.Kind != "" {
		d.TreePolicy = c.TreePolicy
	}
	if c.NewNodesOrder != "" {
		d.NewNodesOrder = c.NewNodesOrder
	}
	if c.SkipThreshold > 0 {
		d.SkipThreshold = c.SkipThreshold
	}
	if c.NumEvals > 0 {
		d.NumEvals = c.NumEvals
	}
	if c.NumOutliers > 0 {
		d.NumOutliers = c.NumOutliers
	}
	if c.EvalBufferSize > 0 {
		d.EvalBufferSize = c.EvalBufferSize
	}
	d.OutputDir = c.OutputDir
	d.EventlogPath = c.EventlogPath
	d.StopBound = c.StopBound
	d.Strict = c.Strict
	d.Seed = c.Seed
	return d
}

// DefaultChoiceOrdering is the enumeration order used when no explicit
// ChoiceOrdering is configured: dimension kinds first, then sizes and
// tilings, then memory spaces, then instruction flags, then fine-grained
// orderings. Choices matching no pattern are branched on last, in
// lexicographic order.
var DefaultChoiceOrdering = []string{
	DimKindChoice,
	"*tiling*", "*tile*", "*size*",
	"*mem*",
	"*flag*",
	"*order*",
}

// choiceOrder resolves the configured choice ordering: an explicit
// pattern list, or DefaultChoiceOrdering when none is set.
func (c Config) choiceOrder() space.ChoiceOrder {
	if len(c.ChoiceOrdering) > 0 {
		return space.NewPatternOrder(c.ChoiceOrdering)
	}
	return space.NewPatternOrder(DefaultChoiceOrdering)
}

func valueReduction(name string) (mcts.ValueReduction, error) {
	switch name {
	case "", "raw":
		return mcts.Raw, nil
	case "reciprocal":
		return mcts.Reciprocal, nil
	case "neg_log":
		return mcts.NegLog, nil
	default:
		return mcts.Raw, fmt.Errorf("explorer: unknown value reduction %q", name)
	}
}

// treePolicy instantiates the configured policy. currentBest is wired
// into WeightedRandom's 2x-best cutoff.
func (c Config) treePolicy(currentBest func() (float64, bool)) (mcts.TreePolicy, error) {
	switch c.TreePolicy.Kind {
	case "", "uct":
		vr, err := valueReduction(c.TreePolicy.ValueReduction)
		if err != nil {
			return nil, err
		}
		cc := c.TreePolicy.C
		if cc == 0 {
			cc = 1.0
		}
		return mcts.UCT{C: cc, Reduction: vr}, nil
	case "tag":
		topk := c.TreePolicy.TopK
		if topk == 0 {
			topk = 10
		}
		return mcts.TAG{TopK: topk, Threshold: c.TreePolicy.Threshold, Delta: c.TreePolicy.Delta}, nil
	case "bound":
		return mcts.Bound{}, nil
	case "weighted_random":
		return mcts.WeightedRandom{
			Rng:         rand.New(rand.NewSource(c.Seed)),
			CurrentBest: currentBest,
		}, nil
	case "round_robin":
		return mcts.NewRoundRobin(), nil
	default:
		return nil, fmt.Errorf("explorer: unknown tree policy %q", c.TreePolicy.Kind)
	}
}

// leafOrder instantiates the configured new-nodes-order policy. api
// requires the caller to supply a callback; leafOrder wraps it in an
// ApiLeafOrder, and a nil callback is rejected at Pick time, so
// configuration errors surface on first use rather than silently
// changing behaviour.
func (c Config) leafOrder(currentBest func() (float64, bool), api func([]space.Action, []*float64) (int, error)) (mcts.LeafOrder, error) {
	switch c.NewNodesOrder {
	case "", "bound":
		return mcts.BoundLeafOrder{}, nil
	case "weighted_random":
		return mcts.WeightedRandomLeafOrder{
			Rng:         rand.New(rand.NewSource(c.Seed)),
			CurrentBest: currentBest,
		}, nil
	case "random":
		return mcts.RandomLeafOrder{Rng: rand.New(rand.NewSource(c.Seed))}, nil
	case "api":
		return mcts.ApiLeafOrder{Callback: api}, nil
	default:
		return nil, fmt.Errorf("explorer: unknown new-nodes order %q", c.NewNodesOrder)
	}
}
