package space

import (
	"fmt"

	"github.com/ulysseB/Telamon/ir"
)

// SearchSpace wraps a Store with the function/registry pair it was built
// from. It is the unit the search driver clones and narrows at each
// decision.
type SearchSpace struct {
	store *Store
}

// NewSearchSpace allocates a fresh space over a registry and function.
func NewSearchSpace(registry *Registry, fn *ir.Function) (*SearchSpace, error) {
	st, err := New(registry, fn)
	if err != nil {
		return nil, err
	}
	return &SearchSpace{store: st}, nil
}

// Store exposes the underlying decision store.
func (s *SearchSpace) Store() *Store { return s.store }

// Clone returns an independent copy safe to narrow without affecting s.
func (s *SearchSpace) Clone() *SearchSpace {
	return &SearchSpace{store: s.store.Clone()}
}

// Apply runs one Action against the space: a restriction is propagated to
// fixpoint, a forced lowering fires its trigger and then drains any
// further fixpoint work it introduces.
func (s *SearchSpace) Apply(a Action) error {
	if a.isLowering() {
		return s.store.ForceLower(a.Lowering, a.Args)
	}
	return s.store.Propagate(a.Key, a.Value)
}

// IsFailed reports whether any choice in the space has an empty domain.
func (s *SearchSpace) IsFailed() bool { return s.store.IsFailed() }

// IsConstrained reports whether every choice in the space is decided.
func (s *SearchSpace) IsConstrained() bool { return s.store.IsConstrained() }

// Candidate pairs a SearchSpace reached by a specific action history with
// the performance lower bound computed for it.
// It is immutable: applying an action clones the space first, so two
// candidates can share unrelated ancestor state safely.
type Candidate struct {
	Space   *SearchSpace
	Actions []Action
	Depth   int

	// Bound is a float64 lower-bound estimate (nanoseconds) computed by
	// the model package and attached by the caller; nil until set.
	Bound *float64
}

// NewCandidate wraps a freshly allocated space as the root candidate.
func NewCandidate(space *SearchSpace) *Candidate {
	return &Candidate{Space: space}
}

// Apply clones the candidate's space, applies action to the clone, and
// returns the resulting child candidate. The parent is left untouched.
func (c *Candidate) Apply(action Action) (*Candidate, error) {
	next := c.Space.Clone()
	if err := next.Apply(action); err != nil {
		return nil, fmt.Errorf("space: apply %v: %w", action, err)
	}
	return &Candidate{
		Space:   next,
		Actions: append(append([]Action(nil), c.Actions...), action),
		Depth:   c.Depth + 1,
	}, nil
}
