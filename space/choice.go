package space

import (
	"github.com/ulysseB/Telamon/domain"
	"github.com/ulysseB/Telamon/ir"
)

// CounterKind is a counter choice's accumulation operator.
type CounterKind int

const (
	CounterAdd CounterKind = iota
	CounterMul
)

// CounterVisibility controls whether a counter's upper bound is ever
// exposed in its domain.
type CounterVisibility int

const (
	// NoMax exposes only a half-open range; no upper bound is computed.
	NoMax CounterVisibility = iota
	// HiddenMax computes an upper bound internally but never writes it to
	// the domain (the domain stays half-open).
	HiddenMax
	// Full exposes both the lower and upper bound as a closed range.
	Full
)

// CounterSiteValue is either a static [lo,hi] contribution or a reference
// to another Range-valued choice's current bound.
type CounterSiteValue struct {
	StaticLo, StaticHi uint64
	FromChoice         *Key
}

// CounterSite is one increment site contributing to a counter, active iff
// its Condition choice's domain contains ConditionValue.
type CounterSite struct {
	Condition      Key
	ConditionValue string
	Value          CounterSiteValue
}

// CounterDef describes a counter choice's accumulation rule.
type CounterDef struct {
	Kind       CounterKind
	Visibility CounterVisibility
	Sites      func(st *Store, args []uint32) ([]CounterSite, error)
}

// TriggerDef is a lowering: when SelfCondition and every OtherCondition
// first become certain (Trivalent True), Lower runs once, rewriting the
// function and returning the IR delta it introduced.
type TriggerDef struct {
	SelfCondition   func(st *Store, args []uint32) (domain.Trivalent, error)
	OtherConditions []func(st *Store, args []uint32) (domain.Trivalent, error)
	Lower           func(st *Store, args []uint32) (*ir.NewObjs, error)
}

// ChoiceDef is the process-wide, build-time-registered definition of one
// named choice.
// In this repository — the DSL compiler itself is out of scope
// — ChoiceDefs are registered directly in Go, the way
// generated code would.
type ChoiceDef struct {
	Name string

	// Symmetric marks a two-argument choice with a triangular domain,
	// whose inverse may flip the value.
	Symmetric   bool
	InvertValue func(domain.Value) domain.Value

	// Instances enumerates every concrete argument tuple this choice has
	// for the given function (e.g. "all dimensions", "all instructions").
	Instances func(f *ir.Function) [][]uint32

	// InitialDomain computes the starting domain for one instance.
	InitialDomain func(st *Store, args []uint32) (domain.Value, error)

	// FilterSelf recomputes this choice's own domain from the rest of the
	// store. Nil for choices with no filters (e.g. pure constants).
	FilterSelf func(st *Store, args []uint32) (domain.Value, error)

	// Watches lists other choice names whose change should cause this
	// choice's FilterSelf (RemoteFilter, from the watcher's perspective)
	// to rerun for every one of its instances.
	Watches []string

	// Counter is non-nil when this choice is a counter.
	Counter *CounterDef

	// Triggers are lowerings attached to this choice becoming certain.
	Triggers []*TriggerDef
}

// Registry is the process-wide, initialise-once-never-mutated collection
// of ChoiceDefs a SearchSpace is built from.
type Registry struct {
	defs map[string]*ChoiceDef
	// order preserves registration order for deterministic instantiation.
	order []string
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*ChoiceDef)}
}

// Register adds a ChoiceDef. Panics on duplicate names: this mirrors a
// build-time invariant violation, not a runtime error a caller can recover
// from (the registry is meant to be populated once, at init time).
func (r *Registry) Register(def *ChoiceDef) {
	if _, exists := r.defs[def.Name]; exists {
		panic("space: duplicate choice definition " + def.Name)
	}
	r.defs[def.Name] = def
	r.order = append(r.order, def.Name)
}

// Lookup returns the ChoiceDef for a name, or nil if unregistered.
func (r *Registry) Lookup(name string) *ChoiceDef { return r.defs[name] }

// Names returns every registered choice name in registration order.
func (r *Registry) Names() []string { return append([]string(nil), r.order...) }
