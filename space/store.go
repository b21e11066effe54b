package space

import (
	"fmt"

	"github.com/ulysseB/Telamon/domain"
	"github.com/ulysseB/Telamon/ir"
)

// DomainDiff records the (old, new) domain pair for one key narrowed
// during a propagation step.
type DomainDiff struct {
	Key      Key
	Old, New domain.Value
}

// Store is the keyed collection mapping every (choice-name, arg-tuple) to
// its current domain value. It is single-threaded relative
// to propagation: parallel workers operate on independently cloned Stores.
type Store struct {
	registry *Registry
	fn       *ir.Function
	values   map[hashKey]domain.Value
	keys     map[hashKey]Key
	// firedTriggers tracks which (choice instance, trigger index) pairs
	// have already fired their lowering.
	firedTriggers map[string]bool
	// dependents[choiceName] lists every choice name that declared
	// choiceName in its Watches (the RemoteFilter reverse edge).
	dependents map[string][]string
}

// New allocates domains for every current choice instance using the
// registry's declared universes.
func New(registry *Registry, fn *ir.Function) (*Store, error) {
	st := &Store{
		registry:      registry,
		fn:            fn,
		values:        make(map[hashKey]domain.Value),
		keys:          make(map[hashKey]Key),
		firedTriggers: make(map[string]bool),
		dependents:    make(map[string][]string),
	}
	for _, name := range registry.Names() {
		def := registry.Lookup(name)
		for _, w := range def.Watches {
			st.dependents[w] = append(st.dependents[w], name)
		}
	}
	if _, err := st.allocateNew(nil); err != nil {
		return nil, err
	}
	if err := st.initialFilter(); err != nil {
		return nil, err
	}
	return st, nil
}

// initialFilter runs every FilterSelf/Counter choice once against the
// freshly allocated store, then drains to fixpoint and fires any triggers
// that are already certain from the initial state alone.
func (st *Store) initialFilter() error {
	var seed []DomainDiff
	for _, name := range st.registry.Names() {
		def := st.registry.Lookup(name)
		if def.FilterSelf == nil && def.Counter == nil {
			continue
		}
		for _, args := range def.Instances(st.fn) {
			k := NewKey(name, args...)
			v, err := st.computeChoiceDomain(def, args)
			if err != nil {
				return fmt.Errorf("space: initial filter for %s: %w", k, err)
			}
			diff, changed, err := st.Restrict(k, v)
			if err != nil {
				return err
			}
			if changed {
				seed = append(seed, diff)
			}
		}
	}
	if err := st.pushAndDrain(seed); err != nil {
		return err
	}
	return st.runTriggers()
}

// Function returns the store's underlying IR function.
func (st *Store) Function() *ir.Function { return st.fn }

// Registry returns the store's choice-definition registry.
func (st *Store) Registry() *Registry { return st.registry }

// allocateNew instantiates every choice def against the current function,
// allocates a domain for any instance not already present, and returns
// the keys it added. delta is not consulted: every instance is
// re-instantiated (re-instantiating is pure) and keys that already have a
// domain are skipped.
func (st *Store) allocateNew(delta *ir.NewObjs) ([]Key, error) {
	var added []Key
	for _, name := range st.registry.Names() {
		def := st.registry.Lookup(name)
		for _, args := range def.Instances(st.fn) {
			k := NewKey(name, args...)
			h := k.hash()
			if _, exists := st.values[h]; exists {
				continue
			}
			v, err := def.InitialDomain(st, args)
			if err != nil {
				return nil, fmt.Errorf("space: initial domain for %s: %w", k, err)
			}
			st.values[h] = v
			st.keys[h] = k
			added = append(added, k)
		}
	}
	return added, nil
}

// bootstrapNew runs the just-allocated keys' own FilterSelf/Counter once
// and drains the resulting diffs to fixpoint, mirroring what
// initialFilter does for the whole store at construction. A choice
// lowered in mid-search needs this pass: its watched dependencies may
// already be settled, so no further onChange will ever fire for them and
// the raw InitialDomain would otherwise stand unfiltered.
func (st *Store) bootstrapNew(added []Key) error {
	var seed []DomainDiff
	for _, k := range added {
		def := st.registry.Lookup(k.Choice)
		if def == nil || (def.FilterSelf == nil && def.Counter == nil) {
			continue
		}
		v, err := st.computeChoiceDomain(def, k.Args)
		if err != nil {
			return fmt.Errorf("space: bootstrap filter for %s: %w", k, err)
		}
		diff, changed, err := st.Restrict(k, v)
		if err != nil {
			return err
		}
		if changed {
			seed = append(seed, diff)
		}
	}
	return st.pushAndDrain(seed)
}

// Get returns the current domain for a key. Returns nil if the key has no
// allocated domain (a programmer error: every instance should have been
// allocated by New/allocateNew).
func (st *Store) Get(k Key) domain.Value {
	return st.values[k.hash()]
}

// Set replaces a key's domain outright. The caller must ensure the new
// value is a subset of the old one; Set does not check this (use Restrict
// for checked narrowing during propagation).
func (st *Store) Set(k Key, v domain.Value) {
	st.values[k.hash()] = v
	st.keys[k.hash()] = k
}

// Restrict intersects a key's current domain with allowed and records the
// narrowing as a DomainDiff. Returns a zero DomainDiff with changed=false
// if the intersection left the domain unchanged.
func (st *Store) Restrict(k Key, allowed domain.Value) (diff DomainDiff, changed bool, err error) {
	h := k.hash()
	old := st.values[h]
	if old == nil {
		return DomainDiff{}, false, fmt.Errorf("space: restrict on unallocated key %s", k)
	}
	next, err := old.Intersect(allowed)
	if err != nil {
		return DomainDiff{}, false, fmt.Errorf("space: restrict %s: %w", k, err)
	}
	if sameValue(old, next) {
		return DomainDiff{}, false, nil
	}
	st.values[h] = next
	return DomainDiff{Key: k, Old: old, New: next}, true, nil
}

func sameValue(a, b domain.Value) bool { return a.String() == b.String() }

// IsConstrained reports whether every allocated domain is final.
func (st *Store) IsConstrained() bool {
	for _, v := range st.values {
		if !v.IsConstrained() {
			return false
		}
	}
	return true
}

// IsFailed reports whether any allocated domain is empty.
func (st *Store) IsFailed() bool {
	for _, v := range st.values {
		if v.IsFailed() {
			return true
		}
	}
	return false
}

// Keys returns every key with an allocated domain, in no particular order.
func (st *Store) Keys() []Key {
	out := make([]Key, 0, len(st.keys))
	for _, k := range st.keys {
		out = append(out, k)
	}
	return out
}

// Clone returns a deep copy of the store, safe to narrow independently.
// The underlying ir.Function and Registry are shared by reference: the
// function is only ever grown (never mutated in place after a lowering
// clones it — see Store.applyLowering), and the registry is immutable
// after process start.
func (st *Store) Clone() *Store {
	out := &Store{
		registry:      st.registry,
		fn:            st.fn,
		values:        make(map[hashKey]domain.Value, len(st.values)),
		keys:          make(map[hashKey]Key, len(st.keys)),
		firedTriggers: make(map[string]bool, len(st.firedTriggers)),
		dependents:    st.dependents,
	}
	for h, v := range st.values {
		out.values[h] = v.Clone()
	}
	for h, k := range st.keys {
		out.keys[h] = k
	}
	for h, b := range st.firedTriggers {
		out.firedTriggers[h] = b
	}
	return out
}
