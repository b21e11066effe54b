package space

import (
	"errors"
	"fmt"

	"github.com/ulysseB/Telamon/domain"
)

// ErrInfeasible is returned when a propagation step drives some domain to
// empty.
var ErrInfeasible = errors.New("space: infeasible")

// ErrPropagationOverflow is returned when a lowering produced a rewrite
// that cannot be integrated into the function or store. The search driver
// treats it exactly like ErrInfeasible: the offending branch dies, the
// search continues.
var ErrPropagationOverflow = errors.New("space: propagation overflow")

// Propagate applies one atomic restriction and runs the fixpoint
// algorithm: narrow dependent choices, recompute
// counters, fire triggers whose composite condition just became certain,
// and repeat until the work queue is empty. Returns ErrInfeasible if any
// restriction empties a domain.
func (st *Store) Propagate(initial Key, allowed domain.Value) error {
	diff, changed, err := st.Restrict(initial, allowed)
	if err != nil {
		return err
	}
	if !changed {
		return st.runTriggers()
	}
	if err := st.pushAndDrain([]DomainDiff{diff}); err != nil {
		return err
	}
	return st.runTriggers()
}

// pushAndDrain processes a work queue of diffs to fixpoint. Newer diffs
// are processed first; correctness does not
// depend on this order since propagators are monotone.
func (st *Store) pushAndDrain(seed []DomainDiff) error {
	queue := append([]DomainDiff(nil), seed...)
	for len(queue) > 0 {
		item := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		if item.New.IsFailed() {
			return fmt.Errorf("%w: %s has empty domain", ErrInfeasible, item.Key)
		}

		more, err := st.onChange(item.Key)
		if err != nil {
			return err
		}
		queue = append(queue, more...)
	}
	return nil
}

// onChange fans a single changed key out to every action that watches it:
// the dependents' FilterSelf/counter recompute (and, for a symmetric
// choice, the swapped-argument instance with an inverted value).
func (st *Store) onChange(changed Key) ([]DomainDiff, error) {
	var diffs []DomainDiff

	def := st.registry.Lookup(changed.Choice)
	if def != nil && def.Symmetric && len(changed.Args) == 2 {
		sk := changed.swapped()
		newVal := st.values[changed.hash()]
		inverted := newVal
		if def.InvertValue != nil {
			inverted = def.InvertValue(newVal)
		}
		d, changed2, err := st.Restrict(sk, inverted)
		if err != nil {
			return nil, err
		}
		if changed2 {
			diffs = append(diffs, d)
		}
	}

	for _, depName := range st.dependents[changed.Choice] {
		depDef := st.registry.Lookup(depName)
		for _, args := range depDef.Instances(st.fn) {
			k := NewKey(depName, args...)
			if _, ok := st.values[k.hash()]; !ok {
				continue
			}
			newVal, err := st.computeChoiceDomain(depDef, args)
			if err != nil {
				return nil, err
			}
			d, ch, err := st.Restrict(k, newVal)
			if err != nil {
				return nil, err
			}
			if ch {
				if d.New.IsFailed() {
					return nil, fmt.Errorf("%w: %s has empty domain", ErrInfeasible, k)
				}
				diffs = append(diffs, d)
			}
		}
	}
	return diffs, nil
}

// computeChoiceDomain recomputes one choice instance's domain: counter
// math for a counter choice (IncrCounter/UpdateCounter), otherwise the
// registered FilterSelf/RemoteFilter function.
func (st *Store) computeChoiceDomain(def *ChoiceDef, args []uint32) (domain.Value, error) {
	if def.Counter != nil {
		return st.computeCounter(def, args)
	}
	if def.FilterSelf != nil {
		return def.FilterSelf(st, args)
	}
	return st.Get(NewKey(def.Name, args...)), nil
}

// runTriggers checks every registered Trigger's composite condition and
// fires any that have just become certain and have not fired before.
// Firing a lowering extends the function,
// allocates domains for any new choice instances, and the loop repeats
// until a full pass fires nothing new.
func (st *Store) runTriggers() error {
	for {
		fired := false
		for _, name := range st.registry.Names() {
			def := st.registry.Lookup(name)
			if len(def.Triggers) == 0 {
				continue
			}
			for _, args := range def.Instances(st.fn) {
				for ti, tr := range def.Triggers {
					fireKey := fmt.Sprintf("%s#%d", NewKey(name, args...), ti)
					if st.firedTriggers[fireKey] {
						continue
					}
					ok, err := st.triggerCertain(tr, args)
					if err != nil {
						return err
					}
					if !ok {
						continue
					}
					st.firedTriggers[fireKey] = true
					delta, err := tr.Lower(st, args)
					if err != nil {
						return fmt.Errorf("space: lowering %s: %w: %v", fireKey, ErrPropagationOverflow, err)
					}
					added, err := st.allocateNew(delta)
					if err != nil {
						return err
					}
					if err := st.bootstrapNew(added); err != nil {
						return err
					}
					fired = true
				}
			}
		}
		if !fired {
			return nil
		}
	}
}

// ForceLower fires every not-yet-fired trigger on one choice instance
// regardless of whether its condition is certain, then drains any further
// fixpoint work the lowering introduced. Used by Action.Lowering.
func (st *Store) ForceLower(choice string, args []uint32) error {
	def := st.registry.Lookup(choice)
	if def == nil {
		return fmt.Errorf("space: no such choice %q", choice)
	}
	for ti, tr := range def.Triggers {
		fireKey := fmt.Sprintf("%s#%d", NewKey(choice, args...), ti)
		if st.firedTriggers[fireKey] {
			continue
		}
		st.firedTriggers[fireKey] = true
		delta, err := tr.Lower(st, args)
		if err != nil {
			return fmt.Errorf("space: forced lowering %s: %w: %v", fireKey, ErrPropagationOverflow, err)
		}
		added, err := st.allocateNew(delta)
		if err != nil {
			return err
		}
		if err := st.bootstrapNew(added); err != nil {
			return err
		}
	}
	return st.runTriggers()
}

func (st *Store) triggerCertain(tr *TriggerDef, args []uint32) (bool, error) {
	self, err := tr.SelfCondition(st, args)
	if err != nil {
		return false, err
	}
	if self != domain.True {
		return false, nil
	}
	for _, cond := range tr.OtherConditions {
		v, err := cond(st, args)
		if err != nil {
			return false, err
		}
		if v != domain.True {
			return false, nil
		}
	}
	return true, nil
}
