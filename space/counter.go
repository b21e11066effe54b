package space

import (
	"fmt"

	"github.com/ulysseB/Telamon/domain"
)

// computeCounter recomputes a counter choice's domain from its sites.
// Each site contributes its
// value when its condition is not certainly false, and contributes it
// unconditionally (for the lower bound) only when the condition is
// certainly true. This keeps lo <= the true sum <= hi for every
// intermediate state:
// a counter of kind Add bounded by [lo,hi] never admits a candidate whose
// true total falls outside it.
func (st *Store) computeCounter(def *ChoiceDef, args []uint32) (domain.Value, error) {
	sites, err := def.Counter.Sites(st, args)
	if err != nil {
		return nil, fmt.Errorf("space: counter sites for %s: %w", def.Name, err)
	}

	identity := uint64(0)
	if def.Counter.Kind == CounterMul {
		identity = 1
	}
	lo, hi := identity, identity
	unboundedHi := false

	for _, site := range sites {
		certain, err := st.conditionValue(site.Condition, site.ConditionValue)
		if err != nil {
			return nil, err
		}
		if certain == domain.False {
			continue
		}

		siteLo, siteHi, siteUnbounded := site.Value.bounds(st)

		if certain == domain.True {
			lo, hi = accumulate(def.Counter.Kind, lo, hi, siteLo, siteHi)
		} else {
			// Maybe: contributes to the upper bound only.
			_, hi = accumulate(def.Counter.Kind, identity, hi, identity, siteHi)
		}
		if siteUnbounded {
			unboundedHi = true
		}
	}

	switch def.Counter.Visibility {
	case Full:
		if unboundedHi {
			return domain.HalfOpen(lo), nil
		}
		return domain.Closed(lo, hi), nil
	case HiddenMax:
		return domain.HalfOpen(lo), nil
	default: // NoMax
		return domain.HalfOpen(lo), nil
	}
}

func accumulate(kind CounterKind, lo, hi, addLo, addHi uint64) (uint64, uint64) {
	if kind == CounterMul {
		return lo * addLo, hi * addHi
	}
	return lo + addLo, hi + addHi
}

func (st *Store) conditionValue(k Key, value string) (domain.Trivalent, error) {
	v := st.Get(k)
	if v == nil {
		return domain.Maybe, fmt.Errorf("space: counter condition on unallocated key %s", k)
	}
	es, ok := v.(*domain.EnumSet)
	if !ok {
		return domain.Maybe, fmt.Errorf("space: counter condition %s is not an enum domain", k)
	}
	return es.Contains(value), nil
}

// bounds resolves a CounterSiteValue to a concrete [lo,hi] contribution.
// unbounded reports whether hi is only a placeholder (the referenced
// choice's range has no upper bound yet).
func (v CounterSiteValue) bounds(st *Store) (lo, hi uint64, unbounded bool) {
	if v.FromChoice == nil {
		return v.StaticLo, v.StaticHi, false
	}
	rv := st.Get(*v.FromChoice)
	r, ok := rv.(*domain.Range)
	if !ok || r == nil {
		return 0, 0, true
	}
	if !r.HasMax {
		return r.Min, r.Min, true
	}
	return r.Min, r.Max, false
}
