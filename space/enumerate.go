package space

import (
	"fmt"

	"github.com/ulysseB/Telamon/domain"
)

// Enumerate picks the next undetermined choice (via order) and splits its
// remaining domain into one restriction Action per value still allowed.
// Returns ok=false once every allocated choice is
// constrained, which signals the candidate is ready for evaluation.
func Enumerate(store *Store, order ChoiceOrder) (key Key, actions []Action, ok bool, err error) {
	key, ok = order.Next(store)
	if !ok {
		return Key{}, nil, false, nil
	}
	v := store.Get(key)
	if v == nil {
		return Key{}, nil, false, fmt.Errorf("space: enumerate on unallocated key %s", key)
	}
	vals, err := splitValue(v)
	if err != nil {
		return Key{}, nil, false, fmt.Errorf("space: enumerate %s: %w", key, err)
	}
	actions = make([]Action, len(vals))
	for i, val := range vals {
		actions[i] = Restriction(key, val)
	}
	return key, actions, true, nil
}

// splitValue returns one singleton Value per element still allowed, in the
// manner appropriate to each value type. A Range with no declared upper
// bound cannot be split into finitely many singletons; it narrows to its
// single known minimum instead, matching the conservative direction a
// lower-bound-driven search is allowed to take.
func splitValue(v domain.Value) ([]domain.Value, error) {
	switch t := v.(type) {
	case *domain.EnumSet:
		symbols := t.Symbols()
		out := make([]domain.Value, len(symbols))
		for i, s := range symbols {
			out[i] = domain.NewEnumSet(t.Universe(), s)
		}
		return out, nil
	case *domain.NumericSet:
		values := t.Values()
		out := make([]domain.Value, len(values))
		for i, val := range values {
			out[i] = domain.NewNumericSet(t.Universe(), val)
		}
		return out, nil
	case *domain.Range:
		if !t.HasMax {
			return []domain.Value{domain.Closed(t.Min, t.Min)}, nil
		}
		out := make([]domain.Value, 0, t.Max-t.Min+1)
		for val := t.Min; val <= t.Max; val++ {
			out = append(out, domain.Closed(val, val))
		}
		return out, nil
	case *domain.Constant:
		return []domain.Value{t}, nil
	default:
		return nil, fmt.Errorf("space: cannot enumerate value type %T", v)
	}
}
