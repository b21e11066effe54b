package domain

import (
	"fmt"
	"math/bits"
	"strings"
)

// Universe is the closed, externally-defined set of symbols an EnumSet
// ranges over (e.g. the set of dimension kinds, or memory spaces). It is
// built once by the choice-definition registry and
// treated as read-only afterwards.
type Universe struct {
	names   []string
	index   map[string]int
	fragile map[int]bool
}

// NewUniverse builds a Universe from an ordered list of symbol names.
// Names listed in fragile are exempt from automatic value-set propagation:
// FilterSelf/RemoteFilter actions never
// remove a fragile value from a domain; only the owning Trigger may.
func NewUniverse(names []string, fragile ...string) *Universe {
	u := &Universe{
		names:   append([]string(nil), names...),
		index:   make(map[string]int, len(names)),
		fragile: make(map[int]bool, len(fragile)),
	}
	for i, n := range u.names {
		u.index[n] = i
	}
	for _, f := range fragile {
		if i, ok := u.index[f]; ok {
			u.fragile[i] = true
		}
	}
	return u
}

// Len returns the number of symbols in the universe.
func (u *Universe) Len() int { return len(u.names) }

// Name returns the symbol name at a given bit index.
func (u *Universe) Name(i int) string { return u.names[i] }

// Index returns the bit index of a symbol name, or -1 if not present.
func (u *Universe) Index(name string) int {
	if i, ok := u.index[name]; ok {
		return i
	}
	return -1
}

// IsFragile reports whether the symbol at index i is fragile.
func (u *Universe) IsFragile(i int) bool { return u.fragile[i] }

func (u *Universe) wordCount() int { return (len(u.names) + 63) / 64 }

// Full returns the EnumSet containing every symbol in the universe.
func (u *Universe) Full() *EnumSet {
	e := &EnumSet{universe: u, words: make([]uint64, u.wordCount())}
	for i := range e.words {
		e.words[i] = ^uint64(0)
	}
	e.maskTail()
	return e
}

// Empty returns the EnumSet containing no symbols.
func (u *Universe) Empty() *EnumSet {
	return &EnumSet{universe: u, words: make([]uint64, u.wordCount())}
}

// EnumSet is a subset of a Universe's symbols, represented as a bitset.
type EnumSet struct {
	universe *Universe
	words    []uint64
}

// NewEnumSet builds an EnumSet from explicit symbol names.
func NewEnumSet(u *Universe, names ...string) *EnumSet {
	e := u.Empty()
	for _, n := range names {
		if i := u.Index(n); i >= 0 {
			e.words[i/64] |= 1 << uint(i%64)
		}
	}
	return e
}

func (e *EnumSet) maskTail() {
	n := e.universe.Len()
	if n%64 == 0 || len(e.words) == 0 {
		return
	}
	last := len(e.words) - 1
	e.words[last] &= (1 << uint(n%64)) - 1
}

// Has reports whether the symbol is present in the set.
func (e *EnumSet) Has(name string) bool {
	i := e.universe.Index(name)
	if i < 0 {
		return false
	}
	return e.words[i/64]&(1<<uint(i%64)) != 0
}

// Count returns the number of symbols currently in the set.
func (e *EnumSet) Count() int {
	n := 0
	for _, w := range e.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// IsFailed implements Value.
func (e *EnumSet) IsFailed() bool { return e.Count() == 0 }

// IsConstrained implements Value: an enum set is constrained once it is a
// singleton.
func (e *EnumSet) IsConstrained() bool { return e.Count() == 1 }

// Universe returns the set's underlying universe, used by callers that
// need to build a sibling EnumSet over the same symbols (e.g. choice
// enumeration splitting a domain into one action per remaining symbol).
func (e *EnumSet) Universe() *Universe { return e.universe }

// Symbols returns the set's members in universe order.
func (e *EnumSet) Symbols() []string {
	out := make([]string, 0, e.Count())
	for i := 0; i < e.universe.Len(); i++ {
		if e.words[i/64]&(1<<uint(i%64)) != 0 {
			out = append(out, e.universe.names[i])
		}
	}
	return out
}

// Intersect implements Value. Fragile symbols are intersected like any
// other bit: fragility only exempts a symbol from automatic RemoteFilter/
// FilterSelf narrowing performed by the propagation engine, not from an
// explicit Intersect call made by that same engine's Trigger machinery.
func (e *EnumSet) Intersect(other Value) (Value, error) {
	o, ok := other.(*EnumSet)
	if !ok || o.universe != e.universe {
		return nil, &ErrIncompatibleTypes{A: e, B: other}
	}
	out := &EnumSet{universe: e.universe, words: make([]uint64, len(e.words))}
	for i := range out.words {
		out.words[i] = e.words[i] & o.words[i]
	}
	return out, nil
}

// IntersectProtectingFragile behaves like Intersect but never clears a
// fragile bit that was set in the receiver, regardless of other. It is the
// primitive automatic propagation (FilterSelf/RemoteFilter) must use, per
// the "fragile value" design note.
func (e *EnumSet) IntersectProtectingFragile(other Value) (Value, error) {
	o, ok := other.(*EnumSet)
	if !ok || o.universe != e.universe {
		return nil, &ErrIncompatibleTypes{A: e, B: other}
	}
	out := &EnumSet{universe: e.universe, words: make([]uint64, len(e.words))}
	for i := 0; i < e.universe.Len(); i++ {
		word, bit := i/64, uint(i%64)
		selfSet := e.words[word]&(1<<bit) != 0
		otherSet := o.words[word]&(1<<bit) != 0
		if (selfSet && otherSet) || (selfSet && e.universe.IsFragile(i)) {
			out.words[word] |= 1 << bit
		}
	}
	return out, nil
}

// Complement implements Value.
func (e *EnumSet) Complement(universe Value) (Value, error) {
	u, ok := universe.(*EnumSet)
	if !ok || u.universe != e.universe {
		return nil, &ErrIncompatibleTypes{A: e, B: universe}
	}
	out := &EnumSet{universe: e.universe, words: make([]uint64, len(e.words))}
	for i := range out.words {
		out.words[i] = u.words[i] &^ e.words[i]
	}
	return out, nil
}

// Clone implements Value.
func (e *EnumSet) Clone() Value {
	out := &EnumSet{universe: e.universe, words: append([]uint64(nil), e.words...)}
	return out
}

// Contains returns a Trivalent summary of whether name is a guaranteed,
// impossible or undecided member of the set.
func (e *EnumSet) Contains(name string) Trivalent {
	i := e.universe.Index(name)
	if i < 0 {
		return False
	}
	if e.words[i/64]&(1<<uint(i%64)) == 0 {
		return False
	}
	if e.IsConstrained() {
		return True
	}
	return Maybe
}

func (e *EnumSet) String() string {
	return fmt.Sprintf("{%s}", strings.Join(e.Symbols(), ", "))
}
