package domain

import (
	"fmt"
	"math/bits"
	"sort"
	"strings"
)

// NumericUniverse is a statically known, code-provided set of integers
// (e.g. the valid tile sizes for a dimension). Unlike Universe (symbol
// names), a NumericUniverse is ordered numerically.
type NumericUniverse struct {
	values []int64
	index  map[int64]int
}

// NewNumericUniverse builds a NumericUniverse from a set of integers,
// de-duplicating and sorting them.
func NewNumericUniverse(values []int64) *NumericUniverse {
	uniq := make(map[int64]bool, len(values))
	for _, v := range values {
		uniq[v] = true
	}
	out := make([]int64, 0, len(uniq))
	for v := range uniq {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	u := &NumericUniverse{values: out, index: make(map[int64]int, len(out))}
	for i, v := range out {
		u.index[v] = i
	}
	return u
}

func (u *NumericUniverse) wordCount() int { return (len(u.values) + 63) / 64 }

// Full returns the NumericSet containing every value in the universe.
func (u *NumericUniverse) Full() *NumericSet {
	s := &NumericSet{universe: u, words: make([]uint64, u.wordCount())}
	for i := range s.words {
		s.words[i] = ^uint64(0)
	}
	s.maskTail()
	return s
}

// Empty returns the NumericSet containing no values.
func (u *NumericUniverse) Empty() *NumericSet {
	return &NumericSet{universe: u, words: make([]uint64, u.wordCount())}
}

// NumericSet is a subset of a NumericUniverse.
type NumericSet struct {
	universe *NumericUniverse
	words    []uint64
}

// NewNumericSet builds a NumericSet containing the given values, ignoring
// any not present in the universe.
func NewNumericSet(u *NumericUniverse, values ...int64) *NumericSet {
	s := u.Empty()
	for _, v := range values {
		if i, ok := u.index[v]; ok {
			s.words[i/64] |= 1 << uint(i%64)
		}
	}
	return s
}

func (s *NumericSet) maskTail() {
	n := len(s.universe.values)
	if n%64 == 0 || len(s.words) == 0 {
		return
	}
	last := len(s.words) - 1
	s.words[last] &= (1 << uint(n%64)) - 1
}

// Has reports whether value is currently in the set.
func (s *NumericSet) Has(value int64) bool {
	i, ok := s.universe.index[value]
	if !ok {
		return false
	}
	return s.words[i/64]&(1<<uint(i%64)) != 0
}

// Count returns the number of values currently in the set.
func (s *NumericSet) Count() int {
	n := 0
	for _, w := range s.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// Universe returns the set's underlying universe.
func (s *NumericSet) Universe() *NumericUniverse { return s.universe }

// Values returns the set's members in ascending order.
func (s *NumericSet) Values() []int64 {
	out := make([]int64, 0, s.Count())
	for i, v := range s.universe.values {
		if s.words[i/64]&(1<<uint(i%64)) != 0 {
			out = append(out, v)
		}
	}
	return out
}

// Min returns the smallest member, or ok=false if the set is empty.
func (s *NumericSet) Min() (value int64, ok bool) {
	for i, v := range s.universe.values {
		if s.words[i/64]&(1<<uint(i%64)) != 0 {
			return v, true
		}
	}
	return 0, false
}

// Max returns the largest member, or ok=false if the set is empty.
func (s *NumericSet) Max() (value int64, ok bool) {
	for i := len(s.universe.values) - 1; i >= 0; i-- {
		if s.words[i/64]&(1<<uint(i%64)) != 0 {
			return s.universe.values[i], true
		}
	}
	return 0, false
}

// IsFailed implements Value.
func (s *NumericSet) IsFailed() bool { return s.Count() == 0 }

// IsConstrained implements Value.
func (s *NumericSet) IsConstrained() bool { return s.Count() == 1 }

// Contains returns a Trivalent summary of membership.
func (s *NumericSet) Contains(value int64) Trivalent {
	if !s.Has(value) {
		return False
	}
	if s.IsConstrained() {
		return True
	}
	return Maybe
}

// Intersect implements Value.
func (s *NumericSet) Intersect(other Value) (Value, error) {
	o, ok := other.(*NumericSet)
	if !ok || o.universe != s.universe {
		return nil, &ErrIncompatibleTypes{A: s, B: other}
	}
	out := &NumericSet{universe: s.universe, words: make([]uint64, len(s.words))}
	for i := range out.words {
		out.words[i] = s.words[i] & o.words[i]
	}
	return out, nil
}

// Complement implements Value.
func (s *NumericSet) Complement(universe Value) (Value, error) {
	u, ok := universe.(*NumericSet)
	if !ok || u.universe != s.universe {
		return nil, &ErrIncompatibleTypes{A: s, B: universe}
	}
	out := &NumericSet{universe: s.universe, words: make([]uint64, len(s.words))}
	for i := range out.words {
		out.words[i] = u.words[i] &^ s.words[i]
	}
	return out, nil
}

// Clone implements Value.
func (s *NumericSet) Clone() Value {
	return &NumericSet{universe: s.universe, words: append([]uint64(nil), s.words...)}
}

func (s *NumericSet) String() string {
	vals := s.Values()
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return fmt.Sprintf("{%s}", strings.Join(parts, ", "))
}
