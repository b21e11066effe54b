package space

import (
	"math/rand"
	"path"
	"sort"

	"github.com/ulysseB/Telamon/domain"
)

// ChoiceOrder selects the next undecided choice key to branch a Candidate
// on. Implementations must be
// deterministic given the same Store state, except RandomOrder.
type ChoiceOrder interface {
	// Next returns the next unconstrained key to branch on, or ok=false
	// once every allocated choice is constrained.
	Next(store *Store) (key Key, ok bool)
}

func unconstrained(store *Store) []Key {
	keys := store.Keys()
	out := keys[:0]
	for _, k := range keys {
		if v := store.Get(k); v != nil && !v.IsConstrained() {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// LexicographicOrder picks the first unconstrained key in deterministic
// (choice name, then argument) order.
type LexicographicOrder struct{}

func (LexicographicOrder) Next(store *Store) (Key, bool) {
	ks := unconstrained(store)
	if len(ks) == 0 {
		return Key{}, false
	}
	return ks[0], true
}

// SmallestDomainOrder picks the unconstrained key with the fewest
// remaining possibilities, the first-fail heuristic: branching on the
// tightest choice first tends to detect infeasibility earlier.
type SmallestDomainOrder struct{}

func (SmallestDomainOrder) Next(store *Store) (Key, bool) {
	ks := unconstrained(store)
	if len(ks) == 0 {
		return Key{}, false
	}
	best := ks[0]
	bestSize := domainSize(store.Get(best))
	for _, k := range ks[1:] {
		if s := domainSize(store.Get(k)); s < bestSize {
			best, bestSize = k, s
		}
	}
	return best, true
}

func domainSize(v domain.Value) int {
	type counter interface{ Count() int }
	if c, ok := v.(counter); ok {
		return c.Count()
	}
	return 1 << 30
}

// PatternOrder picks unconstrained keys by matching their choice name
// against an ordered list of glob patterns. Keys
// matching an earlier pattern are branched on first; within one pattern,
// and for keys matching no pattern at all (which come last), ties fall
// back to lexicographic order.
type PatternOrder struct {
	patterns []string
}

// NewPatternOrder builds a PatternOrder from choice-name glob patterns
// (path.Match syntax, e.g. "dim_kind", "*_tiling").
func NewPatternOrder(patterns []string) *PatternOrder {
	return &PatternOrder{patterns: append([]string(nil), patterns...)}
}

func (o *PatternOrder) rank(choice string) int {
	for i, p := range o.patterns {
		if ok, err := path.Match(p, choice); err == nil && ok {
			return i
		}
	}
	return len(o.patterns)
}

func (o *PatternOrder) Next(store *Store) (Key, bool) {
	ks := unconstrained(store)
	if len(ks) == 0 {
		return Key{}, false
	}
	best := ks[0]
	bestRank := o.rank(best.Choice)
	for _, k := range ks[1:] {
		if r := o.rank(k.Choice); r < bestRank {
			best, bestRank = k, r
		}
	}
	return best, true
}

// RandomOrder picks uniformly among the unconstrained keys, seeded for
// reproducibility.
type RandomOrder struct {
	rng *rand.Rand
}

// NewRandomOrder builds a RandomOrder seeded deterministically.
func NewRandomOrder(seed int64) *RandomOrder {
	return &RandomOrder{rng: rand.New(rand.NewSource(seed))}
}

func (o *RandomOrder) Next(store *Store) (Key, bool) {
	ks := unconstrained(store)
	if len(ks) == 0 {
		return Key{}, false
	}
	return ks[o.rng.Intn(len(ks))], true
}
