package space

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ulysseB/Telamon/domain"
	"github.com/ulysseB/Telamon/ir"
)

func testFunction() *ir.Function {
	sig := ir.Signature{Name: "axpy", Params: []ir.Param{{Name: "n", Type: ir.Int(32, false)}}}
	f := ir.NewFunction(sig)
	f.AddDimension(ir.Const(4))
	f.Freeze()
	return f
}

var sideUniverse = domain.NewUniverse([]string{"left", "right"})

// buildLinkedRegistry wires a one-dimension "Side" choice and a "Mirror"
// choice whose FilterSelf copies Side's domain (a minimal RemoteFilter).
func buildLinkedRegistry() *Registry {
	r := NewRegistry()
	r.Register(&ChoiceDef{
		Name: "Side",
		Instances: func(f *ir.Function) [][]uint32 {
			out := make([][]uint32, 0, len(f.Dimensions()))
			for _, d := range f.Dimensions() {
				out = append(out, []uint32{uint32(d)})
			}
			return out
		},
		InitialDomain: func(st *Store, args []uint32) (domain.Value, error) {
			return sideUniverse.Full(), nil
		},
	})
	r.Register(&ChoiceDef{
		Name: "Mirror",
		Instances: func(f *ir.Function) [][]uint32 {
			out := make([][]uint32, 0, len(f.Dimensions()))
			for _, d := range f.Dimensions() {
				out = append(out, []uint32{uint32(d)})
			}
			return out
		},
		InitialDomain: func(st *Store, args []uint32) (domain.Value, error) {
			return sideUniverse.Full(), nil
		},
		FilterSelf: func(st *Store, args []uint32) (domain.Value, error) {
			return st.Get(NewKey("Side", args...)), nil
		},
		Watches: []string{"Side"},
	})
	return r
}

func TestPropagateNarrowsDependent(t *testing.T) {
	r := buildLinkedRegistry()
	f := testFunction()
	st, err := New(r, f)
	require.NoError(t, err)

	left := domain.NewEnumSet(sideUniverse, "left")
	require.NoError(t, st.Propagate(NewKey("Side", 0), left))

	require.Equal(t, "{left}", st.Get(NewKey("Mirror", 0)).String())
}

func TestPropagateReportsInfeasible(t *testing.T) {
	r := buildLinkedRegistry()
	f := testFunction()
	st, err := New(r, f)
	require.NoError(t, err)

	empty := sideUniverse.Empty()
	err = st.Propagate(NewKey("Side", 0), empty)
	require.ErrorIs(t, err, ErrInfeasible)
}

func TestCounterBoundsSumOfSites(t *testing.T) {
	r := NewRegistry()
	r.Register(&ChoiceDef{
		Name:      "Active",
		Instances: func(f *ir.Function) [][]uint32 { return [][]uint32{{0}} },
		InitialDomain: func(st *Store, args []uint32) (domain.Value, error) {
			return domain.NewEnumSet(sideUniverse, "left", "right"), nil
		},
	})
	r.Register(&ChoiceDef{
		Name:      "Total",
		Instances: func(f *ir.Function) [][]uint32 { return [][]uint32{{0}} },
		InitialDomain: func(st *Store, args []uint32) (domain.Value, error) {
			return domain.HalfOpen(0), nil
		},
		Counter: &CounterDef{
			Kind:       CounterAdd,
			Visibility: Full,
			Sites: func(st *Store, args []uint32) ([]CounterSite, error) {
				return []CounterSite{
					{Condition: NewKey("Active", 0), ConditionValue: "left", Value: CounterSiteValue{StaticLo: 3, StaticHi: 3}},
					{Condition: NewKey("Active", 0), ConditionValue: "right", Value: CounterSiteValue{StaticLo: 5, StaticHi: 5}},
				}, nil
			},
		},
		Watches: []string{"Active"},
	})
	f := testFunction()
	st, err := New(r, f)
	require.NoError(t, err)

	total := st.Get(NewKey("Total", 0)).(*domain.Range)
	require.Equal(t, uint64(0), total.Min)
	require.Equal(t, uint64(8), total.Max)

	require.NoError(t, st.Propagate(NewKey("Active", 0), domain.NewEnumSet(sideUniverse, "left")))
	total = st.Get(NewKey("Total", 0)).(*domain.Range)
	require.Equal(t, uint64(3), total.Min)
	require.Equal(t, uint64(3), total.Max)
}

func TestTriggerFiresLoweringOnce(t *testing.T) {
	r := NewRegistry()
	fired := 0
	r.Register(&ChoiceDef{
		Name:      "Decide",
		Instances: func(f *ir.Function) [][]uint32 { return [][]uint32{{0}} },
		InitialDomain: func(st *Store, args []uint32) (domain.Value, error) {
			return sideUniverse.Full(), nil
		},
		Triggers: []*TriggerDef{{
			SelfCondition: func(st *Store, args []uint32) (domain.Trivalent, error) {
				return st.Get(NewKey("Decide", args...)).(*domain.EnumSet).Contains("left"), nil
			},
			Lower: func(st *Store, args []uint32) (*ir.NewObjs, error) {
				fired++
				return st.Function().Extend(func(f *ir.Function) error {
					f.AddDimension(ir.Const(2))
					return nil
				})
			},
		}},
	})
	f := testFunction()
	st, err := New(r, f)
	require.NoError(t, err)

	require.NoError(t, st.Propagate(NewKey("Decide", 0), domain.NewEnumSet(sideUniverse, "left")))
	require.Equal(t, 1, fired)
	require.Len(t, f.Dimensions(), 2)

	require.NoError(t, st.Propagate(NewKey("Decide", 0), domain.NewEnumSet(sideUniverse, "left")))
	require.Equal(t, 1, fired, "trigger must not fire twice")
}

func TestLoweredChoiceRunsItsOwnFilter(t *testing.T) {
	r := NewRegistry()
	// Decide's instance exists only for dim 0; Mirror exists for every
	// dimension and copies Decide(0). A lowering fired by Decide(0)
	// settling to "left" extends the function with a new dimension, whose
	// Mirror instance must come out already narrowed to {left} even
	// though Decide(0) never changes again.
	r.Register(&ChoiceDef{
		Name:      "Decide",
		Instances: func(f *ir.Function) [][]uint32 { return [][]uint32{{0}} },
		InitialDomain: func(st *Store, args []uint32) (domain.Value, error) {
			return sideUniverse.Full(), nil
		},
		Triggers: []*TriggerDef{{
			SelfCondition: func(st *Store, args []uint32) (domain.Trivalent, error) {
				return st.Get(NewKey("Decide", args...)).(*domain.EnumSet).Contains("left"), nil
			},
			Lower: func(st *Store, args []uint32) (*ir.NewObjs, error) {
				return st.Function().Extend(func(f *ir.Function) error {
					f.AddDimension(ir.Const(2))
					return nil
				})
			},
		}},
	})
	r.Register(&ChoiceDef{
		Name: "Mirror",
		Instances: func(f *ir.Function) [][]uint32 {
			out := make([][]uint32, 0, len(f.Dimensions()))
			for _, d := range f.Dimensions() {
				out = append(out, []uint32{uint32(d)})
			}
			return out
		},
		InitialDomain: func(st *Store, args []uint32) (domain.Value, error) {
			return sideUniverse.Full(), nil
		},
		FilterSelf: func(st *Store, args []uint32) (domain.Value, error) {
			return st.Get(NewKey("Decide", 0)), nil
		},
		Watches: []string{"Decide"},
	})
	f := testFunction()
	st, err := New(r, f)
	require.NoError(t, err)

	require.NoError(t, st.Propagate(NewKey("Decide", 0), domain.NewEnumSet(sideUniverse, "left")))
	require.Len(t, f.Dimensions(), 2)

	newDim := f.Dimensions()[1]
	require.Equal(t, "{left}", st.Get(NewKey("Mirror", uint32(newDim))).String(),
		"lowered-in choice must run its own filter at allocation")
}

func TestSymmetricChoiceInvertsSwappedInstance(t *testing.T) {
	r := NewRegistry()
	r.Register(&ChoiceDef{
		Name:      "Order",
		Symmetric: true,
		InvertValue: func(v domain.Value) domain.Value {
			es := v.(*domain.EnumSet)
			out := sideUniverse.Empty()
			if es.Contains("left") == domain.True {
				out = domain.NewEnumSet(sideUniverse, "right")
			} else if es.Contains("right") == domain.True {
				out = domain.NewEnumSet(sideUniverse, "left")
			}
			return out
		},
		Instances: func(f *ir.Function) [][]uint32 {
			return [][]uint32{{0, 1}, {1, 0}}
		},
		InitialDomain: func(st *Store, args []uint32) (domain.Value, error) {
			return sideUniverse.Full(), nil
		},
	})
	sig := ir.Signature{Name: "axpy", Params: []ir.Param{{Name: "n", Type: ir.Int(32, false)}}}
	f := ir.NewFunction(sig)
	f.AddDimension(ir.Const(4))
	f.AddDimension(ir.Const(4)) // two dims so (0,1)/(1,0) both exist
	st, err := New(r, f)
	require.NoError(t, err)

	require.NoError(t, st.Propagate(NewKey("Order", 0, 1), domain.NewEnumSet(sideUniverse, "left")))
	require.Equal(t, "{right}", st.Get(NewKey("Order", 1, 0)).String())
}

func TestCandidateApplyClonesSpace(t *testing.T) {
	r := buildLinkedRegistry()
	f := testFunction()
	space, err := NewSearchSpace(r, f)
	require.NoError(t, err)
	root := NewCandidate(space)

	child, err := root.Apply(Restriction(NewKey("Side", 0), domain.NewEnumSet(sideUniverse, "left")))
	require.NoError(t, err)
	require.Equal(t, 1, child.Depth)

	require.Equal(t, 2, root.Space.Store().Get(NewKey("Side", 0)).(*domain.EnumSet).Count())
	require.Equal(t, 1, child.Space.Store().Get(NewKey("Side", 0)).(*domain.EnumSet).Count())
}
