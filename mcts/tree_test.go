package mcts

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ulysseB/Telamon/domain"
	"github.com/ulysseB/Telamon/ir"
	"github.com/ulysseB/Telamon/space"
)

var sideUniverse = domain.NewUniverse([]string{"left", "right"})

func buildSideRegistry() *space.Registry {
	r := space.NewRegistry()
	r.Register(&space.ChoiceDef{
		Name: "Side",
		Instances: func(f *ir.Function) [][]uint32 {
			out := make([][]uint32, 0, len(f.Dimensions()))
			for _, d := range f.Dimensions() {
				out = append(out, []uint32{uint32(d)})
			}
			return out
		},
		InitialDomain: func(st *space.Store, args []uint32) (domain.Value, error) {
			return sideUniverse.Full(), nil
		},
	})
	return r
}

func buildSideFunction(dims int) *ir.Function {
	sig := ir.Signature{Name: "f", Params: []ir.Param{{Name: "n", Type: ir.Int(32, false)}}}
	f := ir.NewFunction(sig)
	for i := 0; i < dims; i++ {
		f.AddDimension(ir.Const(4))
	}
	f.Freeze()
	return f
}

// boundBySideCount returns the number of "left" symbols chosen so far as
// the bound (more "left" gives a larger bound), so the search has
// something non-trivial to minimise.
func boundBySideCount(c *space.Candidate) (float64, error) {
	total := 0.0
	for _, k := range c.Space.Store().Keys() {
		v := c.Space.Store().Get(k)
		es, ok := v.(*domain.EnumSet)
		if !ok {
			continue
		}
		if es.Contains("left") == domain.True {
			total++
		}
	}
	return total, nil
}

func newTestTree(t *testing.T, dims int, policy TreePolicy) *Tree {
	t.Helper()
	r := buildSideRegistry()
	f := buildSideFunction(dims)
	sp, err := space.NewSearchSpace(r, f)
	require.NoError(t, err)
	root := space.NewCandidate(sp)
	order := space.LexicographicOrder{}
	tree, err := NewTree(root, order, boundBySideCount, policy, 4)
	require.NoError(t, err)
	return tree
}

func TestRolloutReachesConstrainedLeaf(t *testing.T) {
	tree := newTestTree(t, 2, Bound{})
	leaf, path, err := tree.Rollout()
	require.NoError(t, err)
	require.True(t, leaf.Space.IsConstrained())
	require.Len(t, path, 2)
}

func TestBackpropagateUpdatesBestAndStats(t *testing.T) {
	tree := newTestTree(t, 1, Bound{})
	leaf, path, err := tree.Rollout()
	require.NoError(t, err)
	require.True(t, leaf.Space.IsConstrained())

	tree.Backpropagate(path, 42.0)
	best, ok := tree.CurrentBest()
	require.True(t, ok)
	require.Equal(t, 42.0, best)

	for _, e := range path {
		require.Equal(t, uint64(1), e.Stats().Visits)
		require.Equal(t, 42.0, e.Stats().Min)
	}
}

func TestUCTPrefersUnvisitedEdgeFirst(t *testing.T) {
	tree := newTestTree(t, 1, UCT{C: 1.0, Reduction: Raw})
	node := tree.Root()
	edges, err := tree.expand(node)
	require.NoError(t, err)
	require.Len(t, edges, 2)
	edges[0].recordScore(10, 0)

	picked, err := UCT{C: 1.0}.SelectChild(node, edges)
	require.NoError(t, err)
	require.Same(t, edges[1], picked)
}

func TestDeadEdgeIsNeverSelected(t *testing.T) {
	tree := newTestTree(t, 1, NewRoundRobin())
	node := tree.Root()
	edges, err := tree.expand(node)
	require.NoError(t, err)
	require.Len(t, edges, 2)
	edges[0].Kill(CauseInfeasible)

	rr := NewRoundRobin()
	for i := 0; i < 4; i++ {
		picked, err := rr.SelectChild(node, liveEdges(edges))
		require.NoError(t, err)
		require.Same(t, edges[1], picked)
	}
}

func TestNodeDiesWhenAllEdgesDie(t *testing.T) {
	tree := newTestTree(t, 1, NewRoundRobin())
	node := tree.Root()
	edges, err := tree.expand(node)
	require.NoError(t, err)
	for _, e := range edges {
		e.Kill(CausePerfModel)
	}
	require.True(t, node.killIfAllChildrenDead())
	dead, cause := node.IsDead()
	require.True(t, dead)
	require.Equal(t, CauseAllDead, cause)
}
