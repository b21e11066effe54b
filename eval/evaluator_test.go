package eval

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ulysseB/Telamon/device"
	"github.com/ulysseB/Telamon/domain"
	"github.com/ulysseB/Telamon/ir"
	"github.com/ulysseB/Telamon/mcts"
	"github.com/ulysseB/Telamon/space"
)

var sideUniverse = domain.NewUniverse([]string{"left", "right"})

func buildRegistry() *space.Registry {
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

func buildFunction(dims int) *ir.Function {
	sig := ir.Signature{Name: "f", Params: []ir.Param{{Name: "n", Type: ir.Int(32, false)}}}
	f := ir.NewFunction(sig)
	for i := 0; i < dims; i++ {
		f.AddDimension(ir.Const(4))
	}
	f.Freeze()
	return f
}

func zeroBound(c *space.Candidate) (float64, error) { return 0, nil }

func newTestHarness(t *testing.T) (*Harness, *device.MockDevice) {
	t.Helper()
	r := buildRegistry()
	f := buildFunction(2)
	sp, err := space.NewSearchSpace(r, f)
	require.NoError(t, err)
	root := space.NewCandidate(sp)
	tree, err := mcts.NewTree(root, space.LexicographicOrder{}, zeroBound, mcts.Bound{}, 0)
	require.NoError(t, err)

	dev := device.NewMockDevice(1)
	h := &Harness{
		Device: dev,
		Tree:   tree,
		Config: Config{NumWorkers: 2, NumEvals: 5, NumOutliers: 1, EvalBufferSize: 4},
	}
	return h, dev
}

func TestHarnessRunEvaluatesLeaves(t *testing.T) {
	h, dev := newTestHarness(t)

	var evaluated int
	h.OnEval = func(job Job, score float64, err error) {
		evaluated++
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	h.Run(ctx)

	require.Greater(t, evaluated, 0)
	require.Greater(t, dev.Executions(), int64(0))
}

func TestTrimmedMeanDropsSlowestSamples(t *testing.T) {
	got := trimmedMean([]float64{1, 2, 3, 100}, 1)
	require.InDelta(t, 2.0, got, 1e-9)
}

func TestTrimmedMeanDropsFastFlukes(t *testing.T) {
	// A suspiciously fast sample is as far from the median as a slow one
	// and gets discarded the same way.
	got := trimmedMean([]float64{0.1, 10, 11, 12, 100}, 2)
	require.InDelta(t, 11.0, got, 1e-9)
}

func TestTrimmedMeanHandlesAllOutliers(t *testing.T) {
	// When everything would be trimmed, the sample nearest the median
	// survives.
	got := trimmedMean([]float64{5, 6, 7}, 5)
	require.InDelta(t, 6.0, got, 1e-9)
}
