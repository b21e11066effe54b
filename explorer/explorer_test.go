package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ulysseB/Telamon/device"
	"github.com/ulysseB/Telamon/domain"
	"github.com/ulysseB/Telamon/eval"
	"github.com/ulysseB/Telamon/eventlog"
	"github.com/ulysseB/Telamon/ir"
	"github.com/ulysseB/Telamon/monitor"
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

func TestSearchMCTSFindsCandidate(t *testing.T) {
	cfg := Config{
		Algorithm:      AlgorithmMCTS,
		MaxEvaluations: 8,
		NumEvals:       4,
		NumOutliers:    1,
		TreePolicy:     TreePolicyConfig{Kind: "uct", C: 0.5},
	}
	dev := device.NewMockDevice(1)
	res, err := Search(context.Background(), cfg, dev, buildSideRegistry(), buildSideFunction(2), nil)
	require.NoError(t, err)
	require.NotNil(t, res.Best)
	require.True(t, res.Best.Space.IsConstrained())
	require.Greater(t, res.Score, 0.0)
	require.Equal(t, monitor.CauseMaxEvaluations, res.Cause)
	require.GreaterOrEqual(t, res.Evaluations, uint64(8))
}

func TestSearchBoundOrderExhaustsSpace(t *testing.T) {
	cfg := Config{
		Algorithm:   AlgorithmBoundOrder,
		NumEvals:    2,
		NumOutliers: 0,
	}
	dev := device.NewMockDevice(2)
	res, err := Search(context.Background(), cfg, dev, buildSideRegistry(), buildSideFunction(2), nil)
	require.NoError(t, err)
	require.NotNil(t, res.Best)
	require.True(t, res.Best.Space.IsConstrained())
	require.Equal(t, monitor.CauseExhausted, res.Cause)
	// 2 binary dims: once the first measurement lands, every later
	// candidate with an equal-or-worse bound is pruned, so at least one
	// and at most 4 evaluations happen.
	require.GreaterOrEqual(t, res.Evaluations, uint64(1))
	require.LessOrEqual(t, res.Evaluations, uint64(4))
}

func TestSearchPersistsOutputs(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		Algorithm:      AlgorithmMCTS,
		MaxEvaluations: 4,
		NumEvals:       2,
		NumOutliers:    0,
		OutputDir:      dir,
	}
	dev := device.NewMockDevice(3)
	res, err := Search(context.Background(), cfg, dev, buildSideRegistry(), buildSideFunction(2), nil)
	require.NoError(t, err)
	require.NotNil(t, res.Best)

	data, err := os.ReadFile(filepath.Join(dir, "best_actions.json"))
	require.NoError(t, err)
	var dump struct {
		ScoreNs float64                 `json:"score_ns"`
		Actions []eventlog.ActionRecord `json:"actions"`
	}
	require.NoError(t, json.Unmarshal(data, &dump))
	require.Equal(t, res.Score, dump.ScoreNs)
	require.Len(t, dump.Actions, res.Best.Depth)

	source, err := os.ReadFile(filepath.Join(dir, "best.source"))
	require.NoError(t, err)
	require.Contains(t, string(source), "mock kernel")

	watch, err := os.ReadFile(filepath.Join(dir, "watch.log"))
	require.NoError(t, err)
	require.Contains(t, string(watch), `"event":"new_best"`)

	_, err = os.Stat(filepath.Join(dir, "eventlog.bin.gz"))
	require.NoError(t, err)
}

func TestSearchEventlogReplaysBest(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		Algorithm:      AlgorithmBoundOrder,
		NumEvals:       2,
		NumOutliers:    0,
		MaxEvaluations: 4,
		EventlogPath:   filepath.Join(dir, "events.gz"),
	}
	dev := device.NewMockDevice(4)
	registry := buildSideRegistry()
	fn := buildSideFunction(2)
	res, err := Search(context.Background(), cfg, dev, registry, fn, nil)
	require.NoError(t, err)
	require.NotNil(t, res.Best)

	f, err := os.Open(cfg.EventlogPath)
	require.NoError(t, err)
	defer f.Close()
	r, err := eventlog.NewReader(f)
	require.NoError(t, err)
	msgs, err := r.ReadAll()
	require.NoError(t, err)

	// Find the evaluation whose score matches the best and replay its
	// node; the reconstructed candidate must match the winner exactly
	var nodeID uint64
	found := false
	for _, m := range msgs {
		if m.Evaluation != nil && m.Evaluation.Score == res.Score {
			nodeID = m.Evaluation.ID
			found = true
		}
	}
	require.True(t, found)

	sp, err := space.NewSearchSpace(registry, fn)
	require.NoError(t, err)
	rebuilt, err := eventlog.Replay(msgs, nodeID, space.NewCandidate(sp))
	require.NoError(t, err)
	require.Equal(t, res.Best.Depth, rebuilt.Depth)
	for _, k := range res.Best.Space.Store().Keys() {
		require.Equal(t,
			res.Best.Space.Store().Get(k).String(),
			rebuilt.Space.Store().Get(k).String())
	}
}

func TestSearchStrictMismatchSurfaces(t *testing.T) {
	cfg := Config{
		Algorithm:      AlgorithmBoundOrder,
		NumEvals:       1,
		MaxEvaluations: 4,
		Strict:         true,
	}
	dev := device.NewMockDevice(6)
	failCheck := func(k device.Kernel) error { return fmt.Errorf("output deviates") }
	_, err := Search(context.Background(), cfg, dev, buildSideRegistry(), buildSideFunction(1), failCheck)
	require.Error(t, err)
	var mismatch *eval.ReferenceMismatchError
	require.ErrorAs(t, err, &mismatch)
	require.Contains(t, mismatch.Dump(), "output deviates")
}

func TestSearchNonStrictMismatchContinues(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		Algorithm:      AlgorithmBoundOrder,
		NumEvals:       1,
		MaxEvaluations: 4,
		OutputDir:      dir,
	}
	dev := device.NewMockDevice(7)
	failCheck := func(k device.Kernel) error { return fmt.Errorf("output deviates") }
	res, err := Search(context.Background(), cfg, dev, buildSideRegistry(), buildSideFunction(1), failCheck)
	require.NoError(t, err)
	// Every candidate fails its check, so no best exists, but the search
	// itself terminates normally.
	require.Nil(t, res.Best)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	require.Contains(t, names, "mismatch_depth1.json")
}

func TestDefaultChoiceOrderingRanksKindsThenSizesThenMemory(t *testing.T) {
	r := space.NewRegistry()
	oneInstance := func(f *ir.Function) [][]uint32 { return [][]uint32{{0}} }
	for _, name := range []string{"mem_space", "tile_size", DimKindChoice} {
		r.Register(&space.ChoiceDef{
			Name:      name,
			Instances: oneInstance,
			InitialDomain: func(st *space.Store, args []uint32) (domain.Value, error) {
				return sideUniverse.Full(), nil
			},
		})
	}
	sp, err := space.NewSearchSpace(r, buildSideFunction(1))
	require.NoError(t, err)
	st := sp.Store()

	order := Config{}.withDefaults().choiceOrder()
	var picked []string
	for {
		k, ok := order.Next(st)
		if !ok {
			break
		}
		picked = append(picked, k.Choice)
		require.NoError(t, st.Propagate(k, domain.NewEnumSet(sideUniverse, "left")))
	}
	// Lexicographic order would give mem_space before tile_size; the
	// documented default puts sizes/tilings ahead of memory spaces.
	require.Equal(t, []string{DimKindChoice, "tile_size", "mem_space"}, picked)
}

func TestTreePolicyConfigRejectsUnknown(t *testing.T) {
	cfg := Config{TreePolicy: TreePolicyConfig{Kind: "nope"}}.withDefaults()
	_, err := cfg.treePolicy(nil)
	require.Error(t, err)
}

func TestSearchTimeoutTerminates(t *testing.T) {
	cfg := Config{
		Algorithm:   AlgorithmMCTS,
		Timeout:     50 * time.Millisecond,
		NumEvals:    1,
		NumOutliers: 0,
	}
	dev := device.NewMockDevice(5)
	res, err := Search(context.Background(), cfg, dev, buildSideRegistry(), buildSideFunction(3), nil)
	require.NoError(t, err)
	require.Equal(t, monitor.CauseTimeout, res.Cause)
}
