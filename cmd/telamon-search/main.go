// Command telamon-search runs the autotuning search end to end against
// the in-memory mock device: it builds a small axpy-style kernel, defines
// its decision space, and explores it with both search algorithms.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ulysseB/Telamon/device"
	"github.com/ulysseB/Telamon/domain"
	"github.com/ulysseB/Telamon/explorer"
	"github.com/ulysseB/Telamon/ir"
	"github.com/ulysseB/Telamon/space"
)

var (
	dimKinds  = domain.NewUniverse([]string{"block", "thread", "loop", "unroll", "vector"})
	memSpaces = domain.NewUniverse([]string{"global", "shared", "privatised_global"})
	tileSizes = domain.NewNumericUniverse([]int64{1, 2, 4, 8, 16, 32})
)

// buildAxpy constructs y[i] = a*x[i] + y[i] over one parametric dimension.
func buildAxpy() (*ir.Function, error) {
	sig := ir.Signature{Name: "axpy", Params: []ir.Param{
		{Name: "n", Type: ir.Int(32, false)},
		{Name: "a", Type: ir.Float(32)},
	}}
	f := ir.NewFunction(sig)

	n, err := ir.NewSize(1, []string{"n"}, 1)
	if err != nil {
		return nil, err
	}
	d := f.AddDimension(n)
	x := f.AddMemoryRegion(ir.AllocGlobal, n)
	y := f.AddMemoryRegion(ir.AllocGlobal, n)

	f32 := ir.Float(32)
	loadX := ir.Operator{Kind: ir.OpLoad, ResultType: f32, Access: ir.Tensor(x, map[ir.DimID]*ir.Size{d: ir.Const(1)})}
	xi, err := f.AddInstruction(loadX, []ir.Operand{ir.MemoryAddress(x, ir.LogicalPointer())}, []ir.DimID{d}, true, nil)
	if err != nil {
		return nil, err
	}
	loadY := ir.Operator{Kind: ir.OpLoad, ResultType: f32, Access: ir.Tensor(y, map[ir.DimID]*ir.Size{d: ir.Const(1)})}
	yi, err := f.AddInstruction(loadY, []ir.Operand{ir.MemoryAddress(y, ir.LogicalPointer())}, []ir.DimID{d}, true, nil)
	if err != nil {
		return nil, err
	}

	xInst, _ := f.Instruction(xi)
	yInst, _ := f.Instruction(yi)
	mad := ir.Operator{Kind: ir.OpMad, ResultType: f32, Rounding: ir.Nearest}
	axpyID, err := f.AddInstruction(mad, []ir.Operand{
		ir.Parameter("a", f32),
		ir.InstResult(*xInst.Result, f32, nil),
		ir.InstResult(*yInst.Result, f32, nil),
	}, []ir.DimID{d}, true, nil)
	if err != nil {
		return nil, err
	}

	axpyInst, _ := f.Instruction(axpyID)
	store := ir.Operator{Kind: ir.OpStore, ResultType: f32, Access: ir.Tensor(y, map[ir.DimID]*ir.Size{d: ir.Const(1)}), SideEffect: true}
	_, err = f.AddInstruction(store, []ir.Operand{
		ir.MemoryAddress(y, ir.LogicalPointer()),
		ir.InstResult(*axpyInst.Result, f32, nil),
	}, []ir.DimID{d}, false, nil)
	if err != nil {
		return nil, err
	}

	f.Freeze()
	return f, nil
}

// buildRegistry defines the decision space: a kind per dimension, a tile
// size per dimension, and a memory space per region, with the tile size
// of a vector dimension filtered to the vector width the way a real
// kernel's generated tables would be.
func buildRegistry() *space.Registry {
	r := space.NewRegistry()

	r.Register(&space.ChoiceDef{
		Name: explorer.DimKindChoice,
		Instances: func(f *ir.Function) [][]uint32 {
			out := make([][]uint32, 0, len(f.Dimensions()))
			for _, d := range f.Dimensions() {
				out = append(out, []uint32{uint32(d)})
			}
			return out
		},
		InitialDomain: func(st *space.Store, args []uint32) (domain.Value, error) {
			return dimKinds.Full(), nil
		},
	})

	r.Register(&space.ChoiceDef{
		Name: "tile_size",
		Instances: func(f *ir.Function) [][]uint32 {
			out := make([][]uint32, 0, len(f.Dimensions()))
			for _, d := range f.Dimensions() {
				out = append(out, []uint32{uint32(d)})
			}
			return out
		},
		InitialDomain: func(st *space.Store, args []uint32) (domain.Value, error) {
			return tileSizes.Full(), nil
		},
		// A vectorized dimension cannot exceed the ISA's vector width.
		FilterSelf: func(st *space.Store, args []uint32) (domain.Value, error) {
			kind := st.Get(space.NewKey(explorer.DimKindChoice, args...))
			es, ok := kind.(*domain.EnumSet)
			if ok && es.IsConstrained() && es.Has(explorer.DimKindVector) {
				return domain.NewNumericSet(tileSizes, 1, 2, 4), nil
			}
			return tileSizes.Full(), nil
		},
		Watches: []string{explorer.DimKindChoice},
	})

	r.Register(&space.ChoiceDef{
		Name: "mem_space",
		Instances: func(f *ir.Function) [][]uint32 {
			out := make([][]uint32, 0, len(f.MemoryRegions()))
			for _, m := range f.MemoryRegions() {
				out = append(out, []uint32{uint32(m)})
			}
			return out
		},
		InitialDomain: func(st *space.Store, args []uint32) (domain.Value, error) {
			return memSpaces.Full(), nil
		},
	})

	return r
}

func runSearch(name string, cfg explorer.Config, fn *ir.Function) {
	fmt.Printf("=== %s ===\n", name)
	dev := device.NewMockDevice(42)
	start := time.Now()
	res, err := explorer.Search(context.Background(), cfg, dev, buildRegistry(), fn, nil)
	if err != nil {
		log.Fatalf("search failed: %v", err)
	}
	if res.Best == nil {
		fmt.Println("no feasible implementation found")
		return
	}
	fmt.Printf("best score:   %.1f ns (bound %.1f ns)\n", res.Score, *res.Best.Bound)
	fmt.Printf("decisions:    %d\n", res.Best.Depth)
	fmt.Printf("evaluations:  %d (%s, %v)\n\n", res.Evaluations, res.Cause, time.Since(start).Round(time.Millisecond))
}

func main() {
	fn, err := buildAxpy()
	if err != nil {
		log.Fatalf("build axpy: %v", err)
	}

	outDir := "telamon-out"
	if len(os.Args) > 1 {
		outDir = os.Args[1]
	}

	runSearch("MCTS / TAG", explorer.Config{
		Algorithm:      explorer.AlgorithmMCTS,
		NumWorkers:     2,
		MaxEvaluations: 200,
		TreePolicy:     explorer.TreePolicyConfig{Kind: "tag", TopK: 10, Delta: 0.5},
		ChoiceOrdering: []string{explorer.DimKindChoice, "tile_size", "mem_space"},
		NumEvals:       5,
		NumOutliers:    1,
		OutputDir:      outDir,
	}, fn)

	runSearch("BoundOrder", explorer.Config{
		Algorithm:      explorer.AlgorithmBoundOrder,
		MaxEvaluations: 200,
		NumEvals:       5,
		NumOutliers:    1,
	}, fn)
}
