package model

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ulysseB/Telamon/ir"
)

type flatDevice struct {
	perInst map[ir.InstID]HwPressure
	vector  map[ir.DimID]bool
}

func (d *flatDevice) InstructionPressure(fn *ir.Function, inst ir.InstID) (HwPressure, error) {
	return d.perInst[inst], nil
}

func (d *flatDevice) IsVectorDim(fn *ir.Function, dim ir.DimID) bool {
	return d.vector[dim]
}

func buildAxpy(t *testing.T) (*ir.Function, ir.InstID) {
	t.Helper()
	sig := ir.Signature{Name: "axpy", Params: []ir.Param{{Name: "n", Type: ir.Int(32, false)}}}
	f := ir.NewFunction(sig)
	n, err := ir.NewSize(1, []string{"n"}, 1)
	require.NoError(t, err)
	d := f.AddDimension(n)
	mem := f.AddMemoryRegion(ir.AllocGlobal, n)

	op := ir.Operator{Kind: ir.OpLoad, ResultType: ir.Float(32), Rounding: ir.Exact, Access: ir.Tensor(mem, map[ir.DimID]*ir.Size{d: ir.Const(1)})}
	id, err := f.AddInstruction(op, []ir.Operand{ir.MemoryAddress(mem, ir.LogicalPointer())}, []ir.DimID{d}, true, nil)
	require.NoError(t, err)
	return f, id
}

func TestFastBoundSingleLevel(t *testing.T) {
	f, inst := buildAxpy(t)
	device := &flatDevice{perInst: map[ir.InstID]HwPressure{inst: {Thread: 2, Block: 1, Global: 1}}}
	est := NewEstimator(device)

	bound, err := est.FastBound(f, nil)
	require.NoError(t, err)
	// one dim of size n, not statically known, so it adds nothing to the
	// trip count (1): bound equals the instruction's own dominant pressure.
	require.Equal(t, float64(2), bound)
}

func TestFastBoundIgnoresSkippedInstructions(t *testing.T) {
	f, inst := buildAxpy(t)
	device := &flatDevice{perInst: map[ir.InstID]HwPressure{inst: {Thread: 9}}}
	est := NewEstimator(device)

	bound, err := est.FastBound(f, func(id ir.InstID) (bool, error) { return true, nil })
	require.NoError(t, err)
	require.Equal(t, float64(0), bound)
}

func TestFastBoundExcludesVectorDimFromRepeat(t *testing.T) {
	sig := ir.Signature{Name: "axpy", Params: []ir.Param{{Name: "n", Type: ir.Int(32, false)}}}
	f := ir.NewFunction(sig)
	four, err := ir.NewSize(4, nil, 1)
	require.NoError(t, err)
	d := f.AddDimension(four)
	mem := f.AddMemoryRegion(ir.AllocGlobal, four)
	op := ir.Operator{Kind: ir.OpLoad, ResultType: ir.Float(32), Rounding: ir.Exact, Access: ir.Tensor(mem, map[ir.DimID]*ir.Size{d: ir.Const(1)})}
	inst, err := f.AddInstruction(op, []ir.Operand{ir.MemoryAddress(mem, ir.LogicalPointer())}, []ir.DimID{d}, true, nil)
	require.NoError(t, err)

	device := &flatDevice{perInst: map[ir.InstID]HwPressure{inst: {Thread: 2}}, vector: map[ir.DimID]bool{d: true}}
	est := NewEstimator(device)

	bound, err := est.FastBound(f, nil)
	require.NoError(t, err)
	require.Equal(t, float64(2), bound, "a vectorized dimension's trip count must not multiply the bound")
}
