package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testSig() Signature {
	return Signature{Name: "axpy", Params: []Param{{Name: "n", Type: Int(32, false)}}}
}

func TestFunctionBuildAndValidate(t *testing.T) {
	f := NewFunction(testSig())

	n, _ := NewSize(1, []string{"n"}, 1)
	d := f.AddDimension(n)
	mem := f.AddMemoryRegion(AllocGlobal, n)

	op := Operator{Kind: OpLoad, ResultType: Float(32), Rounding: Exact, Access: Tensor(mem, map[DimID]*Size{d: Const(1)})}
	_, err := f.AddInstruction(op, []Operand{MemoryAddress(mem, LogicalPointer())}, []DimID{d}, true, nil)
	require.NoError(t, err)

	require.Len(t, f.Dimensions(), 1)
	require.Len(t, f.Instructions(), 1)
}

func TestFunctionRejectsUnknownOperand(t *testing.T) {
	f := NewFunction(testSig())
	d := f.AddDimension(Const(4))

	op := Operator{Kind: OpMov, ResultType: Float(32), Rounding: Exact}
	_, err := f.AddInstruction(op, []Operand{{Kind: OpInstResult, Type: Float(32), Producer: 99}}, []DimID{d}, false, nil)
	require.Error(t, err)
}

func TestFunctionRejectsUnregisteredDimMap(t *testing.T) {
	f := NewFunction(testSig())
	d1 := f.AddDimension(Const(4))
	d2 := f.AddDimension(Const(4))

	prodOp := Operator{Kind: OpMov, ResultType: Float(32), Rounding: Exact}
	instID, err := f.AddInstruction(prodOp, []Operand{FloatConstant(1, Float(32))}, []DimID{d1}, true, nil)
	require.NoError(t, err)
	inst, _ := f.Instruction(instID)

	consumeOp := Operator{Kind: OpMov, ResultType: Float(32), Rounding: Exact}
	_, err = f.AddInstruction(consumeOp, []Operand{InstResult(*inst.Result, Float(32), []DimMap{{From: d2, To: d1}})}, []DimID{d2}, false, nil)
	require.Error(t, err)

	f.RegisterDimMap(d2, d1)
	_, err = f.AddInstruction(consumeOp, []Operand{InstResult(*inst.Result, Float(32), []DimMap{{From: d2, To: d1}})}, []DimID{d2}, false, nil)
	require.NoError(t, err)
}

func TestFunctionFreezeExtend(t *testing.T) {
	f := NewFunction(testSig())
	f.AddDimension(Const(4))
	f.Freeze()

	var newDim DimID
	delta, err := f.Extend(func(f *Function) error {
		newDim = f.AddDimension(Const(8))
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []DimID{newDim}, delta.Dims)
	require.False(t, delta.IsEmpty())
}

func TestOperatorSelfCheckRejectsNonExactIntegerRounding(t *testing.T) {
	op := Operator{Kind: OpAdd, ResultType: Int(32, true), Rounding: Nearest}
	err := op.Check([]Operand{IntConstant(1, Int(32, true)), IntConstant(2, Int(32, true))}, nil)
	require.Error(t, err)
}

func TestSizeSimplify(t *testing.T) {
	s, err := NewSize(4, []string{"n"}, 2)
	require.NoError(t, err)
	require.Equal(t, uint64(2), s.Factor)
	require.Equal(t, uint64(1), s.Divisor)

	v, ok := Const(6).StaticValue()
	require.True(t, ok)
	require.Equal(t, uint64(6), v)
}
