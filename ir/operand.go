package ir

import "fmt"

// OperandKind discriminates the operand sum type.
type OperandKind int

const (
	// OpParameter references a named signature parameter.
	OpParameter OperandKind = iota
	// OpConstant is a typed integer/float/bitfield literal.
	OpConstant
	// OpInstResult projects a prior instruction's result variable through
	// a dimension map (a producer/consumer relationship across loop nests).
	OpInstResult
	// OpReduction references the accumulated result of a reduction chain.
	OpReduction
	// OpInductionVar references an induction variable's current value.
	OpInductionVar
	// OpMemoryAddress computes the address of a memory region.
	OpMemoryAddress
	// OpDimIndex references the current index of an iteration dimension.
	OpDimIndex
)

// DimMap pairs a dimension in the consuming instruction with the
// corresponding dimension in the producing instruction. Every DimMap used
// by an operand must be pre-registered on the Function.
type DimMap struct {
	From DimID
	To   DimID
}

// Operand is the sum type of every value an instruction can consume.
// Exactly one of the typed fields is meaningful, selected by Kind.
type Operand struct {
	Kind OperandKind
	Type Type

	Parameter string
	Constant  ConstantValue

	Producer VarID
	DimMaps  []DimMap

	ReductionOf InstID
	ReductionOn []DimID

	InductionVar DimID // dimension the induction variable is keyed by

	Memory MemID

	Dim DimID
}

// ConstantValue is a typed literal: exactly one field is populated,
// matching the operand's Type.
type ConstantValue struct {
	Int   int64
	Float float64
	Bits  uint64
}

// Parameter builds a parameter-reference operand.
func Parameter(name string, t Type) Operand { return Operand{Kind: OpParameter, Type: t, Parameter: name} }

// IntConstant builds an integer literal operand.
func IntConstant(v int64, t Type) Operand {
	return Operand{Kind: OpConstant, Type: t, Constant: ConstantValue{Int: v}}
}

// FloatConstant builds a floating point literal operand.
func FloatConstant(v float64, t Type) Operand {
	return Operand{Kind: OpConstant, Type: t, Constant: ConstantValue{Float: v}}
}

// InstResult builds an operand projecting a producer's result through dim
// maps into the consuming instruction's iteration space.
func InstResult(producer VarID, t Type, maps []DimMap) Operand {
	return Operand{Kind: OpInstResult, Type: t, Producer: producer, DimMaps: append([]DimMap(nil), maps...)}
}

// ReductionOperand builds an operand referencing a reduction's accumulated value.
func ReductionOperand(of InstID, on []DimID, t Type) Operand {
	return Operand{Kind: OpReduction, Type: t, ReductionOf: of, ReductionOn: append([]DimID(nil), on...)}
}

// InductionVarRef builds an operand referencing an induction variable.
func InductionVarRef(dim DimID, t Type) Operand {
	return Operand{Kind: OpInductionVar, Type: t, InductionVar: dim}
}

// MemoryAddress builds an operand computing a memory region's base address.
func MemoryAddress(mem MemID, t Type) Operand {
	return Operand{Kind: OpMemoryAddress, Type: t, Memory: mem}
}

// DimIndex builds an operand referencing a dimension's loop index.
func DimIndex(dim DimID, t Type) Operand { return Operand{Kind: OpDimIndex, Type: t, Dim: dim} }

func (o Operand) String() string {
	switch o.Kind {
	case OpParameter:
		return fmt.Sprintf("param(%s):%s", o.Parameter, o.Type)
	case OpConstant:
		if o.Type.IsFloat() {
			return fmt.Sprintf("%g:%s", o.Constant.Float, o.Type)
		}
		return fmt.Sprintf("%d:%s", o.Constant.Int, o.Type)
	case OpInstResult:
		return fmt.Sprintf("%s:%s", o.Producer, o.Type)
	case OpReduction:
		return fmt.Sprintf("reduce(%s):%s", o.ReductionOf, o.Type)
	case OpInductionVar:
		return fmt.Sprintf("indvar(%s):%s", o.InductionVar, o.Type)
	case OpMemoryAddress:
		return fmt.Sprintf("addr(%s):%s", o.Memory, o.Type)
	case OpDimIndex:
		return fmt.Sprintf("idx(%s):%s", o.Dim, o.Type)
	default:
		return "?"
	}
}
