package ir

import "fmt"

// OperatorKind discriminates the instruction operator sum type.
type OperatorKind int

const (
	OpAdd OperatorKind = iota
	OpSub
	OpDiv
	OpAnd
	OpOr
	OpLt
	OpLeq
	OpEq
	OpMax
	OpMul     // may widen the result type, for address arithmetic
	OpMad     // multiply-add
	OpMov     // unary
	OpCast    // unary
	OpExp     // unary
	OpLoad    // typed, carries an access pattern + side-effect flag
	OpStore   // typed, carries an access pattern + side-effect flag
	OpTmpLoad // placeholder temp-mem load used by lowerings
	OpTmpStore
)

var binaryOps = map[OperatorKind]bool{
	OpAdd: true, OpSub: true, OpDiv: true, OpAnd: true, OpOr: true,
	OpLt: true, OpLeq: true, OpEq: true, OpMax: true,
}

var unaryOps = map[OperatorKind]bool{OpMov: true, OpCast: true, OpExp: true}

func (k OperatorKind) String() string {
	names := [...]string{"add", "sub", "div", "and", "or", "lt", "leq", "eq", "max",
		"mul", "mad", "mov", "cast", "exp", "load", "store", "tmpload", "tmpstore"}
	if int(k) < len(names) {
		return names[k]
	}
	return "?"
}

// Operator is an instruction's operation together with its operand
// arity/type requirements. Operators self-check: operand
// types must match modulo device type lowering, rounding mode must be
// Exact for an integer result and a genuine rounding variant for a float
// result of a rounding operator (add, sub, mul, div, mad, cast, exp), and (for
// loads/stores) the access pattern's iteration dims must be a subset of
// the instruction's iteration dims.
type Operator struct {
	Kind       OperatorKind
	ResultType Type
	Rounding   RoundingMode

	// Access is populated for OpLoad/OpStore/OpTmpLoad/OpTmpStore.
	Access AccessPattern
	// SideEffect marks a store (or temp-mem store) as observable, meaning
	// the performance model and DCE may not eliminate it.
	SideEffect bool
}

// Arity returns the number of operands the operator expects; every kind
// has a fixed arity (loads carry their address operand plus pattern metadata,
// so their arity in terms of raw Operand values is fixed at 1 here: the
// address; stores additionally take the stored value, arity 2).
func (o Operator) Arity() int {
	switch o.Kind {
	case OpMad:
		return 3
	case OpMov, OpCast, OpExp, OpLoad, OpTmpLoad:
		return 1
	case OpStore, OpTmpStore:
		return 2
	default:
		if binaryOps[o.Kind] || o.Kind == OpMul {
			return 2
		}
		return 1
	}
}

// Check validates an instruction's operands and iteration dims against
// this operator's requirements.
func (o Operator) Check(operands []Operand, iterDims []DimID) error {
	if got, want := len(operands), o.Arity(); got != want {
		return fmt.Errorf("ir: operator %s expects %d operands, got %d", o.Kind, want, got)
	}

	if o.ResultType.Kind == KindInt && o.Rounding != Exact {
		return fmt.Errorf("ir: operator %s has integer result but non-exact rounding %s", o.Kind, o.Rounding)
	}
	if o.ResultType.IsFloat() && o.Rounding == Exact && requiresRounding(o.Kind) {
		return fmt.Errorf("ir: operator %s has float result but exact rounding", o.Kind)
	}

	for _, op := range operands {
		if isMemoryOp(o.Kind) && op.Type.IsPointer() {
			// The address operand of a load/store is a pointer whatever
			// the accessed element type; it is lowered by the device once
			// the memory space is fixed.
			continue
		}
		if !typesCompatible(op.Type, o.ResultType) && !isAddressArith(o.Kind) {
			return fmt.Errorf("ir: operator %s operand type %s incompatible with result type %s", o.Kind, op.Type, o.ResultType)
		}
	}

	if isMemoryOp(o.Kind) {
		dimSet := make(map[DimID]bool, len(iterDims))
		for _, d := range iterDims {
			dimSet[d] = true
		}
		for _, d := range o.Access.IterationDims() {
			if !dimSet[d] {
				return fmt.Errorf("ir: access pattern dimension %s not in instruction iteration dims", d)
			}
		}
	}

	return nil
}

func requiresRounding(k OperatorKind) bool {
	return k == OpAdd || k == OpSub || k == OpMul || k == OpDiv || k == OpMad || k == OpCast || k == OpExp
}

// isAddressArith reports whether operator k is permitted to compute with a
// result wider than its operands, as happens for Mul used in address
// arithmetic.
func isAddressArith(k OperatorKind) bool { return k == OpMul || k == OpMad }

func isMemoryOp(k OperatorKind) bool {
	return k == OpLoad || k == OpStore || k == OpTmpLoad || k == OpTmpStore
}

func typesCompatible(a, b Type) bool {
	if a.IsPointer() && b.IsPointer() {
		return true
	}
	return a.Kind == b.Kind
}
