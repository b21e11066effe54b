package ir

import "fmt"

// AllocScheme is a memory region's placement.
type AllocScheme int

const (
	AllocGlobal AllocScheme = iota
	AllocPrivatizedGlobal
	AllocShared
)

func (a AllocScheme) String() string {
	switch a {
	case AllocGlobal:
		return "global"
	case AllocPrivatizedGlobal:
		return "privatized_global"
	case AllocShared:
		return "shared"
	default:
		return "?"
	}
}

// MemoryRegion is a block of device memory an access pattern can target.
type MemoryRegion struct {
	ID    MemID
	Alloc AllocScheme
	Size  *Size
}

// Dimension is an iteration domain: a size expression plus its identifier.
type Dimension struct {
	ID   DimID
	Size *Size
}

// InductionVar is an additive chain keyed by the dimension it strides
// over: Base + Increment * (current iteration index).
type InductionVar struct {
	Dim       DimID
	Base      Operand
	Increment Operand
}

// Reduction names the initializing instruction and the set of dimensions
// a reduction chain accumulates over.
type Reduction struct {
	Init InstID
	On   []DimID
}

// Variable is an SSA-like producer: the result of DefInst, consumed by
// later instructions through dimension maps.
type Variable struct {
	ID      VarID
	DefInst InstID
	Type    Type
}

// Instruction is an operator applied to operands over a set of iteration
// dimensions, optionally producing a result variable and/or closing a
// reduction.
type Instruction struct {
	ID        InstID
	Op        Operator
	Operands  []Operand
	IterDims  []DimID
	Result    *VarID
	Reduction *Reduction
}

// Param is a named, typed signature entry.
type Param struct {
	Name string
	Type Type
}

// Signature names the kernel and its parameters.
type Signature struct {
	Name   string
	Params []Param
}

// Function is the frozen-then-extendable tensor program the search space
// is built from. Identifiers are dense integers minted
// by per-kind counters; Freeze fixes the current ids as stable, and Extend
// appends new ids, recording them in a NewObjs delta.
type Function struct {
	Signature Signature

	dims   map[DimID]*Dimension
	insts  map[InstID]*Instruction
	mems   map[MemID]*MemoryRegion
	ivars  map[DimID]*InductionVar
	vars   map[VarID]*Variable
	dimMap map[DimID]map[DimID]bool // registered inter-instruction dim maps: from -> {to...}

	dimCounter  idCounter
	instCounter idCounter
	memCounter  idCounter
	varCounter  idCounter

	frozen bool
}

// NewFunction builds an empty, unfrozen function with the given signature.
func NewFunction(sig Signature) *Function {
	return &Function{
		Signature: sig,
		dims:      make(map[DimID]*Dimension),
		insts:     make(map[InstID]*Instruction),
		mems:      make(map[MemID]*MemoryRegion),
		ivars:     make(map[DimID]*InductionVar),
		vars:      make(map[VarID]*Variable),
		dimMap:    make(map[DimID]map[DimID]bool),
	}
}

// AddDimension mints a new dimension id and registers it.
func (f *Function) AddDimension(size *Size) DimID {
	id := DimID(f.dimCounter.mint())
	f.dims[id] = &Dimension{ID: id, Size: size}
	return id
}

// AddMemoryRegion mints a new memory region id and registers it.
func (f *Function) AddMemoryRegion(alloc AllocScheme, size *Size) MemID {
	id := MemID(f.memCounter.mint())
	f.mems[id] = &MemoryRegion{ID: id, Alloc: alloc, Size: size}
	return id
}

// AddInductionVar registers an induction variable keyed by dim. Only one
// induction variable may be registered per dimension.
func (f *Function) AddInductionVar(dim DimID, base, incr Operand) error {
	if _, ok := f.dims[dim]; !ok {
		return fmt.Errorf("ir: induction var references unknown dimension %s", dim)
	}
	if _, exists := f.ivars[dim]; exists {
		return fmt.Errorf("ir: dimension %s already has an induction variable", dim)
	}
	f.ivars[dim] = &InductionVar{Dim: dim, Base: base, Increment: incr}
	return nil
}

// RegisterDimMap declares that `to` may be referenced, through a dimension
// map, from an instruction iterating `from`. Every DimMap an operand uses
// must be pre-registered.
func (f *Function) RegisterDimMap(from, to DimID) {
	if f.dimMap[from] == nil {
		f.dimMap[from] = make(map[DimID]bool)
	}
	f.dimMap[from][to] = true
}

func (f *Function) dimMapRegistered(from, to DimID) bool {
	return f.dimMap[from] != nil && f.dimMap[from][to]
}

// AddInstruction validates and registers a new instruction, optionally
// producing a result variable and/or closing a reduction.
func (f *Function) AddInstruction(op Operator, operands []Operand, iterDims []DimID, producesResult bool, reduction *Reduction) (InstID, error) {
	if err := f.validateOperands(operands, iterDims); err != nil {
		return 0, err
	}
	if err := op.Check(operands, iterDims); err != nil {
		return 0, err
	}
	if reduction != nil {
		if _, ok := f.insts[reduction.Init]; !ok {
			return 0, fmt.Errorf("ir: reduction init instruction %s does not exist", reduction.Init)
		}
		if len(reduction.On) == 0 {
			return 0, fmt.Errorf("ir: reduction must name at least one reduction dimension")
		}
	}

	id := InstID(f.instCounter.mint())
	inst := &Instruction{ID: id, Op: op, Operands: operands, IterDims: append([]DimID(nil), iterDims...), Reduction: reduction}
	f.insts[id] = inst

	if producesResult {
		vid := VarID(f.varCounter.mint())
		f.vars[vid] = &Variable{ID: vid, DefInst: id, Type: op.ResultType}
		inst.Result = &vid
	}
	return id, nil
}

// validateOperands checks that every operand references existing ids and
// that dim-map pairs it uses were pre-registered.
func (f *Function) validateOperands(operands []Operand, iterDims []DimID) error {
	for _, d := range iterDims {
		if _, ok := f.dims[d]; !ok {
			return fmt.Errorf("ir: iteration dimension %s does not exist", d)
		}
	}
	for _, op := range operands {
		switch op.Kind {
		case OpParameter:
			found := false
			for _, p := range f.Signature.Params {
				if p.Name == op.Parameter {
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("ir: operand references unknown parameter %q", op.Parameter)
			}
		case OpInstResult:
			if _, ok := f.vars[op.Producer]; !ok {
				return fmt.Errorf("ir: operand references unknown variable %s", op.Producer)
			}
			for _, dm := range op.DimMaps {
				if !f.dimMapRegistered(dm.From, dm.To) {
					return fmt.Errorf("ir: dim map %s->%s not registered", dm.From, dm.To)
				}
			}
		case OpReduction:
			if _, ok := f.insts[op.ReductionOf]; !ok {
				return fmt.Errorf("ir: operand references unknown instruction %s", op.ReductionOf)
			}
			for _, d := range op.ReductionOn {
				if _, ok := f.dims[d]; !ok {
					return fmt.Errorf("ir: reduction dimension %s does not exist", d)
				}
			}
		case OpInductionVar:
			if _, ok := f.dims[op.InductionVar]; !ok {
				return fmt.Errorf("ir: operand references unknown dimension %s", op.InductionVar)
			}
		case OpMemoryAddress:
			if _, ok := f.mems[op.Memory]; !ok {
				return fmt.Errorf("ir: operand references unknown memory region %s", op.Memory)
			}
		case OpDimIndex:
			if _, ok := f.dims[op.Dim]; !ok {
				return fmt.Errorf("ir: operand references unknown dimension %s", op.Dim)
			}
		}
	}
	return nil
}

// Freeze fixes the current ids as stable. Subsequent calls to Extend
// report only ids minted after this point.
func (f *Function) Freeze() {
	f.dimCounter.freeze()
	f.instCounter.freeze()
	f.memCounter.freeze()
	f.varCounter.freeze()
	f.frozen = true
}

// Frozen reports whether Freeze has been called at least once.
func (f *Function) Frozen() bool { return f.frozen }

// Extend runs fn, which may call AddDimension/AddInstruction/etc. to grow
// the function, then returns the NewObjs delta of everything it minted.
// Used by lowerings: the delta drives the store's alloc().
func (f *Function) Extend(fn func(*Function) error) (*NewObjs, error) {
	f.Freeze()
	if err := fn(f); err != nil {
		return nil, err
	}
	delta := &NewObjs{}
	for _, id := range f.dimCounter.newSince() {
		delta.Dims = append(delta.Dims, DimID(id))
	}
	for _, id := range f.instCounter.newSince() {
		delta.Insts = append(delta.Insts, InstID(id))
	}
	for _, id := range f.memCounter.newSince() {
		delta.Mems = append(delta.Mems, MemID(id))
	}
	for _, id := range f.varCounter.newSince() {
		delta.Vars = append(delta.Vars, VarID(id))
	}
	f.Freeze()
	return delta, nil
}

// Dimension returns the dimension with the given id.
func (f *Function) Dimension(id DimID) (*Dimension, bool) { d, ok := f.dims[id]; return d, ok }

// Instruction returns the instruction with the given id.
func (f *Function) Instruction(id InstID) (*Instruction, bool) { i, ok := f.insts[id]; return i, ok }

// MemoryRegion returns the memory region with the given id.
func (f *Function) MemoryRegion(id MemID) (*MemoryRegion, bool) { m, ok := f.mems[id]; return m, ok }

// InductionVar returns the induction variable keyed by dim, if any.
func (f *Function) InductionVar(dim DimID) (*InductionVar, bool) { v, ok := f.ivars[dim]; return v, ok }

// Variable returns the SSA-like variable with the given id.
func (f *Function) Variable(id VarID) (*Variable, bool) { v, ok := f.vars[id]; return v, ok }

// Dimensions returns every dimension id currently registered, in minting order.
func (f *Function) Dimensions() []DimID {
	out := make([]DimID, 0, len(f.dims))
	for i := uint32(0); i < f.dimCounter.next; i++ {
		if _, ok := f.dims[DimID(i)]; ok {
			out = append(out, DimID(i))
		}
	}
	return out
}

// MemoryRegions returns every memory region id currently registered, in
// minting order.
func (f *Function) MemoryRegions() []MemID {
	out := make([]MemID, 0, len(f.mems))
	for i := uint32(0); i < f.memCounter.next; i++ {
		if _, ok := f.mems[MemID(i)]; ok {
			out = append(out, MemID(i))
		}
	}
	return out
}

// Instructions returns every instruction id currently registered, in
// minting order.
func (f *Function) Instructions() []InstID {
	out := make([]InstID, 0, len(f.insts))
	for i := uint32(0); i < f.instCounter.next; i++ {
		if _, ok := f.insts[InstID(i)]; ok {
			out = append(out, InstID(i))
		}
	}
	return out
}
