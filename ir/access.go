package ir

import "fmt"

// AccessKind discriminates the two access-pattern shapes.
type AccessKind int

const (
	// AccessUnknown means the pattern cannot be statically characterized;
	// it optionally still names the memory region it targets.
	AccessUnknown AccessKind = iota
	// AccessTensor is a per-dimension strided access into a memory region.
	AccessTensor
)

// AccessPattern describes how an instruction's load/store touches memory.
type AccessPattern struct {
	Kind AccessKind

	// Memory is set for AccessTensor, and optionally for AccessUnknown.
	Memory   MemID
	HasMem   bool
	Strides  map[DimID]*Size
	IterDims []DimID
}

// Unknown builds an access pattern with no statically known structure.
func Unknown(mem *MemID) AccessPattern {
	if mem == nil {
		return AccessPattern{Kind: AccessUnknown}
	}
	return AccessPattern{Kind: AccessUnknown, Memory: *mem, HasMem: true}
}

// Tensor builds a per-dimension strided access pattern.
func Tensor(mem MemID, strides map[DimID]*Size) AccessPattern {
	dims := make([]DimID, 0, len(strides))
	for d := range strides {
		dims = append(dims, d)
	}
	return AccessPattern{Kind: AccessTensor, Memory: mem, HasMem: true, Strides: strides, IterDims: dims}
}

// PointerType derives the access pattern's pointer representation. Before
// the memory space backing Memory is fixed, this is a logical pointer; the
// device backend lowers it once the space is known.
func (a AccessPattern) PointerType() Type { return LogicalPointer() }

// IterationDims returns the dimensions the pattern enumerates.
func (a AccessPattern) IterationDims() []DimID { return a.IterDims }

func (a AccessPattern) String() string {
	switch a.Kind {
	case AccessTensor:
		return fmt.Sprintf("tensor(%s, dims=%v)", a.Memory, a.IterDims)
	default:
		if a.HasMem {
			return fmt.Sprintf("unknown(%s)", a.Memory)
		}
		return "unknown"
	}
}
