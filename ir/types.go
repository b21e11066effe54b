package ir

import "fmt"

// TypeKind distinguishes the families of value a Type can describe.
type TypeKind int

const (
	// KindInt is a fixed-width signed or unsigned integer.
	KindInt TypeKind = iota
	// KindFloat is an IEEE floating point value.
	KindFloat
	// KindBitfield is an opaque bag of bits (used for typed bitcasts).
	KindBitfield
	// KindPointerLogical is a logical pointer type, lowered once the
	// memory space it addresses is fixed.
	KindPointerLogical
	// KindPointer32 is a 32-bit device pointer.
	KindPointer32
	// KindPointer64 is a 64-bit device pointer.
	KindPointer64
)

// Type describes the representation of an operand or instruction result.
type Type struct {
	Kind   TypeKind
	Bits   int
	Signed bool
}

// Int builds a signed or unsigned integer type of the given width.
func Int(bits int, signed bool) Type { return Type{Kind: KindInt, Bits: bits, Signed: signed} }

// Float builds a floating point type of the given width.
func Float(bits int) Type { return Type{Kind: KindFloat, Bits: bits} }

// Bitfield builds an opaque bitfield type of the given width.
func Bitfield(bits int) Type { return Type{Kind: KindBitfield, Bits: bits} }

// LogicalPointer builds a pointer type not yet lowered to a concrete width.
func LogicalPointer() Type { return Type{Kind: KindPointerLogical} }

// IsPointer reports whether t is any flavor of pointer type.
func (t Type) IsPointer() bool {
	return t.Kind == KindPointerLogical || t.Kind == KindPointer32 || t.Kind == KindPointer64
}

// IsFloat reports whether t is a floating point type.
func (t Type) IsFloat() bool { return t.Kind == KindFloat }

// Lower resolves a logical pointer type to a concrete width, matching the
// device's pointer size. Non-pointer types are returned unchanged.
func (t Type) Lower(bits int) Type {
	if t.Kind != KindPointerLogical {
		return t
	}
	if bits == 32 {
		return Type{Kind: KindPointer32, Bits: 32}
	}
	return Type{Kind: KindPointer64, Bits: 64}
}

func (t Type) String() string {
	switch t.Kind {
	case KindInt:
		if t.Signed {
			return fmt.Sprintf("i%d", t.Bits)
		}
		return fmt.Sprintf("u%d", t.Bits)
	case KindFloat:
		return fmt.Sprintf("f%d", t.Bits)
	case KindBitfield:
		return fmt.Sprintf("bits%d", t.Bits)
	case KindPointerLogical:
		return "ptr(?)"
	case KindPointer32:
		return "ptr32"
	case KindPointer64:
		return "ptr64"
	default:
		return "?"
	}
}

// RoundingMode describes how an arithmetic operator rounds its result.
// Operators self-check: rounding is Exact when the operator is over
// integers, and a genuine rounding variant when a rounding operator (add,
// sub, mul, div, mad, cast, exp) is over floats; other float operators
// such as mov and load may be Exact.
type RoundingMode int

const (
	// Exact means no rounding occurs (integer arithmetic).
	Exact RoundingMode = iota
	// Nearest rounds to the nearest representable value, ties to even.
	Nearest
	// Zero rounds towards zero (truncation).
	Zero
	// Positive rounds towards positive infinity.
	Positive
	// Negative rounds towards negative infinity.
	Negative
)

func (r RoundingMode) String() string {
	switch r {
	case Exact:
		return "exact"
	case Nearest:
		return "nearest"
	case Zero:
		return "zero"
	case Positive:
		return "+inf"
	case Negative:
		return "-inf"
	default:
		return "?"
	}
}
