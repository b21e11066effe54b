package ir

import (
	"fmt"
	"sort"
	"strings"
)

// Size is factor · ∏ parameters / divisor, with divisor > 0.
// It is simplified after every mutation: parameters are sorted for stable
// display and divisors that evenly divide the factor are folded in.
type Size struct {
	Factor     uint64
	Parameters []string
	Divisor    uint64
}

// NewSize builds a Size and simplifies it; a zero divisor is an error.
func NewSize(factor uint64, parameters []string, divisor uint64) (*Size, error) {
	if divisor == 0 {
		return nil, fmt.Errorf("ir: size divisor must be > 0")
	}
	s := &Size{Factor: factor, Parameters: append([]string(nil), parameters...), Divisor: divisor}
	s.simplify()
	return s, nil
}

// Const builds a Size with no parameters.
func Const(value uint64) *Size { s, _ := NewSize(value, nil, 1); return s }

func (s *Size) simplify() {
	sort.Strings(s.Parameters)
	for s.Divisor > 1 && s.Factor%s.Divisor == 0 {
		s.Factor /= s.Divisor
		s.Divisor = 1
	}
}

// Mul returns the product of two sizes, simplified.
func (s *Size) Mul(other *Size) *Size {
	out := &Size{
		Factor:     s.Factor * other.Factor,
		Parameters: append(append([]string(nil), s.Parameters...), other.Parameters...),
		Divisor:    s.Divisor * other.Divisor,
	}
	out.simplify()
	return out
}

// IsStatic reports whether the size has no remaining parameters.
func (s *Size) IsStatic() bool { return len(s.Parameters) == 0 }

// StaticValue evaluates the size when IsStatic() holds. The second return
// is false if parameters remain.
func (s *Size) StaticValue() (uint64, bool) {
	if !s.IsStatic() {
		return 0, false
	}
	return s.Factor / s.Divisor, true
}

// Eval evaluates the size given concrete values for every parameter it
// references. Returns an error if a parameter is missing.
func (s *Size) Eval(params map[string]uint64) (uint64, error) {
	v := s.Factor
	for _, p := range s.Parameters {
		pv, ok := params[p]
		if !ok {
			return 0, fmt.Errorf("ir: missing value for parameter %q", p)
		}
		v *= pv
	}
	return v / s.Divisor, nil
}

func (s *Size) String() string {
	parts := []string{fmt.Sprintf("%d", s.Factor)}
	parts = append(parts, s.Parameters...)
	out := strings.Join(parts, "*")
	if s.Divisor != 1 {
		out = fmt.Sprintf("(%s)/%d", out, s.Divisor)
	}
	return out
}
