package model

import (
	"fmt"

	"github.com/ulysseB/Telamon/ir"
)

// LocalInfo is the hardware pressure one instruction contributes to the
// level it belongs to. Predicated instructions that are
// certainly skipped under the current decisions contribute no pressure;
// Skipped records that fact so callers can explain a zero contribution.
type LocalInfo struct {
	Inst     ir.InstID
	Pressure HwPressure
	Skipped  bool
}

// Level groups every instruction that shares the same nest of iteration
// dimensions. Repeat is the level's trip count —
// the product of its dimensions' static sizes, or an unknown-but-at-
// least-1 estimate when a dimension's size is not yet statically known.
type Level struct {
	ID       string
	Dims     []ir.DimID
	Repeat   uint64
	Pressure HwPressure // pressure of a single iteration of the level
}

// NewLevel builds a Level from its nesting dimensions and the combined
// per-iteration pressure of its instructions (additive within the level,
// since instructions at the same level run in sequence on one thread).
func NewLevel(id string, dims []ir.DimID, fn *ir.Function, infos []LocalInfo) Level {
	var pressure HwPressure
	for _, li := range infos {
		if li.Skipped {
			continue
		}
		pressure = pressure.Add(li.Pressure)
	}
	repeat := staticRepeat(dims, fn)
	return Level{ID: id, Dims: dims, Repeat: repeat, Pressure: pressure}
}

func staticRepeat(dims []ir.DimID, fn *ir.Function) uint64 {
	repeat := uint64(1)
	for _, d := range dims {
		dim, ok := fn.Dimension(d)
		if !ok {
			continue
		}
		if v, ok := dim.Size.StaticValue(); ok {
			repeat *= v
		}
		// a dynamic size contributes no further static information; the
		// bound stays valid (it is a lower bound on the statically known
		// part) but cannot tighten further until the size is resolved.
	}
	return repeat
}

// Duration returns this level's contribution to the overall lower bound:
// its bottleneck resource's pressure, times its trip count.
func (l Level) Duration() (Bottleneck, uint64) {
	b, v := l.Pressure.Scale(l.Repeat).Dominant()
	return b, v
}

func (l Level) String() string {
	b, v := l.Duration()
	return fmt.Sprintf("level %s: repeat=%d bottleneck=%s value=%d", l.ID, l.Repeat, b, v)
}
